package metrics

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/shopspring/decimal"
)

// -----
// Service Implementation
// -----

// service implements Service on top of a commerce.Source
type service struct {
	source commerce.Source
	config *ServiceConfig
	logger *log.Logger
}

// MaxLookbackDays caps the days window of the cart summary
const MaxLookbackDays = 3650

// ServiceConfig holds the reporting defaults
type ServiceConfig struct {
	DefaultCurrency    string           // Currency key for orders without one
	CartLookbackDays   int              // Cart summary window when days is not given
	OriginLookbackDays int              // Cart window of the origin breakdown when no range is given
	TopDiscountsLimit  int              // Number of promotion codes returned
	TopProductsLimit   int              // Number of variants returned when limit is not given
	Now                func() time.Time // Clock used for lookback windows
}

// DefaultServiceConfig returns default service configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		DefaultCurrency:    "USD",
		CartLookbackDays:   30,
		OriginLookbackDays: 30,
		TopDiscountsLimit:  20,
		TopProductsLimit:   10,
		Now:                time.Now,
	}
}

// NewService creates a new metrics service instance
func NewService(source commerce.Source, config *ServiceConfig) Service {
	defaults := DefaultServiceConfig()
	if config == nil {
		config = defaults
	}
	cfg := *config
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = defaults.DefaultCurrency
	}
	if cfg.CartLookbackDays <= 0 {
		cfg.CartLookbackDays = defaults.CartLookbackDays
	}
	if cfg.OriginLookbackDays <= 0 {
		cfg.OriginLookbackDays = defaults.OriginLookbackDays
	}
	if cfg.TopDiscountsLimit <= 0 {
		cfg.TopDiscountsLimit = defaults.TopDiscountsLimit
	}
	if cfg.TopProductsLimit <= 0 {
		cfg.TopProductsLimit = defaults.TopProductsLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.DefaultCurrency = strings.ToUpper(cfg.DefaultCurrency)

	return &service{
		source: source,
		config: &cfg,
		logger: logger.With("component", "metrics"),
	}
}

// Settings implements Service
func (s *service) Settings() Settings {
	return Settings{
		DefaultCurrency:    s.config.DefaultCurrency,
		CartLookbackDays:   s.config.CartLookbackDays,
		OriginLookbackDays: s.config.OriginLookbackDays,
		TopDiscountsLimit:  s.config.TopDiscountsLimit,
		TopProductsLimit:   s.config.TopProductsLimit,
		Granularities:      Granularities,
		CompareMetrics:     CompareMetrics,
	}
}

// orders fetches the orders created inside rng and re-checks membership
// in memory. An empty range never reaches the source.
func (s *service) orders(
	ctx context.Context,
	rng core.DateRange,
	relations ...commerce.Relation,
) ([]commerce.Order, error) {
	if rng.IsEmpty() {
		return nil, nil
	}
	orders, err := s.source.Orders(ctx, commerce.OrderQuery{
		CreatedFrom: rng.Start,
		CreatedTo:   rng.End,
		Relations:   relations,
	})
	if err != nil {
		return nil, err
	}

	inRange := make([]commerce.Order, 0, len(orders))
	for _, o := range orders {
		if rng.Contains(o.CreatedAt) {
			inRange = append(inRange, o)
		}
	}
	s.logger.Debug("orders fetched",
		"start", core.FormatDate(rng.Start), "end", core.FormatDate(rng.End),
		"fetched", len(orders), "in_range", len(inRange))
	return inRange, nil
}

// revenueOrders is orders without canceled ones
func (s *service) revenueOrders(
	ctx context.Context,
	rng core.DateRange,
	relations ...commerce.Relation,
) ([]commerce.Order, error) {
	orders, err := s.orders(ctx, rng, relations...)
	if err != nil {
		return nil, err
	}
	return withoutCanceled(orders), nil
}

func (s *service) customers(ctx context.Context, rng core.DateRange, withOrders bool) ([]commerce.Customer, error) {
	if rng.IsEmpty() {
		return nil, nil
	}
	customers, err := s.source.Customers(ctx, commerce.CustomerQuery{
		CreatedFrom: rng.Start,
		CreatedTo:   rng.End,
		WithOrders:  withOrders,
	})
	if err != nil {
		return nil, err
	}
	inRange := make([]commerce.Customer, 0, len(customers))
	for _, c := range customers {
		if rng.Contains(c.CreatedAt) {
			inRange = append(inRange, c)
		}
	}
	return inRange, nil
}

func (s *service) carts(ctx context.Context, rng core.DateRange) ([]commerce.Cart, error) {
	if rng.IsEmpty() {
		return nil, nil
	}
	carts, err := s.source.Carts(ctx, commerce.CartQuery{
		UpdatedFrom: rng.Start,
		UpdatedTo:   rng.End,
	})
	if err != nil {
		return nil, err
	}
	inRange := make([]commerce.Cart, 0, len(carts))
	for _, c := range carts {
		if rng.Contains(c.UpdatedAt) {
			inRange = append(inRange, c)
		}
	}
	return inRange, nil
}

func (s *service) lookback(days int) time.Time {
	return s.config.Now().UTC().AddDate(0, 0, -days)
}

func (s *service) currencyKey(o commerce.Order) string {
	return strings.ToUpper(o.Currency(s.config.DefaultCurrency))
}

func withoutCanceled(orders []commerce.Order) []commerce.Order {
	out := make([]commerce.Order, 0, len(orders))
	for _, o := range orders {
		if !o.IsCanceled() {
			out = append(out, o)
		}
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// percentage returns part / whole * 100 rounded to two places, or zero
// when whole is zero.
func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(whole))).
		Mul(hundred).
		Round(2).
		InexactFloat64()
}

// ratio returns num / den rounded to two places, or zero when den is zero
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(num)).
		Div(decimal.NewFromInt(int64(den))).
		Round(2).
		InexactFloat64()
}

// rankPopularity sorts entries by total descending, then key ascending
func rankPopularity(entries map[string]*PopularityEntry) []PopularityEntry {
	out := make([]PopularityEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}
