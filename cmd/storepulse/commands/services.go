package commands

import (
	"context"
	"fmt"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/infra/medusa"
	"github.com/compozy/storepulse/engine/infra/postgres"
	"github.com/compozy/storepulse/engine/llm"
	"github.com/compozy/storepulse/engine/metrics"
	"github.com/compozy/storepulse/engine/tools"
	"github.com/compozy/storepulse/pkg/config"
	pkgerrors "github.com/compozy/storepulse/pkg/errors"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/compozy/storepulse/pkg/telemetry"
)

// services holds the collaborators shared by the serving and reporting commands
type services struct {
	config  *config.Config
	source  commerce.Source
	metrics metrics.Service
	tracker telemetry.Tracker
	closers []func() error
}

// newServices opens the configured source and builds the metrics service
func newServices(ctx context.Context, cfg *config.Config) (*services, error) {
	svc := &services{config: cfg}

	tracker := pkgerrors.WithGracefulDegrade[telemetry.Tracker](
		"telemetry", &pkgerrors.GracefulDegradeConfig{LogWarning: true}, telemetry.Noop{},
		func() (telemetry.Tracker, error) { return telemetry.New(cfg.Telemetry) },
	)
	svc.tracker = tracker
	svc.closers = append(svc.closers, tracker.Close)

	source, err := svc.openSource(ctx)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.source = source
	svc.metrics = metrics.NewService(source, &metrics.ServiceConfig{
		DefaultCurrency:    cfg.Analytics.DefaultCurrency,
		CartLookbackDays:   cfg.Analytics.CartLookbackDays,
		OriginLookbackDays: cfg.Analytics.OriginLookbackDays,
		TopDiscountsLimit:  cfg.Analytics.TopDiscountsLimit,
		TopProductsLimit:   cfg.Analytics.TopProductsLimit,
	})
	return svc, nil
}

func (svc *services) openSource(ctx context.Context) (commerce.Source, error) {
	switch svc.config.Source.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, svc.config.Postgres.DSN, svc.config.Postgres.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, db.Close)
		logger.Debug("Reading from postgres", "dsn", config.MaskSecret(svc.config.Postgres.DSN))
		return postgres.NewSource(db), nil
	default:
		m := svc.config.Medusa
		client, err := medusa.NewClient(medusa.Config{
			BaseURL:    m.BaseURL,
			APIKey:     m.APIKey,
			PageSize:   m.PageSize,
			Timeout:    m.Timeout,
			MaxRetries: m.MaxRetries,
			CartsPath:  m.CartsPath,
		})
		if err != nil {
			return nil, err
		}
		logger.Debug("Reading from the Medusa Admin API", "base_url", m.BaseURL)
		return medusa.NewSource(client), nil
	}
}

// catalog builds the tool registry shared by the MCP server and the assistant
func (svc *services) catalog() (*tools.Registry, error) {
	registry, err := tools.NewCatalog(
		svc.metrics,
		svc.source,
		tools.CatalogConfig{MaxListItems: svc.config.MCP.Performance.MaxListItems},
		tools.WithTracker(svc.tracker),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool catalog: %w", err)
	}
	return registry, nil
}

// assistant builds the chat relay over runner
func (svc *services) assistant(runner llm.ToolRunner) *llm.Assistant {
	a := svc.config.Assistant
	return llm.NewAssistant(llm.Config{
		BaseURL:      a.BaseURL,
		APIKey:       a.APIKey,
		Model:        a.Model,
		SystemPrompt: a.SystemPrompt,
		Timeout:      a.Timeout,
	}, runner, llm.WithTracker(svc.tracker))
}

// Close releases the source and flushes telemetry
func (svc *services) Close() {
	for i := len(svc.closers) - 1; i >= 0; i-- {
		if err := svc.closers[i](); err != nil {
			logger.Warn("Failed to release resource", "error", err)
		}
	}
	svc.closers = nil
}
