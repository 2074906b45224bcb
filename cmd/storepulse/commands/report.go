package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/pkg/progress"
	"github.com/compozy/storepulse/pkg/telemetry"
	"github.com/spf13/cobra"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var reportOpts reportOptions

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <metric>",
	Short: "Print one analytics report in the terminal",
	Long: `Run one report against the configured store and print it as a table or JSON.

Available reports:
` + reportUsage() + `

Dates are calendar days (YYYY-MM-DD) and both bounds are inclusive. Without
dates the report covers the full history. A spinner is shown on interactive
terminals while the data is fetched.`,
	Example: `  # January sales
  storepulse report sales --start 2024-01-01 --end 2024-01-31

  # Weekly order trend as JSON
  storepulse report orders-over-time --group-by week --format json

  # Abandoned carts over the last 7 days
  storepulse report carts --days 7

  # Revenue this month against last month
  storepulse report compare --start 2024-02-01 --end 2024-02-29 \
    --compare-start 2024-01-01 --compare-end 2024-01-31`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var initReportOnce sync.Once

// InitReportCommand registers the report command
func InitReportCommand() {
	initReportOnce.Do(func() {
		flags := reportCmd.Flags()
		flags.StringVar(&reportOpts.Start, "start", "", "Start date YYYY-MM-DD (inclusive)")
		flags.StringVar(&reportOpts.End, "end", "", "End date YYYY-MM-DD (inclusive)")
		flags.StringVar(&reportOpts.GroupBy, "group-by", "day", "Bucket size for trends: day, week or month")
		flags.IntVar(&reportOpts.Days, "days", 0, "Lookback window in days for the carts report")
		flags.IntVar(&reportOpts.Limit, "limit", 0, "Number of variants in the products report")
		flags.StringVar(&reportOpts.Format, "format", formatTable, "Output format: table or json")
		flags.StringVar(&reportOpts.CompareStart, "compare-start", "", "Start date of the baseline period (compare)")
		flags.StringVar(&reportOpts.CompareEnd, "compare-end", "", "End date of the baseline period (compare)")
		flags.StringVar(&reportOpts.CompareMetric, "metric", "revenue", "Metric to compare: revenue, orders, aov or customers")
		rootCmd.AddCommand(reportCmd)
	})
}

func runReport(cmd *cobra.Command, args []string) error {
	name := strings.ToLower(strings.TrimSpace(args[0]))
	build, ok := lookupReport(name)
	if !ok {
		return core.InvalidInput("unknown report %q (available: %s)", name, strings.Join(reportNames(), ", "))
	}
	format := strings.ToLower(reportOpts.Format)
	if format != formatTable && format != formatJSON {
		return core.InvalidInput("unknown format %q (expected table or json)", reportOpts.Format)
	}

	ctx := cmd.Context()
	svc, err := newServices(ctx, appConfig)
	if err != nil {
		return err
	}
	defer svc.Close()

	started := time.Now()
	var (
		data   any
		report *progress.Report
	)
	err = progress.WithSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Fetching %s report", name), func() error {
		var buildErr error
		data, report, buildErr = build(ctx, svc.metrics, reportOpts)
		return buildErr
	})

	props := telemetry.ErrorProperties(err)
	props["report"] = name
	props["format"] = format
	props["duration_ms"] = time.Since(started).Milliseconds()
	svc.tracker.Track(telemetry.EventReportGenerated, props)

	if err != nil {
		return err
	}
	report.Duration = time.Since(started)
	return writeReport(cmd.OutOrStdout(), format, data, report)
}

func writeReport(out io.Writer, format string, data any, report *progress.Report) error {
	if format == formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	}
	report.Render(out)
	return nil
}
