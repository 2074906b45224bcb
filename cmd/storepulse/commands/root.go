package commands

import (
	"fmt"
	"sync"

	"github.com/compozy/storepulse/pkg/config"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/spf13/cobra"
)

// skipConfigAnnotation marks commands that run without a loaded configuration
const skipConfigAnnotation = "storepulse.skip-config"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "storepulse",
	Short: "Read-only commerce analytics for Medusa stores",
	Long: `StorePulse turns the orders, carts, customers and products of a Medusa store
into reports: sales totals, time-bucketed trends, cohort rates and rankings.

The same reports are available through:
  • An admin HTTP API (storepulse serve)
  • An MCP tool server for chat assistants (storepulse serve-mcp)
  • A local assistant backed by an OpenAI-compatible model (storepulse ask)
  • The terminal (storepulse report)

Example workflow:
  1. Initialize configuration:  storepulse init
  2. Print a report:            storepulse report sales --start 2024-01-01 --end 2024-01-31
  3. Start the API:             storepulse serve

Every setting can be overridden with STOREPULSE_* environment variables,
for example STOREPULSE_MEDUSA_API_KEY or STOREPULSE_SERVER_PORT.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	initRootOnce sync.Once
	cfgFile      string
	logLevel     string

	// appConfig is the configuration loaded before every command that needs it
	appConfig *config.Config
)

// Root registers every command once and returns the root command
func Root() *cobra.Command {
	InitConfig()

	InitServeCommand()
	InitServeMCPCommand()
	InitReportCommand()
	InitAskCommand()
	InitInitCommand()
	InitVersionCommand()

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(Root().Execute())
}

// InitConfig registers the global flags
func InitConfig() {
	initRootOnce.Do(func() {
		rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./storepulse.yaml)")
		rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

		rootCmd.SetHelpTemplate(`{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasAvailableSubCommands}}{{.UsageString}}{{end}}`)
	})
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfigAnnotation] == "true" || cmd.Name() == "help" {
		return nil
	}
	if cmd.HasParent() && cmd.Parent().Name() == "completion" {
		return nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	appConfig = cfg
	logger.Debug("Configuration loaded", "driver", cfg.Source.Driver, "config", cfgFile)
	return nil
}
