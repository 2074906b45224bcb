package commands

import (
	"fmt"
	"os"
	"sync"

	"github.com/compozy/storepulse/pkg/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new storepulse configuration file",
	Long: `Initialize creates a new storepulse.yaml configuration file in the current
directory with default settings.

The configuration file includes:
  • The data source (Medusa Admin API or the Medusa Postgres database)
  • Reporting defaults (currency, lookback windows, ranking limits)
  • HTTP API and MCP server settings
  • The assistant endpoint and model
  • Logging preferences

Secrets such as API keys are best left out of the file and provided as
STOREPULSE_* environment variables instead.`,
	Example: `  # Create a default configuration file
  storepulse init

  # Replace an existing file
  storepulse init --force`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		configFile := config.DefaultConfigFileName
		if cfgFile != "" {
			configFile = cfgFile
		}

		// Check if file exists and force flag is not set
		if _, err := os.Stat(configFile); err == nil && !forceOverwrite {
			return fmt.Errorf("config file %s already exists. Use --force to overwrite", configFile)
		}

		if err := config.Save(config.DefaultConfig(), configFile); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Configuration file '%s' created successfully\n", configFile)
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "1. Set medusa.base_url and STOREPULSE_MEDUSA_API_KEY (or source.driver: postgres)")
		fmt.Fprintln(out, "2. Run 'storepulse report sales' to check the connection")
		return nil
	},
}

var (
	initInitOnce   sync.Once
	forceOverwrite bool
)

// InitInitCommand registers the init command
func InitInitCommand() {
	initInitOnce.Do(func() {
		initCmd.Flags().BoolVar(&forceOverwrite, "force", false, "Force overwrite existing config file")
		rootCmd.AddCommand(initCmd)
	})
}
