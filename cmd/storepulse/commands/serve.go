package commands

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/compozy/storepulse/engine/api"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin analytics HTTP API",
	Long: `Start the admin HTTP API serving every report under /admin/analytics.

Routes:
  GET  /health                      liveness and version
  GET  /metrics                     Prometheus metrics
  GET  /admin/analytics/...         reports (sales, orders, customers, carts, ...)
  GET  /admin/analytics/settings    effective reporting defaults
  POST /admin/assistant/chat        assistant relay (when assistant.enabled is true)

Admin routes require "Authorization: Bearer <token>" when server.auth_token
is set. SIGINT and SIGTERM drain in-flight requests before exiting.`,
	Example: `  # Serve on the configured address
  storepulse serve

  # Serve on another port
  storepulse serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var initServeOnce sync.Once

// InitServeCommand registers the serve command
func InitServeCommand() {
	initServeOnce.Do(func() {
		serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (overrides server.host)")
		serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to bind (overrides server.port)")
		rootCmd.AddCommand(serveCmd)
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := appConfig
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}

	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts := []api.Option{api.WithVersion(Version)}
	if cfg.Assistant.Enabled {
		registry, err := svc.catalog()
		if err != nil {
			return err
		}
		opts = append(opts, api.WithAssistant(svc.assistant(registry)))
		logger.Info("Assistant relay enabled", "model", cfg.Assistant.Model, "base_url", cfg.Assistant.BaseURL)
	}

	return api.NewServer(cfg.Server, svc.metrics, opts...).Start(ctx)
}
