package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prsift/internal/api"
)

var (
	flagAddr string
	flagPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the matcher and scorer.

Endpoints:
  GET  /health        Health check
  GET  /metrics       Prometheus metrics
  GET  /api/patterns  Patterns in precedence order
  POST /api/match     Match a diff and build the AI prompt
  POST /api/score     Score a diff with an optional AI response`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&flagAddr, "addr", "a", "", "address to listen on (default: PRSIFT_HOST)")
	serveCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "port to listen on (default: PRSIFT_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, port := env.settings.Server.Host, env.settings.Server.Port
	if cmd.Flags().Changed("addr") {
		addr = flagAddr
	}
	if cmd.Flags().Changed("port") {
		port = flagPort
	}
	if port < 0 || port > 65535 {
		return usagef("port %d out of range", port)
	}

	srv := api.New(api.Options{
		Addr:        fmt.Sprintf("%s:%d", addr, port),
		Log:         env.log,
		Configs:     env.configs,
		ProjectRoot: env.projectRoot,
		Weights:     env.settings.Weights(),
		Command:     commandName,
	})
	return srv.ListenAndServe(cmd.Context())
}
