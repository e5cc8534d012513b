package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the crudgate API server.

The server will:
  - Load configuration from crudgate.yaml (or --config)
  - Or load configuration from CRUDGATE_* environment variables
  - Initialize every module and apply pending migrations
  - Reload debug and logging.level on file change or SIGHUP
  - Shut down gracefully on SIGINT or SIGTERM

Environment variables (for Docker deployments):
  CRUDGATE_DATABASE_DRIVER  - sqlite3 or postgres (default: sqlite3)
  CRUDGATE_DATABASE_DSN     - Database DSN (default: crudgate.db)
  CRUDGATE_SERVER_PORT      - Server port (default: 8080)
  CRUDGATE_AUTH_JWT_SECRET  - Token signing secret
  CRUDGATE_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  crudgate serve
  crudgate serve --config /etc/crudgate/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	return app.Run(cmd.Context())
}
