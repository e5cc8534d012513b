package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/artpar/crudgate/bootstrap"
	"github.com/artpar/crudgate/modules/common"
	"github.com/spf13/cobra"
)

const checkMark = "✓"

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crudgate",
	Short: "Modular CRUD API server",
	Long: `crudgate serves JSON CRUD resources behind token authentication.

Every response uses the same envelope:
  {"success": true, "data": ..., "message": "...", "code": 200, "meta": {...}}

Quick start:
  crudgate users create --email=admin@example.com --name=Admin --admin
  crudgate serve

Inspection:
  crudgate modules  # Module bootstrap report
  crudgate routes   # Mounted route table`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "crudgate.yaml", "config file path (falls back to CRUDGATE_* environment variables)")
}

// newApp loads configuration and initializes every module.
func newApp(ctx context.Context, skipMigrate bool) (*bootstrap.App, error) {
	holder, logger, err := bootstrap.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, bootstrap.Options{
		Config:      holder,
		Logger:      logger,
		Build:       common.BuildInfo{Version: version, Commit: commit, StartedAt: time.Now().UTC()},
		SkipMigrate: skipMigrate,
	})
}
