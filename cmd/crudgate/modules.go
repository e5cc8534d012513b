package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	apihttp "github.com/artpar/crudgate/adapters/http"
	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Show the module bootstrap report",
	RunE:  runModules,
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List every mounted route",
	RunE:  runRoutes,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runModules(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer app.Close()

	report := app.Orchestrator.Report()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPRIORITY\tSTATUS\tPREFIX\tENTITIES")
	fmt.Fprintln(w, "----\t--------\t------\t------\t--------")
	for _, m := range report.Modules {
		prefix := m.Prefix
		if prefix == "" {
			prefix = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\n", m.Name, m.Priority, m.Status, prefix, m.Entities)
	}
	w.Flush()

	fmt.Println()
	fmt.Printf("%d bindings, %d route providers, %d entities in %s\n",
		report.Bindings, report.Routes, report.Entities, report.Duration)
	return nil
}

func runRoutes(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer app.Close()

	routes, err := apihttp.Walk(app.Router)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATTERN")
	fmt.Fprintln(w, "------\t-------")
	for _, r := range routes {
		fmt.Fprintf(w, "%s\t%s\n", r.Method, strings.TrimSuffix(r.Pattern, "/*"))
	}
	return w.Flush()
}

func runMigrate(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer app.Close()

	applied, err := app.Migrate(cmd.Context())
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Println("Database is up to date.")
		return nil
	}
	for _, v := range applied {
		fmt.Printf("%s %s\n", checkMark, v)
	}
	return nil
}
