// Package cli implements the upline command line interface.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/uplinehq/upline/internal/config"
	"github.com/uplinehq/upline/internal/directory"
	"github.com/uplinehq/upline/internal/hierarchy"
)

// version can be overridden at build time via:
// go build -ldflags "-X github.com/uplinehq/upline/internal/cli.version=1.2.3"
var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "upline",
	Short: "Upline - agent hierarchy engine",
	Long:  "Upline manages an insurance agency's recruiter/downline hierarchy:\nzone triage, subtree moves, and a live-updating tree API.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the upline version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("upline", version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(memberCmd)
}

// openService wires a tenant-scoped hierarchy service over the configured
// SQLite stores.
func openService(cfg config.Config) (*hierarchy.Service, func(), error) {
	store, err := hierarchy.OpenSQLite(filepath.Join(cfg.Paths.DataDir, "hierarchy.db"), cfg.Tenant.ID)
	if err != nil {
		return nil, nil, err
	}
	dir, err := directory.Open(filepath.Join(cfg.Paths.DataDir, "directory.db"))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	svc := hierarchy.NewService(cfg.Tenant.ID, store,
		hierarchy.WithProfileLookup(dir),
		hierarchy.WithMoveLockTimeout(cfg.Hierarchy.MoveLockTimeout))
	cleanup := func() {
		dir.Close()
		store.Close()
	}
	return svc, cleanup, nil
}
