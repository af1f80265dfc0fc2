package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/openbitx/explorer/internal/core/config"
	"github.com/openbitx/explorer/internal/infra/storage/postgres"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted default provider for every network and operation",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	defaults, err := postgres.NewDefaultProviderRepo(db).List(ctx)
	if err != nil {
		slog.Error("Failed to query default providers", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "NETWORK\tOPERATION\tPROVIDER\tUPDATED")

	for _, d := range defaults {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Network, d.Operation, d.ProviderName, d.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
}
