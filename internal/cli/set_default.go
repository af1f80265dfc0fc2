package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openbitx/explorer/internal/core/config"
	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/explorer/provider"
	"github.com/openbitx/explorer/internal/infra/storage"
	"github.com/openbitx/explorer/internal/infra/storage/postgres"
	"github.com/spf13/cobra"
)

var setDefaultCmd = &cobra.Command{
	Use:   "set-default [network] [operation] [provider]",
	Short: "Override the default provider for an operation on a network",
	Args:  cobra.ExactArgs(3),
	Run:   runSetDefault,
}

func init() {
	rootCmd.AddCommand(setDefaultCmd)
}

func runSetDefault(cmd *cobra.Command, args []string) {
	network := domain.Network(args[0])
	operation := provider.Operation(args[1])
	providerName := args[2]

	known := false
	for _, op := range provider.AllOperations {
		if op == operation {
			known = true
			break
		}
	}
	if !known {
		fmt.Printf("Unknown operation: %s\n", operation)
		os.Exit(1)
	}

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

	def := &storage.DefaultProvider{
		Network:      network,
		Operation:    string(operation),
		ProviderName: providerName,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := postgres.NewDefaultProviderRepo(db).Upsert(ctx, def); err != nil {
		slog.Error("Failed to set default provider", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully set default provider for %s/%s to %s\n", network, operation, providerName)
}
