/*
Package main is the entry point for the Hall Chat server.

The root command serves the chat: it loads configuration, initializes the global logger,
opens the durable message log and account database, starts the HTTP server and shuts
everything down gracefully on SIGINT or SIGTERM. The migrate subcommand only applies
the database migrations.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hallchat/internal/configs"
	"hallchat/internal/pkg/logx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hallchat",
		Short: "Single-room real-time chat server",
		Long: `hallchat serves one shared chat hall over WebSocket.

Running it without a subcommand is the same as "hallchat serve".
All settings are read from the environment (PORT, DATABASE_URL, STORAGE_TYPE, ...).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())

	return rootCmd
}

// loadConfig loads configuration and initializes the global logger from it.
func loadConfig() (*configs.AppConfig, error) {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		return nil, err
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("pow_difficulty", cfg.PowDifficulty).
		Str("storage", cfg.StorageType).
		Bool("archive", cfg.ArchiveEnabled()).
		Msg("Configuration loaded successfully")

	return cfg, nil
}
