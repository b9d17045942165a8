package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harborline/hscode/internal/api"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the classification HTTP API",
		Long: `Start the HTTP server exposing classification, conversation, feedback
and catalog endpoints under /api/v1. The server shuts down gracefully on
SIGINT or SIGTERM.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	eng, err := buildEngine(store)
	if err != nil {
		return err
	}

	addr := viper.GetString("server.addr")
	if addr == "" {
		addr = ":8080"
	}

	server := api.NewServer(eng, store, store, nil)
	return server.Run(ctx, addr)
}
