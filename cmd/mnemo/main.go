package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mnemo-graph/mnemo/internal/config"
	"github.com/mnemo-graph/mnemo/internal/memory"
	"github.com/mnemo-graph/mnemo/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "mnemo",
		Short: "mnemo — graph-backed persistent memory for AI agents",
		Long:  "Mnemo stores entities, relationships, and observations in a Neo4j-backed knowledge graph and serves them over CLI and MCP.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		entitiesCmd(),
		relationshipsCmd(),
		observationsCmd(),
		relatedCmd(),
		metaCmd(),
		tasksCmd(),
		healthCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	return store.NewNeo4jStore(
		ctx,
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
		logger,
	)
}

func newService(st store.Store, logger *slog.Logger) *memory.Service {
	return memory.NewService(st, memory.Config{
		DefaultLabel: cfg.Graph.DefaultLabel,
		GraphRoot:    cfg.Graph.Root,
	}, logger)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
