// Package main provides the docqa CLI: the HTTP and MCP servers plus
// ingestion and maintenance commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/docqa/internal/app"
	"github.com/mike-a-ellis/docqa/internal/config"
	"github.com/mike-a-ellis/docqa/internal/logger"
)

// cli carries state shared by subcommands after the root pre-run.
type cli struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Question answering over uploaded documents",
		Long:          "docqa ingests PDF and plain text documents into Qdrant and Postgres and answers questions about them with cited sources.",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
			}
			if cmd.Flags().Changed("log-json") {
				cfg.Log.JSON, _ = cmd.Flags().GetBool("log-json")
			}
			c.cfg = cfg
			c.logger = logger.Setup(logger.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
			return nil
		},
	}
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "emit logs as JSON")

	root.AddCommand(
		c.serveCmd(),
		c.mcpCmd(),
		c.migrateCmd(),
		c.ingestCmd(),
		c.askCmd(),
		c.documentsCmd(),
		c.purgeCmd(),
		c.importGitHubCmd(),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}

// withApp builds the application for one command and closes it afterwards.
func (c *cli) withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
