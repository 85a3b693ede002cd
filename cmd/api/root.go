package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/imagegen-backend/internal/config"
	"github.com/baharkarakas/imagegen-backend/internal/logger"
)

func RootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "imagegen-api",
		Short:         "Image generation gallery API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			cfg = config.Load()
			slog.SetDefault(logger.New(cfg.Env))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return logged(runServe(cmd.Context(), cfg))
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return logged(runServe(cmd.Context(), cfg))
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return logged(runMigrate(cmd.Context(), cfg))
			},
		},
	)

	return root
}

func logged(err error) error {
	if err != nil {
		slog.Error("command failed", "err", err)
	}
	return err
}
