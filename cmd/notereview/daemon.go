package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openmined/notereview/internal/app"
	"github.com/openmined/notereview/internal/version"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newDaemonCmd())
}

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the review scheduler with missed-run catch-up",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setupConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			slog.Info("notereview", "version", version.Version, "revision", version.Revision, "build", version.BuildDate)
			slog.Info("daemon using config", "path", cfg.Path)

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			defer slog.Info("Bye!")
			if err := a.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("daemon start", "error", err)
				return err
			}
			return nil
		},
	}
}
