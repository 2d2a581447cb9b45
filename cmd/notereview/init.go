package main

import (
	"errors"
	"fmt"

	"github.com/openmined/notereview/internal/utils"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file for a vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath(cmd)
			if utils.FileExists(path) && !force {
				fmt.Fprintf(cmd.OutOrStdout(), "config already exists: %s\n", green.Render(path))
				return nil
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.VaultDir == "" {
				return errors.New("--vault is required")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			if err := cfg.Save(path); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "notereview initialized")
			fmt.Fprintln(out, row("Config", green.Render(path)))
			fmt.Fprintln(out, row("Vault", cyan.Render(cfg.VaultDir)))
			fmt.Fprintln(out, row("Data", cyan.Render(cfg.DataDir)))
			fmt.Fprintln(out, row("Reviews", cyan.Render(cfg.ReviewsDir)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	return cmd
}
