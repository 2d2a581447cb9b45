package main

import (
	"fmt"

	"github.com/openmined/notereview/internal/app"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newGCCmd())
}

func newGCCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete snapshot blobs no longer referenced by the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setupConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			s, err := app.OpenStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Workspace.Setup(); err != nil {
				return err
			}
			defer s.Workspace.Unlock()

			orphans, err := s.CollectOrphans(cmd.Context(), dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "deleted"
			if dryRun {
				verb = "would delete"
			}
			for _, hash := range orphans {
				fmt.Fprintln(out, gray.Render(hash))
			}
			fmt.Fprintf(out, "%s %d orphan blobs\n", verb, len(orphans))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list orphan blobs without deleting them")

	return cmd
}
