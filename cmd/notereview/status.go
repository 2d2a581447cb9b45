package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/openmined/notereview/internal/app"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the snapshot index, latest reviews and next scheduled runs",
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

			st, err := s.Status(cmd.Context(), time.Now(), asJSON)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the status and the full snapshot index as JSON")

	return cmd
}

func printStatus(w io.Writer, st *app.Status) {
	fmt.Fprintln(w, bold.Render("notereview"))
	fmt.Fprintln(w, row("Vault", st.VaultDir))
	fmt.Fprintln(w, row("Data", st.DataDir))
	fmt.Fprintln(w, row("Reviews", st.ReviewsDir))
	fmt.Fprintln(w, row("Blob backend", st.BlobBackend))

	daemon := gray.Render("not running")
	if st.Locked {
		daemon = green.Render("running")
	}
	fmt.Fprintln(w, row("Daemon", daemon))

	switch st.IndexState {
	case app.IndexOK:
		fmt.Fprintln(w, row("Index", fmt.Sprintf("%s, %d documents, snapshot %s",
			green.Render("ok"), st.Documents, humanize.Time(st.LastSnapshot))))
	case app.IndexEmpty:
		fmt.Fprintln(w, row("Index", yellow.Render("empty, next review bootstraps")))
	case app.IndexCorrupt:
		fmt.Fprintln(w, row("Index", red.Render("corrupt, next review rebuilds it")))
	}

	fmt.Fprintln(w, row("Blobs", fmt.Sprintf("%d (%d orphaned)", st.Blobs, st.Orphans)))
	fmt.Fprintln(w, row("Last daily", orNone(st.LastDaily)))
	fmt.Fprintln(w, row("Last weekly", orNone(st.LastWeekly)))
	fmt.Fprintln(w, row("Next daily", cyan.Render(st.NextDaily.Format("Mon 2006-01-02 15:04"))))
	fmt.Fprintln(w, row("Next weekly", cyan.Render(st.NextWeekly.Format("Mon 2006-01-02 15:04"))))
}

func orNone(s string) string {
	if s == "" {
		return gray.Render("none")
	}
	return s
}
