package main

import (
	"errors"
	"fmt"

	"github.com/openmined/notereview/internal/app"
	"github.com/openmined/notereview/internal/review"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newReviewCmd())
	rootCmd.AddCommand(newWeeklyCmd())
}

func newReviewCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Run the daily review now",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate(date)
			if err != nil {
				return err
			}

			cfg, err := setupConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.RunDaily(cmd.Context(), day)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", green.Render("daily review written"), res.Path)
			fmt.Fprintln(out, row("Kind", cyan.Render(string(res.Kind))))
			fmt.Fprintln(out, row("Documents", fmt.Sprint(res.Documents)))
			if c := res.Changes; c != nil && !c.Empty() {
				fmt.Fprintln(out, row("Changes", fmt.Sprintf("%d added, %d modified, %d deleted",
					len(c.Added), len(c.Modified), len(c.Deleted))))
			}
			if res.Skipped > 0 {
				fmt.Fprintln(out, row("Skipped", yellow.Render(fmt.Sprint(res.Skipped))))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "attribute the review to this date (YYYY-MM-DD, default today)")
	cmd.Flags().Int("max-diff-lines", 0, "maximum diff lines per modified document (default from config)")

	return cmd
}

func newWeeklyCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Run the weekly review for the ISO week containing --date",
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := parseDate(date)
			if err != nil {
				return err
			}

			cfg, err := setupConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.RunWeekly(cmd.Context(), now)
			if errors.Is(err, review.ErrNoDailyReviews) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s no daily reviews in %s\n", yellow.Render("skipped:"), review.ISOWeekKey(now))
				return nil
			} else if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d daily reviews)\n", green.Render("weekly review written"), res.Path, res.Days)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "any date within the week (YYYY-MM-DD, default today)")

	return cmd
}
