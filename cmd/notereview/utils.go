package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellow    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cyan      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	bold      = lipgloss.NewStyle().Bold(true)
	labelCell = lipgloss.NewStyle().Width(14)
)

func row(label string, value string) string {
	return labelCell.Render(label+":") + " " + value
}

// parseDate reads a YYYY-MM-DD flag value as a local date. Empty means now.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
