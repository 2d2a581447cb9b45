package review

import (
	"fmt"
	"strings"
	"time"

	"github.com/openmined/notereview/internal/changes"
	"github.com/openmined/notereview/internal/corpus"
)

const diffOmittedNote = "(diff unavailable: the previous revision could not be loaded)"

// noChangesReport is written instead of a generated report when nothing changed.
func noChangesReport(day time.Time, skipped int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Daily Review - %s\n\n", DateKey(day))
	sb.WriteString("No changes detected since the last review.\n")
	if skipped > 0 {
		fmt.Fprintf(&sb, "\n%d document(s) could not be read and were skipped.\n", skipped)
	}
	return sb.String()
}

func changeSummary(cs *changes.ChangeSet) string {
	var sections []string
	list := func(title string, items []*changes.FileChange) {
		if len(items) == 0 {
			return
		}
		lines := []string{fmt.Sprintf("### %s (%d)", title, len(items))}
		for _, c := range items {
			lines = append(lines, "- "+c.Path)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	list("Added", cs.Added)
	list("Modified", cs.Modified)
	list("Deleted", cs.Deleted)
	return strings.Join(sections, "\n\n")
}

func detailedChanges(cs *changes.ChangeSet) string {
	if len(cs.Modified) == 0 {
		return "(no modified documents)"
	}
	var sb strings.Builder
	for i, c := range cs.Modified {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "### %s\n", c.Path)
		switch {
		case c.DiffOmitted:
			sb.WriteString(diffOmittedNote)
		case c.Diff == "":
			sb.WriteString("(whitespace-only or empty diff)")
		default:
			sb.WriteString("```diff\n")
			sb.WriteString(c.Diff)
			sb.WriteString("\n```")
		}
	}
	return sb.String()
}

func dailyPrompt(day time.Time, cs *changes.ChangeSet) string {
	var sb strings.Builder
	sb.WriteString("Write a daily review report based on the following changes to my notes.\n\n")
	sb.WriteString("## Change summary\n\n")
	sb.WriteString(changeSummary(cs))
	sb.WriteString("\n\n## Detailed changes\n\n")
	sb.WriteString(detailedChanges(cs))
	sb.WriteString("\n\n")
	if cs.Skipped > 0 {
		fmt.Fprintf(&sb, "Note: %d document(s) could not be read and are not included.\n\n", cs.Skipped)
	}

	fmt.Fprintf(&sb, `Produce a Markdown report using this structure:

# Daily Review - %s

## Overview
- Changed documents: %d
- Added: %d
- Modified: %d
- Deleted: %d

## What I worked on
One sentence per item, based on the changes above.

## Key takeaways
Knowledge, lessons or insights from today's work.

## Plan for tomorrow
Next steps suggested by today's progress.
`, DateKey(day), cs.Total(), len(cs.Added), len(cs.Modified), len(cs.Deleted))

	return sb.String()
}

func weeklyPrompt(now time.Time, days []DailyArtifact) string {
	var reviews []string
	for _, d := range days {
		reviews = append(reviews, fmt.Sprintf("### %s\n%s", d.Key, strings.TrimSpace(d.Content)))
	}

	var sb strings.Builder
	sb.WriteString("Write a weekly review report based on the following daily reviews.\n\n")
	sb.WriteString("## Daily reviews\n\n")
	sb.WriteString(strings.Join(reviews, "\n\n"))
	fmt.Fprintf(&sb, `

Produce a Markdown report using this structure:

# Weekly Review - %s

## Overview
- Days with reviews: %d
- Main achievements:
- Challenges:

## What I worked on this week

## Key takeaways

## Plan for next week
`, ISOWeekKey(now), len(days))

	return sb.String()
}

func overviewPrompt(day time.Time, o *corpus.Overview) string {
	var folders []string
	for _, name := range o.FolderNames() {
		folders = append(folders, fmt.Sprintf("- %s: %d notes", name, o.Folders[name]))
	}
	if len(folders) == 0 {
		folders = append(folders, "- (empty)")
	}

	return fmt.Sprintf(`This is the first review of my notes. Write a repository overview report.

## Repository statistics

- Notes: %d
- Top-level folders: %d
- Distinct tags: %d
- Links: %d

## Folder structure

%s

## Task

Write a Markdown report titled "# Repository Overview - %s" covering:
1. The size of the knowledge base (small, medium or large)
2. The main subject areas, based on the folder structure
3. Suggestions for organizing content that needs attention
4. Knowledge management advice
`, o.Documents, len(o.Folders), o.Tags, o.Links, strings.Join(folders, "\n"), DateKey(day))
}
