// Package diff renders bounded line-level differences between two revisions of a document.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultMaxLines bounds the output when the caller passes a non-positive limit.
const DefaultMaxLines = 100

// TruncatedMarker is emitted once, as the last line, when the diff was cut short.
const TruncatedMarker = "... (differences exceed maximum line limit)"

// Lines returns the removed ("- ") and added ("+ ") lines needed to turn oldText into newText.
// Unchanged lines are omitted. At most maxLines diff lines are emitted; if more remain
// the output ends with TruncatedMarker.
func Lines(oldText, newText string, maxLines int) string {
	if oldText == newText {
		return ""
	}
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	enc := newLineEncoder()
	a := enc.encode(oldLines)
	b := enc.encode(newLines)

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(a, b, false)

	out := make([]string, 0, min(maxLines+1, len(oldLines)+len(newLines)))
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		default:
			continue
		}
		for _, r := range d.Text {
			if len(out) == maxLines {
				out = append(out, TruncatedMarker)
				return strings.Join(out, "\n")
			}
			out = append(out, prefix+enc.line(r))
		}
	}

	return strings.Join(out, "\n")
}

// splitLines splits on "\n". The empty text has no lines; a trailing newline yields a final empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// lineEncoder maps each distinct line to a rune so the character diff becomes a line diff.
type lineEncoder struct {
	ids   map[string]rune
	lines []string
	next  rune
}

func newLineEncoder() *lineEncoder {
	return &lineEncoder{ids: make(map[string]rune), next: 1}
}

func (e *lineEncoder) encode(lines []string) []rune {
	runes := make([]rune, len(lines))
	for i, l := range lines {
		id, ok := e.ids[l]
		if !ok {
			id = e.next
			e.ids[l] = id
			e.lines = append(e.lines, l)
			e.next++
			// surrogate halves do not survive a round trip through a Go string
			if e.next == 0xD800 {
				e.next = 0xE000
			}
		}
		runes[i] = id
	}
	return runes
}

func (e *lineEncoder) line(r rune) string {
	idx := int(r) - 1
	if r >= 0xE000 {
		idx -= 0xE000 - 0xD800
	}
	return e.lines[idx]
}
