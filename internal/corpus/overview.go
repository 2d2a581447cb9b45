package corpus

import (
	"bufio"
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v3"
)

// RootFolder groups documents that sit directly in the vault root.
const RootFolder = "root"

// Overview holds the repository statistics reported on the first run.
type Overview struct {
	Documents int            `json:"documents"`
	Folders   map[string]int `json:"folders"` // top-level folder -> document count
	Tags      int            `json:"tags"`    // distinct tags
	Links     int            `json:"links"`   // internal links, counted per occurrence
}

// FolderNames returns the top-level folders ordered by document count, then name.
func (o *Overview) FolderNames() []string {
	names := make([]string, 0, len(o.Folders))
	for name := range o.Folders {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if o.Folders[names[i]] != o.Folders[names[j]] {
			return o.Folders[names[i]] > o.Folders[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// OverviewBuilder accumulates statistics one document at a time.
type OverviewBuilder struct {
	docs    int
	folders map[string]int
	tags    mapset.Set[string]
	links   int
}

func NewOverviewBuilder() *OverviewBuilder {
	return &OverviewBuilder{
		folders: make(map[string]int),
		tags:    mapset.NewThreadUnsafeSet[string](),
	}
}

func (b *OverviewBuilder) Add(path, text string) {
	b.docs++

	folder := RootFolder
	if i := strings.IndexByte(path, '/'); i > 0 {
		folder = path[:i]
	}
	b.folders[folder]++

	for _, t := range ExtractTags(text) {
		b.tags.Add(t)
	}
	b.links += CountLinks(text)
}

func (b *OverviewBuilder) Build() *Overview {
	folders := make(map[string]int, len(b.folders))
	for k, v := range b.folders {
		folders[k] = v
	}
	return &Overview{
		Documents: b.docs,
		Folders:   folders,
		Tags:      b.tags.Cardinality(),
		Links:     b.links,
	}
}

// Summarize reads every document of p and computes its overview.
// Unreadable documents are skipped with a warning.
func Summarize(ctx context.Context, p Provider) (*Overview, error) {
	paths, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	b := NewOverviewBuilder()
	for _, path := range paths {
		text, err := p.ReadText(path)
		if err != nil {
			slog.Warn("overview skip", "path", path, "error", err)
			continue
		}
		b.Add(path, text)
	}
	return b.Build(), nil
}

// ===================================================================================================

var (
	inlineTagRe = regexp.MustCompile(`(?:^|[\s(])#([\p{L}\p{N}_/-]+)`)
	wikiLinkRe  = regexp.MustCompile(`(!?)\[\[([^\[\]]+)\]\]`)
	mdLinkRe    = regexp.MustCompile(`(!?)\[[^\[\]]*\]\(([^()\s]+)\)`)
)

type frontMatter struct {
	Tags any `yaml:"tags"`
	Tag  any `yaml:"tag"`
}

// ExtractTags returns the normalized tags of a note: front-matter `tags`/`tag` and inline #tags
// outside fenced code blocks. Tags are lowercased and returned without the leading '#'.
func ExtractTags(text string) []string {
	set := mapset.NewThreadUnsafeSet[string]()
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if isTag(tag) {
			set.Add(tag)
		}
	}

	fm, body := splitFrontMatter(text)
	if fm != "" {
		var meta frontMatter
		if err := yaml.Unmarshal([]byte(fm), &meta); err == nil {
			for _, v := range []any{meta.Tags, meta.Tag} {
				for _, t := range yamlStrings(v) {
					add(t)
				}
			}
		}
	}

	for _, line := range proseLines(body) {
		for _, m := range inlineTagRe.FindAllStringSubmatch(line, -1) {
			add(m[1])
		}
	}

	tags := set.ToSlice()
	sort.Strings(tags)
	return tags
}

// CountLinks counts internal links: [[wiki links]] and [text](relative/target).
// Embeds and external URLs are not links.
func CountLinks(text string) int {
	_, body := splitFrontMatter(text)
	n := 0
	for _, line := range proseLines(body) {
		for _, m := range wikiLinkRe.FindAllStringSubmatch(line, -1) {
			if m[1] == "" {
				n++
			}
		}
		for _, m := range mdLinkRe.FindAllStringSubmatch(line, -1) {
			if m[1] == "" && !isExternal(m[2]) {
				n++
			}
		}
	}
	return n
}

func splitFrontMatter(text string) (string, string) {
	text = strings.TrimPrefix(text, "\ufeff")
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return "", text
	}
	rest := text[strings.IndexByte(text, '\n')+1:]
	for off := 0; off < len(rest); {
		end := strings.IndexByte(rest[off:], '\n')
		var line string
		if end < 0 {
			line = rest[off:]
		} else {
			line = rest[off : off+end]
		}
		if strings.TrimRight(line, "\r") == "---" {
			body := ""
			if end >= 0 {
				body = rest[off+end+1:]
			}
			return rest[:off], body
		}
		if end < 0 {
			break
		}
		off += end + 1
	}
	return "", text
}

// proseLines drops fenced code blocks.
func proseLines(body string) []string {
	var lines []string
	inFence := false
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), len(body)+1)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if !inFence {
			lines = append(lines, line)
		}
	}
	return lines
}

func yamlStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return strings.FieldsFunc(t, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// isTag rejects empty and purely numeric tags ("#2024" is not a tag).
func isTag(tag string) bool {
	for _, r := range tag {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func isExternal(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:") || strings.HasPrefix(target, "#")
}
