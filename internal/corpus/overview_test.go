package corpus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTags(t *testing.T) {
	text := `---
title: Plan
tags: [Work, planning]
---
# Heading

Some text #idea and #work again, also #2024 and a url http://x.io/#frag.
(#nested/tag)

` + "```" + `
#not-a-tag inside code
` + "```" + `
`
	assert.Equal(t, []string{"idea", "nested/tag", "planning", "work"}, ExtractTags(text))
}

func TestExtractTags_StringFrontMatter(t *testing.T) {
	text := "---\ntags: alpha, beta gamma\n---\nbody"
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, ExtractTags(text))
}

func TestExtractTags_BrokenFrontMatter(t *testing.T) {
	text := "---\ntags: [unterminated\n---\n#inline"
	assert.Equal(t, []string{"inline"}, ExtractTags(text))
}

func TestCountLinks(t *testing.T) {
	text := `See [[Other Note]] and [[folder/Target|alias]].
An embed ![[image.png]] is not a link.
[relative](notes/a.md) counts, [site](https://example.com) does not, nor [anchor](#top).
`
	assert.Equal(t, 3, CountLinks(text))
}

type mapProvider map[string]string

func (m mapProvider) List(context.Context) ([]string, error) {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out, nil
}

func (m mapProvider) ReadText(path string) (string, error) {
	text, ok := m[path]
	if !ok {
		return "", ErrNotFound
	}
	return text, nil
}

func (m mapProvider) ModTime(string) (int64, error) { return 0, nil }

func TestSummarize(t *testing.T) {
	p := mapProvider{
		"A.md":          "#a [[B]]",
		"B.md":          "#b",
		"work/one.md":   "#a [[A]] [[B]]",
		"work/two.md":   "",
		"life/diary.md": "#c",
	}

	o, err := Summarize(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 5, o.Documents)
	assert.Equal(t, map[string]int{"root": 2, "work": 2, "life": 1}, o.Folders)
	assert.Equal(t, 3, o.Tags)
	assert.Equal(t, 3, o.Links)
	assert.Equal(t, []string{"root", "work", "life"}, o.FolderNames())
}
