package snapshot

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	cases := map[string]string{
		"empty":     "",
		"ascii":     "# Title\n\nSome body text.\n",
		"unicode":   "日本語のノート 🙂\nłódź\n",
		"no-eol":    "x",
		"repeating": strings.Repeat("the same line again\n", 5000),
	}

	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			token, err := Compress(text)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			got, err := Decompress(token)
			require.NoError(t, err)
			assert.Equal(t, text, got)
		})
	}
}

func TestCodec_Large(t *testing.T) {
	var sb strings.Builder
	for sb.Len() < 10<<20 {
		sb.WriteString("line of a fairly large note with some words in it\n")
	}
	text := sb.String()

	token, err := Compress(text)
	require.NoError(t, err)
	assert.Less(t, len(token), len(text))

	got, err := Decompress(token)
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestCodec_CorruptInput(t *testing.T) {
	valid, err := Compress("some note text that is long enough to matter\n")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(valid)
	require.NoError(t, err)

	flipped := append([]byte(nil), raw...)
	flipped[len(flipped)-1] ^= 0xff // adler32 trailer

	truncated := raw[:len(raw)/2]

	cases := map[string]string{
		"empty":      "",
		"not-base64": "hello world!",
		"not-zlib":   base64.StdEncoding.EncodeToString([]byte("plain text, not deflated")),
		"checksum":   base64.StdEncoding.EncodeToString(flipped),
		"truncated":  base64.StdEncoding.EncodeToString(truncated),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decompress(token)
			assert.ErrorIs(t, err, ErrCorruptBlob)
		})
	}
}
