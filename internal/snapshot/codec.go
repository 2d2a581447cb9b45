package snapshot

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zlib"
)

// Compress deflates text and returns it base64 encoded, so blobs can be stored as text records.
func Compress(text string) (string, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	if _, err := io.WriteString(zw, text); err != nil {
		zw.Close()
		return "", fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}

	slog.Debug("snapshot compressed",
		"raw", humanize.Bytes(uint64(len(text))),
		"compressed", humanize.Bytes(uint64(buf.Len())),
	)

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decompress reverses Compress. Any token that was not produced by Compress, or was
// damaged afterwards, yields ErrCorruptBlob rather than partial text.
func Decompress(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", ErrCorruptBlob, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: zlib header: %v", ErrCorruptBlob, err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("%w: inflate: %v", ErrCorruptBlob, err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: payload is not utf-8", ErrCorruptBlob)
	}

	return string(data), nil
}
