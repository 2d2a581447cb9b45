// Package utils provides small helpers shared by the notereview packages.
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// MultiLogHandler implements slog.Handler and forwards records to every handler that accepts them.
type MultiLogHandler struct {
	handlers []slog.Handler
}

func NewMultiLogHandler(handlers ...slog.Handler) *MultiLogHandler {
	return &MultiLogHandler{handlers: handlers}
}

func (h *MultiLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiLogHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *MultiLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return NewMultiLogHandler(next...)
}

func (h *MultiLogHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return NewMultiLogHandler(next...)
}

// LogInterceptor is an io.Writer that prefixes every complete line with a sequence
// number and a timestamp before passing it to the target writer.
// Incomplete trailing data is held until the next newline or Close.
type LogInterceptor struct {
	mu     sync.Mutex
	target io.Writer
	seq    uint64
	buf    bytes.Buffer
	now    func() time.Time
}

func NewLogInterceptor(target io.Writer) *LogInterceptor {
	return &LogInterceptor{target: target, now: time.Now}
}

func (i *LogInterceptor) Write(p []byte) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.buf.Write(p)
	for {
		idx := bytes.IndexByte(i.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := i.buf.Next(idx + 1)
		if err := i.writeLine(bytes.TrimRight(line, "\r\n")); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Close flushes any buffered partial line.
func (i *LogInterceptor) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.buf.Len() == 0 {
		return nil
	}
	line := bytes.TrimRight(i.buf.Bytes(), "\r\n")
	i.buf.Reset()
	return i.writeLine(line)
}

func (i *LogInterceptor) writeLine(line []byte) error {
	i.seq++
	_, err := fmt.Fprintf(i.target, "%s %s %s\n",
		slog.Uint64("line", i.seq).String(),
		slog.String("time", i.now().Format(time.RFC3339)).String(),
		line,
	)
	return err
}

// LoggerOptions controls SetupLogger.
type LoggerOptions struct {
	Level   slog.Level
	Stdout  *os.File
	LogFile string // empty disables file logging
}

// SetupLogger builds a logger writing colored output to stdout and plain text to LogFile.
// The returned closer flushes and closes the log file.
func SetupLogger(opts LoggerOptions) (*slog.Logger, io.Closer, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	stdoutHandler := tint.NewHandler(stdout, &tint.Options{
		Level:      opts.Level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(stdout.Fd()),
	})

	if opts.LogFile == "" {
		return slog.New(stdoutHandler), nopCloser{}, nil
	}

	if err := EnsureParent(opts.LogFile); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	interceptor := NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(interceptor, &slog.HandlerOptions{
		Level: opts.Level,
		// time is added by the interceptor
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	logger := slog.New(NewMultiLogHandler(stdoutHandler, fileHandler))
	return logger, &logCloser{interceptor: interceptor, file: file}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type logCloser struct {
	interceptor *LogInterceptor
	file        *os.File
}

func (c *logCloser) Close() error {
	flushErr := c.interceptor.Close()
	if err := c.file.Close(); err != nil {
		return err
	}
	return flushErr
}
