// Package generate turns review prompts into report text.
package generate

import (
	"context"
	"errors"
)

var (
	ErrNoAPIKey      = errors.New("generate: api key missing")
	ErrAuth          = errors.New("generate: authentication failed")
	ErrQuota         = errors.New("generate: quota exceeded")
	ErrInvalidModel  = errors.New("generate: invalid model")
	ErrEmptyResponse = errors.New("generate: empty response")
)

// Generator produces report text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Echo returns the prompt unchanged. Useful offline and in tests.
type Echo struct{}

func (Echo) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return prompt, nil
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
