package model

import (
	"context"
	"log/slog"
)

// EmbedderInterface turns text into a fixed-length vector. A nil vector with a
// nil error means "no embedding available" and is a recoverable condition.
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Embedder wraps the Workers AI client and absorbs its failures: any remote
// error or malformed response yields (nil, nil) so callers only ever have to
// handle the no-result case.
type Embedder struct {
	remote *WorkersAIEmbedder
	logger *slog.Logger
}

func NewEmbedder(remote *WorkersAIEmbedder) *Embedder {
	return &Embedder{
		remote: remote,
		logger: slog.Default(),
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding, err := e.remote.Embed(ctx, text)
	if err != nil {
		e.logger.Error("embedding unavailable", "error", err)
		return nil, nil
	}
	return embedding, nil
}
