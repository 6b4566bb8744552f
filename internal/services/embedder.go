package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/platform/openai"
)

// Embedder turns semantic text into a fixed-length vector. The dimension is
// checked on every call so a model swap can never silently write vectors the
// index will reject later.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type embedder struct {
	log *logger.Logger
	ai  openai.Client
	dim int
}

func NewEmbedder(baseLog *logger.Logger, ai openai.Client, dim int) (Embedder, error) {
	if ai == nil {
		return nil, fmt.Errorf("services: openai client required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("services: embedding dimension must be positive, got %d", dim)
	}
	return &embedder{
		log: baseLog.With("service", "Embedder"),
		ai:  ai,
		dim: dim,
	}, nil
}

func (e *embedder) Dimension() int { return e.dim }

func (e *embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pipeErr(CodeValidation, "embed", "empty text", nil)
	}
	vectors, err := e.ai.Embed(ctx, []string{text})
	if err != nil {
		return nil, pipeErr(CodeCollaborator, "embed", "embedding request failed", err)
	}
	if len(vectors) != 1 {
		return nil, pipeErr(CodeCollaborator, "embed",
			fmt.Sprintf("expected 1 vector, got %d", len(vectors)), nil)
	}
	if len(vectors[0]) != e.dim {
		return nil, pipeErr(CodeCollaborator, "embed",
			fmt.Sprintf("embedding dimension mismatch: want=%d got=%d", e.dim, len(vectors[0])), nil)
	}
	return vectors[0], nil
}
