package services

import (
	"context"
	"errors"
	"testing"
)

func TestEmbedTextReturnsVector(t *testing.T) {
	ai := &fakeAI{embedVec: []float32{0.1, 0.2, 0.3}}
	e, err := NewEmbedder(newTestLogger(t), ai, 3)
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	vec, err := e.EmbedText(context.Background(), "flow: ORDER_SYNC")
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("vector length: want=3 got=%d", len(vec))
	}
	if e.Dimension() != 3 {
		t.Fatalf("dimension: got=%d", e.Dimension())
	}
}

func TestEmbedTextDimensionMismatch(t *testing.T) {
	ai := &fakeAI{embedVec: []float32{0.1, 0.2}}
	e, err := NewEmbedder(newTestLogger(t), ai, 3)
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	_, err = e.EmbedText(context.Background(), "text")
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	if CodeOf(err) != CodeCollaborator {
		t.Fatalf("failure code: want=%s got=%s", CodeCollaborator, CodeOf(err))
	}
}

func TestEmbedTextEmptyInput(t *testing.T) {
	e, err := NewEmbedder(newTestLogger(t), &fakeAI{embedVec: []float32{0.1}}, 1)
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	if _, err := e.EmbedText(context.Background(), "   "); err == nil || CodeOf(err) != CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestEmbedTextCollaboratorFailure(t *testing.T) {
	ai := &fakeAI{embedErr: errors.New("unreachable")}
	e, err := NewEmbedder(newTestLogger(t), ai, 3)
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	if _, err := e.EmbedText(context.Background(), "text"); err == nil || CodeOf(err) != CodeCollaborator {
		t.Fatalf("want collaborator failure, got %v", err)
	}
}
