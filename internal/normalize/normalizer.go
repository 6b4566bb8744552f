package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/platform/openai"
)

// Normalizer turns a raw OIC log (JSON array of activity objects) into the
// fixed structured schema. The pipeline depends on this interface so tests
// can fake the model.
type Normalizer interface {
	Normalize(ctx context.Context, rawLog []map[string]any) (*domain.StructuredRecord, error)
}

type llmNormalizer struct {
	log *logger.Logger
	ai  openai.Client
}

func NewNormalizer(log *logger.Logger, ai openai.Client) (Normalizer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	return &llmNormalizer{
		log: log.With("service", "Normalizer"),
		ai:  ai,
	}, nil
}

func (n *llmNormalizer) Normalize(ctx context.Context, rawLog []map[string]any) (*domain.StructuredRecord, error) {
	if len(rawLog) == 0 {
		return nil, fmt.Errorf("normalize: raw log is empty")
	}

	rawJSON, err := json.Marshal(rawLog)
	if err != nil {
		return nil, fmt.Errorf("normalize: encode raw log: %w", err)
	}

	text, err := n.ai.GenerateText(ctx, normalizationSystemPrompt, normalizationUserPrompt(string(rawJSON)))
	if err != nil {
		return nil, fmt.Errorf("normalize: model call failed: %w", err)
	}

	rec, err := parseNormalized(text)
	if err != nil {
		return nil, err
	}

	n.log.Debug("log normalized",
		"log_type", rec.LogType,
		"flow_code", rec.FlowCode(),
		"error_code", rec.ErrorCode(),
	)
	return rec, nil
}

func parseNormalized(text string) (*domain.StructuredRecord, error) {
	cleaned := stripCodeFences(text)
	if cleaned == "" {
		return nil, fmt.Errorf("normalize: model returned empty output")
	}

	var rec domain.StructuredRecord
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return nil, fmt.Errorf("normalize: parse model output: %w", err)
	}

	switch rec.LogType {
	case domain.LogTypeError, domain.LogTypeInformational:
	default:
		return nil, fmt.Errorf("normalize: unexpected log_type %q", rec.LogType)
	}
	if rec.LogType == domain.LogTypeError && rec.Error == nil {
		return nil, fmt.Errorf("normalize: error log missing error block")
	}
	return &rec, nil
}

// Models occasionally fence the JSON despite rule 10.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
