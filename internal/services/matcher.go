package services

import (
	"context"
	"fmt"
	"time"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/normalize"
	"github.com/promptlyai/loglens/internal/observability"
	"github.com/promptlyai/loglens/internal/platform/envutil"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/platform/qdrant"
	"github.com/promptlyai/loglens/internal/repos"
	"github.com/promptlyai/loglens/internal/semantic"
)

// LogNamespace is the vector-store namespace for ingested log records.
const LogNamespace = "logs"

type MatchConfig struct {
	ThresholdKnown   float64
	ThresholdRelated float64
	DefaultTopK      int
	MinSimilarity    float64
}

func ResolveMatchConfigFromEnv() MatchConfig {
	return MatchConfig{
		ThresholdKnown:   envutil.Float("MATCH_THRESHOLD_KNOWN", 0.90),
		ThresholdRelated: envutil.Float("MATCH_THRESHOLD_RELATED", 0.75),
		DefaultTopK:      envutil.Int("MATCH_TOP_K", 5),
		MinSimilarity:    envutil.Float("MATCH_MIN_SIMILARITY", 0.0),
	}
}

func ValidateMatchConfig(cfg MatchConfig) error {
	if cfg.ThresholdRelated < 0 || cfg.ThresholdKnown > 1 || cfg.ThresholdRelated >= cfg.ThresholdKnown {
		return fmt.Errorf("services: thresholds must satisfy 0 <= related < known <= 1, got related=%v known=%v",
			cfg.ThresholdRelated, cfg.ThresholdKnown)
	}
	if cfg.DefaultTopK <= 0 {
		return fmt.Errorf("services: default top_k must be positive, got %d", cfg.DefaultTopK)
	}
	return nil
}

// classify maps a similarity score onto a match status. Strictly-greater
// comparisons keep scores exactly at a threshold in the lower bucket.
func classify(similarity float64, cfg MatchConfig) domain.MatchStatus {
	switch {
	case similarity > cfg.ThresholdKnown:
		return domain.MatchStatusKnown
	case similarity > cfg.ThresholdRelated:
		return domain.MatchStatusRelated
	default:
		return domain.MatchStatusNew
	}
}

// MatchService classifies how confidently a query matches history.
type MatchService interface {
	MatchText(ctx context.Context, text string, topK int) (*domain.MatchDecision, error)
	MatchAttributes(ctx context.Context, log map[string]any, topK int) (*domain.MatchDecision, error)
	MatchRecord(ctx context.Context, rawLog []map[string]any, topK int) (*domain.MatchDecision, error)
	Decide(ctx context.Context, vector []float32, semanticText string, topK int) (*domain.MatchDecision, error)
}

type matchService struct {
	log        *logger.Logger
	cfg        MatchConfig
	vectors    qdrant.VectorStore
	records    repos.LogRecordRepo
	embedder   Embedder
	normalizer normalize.Normalizer
}

func NewMatchService(
	baseLog *logger.Logger,
	cfg MatchConfig,
	vectors qdrant.VectorStore,
	records repos.LogRecordRepo,
	embedder Embedder,
	normalizer normalize.Normalizer,
) (MatchService, error) {
	if err := ValidateMatchConfig(cfg); err != nil {
		return nil, err
	}
	return &matchService{
		log:        baseLog.With("service", "MatchService"),
		cfg:        cfg,
		vectors:    vectors,
		records:    records,
		embedder:   embedder,
		normalizer: normalizer,
	}, nil
}

func (s *matchService) MatchText(ctx context.Context, text string, topK int) (*domain.MatchDecision, error) {
	semanticText, err := semantic.Passthrough(text)
	if err != nil {
		return nil, pipeErr(CodeValidation, "match", "empty query text", err)
	}
	vector, err := s.embedder.EmbedText(ctx, semanticText)
	if err != nil {
		return nil, err
	}
	return s.Decide(ctx, vector, semanticText, topK)
}

// MatchAttributes matches a single flat attribute map without an LLM round
// trip: the alias tables project it straight to semantic text.
func (s *matchService) MatchAttributes(ctx context.Context, log map[string]any, topK int) (*domain.MatchDecision, error) {
	if len(log) == 0 {
		return nil, pipeErr(CodeValidation, "match", "empty log payload", nil)
	}
	semanticText, err := semantic.BuildFromAttributes(log)
	if err != nil {
		return nil, pipeErr(CodeValidation, "match", "log has no recognizable fields", err)
	}
	vector, err := s.embedder.EmbedText(ctx, semanticText)
	if err != nil {
		return nil, err
	}
	return s.Decide(ctx, vector, semanticText, topK)
}

func (s *matchService) MatchRecord(ctx context.Context, rawLog []map[string]any, topK int) (*domain.MatchDecision, error) {
	if len(rawLog) == 0 {
		return nil, pipeErr(CodeValidation, "match", "empty log payload", nil)
	}
	rec, err := s.normalizer.Normalize(ctx, rawLog)
	if err != nil {
		return nil, pipeErr(CodeCollaborator, "match", "normalization failed", err)
	}
	semanticText, err := semantic.BuildFromStructured(rec)
	if err != nil {
		return nil, pipeErr(CodeValidation, "match", "record has no embeddable fields", err)
	}
	vector, err := s.embedder.EmbedText(ctx, semanticText)
	if err != nil {
		return nil, err
	}
	return s.Decide(ctx, vector, semanticText, topK)
}

func (s *matchService) Decide(ctx context.Context, vector []float32, semanticText string, topK int) (*domain.MatchDecision, error) {
	start := time.Now()
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}

	matches, err := s.vectors.QueryMatches(ctx, LogNamespace, vector, topK, nil)
	if err != nil {
		return nil, pipeErr(CodeRetrieval, "match", "vector retrieval failed", err)
	}

	results, err := s.hydrate(ctx, matches)
	if err != nil {
		return nil, pipeErr(CodeRetrieval, "match", "record hydration failed", err)
	}

	decision := &domain.MatchDecision{
		Status:       domain.MatchStatusEmpty,
		Alternatives: []domain.SearchResult{},
		SemanticText: semanticText,
	}
	if len(results) > 0 {
		decision.TopMatch = &results[0]
		decision.Similarity = results[0].Similarity
		decision.Alternatives = results[1:]
		decision.Status = classify(decision.Similarity, s.cfg)
	}
	decision.DurationMS = float64(time.Since(start).Microseconds()) / 1000.0

	if metrics := observability.Current(); metrics != nil {
		metrics.ObserveMatchDecision(string(decision.Status))
	}
	s.log.Debug("match decision",
		"status", decision.Status,
		"similarity", decision.Similarity,
		"candidates", len(results),
		"duration_ms", decision.DurationMS,
	)
	return decision, nil
}

// hydrate joins vector matches with their rows. Matches below the similarity
// floor and ids without a row are dropped; ordering follows descending score.
func (s *matchService) hydrate(ctx context.Context, matches []qdrant.VectorMatch) ([]domain.SearchResult, error) {
	kept := make([]qdrant.VectorMatch, 0, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Score < s.cfg.MinSimilarity {
			continue
		}
		kept = append(kept, m)
		ids = append(ids, m.ID)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	rows, err := s.records.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SearchResult, 0, len(kept))
	for _, m := range kept {
		row, ok := rows[m.ID]
		if !ok {
			s.log.Warn("vector match without a backing row", "log_id", m.ID)
			continue
		}
		out = append(out, domain.SearchResult{
			LogID:        row.LogID,
			TicketID:     row.TicketID,
			Similarity:   m.Score,
			FlowCode:     row.FlowCode,
			TriggerType:  row.TriggerType,
			ActionName:   row.ActionName,
			ErrorLevel:   row.ErrorLevel,
			ErrorCode:    row.ErrorCode,
			ErrorSummary: row.ErrorSummary,
			SemanticText: row.SemanticText,
			EventTime:    row.EventTime,
		})
	}
	return out, nil
}
