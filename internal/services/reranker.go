package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/platform/openai"
	"github.com/promptlyai/loglens/internal/semantic"
)

const rerankSystemPrompt = `You are an expert at analyzing Oracle Integration Cloud (OIC) error logs and determining if errors are duplicates or related issues.

Your task is to analyze a query log and a list of candidate similar logs, then classify each candidate and provide reasoning.

Classification categories:
- EXACT_DUPLICATE (90-100% match): Same root cause, same error, same fix applicable
- SIMILAR_ROOT_CAUSE (70-89% match): Same underlying issue, solution likely transferable
- RELATED (50-69% match): Some overlap, may provide useful context
- NOT_RELATED (0-49% match): Different issues, not helpful

Focus on:
1. Root cause analysis (not just error codes)
2. Error patterns and chains
3. Business context (workflow, endpoint, integration)
4. Whether the same fix would apply

Return your analysis as JSON only, no markdown, no preamble.`

const rerankUserPrompt = `Query Log (New Error):
%s

Candidate Similar Logs:
%s

Analyze each candidate and return as a JSON object with this structure:
{
  "results": [
    {
      "ticket_id": "OLL-XXX",
      "rank": 1,
      "classification": "EXACT_DUPLICATE",
      "confidence": 95,
      "reasoning": "Brief explanation why"
    }
  ]
}

Order by rank (1 = best match). Include all candidates.
Classification must be one of: EXACT_DUPLICATE, SIMILAR_ROOT_CAUSE, RELATED, NOT_RELATED`

func rerankResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"results": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"ticket_id": map[string]any{
							"type":        "string",
							"description": "Ticket ID (e.g., OLL-4FF0674A)",
						},
						"rank": map[string]any{
							"type":        "integer",
							"description": "Ranking position (1 = best match)",
							"minimum":     1,
						},
						"classification": map[string]any{
							"type": "string",
							"enum": []string{
								domain.ClassificationExactDuplicate,
								domain.ClassificationSimilarRootCause,
								domain.ClassificationRelated,
								domain.ClassificationNotRelated,
							},
							"description": "Classification category",
						},
						"confidence": map[string]any{
							"type":        "integer",
							"description": "Confidence score 0-100",
							"minimum":     0,
							"maximum":     100,
						},
						"reasoning": map[string]any{
							"type":        "string",
							"description": "Brief explanation of classification",
						},
					},
					"required":             []string{"ticket_id", "rank", "classification", "confidence", "reasoning"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"results"},
		"additionalProperties": false,
	}
}

// Reranker reorders and classifies similarity candidates with richer context
// than raw vector distance. It never fails the caller: any model error
// degrades to the original similarity-ranked list.
type Reranker interface {
	Rerank(ctx context.Context, query *domain.StructuredRecord, candidates []domain.SearchMatch) []domain.SearchMatch
}

type reranker struct {
	log *logger.Logger
	ai  openai.Client
}

func NewReranker(baseLog *logger.Logger, ai openai.Client) Reranker {
	return &reranker{
		log: baseLog.With("service", "Reranker"),
		ai:  ai,
	}
}

func (r *reranker) Rerank(ctx context.Context, query *domain.StructuredRecord, candidates []domain.SearchMatch) []domain.SearchMatch {
	if len(candidates) == 0 {
		return candidates
	}
	if r.ai == nil {
		return candidates
	}

	user := fmt.Sprintf(rerankUserPrompt, querySummary(query), candidateBlocks(candidates))
	obj, err := r.ai.GenerateJSON(ctx, rerankSystemPrompt, user, "rerank_results", rerankResponseSchema())
	if err != nil {
		r.log.Warn("rerank degraded to similarity order", "error", err, "candidates", len(candidates))
		return candidates
	}

	ranked, err := mergeRerankResults(r.log, obj, candidates)
	if err != nil {
		r.log.Warn("rerank degraded to similarity order", "error", err, "candidates", len(candidates))
		return candidates
	}
	return ranked
}

func querySummary(query *domain.StructuredRecord) string {
	return strings.TrimSpace(fmt.Sprintf(`Flow: %s
Trigger: %s
Error Code: %s
Error Summary: %s
Root Cause: %s`,
		orNA(query.FlowCode()),
		orNA(query.TriggerType()),
		orNA(query.ErrorCode()),
		orNA(truncate(query.ErrorSummary(), 200)),
		orNA(query.RootCause()),
	))
}

func candidateBlocks(candidates []domain.SearchMatch) string {
	var b strings.Builder
	for i, c := range candidates {
		rootCause := "N/A"
		if len(c.NormalizedJSON) > 0 {
			var rec domain.StructuredRecord
			if err := json.Unmarshal(c.NormalizedJSON, &rec); err == nil {
				rootCause = orNA(rec.RootCause())
			}
		}
		fmt.Fprintf(&b, `Candidate %d:
  Ticket ID: %s
  Similarity: %.2f%%
  Flow: %s
  Trigger: %s
  Error Code: %s
  Error Summary: %s
  Root Cause: %s

`,
			i+1,
			orNA(c.TicketID),
			c.SimilarityScore,
			orNA(c.FlowCode),
			orNA(c.TriggerType),
			orNA(c.ErrorCode),
			orNA(truncate(c.ErrorSummary, 200)),
			rootCause,
		)
	}
	return strings.TrimSpace(b.String())
}

type rerankResult struct {
	TicketID       string `json:"ticket_id"`
	Rank           int    `json:"rank"`
	Classification string `json:"classification"`
	Confidence     int    `json:"confidence"`
	Reasoning      string `json:"reasoning"`
}

// mergeRerankResults joins model output back onto the original candidates by
// ticket id, tolerating both the full id (or URL) and the short suffix form.
// Ids the model invented are dropped with a warning, never synthesized into
// results. Output is sorted ascending by rank.
func mergeRerankResults(log *logger.Logger, obj map[string]any, candidates []domain.SearchMatch) ([]domain.SearchMatch, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode rerank payload: %w", err)
	}
	var payload struct {
		Results []rerankResult `json:"results"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode rerank payload: %w", err)
	}
	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("rerank returned no results")
	}

	byID := make(map[string]int, 2*len(candidates))
	for i, c := range candidates {
		byID[c.TicketID] = i
		byID[semantic.ShortTicketID(c.TicketID)] = i
	}

	type rankedEntry struct {
		match domain.SearchMatch
		rank  int
	}
	seen := make(map[int]bool, len(candidates))
	ranked := make([]rankedEntry, 0, len(payload.Results))
	for _, res := range payload.Results {
		idx, ok := byID[res.TicketID]
		if !ok {
			idx, ok = byID[semantic.ShortTicketID(res.TicketID)]
		}
		if !ok {
			log.Warn("rerank returned unknown ticket id", "ticket_id", res.TicketID)
			continue
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true

		match := candidates[idx]
		rank := res.Rank
		classification := res.Classification
		confidence := res.Confidence
		reasoning := res.Reasoning
		match.Rank = &rank
		match.Classification = &classification
		match.Confidence = &confidence
		match.Reasoning = &reasoning
		ranked = append(ranked, rankedEntry{match: match, rank: rank})
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("rerank matched no known candidates")
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].rank < ranked[j].rank })
	out := make([]domain.SearchMatch, len(ranked))
	for i, e := range ranked {
		out[i] = e.match
	}
	return out, nil
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
