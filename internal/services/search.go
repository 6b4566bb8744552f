package services

import (
	"context"
	"math"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/graph"
	"github.com/promptlyai/loglens/internal/normalize"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/platform/qdrant"
	"github.com/promptlyai/loglens/internal/repos"
	"github.com/promptlyai/loglens/internal/semantic"
)

const summaryMaxLen = 150

// SearchService runs the full match-and-enrich pipeline: normalize, embed,
// retrieve, rerank, persist relationships, enrich with graph insights.
// Reranking and everything graph-related degrade gracefully; only the
// primary stages (normalize, embed, retrieve) can fail the request.
type SearchService interface {
	Search(ctx context.Context, rawLog []map[string]any, topN int) ([]domain.SearchMatch, error)
}

type searchService struct {
	log        *logger.Logger
	normalizer normalize.Normalizer
	embedder   Embedder
	vectors    qdrant.VectorStore
	records    repos.LogRecordRepo
	reranker   Reranker
	persister  RelationshipPersister
	graph      graph.Store
	defaultN   int
}

func NewSearchService(
	baseLog *logger.Logger,
	normalizer normalize.Normalizer,
	embedder Embedder,
	vectors qdrant.VectorStore,
	records repos.LogRecordRepo,
	reranker Reranker,
	persister RelationshipPersister,
	graphStore graph.Store,
	defaultTopN int,
) SearchService {
	if defaultTopN <= 0 {
		defaultTopN = 5
	}
	return &searchService{
		log:        baseLog.With("service", "SearchService"),
		normalizer: normalizer,
		embedder:   embedder,
		vectors:    vectors,
		records:    records,
		reranker:   reranker,
		persister:  persister,
		graph:      graphStore,
		defaultN:   defaultTopN,
	}
}

func (s *searchService) Search(ctx context.Context, rawLog []map[string]any, topN int) ([]domain.SearchMatch, error) {
	if len(rawLog) == 0 {
		return nil, pipeErr(CodeValidation, "search", "empty log payload", nil)
	}
	if topN <= 0 {
		topN = s.defaultN
	}

	rec, err := s.normalizer.Normalize(ctx, rawLog)
	if err != nil {
		return nil, pipeErr(CodeCollaborator, "search", "normalization failed", err)
	}
	semanticText, err := semantic.BuildFromStructured(rec)
	if err != nil {
		return nil, pipeErr(CodeValidation, "search", "record has no embeddable fields", err)
	}
	vector, err := s.embedder.EmbedText(ctx, semanticText)
	if err != nil {
		return nil, err
	}

	queryID := semantic.RecordID(semanticText)
	vectorMatches, err := s.vectors.QueryMatches(ctx, LogNamespace, vector, topN+1, nil)
	if err != nil {
		return nil, pipeErr(CodeRetrieval, "search", "vector retrieval failed", err)
	}

	matches, err := s.format(ctx, queryID, vectorMatches)
	if err != nil {
		return nil, pipeErr(CodeRetrieval, "search", "record hydration failed", err)
	}
	if len(matches) == 0 {
		return []domain.SearchMatch{}, nil
	}

	matches = s.reranker.Rerank(ctx, rec, matches)

	// Cut to topN before any graph work so candidates dropped from the
	// response never receive relationship edges or enrichment reads.
	if len(matches) > topN {
		matches = matches[:topN]
	}

	// Relationship persistence needs a ticket node for the query itself,
	// which only exists when this record has been ingested.
	s.persister.Persist(ctx, s.queryTicketID(ctx, queryID), matches)

	s.enrich(ctx, matches)

	return matches, nil
}

// format hydrates rows and shapes the response entries: similarity as a
// percentage, summaries truncated. The query's own record is excluded.
func (s *searchService) format(ctx context.Context, queryID string, vectorMatches []qdrant.VectorMatch) ([]domain.SearchMatch, error) {
	ids := make([]string, 0, len(vectorMatches))
	for _, m := range vectorMatches {
		if m.ID == queryID {
			continue
		}
		ids = append(ids, m.ID)
	}
	rows, err := s.records.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SearchMatch, 0, len(ids))
	for _, m := range vectorMatches {
		if m.ID == queryID {
			continue
		}
		row, ok := rows[m.ID]
		if !ok {
			s.log.Warn("vector match without a backing row", "log_id", m.ID)
			continue
		}
		out = append(out, domain.SearchMatch{
			TicketID:        row.TicketID,
			SimilarityScore: math.Round(m.Score*10000) / 100,
			FlowCode:        row.FlowCode,
			TriggerType:     row.TriggerType,
			ErrorCode:       row.ErrorCode,
			ErrorSummary:    truncate(row.ErrorSummary, summaryMaxLen),
			NormalizedJSON:  []byte(row.NormalizedJSON),
		})
	}
	return out, nil
}

func (s *searchService) queryTicketID(ctx context.Context, queryID string) string {
	rows, err := s.records.GetByIDs(ctx, nil, []string{queryID})
	if err != nil {
		s.log.Warn("query ticket lookup failed", "log_id", queryID, "error", err)
		return ""
	}
	if row, ok := rows[queryID]; ok {
		return row.TicketID
	}
	return ""
}

// enrich attaches graph-derived insights to each match. Failures leave the
// insights absent, never fail the search.
func (s *searchService) enrich(ctx context.Context, matches []domain.SearchMatch) {
	if s.graph == nil {
		return
	}
	for i := range matches {
		m := &matches[i]
		ticketNode := graph.NodeID(graph.NodeTicket, semantic.ShortTicketID(m.TicketID))

		insights := &domain.KGInsights{}
		ti, err := s.graph.TraverseInsights(ctx, ticketNode)
		if err != nil {
			s.log.Warn("insight traversal failed", "ticket", m.TicketID, "error", err)
			continue
		}
		insights.RootCause = ti.RootCause
		insights.Endpoints = ti.Endpoints

		if m.FlowCode != "" && m.ErrorCode != "" {
			count, err := s.graph.RecurrenceCount(ctx,
				graph.NodeID(graph.NodeFlowCode, m.FlowCode),
				graph.NodeID(graph.NodeError, m.ErrorCode),
			)
			if err != nil {
				s.log.Warn("recurrence count failed", "ticket", m.TicketID, "error", err)
			} else {
				insights.RecurrenceCount = count
			}
		}

		related, err := s.graph.RelatedTickets(ctx, ticketNode)
		if err != nil {
			s.log.Warn("related ticket lookup failed", "ticket", m.TicketID, "error", err)
		} else {
			insights.RelatedTickets = related
		}

		m.Insights = insights
	}
}
