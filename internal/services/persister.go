package services

import (
	"context"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/graph"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/semantic"
)

// classificationEdge maps reranker classifications onto graph edge types.
// NOT_RELATED intentionally has no entry: it produces no edge.
var classificationEdge = map[string]string{
	domain.ClassificationExactDuplicate:   graph.EdgeDuplicateOf,
	domain.ClassificationSimilarRootCause: graph.EdgeRelatedTo,
	domain.ClassificationRelated:          graph.EdgeRelatedTo,
}

// RelationshipPersister writes classified ticket relationships into the
// graph. It never fails the caller: every problem is a logged warning.
type RelationshipPersister interface {
	Persist(ctx context.Context, queryTicketID string, matches []domain.SearchMatch)
}

type relationshipPersister struct {
	log   *logger.Logger
	graph graph.Store
}

func NewRelationshipPersister(baseLog *logger.Logger, graphStore graph.Store) RelationshipPersister {
	return &relationshipPersister{
		log:   baseLog.With("service", "RelationshipPersister"),
		graph: graphStore,
	}
}

func (p *relationshipPersister) Persist(ctx context.Context, queryTicketID string, matches []domain.SearchMatch) {
	if p.graph == nil {
		return
	}
	// A query that was never ingested has no ticket node to hang edges on.
	if queryTicketID == "" {
		p.log.Debug("relationship persistence skipped: query ticket unknown")
		return
	}

	from := graph.NodeID(graph.NodeTicket, semantic.ShortTicketID(queryTicketID))
	for _, m := range matches {
		if m.Classification == nil {
			continue
		}
		edgeType, ok := classificationEdge[*m.Classification]
		if !ok {
			continue
		}
		to := graph.NodeID(graph.NodeTicket, semantic.ShortTicketID(m.TicketID))
		if from == to {
			continue
		}
		props := map[string]any{"classification": *m.Classification}
		if m.Confidence != nil {
			props["confidence"] = *m.Confidence
		}
		if err := p.graph.UpsertEdge(ctx, from, to, edgeType, props); err != nil {
			p.log.Warn("relationship edge write failed",
				"from", from,
				"to", to,
				"edge_type", edgeType,
				"error", err,
			)
		}
	}
}
