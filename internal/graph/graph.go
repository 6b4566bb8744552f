package graph

import (
	"context"
	"strings"
)

// Node types.
const (
	NodeFlowCode  = "FlowCode"
	NodeError     = "Error"
	NodeEndpoint  = "Endpoint"
	NodeRootCause = "RootCause"
	NodeTicket    = "Ticket"
)

// Edge types.
const (
	EdgeHadError     = "HAD_ERROR"
	EdgeOnEndpoint   = "ON_ENDPOINT"
	EdgeHasRootCause = "HAS_ROOT_CAUSE"
	EdgeLoggedIn     = "LOGGED_IN"
	EdgeDuplicateOf  = "DUPLICATE_OF"
	EdgeRelatedTo    = "RELATED_TO"
	EdgeFixedBy      = "FIXED_BY"
)

const (
	maxNodeIDLen    = 200
	maxNodeValueLen = 500
)

// TicketInsights is the single-hop read result for one ticket node, scoped
// strictly to that ticket's own edges.
type TicketInsights struct {
	RootCause *string
	Endpoints []string
}

// Store is the typed knowledge-graph surface. Nodes are immutable once
// created; re-observing the same (type, value) is a no-op. At most one edge
// of a given type exists per ordered node pair, and a later upsert never
// updates an existing edge's properties.
type Store interface {
	UpsertNode(ctx context.Context, nodeType, value string, properties map[string]any) (string, error)
	UpsertEdge(ctx context.Context, from, to, edgeType string, properties map[string]any) error
	TraverseInsights(ctx context.Context, ticketNodeID string) (TicketInsights, error)
	RecurrenceCount(ctx context.Context, flowNodeID, errorNodeID string) (int, error)
	RelatedTickets(ctx context.Context, ticketNodeID string) ([]string, error)
}

// NodeID computes the composite node id "type:value", value truncated to 500
// and the whole id to 200.
func NodeID(nodeType, value string) string {
	if len(value) > maxNodeValueLen {
		value = value[:maxNodeValueLen]
	}
	id := nodeType + ":" + value
	if len(id) > maxNodeIDLen {
		id = id[:maxNodeIDLen]
	}
	return id
}

// splitNodeID recovers (type, value) from a composite id so edge writes can
// materialize endpoint nodes that were never explicitly upserted.
func splitNodeID(id string) (string, string) {
	if idx := strings.Index(id, ":"); idx >= 0 {
		return id[:idx], id[idx+1:]
	}
	return "", id
}
