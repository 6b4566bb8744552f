package graph

import (
	"context"
	"fmt"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/semantic"
)

// AddRecordToGraph writes the ingest-time nodes and edges for one normalized
// record. A record with neither flow code nor error code carries nothing
// worth graphing and is skipped. Callers treat any returned error as
// non-fatal.
func AddRecordToGraph(ctx context.Context, store Store, log *logger.Logger, rec *domain.StructuredRecord, ticketID string) (bool, error) {
	if store == nil || rec == nil {
		return false, nil
	}

	flowCode := rec.FlowCode()
	errorCode := rec.ErrorCode()
	if flowCode == "" && errorCode == "" {
		if log != nil {
			log.Warn("graph write skipped: no flow_code or error_code in record")
		}
		return false, nil
	}

	var flowNode, errorNode, epNode, rcNode, ticketNode string

	if flowCode != "" {
		var props map[string]any
		if trigger := rec.TriggerType(); trigger != "" {
			props = map[string]any{"trigger_type": trigger}
		}
		id, err := store.UpsertNode(ctx, NodeFlowCode, flowCode, props)
		if err != nil {
			return false, fmt.Errorf("flow node: %w", err)
		}
		flowNode = id
	}

	if errorCode != "" {
		id, err := store.UpsertNode(ctx, NodeError, errorCode, nil)
		if err != nil {
			return false, fmt.Errorf("error node: %w", err)
		}
		errorNode = id
	}

	if endpoint := rec.EndpointName(); endpoint != "" {
		id, err := store.UpsertNode(ctx, NodeEndpoint, endpoint, nil)
		if err != nil {
			return false, fmt.Errorf("endpoint node: %w", err)
		}
		epNode = id
	}

	if rootCause := rec.RootCause(); rootCause != "" {
		id, err := store.UpsertNode(ctx, NodeRootCause, rootCause, nil)
		if err != nil {
			return false, fmt.Errorf("root cause node: %w", err)
		}
		rcNode = id
	}

	if ticketID != "" {
		short := semantic.ShortTicketID(ticketID)
		var props map[string]any
		if short != ticketID {
			props = map[string]any{"full_url": ticketID}
		}
		id, err := store.UpsertNode(ctx, NodeTicket, short, props)
		if err != nil {
			return false, fmt.Errorf("ticket node: %w", err)
		}
		ticketNode = id
	}

	type edge struct{ from, to, edgeType string }
	edges := []edge{
		{flowNode, errorNode, EdgeHadError},
		{errorNode, epNode, EdgeOnEndpoint},
		{errorNode, rcNode, EdgeHasRootCause},
		{flowNode, ticketNode, EdgeLoggedIn},
		// Mirrored ticket edges keep single-ticket insight reads scoped to
		// this ticket instead of traversing through a shared FlowCode node.
		{ticketNode, errorNode, EdgeHadError},
		{ticketNode, epNode, EdgeOnEndpoint},
		{ticketNode, rcNode, EdgeHasRootCause},
	}
	for _, e := range edges {
		if e.from == "" || e.to == "" {
			continue
		}
		if err := store.UpsertEdge(ctx, e.from, e.to, e.edgeType, nil); err != nil {
			return false, fmt.Errorf("edge %s-[%s]->%s: %w", e.from, e.edgeType, e.to, err)
		}
	}

	if log != nil {
		log.Info("record added to graph", "flow_code", flowCode, "ticket_id", ticketID)
	}
	return true, nil
}
