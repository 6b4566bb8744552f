package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/promptlyai/loglens/internal/observability"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/platform/neo4jdb"
)

type neo4jStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

// NewNeo4jStore wires the graph onto a Neo4j client. Returns (nil, nil) for a
// nil client so callers can treat the graph as absent.
func NewNeo4jStore(log *logger.Logger, client *neo4jdb.Client) (Store, error) {
	if client == nil || client.Driver == nil {
		return nil, nil
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	s := &neo4jStore{
		client: client,
		log:    log.With("service", "Neo4jGraphStore"),
	}
	s.initSchema(context.Background())
	return s, nil
}

// Best-effort schema init, matching how the rest of the stack treats graph
// availability as optional.
func (s *neo4jStore) initSchema(ctx context.Context) {
	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT graph_node_id_unique IF NOT EXISTS FOR (n:GraphNode) REQUIRE n.id IS UNIQUE`,
		`CREATE INDEX graph_node_type_idx IF NOT EXISTS FOR (n:GraphNode) ON (n.type)`,
	}
	for _, q := range stmts {
		if res, err := session.Run(ctx, q, nil); err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func (s *neo4jStore) UpsertNode(ctx context.Context, nodeType, value string, properties map[string]any) (string, error) {
	nodeID := NodeID(nodeType, value)
	if len(value) > maxNodeValueLen {
		value = value[:maxNodeValueLen]
	}

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (n:GraphNode {id: $id})
ON CREATE SET n.type = $type,
              n.value = $value,
              n.properties_json = $props,
              n.created_at = $now
`, map[string]any{
			"id":    nodeID,
			"type":  nodeType,
			"value": value,
			"props": encodeProps(properties),
			"now":   time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	observability.Current().ObserveGraphWrite("node", writeStatus(err))
	if err != nil {
		return "", fmt.Errorf("graph: upsert node %s: %w", nodeID, err)
	}
	return nodeID, nil
}

func (s *neo4jStore) UpsertEdge(ctx context.Context, from, to, edgeType string, properties map[string]any) error {
	fromType, fromValue := splitNodeID(from)
	toType, toValue := splitNodeID(to)

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Endpoints of a relationship write may not have been upserted yet
		// (relationship persistence references tickets by id only).
		res, err := tx.Run(ctx, `
MERGE (a:GraphNode {id: $from})
ON CREATE SET a.type = $from_type, a.value = $from_value, a.created_at = $now
MERGE (b:GraphNode {id: $to})
ON CREATE SET b.type = $to_type, b.value = $to_value, b.created_at = $now
WITH a, b
OPTIONAL MATCH (a)-[existing:REL {type: $edge_type}]->(b)
WITH a, b, existing
WHERE existing IS NULL
CREATE (a)-[:REL {id: $edge_id, type: $edge_type, properties_json: $props, created_at: $now}]->(b)
`, map[string]any{
			"from":       from,
			"from_type":  fromType,
			"from_value": fromValue,
			"to":         to,
			"to_type":    toType,
			"to_value":   toValue,
			"edge_type":  edgeType,
			"edge_id":    uuid.NewString(),
			"props":      encodeProps(properties),
			"now":        time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	observability.Current().ObserveGraphWrite("edge", writeStatus(err))
	if err != nil {
		return fmt.Errorf("graph: upsert edge %s-[%s]->%s: %w", from, edgeType, to, err)
	}
	return nil
}

func (s *neo4jStore) TraverseInsights(ctx context.Context, ticketNodeID string) (TicketInsights, error) {
	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (t:GraphNode {id: $ticket})-[r:REL]->(n:GraphNode)
WHERE r.type IN ['ON_ENDPOINT', 'HAS_ROOT_CAUSE']
RETURN n.value AS value, r.type AS edge_type
`, map[string]any{"ticket": ticketNodeID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		insights := TicketInsights{}
		seen := map[string]struct{}{}
		for _, rec := range records {
			value, _ := rec.Get("value")
			edgeType, _ := rec.Get("edge_type")
			v, _ := value.(string)
			switch edgeType {
			case EdgeHasRootCause:
				if insights.RootCause == nil && v != "" {
					rc := v
					insights.RootCause = &rc
				}
			case EdgeOnEndpoint:
				if v == "" {
					continue
				}
				if _, ok := seen[v]; ok {
					continue
				}
				seen[v] = struct{}{}
				insights.Endpoints = append(insights.Endpoints, v)
			}
		}
		return insights, nil
	})
	if err != nil {
		return TicketInsights{}, fmt.Errorf("graph: traverse insights for %s: %w", ticketNodeID, err)
	}
	return out.(TicketInsights), nil
}

func (s *neo4jStore) RecurrenceCount(ctx context.Context, flowNodeID, errorNodeID string) (int, error) {
	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (f:GraphNode {id: $flow})-[r1:REL {type: 'LOGGED_IN'}]->(t:GraphNode)-[r2:REL {type: 'HAD_ERROR'}]->(e:GraphNode {id: $error})
WHERE t.id STARTS WITH 'Ticket:'
RETURN count(DISTINCT t) AS n
`, map[string]any{"flow": flowNodeID, "error": errorNodeID})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := rec.Get("n")
		count, _ := n.(int64)
		return int(count), nil
	})
	if err != nil {
		return 0, fmt.Errorf("graph: recurrence count for %s/%s: %w", flowNodeID, errorNodeID, err)
	}
	return out.(int), nil
}

func (s *neo4jStore) RelatedTickets(ctx context.Context, ticketNodeID string) ([]string, error) {
	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (t:GraphNode {id: $ticket})-[r:REL]->(n:GraphNode)
WHERE r.type IN ['DUPLICATE_OF', 'RELATED_TO']
RETURN n.value AS value
`, map[string]any{"ticket": ticketNodeID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		tickets := make([]string, 0, len(records))
		for _, rec := range records {
			value, _ := rec.Get("value")
			if v, ok := value.(string); ok && v != "" {
				tickets = append(tickets, v)
			}
		}
		return tickets, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph: related tickets for %s: %w", ticketNodeID, err)
	}
	return out.([]string), nil
}

func encodeProps(properties map[string]any) string {
	if len(properties) == 0 {
		return ""
	}
	raw, err := json.Marshal(properties)
	if err != nil {
		return ""
	}
	return string(raw)
}

func writeStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
