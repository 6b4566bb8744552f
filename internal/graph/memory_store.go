package graph

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memoryNode struct {
	id         string
	nodeType   string
	value      string
	properties map[string]any
}

type memoryEdge struct {
	id         string
	from       string
	to         string
	edgeType   string
	properties map[string]any
}

// MemoryStore is the in-process graph backend. It serves both tests and
// deployments without a Neo4j instance, with the same upsert and traversal
// semantics as the Neo4j store.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*memoryNode
	edges []*memoryEdge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: map[string]*memoryNode{}}
}

func (s *MemoryStore) UpsertNode(ctx context.Context, nodeType, value string, properties map[string]any) (string, error) {
	nodeID := NodeID(nodeType, value)
	if len(value) > maxNodeValueLen {
		value = value[:maxNodeValueLen]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[nodeID]; !exists {
		s.nodes[nodeID] = &memoryNode{
			id:         nodeID,
			nodeType:   nodeType,
			value:      value,
			properties: cloneProps(properties),
		}
	}
	return nodeID, nil
}

func (s *MemoryStore) UpsertEdge(ctx context.Context, from, to, edgeType string, properties map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureNode(from)
	s.ensureNode(to)

	for _, e := range s.edges {
		if e.from == from && e.to == to && e.edgeType == edgeType {
			return nil
		}
	}
	s.edges = append(s.edges, &memoryEdge{
		id:         uuid.NewString(),
		from:       from,
		to:         to,
		edgeType:   edgeType,
		properties: cloneProps(properties),
	})
	return nil
}

func (s *MemoryStore) TraverseInsights(ctx context.Context, ticketNodeID string) (TicketInsights, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	insights := TicketInsights{}
	seen := map[string]struct{}{}
	for _, e := range s.edges {
		if e.from != ticketNodeID {
			continue
		}
		target, ok := s.nodes[e.to]
		if !ok || target.value == "" {
			continue
		}
		switch e.edgeType {
		case EdgeHasRootCause:
			if insights.RootCause == nil {
				rc := target.value
				insights.RootCause = &rc
			}
		case EdgeOnEndpoint:
			if _, dup := seen[target.value]; dup {
				continue
			}
			seen[target.value] = struct{}{}
			insights.Endpoints = append(insights.Endpoints, target.value)
		}
	}
	return insights, nil
}

func (s *MemoryStore) RecurrenceCount(ctx context.Context, flowNodeID, errorNodeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickets := map[string]struct{}{}
	for _, e1 := range s.edges {
		if e1.from != flowNodeID || e1.edgeType != EdgeLoggedIn {
			continue
		}
		if !strings.HasPrefix(e1.to, NodeTicket+":") {
			continue
		}
		for _, e2 := range s.edges {
			if e2.from == e1.to && e2.edgeType == EdgeHadError && e2.to == errorNodeID {
				tickets[e1.to] = struct{}{}
				break
			}
		}
	}
	return len(tickets), nil
}

func (s *MemoryStore) RelatedTickets(ctx context.Context, ticketNodeID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []string{}
	for _, e := range s.edges {
		if e.from != ticketNodeID {
			continue
		}
		if e.edgeType != EdgeDuplicateOf && e.edgeType != EdgeRelatedTo {
			continue
		}
		if target, ok := s.nodes[e.to]; ok && target.value != "" {
			out = append(out, target.value)
		}
	}
	return out, nil
}

// EdgeCount reports how many edges of edgeType exist between from and to.
func (s *MemoryStore) EdgeCount(from, to, edgeType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.edges {
		if e.from == from && e.to == to && e.edgeType == edgeType {
			n++
		}
	}
	return n
}

// EdgeProperties returns the properties written with the first matching edge.
func (s *MemoryStore) EdgeProperties(from, to, edgeType string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.edges {
		if e.from == from && e.to == to && e.edgeType == edgeType {
			return cloneProps(e.properties)
		}
	}
	return nil
}

// NodeCount reports the number of stored nodes.
func (s *MemoryStore) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// ensureNode materializes an edge endpoint that was never explicitly
// upserted. Caller holds the lock.
func (s *MemoryStore) ensureNode(id string) {
	if _, exists := s.nodes[id]; exists {
		return
	}
	nodeType, value := splitNodeID(id)
	s.nodes[id] = &memoryNode{id: id, nodeType: nodeType, value: value}
}

func cloneProps(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
