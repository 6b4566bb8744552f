package graph

import (
	"context"
	"testing"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/platform/logger"
)

func strPtr(s string) *string { return &s }

func errorRecord() *domain.StructuredRecord {
	return &domain.StructuredRecord{
		LogType: domain.LogTypeError,
		Flow: domain.FlowInfo{
			Code:        strPtr("ORDER_SYNC"),
			TriggerType: strPtr("rest"),
		},
		Error: &domain.ErrorDetail{
			Code:         strPtr("OSB-382500"),
			EndpointName: strPtr("createOrder"),
			MessageParsed: domain.ParsedMessage{
				RootCause: strPtr("connection refused"),
			},
		},
	}
}

func newWriterTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func TestAddRecordToGraphWritesNodesAndEdges(t *testing.T) {
	s := NewMemoryStore()
	log := newWriterTestLogger(t)

	added, err := AddRecordToGraph(context.Background(), s, log, errorRecord(),
		"https://promptlyai.atlassian.net/browse/OLL-4FF0674A")
	if err != nil {
		t.Fatalf("AddRecordToGraph: %v", err)
	}
	if !added {
		t.Fatalf("expected record to be added to graph")
	}
	if got := s.NodeCount(); got != 5 {
		t.Fatalf("node count: want=5 got=%d", got)
	}

	flow := NodeID(NodeFlowCode, "ORDER_SYNC")
	errNode := NodeID(NodeError, "OSB-382500")
	endpoint := NodeID(NodeEndpoint, "createOrder")
	rootCause := NodeID(NodeRootCause, "connection refused")
	ticket := NodeID(NodeTicket, "OLL-4FF0674A")

	for _, e := range []struct{ from, to, typ string }{
		{flow, errNode, EdgeHadError},
		{errNode, endpoint, EdgeOnEndpoint},
		{errNode, rootCause, EdgeHasRootCause},
		{flow, ticket, EdgeLoggedIn},
		{ticket, errNode, EdgeHadError},
		{ticket, endpoint, EdgeOnEndpoint},
		{ticket, rootCause, EdgeHasRootCause},
	} {
		if n := s.EdgeCount(e.from, e.to, e.typ); n != 1 {
			t.Fatalf("edge %s -[%s]-> %s: want=1 got=%d", e.from, e.typ, e.to, n)
		}
	}

	// The ticket insights must come back through the mirrored edges.
	insights, err := s.TraverseInsights(context.Background(), ticket)
	if err != nil {
		t.Fatalf("TraverseInsights: %v", err)
	}
	if insights.RootCause == nil || *insights.RootCause != "connection refused" {
		t.Fatalf("root cause: got=%v", insights.RootCause)
	}
	if len(insights.Endpoints) != 1 || insights.Endpoints[0] != "createOrder" {
		t.Fatalf("endpoints: got=%v", insights.Endpoints)
	}
}

func TestAddRecordToGraphIdempotent(t *testing.T) {
	s := NewMemoryStore()
	log := newWriterTestLogger(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := AddRecordToGraph(ctx, s, log, errorRecord(), "OLL-4FF0674A"); err != nil {
			t.Fatalf("AddRecordToGraph: %v", err)
		}
	}
	if got := s.NodeCount(); got != 5 {
		t.Fatalf("node count after replay: want=5 got=%d", got)
	}
	flow := NodeID(NodeFlowCode, "ORDER_SYNC")
	errNode := NodeID(NodeError, "OSB-382500")
	if n := s.EdgeCount(flow, errNode, EdgeHadError); n != 1 {
		t.Fatalf("edge count after replay: want=1 got=%d", n)
	}
}

func TestAddRecordToGraphSkipsUnidentifiableRecord(t *testing.T) {
	s := NewMemoryStore()
	log := newWriterTestLogger(t)

	rec := &domain.StructuredRecord{LogType: domain.LogTypeError}
	added, err := AddRecordToGraph(context.Background(), s, log, rec, "OLL-A")
	if err != nil {
		t.Fatalf("AddRecordToGraph: %v", err)
	}
	if added {
		t.Fatalf("expected unidentifiable record to be skipped")
	}
	if got := s.NodeCount(); got != 0 {
		t.Fatalf("node count: want=0 got=%d", got)
	}
}

func TestAddRecordToGraphNilStore(t *testing.T) {
	log := newWriterTestLogger(t)
	added, err := AddRecordToGraph(context.Background(), nil, log, errorRecord(), "OLL-A")
	if err != nil {
		t.Fatalf("AddRecordToGraph: %v", err)
	}
	if added {
		t.Fatalf("nil store must be a no-op")
	}
}
