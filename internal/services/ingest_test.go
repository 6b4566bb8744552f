package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/promptlyai/loglens/internal/graph"
)

func sampleRawLog() []map[string]any {
	return []map[string]any{
		{"message": "CASDK-0005: Unable to invoke endpoint", "flowCode": "ORDER_SYNC"},
	}
}

func newTestIngest(t *testing.T, repo *fakeRecordRepo, vectors *fakeVectorStore, g graph.Store) IngestService {
	t.Helper()
	return NewIngestService(
		newTestLogger(t),
		&fakeNormalizer{rec: structuredError("ORDER_SYNC", "OSB-382500", "connection refused", "gateway down")},
		&fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}},
		vectors,
		repo,
		g,
	)
}

func TestIngestStoresVectorRowAndGraph(t *testing.T) {
	repo := newFakeRecordRepo()
	vectors := &fakeVectorStore{}
	g := graph.NewMemoryStore()

	result, err := newTestIngest(t, repo, vectors, g).Ingest(context.Background(), sampleRawLog())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !strings.HasPrefix(result.LogID, "LOG-") || len(result.LogID) != 20 {
		t.Fatalf("log id shape: got=%s", result.LogID)
	}
	if !strings.HasPrefix(result.TicketID, "https://promptlyai.atlassian.net/browse/OLL-") {
		t.Fatalf("ticket id shape: got=%s", result.TicketID)
	}

	if vectors.upsertedNS != LogNamespace || len(vectors.upserted) != 1 {
		t.Fatalf("vector upsert: ns=%s n=%d", vectors.upsertedNS, len(vectors.upserted))
	}
	if vectors.upserted[0].ID != result.LogID {
		t.Fatalf("point id: want=%s got=%s", result.LogID, vectors.upserted[0].ID)
	}

	row, ok := repo.rows[result.LogID]
	if !ok {
		t.Fatalf("row not merged")
	}
	if row.TicketID != result.TicketID || row.FlowCode != "ORDER_SYNC" || row.ErrorCode != "OSB-382500" {
		t.Fatalf("row fields: %+v", row)
	}
	if row.SemanticText == "" || row.EmbeddingDim != 3 {
		t.Fatalf("row semantics: text=%q dim=%d", row.SemanticText, row.EmbeddingDim)
	}

	if g.NodeCount() == 0 {
		t.Fatalf("graph write skipped on a fully identified record")
	}
}

func TestIngestCapturesAttributeBag(t *testing.T) {
	repo := newFakeRecordRepo()
	raw := []map[string]any{
		{"flow_code": "ORDER_SYNC", "error": "connection refused", "retry_count": 3},
		{"order_id": "ORD-1138", "payload": "opaque blob"},
	}

	result, err := newTestIngest(t, repo, &fakeVectorStore{}, graph.NewMemoryStore()).
		Ingest(context.Background(), raw)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	row := repo.rows[result.LogID]
	if row == nil || row.Attributes == nil {
		t.Fatalf("attribute bag not stored")
	}
	var bag map[string]string
	if err := json.Unmarshal(row.Attributes, &bag); err != nil {
		t.Fatalf("decode attributes: %v", err)
	}
	want := map[string]string{
		"flow_code":     "ORDER_SYNC",
		"error_message": "connection refused",
		"business_key":  "ORD-1138",
	}
	if len(bag) != len(want) {
		t.Fatalf("attribute bag: want=%v got=%v", want, bag)
	}
	for k, v := range want {
		if bag[k] != v {
			t.Fatalf("attribute %s: want=%q got=%q", k, v, bag[k])
		}
	}
}

func TestIngestRejectsDuplicate(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestIngest(t, repo, &fakeVectorStore{}, graph.NewMemoryStore())
	raw := sampleRawLog()

	if _, err := svc.Ingest(context.Background(), raw); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	_, err := svc.Ingest(context.Background(), raw)
	if err == nil {
		t.Fatalf("duplicate accepted")
	}
	if CodeOf(err) != CodeDuplicate {
		t.Fatalf("failure code: want=%s got=%s", CodeDuplicate, CodeOf(err))
	}
	if HTTPStatusOf(err) != 409 {
		t.Fatalf("http status: want=409 got=%d", HTTPStatusOf(err))
	}
}

func TestIngestDeterministicIdentity(t *testing.T) {
	// Same error content in two different raw payloads converges on one log id.
	repoA := newFakeRecordRepo()
	repoB := newFakeRecordRepo()
	svcA := newTestIngest(t, repoA, &fakeVectorStore{}, nil)
	svcB := newTestIngest(t, repoB, &fakeVectorStore{}, nil)

	resA, err := svcA.Ingest(context.Background(), []map[string]any{{"raw": "variant one"}})
	if err != nil {
		t.Fatalf("ingest A: %v", err)
	}
	resB, err := svcB.Ingest(context.Background(), []map[string]any{{"raw": "variant two"}})
	if err != nil {
		t.Fatalf("ingest B: %v", err)
	}
	if resA.LogID != resB.LogID {
		t.Fatalf("content identity diverged: %s vs %s", resA.LogID, resB.LogID)
	}
	if resA.TicketID == resB.TicketID {
		t.Fatalf("distinct raw payloads produced the same ticket id")
	}
}

func TestIngestEmptyPayload(t *testing.T) {
	svc := newTestIngest(t, newFakeRecordRepo(), &fakeVectorStore{}, nil)
	if _, err := svc.Ingest(context.Background(), nil); err == nil || CodeOf(err) != CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestIngestRowWriteFailureFailsRequest(t *testing.T) {
	repo := newFakeRecordRepo()
	repo.mergeErr = errors.New("disk full")
	svc := newTestIngest(t, repo, &fakeVectorStore{}, nil)

	_, err := svc.Ingest(context.Background(), sampleRawLog())
	if err == nil {
		t.Fatalf("expected persistence failure")
	}
	if CodeOf(err) != CodePersistence {
		t.Fatalf("failure code: want=%s got=%s", CodePersistence, CodeOf(err))
	}
}

func TestIngestNormalizerFailure(t *testing.T) {
	svc := NewIngestService(
		newTestLogger(t),
		&fakeNormalizer{err: errors.New("model unreachable")},
		&fakeEmbedder{vec: []float32{0.1}},
		&fakeVectorStore{},
		newFakeRecordRepo(),
		nil,
	)
	_, err := svc.Ingest(context.Background(), sampleRawLog())
	if err == nil || CodeOf(err) != CodeCollaborator {
		t.Fatalf("want collaborator failure, got %v", err)
	}
}

func TestIngestGraphFailureIsNonFatal(t *testing.T) {
	// A nil graph store disables graph writes entirely; ingest still succeeds.
	svc := newTestIngest(t, newFakeRecordRepo(), &fakeVectorStore{}, nil)
	if _, err := svc.Ingest(context.Background(), sampleRawLog()); err != nil {
		t.Fatalf("Ingest with graph disabled: %v", err)
	}
}
