package services

import (
	"context"
	"errors"
	"testing"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/platform/qdrant"
)

func defaultMatchConfig() MatchConfig {
	return MatchConfig{
		ThresholdKnown:   0.90,
		ThresholdRelated: 0.75,
		DefaultTopK:      5,
	}
}

func TestClassifyThresholds(t *testing.T) {
	cfg := defaultMatchConfig()
	cases := []struct {
		similarity float64
		want       domain.MatchStatus
	}{
		{0.95, domain.MatchStatusKnown},
		{0.91, domain.MatchStatusKnown},
		{0.90, domain.MatchStatusRelated}, // boundary stays in the lower bucket
		{0.80, domain.MatchStatusRelated},
		{0.75, domain.MatchStatusNew},
		{0.10, domain.MatchStatusNew},
		{0.0, domain.MatchStatusNew},
	}
	for _, tc := range cases {
		if got := classify(tc.similarity, cfg); got != tc.want {
			t.Fatalf("classify(%v): want=%s got=%s", tc.similarity, tc.want, got)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	cfg := defaultMatchConfig()
	order := map[domain.MatchStatus]int{
		domain.MatchStatusKnown:   2,
		domain.MatchStatusRelated: 1,
		domain.MatchStatusNew:     0,
	}
	prev := -1
	for s := 0.0; s <= 1.0; s += 0.01 {
		rank := order[classify(s, cfg)]
		if rank < prev {
			t.Fatalf("classification not monotonic at similarity %v", s)
		}
		prev = rank
	}
}

func TestValidateMatchConfig(t *testing.T) {
	bad := []MatchConfig{
		{ThresholdKnown: 0.5, ThresholdRelated: 0.6, DefaultTopK: 5},
		{ThresholdKnown: 0.9, ThresholdRelated: 0.9, DefaultTopK: 5},
		{ThresholdKnown: 1.1, ThresholdRelated: 0.5, DefaultTopK: 5},
		{ThresholdKnown: 0.9, ThresholdRelated: -0.1, DefaultTopK: 5},
		{ThresholdKnown: 0.9, ThresholdRelated: 0.7, DefaultTopK: 0},
	}
	for i, cfg := range bad {
		if err := ValidateMatchConfig(cfg); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, cfg)
		}
	}
	if err := ValidateMatchConfig(defaultMatchConfig()); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func newTestMatchService(t *testing.T, vectors *fakeVectorStore, repo *fakeRecordRepo) MatchService {
	t.Helper()
	svc, err := NewMatchService(
		newTestLogger(t),
		defaultMatchConfig(),
		vectors,
		repo,
		&fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}},
		&fakeNormalizer{rec: structuredError("ORDER_SYNC", "OSB-382500", "connection refused", "gateway down")},
	)
	if err != nil {
		t.Fatalf("NewMatchService: %v", err)
	}
	return svc
}

func TestDecideKnownMatch(t *testing.T) {
	vectors := &fakeVectorStore{matches: []qdrant.VectorMatch{
		{ID: "LOG-A", Score: 0.96},
		{ID: "LOG-B", Score: 0.80},
	}}
	repo := newFakeRecordRepo()
	seedRow(repo, "LOG-A", "OLL-A", "ORDER_SYNC", "OSB-382500", "connection refused")
	seedRow(repo, "LOG-B", "OLL-B", "ORDER_SYNC", "OSB-382500", "timeout waiting")

	decision, err := newTestMatchService(t, vectors, repo).Decide(context.Background(),
		[]float32{0.1, 0.2, 0.3}, "flow: ORDER_SYNC", 5)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision.Status != domain.MatchStatusKnown {
		t.Fatalf("status: want=known got=%s", decision.Status)
	}
	if decision.Similarity != 0.96 {
		t.Fatalf("similarity: want=0.96 got=%v", decision.Similarity)
	}
	if decision.TopMatch == nil || decision.TopMatch.LogID != "LOG-A" || decision.TopMatch.TicketID != "OLL-A" {
		t.Fatalf("top match: got=%+v", decision.TopMatch)
	}
	if len(decision.Alternatives) != 1 || decision.Alternatives[0].LogID != "LOG-B" {
		t.Fatalf("alternatives: got=%+v", decision.Alternatives)
	}
}

func TestDecideEmptyWhenNoCandidates(t *testing.T) {
	decision, err := newTestMatchService(t, &fakeVectorStore{}, newFakeRecordRepo()).
		Decide(context.Background(), []float32{0.1, 0.2, 0.3}, "query", 5)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision.Status != domain.MatchStatusEmpty {
		t.Fatalf("status: want=empty got=%s", decision.Status)
	}
	if decision.TopMatch != nil || decision.Similarity != 0 {
		t.Fatalf("empty decision carries a match: %+v", decision)
	}
}

func TestDecideFiltersBelowMinSimilarity(t *testing.T) {
	vectors := &fakeVectorStore{matches: []qdrant.VectorMatch{
		{ID: "LOG-A", Score: 0.50},
		{ID: "LOG-B", Score: 0.20},
	}}
	repo := newFakeRecordRepo()
	seedRow(repo, "LOG-A", "OLL-A", "F1", "E1", "s")
	seedRow(repo, "LOG-B", "OLL-B", "F1", "E1", "s")

	cfg := defaultMatchConfig()
	cfg.MinSimilarity = 0.40
	svc, err := NewMatchService(newTestLogger(t), cfg, vectors, repo,
		&fakeEmbedder{vec: []float32{0.1}}, &fakeNormalizer{})
	if err != nil {
		t.Fatalf("NewMatchService: %v", err)
	}

	decision, err := svc.Decide(context.Background(), []float32{0.1}, "query", 5)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision.TopMatch == nil || decision.TopMatch.LogID != "LOG-A" {
		t.Fatalf("top match: got=%+v", decision.TopMatch)
	}
	if len(decision.Alternatives) != 0 {
		t.Fatalf("low-similarity candidate not filtered: %+v", decision.Alternatives)
	}
}

func TestDecideDropsMatchesWithoutRows(t *testing.T) {
	vectors := &fakeVectorStore{matches: []qdrant.VectorMatch{
		{ID: "LOG-ORPHAN", Score: 0.95},
		{ID: "LOG-A", Score: 0.85},
	}}
	repo := newFakeRecordRepo()
	seedRow(repo, "LOG-A", "OLL-A", "F1", "E1", "s")

	decision, err := newTestMatchService(t, vectors, repo).
		Decide(context.Background(), []float32{0.1, 0.2, 0.3}, "query", 5)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision.TopMatch == nil || decision.TopMatch.LogID != "LOG-A" {
		t.Fatalf("orphan point served: %+v", decision.TopMatch)
	}
	if decision.Status != domain.MatchStatusRelated {
		t.Fatalf("status: want=related got=%s", decision.Status)
	}
}

func TestDecideRetrievalFailure(t *testing.T) {
	vectors := &fakeVectorStore{queryErr: errors.New("connection reset")}
	_, err := newTestMatchService(t, vectors, newFakeRecordRepo()).
		Decide(context.Background(), []float32{0.1, 0.2, 0.3}, "query", 5)
	if err == nil {
		t.Fatalf("expected retrieval failure")
	}
	if CodeOf(err) != CodeRetrieval {
		t.Fatalf("failure code: want=%s got=%s", CodeRetrieval, CodeOf(err))
	}
}

func TestMatchAttributesResolvesAliases(t *testing.T) {
	vectors := &fakeVectorStore{matches: []qdrant.VectorMatch{{ID: "LOG-A", Score: 0.96}}}
	repo := newFakeRecordRepo()
	seedRow(repo, "LOG-A", "OLL-A", "ORDER_SYNC", "OSB-382500", "connection refused")

	decision, err := newTestMatchService(t, vectors, repo).MatchAttributes(context.Background(),
		map[string]any{
			"flow":     "ORDER_SYNC",
			"step":     "invokeEndpoint",
			"error":    "connection refused",
			"order_id": "ORD-1138",
			"ts":       1724917200, // non-allowlisted, must not leak into the query
		}, 5)
	if err != nil {
		t.Fatalf("MatchAttributes: %v", err)
	}
	want := "flow: ORDER_SYNC\nstep: invokeEndpoint\nerror: connection refused\nbusiness_key: ORD-1138"
	if decision.SemanticText != want {
		t.Fatalf("semantic text:\nwant=%q\ngot=%q", want, decision.SemanticText)
	}
	if decision.Status != domain.MatchStatusKnown {
		t.Fatalf("status: want=known got=%s", decision.Status)
	}
}

func TestMatchAttributesUnrecognizableLog(t *testing.T) {
	svc := newTestMatchService(t, &fakeVectorStore{}, newFakeRecordRepo())
	for _, log := range []map[string]any{
		nil,
		{},
		{"ts": 1724917200, "payload": "opaque"},
	} {
		_, err := svc.MatchAttributes(context.Background(), log, 5)
		if err == nil || CodeOf(err) != CodeValidation {
			t.Fatalf("log %v: want validation error, got %v", log, err)
		}
	}
}

func TestMatchTextEmptyQuery(t *testing.T) {
	_, err := newTestMatchService(t, &fakeVectorStore{}, newFakeRecordRepo()).
		MatchText(context.Background(), "   ", 5)
	if err == nil || CodeOf(err) != CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}
