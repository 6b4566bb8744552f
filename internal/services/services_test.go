package services

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/platform/qdrant"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func strOf(s string) *string { return &s }

func structuredError(flow, errCode, summary, rootCause string) *domain.StructuredRecord {
	return &domain.StructuredRecord{
		LogType: domain.LogTypeError,
		Flow: domain.FlowInfo{
			Code:        strOf(flow),
			TriggerType: strOf("rest"),
		},
		Error: &domain.ErrorDetail{
			Code:    strOf(errCode),
			Summary: strOf(summary),
			MessageParsed: domain.ParsedMessage{
				RootCause: strOf(rootCause),
			},
		},
	}
}

// fakeAI scripts the three model calls.
type fakeAI struct {
	embedVec    []float32
	embedErr    error
	jsonResult  map[string]any
	jsonErr     error
	textResult  string
	textErr     error
	lastUser    string
	lastSystem  string
	embedCalls  int
	jsonCalls   int
	textCalls   int
}

func (f *fakeAI) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = f.embedVec
	}
	return out, nil
}

func (f *fakeAI) GenerateJSON(_ context.Context, system, user, _ string, _ map[string]any) (map[string]any, error) {
	f.jsonCalls++
	f.lastSystem = system
	f.lastUser = user
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	return f.jsonResult, nil
}

func (f *fakeAI) GenerateText(_ context.Context, system, user string) (string, error) {
	f.textCalls++
	f.lastSystem = system
	f.lastUser = user
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.textResult, nil
}

// fakeNormalizer returns a scripted record.
type fakeNormalizer struct {
	rec *domain.StructuredRecord
	err error
}

func (f *fakeNormalizer) Normalize(context.Context, []map[string]any) (*domain.StructuredRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

// fakeVectorStore records upserts and serves scripted matches.
type fakeVectorStore struct {
	matches    []qdrant.VectorMatch
	queryErr   error
	upsertErr  error
	upserted   []qdrant.Vector
	upsertedNS string
	queries    int
}

func (f *fakeVectorStore) Upsert(_ context.Context, namespace string, vectors []qdrant.Vector) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertedNS = namespace
	f.upserted = append(f.upserted, vectors...)
	return nil
}

func (f *fakeVectorStore) QueryMatches(_ context.Context, _ string, _ []float32, topK int, _ map[string]any) ([]qdrant.VectorMatch, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if topK < len(f.matches) {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

func (f *fakeVectorStore) QueryIDs(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]string, error) {
	matches, err := f.QueryMatches(ctx, namespace, q, topK, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids, nil
}

func (f *fakeVectorStore) DeleteIDs(context.Context, string, []string) error { return nil }

// fakeRecordRepo is an in-memory LogRecordRepo.
type fakeRecordRepo struct {
	rows     map[string]*domain.LogRecord
	hashes   map[string]bool
	mergeErr error
	getErr   error
	merged   []string
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{
		rows:   map[string]*domain.LogRecord{},
		hashes: map[string]bool{},
	}
}

func (f *fakeRecordRepo) ExistsByHash(_ context.Context, _ *gorm.DB, logHash string) (bool, error) {
	return f.hashes[logHash], nil
}

func (f *fakeRecordRepo) Merge(_ context.Context, _ *gorm.DB, rec *domain.LogRecord) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.rows[rec.LogID] = rec
	f.hashes[rec.LogHash] = true
	f.merged = append(f.merged, rec.LogID)
	return nil
}

func (f *fakeRecordRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []string) (map[string]*domain.LogRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := map[string]*domain.LogRecord{}
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) Stats(context.Context, *gorm.DB) (*domain.StoreStats, error) {
	return &domain.StoreStats{StoreName: "log_records", TotalRecords: int64(len(f.rows))}, nil
}

// fakeEmbedder returns a fixed vector.
type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) Dimension() int { return len(f.vec) }

func seedRow(repo *fakeRecordRepo, logID, ticketID, flow, errCode, summary string) {
	repo.rows[logID] = &domain.LogRecord{
		LogID:        logID,
		TicketID:     ticketID,
		FlowCode:     flow,
		TriggerType:  "rest",
		ErrorCode:    errCode,
		ErrorSummary: summary,
		SemanticText: fmt.Sprintf("flow: %s\nerror: %s", flow, summary),
	}
}
