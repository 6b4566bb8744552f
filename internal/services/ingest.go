package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/graph"
	"github.com/promptlyai/loglens/internal/normalize"
	"github.com/promptlyai/loglens/internal/observability"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/platform/qdrant"
	"github.com/promptlyai/loglens/internal/repos"
	"github.com/promptlyai/loglens/internal/semantic"
)

// IngestResult reports the identity a stored record converged on.
type IngestResult struct {
	LogID    string `json:"log_id"`
	TicketID string `json:"ticket_id"`
}

// IngestService runs the ingest pipeline: duplicate gate, normalization,
// semantic projection, embedding, merge into both stores, graph write.
type IngestService interface {
	Ingest(ctx context.Context, rawLog []map[string]any) (*IngestResult, error)
}

type ingestService struct {
	log        *logger.Logger
	normalizer normalize.Normalizer
	embedder   Embedder
	vectors    qdrant.VectorStore
	records    repos.LogRecordRepo
	graph      graph.Store
}

func NewIngestService(
	baseLog *logger.Logger,
	normalizer normalize.Normalizer,
	embedder Embedder,
	vectors qdrant.VectorStore,
	records repos.LogRecordRepo,
	graphStore graph.Store,
) IngestService {
	return &ingestService{
		log:        baseLog.With("service", "IngestService"),
		normalizer: normalizer,
		embedder:   embedder,
		vectors:    vectors,
		records:    records,
		graph:      graphStore,
	}
}

func (s *ingestService) Ingest(ctx context.Context, rawLog []map[string]any) (*IngestResult, error) {
	result, err := s.ingest(ctx, rawLog)
	if metrics := observability.Current(); metrics != nil {
		metrics.ObserveIngest(ingestOutcome(err))
	}
	return result, err
}

func (s *ingestService) ingest(ctx context.Context, rawLog []map[string]any) (*IngestResult, error) {
	if len(rawLog) == 0 {
		return nil, pipeErr(CodeValidation, "ingest", "empty log payload", nil)
	}

	// Exact-duplicate gate before any model or store work.
	logHash, err := semantic.Fingerprint(rawLog)
	if err != nil {
		return nil, pipeErr(CodeValidation, "ingest", "record is not serializable", err)
	}
	exists, err := s.records.ExistsByHash(ctx, nil, logHash)
	if err != nil {
		return nil, pipeErr(CodePersistence, "ingest", "duplicate check failed", err)
	}
	if exists {
		return nil, pipeErr(CodeDuplicate, "ingest", "log already ingested: hash "+logHash[:16], nil)
	}

	rec, err := s.normalizer.Normalize(ctx, rawLog)
	if err != nil {
		return nil, pipeErr(CodeCollaborator, "ingest", "normalization failed", err)
	}

	ticketID := semantic.TicketURL(semantic.TicketID(logHash))

	semanticText, err := semantic.BuildFromStructured(rec)
	if err != nil {
		return nil, pipeErr(CodeValidation, "ingest", "record has no embeddable fields", err)
	}
	logID := semantic.RecordID(semanticText)

	vector, err := s.embedder.EmbedText(ctx, semanticText)
	if err != nil {
		return nil, err
	}

	row, err := buildRow(rec, rawLog, logID, logHash, ticketID, semanticText, len(vector))
	if err != nil {
		return nil, pipeErr(CodeValidation, "ingest", "record encode failed", err)
	}

	// Vector first, row second: an orphan point is harmless (hydration drops
	// ids without a row, and a retry overwrites it), while a row without its
	// vector would never be retrievable.
	if err := s.vectors.Upsert(ctx, LogNamespace, []qdrant.Vector{{
		ID:     logID,
		Values: vector,
		Metadata: map[string]any{
			"log_id":    logID,
			"ticket_id": semantic.ShortTicketID(ticketID),
			"flow_code": rec.FlowCode(),
		},
	}}); err != nil {
		return nil, pipeErr(CodePersistence, "ingest", "vector upsert failed", err)
	}
	if err := s.records.Merge(ctx, nil, row); err != nil {
		return nil, pipeErr(CodePersistence, "ingest", "record merge failed", err)
	}

	if added, err := graph.AddRecordToGraph(ctx, s.graph, s.log, rec, ticketID); err != nil {
		s.log.Warn("graph write failed", "log_id", logID, "error", err)
	} else if added {
		s.log.Debug("graph updated", "log_id", logID, "ticket_id", ticketID)
	}

	s.log.Info("log ingested", "log_id", logID, "ticket_id", ticketID)
	return &IngestResult{LogID: logID, TicketID: ticketID}, nil
}

func buildRow(rec *domain.StructuredRecord, rawLog []map[string]any, logID, logHash, ticketID, semanticText string, dim int) (*domain.LogRecord, error) {
	rawJSON, err := json.Marshal(rawLog)
	if err != nil {
		return nil, err
	}
	normalizedJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	row := &domain.LogRecord{
		Attributes:     attributeBag(rawLog),
		LogID:          logID,
		LogHash:        logHash,
		TicketID:       ticketID,
		LogType:        rec.LogType,
		EventTime:      parseEventTime(rec),
		FlowCode:       rec.FlowCode(),
		TriggerType:    rec.TriggerType(),
		ActionName:     domain.Deref(rec.Flow.Operation),
		EndpointName:   rec.EndpointName(),
		ErrorCode:      rec.ErrorCode(),
		ErrorSummary:   rec.ErrorSummary(),
		SemanticText:   semanticText,
		RawJSON:        datatypes.JSON(rawJSON),
		NormalizedJSON: datatypes.JSON(normalizedJSON),
		EmbeddingDim:   dim,
	}
	if rec.IsError() {
		row.ErrorLevel = "ERROR"
	}
	return row, nil
}

// attributeBag projects the raw entries through the alias tables and keeps
// the slots that resolved. First entry wins on key collisions.
func attributeBag(rawLog []map[string]any) datatypes.JSON {
	flat := make(map[string]any)
	for _, entry := range rawLog {
		for k, v := range entry {
			if _, seen := flat[k]; !seen {
				flat[k] = v
			}
		}
	}
	sctx := semantic.ExtractContext(flat)
	bag := make(map[string]string, 4)
	if sctx.FlowCode != "" {
		bag["flow_code"] = sctx.FlowCode
	}
	if sctx.ActionName != "" {
		bag["action_name"] = sctx.ActionName
	}
	if sctx.ErrorMessage != "" {
		bag["error_message"] = sctx.ErrorMessage
	}
	if sctx.BusinessKey != "" {
		bag["business_key"] = sctx.BusinessKey
	}
	if len(bag) == 0 {
		return nil
	}
	encoded, err := json.Marshal(bag)
	if err != nil {
		return nil
	}
	return datatypes.JSON(encoded)
}

// parseEventTime accepts the timestamp formats OIC emits.
func parseEventTime(rec *domain.StructuredRecord) *time.Time {
	raw := domain.Deref(rec.Flow.Timestamp)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func ingestOutcome(err error) string {
	if err == nil {
		return "stored"
	}
	if CodeOf(err) == CodeDuplicate {
		return "duplicate"
	}
	return "failed"
}
