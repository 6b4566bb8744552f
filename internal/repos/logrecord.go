package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/platform/logger"
)

type LogRecordRepo interface {
	ExistsByHash(ctx context.Context, tx *gorm.DB, logHash string) (bool, error)
	Merge(ctx context.Context, tx *gorm.DB, rec *domain.LogRecord) error
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) (map[string]*domain.LogRecord, error)
	Stats(ctx context.Context, tx *gorm.DB) (*domain.StoreStats, error)
}

type logRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLogRecordRepo(db *gorm.DB, baseLog *logger.Logger) LogRecordRepo {
	return &logRecordRepo{
		db:  db,
		log: baseLog.With("repo", "LogRecordRepo"),
	}
}

func (r *logRecordRepo) ExistsByHash(ctx context.Context, tx *gorm.DB, logHash string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if logHash == "" {
		return false, nil
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.LogRecord{}).
		Where("log_hash = ?", logHash).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Merge is an upsert keyed on log_id: replaying the same record refreshes its
// row instead of duplicating it.
func (r *logRecordRepo) Merge(ctx context.Context, tx *gorm.DB, rec *domain.LogRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if rec == nil || rec.LogID == "" {
		return nil
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "log_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"log_hash",
				"ticket_id",
				"log_type",
				"event_time",
				"flow_code",
				"trigger_type",
				"action_name",
				"endpoint_name",
				"error_level",
				"error_code",
				"error_summary",
				"semantic_text",
				"raw_json",
				"normalized_json",
				"attributes",
				"embedding_dim",
				"updated_at",
			}),
		}).
		Create(rec).Error
}

// GetByIDs hydrates vector matches back into full rows. Missing ids are simply
// absent from the map, never an error.
func (r *logRecordRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) (map[string]*domain.LogRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[string]*domain.LogRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*domain.LogRecord
	if err := transaction.WithContext(ctx).
		Where("log_id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.LogID] = row
	}
	return out, nil
}

func (r *logRecordRepo) Stats(ctx context.Context, tx *gorm.DB) (*domain.StoreStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	stats := &domain.StoreStats{StoreName: "log_records"}
	if err := transaction.WithContext(ctx).
		Model(&domain.LogRecord{}).
		Count(&stats.TotalRecords).Error; err != nil {
		return nil, err
	}
	if stats.TotalRecords == 0 {
		return stats, nil
	}
	var bounds struct {
		Oldest *time.Time
		Newest *time.Time
	}
	if err := transaction.WithContext(ctx).
		Model(&domain.LogRecord{}).
		Select("MIN(event_time) AS oldest, MAX(event_time) AS newest").
		Scan(&bounds).Error; err != nil {
		return nil, err
	}
	stats.OldestEvent = bounds.Oldest
	stats.NewestEvent = bounds.Newest
	return stats, nil
}
