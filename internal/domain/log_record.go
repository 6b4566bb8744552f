package domain

import (
	"time"

	"gorm.io/datatypes"
)

// LogRecord is the persisted row for one ingested log. The log_id is derived
// from the semantic text, so re-ingesting an identical error converges on the
// same row. The embedding itself lives in the vector store keyed by LogID.
type LogRecord struct {
	LogID   string `gorm:"column:log_id;primaryKey;size:64" json:"log_id"`
	LogHash string `gorm:"column:log_hash;uniqueIndex;size:64;not null" json:"log_hash"`

	TicketID string `gorm:"column:ticket_id;index;size:128" json:"ticket_id"`
	LogType  string `gorm:"column:log_type;size:32" json:"log_type"`

	EventTime *time.Time `gorm:"column:event_time;index" json:"event_time"`

	FlowCode     string `gorm:"column:flow_code;index;size:256" json:"flow_code"`
	TriggerType  string `gorm:"column:trigger_type;size:64" json:"trigger_type"`
	ActionName   string `gorm:"column:action_name;size:256" json:"action_name"`
	EndpointName string `gorm:"column:endpoint_name;size:256" json:"endpoint_name"`
	ErrorLevel   string `gorm:"column:error_level;size:64" json:"error_level"`
	ErrorCode    string `gorm:"column:error_code;index;size:128" json:"error_code"`
	ErrorSummary string `gorm:"column:error_summary;type:text" json:"error_summary"`

	SemanticText   string         `gorm:"column:semantic_text;type:text;not null" json:"semantic_text"`
	RawJSON        datatypes.JSON `gorm:"column:raw_json;type:jsonb" json:"raw_json"`
	NormalizedJSON datatypes.JSON `gorm:"column:normalized_json;type:jsonb" json:"normalized_json"`
	Attributes     datatypes.JSON `gorm:"column:attributes;type:jsonb" json:"attributes"`

	EmbeddingDim int `gorm:"column:embedding_dim;not null" json:"embedding_dim"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LogRecord) TableName() string { return "log_records" }

// StoreStats summarizes the record store for GET /stats.
type StoreStats struct {
	StoreName    string     `json:"store"`
	TotalRecords int64      `json:"total_records"`
	OldestEvent  *time.Time `json:"oldest_event"`
	NewestEvent  *time.Time `json:"newest_event"`
}
