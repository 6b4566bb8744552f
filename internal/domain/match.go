package domain

import "time"

// MatchStatus classifies how confidently a new error matches history.
type MatchStatus string

const (
	MatchStatusKnown   MatchStatus = "known"
	MatchStatusRelated MatchStatus = "related"
	MatchStatusNew     MatchStatus = "new"
	MatchStatusEmpty   MatchStatus = "empty"
)

// SearchResult is one hydrated hit from the similarity index.
type SearchResult struct {
	LogID        string     `json:"log_id"`
	TicketID     string     `json:"ticket_id"`
	Similarity   float64    `json:"similarity"`
	FlowCode     string     `json:"flow_code"`
	TriggerType  string     `json:"trigger_type"`
	ActionName   string     `json:"action_name"`
	ErrorLevel   string     `json:"error_level"`
	ErrorCode    string     `json:"error_code"`
	ErrorSummary string     `json:"error_summary"`
	SemanticText string     `json:"semantic_text"`
	EventTime    *time.Time `json:"event_time"`
}

// MatchDecision is the outcome of one match request. Never persisted;
// its side effects go through the relationship persister.
type MatchDecision struct {
	Status       MatchStatus    `json:"status"`
	Similarity   float64        `json:"similarity"`
	TopMatch     *SearchResult  `json:"top_match"`
	Alternatives []SearchResult `json:"alternatives"`
	SemanticText string         `json:"semantic_text"`
	DurationMS   float64        `json:"duration_ms"`
}
