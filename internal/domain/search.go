package domain

import "encoding/json"

// Reranker classification labels.
const (
	ClassificationExactDuplicate   = "EXACT_DUPLICATE"
	ClassificationSimilarRootCause = "SIMILAR_ROOT_CAUSE"
	ClassificationRelated          = "RELATED"
	ClassificationNotRelated       = "NOT_RELATED"
)

// KGInsights is graph-derived context attached to a search match. All
// fields are best-effort: a graph failure leaves them zero-valued.
type KGInsights struct {
	RootCause       *string  `json:"root_cause"`
	Endpoints       []string `json:"endpoints"`
	RecurrenceCount int      `json:"recurrence_count"`
	RelatedTickets  []string `json:"related_tickets"`
}

// SearchMatch is one formatted entry of a search response. Rank,
// Classification, Confidence and Reasoning are populated by the reranker
// and stay nil when reranking degraded.
type SearchMatch struct {
	TicketID        string          `json:"ticket_id"`
	SimilarityScore float64         `json:"similarity_score"`
	FlowCode        string          `json:"flow_code"`
	TriggerType     string          `json:"trigger_type"`
	ErrorCode       string          `json:"error_code"`
	ErrorSummary    string          `json:"error_summary"`
	NormalizedJSON  json.RawMessage `json:"normalized_json,omitempty"`

	Rank           *int    `json:"rank,omitempty"`
	Classification *string `json:"classification,omitempty"`
	Confidence     *int    `json:"confidence,omitempty"`
	Reasoning      *string `json:"reasoning,omitempty"`

	Insights *KGInsights `json:"kg_insights,omitempty"`
}
