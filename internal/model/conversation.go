package model

// Message is one entry of a chat transcript sent to the generation
// service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationRecord is one persisted exchange. Records are written once
// after a turn completes and never edited in place.
type ConversationRecord struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"`
	Query         string         `json:"query"`
	Response      string         `json:"response"`
	Timestamp     string         `json:"timestamp"`
	SearchResults []SearchResult `json:"search_results,omitempty"`
}
