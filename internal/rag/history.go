package rag

import (
	"sync"

	"github.com/healrag/healrag/internal/model"
)

const defaultMaxHistory = 10

type exchange struct {
	query    string
	response string
}

// History holds rolling conversation history keyed by session, bounded
// to maxExchanges per session with the oldest exchange dropped first.
// Keying by session keeps concurrent conversations from bleeding into
// each other.
type History struct {
	mu       sync.Mutex
	max      int
	sessions map[string][]exchange
}

func NewHistory(maxExchanges int) *History {
	if maxExchanges <= 0 {
		maxExchanges = defaultMaxHistory
	}
	return &History{max: maxExchanges, sessions: map[string][]exchange{}}
}

func (h *History) Append(sessionID, query, response string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	items := append(h.sessions[sessionID], exchange{query: query, response: response})
	if len(items) > h.max {
		items = items[len(items)-h.max:]
	}
	h.sessions[sessionID] = items
}

// Messages returns the session's history as alternating user/assistant
// messages, oldest first.
func (h *History) Messages(sessionID string) []model.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	items := h.sessions[sessionID]
	out := make([]model.Message, 0, len(items)*2)
	for _, item := range items {
		out = append(out,
			model.Message{Role: model.RoleUser, Content: item.query},
			model.Message{Role: model.RoleAssistant, Content: item.response},
		)
	}
	return out
}

func (h *History) Len(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}

func (h *History) Clear(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}
