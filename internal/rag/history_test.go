package rag

import (
	"fmt"
	"testing"

	"github.com/healrag/healrag/internal/model"
)

func TestHistoryTrimsToMax(t *testing.T) {
	tests := []struct {
		turns int
		max   int
		want  int
	}{
		{3, 10, 3},
		{10, 10, 10},
		{25, 10, 10},
		{1, 2, 1},
	}
	for _, tt := range tests {
		h := NewHistory(tt.max)
		for i := 0; i < tt.turns; i++ {
			h.Append("s1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		}
		if got := h.Len("s1"); got != tt.want {
			t.Errorf("after %d turns with max %d: len = %d, want %d", tt.turns, tt.max, got, tt.want)
		}
	}
}

func TestHistoryKeepsMostRecent(t *testing.T) {
	h := NewHistory(2)
	h.Append("s1", "q0", "a0")
	h.Append("s1", "q1", "a1")
	h.Append("s1", "q2", "a2")
	msgs := h.Messages("s1")
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
	if msgs[0].Content != "q1" || msgs[0].Role != model.RoleUser {
		t.Errorf("oldest retained = %+v, want user q1", msgs[0])
	}
	if msgs[3].Content != "a2" || msgs[3].Role != model.RoleAssistant {
		t.Errorf("newest = %+v, want assistant a2", msgs[3])
	}
}

func TestHistorySessionsAreIsolated(t *testing.T) {
	h := NewHistory(10)
	h.Append("s1", "q", "a")
	if h.Len("s2") != 0 {
		t.Error("session s2 sees s1 history")
	}
	h.Clear("s1")
	if h.Len("s1") != 0 {
		t.Error("clear did not empty the session")
	}
}
