// Package extract talks to the document extraction service and parses
// its semi-structured output into plan records.
package extract

import (
	"context"
	"strings"

	"github.com/healrag/healrag/internal/model"
)

// Result is the extraction payload for one benefits summary document.
type Result struct {
	QAData               []model.QAItem       `json:"qa_data"`
	MedicalEventsData    []model.MedicalEvent `json:"medical_events_data"`
	ExcludedServices     string               `json:"excluded_services"`
	OtherCoveredServices string               `json:"other_covered_services"`
}

// Service is the extraction boundary. Implementations return empty
// fields instead of failing the pipeline when a document cannot be
// parsed.
type Service interface {
	Extract(ctx context.Context, pdf []byte) *Result
	// ExtractHeader pulls the plan name and state off the schedule of
	// benefits cover page.
	ExtractHeader(ctx context.Context, pdf []byte) (planName, state string)
}

// ParseListItems splits bullet-separated service text into items. Both
// the middle-dot and bullet characters mark item starts.
func ParseListItems(text string) []string {
	text = strings.ReplaceAll(text, "·", "•")
	parts := strings.Split(text, "•")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}
