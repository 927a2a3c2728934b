package rag

import (
	"fmt"
	"strings"

	"github.com/healrag/healrag/internal/model"
)

// FormatContext renders ranked results into the context block handed to
// the generation model. Output is deterministic for a given input list:
// documents keep their input order, fields follow a fixed order, and
// absent fields are skipped rather than printed empty.
func FormatContext(results []model.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for i, doc := range results {
		id := doc.StringField("chunk_id")
		if id == "" {
			id = fmt.Sprintf("Document %d", i+1)
		}
		var lines []string
		if v := doc.StringField("plan_name"); v != "" {
			lines = append(lines, "Plan: "+v)
		}
		if v := doc.StringField("state"); v != "" {
			lines = append(lines, "State: "+v)
		}
		if v := doc.StringField("content"); v != "" {
			lines = append(lines, v)
		}
		questions := doc.ListField("qa_questions")
		answers := doc.ListField("qa_answers")
		if len(questions) > 0 && len(answers) > 0 {
			lines = append(lines, "Q&A Information:")
			for j := 0; j < len(questions) && j < len(answers); j++ {
				lines = append(lines, "Q: "+questions[j], "A: "+answers[j])
			}
		}
		events := doc.ListField("medical_events")
		services := doc.ListField("medical_services")
		costs := doc.ListField("medical_costs")
		if len(events) > 0 {
			lines = append(lines, "Medical Events Information:")
			for j, event := range events {
				lines = append(lines, "Event: "+event)
				if j < len(services) {
					lines = append(lines, "Services: "+services[j])
				}
				if j < len(costs) {
					lines = append(lines, "Cost: "+costs[j])
				}
			}
		}
		if v := doc.ListField("excluded_services"); len(v) > 0 {
			lines = append(lines, "Excluded Services: "+strings.Join(v, ", "))
		}
		if v := doc.ListField("other_covered_services"); len(v) > 0 {
			lines = append(lines, "Other Covered Services: "+strings.Join(v, ", "))
		}
		header := fmt.Sprintf("--- Document %d (%s) ---", i+1, id)
		blocks = append(blocks, header+"\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// FormatCitations appends a [Source: plan (state)] marker after any
// passage the model quoted verbatim from a retrieved document. Answers
// that paraphrase rather than quote come back unchanged.
func FormatCitations(response string, results []model.SearchResult) string {
	seen := make(map[string]struct{}, len(results))
	for _, doc := range results {
		content := doc.StringField("content")
		if content == "" || !strings.Contains(response, content) {
			continue
		}
		if _, ok := seen[content]; ok {
			continue
		}
		seen[content] = struct{}{}
		plan := doc.StringField("plan_name")
		if plan == "" {
			plan = "Unknown Plan"
		}
		state := doc.StringField("state")
		if state == "" {
			state = "Unknown State"
		}
		cited := fmt.Sprintf("%s [Source: %s (%s)]", content, plan, state)
		response = strings.ReplaceAll(response, content, cited)
	}
	return response
}
