// Package assembler merges extracted plan metadata and chunked text into
// flat index-ready documents.
package assembler

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/healrag/healrag/internal/chunker"
	"github.com/healrag/healrag/internal/model"
)

// Mode selects how plan records become index documents. The two modes
// produce different field cardinalities and must not be mixed within one
// index.
type Mode string

const (
	// ModeCombined emits one document per plan carrying all of its data.
	ModeCombined Mode = "combined"
	// ModeChunked emits one document per logical sub-unit (each Q&A pair,
	// each medical event, the exclusion and coverage blocks, and each raw
	// text chunk).
	ModeChunked Mode = "chunked"
)

func (m Mode) Valid() bool {
	return m == ModeCombined || m == ModeChunked
}

type Assembler struct {
	mode      Mode
	chunkSize int
}

func New(mode Mode, chunkSize int) *Assembler {
	if !mode.Valid() {
		mode = ModeCombined
	}
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultChunkSize
	}
	return &Assembler{mode: mode, chunkSize: chunkSize}
}

func (a *Assembler) Mode() Mode {
	return a.mode
}

// Assemble turns plan records into index documents. Records missing
// plan_name or state are dropped with a warning; they are never merged
// into another plan's data.
func (a *Assembler) Assemble(ctx context.Context, plans []*model.PlanRecord) []model.IndexDocument {
	logger := logutil.GetLogger(ctx)
	var docs []model.IndexDocument
	for _, plan := range plans {
		if !plan.Indexable() {
			logger.Warn("dropping non-indexable plan record",
				zap.String("plan_name", plan.PlanName),
				zap.String("state", plan.State),
			)
			continue
		}
		switch a.mode {
		case ModeChunked:
			docs = append(docs, a.assembleChunked(plan)...)
		default:
			docs = append(docs, a.assembleCombined(plan))
		}
	}
	return docs
}

// PlanKey derives the URL-safe document key for a plan:
// plan-name--state--plan-number, with spaces inside each part collapsed
// to single dashes and everything outside [alnum-] stripped. The double
// dash stays reserved as the component separator so distinct plans can
// never share a key prefix.
func PlanKey(plan *model.PlanRecord) string {
	return fmt.Sprintf("%s--%s--%s", safeName(plan.PlanName), safeName(plan.State), safeName(plan.PlanNumber))
}

func safeName(s string) string {
	s = strings.Join(strings.Fields(s), "-")
	var sb strings.Builder
	for _, r := range s {
		if r == '-' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (a *Assembler) assembleCombined(plan *model.PlanRecord) model.IndexDocument {
	doc := baseDocument(plan)
	doc.ChunkID = PlanKey(plan)
	doc.FileType = "combined"
	doc.Content = combinedContent(plan)
	return doc
}

func (a *Assembler) assembleChunked(plan *model.PlanRecord) []model.IndexDocument {
	key := PlanKey(plan)
	var docs []model.IndexDocument

	emit := func(chunkID, fileType, content string) {
		doc := baseDocument(plan)
		doc.ChunkID = chunkID
		doc.FileType = fileType
		doc.Content = content
		docs = append(docs, doc)
	}

	for i, qa := range plan.QAData {
		emit(fmt.Sprintf("%s--qa--%d", key, i), "qa",
			strings.Join([]string{
				"Q: " + qa.Question,
				"A: " + qa.Answer,
				"Why This Matters: " + qa.WhyThisMatters,
			}, "\n"))
	}
	for i, ev := range plan.MedicalEvents {
		emit(fmt.Sprintf("%s--medical--%d", key, i), "medical",
			strings.Join([]string{
				"Medical Event: " + ev.Event,
				"Service: " + ev.Services,
				"Cost: " + ev.Cost,
				"Limitations: " + ev.Limitations,
			}, "\n"))
	}
	if len(plan.ExcludedServices) > 0 {
		emit(key+"--excluded", "excluded",
			"Excluded Services: "+strings.Join(plan.ExcludedServices, ", "))
	}
	if len(plan.OtherCoveredServices) > 0 {
		emit(key+"--covered", "covered",
			"Other Covered Services: "+strings.Join(plan.OtherCoveredServices, ", "))
	}
	return docs
}

// AssembleText turns raw extracted text (e.g. a full PDF body) into
// chunk documents for a plan. Used in chunked mode alongside the
// structured sub-units.
func (a *Assembler) AssembleText(plan *model.PlanRecord, sourceFile, text string) []model.IndexDocument {
	if !plan.Indexable() || text == "" {
		return nil
	}
	var docs []model.IndexDocument
	for i, chunk := range chunker.Split(text, a.chunkSize) {
		doc := baseDocument(plan)
		doc.ChunkID = chunker.ID(sourceFile, i)
		doc.FileType = "text"
		doc.FilePath = sourceFile
		doc.Content = chunk
		docs = append(docs, doc)
	}
	return docs
}

// baseDocument carries the full per-plan arrays on every document, so any
// retrieved chunk brings complete plan context with it.
func baseDocument(plan *model.PlanRecord) model.IndexDocument {
	doc := model.IndexDocument{
		ParentID:             plan.PlanName,
		PlanName:             plan.PlanName,
		State:                plan.State,
		PlanNumber:           plan.PlanNumber,
		FilePath:             plan.FilePath,
		ExcludedServices:     plan.ExcludedServices,
		OtherCoveredServices: plan.OtherCoveredServices,
	}
	for _, qa := range plan.QAData {
		doc.QAQuestions = append(doc.QAQuestions, qa.Question)
		doc.QAAnswers = append(doc.QAAnswers, qa.Answer)
		doc.QAWhyThisMatters = append(doc.QAWhyThisMatters, qa.WhyThisMatters)
	}
	for _, ev := range plan.MedicalEvents {
		doc.MedicalEvents = append(doc.MedicalEvents, ev.Event)
		doc.MedicalServices = append(doc.MedicalServices, ev.Services)
		doc.MedicalCosts = append(doc.MedicalCosts, ev.Cost)
		doc.MedicalLimitations = append(doc.MedicalLimitations, ev.Limitations)
	}
	return doc
}

func combinedContent(plan *model.PlanRecord) string {
	var parts []string
	for _, qa := range plan.QAData {
		parts = append(parts,
			"Q: "+qa.Question,
			"A: "+qa.Answer,
			"Why This Matters: "+qa.WhyThisMatters,
		)
	}
	for _, ev := range plan.MedicalEvents {
		parts = append(parts,
			"Medical Event: "+ev.Event,
			"Service: "+ev.Services,
			"Cost: "+ev.Cost,
			"Limitations: "+ev.Limitations,
		)
	}
	if len(plan.ExcludedServices) > 0 {
		parts = append(parts, "Excluded Services: "+strings.Join(plan.ExcludedServices, ", "))
	}
	if len(plan.OtherCoveredServices) > 0 {
		parts = append(parts, "Other Covered Services: "+strings.Join(plan.OtherCoveredServices, ", "))
	}
	return strings.Join(parts, "\n")
}
