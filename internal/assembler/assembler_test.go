package assembler

import (
	"context"
	"strings"
	"testing"

	"github.com/healrag/healrag/internal/model"
)

func samplePlan() *model.PlanRecord {
	return &model.PlanRecord{
		PlanName:   "Clear Choice HMO Gold 1500",
		State:      "ME",
		PlanNumber: "4911",
		QAData: []model.QAItem{
			{Question: "What is the overall deductible?", Answer: "$1,500", WhyThisMatters: "You must pay this first."},
			{Question: "Is there an out-of-pocket limit?", Answer: "$7,000", WhyThisMatters: "Caps yearly spending."},
		},
		MedicalEvents: []model.MedicalEvent{
			{Event: "If you visit a provider", Services: "Primary care visit", Cost: "$25 copay", Limitations: "None"},
		},
		ExcludedServices:     []string{"Cosmetic surgery", "Long-term care"},
		OtherCoveredServices: []string{"Chiropractic care"},
	}
}

func TestAssembleCombined(t *testing.T) {
	a := New(ModeCombined, 0)
	docs := a.Assemble(context.Background(), []*model.PlanRecord{samplePlan()})
	if len(docs) != 1 {
		t.Fatalf("combined mode produced %d documents, want 1", len(docs))
	}
	doc := docs[0]
	if doc.ChunkID != "Clear-Choice-HMO-Gold-1500--ME--4911" {
		t.Errorf("chunk_id = %q", doc.ChunkID)
	}
	if doc.ParentID != "Clear Choice HMO Gold 1500" {
		t.Errorf("parent_id = %q", doc.ParentID)
	}
	if doc.FileType != "combined" {
		t.Errorf("file_type = %q", doc.FileType)
	}
	if !strings.Contains(doc.Content, "Q: What is the overall deductible?") {
		t.Errorf("content missing qa data: %q", doc.Content)
	}
	if !strings.Contains(doc.Content, "Excluded Services: Cosmetic surgery, Long-term care") {
		t.Errorf("content missing excluded services: %q", doc.Content)
	}
	if len(doc.QAQuestions) != 2 || len(doc.QAAnswers) != 2 {
		t.Errorf("qa collections not fully populated: %v / %v", doc.QAQuestions, doc.QAAnswers)
	}
}

func TestSafeNameStripsApostrophes(t *testing.T) {
	plan := samplePlan()
	plan.PlanName = "O'Brien's Choice Plan"
	if got := PlanKey(plan); got != "OBriens-Choice-Plan--ME--4911" {
		t.Errorf("PlanKey = %q", got)
	}
}

func TestAssembleChunked(t *testing.T) {
	a := New(ModeChunked, 0)
	docs := a.Assemble(context.Background(), []*model.PlanRecord{samplePlan()})
	// 2 qa + 1 medical + excluded + covered
	if len(docs) != 5 {
		t.Fatalf("chunked mode produced %d documents, want 5", len(docs))
	}
	wantIDs := []string{
		"Clear-Choice-HMO-Gold-1500--ME--4911--qa--0",
		"Clear-Choice-HMO-Gold-1500--ME--4911--qa--1",
		"Clear-Choice-HMO-Gold-1500--ME--4911--medical--0",
		"Clear-Choice-HMO-Gold-1500--ME--4911--excluded",
		"Clear-Choice-HMO-Gold-1500--ME--4911--covered",
	}
	for i, want := range wantIDs {
		if docs[i].ChunkID != want {
			t.Errorf("doc %d chunk_id = %q, want %q", i, docs[i].ChunkID, want)
		}
		// Every sub-unit document still carries the full plan arrays.
		if len(docs[i].QAQuestions) != 2 {
			t.Errorf("doc %d qa_questions = %v, want full plan data", i, docs[i].QAQuestions)
		}
	}
}

func TestAssembleDropsNonIndexable(t *testing.T) {
	a := New(ModeCombined, 0)
	missing := samplePlan()
	missing.State = ""
	docs := a.Assemble(context.Background(), []*model.PlanRecord{missing, samplePlan()})
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1 (record without state dropped)", len(docs))
	}
	if docs[0].State != "ME" {
		t.Errorf("surviving document state = %q", docs[0].State)
	}
}

func TestAssembleTextChunks(t *testing.T) {
	a := New(ModeChunked, 8)
	plan := samplePlan()
	docs := a.AssembleText(plan, "SBC_4911.pdf", "abcdefghijk")
	if len(docs) != 2 {
		t.Fatalf("got %d chunk documents, want 2", len(docs))
	}
	if docs[0].Content+docs[1].Content != "abcdefghijk" {
		t.Errorf("chunk contents do not reassemble source text")
	}
	if docs[0].ChunkID == docs[1].ChunkID {
		t.Errorf("chunk ids collide: %q", docs[0].ChunkID)
	}
	again := a.AssembleText(plan, "SBC_4911.pdf", "abcdefghijk")
	if again[0].ChunkID != docs[0].ChunkID {
		t.Errorf("chunk ids not stable across runs: %q vs %q", again[0].ChunkID, docs[0].ChunkID)
	}
}

func TestDistinctPlansDistinctKeys(t *testing.T) {
	a := New(ModeCombined, 0)
	p1 := samplePlan()
	p2 := samplePlan()
	p2.PlanNumber = "4912"
	p3 := samplePlan()
	p3.State = "NH"
	docs := a.Assemble(context.Background(), []*model.PlanRecord{p1, p2, p3})
	seen := map[string]bool{}
	for _, d := range docs {
		if seen[d.ChunkID] {
			t.Fatalf("duplicate chunk_id across distinct plans: %q", d.ChunkID)
		}
		seen[d.ChunkID] = true
	}
}
