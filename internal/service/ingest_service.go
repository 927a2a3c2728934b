package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/healrag/healrag/internal/assembler"
	"github.com/healrag/healrag/internal/extract"
	"github.com/healrag/healrag/internal/filestore"
	"github.com/healrag/healrag/internal/index"
	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
	"github.com/healrag/healrag/internal/schema"
)

// IngestService runs the offline pipeline: pull documents from the
// store, turn them into plan records, assemble index documents, and
// push them through the index manager.
type IngestService struct {
	store     filestore.Store
	extractor extract.Service
	asm       *assembler.Assembler
	mgr       *index.Manager
	indexName string
}

func NewIngestService(store filestore.Store, extractor extract.Service, asm *assembler.Assembler, mgr *index.Manager, indexName string) *IngestService {
	return &IngestService{
		store:     store,
		extractor: extractor,
		asm:       asm,
		mgr:       mgr,
		indexName: indexName,
	}
}

// planFiles groups one plan's stored documents by plan number.
type planFiles struct {
	number   string
	metadata string // SBC_<n>.json
	sbcPDF   string
	sobPDF   string
	markdown string // extracted full text, SBC_<n>.md or SOB_<n>.md
}

// Run executes a full population pass over everything in the store.
func (s *IngestService) Run(ctx context.Context) (*index.UploadReport, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("index", s.indexName))

	names, err := s.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	groups := groupPlanFiles(names)
	logger.Info("documents discovered", zap.Int("files", len(names)), zap.Int("plans", len(groups)))

	var records []*model.PlanRecord
	var rawMetadata [][]byte
	var textDocs []model.IndexDocument
	for _, group := range groups {
		record, raw, err := s.loadPlan(ctx, group)
		if err != nil {
			logger.Warn("skipping plan", zap.String("plan_number", group.number), zap.Error(err))
			continue
		}
		records = append(records, record)
		if raw != nil {
			rawMetadata = append(rawMetadata, raw)
		}
		if s.asm.Mode() == assembler.ModeChunked && group.markdown != "" {
			textDocs = append(textDocs, s.loadTextChunks(ctx, record, group.markdown)...)
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no indexable plans found in store")
	}

	indexSchema := s.buildSchema(ctx, rawMetadata)
	if err := s.mgr.CreateOrUpdateIndex(ctx, indexSchema); err != nil {
		return nil, err
	}

	docs := s.asm.Assemble(ctx, records)
	docs = append(docs, textDocs...)
	report, err := s.mgr.Upload(ctx, s.indexName, docs)
	if err != nil {
		return nil, err
	}
	logger.Info("population run finished",
		zap.Int("plans", len(records)),
		zap.Int("indexed", report.Indexed),
		zap.Int("failed", report.Failed))
	return report, nil
}

// UploadFiles walks a local data directory and puts every file into the
// store under its relative path. Files already present are skipped
// unless overwrite is set.
func (s *IngestService) UploadFiles(ctx context.Context, dataDir string, overwrite bool) (uploaded, skipped int, err error) {
	logger := logutil.GetLogger(ctx).With(zap.String("data_dir", dataDir))
	err = filepath.WalkDir(dataDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dataDir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !overwrite {
			if _, err := s.store.Get(ctx, name); err == nil {
				logger.Info("skipping existing file", zap.String("name", name))
				skipped++
				return nil
			} else if !apperr.IsNotFound(err) {
				return fmt.Errorf("check %s: %w", name, err)
			}
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if err := s.store.Put(ctx, name, data); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
		logger.Info("uploaded file", zap.String("name", name), zap.Int("size", len(data)))
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, skipped, err
	}
	logger.Info("upload pass finished", zap.Int("uploaded", uploaded), zap.Int("skipped", skipped))
	return uploaded, skipped, nil
}

// buildSchema infers the field set from stored metadata and falls back
// to the static insurance schema when none decodes.
func (s *IngestService) buildSchema(ctx context.Context, rawMetadata [][]byte) *model.IndexSchema {
	var sampled []schema.Record
	for _, raw := range rawMetadata {
		record, err := schema.DecodeRecord(raw)
		if err != nil {
			logutil.GetLogger(ctx).Warn("metadata not usable for schema inference", zap.Error(err))
			continue
		}
		sampled = append(sampled, record)
	}
	fields := schema.InsuranceFields()
	if len(sampled) > 0 {
		fields = schema.InferFields(sampled...)
	}
	return &model.IndexSchema{
		Name:           s.indexName,
		Fields:         fields,
		ScoringProfile: schema.InsuranceScoringProfile(),
		SemanticConfig: schema.InsuranceSemanticConfig(),
	}
}

// loadPlan builds one PlanRecord, preferring pre-extracted metadata and
// falling back to the extraction service for raw PDFs.
func (s *IngestService) loadPlan(ctx context.Context, group planFiles) (*model.PlanRecord, []byte, error) {
	if group.metadata != "" {
		raw, err := s.store.Get(ctx, group.metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("read metadata %s: %w", group.metadata, err)
		}
		record, err := decodePlanMetadata(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("decode metadata %s: %w", group.metadata, err)
		}
		record.PlanNumber = group.number
		record.FilePath = group.metadata
		s.fillHeader(ctx, record, group)
		return record, raw, nil
	}
	if s.extractor == nil || group.sbcPDF == "" {
		return nil, nil, fmt.Errorf("plan %s has no metadata and no extractable pdf", group.number)
	}
	pdf, err := s.store.Get(ctx, group.sbcPDF)
	if err != nil {
		return nil, nil, fmt.Errorf("read pdf %s: %w", group.sbcPDF, err)
	}
	result := s.extractor.Extract(ctx, pdf)
	record := &model.PlanRecord{
		PlanNumber:           group.number,
		QAData:               result.QAData,
		MedicalEvents:        result.MedicalEventsData,
		ExcludedServices:     extract.ParseListItems(result.ExcludedServices),
		OtherCoveredServices: extract.ParseListItems(result.OtherCoveredServices),
		FilePath:             group.sbcPDF,
	}
	s.fillHeader(ctx, record, group)
	return record, nil, nil
}

// loadTextChunks strips a plan's markdown body to plain text and splits
// it into chunk documents. Failures degrade to structured-only indexing
// rather than dropping the plan.
func (s *IngestService) loadTextChunks(ctx context.Context, record *model.PlanRecord, name string) []model.IndexDocument {
	raw, err := s.store.Get(ctx, name)
	if err != nil {
		logutil.GetLogger(ctx).Warn("read markdown failed", zap.String("name", name), zap.Error(err))
		return nil
	}
	text := extract.MarkdownToText(string(raw))
	return s.asm.AssembleText(record, name, text)
}

func (s *IngestService) fillHeader(ctx context.Context, record *model.PlanRecord, group planFiles) {
	if record.Indexable() || s.extractor == nil || group.sobPDF == "" {
		return
	}
	pdf, err := s.store.Get(ctx, group.sobPDF)
	if err != nil {
		logutil.GetLogger(ctx).Warn("read sob pdf failed", zap.String("name", group.sobPDF), zap.Error(err))
		return
	}
	name, state := s.extractor.ExtractHeader(ctx, pdf)
	if record.PlanName == "" {
		record.PlanName = name
	}
	if record.State == "" {
		record.State = state
	}
}

// groupPlanFiles matches SOB_/SBC_ files by plan number, the naming the
// benefits documents arrive with.
func groupPlanFiles(names []string) []planFiles {
	byNumber := map[string]*planFiles{}
	for _, name := range names {
		base := path.Base(name)
		ext := strings.ToLower(path.Ext(base))
		stem := strings.TrimSuffix(base, path.Ext(base))
		parts := strings.SplitN(stem, "_", 2)
		if len(parts) != 2 {
			continue
		}
		fileType, number := strings.ToUpper(parts[0]), parts[1]
		group, ok := byNumber[number]
		if !ok {
			group = &planFiles{number: number}
			byNumber[number] = group
		}
		switch {
		case fileType == "SBC" && ext == ".json":
			group.metadata = name
		case fileType == "SBC" && ext == ".pdf":
			group.sbcPDF = name
		case fileType == "SOB" && ext == ".pdf":
			group.sobPDF = name
		case ext == ".md":
			group.markdown = name
		}
	}
	numbers := make([]string, 0, len(byNumber))
	for number := range byNumber {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)
	out := make([]planFiles, 0, len(numbers))
	for _, number := range numbers {
		out = append(out, *byNumber[number])
	}
	return out
}

// planMetadata tolerates both shapes the extraction step has produced
// over time: bullet text strings or already-split lists for the two
// service fields.
type planMetadata struct {
	PlanName             string               `json:"plan_name"`
	State                string               `json:"state"`
	PlanNumber           string               `json:"plan_number"`
	QAData               []model.QAItem       `json:"qa_data"`
	MedicalEvents        []model.MedicalEvent `json:"medical_events_data"`
	ExcludedServices     json.RawMessage      `json:"excluded_services"`
	OtherCoveredServices json.RawMessage      `json:"other_covered_services"`
}

func decodePlanMetadata(raw []byte) (*model.PlanRecord, error) {
	var meta planMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	excluded, err := decodeServiceList(meta.ExcludedServices)
	if err != nil {
		return nil, fmt.Errorf("excluded_services: %w", err)
	}
	covered, err := decodeServiceList(meta.OtherCoveredServices)
	if err != nil {
		return nil, fmt.Errorf("other_covered_services: %w", err)
	}
	return &model.PlanRecord{
		PlanName:             meta.PlanName,
		State:                meta.State,
		PlanNumber:           meta.PlanNumber,
		QAData:               meta.QAData,
		MedicalEvents:        meta.MedicalEvents,
		ExcludedServices:     excluded,
		OtherCoveredServices: covered,
	}, nil
}

func decodeServiceList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return extract.ParseListItems(text), nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}
