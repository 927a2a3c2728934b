package model

// IndexDocument is the atomic unit stored in the search index. ChunkID is
// the key and stays stable across re-runs for the same source, so a
// repeated population run overwrites rather than duplicates.
type IndexDocument struct {
	ChunkID              string   `json:"chunk_id"`
	ParentID             string   `json:"parent_id"`
	Content              string   `json:"content"`
	PlanName             string   `json:"plan_name"`
	State                string   `json:"state"`
	PlanNumber           string   `json:"plan_number"`
	FileType             string   `json:"file_type"`
	FilePath             string   `json:"file_path"`
	QAQuestions          []string `json:"qa_questions"`
	QAAnswers            []string `json:"qa_answers"`
	QAWhyThisMatters     []string `json:"qa_why_this_matters"`
	MedicalEvents        []string `json:"medical_events"`
	MedicalServices      []string `json:"medical_services"`
	MedicalCosts         []string `json:"medical_costs"`
	MedicalLimitations   []string `json:"medical_limitations"`
	ExcludedServices     []string `json:"excluded_services"`
	OtherCoveredServices []string `json:"other_covered_services"`
}

// Fields returns the document as a field-name keyed map, the shape search
// engine backends consume.
func (d *IndexDocument) Fields() map[string]interface{} {
	return map[string]interface{}{
		"chunk_id":               d.ChunkID,
		"parent_id":              d.ParentID,
		"content":                d.Content,
		"plan_name":              d.PlanName,
		"state":                  d.State,
		"plan_number":            d.PlanNumber,
		"file_type":              d.FileType,
		"file_path":              d.FilePath,
		"qa_questions":           d.QAQuestions,
		"qa_answers":             d.QAAnswers,
		"qa_why_this_matters":    d.QAWhyThisMatters,
		"medical_events":         d.MedicalEvents,
		"medical_services":       d.MedicalServices,
		"medical_costs":          d.MedicalCosts,
		"medical_limitations":    d.MedicalLimitations,
		"excluded_services":      d.ExcludedServices,
		"other_covered_services": d.OtherCoveredServices,
	}
}
