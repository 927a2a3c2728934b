package model

// QAItem is one question/answer row extracted from an SBC document.
type QAItem struct {
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	WhyThisMatters string `json:"why_this_matters"`
}

// MedicalEvent is one row of the common-medical-events table.
type MedicalEvent struct {
	Event       string `json:"common_medical_event"`
	Services    string `json:"services_you_may_need"`
	Cost        string `json:"what_you_will_pay"`
	Limitations string `json:"limitations_exceptions"`
}

// PlanRecord is the extracted metadata of one insurance plan.
// PlanName and State are required for the record to be indexable.
type PlanRecord struct {
	PlanName             string         `json:"plan_name"`
	State                string         `json:"state"`
	PlanNumber           string         `json:"plan_number"`
	QAData               []QAItem       `json:"qa_data"`
	MedicalEvents        []MedicalEvent `json:"medical_events_data"`
	ExcludedServices     []string       `json:"excluded_services"`
	OtherCoveredServices []string       `json:"other_covered_services"`
	FilePath             string         `json:"file_path"`
}

func (p *PlanRecord) Indexable() bool {
	return p != nil && p.PlanName != "" && p.State != ""
}
