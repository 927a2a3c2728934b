package schema

import "github.com/healrag/healrag/internal/model"

// InsuranceFields is the static schema used for insurance plan indexes.
// It matches the documents the assembler produces.
func InsuranceFields() []model.FieldDefinition {
	str := func(name string) model.FieldDefinition {
		return model.FieldDefinition{Name: name, Type: model.FieldTypeString, Searchable: true, Filterable: true, Sortable: true}
	}
	coll := func(name string) model.FieldDefinition {
		return model.FieldDefinition{Name: name, Type: model.FieldTypeStringCollection, Searchable: true, Filterable: true}
	}
	fields := []model.FieldDefinition{
		{Name: "chunk_id", Type: model.FieldTypeString, Key: true, Filterable: true, Sortable: true},
		{Name: "content", Type: model.FieldTypeString, Searchable: true},
		str("parent_id"),
		str("plan_name"),
		str("state"),
		str("plan_number"),
		str("file_type"),
		str("file_path"),
	}
	for _, name := range []string{
		"excluded_services",
		"other_covered_services",
		"qa_questions",
		"qa_answers",
		"qa_why_this_matters",
		"medical_events",
		"medical_services",
		"medical_costs",
		"medical_limitations",
	} {
		fields = append(fields, coll(name))
	}
	return fields
}

func InsuranceScoringProfile() *model.ScoringProfile {
	return &model.ScoringProfile{
		Name: "insurancePlansScoring",
		Weights: map[string]float64{
			"content":                3.0,
			"plan_name":              2.0,
			"state":                  1.5,
			"qa_questions":           1.0,
			"qa_answers":             1.0,
			"qa_why_this_matters":    1.0,
			"medical_events":         1.0,
			"medical_services":       1.0,
			"medical_costs":          1.0,
			"excluded_services":      1.0,
			"other_covered_services": 1.0,
		},
	}
}

func InsuranceSemanticConfig() *model.SemanticConfiguration {
	return &model.SemanticConfiguration{
		Name:       "insurancePlansSemantic",
		TitleField: "plan_name",
		ContentFields: []string{
			"content",
			"qa_questions",
			"qa_answers",
			"qa_why_this_matters",
			"medical_events",
			"medical_services",
			"medical_costs",
			"excluded_services",
			"other_covered_services",
		},
		KeywordFields: []string{"plan_name", "state"},
	}
}
