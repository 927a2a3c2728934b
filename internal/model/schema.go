package model

// Field types follow the EDM names the backing engines understand.
const (
	FieldTypeString           = "Edm.String"
	FieldTypeDouble           = "Edm.Double"
	FieldTypeDateTimeOffset   = "Edm.DateTimeOffset"
	FieldTypeStringCollection = "Collection(Edm.String)"
)

// FieldDefinition describes one index field. Exactly one field per schema
// has Key set; collection fields are never sortable.
type FieldDefinition struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Key        bool   `json:"key"`
	Searchable bool   `json:"searchable"`
	Filterable bool   `json:"filterable"`
	Sortable   bool   `json:"sortable"`
	Facetable  bool   `json:"facetable"`
}

func (f FieldDefinition) IsCollection() bool {
	return f.Type == FieldTypeStringCollection
}

// ScoringProfile is a named field-to-weight mapping used for lexical
// relevance.
type ScoringProfile struct {
	Name    string             `json:"name"`
	Weights map[string]float64 `json:"weights"`
}

// SemanticConfiguration names which fields act as title, content and
// keywords during semantic re-ranking.
type SemanticConfiguration struct {
	Name          string   `json:"name"`
	TitleField    string   `json:"title_field"`
	ContentFields []string `json:"content_fields"`
	KeywordFields []string `json:"keyword_fields"`
}

// IndexSchema is everything an engine needs to create an index.
type IndexSchema struct {
	Name           string                 `json:"name"`
	Fields         []FieldDefinition      `json:"fields"`
	ScoringProfile *ScoringProfile        `json:"scoring_profile,omitempty"`
	SemanticConfig *SemanticConfiguration `json:"semantic_config,omitempty"`
}

func (s *IndexSchema) KeyField() (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Key {
			return f, true
		}
	}
	return FieldDefinition{}, false
}
