package model

import (
	"strings"
)

type SearchType string

const (
	SearchTypeLexical  SearchType = "lexical"
	SearchTypeSemantic SearchType = "semantic"
	SearchTypeHybrid   SearchType = "hybrid"
)

func (t SearchType) Valid() bool {
	switch t {
	case SearchTypeLexical, SearchTypeSemantic, SearchTypeHybrid:
		return true
	}
	return false
}

// SemanticRanking reports whether the engine should apply semantic
// re-ranking. Hybrid keeps lexical matching active as well.
func (t SearchType) SemanticRanking() bool {
	return t == SearchTypeSemantic || t == SearchTypeHybrid
}

// SearchRequest is the composed request handed to a search engine backend.
type SearchRequest struct {
	Query          string
	Top            int
	Filter         *Filter
	Select         []string
	SearchType     SearchType
	ScoringProfile string
	SemanticConfig string
}

// SearchResult is one ranked hit: the selected fields plus the
// engine-assigned relevance score.
type SearchResult struct {
	Fields map[string]interface{}
	Score  float64
}

func (r SearchResult) StringField(name string) string {
	v, ok := r.Fields[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (r SearchResult) ListField(name string) []string {
	switch v := r.Fields[name].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// FilterClause is one `field eq 'value'` comparison over a filterable
// field.
type FilterClause struct {
	Field string
	Value string
}

// Filter is a conjunctive boolean expression over filterable fields,
// rendered in OData style. Composition is AND-only.
type Filter struct {
	Clauses []FilterClause
}

func Eq(field, value string) *Filter {
	return &Filter{Clauses: []FilterClause{{Field: field, Value: value}}}
}

// And returns the conjunction of f and other. Either side may be nil.
func (f *Filter) And(other *Filter) *Filter {
	if f == nil || len(f.Clauses) == 0 {
		return other
	}
	if other == nil || len(other.Clauses) == 0 {
		return f
	}
	merged := make([]FilterClause, 0, len(f.Clauses)+len(other.Clauses))
	merged = append(merged, f.Clauses...)
	merged = append(merged, other.Clauses...)
	return &Filter{Clauses: merged}
}

func (f *Filter) String() string {
	if f == nil || len(f.Clauses) == 0 {
		return ""
	}
	parts := make([]string, 0, len(f.Clauses))
	for _, c := range f.Clauses {
		parts = append(parts, "("+c.Field+" eq '"+strings.ReplaceAll(c.Value, "'", "''")+"')")
	}
	return strings.Join(parts, " and ")
}

// ParseFilter reads a conjunctive OData-like expression of the form
// `field eq 'value' and field eq 'value'`. Parentheses around individual
// comparisons are accepted. Anything else is rejected.
func ParseFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	filter := &Filter{}
	for _, part := range splitAnd(expr) {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "(")
		part = strings.TrimSuffix(part, ")")
		part = strings.TrimSpace(part)
		idx := strings.Index(part, " eq ")
		if idx <= 0 {
			return nil, &FilterError{Expr: expr, Part: part}
		}
		field := strings.TrimSpace(part[:idx])
		value := strings.TrimSpace(part[idx+4:])
		if !strings.HasPrefix(value, "'") || !strings.HasSuffix(value, "'") || len(value) < 2 {
			return nil, &FilterError{Expr: expr, Part: part}
		}
		value = strings.ReplaceAll(value[1:len(value)-1], "''", "'")
		filter.Clauses = append(filter.Clauses, FilterClause{Field: field, Value: value})
	}
	return filter, nil
}

// splitAnd splits on ` and ` outside of quoted values.
func splitAnd(expr string) []string {
	var parts []string
	var sb strings.Builder
	inQuote := false
	i := 0
	for i < len(expr) {
		if expr[i] == '\'' {
			inQuote = !inQuote
			sb.WriteByte(expr[i])
			i++
			continue
		}
		if !inQuote && hasFoldPrefix(expr[i:], " and ") {
			parts = append(parts, sb.String())
			sb.Reset()
			i += len(" and ")
			continue
		}
		sb.WriteByte(expr[i])
		i++
	}
	parts = append(parts, sb.String())
	return parts
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

type FilterError struct {
	Expr string
	Part string
}

func (e *FilterError) Error() string {
	return "unsupported filter expression: " + e.Part
}
