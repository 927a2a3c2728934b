// Package schema derives and validates search index field schemas from
// sample document records.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/healrag/healrag/internal/model"
)

// KV is one key/value pair of a record. Records keep their key order so
// inference output is deterministic for a fixed input.
type KV struct {
	Key   string
	Value interface{}
}

type Record []KV

// DecodeRecord parses a JSON object while preserving key order, which
// encoding/json maps would lose.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode record: not a JSON object")
	}
	var rec Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode record: non-string key")
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode record field %q: %w", key, err)
		}
		rec = append(rec, KV{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// Field names that always map to Edm.DateTimeOffset regardless of the
// sampled value.
var dateFields = map[string]bool{
	"creation_date":      true,
	"last_modified_date": true,
}

// InferFields derives a deduplicated ordered field list from sample
// records. The key field (chunk_id) and parent_id are always emitted
// first; remaining keys follow in first-seen order across records.
// Classification never fails: unknown shapes become searchable strings.
func InferFields(records ...Record) []model.FieldDefinition {
	fields := []model.FieldDefinition{
		{
			Name:       "chunk_id",
			Type:       model.FieldTypeString,
			Key:        true,
			Searchable: false,
			Filterable: true,
			Sortable:   true,
		},
		{
			Name:       "parent_id",
			Type:       model.FieldTypeString,
			Searchable: true,
			Filterable: true,
			Sortable:   true,
		},
	}
	seen := map[string]bool{"chunk_id": true, "parent_id": true}

	for _, rec := range records {
		for _, kv := range rec {
			if seen[kv.Key] {
				continue
			}
			seen[kv.Key] = true
			fields = append(fields, classify(kv.Key, kv.Value))
		}
	}
	return fields
}

func classify(name string, value interface{}) model.FieldDefinition {
	if dateFields[name] {
		return model.FieldDefinition{
			Name:       name,
			Type:       model.FieldTypeDateTimeOffset,
			Filterable: true,
			Sortable:   true,
		}
	}
	switch value.(type) {
	case []interface{}:
		// Collection fields cannot be sortable.
		return model.FieldDefinition{
			Name:       name,
			Type:       model.FieldTypeStringCollection,
			Searchable: true,
			Filterable: true,
		}
	case string:
		return model.FieldDefinition{
			Name:       name,
			Type:       model.FieldTypeString,
			Searchable: true,
			Filterable: true,
			Sortable:   true,
		}
	case json.Number, float64, int, int64:
		return model.FieldDefinition{
			Name:       name,
			Type:       model.FieldTypeDouble,
			Filterable: true,
			Sortable:   true,
			Facetable:  true,
		}
	default:
		// Objects and anything unexpected are indexed as their JSON text.
		return model.FieldDefinition{
			Name:       name,
			Type:       model.FieldTypeString,
			Searchable: true,
			Filterable: true,
		}
	}
}
