package schema

import (
	"fmt"

	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
)

var supportedTypes = map[string]bool{
	model.FieldTypeString:           true,
	model.FieldTypeDouble:           true,
	model.FieldTypeDateTimeOffset:   true,
	model.FieldTypeStringCollection: true,
}

// Validate checks the structural invariants an index schema must hold:
// exactly one key field, unique names, supported types, and no sortable
// collections. Failures are fatal and must abort index creation before
// any upload happens.
func Validate(s *model.IndexSchema) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("%w: index name is required", apperr.ErrSchema)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: index %s has no fields", apperr.ErrSchema, s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	keyCount := 0
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field with empty name", apperr.ErrSchema)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field %s", apperr.ErrSchema, f.Name)
		}
		seen[f.Name] = true
		if !supportedTypes[f.Type] {
			return fmt.Errorf("%w: field %s has unsupported type %s", apperr.ErrSchema, f.Name, f.Type)
		}
		if f.Key {
			keyCount++
			if f.Type != model.FieldTypeString {
				return fmt.Errorf("%w: key field %s must be %s", apperr.ErrSchema, f.Name, model.FieldTypeString)
			}
		}
		if f.IsCollection() && f.Sortable {
			return fmt.Errorf("%w: collection field %s cannot be sortable", apperr.ErrSchema, f.Name)
		}
	}
	if keyCount == 0 {
		return fmt.Errorf("%w: no key field found", apperr.ErrSchema)
	}
	if keyCount > 1 {
		return fmt.Errorf("%w: multiple key fields found", apperr.ErrSchema)
	}
	return nil
}
