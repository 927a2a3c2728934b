package schema

import (
	"reflect"
	"testing"

	"github.com/healrag/healrag/internal/model"
)

func TestDecodeRecordKeepsKeyOrder(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"b": 1, "a": "x", "c": [1,2]}`))
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, kv := range rec {
		keys = append(keys, kv.Key)
	}
	if !reflect.DeepEqual(keys, []string{"b", "a", "c"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestInferFields(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{
		"plan_name": "Gold 1500",
		"state": "ME",
		"qa_data": [{"question": "q", "answer": "a"}],
		"file_size": 1024,
		"creation_date": 1700000000,
		"metadata": {"k": "v"}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	fields := InferFields(rec)

	byName := map[string]model.FieldDefinition{}
	for _, f := range fields {
		if _, dup := byName[f.Name]; dup {
			t.Fatalf("duplicate field %s", f.Name)
		}
		byName[f.Name] = f
	}

	if fields[0].Name != "chunk_id" || !fields[0].Key || fields[0].Searchable {
		t.Errorf("first field = %+v, want non-searchable chunk_id key", fields[0])
	}
	if fields[1].Name != "parent_id" || !fields[1].Searchable {
		t.Errorf("second field = %+v, want searchable parent_id", fields[1])
	}
	if f := byName["qa_data"]; f.Type != model.FieldTypeStringCollection || f.Sortable {
		t.Errorf("qa_data = %+v, want non-sortable string collection", f)
	}
	if f := byName["plan_name"]; f.Type != model.FieldTypeString || !f.Searchable || !f.Sortable {
		t.Errorf("plan_name = %+v", f)
	}
	if f := byName["file_size"]; f.Type != model.FieldTypeDouble || f.Searchable || !f.Facetable {
		t.Errorf("file_size = %+v", f)
	}
	if f := byName["creation_date"]; f.Type != model.FieldTypeDateTimeOffset {
		t.Errorf("creation_date = %+v", f)
	}
	if f := byName["metadata"]; f.Type != model.FieldTypeString || !f.Searchable {
		t.Errorf("metadata = %+v", f)
	}

	keyCount := 0
	for _, f := range fields {
		if f.Key {
			keyCount++
		}
		if f.IsCollection() && f.Sortable {
			t.Errorf("collection field %s is sortable", f.Name)
		}
	}
	if keyCount != 1 {
		t.Errorf("key field count = %d", keyCount)
	}
}

func TestInferFieldsIdempotent(t *testing.T) {
	rec, _ := DecodeRecord([]byte(`{"plan_name": "x", "tags": ["a"], "count": 2}`))
	first := InferFields(rec, rec)
	second := InferFields(rec, rec)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("inference not deterministic:\n%v\n%v", first, second)
	}
}

func TestInferFieldsDedupAcrossRecords(t *testing.T) {
	r1, _ := DecodeRecord([]byte(`{"plan_name": "x"}`))
	r2, _ := DecodeRecord([]byte(`{"plan_name": "y", "state": "ME"}`))
	fields := InferFields(r1, r2)
	names := map[string]int{}
	for _, f := range fields {
		names[f.Name]++
	}
	if names["plan_name"] != 1 {
		t.Errorf("plan_name emitted %d times", names["plan_name"])
	}
	if names["state"] != 1 {
		t.Errorf("state missing or duplicated: %d", names["state"])
	}
}

func TestValidate(t *testing.T) {
	valid := &model.IndexSchema{Name: "plans", Fields: InsuranceFields()}
	if err := Validate(valid); err != nil {
		t.Fatalf("insurance schema should validate: %v", err)
	}

	tests := []struct {
		name   string
		schema *model.IndexSchema
	}{
		{"no key", &model.IndexSchema{Name: "x", Fields: []model.FieldDefinition{
			{Name: "a", Type: model.FieldTypeString},
		}}},
		{"two keys", &model.IndexSchema{Name: "x", Fields: []model.FieldDefinition{
			{Name: "a", Type: model.FieldTypeString, Key: true},
			{Name: "b", Type: model.FieldTypeString, Key: true},
		}}},
		{"duplicate names", &model.IndexSchema{Name: "x", Fields: []model.FieldDefinition{
			{Name: "a", Type: model.FieldTypeString, Key: true},
			{Name: "a", Type: model.FieldTypeString},
		}}},
		{"unsupported type", &model.IndexSchema{Name: "x", Fields: []model.FieldDefinition{
			{Name: "a", Type: model.FieldTypeString, Key: true},
			{Name: "b", Type: "Edm.GeographyPoint"},
		}}},
		{"sortable collection", &model.IndexSchema{Name: "x", Fields: []model.FieldDefinition{
			{Name: "a", Type: model.FieldTypeString, Key: true},
			{Name: "b", Type: model.FieldTypeStringCollection, Sortable: true},
		}}},
		{"empty", &model.IndexSchema{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema)
			if err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
