package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestParseListItems(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			"bullets",
			"• Cosmetic surgery • Dental care • Long-term care",
			[]string{"Cosmetic surgery", "Dental care", "Long-term care"},
		},
		{
			"middle dot variant",
			"· Acupuncture · Weight loss programs",
			[]string{"Acupuncture", "Weight loss programs"},
		},
		{
			"mixed markers",
			"• Hearing aids · Routine eye care",
			[]string{"Hearing aids", "Routine eye care"},
		},
		{"empty", "", nil},
		{"only markers", "• · •", nil},
		{"no markers", "Routine foot care", []string{"Routine foot care"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseListItems(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseListItems(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMarkdownToText(t *testing.T) {
	in := "# Gold 1500\n\nThe **deductible** is $1,500\nper person.\n\n- Copay: $25\n- Coinsurance: 20%\n"
	got := MarkdownToText(in)
	want := "Gold 1500\nThe deductible is $1,500 per person.\nCopay: $25\nCoinsurance: 20%"
	if got != want {
		t.Errorf("MarkdownToText:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestHTTPServiceExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"qa_data": [{"question": "What is the deductible?", "answer": "$1,500", "why_this_matters": "It is what you pay first."}],
			"medical_events_data": [],
			"excluded_services": "• Cosmetic surgery",
			"other_covered_services": ""
		}`))
	}))
	defer srv.Close()

	svc := NewHTTPService(srv.URL, time.Second)
	result := svc.Extract(context.Background(), []byte("%PDF"))
	if len(result.QAData) != 1 || result.QAData[0].Question != "What is the deductible?" {
		t.Errorf("result = %+v", result)
	}
	if got := ParseListItems(result.ExcludedServices); len(got) != 1 || got[0] != "Cosmetic surgery" {
		t.Errorf("excluded = %v", got)
	}
}

func TestHTTPServiceFailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewHTTPService(srv.URL, time.Second)
	result := svc.Extract(context.Background(), []byte("%PDF"))
	if len(result.QAData) != 0 || result.ExcludedServices != "" {
		t.Errorf("failed extraction must yield empty fields, got %+v", result)
	}
	name, state := svc.ExtractHeader(context.Background(), []byte("%PDF"))
	if name != "" || state != "" {
		t.Errorf("failed header extraction must yield empty strings, got %q/%q", name, state)
	}
}
