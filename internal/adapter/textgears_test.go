package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

func grammarJob(text string) domain.ConversionJob {
	return domain.ConversionJob{ID: "job-1", Kind: domain.JobGrammarCheck, Text: text}
}

func TestTextGearsAdapter_Convert(t *testing.T) {
	report := `{"status":true,"response":{"errors":[{"id":"e1","bad":"has went","better":["went"]}]}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/grammar" {
			t.Errorf("path = %s, want /grammar", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if got := r.PostFormValue("key"); got != "tg_test_valid" {
			t.Errorf("key = %q, want tg_test_valid", got)
		}
		if got := r.PostFormValue("text"); got != "He has went home." {
			t.Errorf("text = %q, want submitted prose", got)
		}
		if got := r.PostFormValue("language"); got != "en-US" {
			t.Errorf("language = %q, want en-US", got)
		}
		fmt.Fprint(w, report)
	}))
	defer server.Close()

	a := NewTextGearsAdapter(WithTextGearsBaseURL(server.URL))
	result, err := a.Convert(context.Background(), "tg_test_valid", grammarJob("He has went home."))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if string(result.Content) != report {
		t.Errorf("Content = %q, want the raw findings report", result.Content)
	}
	if result.ContentType != "application/json" {
		t.Errorf("ContentType = %q, want application/json", result.ContentType)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "1 grammar issue") {
		t.Errorf("Warnings = %v, want one findings note", result.Warnings)
	}
}

func TestTextGearsAdapter_Convert_CleanText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":true,"response":{"errors":[]}}`)
	}))
	defer server.Close()

	a := NewTextGearsAdapter(WithTextGearsBaseURL(server.URL))
	result, err := a.Convert(context.Background(), "tg_test_valid", grammarJob("All good here."))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none for a clean report", result.Warnings)
	}
}

func TestTextGearsAdapter_Convert_InvalidKey(t *testing.T) {
	// TextGears also signals failures inside HTTP 200 via "status":false.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":false,"error_code":403,"description":"Invalid API key"}`)
	}))
	defer server.Close()

	a := NewTextGearsAdapter(WithTextGearsBaseURL(server.URL))
	_, err := a.Convert(context.Background(), "tg_test_bogus", grammarJob("text"))

	perr, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("Convert() error = %v, want *ProviderError", err)
	}
	if perr.Outcome != OutcomeInvalidCredential {
		t.Errorf("Outcome = %s, want %s", perr.Outcome, OutcomeInvalidCredential)
	}
}

func TestTextGearsAdapter_Convert_QuotaExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":false,"error_code":402,"description":"Request limit reached"}`)
	}))
	defer server.Close()

	a := NewTextGearsAdapter(WithTextGearsBaseURL(server.URL))
	_, err := a.Convert(context.Background(), "tg_test_spent", grammarJob("text"))

	perr, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("Convert() error = %v, want *ProviderError", err)
	}
	if perr.Outcome != OutcomeQuotaExceeded {
		t.Errorf("Outcome = %s, want %s", perr.Outcome, OutcomeQuotaExceeded)
	}
}

func TestTextGearsAdapter_Convert_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `upstream unavailable`)
	}))
	defer server.Close()

	a := NewTextGearsAdapter(WithTextGearsBaseURL(server.URL))
	_, err := a.Convert(context.Background(), "tg_test_valid", grammarJob("text"))

	perr, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("Convert() error = %v, want *ProviderError", err)
	}
	if perr.Outcome != OutcomeTransient {
		t.Errorf("Outcome = %s, want %s", perr.Outcome, OutcomeTransient)
	}
}

func TestTextGearsAdapter_Convert_UnsupportedKind(t *testing.T) {
	a := NewTextGearsAdapter()

	_, err := a.Convert(context.Background(), "tg_test_valid", domain.ConversionJob{Kind: domain.JobDocToPdf})
	perr, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("Convert() error = %v, want *ProviderError", err)
	}
	if perr.Outcome != OutcomePermanent {
		t.Errorf("Outcome = %s, want %s", perr.Outcome, OutcomePermanent)
	}
}
