package adapter

import (
	"net/http"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected Outcome
	}{
		{http.StatusUnauthorized, OutcomeInvalidCredential},
		{http.StatusForbidden, OutcomeInvalidCredential},
		{http.StatusPaymentRequired, OutcomeQuotaExceeded},
		{http.StatusTooManyRequests, OutcomeQuotaExceeded},
		{http.StatusInternalServerError, OutcomeTransient},
		{http.StatusBadGateway, OutcomeTransient},
		{http.StatusServiceUnavailable, OutcomeTransient},
		{http.StatusBadRequest, OutcomePermanent},
		{http.StatusUnprocessableEntity, OutcomePermanent},
		{http.StatusNotFound, OutcomePermanent},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %s, want %s", tt.status, got, tt.expected)
		}
	}
}

func TestMentionsQuota(t *testing.T) {
	tests := []struct {
		message  string
		expected bool
	}{
		{"Your monthly quota has been reached", true},
		{"Not enough credits", true},
		{"API seconds left: 0", true},
		{"Daily limit exceeded for this key", true},
		{"Unsupported file format", false},
		{"Malformed request body", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := mentionsQuota(tt.message); got != tt.expected {
			t.Errorf("mentionsQuota(%q) = %v, want %v", tt.message, got, tt.expected)
		}
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		input    string
		ext      string
		expected string
	}{
		{"essay.docx", "pdf", "essay.pdf"},
		{"thesis.v2.doc", "pdf", "thesis.v2.pdf"},
		{"noextension", "pdf", "noextension.pdf"},
		{"", "pdf", "converted.pdf"},
		{"scan.pdf", "docx", "scan.docx"},
	}

	for _, tt := range tests {
		if got := outputName(tt.input, tt.ext); got != tt.expected {
			t.Errorf("outputName(%q, %q) = %q, want %q", tt.input, tt.ext, got, tt.expected)
		}
	}
}

func TestFileExt(t *testing.T) {
	tests := []struct {
		name     string
		fallback string
		expected string
	}{
		{"report.DOCX", "docx", "docx"},
		{"image.jpeg", "jpg", "jpeg"},
		{"plain", "docx", "docx"},
		{"trailing.", "docx", "docx"},
	}

	for _, tt := range tests {
		if got := fileExt(tt.name, tt.fallback); got != tt.expected {
			t.Errorf("fileExt(%q, %q) = %q, want %q", tt.name, tt.fallback, got, tt.expected)
		}
	}
}

func TestProviderError_Error(t *testing.T) {
	withStatus := &ProviderError{
		Provider:   "convertapi",
		Outcome:    OutcomeQuotaExceeded,
		StatusCode: 429,
		Message:    "quota spent",
	}
	if got := withStatus.Error(); got != "convertapi attempt failed (quota_exceeded) [429]: quota spent" {
		t.Errorf("Error() = %q", got)
	}

	transport := &ProviderError{
		Provider: "pdfco",
		Outcome:  OutcomeTransient,
		Message:  "connection refused",
	}
	if got := transport.Error(); got != "pdfco attempt failed (transient): connection refused" {
		t.Errorf("Error() = %q", got)
	}
}
