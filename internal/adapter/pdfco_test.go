package adapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

func TestPDFCoAdapter_Convert_PdfToDoc(t *testing.T) {
	docxBytes := []byte("PK docx payload")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pdf/convert/to/doc" {
			t.Errorf("path = %s, want /pdf/convert/to/doc", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "pk_test_valid" {
			t.Errorf("x-api-key = %q, want pk_test_valid", got)
		}

		var req pdfcoConvertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request body decode error = %v", err)
		}
		if req.Name != "scan.docx" {
			t.Errorf("request name = %q, want scan.docx", req.Name)
		}
		if req.FileData == "" {
			t.Error("request fileData is empty")
		}

		json.NewEncoder(w).Encode(pdfcoResponse{
			Name:   "scan.docx",
			Body:   base64.StdEncoding.EncodeToString(docxBytes),
			Error:  false,
			Status: 200,
		})
	}))
	defer server.Close()

	a := NewPDFCoAdapter(WithPDFCoBaseURL(server.URL))
	result, err := a.Convert(context.Background(), "pk_test_valid", docJob(domain.JobPdfToDoc, "scan.pdf"))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if result.FileName != "scan.docx" {
		t.Errorf("FileName = %q, want scan.docx", result.FileName)
	}
	if string(result.Content) != string(docxBytes) {
		t.Errorf("Content = %q, want decoded docx bytes", result.Content)
	}
	if result.ContentType != docxContentType {
		t.Errorf("ContentType = %q, want %q", result.ContentType, docxContentType)
	}
	if result.Provider != domain.ProviderPDFCo {
		t.Errorf("Provider = %s, want %s", result.Provider, domain.ProviderPDFCo)
	}
}

func TestPDFCoAdapter_Convert_Merge(t *testing.T) {
	merged := []byte("%PDF-1.4 merged")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pdf/merge" {
			t.Errorf("path = %s, want /pdf/merge", r.URL.Path)
		}

		var req pdfcoMergeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request body decode error = %v", err)
		}
		if len(req.Files) != 2 {
			t.Errorf("len(files) = %d, want 2", len(req.Files))
		}

		json.NewEncoder(w).Encode(pdfcoResponse{
			Name:   "merged.pdf",
			Body:   base64.StdEncoding.EncodeToString(merged),
			Status: 200,
		})
	}))
	defer server.Close()

	a := NewPDFCoAdapter(WithPDFCoBaseURL(server.URL))
	result, err := a.Convert(context.Background(), "pk_test_valid", docJob(domain.JobMergePdfs, "a.pdf", "b.pdf"))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if result.FileName != "merged.pdf" {
		t.Errorf("FileName = %q, want merged.pdf", result.FileName)
	}
	if result.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q, want application/pdf", result.ContentType)
	}
}

func TestPDFCoAdapter_Convert_ErrorInside200(t *testing.T) {
	// PDF.co reports quota failures as HTTP 200 with an error body.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":true,"status":402,"message":"Not enough credits"}`)
	}))
	defer server.Close()

	a := NewPDFCoAdapter(WithPDFCoBaseURL(server.URL))
	_, err := a.Convert(context.Background(), "pk_test_spent", docJob(domain.JobPdfToDoc, "scan.pdf"))

	perr, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("Convert() error = %v, want *ProviderError", err)
	}
	if perr.Outcome != OutcomeQuotaExceeded {
		t.Errorf("Outcome = %s, want %s", perr.Outcome, OutcomeQuotaExceeded)
	}
	if perr.StatusCode != 402 {
		t.Errorf("StatusCode = %d, want body status 402", perr.StatusCode)
	}
}

func TestPDFCoAdapter_Classify(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		expectedOutcome Outcome
		expectNil       bool
	}{
		{
			name:      "clean 200",
			status:    http.StatusOK,
			body:      `{"error":false,"status":200,"name":"out.docx","body":"AAAA"}`,
			expectNil: true,
		},
		{
			name:            "200 carrying invalid key",
			status:          http.StatusOK,
			body:            `{"error":true,"status":401,"message":"Bad API key"}`,
			expectedOutcome: OutcomeInvalidCredential,
		},
		{
			name:            "200 carrying server error",
			status:          http.StatusOK,
			body:            `{"error":true,"status":500,"message":"Worker timeout"}`,
			expectedOutcome: OutcomeTransient,
		},
		{
			name:            "real 429",
			status:          http.StatusTooManyRequests,
			body:            `{"error":true,"status":429,"message":"Rate limited"}`,
			expectedOutcome: OutcomeQuotaExceeded,
		},
		{
			name:            "non-json error body",
			status:          http.StatusBadGateway,
			body:            `bad gateway`,
			expectedOutcome: OutcomeTransient,
		},
		{
			name:            "200 carrying unprocessable input",
			status:          http.StatusOK,
			body:            `{"error":true,"status":422,"message":"Damaged PDF structure"}`,
			expectedOutcome: OutcomePermanent,
		},
	}

	a := NewPDFCoAdapter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := a.classify(tt.status, []byte(tt.body))
			if tt.expectNil {
				if perr != nil {
					t.Fatalf("classify() = %v, want nil", perr)
				}
				return
			}
			if perr == nil {
				t.Fatal("classify() = nil, want error")
			}
			if perr.Outcome != tt.expectedOutcome {
				t.Errorf("Outcome = %s, want %s", perr.Outcome, tt.expectedOutcome)
			}
		})
	}
}

func TestPDFCoAdapter_Convert_NoInput(t *testing.T) {
	a := NewPDFCoAdapter()

	_, err := a.Convert(context.Background(), "pk_test_valid", domain.ConversionJob{Kind: domain.JobPdfToDoc})
	perr, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("Convert() error = %v, want *ProviderError", err)
	}
	if perr.Outcome != OutcomePermanent {
		t.Errorf("Outcome = %s, want %s", perr.Outcome, OutcomePermanent)
	}
}
