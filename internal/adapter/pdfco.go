// Package adapter provides implementations for external conversion provider
// integrations.
package adapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// DefaultPDFCoBaseURL is the default PDF.co endpoint.
const DefaultPDFCoBaseURL = "https://api.pdf.co/v1"

// docxContentType is the MIME type of extracted Word documents.
const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// PDFCoAdapter implements ProviderAdapter for the PDF.co service. It
// serves pdf-to-doc extraction and acts as the second merge-pdf provider.
//
// PDF.co has one wire quirk the classifier must handle: failures often
// arrive as HTTP 200 with {"error":true,"status":<code>} in the body, so
// the body is probed before the HTTP status is trusted.
type PDFCoAdapter struct {
	baseURL    string
	httpClient *http.Client
}

// PDFCoOption is a functional option for configuring PDFCoAdapter.
type PDFCoOption func(*PDFCoAdapter)

// WithPDFCoBaseURL sets a custom base URL for the PDF.co service.
func WithPDFCoBaseURL(url string) PDFCoOption {
	return func(a *PDFCoAdapter) {
		a.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithPDFCoHTTPClient sets a custom HTTP client.
func WithPDFCoHTTPClient(client *http.Client) PDFCoOption {
	return func(a *PDFCoAdapter) {
		a.httpClient = client
	}
}

// NewPDFCoAdapter creates a PDF.co adapter.
func NewPDFCoAdapter(opts ...PDFCoOption) *PDFCoAdapter {
	a := &PDFCoAdapter{
		baseURL: DefaultPDFCoBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Provider returns the provider identifier.
func (a *PDFCoAdapter) Provider() domain.ProviderType {
	return domain.ProviderPDFCo
}

// Convert executes the job against PDF.co using the given secret.
func (a *PDFCoAdapter) Convert(ctx context.Context, secret string, job domain.ConversionJob) (*domain.ConversionResult, error) {
	var (
		route        string
		reqBody      any
		contentType  string
		fallbackName string
	)

	switch job.Kind {
	case domain.JobPdfToDoc:
		if len(job.Files) == 0 {
			return nil, &ProviderError{
				Provider: domain.ProviderPDFCo,
				Outcome:  OutcomePermanent,
				Message:  "no input file",
			}
		}
		route = "/pdf/convert/to/doc"
		fallbackName = outputName(job.Files[0].Name, "docx")
		reqBody = pdfcoConvertRequest{
			Name:     fallbackName,
			FileData: base64.StdEncoding.EncodeToString(job.Files[0].Content),
		}
		contentType = docxContentType
	case domain.JobMergePdfs:
		route = "/pdf/merge"
		fallbackName = "merged.pdf"
		reqBody = pdfcoMergeRequest{
			Name:  fallbackName,
			Files: toPDFCoFiles(job.Files),
		}
		contentType = "application/pdf"
	default:
		return nil, &ProviderError{
			Provider: domain.ProviderPDFCo,
			Outcome:  OutcomePermanent,
			Message:  fmt.Sprintf("unsupported job kind %s", job.Kind),
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pdfco request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+route, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", secret)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(domain.ProviderPDFCo, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(domain.ProviderPDFCo, err)
	}

	if perr := a.classify(resp.StatusCode, respBody); perr != nil {
		return nil, perr
	}

	var apiResp pdfcoResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil || apiResp.Body == "" {
		return nil, &ProviderError{
			Provider:   domain.ProviderPDFCo,
			Outcome:    OutcomeTransient,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response payload",
			Err:        err,
		}
	}

	content, err := base64.StdEncoding.DecodeString(apiResp.Body)
	if err != nil {
		return nil, &ProviderError{
			Provider:   domain.ProviderPDFCo,
			Outcome:    OutcomeTransient,
			StatusCode: resp.StatusCode,
			Message:    "undecodable file payload",
			Err:        err,
		}
	}

	fileName := apiResp.Name
	if fileName == "" {
		fileName = fallbackName
	}

	return &domain.ConversionResult{
		JobID:       job.ID,
		FileName:    fileName,
		Content:     content,
		ContentType: contentType,
		Provider:    domain.ProviderPDFCo,
	}, nil
}

// classify inspects both the body and the HTTP status. PDF.co reports
// most failures inside a 200 response, so the body's error flag wins.
func (a *PDFCoAdapter) classify(status int, body []byte) *ProviderError {
	bodyErr := gjson.GetBytes(body, "error").Bool()
	if status == http.StatusOK && !bodyErr {
		return nil
	}

	effective := status
	if bodyStatus := int(gjson.GetBytes(body, "status").Int()); bodyErr && bodyStatus > 0 {
		effective = bodyStatus
	}

	message := gjson.GetBytes(body, "message").String()
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	// An error flag with no usable status code is a malformed provider
	// response, not a verdict on the credential or the job.
	if effective == http.StatusOK {
		return &ProviderError{
			Provider:   domain.ProviderPDFCo,
			Outcome:    OutcomeTransient,
			StatusCode: status,
			Message:    message,
		}
	}

	outcome := classifyStatus(effective)
	if outcome == OutcomePermanent && mentionsQuota(message) {
		outcome = OutcomeQuotaExceeded
	}

	return &ProviderError{
		Provider:   domain.ProviderPDFCo,
		Outcome:    outcome,
		StatusCode: effective,
		Code:       strconv.Itoa(effective),
		Message:    message,
	}
}

// toPDFCoFiles encodes the job inputs into PDF.co merge entries.
func toPDFCoFiles(files []domain.InputFile) []pdfcoFile {
	out := make([]pdfcoFile, 0, len(files))
	for _, f := range files {
		out = append(out, pdfcoFile{
			Name:     f.Name,
			FileData: base64.StdEncoding.EncodeToString(f.Content),
		})
	}
	return out
}

// ============================================================================
// PDF.co Types
// ============================================================================

// pdfcoConvertRequest is the body of a pdf-to-doc call.
type pdfcoConvertRequest struct {
	Name     string `json:"name"`
	FileData string `json:"fileData"`
}

// pdfcoMergeRequest is the body of a merge call.
type pdfcoMergeRequest struct {
	Name  string      `json:"name"`
	Files []pdfcoFile `json:"files"`
}

// pdfcoFile is one inline input document.
type pdfcoFile struct {
	Name     string `json:"name"`
	FileData string `json:"fileData"`
}

// pdfcoResponse is a successful response. Error responses reuse the
// same envelope with Error=true and are handled by classify before
// this struct is consulted.
type pdfcoResponse struct {
	Name   string `json:"name"`
	Body   string `json:"body"`
	Error  bool   `json:"error"`
	Status int    `json:"status"`
}
