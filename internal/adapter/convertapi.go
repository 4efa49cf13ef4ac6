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

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// DefaultConvertAPIBaseURL is the default ConvertAPI endpoint.
const DefaultConvertAPIBaseURL = "https://v2.convertapi.com"

// ConvertAPIAdapter implements ProviderAdapter for the ConvertAPI service.
// It serves doc-to-pdf, images-to-pdf and merge-pdf jobs over ConvertAPI's
// JSON interface with bearer-token authentication.
type ConvertAPIAdapter struct {
	baseURL    string
	httpClient *http.Client
}

// ConvertAPIOption is a functional option for configuring ConvertAPIAdapter.
type ConvertAPIOption func(*ConvertAPIAdapter)

// WithConvertAPIBaseURL sets a custom base URL for the ConvertAPI service.
func WithConvertAPIBaseURL(url string) ConvertAPIOption {
	return func(a *ConvertAPIAdapter) {
		a.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithConvertAPIHTTPClient sets a custom HTTP client.
func WithConvertAPIHTTPClient(client *http.Client) ConvertAPIOption {
	return func(a *ConvertAPIAdapter) {
		a.httpClient = client
	}
}

// NewConvertAPIAdapter creates a ConvertAPI adapter.
func NewConvertAPIAdapter(opts ...ConvertAPIOption) *ConvertAPIAdapter {
	a := &ConvertAPIAdapter{
		baseURL: DefaultConvertAPIBaseURL,
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
func (a *ConvertAPIAdapter) Provider() domain.ProviderType {
	return domain.ProviderConvertAPI
}

// Convert executes the job against ConvertAPI using the given secret.
func (a *ConvertAPIAdapter) Convert(ctx context.Context, secret string, job domain.ConversionJob) (*domain.ConversionResult, error) {
	route, err := a.route(job)
	if err != nil {
		return nil, err
	}

	reqBody := convertAPIRequest{
		Parameters: []convertAPIParameter{
			{Name: "Files", FileValues: toConvertAPIFiles(job.Files)},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal convertapi request: %w", err)
	}

	url := a.baseURL + route
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+secret)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(domain.ProviderConvertAPI, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(domain.ProviderConvertAPI, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, a.classify(resp.StatusCode, respBody)
	}

	var apiResp convertAPIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil || len(apiResp.Files) == 0 {
		return nil, &ProviderError{
			Provider:   domain.ProviderConvertAPI,
			Outcome:    OutcomeTransient,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response payload",
			Err:        err,
		}
	}

	out := apiResp.Files[0]
	content, err := base64.StdEncoding.DecodeString(out.FileData)
	if err != nil {
		return nil, &ProviderError{
			Provider:   domain.ProviderConvertAPI,
			Outcome:    OutcomeTransient,
			StatusCode: resp.StatusCode,
			Message:    "undecodable file payload",
			Err:        err,
		}
	}

	fileName := out.FileName
	if fileName == "" {
		fileName = a.defaultOutputName(job)
	}

	return &domain.ConversionResult{
		JobID:       job.ID,
		FileName:    fileName,
		Content:     content,
		ContentType: "application/pdf",
		Provider:    domain.ProviderConvertAPI,
	}, nil
}

// route maps the job kind onto ConvertAPI's convert path.
func (a *ConvertAPIAdapter) route(job domain.ConversionJob) (string, error) {
	switch job.Kind {
	case domain.JobDocToPdf:
		from := "docx"
		if len(job.Files) > 0 {
			from = fileExt(job.Files[0].Name, "docx")
		}
		return "/convert/" + from + "/to/pdf", nil
	case domain.JobImagesToPdf:
		return "/convert/images/to/pdf", nil
	case domain.JobMergePdfs:
		return "/convert/pdf/to/merge", nil
	default:
		return "", &ProviderError{
			Provider: domain.ProviderConvertAPI,
			Outcome:  OutcomePermanent,
			Message:  fmt.Sprintf("unsupported job kind %s", job.Kind),
		}
	}
}

// defaultOutputName names the output when the provider response carries
// no filename.
func (a *ConvertAPIAdapter) defaultOutputName(job domain.ConversionJob) string {
	switch job.Kind {
	case domain.JobMergePdfs:
		return "merged.pdf"
	default:
		if len(job.Files) > 0 {
			return outputName(job.Files[0].Name, "pdf")
		}
		return "converted.pdf"
	}
}

// classify turns a non-200 ConvertAPI response into a ProviderError.
func (a *ConvertAPIAdapter) classify(status int, body []byte) *ProviderError {
	message := strings.TrimSpace(string(body))
	code := ""

	var apiErr convertAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		message = apiErr.Message
		if apiErr.Code != 0 {
			code = strconv.Itoa(apiErr.Code)
		}
	}

	outcome := classifyStatus(status)
	if outcome == OutcomePermanent && mentionsQuota(message) {
		outcome = OutcomeQuotaExceeded
	}

	return &ProviderError{
		Provider:   domain.ProviderConvertAPI,
		Outcome:    outcome,
		StatusCode: status,
		Code:       code,
		Message:    message,
	}
}

// toConvertAPIFiles encodes job inputs into ConvertAPI file values.
func toConvertAPIFiles(files []domain.InputFile) []convertAPIFileValue {
	values := make([]convertAPIFileValue, 0, len(files))
	for _, f := range files {
		values = append(values, convertAPIFileValue{
			Name: f.Name,
			Data: base64.StdEncoding.EncodeToString(f.Content),
		})
	}
	return values
}

// ============================================================================
// ConvertAPI Types
// ============================================================================

// convertAPIRequest is the body of a convert call.
type convertAPIRequest struct {
	Parameters []convertAPIParameter `json:"Parameters"`
}

// convertAPIParameter is a named parameter of a convert call.
type convertAPIParameter struct {
	Name       string                `json:"Name"`
	FileValues []convertAPIFileValue `json:"FileValues,omitempty"`
	Value      string                `json:"Value,omitempty"`
}

// convertAPIFileValue is an inline base64 file payload.
type convertAPIFileValue struct {
	Name string `json:"Name"`
	Data string `json:"Data"`
}

// convertAPIResponse is a successful convert response.
type convertAPIResponse struct {
	ConversionCost int              `json:"ConversionCost"`
	Files          []convertAPIFile `json:"Files"`
}

// convertAPIFile is one output document.
type convertAPIFile struct {
	FileName string `json:"FileName"`
	FileExt  string `json:"FileExt"`
	FileSize int64  `json:"FileSize"`
	FileData string `json:"FileData"`
}

// convertAPIError is the error body ConvertAPI returns with non-200 statuses.
type convertAPIError struct {
	Code    int    `json:"Code"`
	Message string `json:"Message"`
}
