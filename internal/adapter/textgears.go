// Package adapter provides implementations for external conversion provider
// integrations.
package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// DefaultTextGearsBaseURL is the default TextGears endpoint.
const DefaultTextGearsBaseURL = "https://api.textgears.com"

// DefaultGrammarLanguage is the language checked when the job does not
// specify one.
const DefaultGrammarLanguage = "en-US"

// TextGearsAdapter implements ProviderAdapter for the TextGears grammar
// service. Grammar checks ride the same credential rotation as document
// conversions; the output blob is the provider's JSON findings report.
type TextGearsAdapter struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// TextGearsOption is a functional option for configuring TextGearsAdapter.
type TextGearsOption func(*TextGearsAdapter)

// WithTextGearsBaseURL sets a custom base URL for the TextGears service.
func WithTextGearsBaseURL(url string) TextGearsOption {
	return func(a *TextGearsAdapter) {
		a.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithTextGearsLanguage sets the language code sent with every check.
func WithTextGearsLanguage(language string) TextGearsOption {
	return func(a *TextGearsAdapter) {
		a.language = language
	}
}

// WithTextGearsHTTPClient sets a custom HTTP client.
func WithTextGearsHTTPClient(client *http.Client) TextGearsOption {
	return func(a *TextGearsAdapter) {
		a.httpClient = client
	}
}

// NewTextGearsAdapter creates a TextGears adapter.
func NewTextGearsAdapter(opts ...TextGearsOption) *TextGearsAdapter {
	a := &TextGearsAdapter{
		baseURL:  DefaultTextGearsBaseURL,
		language: DefaultGrammarLanguage,
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
func (a *TextGearsAdapter) Provider() domain.ProviderType {
	return domain.ProviderTextGears
}

// Convert runs a grammar check using the given secret. TextGears takes
// the key as a form field rather than a header.
func (a *TextGearsAdapter) Convert(ctx context.Context, secret string, job domain.ConversionJob) (*domain.ConversionResult, error) {
	if job.Kind != domain.JobGrammarCheck {
		return nil, &ProviderError{
			Provider: domain.ProviderTextGears,
			Outcome:  OutcomePermanent,
			Message:  fmt.Sprintf("unsupported job kind %s", job.Kind),
		}
	}

	form := url.Values{}
	form.Set("key", secret)
	form.Set("text", job.Text)
	form.Set("language", a.language)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/grammar", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(domain.ProviderTextGears, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(domain.ProviderTextGears, err)
	}

	if perr := a.classify(resp.StatusCode, respBody); perr != nil {
		return nil, perr
	}

	warnings := summarizeFindings(respBody)

	return &domain.ConversionResult{
		JobID:       job.ID,
		FileName:    "grammar-report.json",
		Content:     respBody,
		ContentType: "application/json",
		Provider:    domain.ProviderTextGears,
		Warnings:    warnings,
	}, nil
}

// classify inspects the response. TextGears signals failure through a
// false status field even on HTTP 200, with the detail in error_code
// and description.
func (a *TextGearsAdapter) classify(status int, body []byte) *ProviderError {
	ok := gjson.GetBytes(body, "status")
	if status == http.StatusOK && ok.Bool() {
		return nil
	}

	message := gjson.GetBytes(body, "description").String()
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	effective := status
	if code := int(gjson.GetBytes(body, "error_code").Int()); code > 0 {
		effective = code
	}

	// A 200 with no usable error code is a malformed provider response,
	// not a verdict on the credential or the job.
	if effective == http.StatusOK {
		return &ProviderError{
			Provider:   domain.ProviderTextGears,
			Outcome:    OutcomeTransient,
			StatusCode: status,
			Message:    "unexpected response payload",
		}
	}

	outcome := classifyStatus(effective)
	if outcome == OutcomePermanent && mentionsQuota(message) {
		outcome = OutcomeQuotaExceeded
	}

	return &ProviderError{
		Provider:   domain.ProviderTextGears,
		Outcome:    outcome,
		StatusCode: status,
		Code:       strconv.Itoa(effective),
		Message:    message,
	}
}

// summarizeFindings turns the findings count into a caller-facing note.
// An all-clear report produces no warnings.
func summarizeFindings(body []byte) []string {
	findings := gjson.GetBytes(body, "response.errors")
	if !findings.Exists() {
		return nil
	}
	count := len(findings.Array())
	if count == 0 {
		return nil
	}
	return []string{fmt.Sprintf("%d grammar issue(s) found", count)}
}
