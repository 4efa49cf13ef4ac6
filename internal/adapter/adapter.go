// Package adapter provides implementations for external conversion provider
// integrations. It uses the Adapter pattern to abstract provider-specific
// APIs behind a common interface.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// DefaultTimeout is the default HTTP client timeout for provider calls.
const DefaultTimeout = 45 * time.Second

// ProviderAdapter defines the interface for conversion provider adapters.
// All provider implementations must satisfy this interface.
//
// Adapters hold no credentials: the orchestrator selects a credential per
// attempt and passes its secret in. An adapter call either returns the
// converted output or a *ProviderError carrying the outcome classification
// the rotation logic acts on.
type ProviderAdapter interface {
	// Convert executes the job against the provider using the given secret.
	Convert(ctx context.Context, secret string, job domain.ConversionJob) (*domain.ConversionResult, error)

	// Provider returns the service this adapter talks to.
	Provider() domain.ProviderType
}

// Outcome classifies a failed provider attempt. The orchestrator's
// credential handling branches on this value.
type Outcome string

const (
	// OutcomeQuotaExceeded means the credential's allowance is spent.
	OutcomeQuotaExceeded Outcome = "quota_exceeded"

	// OutcomeInvalidCredential means the provider rejected the key as
	// unauthorized.
	OutcomeInvalidCredential Outcome = "invalid_credential"

	// OutcomeTransient means the attempt may succeed if repeated.
	OutcomeTransient Outcome = "transient"

	// OutcomePermanent means the job itself is unprocessable and no
	// retry anywhere can help.
	OutcomePermanent Outcome = "permanent"
)

// ProviderError is the classified failure of one provider attempt.
type ProviderError struct {
	Provider   domain.ProviderType
	Outcome    Outcome
	StatusCode int    // HTTP status, 0 for transport failures
	Code       string // provider-specific error code, may be empty
	Message    string
	Err        error // underlying transport error, may be nil
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s attempt failed (%s) [%d]: %s", e.Provider, e.Outcome, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s attempt failed (%s): %s", e.Provider, e.Outcome, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AsProviderError extracts a ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	ok := errors.As(err, &pe)
	return pe, ok
}

// transportError classifies a failure that happened before any provider
// response arrived. Context cancellation and network trouble are both
// transient from the credential's point of view.
func transportError(provider domain.ProviderType, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Outcome:  OutcomeTransient,
		Message:  err.Error(),
		Err:      err,
	}
}

// classifyStatus maps an HTTP status to an outcome when the response body
// offered nothing more specific. Adapters probe their provider's error
// body first and fall back to this table.
func classifyStatus(status int) Outcome {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return OutcomeInvalidCredential
	case status == http.StatusPaymentRequired || status == http.StatusTooManyRequests:
		return OutcomeQuotaExceeded
	case status >= 500:
		return OutcomeTransient
	default:
		return OutcomePermanent
	}
}

// quotaWords are message fragments providers use when an account's
// allowance is spent, checked when the status code alone is ambiguous.
var quotaWords = []string{
	"quota",
	"credit",
	"exhausted",
	"limit reached",
	"limit exceeded",
	"seconds left",
	"insufficient funds",
}

// mentionsQuota reports whether an error message reads like a spent
// allowance rather than a malformed request.
func mentionsQuota(message string) bool {
	lower := strings.ToLower(message)
	for _, w := range quotaWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// outputName swaps the extension of an input filename for the output
// format, "converted.<ext>" when the input name is empty.
func outputName(input, ext string) string {
	if input == "" {
		return "converted." + ext
	}
	if dot := strings.LastIndex(input, "."); dot > 0 {
		input = input[:dot]
	}
	return input + "." + ext
}

// fileExt returns the lowercase extension of a filename without the dot,
// or the fallback when the name has none.
func fileExt(name, fallback string) string {
	if dot := strings.LastIndex(name, "."); dot >= 0 && dot < len(name)-1 {
		return strings.ToLower(name[dot+1:])
	}
	return fallback
}
