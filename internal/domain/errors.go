// Package domain contains the core business entities and value objects.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoCredentialAvailable is returned by the selector when a provider's
// pool has no active credential to hand out.
var ErrNoCredentialAvailable = errors.New("no active credential available")

// ConfigurationError indicates a job cannot run because the deployment is
// missing something: no credentials configured for a required provider,
// or no adapter wired for it.
type ConfigurationError struct {
	Provider ProviderType
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("configuration error for provider %s: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// QuotaExceededError indicates every candidate credential for the job is
// exhausted or disabled, and no fallback exists for the job kind.
type QuotaExceededError struct {
	Provider  ProviderType
	Attempted int // credentials tried before giving up
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("provider %s quota exceeded: all %d credential(s) unavailable",
		e.Provider, e.Attempted)
}

// InvalidCredentialError indicates the provider rejected a key as
// unauthorized. The offending credential has been taken out of rotation.
type InvalidCredentialError struct {
	Provider ProviderType
	KeyID    string
}

func (e *InvalidCredentialError) Error() string {
	return fmt.Sprintf("provider %s rejected credential %s as invalid", e.Provider, e.KeyID)
}

// TransientError indicates a failure that may succeed on retry: network
// trouble, a provider 5xx, or a timeout on a single attempt.
type TransientError struct {
	Provider ProviderType
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure from provider %s: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentJobError indicates the job itself is unprocessable: corrupt
// input, unsupported format, oversized file. Retrying with another
// credential or provider cannot help.
type PermanentJobError struct {
	Provider ProviderType
	Code     string
	Message  string
}

func (e *PermanentJobError) Error() string {
	prefix := "job rejected"
	if e.Provider != "" {
		prefix = fmt.Sprintf("provider %s rejected the job", e.Provider)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", prefix, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// TimeoutError indicates the overall deadline for a job elapsed before
// any provider produced a result.
type TimeoutError struct {
	Kind    JobKind
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s job timed out after %s", e.Kind, e.Elapsed.Round(time.Millisecond))
}

// IsQuotaExceeded reports whether the error chain contains a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var target *QuotaExceededError
	return errors.As(err, &target)
}

// IsInvalidCredential reports whether the error chain contains an InvalidCredentialError.
func IsInvalidCredential(err error) bool {
	var target *InvalidCredentialError
	return errors.As(err, &target)
}

// IsTransient reports whether the error chain contains a TransientError.
func IsTransient(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}

// IsPermanentJobError reports whether the error chain contains a PermanentJobError.
func IsPermanentJobError(err error) bool {
	var target *PermanentJobError
	return errors.As(err, &target)
}

// IsConfiguration reports whether the error chain contains a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsTimeout reports whether the error chain contains a TimeoutError.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}
