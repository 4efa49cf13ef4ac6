// Package domain contains the core business entities and value objects.
package domain

import "time"

// InputFile is one uploaded document handed to a conversion job.
type InputFile struct {
	// Name is the original filename, used for extension sniffing and
	// for naming the converted output.
	Name string `json:"name"`

	// Content is the raw file bytes.
	Content []byte `json:"-"`

	// ContentType is the MIME type reported by the uploader, may be empty.
	ContentType string `json:"content_type,omitempty"`
}

// ConversionJob is a single unit of work flowing through the orchestrator.
type ConversionJob struct {
	// ID is a unique identifier for tracing this job through logs.
	ID string `json:"id"`

	// Kind selects the conversion operation.
	Kind JobKind `json:"kind"`

	// Files carries the input documents. Empty for grammar checks.
	Files []InputFile `json:"-"`

	// Text carries the prose to check for grammar jobs.
	Text string `json:"-"`

	// ProviderPreference, when set, moves that provider to the front of
	// the candidate list. It never adds a provider that cannot serve the
	// job kind.
	ProviderPreference ProviderType `json:"provider_preference,omitempty"`

	// RequestedAt is when the job entered the system.
	RequestedAt time.Time `json:"requested_at"`
}

// ConversionResult is the successful output of a conversion job.
type ConversionResult struct {
	// JobID echoes the job this result belongs to.
	JobID string `json:"job_id"`

	// FileName is the suggested name for the output document.
	FileName string `json:"file_name"`

	// Content is the converted output. For grammar checks this is the
	// JSON findings report.
	Content []byte `json:"-"`

	// ContentType is the MIME type of the output.
	ContentType string `json:"content_type"`

	// Provider is the service that produced the output. Empty when the
	// local fallback produced it.
	Provider ProviderType `json:"provider,omitempty"`

	// Warnings carries non-fatal notes for the caller, for example the
	// formatting caveat attached to offline fallback output.
	Warnings []string `json:"warnings,omitempty"`

	// Duration is the wall-clock time the job took end to end.
	Duration time.Duration `json:"duration"`
}
