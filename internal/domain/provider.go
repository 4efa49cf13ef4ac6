// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the application.
package domain

// ProviderType identifies an external conversion service.
type ProviderType string

const (
	// ProviderConvertAPI is the general-purpose document conversion service.
	ProviderConvertAPI ProviderType = "convertapi"

	// ProviderPDFCo is the PDF-specialist service (PDF extraction and merging).
	ProviderPDFCo ProviderType = "pdfco"

	// ProviderTextGears is the grammar-checking service.
	ProviderTextGears ProviderType = "textgears"
)

// AllProviders lists every known provider in a stable order.
var AllProviders = []ProviderType{ProviderConvertAPI, ProviderPDFCo, ProviderTextGears}

// IsValid reports whether the provider type is one of the known services.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderConvertAPI, ProviderPDFCo, ProviderTextGears:
		return true
	}
	return false
}

// JobKind identifies a conversion operation the portal can request.
type JobKind string

const (
	JobDocToPdf     JobKind = "doc-to-pdf"
	JobImagesToPdf  JobKind = "images-to-pdf"
	JobMergePdfs    JobKind = "merge-pdf"
	JobPdfToDoc     JobKind = "pdf-to-doc"
	JobGrammarCheck JobKind = "grammar-check"
)

// IsValid reports whether the job kind is one of the supported operations.
func (k JobKind) IsValid() bool {
	switch k {
	case JobDocToPdf, JobImagesToPdf, JobMergePdfs, JobPdfToDoc, JobGrammarCheck:
		return true
	}
	return false
}

// jobCandidates maps each job kind to the providers able to serve it,
// in failover order. Order matters: the orchestrator walks this list
// front to back when a provider's credential pool is exhausted.
var jobCandidates = map[JobKind][]ProviderType{
	JobDocToPdf:     {ProviderConvertAPI},
	JobImagesToPdf:  {ProviderConvertAPI},
	JobMergePdfs:    {ProviderConvertAPI, ProviderPDFCo},
	JobPdfToDoc:     {ProviderPDFCo},
	JobGrammarCheck: {ProviderTextGears},
}

// CandidateProviders returns the providers able to serve the given job kind,
// in failover order. The returned slice is a copy and safe to reorder.
func CandidateProviders(kind JobKind) []ProviderType {
	candidates := jobCandidates[kind]
	result := make([]ProviderType, len(candidates))
	copy(result, candidates)
	return result
}

// Serves reports whether the provider is able to handle the given job kind.
func Serves(provider ProviderType, kind JobKind) bool {
	for _, p := range jobCandidates[kind] {
		if p == provider {
			return true
		}
	}
	return false
}
