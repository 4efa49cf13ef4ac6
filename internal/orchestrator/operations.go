package orchestrator

import (
	"context"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// JobOption customizes a conversion job before it runs.
type JobOption func(*domain.ConversionJob)

// WithProviderPreference moves the provider to the front of the job's
// candidate order when it serves the kind. Providers that cannot serve
// the kind are ignored rather than added.
func WithProviderPreference(provider domain.ProviderType) JobOption {
	return func(job *domain.ConversionJob) {
		job.ProviderPreference = provider
	}
}

// ConvertDocToPdf converts one office document into a PDF.
func (s *Service) ConvertDocToPdf(ctx context.Context, file domain.InputFile, opts ...JobOption) (*domain.ConversionResult, error) {
	if len(file.Content) == 0 {
		return nil, &domain.PermanentJobError{Code: "empty_input", Message: "document file is empty"}
	}
	return s.run(ctx, domain.ConversionJob{
		Kind:  domain.JobDocToPdf,
		Files: []domain.InputFile{file},
	}, opts)
}

// ConvertImagesToPdf combines one or more images into a single PDF, one
// image per page, in the order given.
func (s *Service) ConvertImagesToPdf(ctx context.Context, files []domain.InputFile, opts ...JobOption) (*domain.ConversionResult, error) {
	if len(files) == 0 {
		return nil, &domain.PermanentJobError{Code: "empty_input", Message: "at least one image is required"}
	}
	return s.run(ctx, domain.ConversionJob{
		Kind:  domain.JobImagesToPdf,
		Files: files,
	}, opts)
}

// MergePdfs concatenates two or more PDFs into one, in the order given.
func (s *Service) MergePdfs(ctx context.Context, files []domain.InputFile, opts ...JobOption) (*domain.ConversionResult, error) {
	if len(files) < 2 {
		return nil, &domain.PermanentJobError{Code: "too_few_inputs", Message: "merging needs at least two PDF files"}
	}
	return s.run(ctx, domain.ConversionJob{
		Kind:  domain.JobMergePdfs,
		Files: files,
	}, opts)
}

// ConvertPdfToDoc converts a PDF into an editable Word document.
func (s *Service) ConvertPdfToDoc(ctx context.Context, file domain.InputFile, opts ...JobOption) (*domain.ConversionResult, error) {
	if len(file.Content) == 0 {
		return nil, &domain.PermanentJobError{Code: "empty_input", Message: "PDF file is empty"}
	}
	return s.run(ctx, domain.ConversionJob{
		Kind:  domain.JobPdfToDoc,
		Files: []domain.InputFile{file},
	}, opts)
}

// CheckGrammar proofreads the text and returns the findings report. Any
// issues found are summarized in the result's warnings.
func (s *Service) CheckGrammar(ctx context.Context, text string, opts ...JobOption) (*domain.ConversionResult, error) {
	if text == "" {
		return nil, &domain.PermanentJobError{Code: "empty_input", Message: "no text to check"}
	}
	return s.run(ctx, domain.ConversionJob{
		Kind: domain.JobGrammarCheck,
		Text: text,
	}, opts)
}

// run applies the job options and hands the job to the conversion core.
func (s *Service) run(ctx context.Context, job domain.ConversionJob, opts []JobOption) (*domain.ConversionResult, error) {
	for _, opt := range opts {
		opt(&job)
	}
	return s.convert(ctx, job)
}
