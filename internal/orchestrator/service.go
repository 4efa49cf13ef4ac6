// Package orchestrator routes conversion jobs across provider credential
// pools: round-robin selection, outcome classification, same-credential
// retry, cross-provider failover and the local fallback of last resort.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/VidZid2/STI-sub006/internal/adapter"
	"github.com/VidZid2/STI-sub006/internal/domain"
	"github.com/VidZid2/STI-sub006/internal/metrics"
)

const (
	// DefaultTransientRetries is the total number of times one credential
	// is tried on transient failures before the job rotates onward. The
	// count includes the initial attempt.
	DefaultTransientRetries = 2

	// DefaultAttemptTimeout bounds a single provider call.
	DefaultAttemptTimeout = 45 * time.Second

	// DefaultJobTimeout bounds a whole job including every failover.
	DefaultJobTimeout = 3 * time.Minute

	// DefaultRetryBackoff seeds the exponential wait between
	// same-credential retries.
	DefaultRetryBackoff = 500 * time.Millisecond
)

// LocalConverter renders a degraded result on this machine when every
// remote pool is out of service. Only document-to-PDF jobs fall back.
// The implementation never consumes provider quota.
type LocalConverter interface {
	DocToPdf(ctx context.Context, file domain.InputFile) (*domain.ConversionResult, error)
}

// Service coordinates conversion jobs between the credential registry,
// the round-robin selector and the provider adapters.
type Service struct {
	registry *domain.Registry
	selector *domain.Selector
	adapters map[domain.ProviderType]adapter.ProviderAdapter
	fallback LocalConverter
	metrics  *metrics.Collector
	logger   *slog.Logger

	transientRetries int
	attemptTimeout   time.Duration
	jobTimeout       time.Duration
	retryBackoff     time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTransientRetries sets the total tries per credential on transient
// failures, including the initial attempt.
func WithTransientRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.transientRetries = n
		}
	}
}

// WithAttemptTimeout bounds each individual provider call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.attemptTimeout = d
		}
	}
}

// WithJobTimeout bounds a whole job across all retries and failovers.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithRetryBackoff sets the initial delay between same-credential retries.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retryBackoff = d
		}
	}
}

// WithLocalFallback wires the on-box converter used when every remote
// pool for a document-to-PDF job is out of service.
func WithLocalFallback(fallback LocalConverter) Option {
	return func(s *Service) {
		s.fallback = fallback
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Service) {
		s.metrics = collector
	}
}

// NewService wires the registry and provider adapters into a Service.
func NewService(registry *domain.Registry, adapters []adapter.ProviderAdapter, opts ...Option) *Service {
	s := &Service{
		registry:         registry,
		selector:         domain.NewSelector(registry),
		adapters:         make(map[domain.ProviderType]adapter.ProviderAdapter, len(adapters)),
		logger:           slog.Default(),
		transientRetries: DefaultTransientRetries,
		attemptTimeout:   DefaultAttemptTimeout,
		jobTimeout:       DefaultJobTimeout,
		retryBackoff:     DefaultRetryBackoff,
	}
	for _, ad := range adapters {
		s.adapters[ad.Provider()] = ad
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// convert runs one job through its candidate providers in order.
// Returns the first successful result, or the classified error that
// ended the job.
func (s *Service) convert(ctx context.Context, job domain.ConversionJob) (*domain.ConversionResult, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = time.Now()
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	started := time.Now()
	logger := s.logger.With(
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
	)

	var (
		lastErr      error
		attempted    int
		configured   int
		lastProvider domain.ProviderType
	)

	for _, provider := range s.candidates(job) {
		providerAdapter, ok := s.adapters[provider]
		if !ok || s.registry.ConfiguredCount(provider) == 0 {
			logger.Debug("skipping unconfigured provider",
				slog.String("provider", string(provider)))
			continue
		}
		configured++
		lastProvider = provider

		result, tried, err := s.convertWithProvider(jobCtx, logger, providerAdapter, job)
		attempted += tried
		if err == nil {
			result.Duration = time.Since(started)
			s.metrics.ObserveJob(string(job.Kind), string(provider), "success")
			logger.Info("job complete",
				slog.String("provider", string(provider)),
				slog.Int("attempts", attempted),
				slog.Duration("duration", result.Duration),
			)
			return result, nil
		}

		// A permanent rejection is about the job itself, so no other
		// provider or credential will fare better.
		if domain.IsPermanentJobError(err) {
			s.metrics.ObserveJob(string(job.Kind), string(provider), "permanent")
			logger.Warn("job rejected",
				slog.String("provider", string(provider)),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		if jobCtx.Err() != nil {
			s.metrics.ObserveJob(string(job.Kind), string(provider), "timeout")
			logger.Error("job deadline exceeded",
				slog.String("provider", string(provider)),
				slog.Int("attempts", attempted),
			)
			return nil, &domain.TimeoutError{Kind: job.Kind, Elapsed: time.Since(started)}
		}

		lastErr = err
		s.metrics.ObserveFailover(string(provider))
		logger.Warn("provider pool unavailable, failing over",
			slog.String("provider", string(provider)),
			slog.Int("keys_tried", tried),
			slog.String("error", err.Error()),
		)
	}

	if s.fallback != nil && job.Kind == domain.JobDocToPdf && len(job.Files) > 0 {
		logger.Warn("all remote pools unavailable, using local fallback")
		result, err := s.fallback.DocToPdf(jobCtx, job.Files[0])
		if err == nil {
			result.JobID = job.ID
			result.Duration = time.Since(started)
			s.metrics.ObserveJob(string(job.Kind), "local", "fallback")
			return result, nil
		}
		logger.Error("local fallback failed", slog.String("error", err.Error()))
	}

	switch {
	case configured == 0:
		err := &domain.ConfigurationError{
			Provider: s.primaryProvider(job.Kind),
			Reason:   "no credentials configured for any candidate provider",
		}
		s.metrics.ObserveJob(string(job.Kind), "none", "configuration")
		logger.Error("job failed", slog.String("error", err.Error()))
		return nil, err
	case domain.IsTransient(lastErr):
		s.metrics.ObserveJob(string(job.Kind), string(lastProvider), "transient")
		logger.Error("job failed", slog.String("error", lastErr.Error()))
		return nil, lastErr
	default:
		err := &domain.QuotaExceededError{Provider: lastProvider, Attempted: attempted}
		s.metrics.ObserveJob(string(job.Kind), string(lastProvider), "quota_exceeded")
		logger.Error("job failed", slog.String("error", err.Error()))
		return nil, err
	}
}

// convertWithProvider walks one provider's credential pool until an
// attempt succeeds, the job is rejected outright, or no untried active
// credential remains. Returns how many credentials were tried.
func (s *Service) convertWithProvider(
	ctx context.Context,
	logger *slog.Logger,
	providerAdapter adapter.ProviderAdapter,
	job domain.ConversionJob,
) (*domain.ConversionResult, int, error) {
	provider := providerAdapter.Provider()

	// A credential that failed transiently stays active, so the walk is
	// bounded by remembering which IDs this job already tried.
	tried := make(map[string]struct{})
	var lastErr error

	for {
		cred, err := s.selector.Next(provider)
		if err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return nil, len(tried), lastErr
		}
		if _, seen := tried[cred.ID]; seen {
			return nil, len(tried), lastErr
		}
		tried[cred.ID] = struct{}{}

		attemptStart := time.Now()
		result, err := s.attemptWithRetry(ctx, providerAdapter, cred, job)
		latency := time.Since(attemptStart)

		if err == nil {
			s.registry.MarkSuccess(cred.ID)
			s.refreshGauges(provider)
			s.metrics.ObserveAttempt(string(provider), "success", latency.Seconds())
			logger.Info("provider call succeeded",
				slog.String("provider", string(provider)),
				slog.String("key", domain.MaskSecret(cred.Secret)),
				slog.Duration("latency", latency),
			)
			result.JobID = job.ID
			result.Provider = provider
			return result, len(tried), nil
		}

		if ctx.Err() != nil {
			s.metrics.ObserveAttempt(string(provider), "timeout", latency.Seconds())
			return nil, len(tried), ctx.Err()
		}

		provErr, classified := adapter.AsProviderError(err)
		if !classified {
			// Nothing from the provider arrived to classify. The failed
			// attempts were already recorded inside the retry loop.
			s.metrics.ObserveAttempt(string(provider), "transient", latency.Seconds())
			lastErr = &domain.TransientError{Provider: provider, Err: err}
			continue
		}

		switch provErr.Outcome {
		case adapter.OutcomeQuotaExceeded:
			s.registry.MarkExhausted(cred.ID)
			s.refreshGauges(provider)
			s.metrics.ObserveAttempt(string(provider), "quota_exceeded", latency.Seconds())
			logger.Warn("credential exhausted, rotating",
				slog.String("provider", string(provider)),
				slog.String("key", domain.MaskSecret(cred.Secret)),
			)
			lastErr = &domain.QuotaExceededError{Provider: provider, Attempted: len(tried)}

		case adapter.OutcomeInvalidCredential:
			s.registry.MarkDisabled(cred.ID)
			s.refreshGauges(provider)
			s.metrics.ObserveAttempt(string(provider), "invalid_credential", latency.Seconds())
			logger.Warn("credential rejected, disabling",
				slog.String("provider", string(provider)),
				slog.String("key", domain.MaskSecret(cred.Secret)),
				slog.Int("status", provErr.StatusCode),
			)
			lastErr = &domain.InvalidCredentialError{Provider: provider, KeyID: cred.ID}

		case adapter.OutcomePermanent:
			s.metrics.ObserveAttempt(string(provider), "permanent", latency.Seconds())
			return nil, len(tried), &domain.PermanentJobError{
				Provider: provider,
				Code:     provErr.Code,
				Message:  provErr.Message,
			}

		default:
			s.metrics.ObserveAttempt(string(provider), "transient", latency.Seconds())
			logger.Warn("credential failing transiently, rotating",
				slog.String("provider", string(provider)),
				slog.String("key", domain.MaskSecret(cred.Secret)),
				slog.String("error", provErr.Error()),
			)
			lastErr = &domain.TransientError{Provider: provider, Err: provErr}
		}
	}
}

// attemptWithRetry calls the provider with one credential, retrying in
// place on transient failures with exponential backoff before giving up
// on the credential. Non-transient classifications abort the retry loop
// immediately and surface unchanged.
func (s *Service) attemptWithRetry(
	ctx context.Context,
	providerAdapter adapter.ProviderAdapter,
	cred domain.Credential,
	job domain.ConversionJob,
) (*domain.ConversionResult, error) {
	operation := func() (*domain.ConversionResult, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()

		result, err := providerAdapter.Convert(attemptCtx, cred.Secret, job)
		if err == nil {
			return result, nil
		}

		if provErr, ok := adapter.AsProviderError(err); ok && provErr.Outcome != adapter.OutcomeTransient {
			return nil, backoff.Permanent(err)
		}
		s.registry.MarkTransientFailure(cred.ID)
		return nil, err
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = s.retryBackoff
	expBackoff.Reset()

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(s.transientRetries)),
	)
}

// candidates returns the providers to try for the job in failover
// order, with the job's preference moved to the front when it already
// serves the kind. A preference never adds a provider to the list.
func (s *Service) candidates(job domain.ConversionJob) []domain.ProviderType {
	order := domain.CandidateProviders(job.Kind)
	if job.ProviderPreference == "" {
		return order
	}
	for i, provider := range order {
		if provider != job.ProviderPreference {
			continue
		}
		reordered := make([]domain.ProviderType, 0, len(order))
		reordered = append(reordered, provider)
		reordered = append(reordered, order[:i]...)
		reordered = append(reordered, order[i+1:]...)
		return reordered
	}
	return order
}

// primaryProvider names the first candidate for a kind, for error
// reporting when nothing is configured.
func (s *Service) primaryProvider(kind domain.JobKind) domain.ProviderType {
	if order := domain.CandidateProviders(kind); len(order) > 0 {
		return order[0]
	}
	return ""
}

// refreshGauges pushes the provider's current pool composition to the
// credential-state gauge.
func (s *Service) refreshGauges(provider domain.ProviderType) {
	if s.metrics == nil {
		return
	}
	summary := s.registry.Summary(provider)
	s.metrics.SetCredentialStates(string(provider), summary.Active, summary.Exhausted, summary.Disabled)
}
