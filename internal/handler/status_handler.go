package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VidZid2/STI-sub006/internal/domain"
	"github.com/VidZid2/STI-sub006/internal/orchestrator"
)

// CredentialReloader re-reads credential specs from the environment and
// configuration. The reload endpoint feeds its output to the service.
type CredentialReloader func() ([]domain.CredentialSpec, error)

// StatusHandler exposes provider pool inspection and recovery endpoints.
type StatusHandler struct {
	service  *orchestrator.Service
	logger   *slog.Logger
	reloader CredentialReloader
}

// StatusHandlerOption configures the StatusHandler.
type StatusHandlerOption func(*StatusHandler)

// WithStatusLogger sets a custom logger.
func WithStatusLogger(logger *slog.Logger) StatusHandlerOption {
	return func(h *StatusHandler) {
		h.logger = logger
	}
}

// WithCredentialReloader wires the source of fresh credential specs for
// the reload endpoint. Without one the endpoint reports configuration
// errors instead of silently emptying the pools.
func WithCredentialReloader(reloader CredentialReloader) StatusHandlerOption {
	return func(h *StatusHandler) {
		h.reloader = reloader
	}
}

// NewStatusHandler creates a handler over the conversion service.
func NewStatusHandler(service *orchestrator.Service, opts ...StatusHandlerOption) *StatusHandler {
	h := &StatusHandler{
		service: service,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// providerOverview is one row of the GET /providers listing.
type providerOverview struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	Keys       int    `json:"keys"`
	Active     int    `json:"active"`
}

// HandleListProviders handles GET /api/v1/providers.
func (h *StatusHandler) HandleListProviders(c *gin.Context) {
	providers := make([]providerOverview, 0, len(domain.AllProviders))
	for _, p := range domain.AllProviders {
		providers = append(providers, providerOverview{
			Provider:   string(p),
			Configured: h.service.IsProviderConfigured(p),
			Keys:       h.service.ConfiguredKeyCount(p),
			Active:     h.service.ActiveKeyCount(p),
		})
	}

	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

// HandleProviderStatus handles GET /api/v1/providers/:provider/status.
// The key list carries masked secrets only.
func (h *StatusHandler) HandleProviderStatus(c *gin.Context) {
	provider, ok := h.pathProvider(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider": string(provider),
		"keys":     h.service.APIStatus(provider),
		"summary":  h.service.QuotaSummary(provider),
	})
}

// HandleResetKeys handles POST /api/v1/providers/:provider/reset.
// Exhausted and disabled keys return to rotation immediately; the 202
// acknowledges the reset without waiting for health persistence.
func (h *StatusHandler) HandleResetKeys(c *gin.Context) {
	provider, ok := h.pathProvider(c)
	if !ok {
		return
	}

	reset := h.service.ResetFailedKeys(provider)

	c.JSON(http.StatusAccepted, gin.H{
		"provider": string(provider),
		"reset":    reset,
	})
}

// HandleReloadKeys handles POST /api/v1/providers/:provider/reload.
// The whole credential configuration is re-read; the response reports the
// pool-wide delta.
func (h *StatusHandler) HandleReloadKeys(c *gin.Context) {
	provider, ok := h.pathProvider(c)
	if !ok {
		return
	}

	if h.reloader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{
				"type":    "configuration",
				"message": "credential reload is not configured",
			},
		})
		return
	}

	specs, err := h.reloader()
	if err != nil {
		h.logger.Error("credential reload failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{
				"type":    "configuration",
				"message": "could not re-read credential configuration",
			},
		})
		return
	}

	summary := h.service.ReloadAPIKeys(specs)

	c.JSON(http.StatusAccepted, gin.H{
		"provider": string(provider),
		"summary":  summary,
	})
}

// HandleHealth handles GET /healthz.
// The service is degraded when any provider with configured keys has none
// left active.
func (h *StatusHandler) HandleHealth(c *gin.Context) {
	status := "healthy"
	pools := make(map[string]gin.H, len(domain.AllProviders))

	for _, p := range domain.AllProviders {
		configured := h.service.ConfiguredKeyCount(p)
		active := h.service.ActiveKeyCount(p)
		if configured > 0 && active == 0 {
			status = "degraded"
		}
		pools[string(p)] = gin.H{
			"keys":   configured,
			"active": active,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"providers": pools,
	})
}

// pathProvider parses the :provider path segment.
func (h *StatusHandler) pathProvider(c *gin.Context) (domain.ProviderType, bool) {
	provider := domain.ProviderType(c.Param("provider"))
	if !provider.IsValid() {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"type":    "bad_request",
				"message": "unknown provider \"" + c.Param("provider") + "\"",
			},
		})
		return "", false
	}
	return provider, true
}
