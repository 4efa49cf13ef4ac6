package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter assembles the gin engine with the full middleware chain and
// every portal-facing route. The metrics handler may be nil, in which
// case no /metrics route is registered.
func NewRouter(convert *ConvertHandler, status *StatusHandler, metricsHandler http.Handler, logger *slog.Logger, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RecoveryMiddleware(logger))
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger))

	api := router.Group("/api/v1")
	{
		api.POST("/convert/doc-to-pdf", convert.HandleDocToPdf)
		api.POST("/convert/images-to-pdf", convert.HandleImagesToPdf)
		api.POST("/convert/merge-pdf", convert.HandleMergePdfs)
		api.POST("/convert/pdf-to-doc", convert.HandlePdfToDoc)
		api.POST("/grammar/check", convert.HandleGrammarCheck)

		api.GET("/providers", status.HandleListProviders)
		api.GET("/providers/:provider/status", status.HandleProviderStatus)
		api.POST("/providers/:provider/reset", status.HandleResetKeys)
		api.POST("/providers/:provider/reload", status.HandleReloadKeys)
	}

	router.GET("/healthz", status.HandleHealth)

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return router
}
