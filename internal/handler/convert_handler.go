package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/VidZid2/STI-sub006/internal/domain"
	"github.com/VidZid2/STI-sub006/internal/orchestrator"
)

// DefaultMaxUploadBytes caps multipart request bodies at 32 MiB.
const DefaultMaxUploadBytes int64 = 32 << 20

// ConvertHandler exposes the conversion operations over HTTP.
type ConvertHandler struct {
	service        *orchestrator.Service
	logger         *slog.Logger
	maxUploadBytes int64
	grammarCache   *GrammarCache
}

// ConvertHandlerOption configures the ConvertHandler.
type ConvertHandlerOption func(*ConvertHandler)

// WithHandlerLogger sets a custom logger.
func WithHandlerLogger(logger *slog.Logger) ConvertHandlerOption {
	return func(h *ConvertHandler) {
		h.logger = logger
	}
}

// WithMaxUploadBytes caps the size of multipart request bodies.
func WithMaxUploadBytes(n int64) ConvertHandlerOption {
	return func(h *ConvertHandler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithGrammarCache enables short-lived caching of grammar check reports.
func WithGrammarCache(cache *GrammarCache) ConvertHandlerOption {
	return func(h *ConvertHandler) {
		h.grammarCache = cache
	}
}

// NewConvertHandler creates a handler over the conversion service.
func NewConvertHandler(service *orchestrator.Service, opts ...ConvertHandlerOption) *ConvertHandler {
	h := &ConvertHandler{
		service:        service,
		logger:         slog.Default(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// conversionResponse is the success envelope for conversion endpoints.
// The converted bytes travel base64-encoded so the portal can hand them
// straight to a download blob.
type conversionResponse struct {
	JobID         string   `json:"job_id"`
	FileName      string   `json:"file_name"`
	ContentType   string   `json:"content_type"`
	ContentBase64 string   `json:"content_base64"`
	Provider      string   `json:"provider,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	DurationMS    int64    `json:"duration_ms"`
}

// grammarCheckRequest is the JSON body accepted by HandleGrammarCheck.
type grammarCheckRequest struct {
	Text string `json:"text"`
}

// grammarResponse is the success envelope for grammar checks. Report is
// the provider's findings document, embedded as-is.
type grammarResponse struct {
	JobID    string          `json:"job_id"`
	Provider string          `json:"provider"`
	Report   json.RawMessage `json:"report"`
}

// HandleDocToPdf handles POST /api/v1/convert/doc-to-pdf.
// Expects a single multipart part named "file".
func (h *ConvertHandler) HandleDocToPdf(c *gin.Context) {
	file, ok := h.singleFile(c, "file")
	if !ok {
		return
	}

	result, err := h.service.ConvertDocToPdf(c.Request.Context(), file, h.jobOptions(c)...)
	h.respond(c, result, err)
}

// HandleImagesToPdf handles POST /api/v1/convert/images-to-pdf.
// Expects one or more multipart parts named "files".
func (h *ConvertHandler) HandleImagesToPdf(c *gin.Context) {
	files, ok := h.multiFile(c, "files", 1)
	if !ok {
		return
	}

	result, err := h.service.ConvertImagesToPdf(c.Request.Context(), files, h.jobOptions(c)...)
	h.respond(c, result, err)
}

// HandleMergePdfs handles POST /api/v1/convert/merge-pdf.
// Expects two or more multipart parts named "files"; page order follows
// upload order.
func (h *ConvertHandler) HandleMergePdfs(c *gin.Context) {
	files, ok := h.multiFile(c, "files", 2)
	if !ok {
		return
	}

	result, err := h.service.MergePdfs(c.Request.Context(), files, h.jobOptions(c)...)
	h.respond(c, result, err)
}

// HandlePdfToDoc handles POST /api/v1/convert/pdf-to-doc.
// Expects a single multipart part named "file".
func (h *ConvertHandler) HandlePdfToDoc(c *gin.Context) {
	file, ok := h.singleFile(c, "file")
	if !ok {
		return
	}

	result, err := h.service.ConvertPdfToDoc(c.Request.Context(), file, h.jobOptions(c)...)
	h.respond(c, result, err)
}

// HandleGrammarCheck handles POST /api/v1/grammar/check.
// Accepts either a JSON body {"text": "..."} or a form field "text".
func (h *ConvertHandler) HandleGrammarCheck(c *gin.Context) {
	text, ok := h.grammarText(c)
	if !ok {
		return
	}

	if h.grammarCache != nil {
		if cached, hit := h.grammarCache.Get(text); hit {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json", cached)
			return
		}
	}

	result, err := h.service.CheckGrammar(c.Request.Context(), text, h.jobOptions(c)...)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Set(ctxJobID, result.JobID)
	c.Set(ctxProviderUsed, string(result.Provider))

	report := json.RawMessage(result.Content)
	if len(report) == 0 {
		report = json.RawMessage("null")
	}

	body, err := json.Marshal(grammarResponse{
		JobID:    result.JobID,
		Provider: string(result.Provider),
		Report:   report,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	if h.grammarCache != nil {
		h.grammarCache.Set(text, body)
	}

	c.Header("X-Cache", "MISS")
	c.Data(http.StatusOK, "application/json", body)
}

// jobOptions derives orchestrator options from the request. The optional
// ?provider= query expresses a provider preference.
func (h *ConvertHandler) jobOptions(c *gin.Context) []orchestrator.JobOption {
	var opts []orchestrator.JobOption
	if p := c.Query("provider"); p != "" {
		provider := domain.ProviderType(strings.ToLower(p))
		if provider.IsValid() {
			opts = append(opts, orchestrator.WithProviderPreference(provider))
		}
	}
	return opts
}

// parseForm parses the multipart body under the configured size cap.
func (h *ConvertHandler) parseForm(c *gin.Context) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	return c.Request.ParseMultipartForm(h.maxUploadBytes)
}

// singleFile extracts exactly one uploaded file from the named multipart
// field. On failure it writes the error response and returns ok=false.
func (h *ConvertHandler) singleFile(c *gin.Context, field string) (domain.InputFile, bool) {
	if err := h.parseForm(c); err != nil {
		h.badRequest(c, uploadErrorMessage(err, field))
		return domain.InputFile{}, false
	}

	header, err := c.FormFile(field)
	if err != nil {
		h.badRequest(c, "missing multipart field \""+field+"\"")
		return domain.InputFile{}, false
	}

	file, err := readUpload(header)
	if err != nil {
		h.badRequest(c, "could not read uploaded file \""+header.Filename+"\"")
		return domain.InputFile{}, false
	}

	return file, true
}

// multiFile extracts all uploads from the named multipart field and
// enforces a minimum count before any provider work starts.
func (h *ConvertHandler) multiFile(c *gin.Context, field string, min int) ([]domain.InputFile, bool) {
	if err := h.parseForm(c); err != nil {
		h.badRequest(c, uploadErrorMessage(err, field))
		return nil, false
	}

	form := c.Request.MultipartForm
	if form == nil || len(form.File[field]) < min {
		h.badRequest(c, "at least "+strconv.Itoa(min)+" file(s) required in multipart field \""+field+"\"")
		return nil, false
	}

	files := make([]domain.InputFile, 0, len(form.File[field]))
	for _, header := range form.File[field] {
		file, err := readUpload(header)
		if err != nil {
			h.badRequest(c, "could not read uploaded file \""+header.Filename+"\"")
			return nil, false
		}
		files = append(files, file)
	}

	return files, true
}

// grammarText pulls the text to check from a JSON body or a form field.
func (h *ConvertHandler) grammarText(c *gin.Context) (string, bool) {
	contentType := c.ContentType()

	if strings.HasPrefix(contentType, "application/json") {
		var req grammarCheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid JSON body: expected {\"text\": \"...\"}")
			return "", false
		}
		if strings.TrimSpace(req.Text) == "" {
			h.badRequest(c, "field \"text\" must not be empty")
			return "", false
		}
		return req.Text, true
	}

	text := c.PostForm("text")
	if strings.TrimSpace(text) == "" {
		h.badRequest(c, "field \"text\" must not be empty")
		return "", false
	}
	return text, true
}

// respond writes the conversion success envelope, or maps the error.
func (h *ConvertHandler) respond(c *gin.Context, result *domain.ConversionResult, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Set(ctxJobID, result.JobID)
	c.Set(ctxProviderUsed, string(result.Provider))

	c.JSON(http.StatusOK, conversionResponse{
		JobID:         result.JobID,
		FileName:      result.FileName,
		ContentType:   result.ContentType,
		ContentBase64: base64.StdEncoding.EncodeToString(result.Content),
		Provider:      string(result.Provider),
		Warnings:      result.Warnings,
		DurationMS:    result.Duration.Milliseconds(),
	})
}

// writeError maps the conversion error taxonomy onto HTTP statuses. The
// envelope never carries provider payloads or credential material.
func (h *ConvertHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	errType := "internal"

	switch {
	case domain.IsConfiguration(err):
		status = http.StatusServiceUnavailable
		errType = "configuration"
	case domain.IsQuotaExceeded(err):
		status = http.StatusTooManyRequests
		errType = "quota_exceeded"
	case domain.IsPermanentJobError(err):
		status = http.StatusUnprocessableEntity
		errType = "rejected"
	case domain.IsTimeout(err):
		status = http.StatusGatewayTimeout
		errType = "timeout"
	case domain.IsTransient(err):
		status = http.StatusBadGateway
		errType = "transient"
	}

	h.logger.Warn("request failed",
		slog.String("path", c.Request.URL.Path),
		slog.String("type", errType),
		slog.String("error", err.Error()),
	)

	c.JSON(status, gin.H{
		"error": gin.H{
			"type":    errType,
			"message": err.Error(),
		},
	})
}

// badRequest rejects malformed uploads before any provider work starts.
func (h *ConvertHandler) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"type":    "bad_request",
			"message": message,
		},
	})
}

// readUpload loads one multipart file header into an InputFile.
func readUpload(header *multipart.FileHeader) (domain.InputFile, error) {
	f, err := header.Open()
	if err != nil {
		return domain.InputFile{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.InputFile{}, err
	}

	return domain.InputFile{
		Name:        header.Filename,
		Content:     content,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

func uploadErrorMessage(err error, field string) string {
	var maxBytesErr *http.MaxBytesError
	if errors.Is(err, multipart.ErrMessageTooLarge) || errors.As(err, &maxBytesErr) {
		return "request body too large"
	}
	return "invalid multipart form: expected field \"" + field + "\""
}
