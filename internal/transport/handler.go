package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/note-inspector-go/internal/config"
	apperrors "github.com/anime-shed/note-inspector-go/internal/errors"
	"github.com/anime-shed/note-inspector-go/internal/logger"
	"github.com/anime-shed/note-inspector-go/internal/observer"
	"github.com/anime-shed/note-inspector-go/internal/service"
	"github.com/anime-shed/note-inspector-go/pkg/models"
)

const (
	version         = "1.0.0"
	requestIDHeader = "X-Request-ID"
	uploadField     = "image"
)

type handler struct {
	svc     service.AuthenticationService
	metrics *observer.MetricsObserver
	cfg     *config.Config
}

// NewHandler builds the HTTP router. metrics may be nil.
func NewHandler(svc service.AuthenticationService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	h := &handler{svc: svc, metrics: metrics, cfg: cfg}
	r := gin.Default()

	r.Use(
		requestID(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)
	limited := rateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r.GET("/", h.index)
	r.GET("/health", h.healthCheck)
	r.GET("/test", echo)
	r.POST("/test", echo)

	r.GET("/authenticate", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})
	r.POST("/authenticate", limited, h.authenticateUpload)
	r.POST("/authenticate/url", limited, h.authenticateURL)

	r.GET("/references", h.references)
	r.POST("/references/reload", limited, h.reloadReferences)

	r.GET("/verdicts", h.listVerdicts)
	r.GET("/verdicts/:id", h.getVerdict)
	r.GET("/stats", h.stats)

	return r
}

func (h *handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, models.ServiceInfo{
		Service: "note-inspector",
		Version: version,
		Endpoints: map[string]string{
			"POST /authenticate":      "multipart upload, field \"image\" (png, jpg, jpeg)",
			"POST /authenticate/url":  "JSON {\"url\": \"...\"}",
			"GET /references":         "loaded reference notes",
			"POST /references/reload": "rebuild the reference set",
			"GET /verdicts":           "recent verdicts, ?limit=N",
			"GET /verdicts/:id":       "one verdict by request id",
			"GET /stats":              "authentication metrics",
			"GET /health":             "liveness and reference readiness",
		},
	})
}

func (h *handler) healthCheck(c *gin.Context) {
	ready, count := h.svc.ReferencesReady()
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:           "available",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		ReferencesLoaded: ready,
		ReferenceCount:   count,
	})
}

func echo(c *gin.Context) {
	c.JSON(http.StatusOK, models.EchoResponse{
		Status: "Test endpoint working",
		Method: c.Request.Method,
	})
}

func (h *handler) authenticateUpload(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	file, err := c.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			respondError(c, http.StatusRequestEntityTooLarge, "upload too large", err)
		case errors.Is(err, http.ErrMissingFile):
			respondAppError(c, apperrors.NewValidationError("No image file part in the request", err))
		default:
			respondAppError(c, apperrors.NewValidationError("invalid multipart request", err))
		}
		return
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"filename": file.Filename,
		"size":     file.Size,
		"ip":       c.ClientIP(),
	}).Info("Processing note upload")

	f, err := file.Open()
	if err != nil {
		respondAppError(c, apperrors.NewInternalError("failed to read upload", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondAppError(c, apperrors.NewInternalError("failed to read upload", err))
		return
	}

	resp, err := h.svc.AuthenticateUpload(ctx, file.Filename, data)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) authenticateURL(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	var req models.AuthenticateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondAppError(c, apperrors.NewValidationError("invalid request format", err))
		return
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"url": req.URL,
		"ip":  c.ClientIP(),
	}).Info("Processing note URL")

	resp, err := h.svc.AuthenticateURL(ctx, req.URL)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) references(c *gin.Context) {
	resp, err := h.svc.References(c.Request.Context())
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) reloadReferences(c *gin.Context) {
	resp, err := h.svc.ReloadReferences(c.Request.Context())
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) listVerdicts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondAppError(c, apperrors.NewValidationError(fmt.Sprintf("invalid limit %q", raw), err))
			return
		}
		limit = n
	}

	resp, err := h.svc.ListVerdicts(c.Request.Context(), limit)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) getVerdict(c *gin.Context) {
	resp, err := h.svc.GetVerdict(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) stats(c *gin.Context) {
	if h.metrics == nil {
		respondAppError(c, apperrors.NewNotFoundError("metrics are disabled", nil))
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetMetrics())
}

// Middleware and helper functions

// requestID tags the request context and response with a request id,
// reusing a well-formed incoming X-Request-ID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondAppError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondError(c, determineStatusCode(err), "request processing failed", err)
		return
	}

	logger.FromContext(c.Request.Context()).WithError(err).WithFields(logrus.Fields{
		"status_code": appErr.StatusCode,
		"type":        appErr.Type,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Warn("Request failed")

	c.AbortWithStatusJSON(appErr.StatusCode, models.ErrorResponse{
		Error:   http.StatusText(appErr.StatusCode),
		Message: appErr.Message,
		Type:    string(appErr.Type),
	})
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.FromContext(c.Request.Context()).WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
