// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"bank-assistant/internal/common/auth"
	apperrors "bank-assistant/internal/common/errors"
	"bank-assistant/internal/common/metrics"
	"bank-assistant/internal/common/validation"
	"bank-assistant/internal/models"
	processquery "bank-assistant/internal/workers/assistant/process-query"
)

const (
	HeaderRequestID = "X-Request-ID"

	maxBodyBytes = 64 << 10
)

// Messages for requests rejected before they reach the orchestrator.
const (
	MsgInvalidRequest = "La solicitud no es válida. Envía un objeto JSON con el campo \"query\"."
	MsgRateLimited    = "Demasiadas solicitudes. Por favor, intenta nuevamente en unos segundos."
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Processor is satisfied by the process-query handler.
type Processor interface {
	Process(ctx context.Context, query string) *models.ResponseEnvelope
	RebuildKnowledgeBase(ctx context.Context) error
	Ready() bool
}

// TokenValidator is satisfied by auth.KeycloakClient.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error)
}

type Config struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	RequestTimeout  time.Duration
}

type queryRequest struct {
	Query     string `json:"query"`
	RequestID string `json:"requestId"`
}

// RebuildResponse is the body of POST /api/admin/rebuild.
type RebuildResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Server struct {
	config    Config
	processor Processor
	tokens    TokenValidator
	validator *validation.Validator
	limiter   *rate.Limiter
	logger    Logger
}

// NewServer builds the HTTP surface. A nil tokens validator leaves the admin routes open;
// a non-positive rate limit disables limiting.
func NewServer(config Config, processor Processor, tokens TokenValidator, log Logger) *Server {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RateLimitPerSec > 0 {
		burst := config.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimitPerSec), burst)
	}

	return &Server{
		config:    config,
		processor: processor,
		tokens:    tokens,
		validator: validation.MustValidator(validation.QueryRequestSchema),
		limiter:   limiter,
		logger:    log.With(map[string]interface{}{"component": "api"}),
	}
}

// Routes returns the handler for every endpoint.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/query", s.instrument("query", http.HandlerFunc(s.handleQuery)))
	mux.Handle("POST /api/admin/rebuild", s.instrument("rebuild", http.HandlerFunc(s.handleRebuild)))
	mux.Handle("GET /health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	requestID := w.Header().Get(HeaderRequestID)

	if !s.limiter.Allow() {
		limited := apperrors.NewRateLimitedError()
		s.logger.Warn("query rate limited", map[string]interface{}{
			"requestId": requestID,
			"code":      limited.Code,
		})
		if limited.Retryable {
			w.Header().Set("Retry-After", "1")
		}
		writeJSON(w, http.StatusTooManyRequests,
			models.NewFailureEnvelope(nil, MsgRateLimited, string(apperrors.CodeRateLimited), limited.Error()))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.rejectQuery(w, requestID, err.Error())
		return
	}

	if result := s.validator.ValidateBytes(body); !result.Valid {
		s.rejectQuery(w, requestID, result.Summary())
		return
	}

	var req queryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.rejectQuery(w, requestID, err.Error())
		return
	}

	if req.RequestID != "" && r.Header.Get(HeaderRequestID) == "" {
		requestID = req.RequestID
		w.Header().Set(HeaderRequestID, requestID)
	}

	ctx := r.Context()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}
	ctx = processquery.WithRequestID(ctx, requestID)

	writeJSON(w, http.StatusOK, s.processor.Process(ctx, req.Query))
}

func (s *Server) rejectQuery(w http.ResponseWriter, requestID, details string) {
	s.logger.Warn("invalid query request", map[string]interface{}{
		"requestId": requestID,
		"details":   details,
	})
	writeJSON(w, http.StatusBadRequest,
		models.NewFailureEnvelope(nil, MsgInvalidRequest, string(apperrors.CodeInvalidRequest), details))
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if s.tokens != nil {
		if _, err := s.tokens.ValidateToken(r.Context(), bearerToken(r)); err != nil {
			s.logger.Warn("rebuild rejected", map[string]interface{}{"error": err.Error()})
			writeJSON(w, http.StatusUnauthorized, RebuildResponse{Error: string(apperrors.CodeUnauthorized)})
			return
		}
	}

	start := time.Now()
	if err := s.processor.RebuildKnowledgeBase(r.Context()); err != nil {
		stdErr := apperrors.Normalize(err)
		s.logger.Error("knowledge base rebuild failed", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
		writeJSON(w, http.StatusInternalServerError, RebuildResponse{Error: strings.ToLower(string(stdErr.Code))})
		return
	}

	s.logger.Info("knowledge base rebuilt", map[string]interface{}{
		"durationMs": time.Since(start).Milliseconds(),
	})
	writeJSON(w, http.StatusOK, RebuildResponse{Success: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.processor.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// instrument assigns a request id and counts responses per route.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
