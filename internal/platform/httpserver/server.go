package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	accountservice "pollbooth/contexts/identity-access/account-service"
	accountentities "pollbooth/contexts/identity-access/account-service/domain/entities"
	votingservice "pollbooth/contexts/polls/voting-service"
	"pollbooth/internal/platform/observability"
	"pollbooth/internal/platform/ratelimit"

	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "pollbooth/internal/platform/httpserver/docs"
)

const maxRequestBodyBytes = 1 << 20

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	polls    votingservice.Module
	accounts accountservice.Module
	metrics  *observability.Metrics
	limiter  *ratelimit.Limiter
	validate *validator.Validate
	http     *http.Server
}

// New registers every route on a fresh mux. A nil limiter disables vote rate
// limiting; a nil metrics value gets a private registry.
func New(
	polls votingservice.Module,
	accounts accountservice.Module,
	metrics *observability.Metrics,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		polls:    polls,
		accounts: accounts,
		metrics:  metrics,
		limiter:  limiter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start blocks until the listener fails or Shutdown is called. A shutdown is
// not reported as an error.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down",
		"event", "http_server_shutdown",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.route("GET /healthz", s.handleHealth)

	s.route("POST /v1/auth/login", s.handleLogin)
	s.route("POST /v1/auth/logout", s.requireIdentity(s.handleLogout))
	s.route("GET /v1/auth/me", s.requireIdentity(s.handleMe))

	s.route("GET /v1/polls", s.handleListLatest)
	s.route("GET /v1/polls/open", s.handleListOpen)
	s.route("GET /v1/polls/{question_id}", s.optionalIdentity(s.handleQuestionDetail))
	s.route("POST /v1/polls/{question_id}/vote", s.requireIdentity(s.limitVotes(s.handleCastVote)))
	s.route("GET /v1/polls/{question_id}/results", s.handleResults)

	s.route("POST /v1/admin/polls", s.requireIdentity(s.handleCreateQuestion))
	s.route("PATCH /v1/admin/polls/{question_id}", s.requireIdentity(s.handleUpdateQuestion))
	s.route("POST /v1/admin/polls/{question_id}/choices", s.requireIdentity(s.handleAddChoice))
}

// route wraps a handler with request-id echo and request metrics labelled by
// the registered pattern.
func (s *Server) route(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		if requestID := strings.TrimSpace(r.Header.Get("X-Request-Id")); requestID != "" {
			w.Header().Set("X-Request-Id", requestID)
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(rec, r)
		s.metrics.ObserveHTTP(r.Method, pattern, rec.status, time.Since(started))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type identityHandler func(w http.ResponseWriter, r *http.Request, identity accountentities.Identity)

func (s *Server) requireIdentity(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "Authorization bearer token is required")
			return
		}
		identity, err := s.accounts.Handler.AuthenticateHandler(r.Context(), token)
		if err != nil {
			writeAccountDomainError(w, err)
			return
		}
		next(w, r, identity)
	}
}

// optionalIdentity resolves a bearer token when one is sent. Anonymous
// requests pass through with a zero identity; a bad token is still rejected.
func (s *Server) optionalIdentity(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			next(w, r, accountentities.Identity{})
			return
		}
		s.requireIdentity(next)(w, r)
	}
}

func (s *Server) limitVotes(next identityHandler) identityHandler {
	return func(w http.ResponseWriter, r *http.Request, identity accountentities.Identity) {
		if s.limiter != nil && !s.limiter.Allow(identity.UserID) {
			s.metrics.ObserveRateLimited("vote")
			s.logger.Warn("vote rate limited",
				"event", "http_vote_rate_limited",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"user_id", identity.UserID,
			)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many vote submissions, slow down")
			return
		}
		next(w, r, identity)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// decodeJSON reads a single JSON object and runs struct validation on it. An
// empty body decodes as the zero value.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "request failed validation"
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		fields = append(fields, fieldErr.Field()+" failed "+fieldErr.Tag())
	}
	return strings.Join(fields, "; ")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func resolveClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
