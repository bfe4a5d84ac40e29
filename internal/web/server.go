package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mascot-factory/internal/account"
	"mascot-factory/internal/mascot"
	"mascot-factory/internal/metrics"
	"mascot-factory/internal/session"
	"mascot-factory/internal/workshop"
)

const (
	sessionCookie  = "session"
	maxUploadBytes = 25 << 20
)

type Options struct {
	Accounts       *account.Service
	Sessions       *session.Store
	Workshop       *workshop.Store
	Generator      workshop.Generator
	Logger         *slog.Logger
	RequestTimeout time.Duration
	// Static, when set, is served at the root.
	Static         fs.FS
}

type Server struct {
	accounts       *account.Service
	sessions       *session.Store
	workshop       *workshop.Store
	generator      workshop.Generator
	logger         *slog.Logger
	requestTimeout time.Duration
	static         fs.FS
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 240 * time.Second
	}
	return &Server{
		accounts:       opts.Accounts,
		sessions:       opts.Sessions,
		workshop:       opts.Workshop,
		generator:      opts.Generator,
		logger:         logger,
		requestTimeout: timeout,
		static:         opts.Static,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/styles", s.handleStyles)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	mux.HandleFunc("GET /api/me", s.requireUser(s.handleMe))
	mux.HandleFunc("POST /api/generate", s.requireGenerator(s.handleGenerate))
	mux.HandleFunc("POST /api/reset", s.requireUser(s.handleReset))

	mux.HandleFunc("GET /api/admin/users", s.requireAdmin(s.handleListUsers))
	mux.HandleFunc("POST /api/admin/users/{email}/approve", s.requireAdmin(s.handleApproveUser))
	mux.HandleFunc("DELETE /api/admin/users/{email}", s.requireAdmin(s.handleDeleteUser))

	if s.static != nil {
		mux.Handle("GET /", http.FileServer(http.FS(s.static)))
	}

	return withLogging(withMetrics(mux), s.logger)
}

type userKey struct{}

func userFrom(ctx context.Context) *account.User {
	u, _ := ctx.Value(userKey{}).(*account.User)
	return u
}

func sessionToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.sessions.Lookup(sessionToken(r))
		if !ok {
			writeJSON(w, http.StatusUnauthorized, apiError{Error: "login required"})
			return
		}
		u, err := s.accounts.Get(r.Context(), email)
		if err != nil {
			if !errors.Is(err, account.ErrNotFound) {
				s.logger.Error("load session user failed", "err", err)
			}
			writeJSON(w, http.StatusUnauthorized, apiError{Error: "login required"})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	}
}

// requireGenerator lets through only accounts that currently have access.
func (s *Server) requireGenerator(next http.HandlerFunc) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if err := s.accounts.CheckAccess(userFrom(r.Context())); err != nil {
			writeJSON(w, http.StatusForbidden, apiError{Error: err.Error()})
			return
		}
		next(w, r)
	})
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !userFrom(r.Context()).IsAdmin() {
			writeJSON(w, http.StatusForbidden, apiError{Error: "admin only"})
			return
		}
		next(w, r)
	})
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"styles": mascot.Styles()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := decodeBody(r.Body, v); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return false
	}
	return true
}

func decodeBody(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
