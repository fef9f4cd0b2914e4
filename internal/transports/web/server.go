package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"duet/internal/core"
)

type contextKey string

const ctxRequestID contextKey = "request_id"

// Config определяет параметры dev-сервера.
type Config struct {
	ListenAddr      string
	RootURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	MaxRequestBody  int64

	// RateLimit ограничивает число запросов с одного адреса за RateWindow; 0 отключает лимит.
	RateLimit  int
	RateWindow time.Duration
}

// PrepareFunc дополняет данные запроса перед вызовом responder'а.
type PrepareFunc func(req *Request)

// RecordFunc получает каждый обработанный запрос и ответ.
type RecordFunc func(ctx context.Context, req *Request, res *Response)

// ServerOption настраивает Server.
type ServerOption func(*Server)

func WithPrepare(fn PrepareFunc) ServerOption {
	return func(s *Server) { s.prepare = fn }
}

func WithRecorder(fn RecordFunc) ServerOption {
	return func(s *Server) { s.record = fn }
}

// Server отдает один web responder по HTTP: каждый запрос превращается
// в CGI-окружение и проходит тот же путь, что и CGI-вызов.
type Server struct {
	responder Responder
	cfg       Config
	prepare   PrepareFunc
	record    RecordFunc

	mu     sync.Mutex
	server *http.Server
}

// NewServer создает сервер с параметрами по умолчанию для пустых полей.
func NewServer(responder Responder, cfg Config, opts ...ServerOption) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8080"
	}
	if cfg.RootURL == "" {
		cfg.RootURL = DefaultRootURL
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.MaxRequestBody <= 0 {
		cfg.MaxRequestBody = 1 << 20
	}
	s := &Server{responder: responder, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run слушает адрес до отмены контекста, затем останавливает сервер.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return errors.New("web server already started")
	}
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.server = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.InfoContext(ctx, "web server started", "addr", s.cfg.ListenAddr, "responder", s.responder.Name())

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.server = nil
		s.mu.Unlock()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.Stop(stopCtx)
	}
}

// Stop завершает HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type middleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Handler возвращает обработчик со всеми middleware.
func (s *Server) Handler() http.Handler {
	return chain(http.HandlerFunc(s.handle),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.timeoutMiddleware(),
		s.maxBodyMiddleware(),
	)
}

func (s *Server) requestIDMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := sanitizeRequestID(r.Header.Get("X-Request-ID"))
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)
			ctx := context.WithValue(r.Context(), ctxRequestID, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) timeoutMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) maxBodyMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBody)
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := NewRequest(
		WithEnviron(CGIEnviron(r)),
		WithBody(r.Body),
		WithRootURL(s.cfg.RootURL),
	)
	req.SetData(core.DataRequestID, requestIDFromContext(ctx))
	if s.prepare != nil {
		s.prepare(req)
	}

	res := Respond(ctx, s.responder, req)
	if err := res.WriteHTTP(w); err != nil {
		slog.WarnContext(ctx, "write response failed", "path", r.URL.Path, "err", err)
	}
	if s.record != nil {
		s.record(ctx, req, res)
	}
}

// CGIEnviron строит CGI/1.1-окружение из HTTP-запроса.
func CGIEnviron(r *http.Request) map[string]string {
	env := map[string]string{
		"GATEWAY_INTERFACE": "CGI/1.1",
		"SERVER_SOFTWARE":   "duet",
		"SERVER_PROTOCOL":   r.Proto,
		"REQUEST_METHOD":    r.Method,
		"PATH_INFO":         r.URL.Path,
		"QUERY_STRING":      r.URL.RawQuery,
		"REQUEST_URI":       r.URL.RequestURI(),
		"SCRIPT_NAME":       "",
	}
	if host, port, err := net.SplitHostPort(r.Host); err == nil {
		env["SERVER_NAME"] = host
		env["SERVER_PORT"] = port
	} else {
		env["SERVER_NAME"] = r.Host
	}
	if host, port, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		env["REMOTE_ADDR"] = host
		env["REMOTE_PORT"] = port
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		env["CONTENT_TYPE"] = ct
	}
	if r.ContentLength >= 0 {
		env["CONTENT_LENGTH"] = strconv.FormatInt(r.ContentLength, 10)
	}
	for name, values := range r.Header {
		key := "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if key == "HTTP_CONTENT_TYPE" || key == "HTTP_CONTENT_LENGTH" {
			continue
		}
		sep := ", "
		if key == "HTTP_COOKIE" {
			sep = "; "
		}
		env[key] = strings.Join(values, sep)
	}
	if r.Host != "" {
		env["HTTP_HOST"] = r.Host
	}
	return env
}

func requestIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxRequestID).(string)
	if !ok || v == "" {
		return uuid.NewString()
	}
	return v
}

func sanitizeRequestID(v string) string {
	id := strings.TrimSpace(v)
	if id == "" || len(id) > 64 {
		return ""
	}
	for _, ch := range id {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			continue
		}
		switch ch {
		case '-', '_', '.', ':':
			continue
		default:
			return ""
		}
	}
	return id
}
