// Package server exposes compile sessions over HTTP: compile submission,
// page rendering, a websocket event stream and Prometheus metrics.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"vellum/internal/compiler"
	"vellum/internal/events"
	"vellum/internal/metrics"
)

// DefaultSession serves requests that name no session.
const DefaultSession = "default"

const (
	maxBodySize     = 64 << 20
	shutdownTimeout = 5 * time.Second
)

type Options struct {
	Addr    string
	Service *compiler.Service
	// Hub must be the publisher the Service was built with for /events to
	// see compile outcomes.
	Hub *Hub
	// Registry backs /metrics; the endpoint is absent when nil.
	Registry *prom.Registry
	// OriginPatterns lists extra websocket origins besides the server's own
	// host.
	OriginPatterns []string
	Logger         *slog.Logger
}

type Server struct {
	opts Options
	log  *slog.Logger
	mux  *http.ServeMux
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(opts.Logger)
	}
	s := &Server{opts: opts, log: opts.Logger, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /sessions", s.handleOpen)
	s.mux.HandleFunc("DELETE /sessions/{id}", s.handleClose)
	s.mux.HandleFunc("POST /compile", s.handleCompile)
	s.mux.HandleFunc("GET /pages/{index}", s.handlePage)
	s.mux.HandleFunc("GET /events", s.handleEvents)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if opts.Registry != nil {
		s.mux.Handle("GET /metrics", metrics.HTTPHandler(opts.Registry))
	}
	return s
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Run serves on opts.Addr until ctx is done, then shuts down gracefully and
// closes every session.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.opts.Hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if s.opts.Service != nil {
		s.opts.Service.CloseAll()
	}
	return err
}

type openRequest struct {
	Session string `json:"session,omitempty"`
	Root    string `json:"root"`
	Main    string `json:"main,omitempty"`
}

type compileRequest struct {
	Session   string `json:"session"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	Main      string `json:"main,omitempty"`
	RequestID uint64 `json:"requestId,omitempty"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Root == "" {
		writeError(w, http.StatusBadRequest, "root is required")
		return
	}
	sess, err := s.opts.Service.Open(req.Session, func(o *compiler.Options) {
		o.Root = req.Root
		if req.Main != "" {
			o.DefaultMain = req.Main
		}
	})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session": sess.ID()})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Service.Close(r.PathValue("id")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	id, err := s.opts.Service.Submit(compiler.Request{
		Path:      req.Path,
		Content:   req.Content,
		Main:      req.Main,
		ID:        req.RequestID,
		SessionID: sessionOrDefault(req.Session),
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]uint64{"requestId": id})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid page index")
		return
	}
	q := r.URL.Query()
	scale := 1.0
	if v := q.Get("scale"); v != "" {
		scale, err = strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 {
			writeError(w, http.StatusBadRequest, "invalid scale")
			return
		}
	}
	var nonce uint64
	if v := q.Get("nonce"); v != "" {
		nonce, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid nonce")
			return
		}
	}

	page, err := s.opts.Service.Render(sessionOrDefault(q.Get("session")), index, scale, nonce)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if r.Header.Get("Accept") == "image/svg+xml" {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("X-Page-Size", fmt.Sprintf("%dx%d", page.Width, page.Height))
		_, _ = w.Write([]byte(page.SVG))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.opts.Hub.ServeWS(w, r, s.opts.OriginPatterns)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"sessions":    s.opts.Service.IDs(),
		"subscribers": s.opts.Hub.Clients(),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) serviceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, compiler.ErrUnknownSession), errors.Is(err, compiler.ErrPageOutOfRange):
		status = http.StatusNotFound
	case errors.Is(err, compiler.ErrNoDocument):
		status = http.StatusConflict
	case errors.Is(err, compiler.ErrSessionClosed):
		status = http.StatusGone
	default:
		s.log.Error("request failed", "err", err)
	}
	writeError(w, status, err.Error())
}

func sessionOrDefault(id string) string {
	if id == "" {
		return DefaultSession
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack is needed by the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

var _ events.Publisher = (*Hub)(nil)
