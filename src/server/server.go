// Package server is the rewrite service the resident posts captured text to.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime"
	"strings"
	"time"

	"omnikey/src/command"
	"omnikey/src/llm"
	"omnikey/src/logutil"
)

const (
	maxBodySize     = 1 << 20
	shutdownTimeout = 5 * time.Second
	errMissingText  = `Missing or empty "text" field in request body.`
)

// RewriteFunc asks a model to apply systemPrompt to text.
type RewriteFunc func(ctx context.Context, systemPrompt, text string) (string, error)

type Options struct {
	Addr           string
	CustomTaskPath string
	// Rewrite defaults to llm.Rewrite while the llm package is configured.
	Rewrite RewriteFunc
}

type Server struct {
	opts Options
	mux  *http.ServeMux
}

func New(opts Options) *Server {
	s := &Server{opts: opts, mux: http.NewServeMux()}
	for _, spec := range command.Specs() {
		if _, ok := prompts[spec.Command]; !ok {
			log.Printf("server: no prompt for %s; %s not served", spec.Command, spec.Path)
			continue
		}
		s.mux.HandleFunc("POST "+spec.Path, s.handleCommand(spec.Command))
	}
	s.mux.HandleFunc("POST /api/enhancer", s.handleCommand(command.Enhance))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Handler returns the routes wrapped in logging, body limit and recovery.
func (s *Server) Handler() http.Handler {
	return recoveryMiddleware(loggingMiddleware(bodySizeMiddleware(s.mux)))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()
	log.Printf("server: listening on http://%s", lis.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type rewriteBody struct {
	Text *string `json:"text"`
}

func (s *Server) handleCommand(cmd command.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body rewriteBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == nil || strings.TrimSpace(*body.Text) == "" {
			log.Printf("server: %s request missing or empty \"text\" field", cmd)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMissingText})
			return
		}
		log.Printf("server: received %s request: %s", cmd, logutil.Preview(*body.Text, 80))

		result := s.rewrite(r.Context(), cmd, *body.Text)
		writeJSON(w, http.StatusOK, map[string]string{"result": result})
	}
}

// rewrite never fails: without a usable model or prompt the trimmed input
// is returned.
func (s *Server) rewrite(ctx context.Context, cmd command.Command, text string) string {
	trimmed := strings.TrimSpace(text)

	rewriteFn := s.opts.Rewrite
	if rewriteFn == nil {
		if !llm.Configured() {
			log.Printf("server: no API key or model configured; returning original text")
			return trimmed
		}
		rewriteFn = llm.Rewrite
	}

	prompt := s.promptFor(cmd)
	if prompt == "" {
		log.Printf("server: no prompt for %s; returning original text", cmd)
		return trimmed
	}

	out, err := rewriteFn(ctx, prompt, trimmed)
	if err != nil {
		log.Printf("server: rewrite %s failed: %v; falling back to original text", cmd, err)
		return trimmed
	}
	if out = strings.TrimSpace(out); out == "" {
		log.Printf("server: model returned empty content for %s; falling back to original text", cmd)
		return trimmed
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: failed to write response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("server: %s %s %d %v", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func bodySizeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware turns a handler panic into a 500.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				log.Printf("server: handler panic on %s: %v\n%s", r.URL.Path, rv, buf[:n])
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
