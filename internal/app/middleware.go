package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"markershare/internal/logging"
)

type requestIDKey struct{}

// withRequestContext assigns the request id and a request-scoped logger.
func (s *HTTPServer) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = logging.WithFields(ctx, logrus.Fields{"request_id": requestID})
		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withCORS decorates every response and answers preflight requests for any path.
func (s *HTTPServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w.Header(), s.allowedOrigin(r.Header.Get("Origin")))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigin returns "*" when every origin is allowed, the request origin
// when it is on the list, and "" otherwise.
func (s *HTTPServer) allowedOrigin(origin string) string {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" {
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == origin {
			return origin
		}
	}
	return ""
}

func setCORSHeaders(header http.Header, origin string) {
	if origin != "" {
		header.Set("Access-Control-Allow-Origin", origin)
		header.Add("Vary", "Origin")
	}
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// accessLogFormatter writes one JSON access line per request through the
// request-scoped logger.
type accessLogFormatter struct{}

func (f *accessLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &accessLogEntry{
		logger: logging.FromContext(r.Context()).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}),
	}
}

type accessLogEntry struct {
	logger *logrus.Entry
}

func (e *accessLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.logger.WithFields(logrus.Fields{
		"status":      status,
		"bytes":       bytes,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("request")
}

func (e *accessLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.WithFields(logrus.Fields{
		"panic": fmt.Sprint(v),
		"stack": string(stack),
	}).Error("request panicked")
}

// recoverJSON turns a panic into a 500 JSON body.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			if entry := middleware.GetLogEntry(r); entry != nil {
				entry.Panic(rec, debug.Stack())
			}
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Internal server error", fmt.Sprint(rec))
		}()
		next.ServeHTTP(w, r)
	})
}
