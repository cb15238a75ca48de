package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pingmyweb/pingd/internal/ping"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userKey      contextKey = "user"
)

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			if generated, err := s.ids.NewID(); err == nil {
				reqID = generated
			}
		}
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", requestIDFrom(r.Context())),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
				)
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware resolves the calling user. With auth enabled the caller
// presents an API key; with auth disabled (local development) the caller
// identifies itself with the X-User-ID header.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			user ping.User
			err  error
		)
		if s.cfg.Auth.Enabled {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key == "" {
				s.writeError(w, http.StatusUnauthorized, "missing API key")
				return
			}
			user, err = s.users.GetByAPIKey(r.Context(), key)
			if errors.Is(err, ping.ErrNotFound) {
				s.writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if err == nil && !user.Plan.AllowAPI {
				s.writeError(w, http.StatusForbidden, "plan does not include API access")
				return
			}
		} else {
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				s.writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
				return
			}
			user, err = s.users.Get(r.Context(), userID)
			if errors.Is(err, ping.ErrNotFound) {
				s.writeError(w, http.StatusUnauthorized, "unknown user")
				return
			}
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "user lookup failed")
			return
		}
		if !user.Active {
			s.writeError(w, http.StatusForbidden, "account disabled")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func userFrom(ctx context.Context) (ping.User, bool) {
	user, ok := ctx.Value(userKey).(ping.User)
	return user, ok
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
