package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ace-232/day-planner-app/internal/auth"
)

type userIDKey struct{}

func withUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// userID returns the authenticated user of the request.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey{}).(string)
	return id
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// authenticate validates the session token and puts the user ID in the
// request context. With allowQuery the token may also come from ?token=.
func (s *Server) authenticate(allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" && allowQuery {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				respondError(w, http.StatusUnauthorized, "Authorization required")
				return
			}
			id, err := s.cfg.Tokens.Verify(token)
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				respondError(w, http.StatusUnauthorized, "Token expired")
				return
			case err != nil:
				respondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), id)))
		})
	}
}

// internalOnly admits requests bearing the internal API key.
func (s *Server) internalOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := bearerToken(r)
		if key == "" || s.cfg.InternalKey == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.InternalKey)) != 1 {
			s.log.Warn("rejected internal request", "path", r.URL.Path, "remote", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "Invalid internal key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
