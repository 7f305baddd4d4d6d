package httphandler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs each HTTP request with method, path, status, and duration.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

// recoveryMiddleware recovers from panics in HTTP handlers, logs the error,
// and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Actor headers. Authentication happens upstream; these carry the caller
// identity and capability the gateway established.
const (
	headerActorID    = "X-Actor-ID"
	headerActorRole  = "X-Actor-Role"
	headerAdminToken = "X-Admin-Token"

	roleAdmin = "admin"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID      int64
	IsAdmin bool
}

type actorKey struct{}

func actorFrom(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}

// parseActor reads the caller identity, writing a 401 when it is missing or malformed.
func parseActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	id, err := strconv.ParseInt(r.Header.Get(headerActorID), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnauthorized, "missing or invalid "+headerActorID)
		return Actor{}, false
	}
	return Actor{ID: id, IsAdmin: r.Header.Get(headerActorRole) == roleAdmin}, true
}

// requireActor rejects requests without a caller identity.
func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := parseActor(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

// requireAdmin rejects callers without the admin role and, when token is
// set, without a matching X-Admin-Token.
func requireAdmin(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := parseActor(w, r)
		if !ok {
			return
		}
		if !actor.IsAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		if token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(headerAdminToken)), []byte(token)) != 1 {
			writeError(w, http.StatusForbidden, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}
