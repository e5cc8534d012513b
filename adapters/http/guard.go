package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	crudhttp "github.com/artpar/crudgate/adapters/http/crud"
	"github.com/artpar/crudgate/adapters/metrics"
	"github.com/artpar/crudgate/app"
	"github.com/artpar/crudgate/core/crud"
	"github.com/artpar/crudgate/core/errs"
	"github.com/artpar/crudgate/domain/user"
	"github.com/artpar/crudgate/ports"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// GuardDeps contains dependencies for Guard.
type GuardDeps struct {
	Tokens  ports.TokenService
	// Users, when set, is consulted on every authenticated request so deleted
	// and suspended accounts lose access before their tokens expire.
	Users   ports.UserStore
	Errors  *crudhttp.ErrorHandler
	Metrics *metrics.Collector // optional
	Logger  zerolog.Logger
}

// Guard provides the authentication and throttling middleware used by route
// providers.
type Guard struct {
	tokens  ports.TokenService
	users   ports.UserStore
	errors  *crudhttp.ErrorHandler
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// NewGuard creates a guard.
func NewGuard(deps GuardDeps) *Guard {
	eh := deps.Errors
	if eh == nil {
		eh = crudhttp.NewErrorHandler(false)
	}
	return &Guard{
		tokens:  deps.Tokens,
		users:   deps.Users,
		errors:  eh,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
}

// Authenticate verifies an optional Bearer token. A valid token exposes the
// caller as the user_id, role and id request attributes; a request without an
// Authorization header passes through anonymously; a bad token is rejected.
// With a user store the role comes from the stored account, and tokens of
// deleted (401) or suspended (403) accounts are refused.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			g.reject(w, r, "malformed_header", errs.Unauthorized("Authorization header must use the Bearer scheme"))
			return
		}
		claims, err := g.tokens.Verify(token)
		if err != nil {
			g.logger.Debug().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("token rejected")
			g.reject(w, r, "invalid_token", errs.Unauthorized("Invalid or expired token"))
			return
		}

		role := claims.Role
		if g.users != nil {
			u, err := g.users.Get(r.Context(), claims.UserID)
			switch {
			case errors.Is(err, ports.ErrNotFound):
				g.reject(w, r, "unknown_account", errs.Unauthorized("Account no longer exists"))
				return
			case err != nil:
				g.logger.Error().Err(err).Int64("user_id", claims.UserID).Msg("caller lookup failed")
				writeEnvelope(w, g.errors.Response(fmt.Errorf("load caller %d: %w", claims.UserID, err)))
				return
			case !u.IsActive():
				g.reject(w, r, "suspended_account", errs.Forbidden("Account is suspended"))
				return
			}
			role = u.Role
		}

		ctx := crud.WithAttribute(r.Context(), app.AttrUserID, claims.UserID)
		ctx = crud.WithAttribute(ctx, app.AttrRole, role)
		ctx = crud.WithAttribute(ctx, app.AttrID, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous requests. Install it after Authenticate.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := app.CallerFrom(r.Context()); err != nil {
			g.reject(w, r, "missing_token", err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers without role. Anonymous callers get 401.
func (g *Guard) RequireRole(role user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := app.CallerFrom(r.Context())
			if err != nil {
				g.reject(w, r, "missing_token", err)
				return
			}
			if caller.Role != role {
				g.reject(w, r, "forbidden_role", errs.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles requests per client IP with limiter. Limiter errors are
// logged and the request is let through.
func (g *Guard) RateLimit(name string, limiter ports.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, err := limiter.Allow(r.Context(), name+":"+clientIP(r))
			if err != nil {
				g.logger.Warn().Err(err).Str("limiter", name).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if g.metrics != nil {
					g.metrics.RateLimitHits.WithLabelValues(name).Inc()
				}
				w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(retryAfter)))
				writeEnvelope(w, g.errors.Response(errs.TooManyRequests("Too many requests, please try again later")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, reason string, err error) {
	if g.metrics != nil {
		g.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
	writeEnvelope(w, g.errors.Response(err))
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func retrySeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
