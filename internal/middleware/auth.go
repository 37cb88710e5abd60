package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/gymbook/internal/auth"
	"github.com/2beens/gymbook/internal/datasvc"
	"github.com/2beens/gymbook/internal/telemetry/tracing"
	"github.com/2beens/gymbook/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const SessionTokenHeader = "X-GYMBOOK-TOKEN"

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=middleware_test

type sessionResolver interface {
	Session(ctx context.Context, token string) (*auth.Session, error)
}

type AuthMiddlewareHandler struct {
	sessions     sessionResolver
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(sessions sessionResolver) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		sessions: sessions,
		allowedPaths: map[string]bool{
			"/":        true,
			"/catalog": true,

			// login-register:
			"/auth/login":    true,
			"/auth/register": true,
		},
	}
}

// SessionTokenFromRequest reads the session token from the custom header,
// falling back to a bearer Authorization header.
func SessionTokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(SessionTokenHeader); token != "" {
		return token
	}
	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthCheck resolves the session token into an auth.Session stored in the
// request context. Always allowed paths get the session when one is present.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			allowed := h.allowedPaths[r.URL.Path]
			token := SessionTokenFromRequest(r)
			if token == "" {
				if allowed {
					span.SetStatus(codes.Ok, "ok")
					next.ServeHTTP(w, r)
					return
				}
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				redirectToLogin(w)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			session, err := h.sessions.Session(ctx, token)
			if err != nil {
				if allowed {
					span.SetStatus(codes.Ok, "ok-stale-token")
					next.ServeHTTP(w, r)
					return
				}
				if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionExpired) {
					log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
					span.SetStatus(codes.Error, "not-logged")
				} else {
					log.Errorf("[failed session check] => %s: %s", r.URL.Path, err)
					span.SetStatus(codes.Error, "check-session-err")
					span.RecordError(err)
				}
				redirectToLogin(w)
				return
			}

			span.SetAttributes(attribute.String("user.id", session.LoginResponse.UserID))
			span.SetStatus(codes.Ok, "ok")

			reqCtx := auth.ContextWithSession(r.Context(), session)
			reqCtx = datasvc.ContextWithToken(reqCtx, session.AuthToken)
			next.ServeHTTP(w, r.WithContext(reqCtx))
		})
	}
}

// redirectToLogin answers requests without a usable session, before any
// handler touches data.
func redirectToLogin(w http.ResponseWriter) {
	pkg.WriteJSON(w, auth.Redirect{Redirect: auth.LoginPath}, http.StatusUnauthorized)
}

// RequireRole lets through only sessions whose role is one of roles.
// No roles means any signed-in user.
func RequireRole(roles []string) func(next http.Handler) http.Handler {
	allowedRoles := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowedRoles[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			session, ok := auth.SessionFromContext(r.Context())
			if !ok {
				http.Error(w, "no can do", http.StatusUnauthorized)
				return
			}

			if len(allowedRoles) > 0 && !allowedRoles[session.LoginResponse.Role] {
				log.Warnf("user [%s] with role [%s] denied access to %s",
					session.LoginResponse.UserID, session.LoginResponse.Role, r.URL.Path)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
