package identity

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/gymbook/internal/auth"
	"github.com/2beens/gymbook/internal/middleware"
	"github.com/2beens/gymbook/internal/telemetry/metrics"
	"github.com/2beens/gymbook/internal/telemetry/tracing"
	"github.com/2beens/gymbook/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Handler struct {
	flow *Flow
}

func NewHandler(flow *Flow) *Handler {
	return &Handler{
		flow: flow,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	loginRateLimitPerMin int,
	metricsManager *metrics.Manager,
) {
	authRouter := mainRouter.PathPrefix("/auth").Subrouter()

	credentialsRouter := authRouter.NewRoute().Subrouter()
	credentialsRouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("login")
	credentialsRouter.HandleFunc("/register", handler.handleRegister).Methods("POST", "OPTIONS").Name("register")
	// rate limit the /login and /register endpoints to prevent abuse
	credentialsRouter.Use(middleware.RateLimit(rateLimiter, "login", loginRateLimitPerMin, metricsManager))

	authRouter.HandleFunc("/logout", handler.handleLogout).Methods("POST", "OPTIONS").Name("logout")
	authRouter.HandleFunc("/me", handler.handleMe).Methods("GET", "OPTIONS").Name("me")
}

type failureResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "identityHandler.login")
	defer span.End()

	var form LoginForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		span.SetStatus(codes.Error, "decode-form")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	outcome, err := handler.flow.Login(ctx, form)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeFlowError(w, err, http.StatusUnauthorized)
		return
	}

	span.SetAttributes(attribute.String("user.id", outcome.LoginResponse.UserID))
	span.SetStatus(codes.Ok, "logged-in")
	pkg.WriteJSON(w, outcome, http.StatusOK)
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "identityHandler.register")
	defer span.End()

	var form RegisterForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		span.SetStatus(codes.Error, "decode-form")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	outcome, err := handler.flow.Register(ctx, form)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeFlowError(w, err, http.StatusBadRequest)
		return
	}

	span.SetStatus(codes.Ok, "registered")
	pkg.WriteJSON(w, outcome, http.StatusCreated)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "identityHandler.logout")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.flow.Logout(ctx, session.Token)
	if err != nil {
		log.Errorf("logout [%s]: %s", session.LoginResponse.UserID, err)
		span.SetStatus(codes.Error, err.Error())
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	log.Debugf("logout for user %s", session.LoginResponse.UserID)
	pkg.WriteTextResponseOK(w, "logged-out")
}

func (handler *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "identityHandler.me")
	defer span.End()

	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteJSON(w, session.LoginResponse, http.StatusOK)
}

func writeFlowError(w http.ResponseWriter, err error, failureStatus int) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		pkg.WriteJSON(w, failureResponse{
			Error:  "invalid form",
			Fields: vErr.Fields,
		}, http.StatusBadRequest)
		return
	}

	var fErr *FailureError
	if errors.As(err, &fErr) {
		pkg.WriteJSON(w, failureResponse{Error: fErr.Message}, failureStatus)
		return
	}

	log.Errorf("identity flow: %s", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
