package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/gymbook/internal/entity"
	"github.com/2beens/gymbook/internal/notify"
	"github.com/2beens/gymbook/internal/telemetry/metrics"
	"github.com/2beens/gymbook/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultLoginFailure    = "Invalid credentials or an error occurred."
	DefaultRegisterFailure = "An error occurred during registration."
	RegisteredNotice       = "Registered successfully! Please check your email."

	fallbackUsername = "User"
	fallbackRole     = "user"

	afterLoginPath    = "/workout"
	afterRegisterPath = "/login"
	noticeDurationMs  = 3000
)

// FailureError is a provider failure carrying the message shown to the user.
type FailureError struct {
	Message string
	Err     error
}

func (e *FailureError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err)
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

type sessionStore interface {
	Login(ctx context.Context, loginResponse entity.LoginResponse) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type LoginOutcome struct {
	SessionToken  string               `json:"sessionToken"`
	LoginResponse entity.LoginResponse `json:"loginResponse"`
	Redirect      string               `json:"redirect"`
	Reload        bool                 `json:"reload"`
}

type RegisterOutcome struct {
	Notice            notify.Toast `json:"notice"`
	RedirectOnDismiss string       `json:"redirectOnDismiss"`
}

type Flow struct {
	provider       Provider
	sessions       sessionStore
	metricsManager *metrics.Manager
}

func NewFlow(provider Provider, sessions sessionStore, metricsManager *metrics.Manager) *Flow {
	return &Flow{
		provider:       provider,
		sessions:       sessions,
		metricsManager: metricsManager,
	}
}

// Login validates the form, signs in with the provider and stores the session.
// A *ValidationError means the provider was never called.
func (f *Flow) Login(ctx context.Context, form LoginForm) (_ *LoginOutcome, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "identity.flow.login")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err := ValidateLogin(form); err != nil {
		return nil, err
	}

	result, err := f.provider.SignInWithPassword(ctx, form.Email, form.Password)
	if err != nil || result == nil || result.AccessToken == "" {
		f.countLogin("failure")
		if err == nil {
			err = ErrNoSession
		}
		log.Errorf("login failed for [%s]: %s", form.Email, err)
		return nil, &FailureError{
			Message: failureMessage(err, DefaultLoginFailure),
			Err:     err,
		}
	}

	loginResponse := entity.LoginResponse{
		UserID:   result.User.ID,
		Username: fallback(result.User.DisplayName(), fallbackUsername),
		Email:    result.User.Email,
		Role:     fallback(result.User.Role, fallbackRole),
		Token:    result.AccessToken,
	}

	sessionToken, err := f.sessions.Login(ctx, loginResponse)
	if err != nil {
		f.countLogin("failure")
		log.Errorf("login [%s]: store session: %s", form.Email, err)
		return nil, &FailureError{
			Message: DefaultLoginFailure,
			Err:     fmt.Errorf("store session: %w", err),
		}
	}

	f.countLogin("success")
	log.Debugf("user [%s] logged in", loginResponse.UserID)

	return &LoginOutcome{
		SessionToken:  sessionToken,
		LoginResponse: loginResponse,
		Redirect:      afterLoginPath,
		Reload:        true,
	}, nil
}

// Register validates the form and signs up with the provider, passing the
// username as displayName metadata.
func (f *Flow) Register(ctx context.Context, form RegisterForm) (_ *RegisterOutcome, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "identity.flow.register")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err := ValidateRegister(form); err != nil {
		return nil, err
	}

	if _, err := f.provider.SignUp(ctx, form.Email, form.Password, map[string]any{
		"displayName": form.Username,
	}); err != nil {
		f.countRegistration("failure")
		log.Errorf("register failed for [%s]: %s", form.Email, err)
		return nil, &FailureError{
			Message: failureMessage(err, DefaultRegisterFailure),
			Err:     err,
		}
	}

	f.countRegistration("success")

	return &RegisterOutcome{
		Notice: notify.Success(RegisteredNotice).
			WithDuration(noticeDurationMs).
			WithAction("Close"),
		RedirectOnDismiss: afterRegisterPath,
	}, nil
}

func (f *Flow) Logout(ctx context.Context, sessionToken string) (bool, error) {
	return f.sessions.Logout(ctx, sessionToken)
}

func (f *Flow) countLogin(result string) {
	if f.metricsManager != nil {
		f.metricsManager.CounterLogins.WithLabelValues(result).Inc()
	}
}

func (f *Flow) countRegistration(result string) {
	if f.metricsManager != nil {
		f.metricsManager.CounterRegistrations.WithLabelValues(result).Inc()
	}
}

func failureMessage(err error, defaultMsg string) string {
	var pErr *ProviderError
	if errors.As(err, &pErr) && pErr.Message != "" {
		return pErr.Message
	}
	return defaultMsg
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
