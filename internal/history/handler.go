package history

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/gymbook/internal/auth"
	"github.com/2beens/gymbook/internal/datasvc"
	"github.com/2beens/gymbook/internal/notify"
	"github.com/2beens/gymbook/internal/telemetry/metrics"
	"github.com/2beens/gymbook/internal/telemetry/tracing"
	"github.com/2beens/gymbook/pkg"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)


type Handler struct {
	accessor       datasvc.Accessor
	notifier       notify.Notifier
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewHandler(
	accessor datasvc.Accessor,
	notifier notify.Notifier,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		accessor:       accessor,
		notifier:       notifier,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

// WithClock replaces the clock used for the current month and "today".
func (handler *Handler) WithClock(now func() time.Time) *Handler {
	handler.now = now
	return handler
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	historyRouter := mainRouter.PathPrefix("/history").Subrouter()
	historyRouter.HandleFunc("", handler.handleGet).Methods("GET", "OPTIONS").Name("history")
	historyRouter.HandleFunc("/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("history-delete")
}

type historyResponse struct {
	Snapshot
	Toasts []notify.Toast `json:"toasts"`
}

// loadView builds a request scoped view for the session user; ok is false
// when a response was already written.
func (handler *Handler) loadView(w http.ResponseWriter, r *http.Request) (*View, *notify.Recorder, bool) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteJSON(w, auth.Redirect{Redirect: auth.LoginPath}, http.StatusUnauthorized)
		return nil, nil, false
	}

	recorder := notify.NewRecorder()
	view := NewView(handler.accessor, notify.Multi(handler.notifier, recorder), handler.metricsManager, handler.now())

	if err := view.Load(r.Context(), session.LoginResponse.UserID); err != nil {
		if errors.Is(err, ErrInvalidUserID) {
			http.Error(w, "invalid session user", http.StatusBadRequest)
			return nil, nil, false
		}
		writeView(w, view, recorder, http.StatusBadGateway)
		return nil, nil, false
	}

	return view, recorder, true
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "historyHandler.get")
	defer span.End()

	view, recorder, ok := handler.loadView(w, r)
	if !ok {
		return
	}

	month, year := view.Month(), view.Year()
	query := r.URL.Query()
	if monthParam := query.Get("month"); monthParam != "" {
		m, err := strconv.Atoi(monthParam)
		if err != nil {
			http.Error(w, "error, month NaN", http.StatusBadRequest)
			return
		}
		month = m
	}
	if yearParam := query.Get("year"); yearParam != "" {
		y, err := strconv.Atoi(yearParam)
		if err != nil {
			http.Error(w, "error, year NaN", http.StatusBadRequest)
			return
		}
		year = y
	}
	if err := view.SetMonth(month, year); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if offsetParam := query.Get("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil || offset < -1 || offset > 1 {
			http.Error(w, "error, offset must be -1, 0 or 1", http.StatusBadRequest)
			return
		}
		view.ChangeMonth(offset)
	}

	span.SetAttributes(
		attribute.Int("history.month", view.Month()),
		attribute.Int("history.year", view.Year()),
		attribute.Int("history.records", len(view.Filtered())),
	)
	writeView(w, view, recorder, http.StatusOK)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "historyHandler.delete")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if !confirmed {
		http.Error(w, ErrNotConfirmed.Error(), http.StatusPreconditionRequired)
		return
	}

	view, recorder, ok := handler.loadView(w, r)
	if !ok {
		return
	}

	// only records of the session user may be deleted
	if !view.Owns(id) {
		span.SetStatus(codes.Error, ErrUnknownRecord.Error())
		http.Error(w, ErrUnknownRecord.Error(), http.StatusNotFound)
		return
	}

	if err := view.Delete(ctx, id, confirmed); err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeView(w, view, recorder, statusFor(err))
		return
	}

	span.SetStatus(codes.Ok, "deleted")
	writeView(w, view, recorder, http.StatusOK)
}

func writeView(w http.ResponseWriter, view *View, recorder *notify.Recorder, status int) {
	toasts := recorder.Toasts()
	if toasts == nil {
		toasts = []notify.Toast{}
	}
	pkg.WriteJSON(w, historyResponse{
		Snapshot: view.Snapshot(),
		Toasts:   toasts,
	}, status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, datasvc.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, datasvc.ErrUnauthorized):
		return http.StatusForbidden
	}
	return http.StatusBadGateway
}
