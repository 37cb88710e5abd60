package notify

import (
	"context"
	"net/http"

	"github.com/2beens/gymbook/internal/auth"
	"github.com/2beens/gymbook/internal/telemetry/tracing"
	"github.com/2beens/gymbook/pkg"

	log "github.com/sirupsen/logrus"
)

type drainer interface {
	Drain(ctx context.Context, sessionToken string) ([]Toast, error)
}

type Handler struct {
	queue drainer
}

func NewHandler(queue drainer) *Handler {
	return &Handler{
		queue: queue,
	}
}

type notificationsResponse struct {
	Toasts []Toast `json:"toasts"`
}

func (h *Handler) HandleDrain(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.drain")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	toasts, err := h.queue.Drain(ctx, session.Token)
	if err != nil {
		log.Errorf("drain notifications: %s", err)
		http.Error(w, "failed to get notifications", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, notificationsResponse{Toasts: toasts}, http.StatusOK)
}
