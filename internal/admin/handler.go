package admin

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/2beens/gymbook/internal/datasvc"
	"github.com/2beens/gymbook/internal/middleware"
	"github.com/2beens/gymbook/internal/notify"
	"github.com/2beens/gymbook/internal/telemetry/metrics"
	"github.com/2beens/gymbook/internal/telemetry/tracing"
	"github.com/2beens/gymbook/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxThumbnailBytes = 5 << 20

type Handler struct {
	accessor       datasvc.Accessor
	notifier       notify.Notifier
	metricsManager *metrics.Manager
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
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router, adminRoles []string) {
	adminRouter := mainRouter.PathPrefix("/admin").Subrouter()
	adminRouter.HandleFunc("/exercises/thumbnail", handler.handleThumbnail).Methods("POST", "OPTIONS").Name("admin-thumbnail")
	adminRouter.HandleFunc("/{kind}", handler.handleList).Methods("GET", "OPTIONS").Name("admin-list")
	adminRouter.HandleFunc("/{kind}", handler.handleSave).Methods("POST", "OPTIONS").Name("admin-save")
	adminRouter.HandleFunc("/{kind}/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("admin-delete")
	adminRouter.Use(middleware.RequireRole(adminRoles))
}

type consoleResponse struct {
	Snapshot
	Toasts []notify.Toast `json:"toasts"`
}

// newConsole builds a request scoped console whose toasts are both queued
// for the session and returned inline.
func (handler *Handler) newConsole(kind Kind) (*Console, *notify.Recorder) {
	recorder := notify.NewRecorder()
	console := NewConsole(handler.accessor, notify.Multi(handler.notifier, recorder), handler.metricsManager)
	console.Select(kind)
	return console, recorder
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "adminHandler.list")
	defer span.End()

	kind, err := ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	console, recorder := handler.newConsole(kind)
	console.Load(ctx)

	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		page, err := strconv.Atoi(pageParam)
		if err != nil {
			http.Error(w, "error, page NaN", http.StatusBadRequest)
			return
		}
		console.ChangePage(page)
	}

	span.SetAttributes(attribute.String("admin.kind", string(kind)))
	writeConsole(w, console, recorder, http.StatusOK)
}

func (handler *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "adminHandler.save")
	defer span.End()

	kind, err := ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	console, recorder := handler.newConsole(kind)
	console.Load(ctx)
	console.OpenAdd()
	if err := console.SetDraft(body); err != nil {
		span.SetStatus(codes.Error, "decode-draft")
		http.Error(w, "invalid draft", http.StatusBadRequest)
		return
	}

	if err := console.Save(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(w, "failed to save "+strings.ToLower(kind.Label()), statusFor(err))
		return
	}

	span.SetStatus(codes.Ok, "saved")
	writeConsole(w, console, recorder, http.StatusOK)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "adminHandler.delete")
	defer span.End()

	vars := mux.Vars(r)
	kind, err := ParseKind(vars["kind"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	console, recorder := handler.newConsole(kind)
	console.Load(ctx)

	if err := console.Delete(ctx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(w, "failed to delete "+strings.ToLower(kind.Label()), statusFor(err))
		return
	}

	span.SetStatus(codes.Ok, "deleted")
	writeConsole(w, console, recorder, http.StatusOK)
}

type thumbnailResponse struct {
	Preview string `json:"preview"`
}

func (handler *Handler) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "adminHandler.thumbnail")
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, maxThumbnailBytes)
	if err := r.ParseMultipartForm(maxThumbnailBytes); err != nil {
		log.Errorf("admin: parse thumbnail form: %s", err)
		http.Error(w, "invalid thumbnail upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "error, image missing", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("admin: close thumbnail file: %s", err)
		}
	}()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(file, head)
		mimeType = http.DetectContentType(head[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			http.Error(w, "invalid thumbnail upload", http.StatusBadRequest)
			return
		}
	}
	if !strings.HasPrefix(mimeType, "image/") {
		http.Error(w, "error, not an image", http.StatusUnsupportedMediaType)
		return
	}

	console, _ := handler.newConsole(KindExercises)
	preview, err := console.ReadThumbnail(file, mimeType)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(w, "failed to read thumbnail", http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.Int64("thumbnail.size", header.Size))
	pkg.WriteJSON(w, thumbnailResponse{Preview: preview}, http.StatusOK)
}

func writeConsole(w http.ResponseWriter, console *Console, recorder *notify.Recorder, status int) {
	toasts := recorder.Toasts()
	if toasts == nil {
		toasts = []notify.Toast{}
	}
	pkg.WriteJSON(w, consoleResponse{
		Snapshot: console.Snapshot(),
		Toasts:   toasts,
	}, status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, datasvc.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, datasvc.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, datasvc.ErrUnauthorized):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
