package catalog

import (
	"net/http"
	"strconv"

	"github.com/2beens/gymbook/internal/datasvc"
	"github.com/2beens/gymbook/internal/telemetry/tracing"
	"github.com/2beens/gymbook/pkg"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -destination=reader_mocks_test.go -package=catalog_test github.com/2beens/gymbook/internal/datasvc Reader

type Handler struct {
	reader datasvc.Reader
}

func NewHandler(reader datasvc.Reader) *Handler {
	return &Handler{
		reader: reader,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/catalog", handler.handleGet).Methods("GET", "OPTIONS").Name("catalog")
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "catalogHandler.get")
	defer span.End()

	query := r.URL.Query()
	bodyPartID, err := intParam(query.Get("bodyPart"))
	if err != nil {
		http.Error(w, "error, bodyPart NaN", http.StatusBadRequest)
		return
	}
	categoryID, err := intParam(query.Get("category"))
	if err != nil {
		http.Error(w, "error, category NaN", http.StatusBadRequest)
		return
	}
	page, err := intParam(query.Get("page"))
	if err != nil {
		http.Error(w, "error, page NaN", http.StatusBadRequest)
		return
	}

	view := Load(ctx, handler.reader)

	filters := Filters{
		Term:       query.Get("term"),
		BodyPartID: bodyPartID,
		CategoryID: categoryID,
	}
	if filters != (Filters{}) {
		view.ApplyFilters(filters)
	}
	if page > 0 {
		view.ChangePage(page)
	}

	span.SetAttributes(
		attribute.Int("catalog.items", len(view.Filtered())),
		attribute.Int("catalog.page", view.CurrentPage()),
	)

	pkg.WriteJSON(w, view.Snapshot(), http.StatusOK)
}

func intParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
