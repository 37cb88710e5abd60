package catalog

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/2beens/gymbook/internal/datasvc"
	"github.com/2beens/gymbook/internal/entity"
	"github.com/2beens/gymbook/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	PageSize         = 12
	DefaultThumbnail = "./assets/dumbbell.png"
	// Ellipsis marks a gap in the pager numbers.
	Ellipsis = -1

	maxPagesVisible = 5
)

// Item is an exercise prepared for display.
type Item struct {
	entity.Exercise
	DisplayThumbnail string  `json:"displayThumbnail"`
	SortKey          float64 `json:"sortKey"`
	BodyPartName     string  `json:"bodyPartName"`
	CategoryName     string  `json:"categoryName"`
}

type Filters struct {
	Term       string `json:"term"`
	BodyPartID int    `json:"bodyPart"`
	CategoryID int    `json:"category"`
}

// View holds the catalog state of one request.
type View struct {
	items       []Item
	filtered    []Item
	bodyParts   []entity.BodyPart
	categories  []entity.Category
	filters     Filters
	currentPage int
}

// SortKey gives every exercise id a deterministic pseudo random position.
func SortKey(id int) float64 {
	seed := id*9301 + 49297
	return float64(seed%233280) / 233280
}

// Load fetches exercises, body parts and categories concurrently. A failed
// fetch is logged and leaves only its own list empty.
func Load(ctx context.Context, reader datasvc.Reader) *View {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.load")
	defer span.End()

	var (
		exercises  []entity.Exercise
		bodyParts  []entity.BodyPart
		categories []entity.Category
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if exercises, err = datasvc.ListAs[entity.Exercise](gCtx, reader, entity.ResourceExercise); err != nil {
			log.Errorf("catalog: load exercises: %s", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if bodyParts, err = datasvc.ListAs[entity.BodyPart](gCtx, reader, entity.ResourceBodyPart); err != nil {
			log.Errorf("catalog: load body parts: %s", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if categories, err = datasvc.ListAs[entity.Category](gCtx, reader, entity.ResourceCategory); err != nil {
			log.Errorf("catalog: load categories: %s", err)
		}
		return nil
	})
	// goroutines never fail, errors are logged above
	_ = g.Wait()

	return NewView(exercises, bodyParts, categories)
}

func NewView(exercises []entity.Exercise, bodyParts []entity.BodyPart, categories []entity.Category) *View {
	items := make([]Item, 0, len(exercises))
	for _, e := range exercises {
		thumbnail := e.Thumbnail
		if thumbnail == "" {
			thumbnail = DefaultThumbnail
		}
		items = append(items, Item{
			Exercise:         e,
			DisplayThumbnail: thumbnail,
			SortKey:          SortKey(e.ID),
			BodyPartName:     entity.BodyPartName(bodyParts, e.BodyPartID),
			CategoryName:     entity.CategoryName(categories, e.CategoryID),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SortKey < items[j].SortKey
	})

	if bodyParts == nil {
		bodyParts = []entity.BodyPart{}
	}
	if categories == nil {
		categories = []entity.Category{}
	}

	return &View{
		items:       items,
		filtered:    items,
		bodyParts:   bodyParts,
		categories:  categories,
		currentPage: 1,
	}
}

// ApplyFilters narrows the sorted list and resets the page to 1.
func (v *View) ApplyFilters(filters Filters) {
	v.filters = filters
	v.currentPage = 1

	term := strings.ToLower(strings.TrimSpace(filters.Term))
	result := make([]Item, 0, len(v.items))
	for _, item := range v.items {
		if term != "" &&
			!strings.Contains(strings.ToLower(item.Name), term) &&
			!strings.Contains(strings.ToLower(item.BodyPartName), term) &&
			!strings.Contains(strings.ToLower(item.CategoryName), term) {
			continue
		}
		if filters.BodyPartID > 0 && item.BodyPartID != filters.BodyPartID {
			continue
		}
		if filters.CategoryID > 0 && item.CategoryID != filters.CategoryID {
			continue
		}
		result = append(result, item)
	}
	v.filtered = result
}

func (v *View) ClearFilters() {
	v.filters = Filters{}
	v.filtered = v.items
	v.currentPage = 1
}

func (v *View) HasActiveFilters() bool {
	return strings.TrimSpace(v.filters.Term) != "" ||
		v.filters.BodyPartID > 0 ||
		v.filters.CategoryID > 0
}

func (v *View) Filters() Filters {
	return v.filters
}

func (v *View) Filtered() []Item {
	return v.filtered
}

func (v *View) BodyParts() []entity.BodyPart {
	return v.bodyParts
}

func (v *View) Categories() []entity.Category {
	return v.categories
}

func (v *View) CurrentPage() int {
	return v.currentPage
}

func (v *View) TotalPages() int {
	return int(math.Ceil(float64(len(v.filtered)) / PageSize))
}

// ChangePage moves to page, ignoring pages out of range.
func (v *View) ChangePage(page int) {
	if page >= 1 && page <= v.TotalPages() {
		v.currentPage = page
	}
}

// Page returns the items of the current page.
func (v *View) Page() []Item {
	start := (v.currentPage - 1) * PageSize
	if start >= len(v.filtered) {
		return []Item{}
	}
	end := min(start+PageSize, len(v.filtered))
	return v.filtered[start:end]
}

// PageNumbers returns the pager: first and last page always, a window
// around the current page, and Ellipsis for the gaps.
func (v *View) PageNumbers() []int {
	return pageNumbers(v.currentPage, v.TotalPages())
}

func pageNumbers(current, total int) []int {
	if total <= maxPagesVisible {
		pages := make([]int, 0, total)
		for i := 1; i <= total; i++ {
			pages = append(pages, i)
		}
		return pages
	}

	pages := []int{1}
	if current > 3 {
		pages = append(pages, Ellipsis)
	}

	start := max(2, current-1)
	end := min(total-1, current+1)
	if current <= 3 {
		end = min(total-1, 4)
	} else if current >= total-2 {
		start = max(2, total-3)
	}

	for i := start; i <= end; i++ {
		if i != 1 && i != total {
			pages = append(pages, i)
		}
	}

	if current < total-2 {
		pages = append(pages, Ellipsis)
	}
	if total > 1 {
		pages = append(pages, total)
	}

	return pages
}

// Snapshot is the JSON shape of the catalog page.
type Snapshot struct {
	Items            []Item            `json:"items"`
	CurrentPage      int               `json:"currentPage"`
	TotalPages       int               `json:"totalPages"`
	TotalItems       int               `json:"totalItems"`
	PageNumbers      []int             `json:"pageNumbers"`
	BodyParts        []entity.BodyPart `json:"bodyParts"`
	Categories       []entity.Category `json:"categories"`
	Filters          Filters           `json:"filters"`
	HasActiveFilters bool              `json:"hasActiveFilters"`
}

func (v *View) Snapshot() Snapshot {
	return Snapshot{
		Items:            v.Page(),
		CurrentPage:      v.currentPage,
		TotalPages:       v.TotalPages(),
		TotalItems:       len(v.filtered),
		PageNumbers:      v.PageNumbers(),
		BodyParts:        v.bodyParts,
		Categories:       v.categories,
		Filters:          v.filters,
		HasActiveFilters: v.HasActiveFilters(),
	}
}
