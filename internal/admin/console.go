package admin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/2beens/gymbook/internal/datasvc"
	"github.com/2beens/gymbook/internal/entity"
	"github.com/2beens/gymbook/internal/notify"
	"github.com/2beens/gymbook/internal/telemetry/metrics"
	"github.com/2beens/gymbook/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const ItemsPerPage = 9

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrNotExercises   = errors.New("thumbnails belong to exercises")
)

// Console is the admin state of one request: the three reference lists,
// the selected kind, the modal with its drafts and the thumbnail preview.
type Console struct {
	notifier       notify.Notifier
	metricsManager *metrics.Manager

	bodyParts  *section[entity.BodyPart]
	categories *section[entity.Category]
	exercises  *section[entity.Exercise]
	panels     map[Kind]panel

	current      Kind
	modalOpen    bool
	imagePreview string
	pages        map[Kind]int
}

func NewConsole(
	accessor datasvc.Accessor,
	notifier notify.Notifier,
	metricsManager *metrics.Manager,
) *Console {
	c := &Console{
		notifier:       notifier,
		metricsManager: metricsManager,
		bodyParts:      newBodyPartSection(accessor),
		categories:     newCategorySection(accessor),
		exercises:      newExerciseSection(accessor),
		current:        KindBodyParts,
		pages: map[Kind]int{
			KindBodyParts:  1,
			KindCategories: 1,
			KindExercises:  1,
		},
	}
	c.panels = map[Kind]panel{
		KindBodyParts:  c.bodyParts,
		KindCategories: c.categories,
		KindExercises:  c.exercises,
	}
	return c
}

// Load fetches all three lists concurrently; failures are logged and leave
// the affected list empty.
func (c *Console) Load(ctx context.Context) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "admin.load")
	defer span.End()

	g, gCtx := errgroup.WithContext(ctx)
	for _, k := range kinds {
		p := c.panels[k]
		g.Go(func() error {
			if err := p.load(gCtx); err != nil {
				log.Errorf("admin: %s", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Console) Select(kind Kind) {
	c.current = kind
}

func (c *Console) Current() Kind {
	return c.current
}

func (c *Console) ModalOpen() bool {
	return c.modalOpen
}

func (c *Console) ImagePreview() string {
	return c.imagePreview
}

func (c *Console) BodyParts() []entity.BodyPart {
	return c.bodyParts.items
}

func (c *Console) Categories() []entity.Category {
	return c.categories.items
}

func (c *Console) Exercises() []entity.Exercise {
	return c.exercises.items
}

// Draft returns the draft of the selected kind.
func (c *Console) Draft() any {
	return c.panels[c.current].draftValue()
}

// OpenAdd opens the modal with an empty draft for the selected kind.
func (c *Console) OpenAdd() {
	c.modalOpen = true
	c.panels[c.current].clearDraft()
	if c.current == KindExercises {
		c.imagePreview = ""
	}
}

// OpenEdit opens the modal with a copy of record id as the draft.
func (c *Console) OpenEdit(id int) error {
	if !c.panels[c.current].seedDraft(id) {
		return fmt.Errorf("%s %d: %w", c.current, id, ErrRecordNotFound)
	}
	if c.current == KindExercises {
		c.imagePreview = c.exercises.draft.Thumbnail
	}
	c.modalOpen = true
	return nil
}

// Close closes the modal and clears every draft and the preview.
func (c *Console) Close() {
	c.modalOpen = false
	for _, p := range c.panels {
		p.clearDraft()
	}
	c.imagePreview = ""
}

// SetDraft replaces the selected kind's draft with the decoded form values.
func (c *Console) SetDraft(raw json.RawMessage) error {
	if err := c.panels[c.current].decodeDraft(raw); err != nil {
		return err
	}
	if c.current == KindExercises && c.exercises.draft.Thumbnail != "" {
		c.imagePreview = c.exercises.draft.Thumbnail
	}
	return nil
}

// ReadThumbnail reads an image and stores it as a data URL in both the
// preview and the exercise draft. Read failures are logged and leave both untouched.
func (c *Console) ReadThumbnail(r io.Reader, mimeType string) (string, error) {
	if c.current != KindExercises {
		return "", ErrNotExercises
	}

	data, err := io.ReadAll(r)
	if err != nil {
		log.Errorf("admin: read thumbnail: %s", err)
		return "", fmt.Errorf("read thumbnail: %w", err)
	}

	dataURL := DataURL(mimeType, data)
	c.imagePreview = dataURL
	c.exercises.draft.Thumbnail = dataURL
	return dataURL, nil
}

// DataURL encodes data as a data:<mime>;base64,... string.
func DataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// Save creates or updates the draft of the selected kind. On success the list
// is reloaded, a toast is sent and the modal closes; on failure the error
// is logged and the state is left as is.
func (c *Console) Save(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "admin.save")
	defer tracing.EndSpanWithErrCheck(span, &err)

	p := c.panels[c.current]
	op, err := p.save(ctx)
	if err != nil {
		c.countMutation(op, "failure")
		log.Errorf("admin: %s %s: %s", op, c.current, err)
		return fmt.Errorf("%s %s: %w", op, c.current, err)
	}
	c.countMutation(op, "success")

	c.reload(ctx, p)

	verb := "added"
	if op == opUpdate {
		verb = "updated"
	}
	toast := notify.Success(fmt.Sprintf("%s %s successfully!", c.current.Label(), verb))
	if c.current == KindCategories && op == opCreate {
		toast = toast.WithAction("close")
	}
	c.notify(ctx, toast)

	c.Close()
	return nil
}

// Delete removes record id of the selected kind without confirmation.
func (c *Console) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "admin.delete")
	defer tracing.EndSpanWithErrCheck(span, &err)

	p := c.panels[c.current]
	if err := p.remove(ctx, id); err != nil {
		c.countMutation(opDelete, "failure")
		log.Errorf("admin: delete %s %d: %s", c.current, id, err)
		return fmt.Errorf("delete %s %d: %w", c.current, id, err)
	}
	c.countMutation(opDelete, "success")

	c.reload(ctx, p)
	c.notify(ctx, notify.Success(fmt.Sprintf("%s deleted successfully!", c.current.Label())))
	return nil
}

// TotalPages of the selected kind's list.
func (c *Console) TotalPages() int {
	return int(math.Ceil(float64(c.panels[c.current].len()) / ItemsPerPage))
}

func (c *Console) CurrentPage() int {
	return c.pages[c.current]
}

// ChangePage moves the selected kind's list to page, ignoring pages out of range.
func (c *Console) ChangePage(page int) {
	if page >= 1 && page <= c.TotalPages() {
		c.pages[c.current] = page
	}
}

// Page returns the visible slice of the selected kind's list.
func (c *Console) Page() any {
	p := c.panels[c.current]
	from := (c.pages[c.current] - 1) * ItemsPerPage
	if from > p.len() {
		from = p.len()
	}
	to := min(from+ItemsPerPage, p.len())
	return p.slice(from, to)
}

func (c *Console) reload(ctx context.Context, p panel) {
	if err := p.load(ctx); err != nil {
		log.Errorf("admin: reload after mutation: %s", err)
	}
	// the list may have shrunk under the current page
	if c.pages[c.current] > c.TotalPages() {
		c.pages[c.current] = max(1, c.TotalPages())
	}
}

func (c *Console) notify(ctx context.Context, toast notify.Toast) {
	if err := c.notifier.Notify(ctx, toast); err != nil {
		log.Warnf("admin: notify [%s]: %s", toast.Message, err)
	}
}

func (c *Console) countMutation(op operation, result string) {
	if c.metricsManager == nil {
		return
	}
	c.metricsManager.CounterAdminMutations.WithLabelValues(string(c.current), string(op), result).Inc()
}

// Snapshot is the JSON shape of the console state.
type Snapshot struct {
	Current      Kind              `json:"current"`
	BodyParts    []entity.BodyPart `json:"bodyParts"`
	Categories   []entity.Category `json:"categories"`
	Exercises    []ExerciseRow     `json:"exercises"`
	Page         any               `json:"page"`
	CurrentPage  int               `json:"currentPage"`
	TotalPages   int               `json:"totalPages"`
	ModalOpen    bool              `json:"modalOpen"`
	Draft        any               `json:"draft"`
	ImagePreview string            `json:"imagePreview,omitempty"`
}

// ExerciseRow is an exercise with its references resolved for display.
type ExerciseRow struct {
	entity.Exercise
	BodyPartName string `json:"bodyPartName"`
	CategoryName string `json:"categoryName"`
}

func (c *Console) Snapshot() Snapshot {
	rows := make([]ExerciseRow, 0, len(c.exercises.items))
	for _, e := range c.exercises.items {
		rows = append(rows, ExerciseRow{
			Exercise:     e,
			BodyPartName: entity.BodyPartName(c.bodyParts.items, e.BodyPartID),
			CategoryName: entity.CategoryName(c.categories.items, e.CategoryID),
		})
	}

	return Snapshot{
		Current:      c.current,
		BodyParts:    c.bodyParts.items,
		Categories:   c.categories.items,
		Exercises:    rows,
		Page:         c.Page(),
		CurrentPage:  c.CurrentPage(),
		TotalPages:   c.TotalPages(),
		ModalOpen:    c.modalOpen,
		Draft:        c.Draft(),
		ImagePreview: c.imagePreview,
	}
}
