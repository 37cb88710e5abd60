package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2beens/gymbook/internal/datasvc"
	"github.com/2beens/gymbook/internal/entity"
)

type operation string

const (
	opCreate operation = "create"
	opUpdate operation = "update"
	opDelete operation = "delete"
)

// panel is one variant of the console: a typed list with its own draft.
type panel interface {
	kind() Kind
	load(ctx context.Context) error
	clearDraft()
	seedDraft(id int) (found bool)
	decodeDraft(raw json.RawMessage) error
	save(ctx context.Context) (operation, error)
	remove(ctx context.Context, id int) error
	len() int
	slice(from, to int) any
	draftValue() any
}

type section[T any] struct {
	k        Kind
	resource *datasvc.Resource[T]
	idOf     func(T) int
	items    []T
	draft    T
}

func newSection[T any](k Kind, accessor datasvc.Accessor, idOf func(T) int) *section[T] {
	return &section[T]{
		k:        k,
		resource: datasvc.NewResource[T](accessor, k.Resource()),
		idOf:     idOf,
		items:    []T{},
	}
}

func (s *section[T]) kind() Kind {
	return s.k
}

func (s *section[T]) load(ctx context.Context) error {
	items, err := s.resource.List(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.k, err)
	}
	s.items = items
	return nil
}

func (s *section[T]) clearDraft() {
	var zero T
	s.draft = zero
}

func (s *section[T]) seedDraft(id int) bool {
	for _, item := range s.items {
		if s.idOf(item) == id {
			// T holds only value fields, so assignment is a copy
			s.draft = item
			return true
		}
	}
	return false
}

func (s *section[T]) decodeDraft(raw json.RawMessage) error {
	var draft T
	if err := json.Unmarshal(raw, &draft); err != nil {
		return fmt.Errorf("decode %s draft: %w", s.k, err)
	}
	s.draft = draft
	return nil
}

// save updates when the draft carries an id, otherwise creates.
func (s *section[T]) save(ctx context.Context) (operation, error) {
	if id := s.idOf(s.draft); id != 0 {
		if _, err := s.resource.Update(ctx, id, s.draft); err != nil {
			return opUpdate, err
		}
		return opUpdate, nil
	}
	if _, err := s.resource.Create(ctx, s.draft); err != nil {
		return opCreate, err
	}
	return opCreate, nil
}

func (s *section[T]) remove(ctx context.Context, id int) error {
	return s.resource.Delete(ctx, id)
}

func (s *section[T]) len() int {
	return len(s.items)
}

func (s *section[T]) slice(from, to int) any {
	return s.items[from:to]
}

func (s *section[T]) draftValue() any {
	return s.draft
}

func newBodyPartSection(accessor datasvc.Accessor) *section[entity.BodyPart] {
	return newSection(KindBodyParts, accessor, func(b entity.BodyPart) int { return b.ID })
}

func newCategorySection(accessor datasvc.Accessor) *section[entity.Category] {
	return newSection(KindCategories, accessor, func(c entity.Category) int { return c.ID })
}

func newExerciseSection(accessor datasvc.Accessor) *section[entity.Exercise] {
	return newSection(KindExercises, accessor, func(e entity.Exercise) int { return e.ID })
}
