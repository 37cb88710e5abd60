package datasvc

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ListAs fetches resource and decodes every record into T.
func ListAs[T any](ctx context.Context, r Reader, resource string) ([]T, error) {
	raw, err := r.GetAll(ctx, resource)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(raw))
	for i, rec := range raw {
		var item T
		if err := json.Unmarshal(rec, &item); err != nil {
			return nil, fmt.Errorf("decode %s record %d: %w", resource, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Resource is a typed view over one named resource of an Accessor.
type Resource[T any] struct {
	accessor Accessor
	name     string
}

func NewResource[T any](accessor Accessor, name string) *Resource[T] {
	return &Resource[T]{
		accessor: accessor,
		name:     name,
	}
}

func (r *Resource[T]) Name() string {
	return r.name
}

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	return ListAs[T](ctx, r.accessor, r.name)
}

// Query lists records matching q; q.Table is replaced by the resource name.
func (r *Resource[T]) Query(ctx context.Context, q *Query) ([]T, error) {
	scoped := *q
	scoped.Table = r.name
	return ListAs[T](ctx, r.accessor, scoped.String())
}

// Create writes item and returns the stored representation. When the write
// went through without a decodable representation, item is returned.
func (r *Resource[T]) Create(ctx context.Context, item T) (T, error) {
	raw, err := r.accessor.Create(ctx, r.name, item)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.written(raw, item), nil
}

func (r *Resource[T]) Update(ctx context.Context, id int, item T) (T, error) {
	raw, err := r.accessor.UpdateByID(ctx, r.name, id, item)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.written(raw, item), nil
}

func (r *Resource[T]) written(raw json.RawMessage, sent T) T {
	if len(raw) == 0 {
		return sent
	}
	stored, err := decodeRecord[T](r.name, raw)
	if err != nil {
		log.Warnf("datasvc: %s written, but its representation was not decoded: %s", r.name, err)
		return sent
	}
	return stored
}

func (r *Resource[T]) Delete(ctx context.Context, id int) error {
	return r.accessor.DeleteByID(ctx, r.name, id)
}

func decodeRecord[T any](resource string, raw json.RawMessage) (T, error) {
	var item T
	if len(raw) == 0 {
		return item, nil
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("decode %s record: %w", resource, err)
	}
	return item, nil
}
