package datasvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/gymbook/internal/entity"
	"github.com/2beens/gymbook/internal/telemetry/metrics"
	"github.com/2beens/gymbook/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type columnKind int

const (
	kindInt columnKind = iota
	kindText
	kindTime
	kindJSON
)

type tableSchema map[string]columnKind

// schema lists the tables and columns the store will touch; anything else in
// a resource string is rejected before SQL is built.
var schema = map[string]tableSchema{
	entity.ResourceBodyPart: {
		"id":   kindInt,
		"name": kindText,
	},
	entity.ResourceCategory: {
		"id":   kindInt,
		"name": kindText,
	},
	entity.ResourceExercise: {
		"id":          kindInt,
		"name":        kindText,
		"bodypart_id": kindInt,
		"category_id": kindInt,
		"thumbnail":   kindText,
	},
	entity.ResourceWorkoutHistory: {
		"id":        kindInt,
		"user_uid":  kindText,
		"date":      kindTime,
		"day":       kindText,
		"duration":  kindInt,
		"exercises": kindJSON,
	},
}

type PgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

var _ Accessor = (*PostgresStore)(nil)

// PostgresStore serves the same resources and query language as the REST
// data API directly from postgres.
type PostgresStore struct {
	db             PgxPool
	metricsManager *metrics.Manager
}

func NewPostgresStore(db PgxPool, metricsManager *metrics.Manager) *PostgresStore {
	return &PostgresStore{
		db:             db,
		metricsManager: metricsManager,
	}
}

func (s *PostgresStore) GetAll(ctx context.Context, resource string) (_ []json.RawMessage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "datasvc.postgres.getAll")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("resource", resource))
	defer s.observe("get_all", time.Now())

	q, err := ParseResource(resource)
	if err != nil {
		return nil, err
	}
	sql, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query [%s]: %w", q.Table, err)
	}
	defer rows.Close()

	records := make([]json.RawMessage, 0)
	for rows.Next() {
		var rec json.RawMessage
		if err := rows.Scan(&rec); err != nil {
			return nil, fmt.Errorf("scan [%s] row: %w", q.Table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows [%s]: %w", q.Table, err)
	}

	return records, nil
}

func (s *PostgresStore) Create(ctx context.Context, resource string, body any) (_ json.RawMessage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "datasvc.postgres.create")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("resource", resource))
	defer s.observe("create", time.Now())

	sql, payload, err := buildInsert(resource, body)
	if err != nil {
		return nil, err
	}

	var rec json.RawMessage
	if err := s.db.QueryRow(ctx, sql, payload).Scan(&rec); err != nil {
		return nil, mapPgError(fmt.Sprintf("create [%s]", resource), err)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateByID(ctx context.Context, resource string, id int, body any) (_ json.RawMessage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "datasvc.postgres.updateById")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("resource", resource), attribute.Int("id", id))
	defer s.observe("update", time.Now())

	sql, payload, err := buildUpdate(resource, body)
	if err != nil {
		return nil, err
	}

	var rec json.RawMessage
	if err := s.db.QueryRow(ctx, sql, payload, id).Scan(&rec); err != nil {
		return nil, mapPgError(fmt.Sprintf("update [%s/%d]", resource, id), err)
	}
	return rec, nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, resource string, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "datasvc.postgres.deleteById")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("resource", resource), attribute.Int("id", id))
	defer s.observe("delete", time.Now())

	if _, ok := schema[resource]; !ok {
		return fmt.Errorf("%w: table [%s]", ErrInvalidResource, resource)
	}

	tag, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", resource), id)
	if err != nil {
		return mapPgError(fmt.Sprintf("delete [%s/%d]", resource, id), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) observe(op string, start time.Time) {
	if s.metricsManager == nil {
		return
	}
	s.metricsManager.HistogramDataCallDuration.
		WithLabelValues("postgres", op).
		Observe(time.Since(start).Seconds())
}

func buildSelect(q *Query) (string, []any, error) {
	table, ok := schema[q.Table]
	if !ok {
		return "", nil, fmt.Errorf("%w: table [%s]", ErrInvalidResource, q.Table)
	}

	var sb strings.Builder
	sb.WriteString("SELECT row_to_json(t) FROM ")
	sb.WriteString(q.Table)
	sb.WriteString(" t")

	args := make([]any, 0, len(q.Filters))
	for i, f := range q.Filters {
		kind, ok := table[f.Column]
		if !ok {
			return "", nil, fmt.Errorf("%w: column [%s.%s]", ErrInvalidResource, q.Table, f.Column)
		}
		op, ok := validOps[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("%w: operator [%s]", ErrInvalidResource, f.Op)
		}
		arg, err := filterArg(kind, f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%w: filter [%s]: %s", ErrInvalidResource, f.Column, err)
		}

		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		column := "t." + f.Column
		if kind == kindText || kind == kindJSON {
			column += "::text"
		}
		fmt.Fprintf(&sb, "%s %s $%d", column, op, i+1)
		args = append(args, arg)
	}

	if len(q.Orders) > 0 {
		orders := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			if _, ok := table[o.Column]; !ok {
				return "", nil, fmt.Errorf("%w: order column [%s.%s]", ErrInvalidResource, q.Table, o.Column)
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			orders = append(orders, "t."+o.Column+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.Limit))
	}

	return sb.String(), args, nil
}

func buildInsert(resource string, body any) (string, string, error) {
	columns, payload, err := payloadColumns(resource, body)
	if err != nil {
		return "", "", err
	}
	cols := strings.Join(columns, ", ")
	sql := fmt.Sprintf(
		"INSERT INTO %s AS t (%s) SELECT %s FROM json_populate_record(NULL::%s, $1::json) RETURNING row_to_json(t)",
		resource, cols, cols, resource,
	)
	return sql, payload, nil
}

func buildUpdate(resource string, body any) (string, string, error) {
	columns, payload, err := payloadColumns(resource, body)
	if err != nil {
		return "", "", err
	}
	cols := strings.Join(columns, ", ")
	sql := fmt.Sprintf(
		"UPDATE %s AS t SET (%s) = (SELECT %s FROM json_populate_record(NULL::%s, $1::json)) WHERE t.id = $2 RETURNING row_to_json(t)",
		resource, cols, cols, resource,
	)
	return sql, payload, nil
}

// payloadColumns returns the known, writable columns present in body
// (sorted, id excluded) and the body as a JSON string.
func payloadColumns(resource string, body any) ([]string, string, error) {
	table, ok := schema[resource]
	if !ok {
		return nil, "", fmt.Errorf("%w: table [%s]", ErrInvalidResource, resource)
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("marshal body: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bodyBytes, &fields); err != nil {
		return nil, "", fmt.Errorf("%w: body must be a json object", ErrInvalidResource)
	}

	columns := make([]string, 0, len(fields))
	for k := range fields {
		if k == "id" {
			continue
		}
		if _, ok := table[k]; ok {
			columns = append(columns, k)
		}
	}
	if len(columns) == 0 {
		return nil, "", fmt.Errorf("%w: no writable columns for [%s]", ErrInvalidResource, resource)
	}
	sort.Strings(columns)

	return columns, string(bodyBytes), nil
}

func filterArg(kind columnKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.ParseInt(value, 10, 64)
	case kindTime:
		ts, err := entity.ParseTimestamp(value)
		if err != nil {
			return nil, err
		}
		return ts.Time, nil
	default:
		return value, nil
	}
}

func mapPgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
