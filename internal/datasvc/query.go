package datasvc

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var identifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Filter operators understood by both backends.
const (
	OpEq  = "eq"
	OpNeq = "neq"
	OpGt  = "gt"
	OpGte = "gte"
	OpLt  = "lt"
	OpLte = "lte"
)

var validOps = map[string]string{
	OpEq:  "=",
	OpNeq: "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

type Filter struct {
	Column string
	Op     string
	Value  string
}

type Order struct {
	Column string
	Desc   bool
}

// Query is a parsed resource string: a table plus filters, ordering and limit.
type Query struct {
	Table   string
	Filters []Filter
	Orders  []Order
	Limit   int
}

func NewQuery(table string) *Query {
	return &Query{Table: table}
}

func (q *Query) Where(column, op, value string) *Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: op, Value: value})
	return q
}

func (q *Query) Eq(column, value string) *Query {
	return q.Where(column, OpEq, value)
}

func (q *Query) OrderBy(column string, desc bool) *Query {
	q.Orders = append(q.Orders, Order{Column: column, Desc: desc})
	return q
}

func (q *Query) WithLimit(limit int) *Query {
	q.Limit = limit
	return q
}

// String renders the query in resource form, e.g.
// workout_history?user_uid=eq.abc&order=date.desc
func (q *Query) String() string {
	params := make([]string, 0, len(q.Filters)+2)
	for _, f := range q.Filters {
		params = append(params, f.Column+"="+f.Op+"."+url.QueryEscape(f.Value))
	}
	if len(q.Orders) > 0 {
		orders := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			orders = append(orders, o.Column+"."+dir)
		}
		params = append(params, "order="+strings.Join(orders, ","))
	}
	if q.Limit > 0 {
		params = append(params, "limit="+strconv.Itoa(q.Limit))
	}

	if len(params) == 0 {
		return q.Table
	}
	return q.Table + "?" + strings.Join(params, "&")
}

// ParseResource parses a resource string into a Query. Identifiers are
// restricted to lowercase snake case.
func ParseResource(resource string) (*Query, error) {
	table, rawQuery, _ := strings.Cut(resource, "?")
	table = strings.Trim(table, "/ ")
	if !identifierRegex.MatchString(table) {
		return nil, fmt.Errorf("%w: table [%s]", ErrInvalidResource, table)
	}

	q := NewQuery(table)
	if rawQuery == "" {
		return q, nil
	}

	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed param [%s]", ErrInvalidResource, part)
		}
		value, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidResource, err)
		}

		switch key {
		case "order":
			for _, o := range strings.Split(value, ",") {
				column, dir, _ := strings.Cut(o, ".")
				if !identifierRegex.MatchString(column) {
					return nil, fmt.Errorf("%w: order column [%s]", ErrInvalidResource, column)
				}
				switch dir {
				case "", "asc":
					q.OrderBy(column, false)
				case "desc":
					q.OrderBy(column, true)
				default:
					return nil, fmt.Errorf("%w: order direction [%s]", ErrInvalidResource, dir)
				}
			}
		case "limit":
			limit, err := strconv.Atoi(value)
			if err != nil || limit < 0 {
				return nil, fmt.Errorf("%w: limit [%s]", ErrInvalidResource, value)
			}
			q.Limit = limit
		case "select":
			if value != "*" {
				return nil, fmt.Errorf("%w: only select=* is supported", ErrInvalidResource)
			}
		default:
			if !identifierRegex.MatchString(key) {
				return nil, fmt.Errorf("%w: column [%s]", ErrInvalidResource, key)
			}
			op, operand, ok := strings.Cut(value, ".")
			if !ok {
				return nil, fmt.Errorf("%w: filter [%s]", ErrInvalidResource, part)
			}
			if _, known := validOps[op]; !known {
				return nil, fmt.Errorf("%w: operator [%s]", ErrInvalidResource, op)
			}
			q.Where(key, op, operand)
		}
	}

	return q, nil
}
