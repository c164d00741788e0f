package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/venuedex/internal/db"
)

// Aggregate runs an FT.AGGREGATE pipeline and returns its rows.
func (s *Store) Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error) {
	args, err := buildAggregateArgs(q)
	if err != nil {
		return nil, err
	}

	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	// [total, [k1, v1, k2, v2, ...], [k1, v1, ...], ...]
	if len(raw) <= 1 {
		return nil, nil
	}
	rows := make([]db.AggregateRow, 0, len(raw)-1)
	for _, msg := range raw[1:] {
		fields, err := msg.ToArray()
		if err != nil {
			continue
		}
		rows = append(rows, db.AggregateRow(parseFieldPairs(fields)))
	}
	return rows, nil
}

func buildAggregateArgs(q *db.AggregateQuery) ([]string, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	query := q.Query
	if query == "" {
		query = "*"
	}
	if len(q.Reducers) > 0 && len(q.GroupBy) == 0 {
		return nil, fmt.Errorf("reducers require GROUPBY")
	}

	args := []string{q.IndexName, query}

	if len(q.Load) > 0 {
		args = append(args, "LOAD", strconv.Itoa(len(q.Load)))
		args = append(args, q.Load...)
	}

	if len(q.GroupBy) > 0 {
		args = append(args, "GROUPBY", strconv.Itoa(len(q.GroupBy)))
		args = append(args, q.GroupBy...)
		for _, r := range q.Reducers {
			args = append(args, "REDUCE", r.Func, strconv.Itoa(len(r.Args)))
			args = append(args, r.Args...)
			if r.As != "" {
				args = append(args, "AS", r.As)
			}
		}
	}

	for _, a := range q.Applies {
		args = append(args, "APPLY", a.Expr, "AS", a.As)
	}

	if q.Filter != "" {
		args = append(args, "FILTER", q.Filter)
	}

	if len(q.SortBy) > 0 {
		args = append(args, "SORTBY", strconv.Itoa(len(q.SortBy)*2))
		for _, k := range q.SortBy {
			order := k.Order
			if order == "" {
				order = db.Asc
			}
			args = append(args, k.Field, string(order))
		}
	}

	if q.Limit > 0 {
		args = append(args, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit))
	}

	args = append(args, "DIALECT", "2")
	return args, nil
}
