package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/liliang-cn/sagittadb/internal/ident"
	"github.com/liliang-cn/sagittadb/internal/query"
	"github.com/liliang-cn/sagittadb/internal/sqlite"
)

// AggregationType defines the type of aggregation
type AggregationType string

const (
	AggregationCount AggregationType = "count"
	AggregationSum   AggregationType = "sum"
	AggregationAvg   AggregationType = "avg"
	AggregationMin   AggregationType = "min"
	AggregationMax   AggregationType = "max"
)

// ParseAggregationType accepts the lower-case aggregation names.
func ParseAggregationType(s string) (AggregationType, error) {
	switch t := AggregationType(s); t {
	case AggregationCount, AggregationSum, AggregationAvg, AggregationMin, AggregationMax:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unsupported aggregation type %q", ErrInvalidArgument, s)
	}
}

// AggregationRequest defines parameters for aggregation queries
type AggregationRequest struct {
	Type    AggregationType `json:"type" yaml:"type"`
	Field   string          `json:"field,omitempty" yaml:"field,omitempty"`       // Field to aggregate, unused by count
	GroupBy string          `json:"group_by,omitempty" yaml:"group_by,omitempty"` // Optional field to group by
	Filter  Equality        `json:"filter,omitempty" yaml:"filter,omitempty"`     // Optional filter
}

// AggregationResult represents a single aggregation result
type AggregationResult struct {
	Group any      `json:"group" yaml:"group"` // Value of the group-by field, nil without grouping
	Value *float64 `json:"value" yaml:"value"` // nil when no numeric value was seen
	Count int64    `json:"count" yaml:"count"` // Number of documents in the group
}

// Aggregate computes req.Type over req.Field for the documents matching
// req.Filter. With GroupBy, one result is returned per distinct value of that
// field (booleans group as 1 and 0), largest groups first. Without GroupBy a
// single result covers every matching document. Non-numeric values of Field
// are skipped by sum, avg, min and max.
func (c *Collection) Aggregate(ctx context.Context, req AggregationRequest) (results []AggregationResult, err error) {
	defer c.track("aggregate", time.Now(), &err)

	if err := validateAggregationRequest(req); err != nil {
		return nil, err
	}
	clause, err := query.Translate(req.Filter)
	if err != nil {
		return nil, err
	}
	stmt, args := query.Aggregate(string(req.Type), req.Field, req.GroupBy, clause)

	err = c.handle.Do(ctx, func(q sqlite.Querier) error {
		rows, err := q.QueryContext(ctx, stmt, args...)
		if err != nil {
			return sqlite.ExecutionError(err)
		}
		defer func() { _ = rows.Close() }()

		results = []AggregationResult{}
		for rows.Next() {
			var (
				res   AggregationResult
				value sql.NullFloat64
			)
			if err := rows.Scan(&res.Group, &value, &res.Count); err != nil {
				return sqlite.ExecutionError(err)
			}
			if value.Valid {
				res.Value = &value.Float64
			}
			if b, ok := res.Group.([]byte); ok {
				res.Group = string(b)
			}
			results = append(results, res)
		}
		return sqlite.ExecutionError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func validateAggregationRequest(req AggregationRequest) error {
	if _, err := ParseAggregationType(string(req.Type)); err != nil {
		return err
	}
	if req.Type != AggregationCount {
		if req.Field == "" {
			return fmt.Errorf("%w: field is required for %s aggregation", ErrInvalidArgument, req.Type)
		}
		if _, err := ident.Validate(req.Field); err != nil {
			return err
		}
	}
	if req.GroupBy != "" {
		if _, err := ident.Validate(req.GroupBy); err != nil {
			return err
		}
	}
	return nil
}
