package core

import (
	"context"
	"errors"
	"testing"
)

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)
	seedPeople(t, c)

	value := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		req  AggregationRequest
		want []AggregationResult
	}{
		{
			name: "count all",
			req:  AggregationRequest{Type: AggregationCount},
			want: []AggregationResult{{Value: value(5), Count: 5}},
		},
		{
			name: "count filtered",
			req:  AggregationRequest{Type: AggregationCount, Filter: Equality{"city": "Oslo"}},
			want: []AggregationResult{{Value: value(2), Count: 2}},
		},
		{
			name: "sum",
			req:  AggregationRequest{Type: AggregationSum, Field: "age"},
			want: []AggregationResult{{Value: value(151.5), Count: 5}},
		},
		{
			name: "min",
			req:  AggregationRequest{Type: AggregationMin, Field: "age"},
			want: []AggregationResult{{Value: value(25), Count: 5}},
		},
		{
			name: "max",
			req:  AggregationRequest{Type: AggregationMax, Field: "age"},
			want: []AggregationResult{{Value: value(41), Count: 5}},
		},
		{
			name: "non-numeric field",
			req:  AggregationRequest{Type: AggregationSum, Field: "name"},
			want: []AggregationResult{{Value: nil, Count: 5}},
		},
		{
			name: "avg grouped",
			req:  AggregationRequest{Type: AggregationAvg, Field: "age", GroupBy: "city"},
			want: []AggregationResult{
				{Group: "Oslo", Value: value(35.5), Count: 2},
				{Group: nil, Value: value(30), Count: 1},
				{Group: "Paris", Value: value(25), Count: 1},
				{Group: "Rome", Value: value(25.5), Count: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Aggregate(ctx, tt.req)
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Aggregate() = %+v, want %d results", got, len(tt.want))
			}
			for i, w := range tt.want {
				g := got[i]
				if g.Group != w.Group || g.Count != w.Count {
					t.Errorf("result %d = %+v, want %+v", i, g, w)
				}
				switch {
				case (g.Value == nil) != (w.Value == nil):
					t.Errorf("result %d value = %v, want %v", i, g.Value, w.Value)
				case g.Value != nil && *g.Value != *w.Value:
					t.Errorf("result %d value = %v, want %v", i, *g.Value, *w.Value)
				}
			}
		})
	}
}

func TestAggregateEmptyCollection(t *testing.T) {
	c := newTestCollection(t)

	got, err := c.Aggregate(context.Background(), AggregationRequest{Type: AggregationAvg, Field: "age"})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(got) != 1 || got[0].Count != 0 || got[0].Value != nil {
		t.Errorf("Aggregate() = %+v, want one empty result", got)
	}

	grouped, err := c.Aggregate(context.Background(), AggregationRequest{Type: AggregationCount, GroupBy: "city"})
	if err != nil || len(grouped) != 0 {
		t.Errorf("Aggregate(grouped) = %+v, %v, want no groups", grouped, err)
	}
}

func TestAggregateValidation(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)

	tests := []struct {
		name string
		req  AggregationRequest
		want error
	}{
		{"missing type", AggregationRequest{}, ErrInvalidArgument},
		{"unknown type", AggregationRequest{Type: "median", Field: "age"}, ErrInvalidArgument},
		{"missing field", AggregationRequest{Type: AggregationSum}, ErrInvalidArgument},
		{"bad field", AggregationRequest{Type: AggregationSum, Field: "a'b"}, ErrInvalidIdentifier},
		{"bad group", AggregationRequest{Type: AggregationCount, GroupBy: "x y"}, ErrInvalidIdentifier},
		{"bad filter", AggregationRequest{Type: AggregationCount, Filter: Equality{"a": []any{1}}}, ErrInvalidFilter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Aggregate(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Aggregate() error = %v, want %v", err, tt.want)
			}
		})
	}
}
