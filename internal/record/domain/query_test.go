package domain

import (
	"testing"
)

func TestListQueryNormalize(t *testing.T) {
	s := KindIncident.Schema()

	t.Run("defaults", func(t *testing.T) {
		q, err := ListQuery{}.Normalize(s)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if q.Limit != DefaultLimit {
			t.Errorf("Expected limit %d, got %d", DefaultLimit, q.Limit)
		}
		if q.Sort != "created_at" || !q.Desc {
			t.Errorf("Expected newest first, got sort=%s desc=%v", q.Sort, q.Desc)
		}
	})

	t.Run("limit capped", func(t *testing.T) {
		q, _ := ListQuery{Limit: 1000}.Normalize(s)
		if q.Limit != MaxLimit {
			t.Errorf("Expected limit %d, got %d", MaxLimit, q.Limit)
		}
	})

	t.Run("unknown filter and sort", func(t *testing.T) {
		_, err := ListQuery{Filters: map[string]string{"agency": "x"}, Sort: "secret"}.Normalize(s)
		d := details(t, err)
		if d["filters.agency"] != "unknown filter" {
			t.Errorf("Expected unknown filter detail, got %v", d)
		}
		if d["sort"] != "unknown sort field" {
			t.Errorf("Expected unknown sort detail, got %v", d)
		}
	})

	t.Run("values canonicalised", func(t *testing.T) {
		q, err := ListQuery{Filters: map[string]string{
			"mining_related": "1",
			"location_id":    "11111111-1111-4111-8111-111111111111",
		}}.Normalize(s)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if q.Filters["mining_related"] != "true" {
			t.Errorf("Expected true, got %s", q.Filters["mining_related"])
		}
	})

	t.Run("bad values", func(t *testing.T) {
		_, err := ListQuery{Filters: map[string]string{"mining_related": "maybe", "location_id": "x"}}.Normalize(s)
		d := details(t, err)
		if d["filters.mining_related"] != "invalid value" || d["filters.location_id"] != "invalid value" {
			t.Errorf("Expected invalid value details, got %v", d)
		}
	})
}

func TestClampSuggestLimit(t *testing.T) {
	tests := []struct{ in, expected int }{{0, 10}, {-3, 10}, {5, 5}, {50, 50}, {51, 50}}
	for _, tt := range tests {
		if got := ClampSuggestLimit(tt.in); got != tt.expected {
			t.Errorf("Expected %d for %d, got %d", tt.expected, tt.in, got)
		}
	}
}
