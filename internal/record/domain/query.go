package domain

import (
	"strconv"
	"strings"

	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100

	DefaultSuggestLimit = 10
	MaxSuggestLimit     = 50
)

// ListQuery filters, sorts and pages a record listing.
type ListQuery struct {
	Search  string            `json:"search,omitempty"`
	Status  *bool             `json:"status,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
	Sort    string            `json:"sort,omitempty"`
	Desc    bool              `json:"desc,omitempty"`
	Limit   int               `json:"limit,omitempty"`
	Offset  int               `json:"offset,omitempty"`
}

// Normalize checks q against the kind's schema and fills in defaults.
// Filter values are canonicalised so stores can compare them as text.
func (q ListQuery) Normalize(s Schema) (ListQuery, error) {
	details := map[string]string{}

	q.Search = strings.TrimSpace(q.Search)

	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		details["offset"] = "must be greater than or equal to 0"
	}

	if q.Sort == "" {
		q.Sort = "created_at"
		q.Desc = true
	} else if _, ok := s.Sorts[q.Sort]; !ok {
		details["sort"] = "unknown sort field"
	}

	filters := make(map[string]string, len(q.Filters))
	for name, value := range q.Filters {
		f, ok := s.Filters[name]
		if !ok {
			details["filters."+name] = "unknown filter"
			continue
		}
		canonical, ok := canonicalFilterValue(f.Type, value)
		if !ok {
			details["filters."+name] = "invalid value"
			continue
		}
		filters[name] = canonical
	}
	q.Filters = filters

	if len(details) > 0 {
		return q, apperrors.Validation("invalid list query", details)
	}
	return q, nil
}

// SortColumn resolves the normalized sort name.
func (q ListQuery) SortColumn(s Schema) string {
	if col, ok := s.Sorts[q.Sort]; ok {
		return col
	}
	return "created_at"
}

func canonicalFilterValue(t FilterType, value string) (string, bool) {
	value = strings.TrimSpace(value)
	switch t {
	case FilterBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	case FilterID:
		id, err := types.ParseID(value)
		if err != nil {
			return "", false
		}
		return strings.ToLower(id.String()), true
	}
	return value, true
}

// Suggestion is one autocomplete hit.
type Suggestion struct {
	Kind  Kind     `json:"kind"`
	ID    types.ID `json:"id"`
	Label string   `json:"label"`
}

// ClampSuggestLimit applies the autocomplete default and cap.
func ClampSuggestLimit(limit int) int {
	if limit <= 0 {
		return DefaultSuggestLimit
	}
	if limit > MaxSuggestLimit {
		return MaxSuggestLimit
	}
	return limit
}
