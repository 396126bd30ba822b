package domain

import (
	"slices"

	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
)

// Kind names a record type.
type Kind string

const (
	KindIncident    Kind = "incident"
	KindVictim      Kind = "victim"
	KindPerpetrator Kind = "perpetrator"
	KindLocation    Kind = "location"
	KindSector      Kind = "sector"
	KindViolation   Kind = "violation"
)

// Kinds lists every record kind in display order.
var Kinds = []Kind{KindIncident, KindVictim, KindPerpetrator, KindLocation, KindSector, KindViolation}

// ParseKind accepts a kind name in singular form.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := schemas[k]; !ok {
		return "", apperrors.FieldError("kind", "unknown record kind")
	}
	return k, nil
}

// Deletable reports whether records of this kind may be hard-deleted.
// Incidents, victims and violations are retired through status instead.
func (k Kind) Deletable() bool {
	switch k {
	case KindLocation, KindPerpetrator, KindSector:
		return true
	}
	return false
}

// Schema returns the storage and query description for the kind.
func (k Kind) Schema() Schema {
	return schemas[k]
}

// FilterType controls how a filter value is checked and rendered.
type FilterType int

const (
	FilterText FilterType = iota
	FilterID
	FilterBool
)

// Filter is an equality predicate a list query may use.
type Filter struct {
	Column string
	Type   FilterType
}

// Schema describes how a kind is stored and queried.
type Schema struct {
	Kind  Kind
	Table string
	// Columns are the kind-specific columns, in Record.Fields order.
	Columns []string
	// Search lists the columns ListQuery.Search matches.
	Search []string
	// Filters maps filter names to columns.
	Filters map[string]Filter
	// Sorts maps sort names to columns.
	Sorts map[string]string
	// Suggest lists the columns autocomplete matches; SuggestOrder orders the hits.
	Suggest      []string
	SuggestOrder []string
}

// IsText reports whether col holds free text, which sorts case-insensitively.
func (s Schema) IsText(col string) bool {
	return slices.Contains(s.Search, col) || slices.Contains(s.Suggest, col)
}

// MetaColumns are shared by every record table, in Meta.MetaFields order.
var MetaColumns = []string{
	"id", "status", "owner_id", "created_at", "updated_at",
	"revision_id", "revision_user", "revision_timestamp", "revision_log",
}

var metaFilters = map[string]Filter{
	"owner_id": {Column: "owner_id", Type: FilterID},
}

var metaSorts = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func withMeta(filters map[string]Filter, sorts map[string]string) (map[string]Filter, map[string]string) {
	for k, v := range metaFilters {
		filters[k] = v
	}
	for k, v := range metaSorts {
		sorts[k] = v
	}
	return filters, sorts
}

var schemas = map[Kind]Schema{}

func register(s Schema) {
	s.Filters, s.Sorts = withMeta(s.Filters, s.Sorts)
	schemas[s.Kind] = s
}

func init() {
	register(Schema{
		Kind:  KindIncident,
		Table: "incidents",
		Columns: []string{
			"case_number", "title", "account_of_incident", "date_of_incident",
			"unspecified_date", "incident_continuing", "filing_date",
			"victim_count", "family_count", "perpetrator_count", "location_id",
			"involving_children", "mining_related", "agrarian_related", "demolition_related",
		},
		Search: []string{"case_number", "title", "account_of_incident"},
		Filters: map[string]Filter{
			"case_number":         {Column: "case_number"},
			"location_id":         {Column: "location_id", Type: FilterID},
			"unspecified_date":    {Column: "unspecified_date", Type: FilterBool},
			"incident_continuing": {Column: "incident_continuing", Type: FilterBool},
			"involving_children":  {Column: "involving_children", Type: FilterBool},
			"mining_related":      {Column: "mining_related", Type: FilterBool},
			"agrarian_related":    {Column: "agrarian_related", Type: FilterBool},
			"demolition_related":  {Column: "demolition_related", Type: FilterBool},
		},
		Sorts: map[string]string{
			"case_number":      "case_number",
			"title":            "title",
			"date_of_incident": "date_of_incident",
			"filing_date":      "filing_date",
		},
		Suggest:      []string{"case_number", "title"},
		SuggestOrder: []string{"case_number"},
	})

	register(Schema{
		Kind:  KindVictim,
		Table: "victims",
		Columns: []string{
			"victim_type", "group_name", "first_name", "middle_name", "last_name",
			"occupation", "birthdate", "age", "gender", "civil_status", "ethnicity",
			"number_of_children", "children_below_18", "location_id", "residence",
			"organization_name", "position", "other_affiliation", "remarks",
		},
		Search: []string{"first_name", "middle_name", "last_name", "group_name"},
		Filters: map[string]Filter{
			"victim_type":  {Column: "victim_type"},
			"gender":       {Column: "gender"},
			"civil_status": {Column: "civil_status"},
			"location_id":  {Column: "location_id", Type: FilterID},
		},
		Sorts: map[string]string{
			"last_name":  "last_name",
			"first_name": "first_name",
			"group_name": "group_name",
			"age":        "age",
		},
		Suggest:      []string{"first_name", "last_name"},
		SuggestOrder: []string{"last_name", "first_name"},
	})

	register(Schema{
		Kind:    KindPerpetrator,
		Table:   "perpetrators",
		Columns: []string{"group_name", "unit", "brief_info", "commanding_officer", "location_id", "remarks"},
		Search:  []string{"unit", "group_name", "commanding_officer"},
		Filters: map[string]Filter{
			"group_name":  {Column: "group_name"},
			"location_id": {Column: "location_id", Type: FilterID},
		},
		Sorts: map[string]string{
			"unit":       "unit",
			"group_name": "group_name",
		},
		Suggest:      []string{"unit", "group_name"},
		SuggestOrder: []string{"unit", "group_name"},
	})

	register(Schema{
		Kind:    KindLocation,
		Table:   "locations",
		Columns: []string{"town", "province", "region"},
		Search:  []string{"town", "province", "region"},
		Filters: map[string]Filter{
			"town":     {Column: "town"},
			"province": {Column: "province"},
			"region":   {Column: "region"},
		},
		Sorts: map[string]string{
			"town":     "town",
			"province": "province",
			"region":   "region",
		},
		Suggest:      []string{"town", "province", "region"},
		SuggestOrder: []string{"region", "province", "town"},
	})

	register(Schema{
		Kind:    KindSector,
		Table:   "sectors",
		Columns: []string{"name", "sector_code", "description"},
		Search:  []string{"name", "sector_code"},
		Filters: map[string]Filter{
			"sector_code": {Column: "sector_code"},
		},
		Sorts: map[string]string{
			"name":        "name",
			"sector_code": "sector_code",
		},
		Suggest:      []string{"name", "sector_code"},
		SuggestOrder: []string{"name", "sector_code"},
	})

	register(Schema{
		Kind:    KindViolation,
		Table:   "violations",
		Columns: []string{"violation", "description", "category"},
		Search:  []string{"violation", "category", "description"},
		Filters: map[string]Filter{
			"category": {Column: "category"},
		},
		Sorts: map[string]string{
			"violation": "violation",
			"category":  "category",
		},
		Suggest:      []string{"violation", "category"},
		SuggestOrder: []string{"violation", "category"},
	})
}
