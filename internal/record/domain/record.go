package domain

import (
	"time"

	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

// Meta is embedded in every record.
type Meta struct {
	ID                types.ID  `json:"id"`
	Status            bool      `json:"status"`
	OwnerID           types.ID  `json:"owner_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	RevisionID        int       `json:"revision_id"`
	RevisionUser      types.ID  `json:"revision_user,omitempty"`
	RevisionTimestamp time.Time `json:"revision_timestamp"`
	RevisionLog       string    `json:"revision_log,omitempty"`
}

// Base gives stores and services access to the shared metadata.
func (m *Meta) Base() *Meta { return m }

// MetaFields returns values in MetaColumns order.
func (m *Meta) MetaFields() []any {
	return []any{
		m.ID, m.Status, m.OwnerID, m.CreatedAt, m.UpdatedAt,
		m.RevisionID, m.RevisionUser, m.RevisionTimestamp, m.RevisionLog,
	}
}

// MetaPtrs returns scan targets in MetaColumns order.
func (m *Meta) MetaPtrs() []any {
	return []any{
		&m.ID, &m.Status, &m.OwnerID, &m.CreatedAt, &m.UpdatedAt,
		&m.RevisionID, &m.RevisionUser, &m.RevisionTimestamp, &m.RevisionLog,
	}
}

// Record is implemented by every entity kind.
type Record interface {
	Kind() Kind
	Base() *Meta

	// Normalize applies defaults before validation.
	Normalize(today types.Date)
	// Validate checks field constraints. References are checked separately.
	Validate() error
	// References lists the records this one points at.
	References() []Reference

	// Fields returns the kind columns' values in Schema.Columns order.
	Fields() []any
	// FieldPtrs returns scan targets in Schema.Columns order.
	FieldPtrs() []any

	// Label is the short display text used by autocomplete.
	Label() string
}

// Reference is a pointer from one record field to another record.
type Reference struct {
	Field string
	Kind  Kind
	ID    types.ID
}

// New returns an empty record of the given kind.
func New(kind Kind) (Record, error) {
	switch kind {
	case KindIncident:
		return &Incident{}, nil
	case KindVictim:
		return &Victim{}, nil
	case KindPerpetrator:
		return &Perpetrator{}, nil
	case KindLocation:
		return &Location{}, nil
	case KindSector:
		return &Sector{}, nil
	case KindViolation:
		return &Violation{}, nil
	}
	return nil, apperrors.FieldError("kind", "unknown record kind")
}

// MustNew is New for kinds known at compile time.
func MustNew(kind Kind) Record {
	rec, err := New(kind)
	if err != nil {
		panic(err)
	}
	return rec
}

// Defaulter is implemented by records with defaults that only apply on creation.
type Defaulter interface {
	ApplyDefaults(today types.Date)
}

// Immutable is implemented by records with fields an update must not change.
type Immutable interface {
	KeepImmutable(prev Record)
}
