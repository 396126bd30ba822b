package domain

import (
	"context"
	"errors"
	"time"

	"github.com/eden-hr/casetracker/internal/shared/types"
)

// ErrDuplicate is returned (wrapped) by stores when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// Reader is the read side shared by a Store and its transactions.
type Reader interface {
	// Get returns the record or a NOT_FOUND AppError.
	Get(ctx context.Context, kind Kind, id types.ID) (Record, error)
	Exists(ctx context.Context, kind Kind, id types.ID) (bool, error)
	// List expects a query already normalized against the kind's schema.
	List(ctx context.Context, kind Kind, q ListQuery) ([]Record, int, error)
	// Suggest returns published records whose Suggest columns contain q, case-insensitively.
	Suggest(ctx context.Context, kind Kind, q string, limit int) ([]Record, error)
	Revisions(ctx context.Context, kind Kind, id types.ID) ([]Revision, error)

	IncidentVictims(ctx context.Context, incidentID types.ID) ([]IncidentVictim, error)
	VictimViolations(ctx context.Context, incidentVictimID types.ID) ([]IncidentVictimViolation, error)
	IncidentPerpetrators(ctx context.Context, incidentID types.ID) ([]IncidentPerpetrator, error)

	// CaseUpdates returns an incident's updates newest first, with documents.
	CaseUpdates(ctx context.Context, incidentID types.ID) ([]CaseUpdate, error)
	Blob(ctx context.Context, fileRef string) (*Blob, error)
}

// Tx is a unit of work. Everything done through it commits or rolls back together.
type Tx interface {
	Reader

	// NextSerial atomically increments and returns the case number counter for period.
	NextSerial(ctx context.Context, period string) (int, error)

	Insert(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, kind Kind, id types.ID) error
	// ReferenceCount counts records and links that point at the record.
	ReferenceCount(ctx context.Context, kind Kind, id types.ID) (int, error)

	LastRevision(ctx context.Context, kind Kind, id types.ID) (*Revision, error)
	AppendRevision(ctx context.Context, rev *Revision) error

	FindIncidentVictim(ctx context.Context, incidentID, victimID types.ID) (*IncidentVictim, error)
	InsertIncidentVictim(ctx context.Context, iv *IncidentVictim) error
	UpdateIncidentVictim(ctx context.Context, iv *IncidentVictim) error
	DeleteIncidentVictim(ctx context.Context, id types.ID) error

	FindVictimViolation(ctx context.Context, incidentVictimID, violationID types.ID) (*IncidentVictimViolation, error)
	InsertVictimViolation(ctx context.Context, v *IncidentVictimViolation) error
	UpdateVictimViolation(ctx context.Context, v *IncidentVictimViolation) error
	DeleteVictimViolation(ctx context.Context, id types.ID) error

	FindIncidentPerpetrator(ctx context.Context, incidentID, perpetratorID types.ID) (*IncidentPerpetrator, error)
	InsertIncidentPerpetrator(ctx context.Context, ip *IncidentPerpetrator) error
	UpdateIncidentPerpetrator(ctx context.Context, ip *IncidentPerpetrator) error
	DeleteIncidentPerpetrator(ctx context.Context, id types.ID) error

	// InsertCaseUpdate stores the update and its documents.
	InsertCaseUpdate(ctx context.Context, u *CaseUpdate) error

	InsertBlob(ctx context.Context, b *Blob) error
	// UseBlob increments the usage count and marks the blob permanent.
	UseBlob(ctx context.Context, fileRef string) error
	DeleteBlob(ctx context.Context, fileRef string) error
	// OrphanBlobs lists temporary, unused blobs created before cutoff.
	OrphanBlobs(ctx context.Context, cutoff time.Time) ([]Blob, error)
}

// Store runs transactions and serves committed reads.
type Store interface {
	Reader
	// InTx runs fn in a transaction, committing if fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Health(ctx context.Context) error
}
