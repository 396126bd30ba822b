// Package entitystore creates, edits and retires case records. Every mutation
// runs in one transaction together with its revision row and publishes a
// record event once committed.
package entitystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eden-hr/casetracker/internal/casenumber"
	"github.com/eden-hr/casetracker/internal/record/domain"
	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/events"
	"github.com/eden-hr/casetracker/internal/shared/logger"
	"github.com/eden-hr/casetracker/internal/shared/metrics"
	"github.com/eden-hr/casetracker/internal/shared/retry"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

// Event types
const (
	EventCreated       = "record.created"
	EventUpdated       = "record.updated"
	EventStatusChanged = "record.status_changed"
	EventDeleted       = "record.deleted"
)

// Config tunes the service.
type Config struct {
	// CaseNumberRetries bounds how often an incident creation is retried after
	// a case number collision.
	CaseNumberRetries int
	// Location decides the calendar day used for defaults and case number periods.
	Location *time.Location
}

// Service implements the entity store
type Service struct {
	store   domain.Store
	bus     events.EventBus
	numbers *casenumber.Generator
	cfg     Config
	now     func() time.Time
}

// NewService creates a new entity store service
func NewService(store domain.Store, bus events.EventBus, numbers *casenumber.Generator, cfg Config) *Service {
	if cfg.CaseNumberRetries < 1 {
		cfg.CaseNumberRetries = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{store: store, bus: bus, numbers: numbers, cfg: cfg, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) today(now time.Time) types.Date {
	return types.DateOf(now.In(s.cfg.Location))
}

// Create validates and stores a new record. Records start published.
func (s *Service) Create(ctx context.Context, actor types.ID, rec domain.Record) (domain.Record, error) {
	now := s.clock()
	kind := rec.Kind()

	rec.Normalize(s.today(now))
	if d, ok := rec.(domain.Defaulter); ok {
		d.ApplyDefaults(s.today(now))
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	meta := rec.Base()
	meta.ID = types.NewID()
	meta.Status = true
	meta.OwnerID = actor
	meta.CreatedAt = now
	meta.UpdatedAt = now
	log := revisionLog(meta, "created")

	attempt := func(ctx context.Context) (domain.Record, error) {
		err := s.store.InTx(ctx, func(tx domain.Tx) error {
			if err := checkReferences(ctx, tx, rec); err != nil {
				return err
			}

			if inc, ok := rec.(*domain.Incident); ok {
				number, err := s.numbers.Next(ctx, tx, now)
				if err != nil {
					return err
				}
				inc.CaseNumber = number
			}

			rev, err := domain.NewRevision(nil, rec, actor, log, now)
			if err != nil {
				return apperrors.Internal(err)
			}
			if err := tx.Insert(ctx, rec); err != nil {
				return insertError(kind, err)
			}
			return tx.AppendRevision(ctx, rev)
		})
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	created, err := retry.RetryIf(ctx, s.cfg.CaseNumberRetries, isGenerationConflict, func(ctx context.Context) (domain.Record, error) {
		rec, err := attempt(ctx)
		if isGenerationConflict(err) {
			metrics.RecordCaseNumberConflict()
			logger.Warn("case number collision, retrying", "kind", kind)
		}
		return rec, err
	})
	if err != nil {
		return nil, err
	}

	if kind == domain.KindIncident {
		metrics.RecordCaseNumberIssued()
	}
	s.recordMutation(ctx, EventCreated, "create", actor, created)
	return created, nil
}

// insertError maps a failed insert onto the error taxonomy.
func insertError(kind domain.Kind, err error) error {
	if kind == domain.KindIncident && (errors.Is(err, domain.ErrDuplicate) || apperrors.IsSerializationFailure(err)) {
		return apperrors.GenerationConflict(err)
	}
	if errors.Is(err, domain.ErrDuplicate) {
		return apperrors.Conflict(fmt.Sprintf("%s already exists", kind))
	}
	return err
}

func isGenerationConflict(err error) bool {
	return errors.Is(err, apperrors.ErrGenerationConflict)
}

// errRevisionRace marks an update that lost the race for the next revision number.
var errRevisionRace = errors.New("revision race")

// Update replaces the editable fields of an existing record. Identity, ownership,
// creation time, status and the incident case number are kept.
func (s *Service) Update(ctx context.Context, actor types.ID, id types.ID, rec domain.Record) (domain.Record, error) {
	now := s.clock()
	kind := rec.Kind()

	rec.Normalize(s.today(now))
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	log := revisionLog(rec.Base(), "updated")

	updated, err := retry.RetryIf(ctx, s.cfg.CaseNumberRetries, isRevisionRace, func(ctx context.Context) (domain.Record, error) {
		err := s.store.InTx(ctx, func(tx domain.Tx) error {
			prev, err := tx.Get(ctx, kind, id)
			if err != nil {
				return err
			}

			meta, prevMeta := rec.Base(), prev.Base()
			meta.ID = prevMeta.ID
			meta.OwnerID = prevMeta.OwnerID
			meta.CreatedAt = prevMeta.CreatedAt
			meta.Status = prevMeta.Status
			meta.UpdatedAt = now
			if im, ok := rec.(domain.Immutable); ok {
				im.KeepImmutable(prev)
			}

			if err := checkReferences(ctx, tx, rec); err != nil {
				return err
			}
			return s.writeRevised(ctx, tx, actor, rec, log, now)
		})
		if err != nil {
			return nil, err
		}
		return rec, nil
	})
	if errors.Is(err, errRevisionRace) {
		return nil, apperrors.Conflict(fmt.Sprintf("%s was modified concurrently", kind))
	}
	if err != nil {
		return nil, err
	}

	s.recordMutation(ctx, EventUpdated, "update", actor, updated)
	return updated, nil
}

func isRevisionRace(err error) bool {
	return errors.Is(err, errRevisionRace)
}

// writeRevised stores rec and appends its next revision.
func (s *Service) writeRevised(ctx context.Context, tx domain.Tx, actor types.ID, rec domain.Record, log string, now time.Time) error {
	last, err := tx.LastRevision(ctx, rec.Kind(), rec.Base().ID)
	if err != nil {
		return err
	}
	rev, err := domain.NewRevision(last, rec, actor, log, now)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := tx.Update(ctx, rec); err != nil {
		return err
	}
	if err := tx.AppendRevision(ctx, rev); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return fmt.Errorf("%w: %w", errRevisionRace, err)
		}
		return err
	}
	return nil
}

// SetStatus publishes or retires a record.
func (s *Service) SetStatus(ctx context.Context, actor types.ID, kind domain.Kind, id types.ID, published bool) (domain.Record, error) {
	now := s.clock()
	log := "unpublished"
	if published {
		log = "published"
	}

	var rec domain.Record
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		var err error
		rec, err = tx.Get(ctx, kind, id)
		if err != nil {
			return err
		}
		meta := rec.Base()
		meta.Status = published
		meta.UpdatedAt = now
		return s.writeRevised(ctx, tx, actor, rec, log, now)
	})
	if errors.Is(err, errRevisionRace) {
		return nil, apperrors.Conflict(fmt.Sprintf("%s was modified concurrently", kind))
	}
	if err != nil {
		return nil, err
	}

	s.recordMutation(ctx, EventStatusChanged, "status", actor, rec)
	return rec, nil
}

// Delete hard-deletes a location, perpetrator or sector nobody references.
func (s *Service) Delete(ctx context.Context, actor types.ID, kind domain.Kind, id types.ID) error {
	if !kind.Deletable() {
		return apperrors.Forbidden("deletion disabled")
	}
	now := s.clock()

	var rec domain.Record
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		var err error
		rec, err = tx.Get(ctx, kind, id)
		if err != nil {
			return err
		}

		n, err := tx.ReferenceCount(ctx, kind, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperrors.Conflict(fmt.Sprintf("%s is referenced by %d records", kind, n))
		}

		last, err := tx.LastRevision(ctx, kind, id)
		if err != nil {
			return err
		}
		rev, err := domain.NewRevision(last, rec, actor, "deleted", now)
		if err != nil {
			return apperrors.Internal(err)
		}
		if err := tx.AppendRevision(ctx, rev); err != nil {
			return err
		}
		return tx.Delete(ctx, kind, id)
	})
	if err != nil {
		return err
	}

	s.recordMutation(ctx, EventDeleted, "delete", actor, rec)
	return nil
}

// Get returns a record by id
func (s *Service) Get(ctx context.Context, kind domain.Kind, id types.ID) (domain.Record, error) {
	return s.store.Get(ctx, kind, id)
}

// List returns one page of records plus the total match count.
func (s *Service) List(ctx context.Context, kind domain.Kind, q domain.ListQuery) ([]domain.Record, int, error) {
	q, err := q.Normalize(kind.Schema())
	if err != nil {
		return nil, 0, err
	}
	return s.store.List(ctx, kind, q)
}

// Revisions returns a record's history, oldest first.
func (s *Service) Revisions(ctx context.Context, kind domain.Kind, id types.ID) ([]domain.Revision, error) {
	revs, err := s.store.Revisions(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		if ok, err := s.store.Exists(ctx, kind, id); err != nil {
			return nil, err
		} else if !ok {
			return nil, apperrors.NotFound(string(kind), id.String())
		}
	}
	return revs, nil
}

// checkReferences reports every referenced record that does not exist.
func checkReferences(ctx context.Context, r domain.Reader, rec domain.Record) error {
	details := map[string]string{}
	for _, ref := range rec.References() {
		if ref.ID.IsZero() {
			continue
		}
		ok, err := r.Exists(ctx, ref.Kind, ref.ID)
		if err != nil {
			return err
		}
		if !ok {
			details[ref.Field] = "not found"
		}
	}
	if len(details) > 0 {
		return apperrors.Validation("validation failed", details)
	}
	return nil
}

func revisionLog(meta *domain.Meta, fallback string) string {
	if meta.RevisionLog != "" {
		return meta.RevisionLog
	}
	return fallback
}

func (s *Service) recordMutation(ctx context.Context, eventType, op string, actor types.ID, rec domain.Record) {
	kind := rec.Kind()
	metrics.RecordMutation(string(kind), op)

	if s.bus == nil {
		return
	}
	meta := rec.Base()
	event := events.NewEvent(eventType, "entitystore", map[string]any{
		"kind":   kind,
		"id":     meta.ID,
		"status": meta.Status,
		"label":  rec.Label(),
	}).WithActor(actor).WithAggregate(string(kind), meta.ID)

	if err := s.bus.Publish(ctx, event); err != nil {
		logger.Error("failed to publish event", "type", eventType, "kind", kind, "id", meta.ID, "error", err)
	}
}
