// Package caseupdate records append-only progress notes and their documents on incidents.
package caseupdate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eden-hr/casetracker/internal/record/domain"
	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/events"
	"github.com/eden-hr/casetracker/internal/shared/logger"
	"github.com/eden-hr/casetracker/internal/shared/metrics"
	"github.com/eden-hr/casetracker/internal/shared/types"
	"github.com/eden-hr/casetracker/internal/shared/validate"
)

// EventAdded is published after a case update commits.
const EventAdded = "case_update.added"

// DocumentInput is one file attached to a new case update. FileRef must name an uploaded blob.
type DocumentInput struct {
	FileRef     string     `json:"file_ref" validate:"required,max=64"`
	Description string     `json:"description" validate:"required,max=255"`
	FileDate    types.Date `json:"file_date"`
}

type updateInput struct {
	Note      string          `json:"note"`
	Documents []DocumentInput `json:"documents" validate:"min=1,dive"`
}

// Service manages case updates
type Service struct {
	store domain.Store
	bus   events.EventBus
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a case update service. loc decides what "today" is for file dates.
func NewService(store domain.Store, bus events.EventBus, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, bus: bus, loc: loc, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) validate(in updateInput, today types.Date) error {
	errs := []error{validate.Struct(in)}
	for i, d := range in.Documents {
		field := fmt.Sprintf("documents[%d].file_date", i)
		switch {
		case d.FileDate.IsZero():
			errs = append(errs, apperrors.FieldError(field, "required"))
		case d.FileDate.After(today):
			errs = append(errs, apperrors.FieldError(field, "must not be in the future"))
		}
	}
	return validate.Merge(errs...)
}

// AddUpdate records a note with at least one document on an incident. Every
// referenced upload becomes permanent in the same transaction.
func (s *Service) AddUpdate(ctx context.Context, actor, incidentID types.ID, note string, docs []DocumentInput) (*domain.CaseUpdate, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	in := updateInput{Note: note, Documents: docs}
	if err := s.validate(in, types.DateOf(now.In(s.loc))); err != nil {
		return nil, err
	}

	u := &domain.CaseUpdate{
		ID:         types.NewID(),
		IncidentID: incidentID,
		ActorID:    actor,
		Note:       note,
		CreatedAt:  now,
		Documents:  make([]domain.CaseUpdateDocument, len(docs)),
	}
	for i, d := range docs {
		u.Documents[i] = domain.CaseUpdateDocument{
			ID:           types.NewID(),
			CaseUpdateID: u.ID,
			FileRef:      d.FileRef,
			Description:  d.Description,
			FileDate:     d.FileDate,
			CreatedAt:    now,
		}
	}

	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		ok, err := tx.Exists(ctx, domain.KindIncident, incidentID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NotFound(string(domain.KindIncident), incidentID.String())
		}

		for i, d := range u.Documents {
			if err := tx.UseBlob(ctx, d.FileRef); err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return apperrors.FieldError(fmt.Sprintf("documents[%d].file_ref", i), "unknown file")
				}
				return err
			}
		}
		return tx.InsertCaseUpdate(ctx, u)
	})
	if err != nil {
		if apperrors.IsDomain(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to add case update")
	}

	metrics.RecordCaseUpdate(len(u.Documents))
	s.publish(ctx, u)
	return u, nil
}

// ListUpdates returns an incident's updates newest first.
func (s *Service) ListUpdates(ctx context.Context, incidentID types.ID) ([]domain.CaseUpdate, error) {
	ok, err := s.store.Exists(ctx, domain.KindIncident, incidentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound(string(domain.KindIncident), incidentID.String())
	}
	return s.store.CaseUpdates(ctx, incidentID)
}

func (s *Service) publish(ctx context.Context, u *domain.CaseUpdate) {
	if s.bus == nil {
		return
	}
	refs := make([]string, len(u.Documents))
	for i, d := range u.Documents {
		refs[i] = d.FileRef
	}
	event := events.NewEvent(EventAdded, "caseupdate", map[string]any{
		"case_update_id": u.ID,
		"incident_id":    u.IncidentID,
		"file_refs":      refs,
	}).WithActor(u.ActorID).WithAggregate(string(domain.KindIncident), u.IncidentID)

	if err := s.bus.Publish(ctx, event); err != nil {
		logger.Error("failed to publish event", "type", EventAdded, "incident_id", u.IncidentID, "error", err)
	}
}
