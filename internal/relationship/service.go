// Package relationship links victims, violations and perpetrators to incidents.
package relationship

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
)

// Event types
const (
	EventVictimLinked        = "victim.linked"
	EventVictimUnlinked      = "victim.unlinked"
	EventViolationLinked     = "violation.linked"
	EventViolationUnlinked   = "violation.unlinked"
	EventPerpetratorLinked   = "perpetrator.linked"
	EventPerpetratorUnlinked = "perpetrator.unlinked"
)

// ViolationLink is one violation recorded while linking a victim.
type ViolationLink struct {
	ViolationID types.ID `json:"violation_id"`
	Description string   `json:"description"`
}

// UnlinkResult reports the cascade of an UnlinkViolation.
type UnlinkResult struct {
	// VictimUnlinked is set when the removed violation was the victim's last
	// one in the incident and the victim link was removed with it.
	VictimUnlinked bool `json:"victim_unlinked"`
}

// Service manages incident relationships
type Service struct {
	store domain.Store
	bus   events.EventBus
	now   func() time.Time
}

// NewService creates a new relationship service
func NewService(store domain.Store, bus events.EventBus) *Service {
	return &Service{store: store, bus: bus, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// run executes fn in one transaction. Domain rejections pass through; anything
// else is a storage failure and is reported as a RELATIONSHIP_ERROR.
func (s *Service) run(ctx context.Context, op string, fn func(tx domain.Tx) error) error {
	err := s.store.InTx(ctx, fn)
	metrics.RecordRelationshipOp(op, err)
	if err == nil || apperrors.IsDomain(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Error("error saving incident-victim relationships", "operation", op, "error", err)
	return apperrors.Relationship(op, err)
}

func requireExists(ctx context.Context, r domain.Reader, kind domain.Kind, id types.ID) error {
	ok, err := r.Exists(ctx, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound(string(kind), id.String())
	}
	return nil
}

func requireAll(ctx context.Context, r domain.Reader, refs ...domain.Reference) error {
	for _, ref := range refs {
		if err := requireExists(ctx, r, ref.Kind, ref.ID); err != nil {
			return err
		}
	}
	return nil
}

func incidentRef(id types.ID) domain.Reference {
	return domain.Reference{Field: "incident_id", Kind: domain.KindIncident, ID: id}
}

func victimRef(id types.ID) domain.Reference {
	return domain.Reference{Field: "victim_id", Kind: domain.KindVictim, ID: id}
}

func violationRef(id types.ID) domain.Reference {
	return domain.Reference{Field: "violation_id", Kind: domain.KindViolation, ID: id}
}

func perpetratorRef(id types.ID) domain.Reference {
	return domain.Reference{Field: "perpetrator_id", Kind: domain.KindPerpetrator, ID: id}
}

// LinkVictim links a victim to an incident, or updates the detention details
// of an existing link. A nil det keeps the details already recorded.
func (s *Service) LinkVictim(ctx context.Context, actor, incidentID, victimID types.ID, det *domain.Detention) (*domain.IncidentVictim, error) {
	now := s.clock()

	var iv *domain.IncidentVictim
	err := s.run(ctx, "link_victim", func(tx domain.Tx) error {
		if err := requireAll(ctx, tx, incidentRef(incidentID), victimRef(victimID)); err != nil {
			return err
		}
		var err error
		iv, err = upsertIncidentVictim(ctx, tx, actor, incidentID, victimID, det, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventVictimLinked, actor, incidentID, map[string]any{
		"incident_id": incidentID,
		"victim_id":   victimID,
	})
	return iv, nil
}

// upsertIncidentVictim creates the link or, when det is non-nil, overwrites the
// detention details of the existing one.
func upsertIncidentVictim(ctx context.Context, tx domain.Tx, actor, incidentID, victimID types.ID, det *domain.Detention, now time.Time) (*domain.IncidentVictim, error) {
	existing, err := tx.FindIncidentVictim(ctx, incidentID, victimID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		iv := &domain.IncidentVictim{
			ID:         types.NewID(),
			IncidentID: incidentID,
			VictimID:   victimID,
			OwnerID:    actor,
			Status:     true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if det != nil {
			iv.Detention = *det
		}
		err := tx.InsertIncidentVictim(ctx, iv)
		if err == nil {
			return iv, nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, err
		}
		// lost an insert race; update the row that won
		if existing, err = tx.FindIncidentVictim(ctx, incidentID, victimID); err != nil {
			return nil, err
		}
	}

	if det == nil {
		return existing, nil
	}
	existing.Detention = *det
	existing.UpdatedAt = now
	if err := tx.UpdateIncidentVictim(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// UnlinkVictim removes a victim from an incident. Violations recorded for the
// victim must be removed first.
func (s *Service) UnlinkVictim(ctx context.Context, actor, incidentID, victimID types.ID) error {
	err := s.run(ctx, "unlink_victim", func(tx domain.Tx) error {
		if err := requireAll(ctx, tx, incidentRef(incidentID), victimRef(victimID)); err != nil {
			return err
		}
		iv, err := tx.FindIncidentVictim(ctx, incidentID, victimID)
		if err != nil {
			return err
		}

		violations, err := tx.VictimViolations(ctx, iv.ID)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return apperrors.HasDependentViolations(incidentID.String(), victimID.String(), len(violations))
		}
		return tx.DeleteIncidentVictim(ctx, iv.ID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EventVictimUnlinked, actor, incidentID, map[string]any{
		"incident_id": incidentID,
		"victim_id":   victimID,
	})
	return nil
}

// LinkViolation records a violation against a victim in an incident, linking
// the victim first if needed. Linking the same violation again replaces its description.
func (s *Service) LinkViolation(ctx context.Context, actor, incidentID, victimID, violationID types.ID, description string) (*domain.IncidentVictimViolation, error) {
	now := s.clock()

	var v *domain.IncidentVictimViolation
	err := s.run(ctx, "link_violation", func(tx domain.Tx) error {
		if err := requireAll(ctx, tx, incidentRef(incidentID), victimRef(victimID), violationRef(violationID)); err != nil {
			return err
		}
		iv, err := upsertIncidentVictim(ctx, tx, actor, incidentID, victimID, nil, now)
		if err != nil {
			return err
		}
		v, err = upsertViolation(ctx, tx, actor, iv, violationID, description, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventViolationLinked, actor, incidentID, map[string]any{
		"incident_id":  incidentID,
		"victim_id":    victimID,
		"violation_id": violationID,
	})
	return v, nil
}

func upsertViolation(ctx context.Context, tx domain.Tx, actor types.ID, iv *domain.IncidentVictim, violationID types.ID, description string, now time.Time) (*domain.IncidentVictimViolation, error) {
	existing, err := tx.FindVictimViolation(ctx, iv.ID, violationID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		v := &domain.IncidentVictimViolation{
			ID:               types.NewID(),
			IncidentVictimID: iv.ID,
			IncidentID:       iv.IncidentID,
			VictimID:         iv.VictimID,
			ViolationID:      violationID,
			Description:      description,
			OwnerID:          actor,
			Status:           true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		err := tx.InsertVictimViolation(ctx, v)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, err
		}
		if existing, err = tx.FindVictimViolation(ctx, iv.ID, violationID); err != nil {
			return nil, err
		}
	}

	existing.Description = description
	existing.UpdatedAt = now
	if err := tx.UpdateVictimViolation(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// UnlinkViolation removes one violation. Removing the victim's last violation
// in the incident also removes the victim link.
func (s *Service) UnlinkViolation(ctx context.Context, actor, incidentID, victimID, violationID types.ID) (UnlinkResult, error) {
	var result UnlinkResult
	err := s.run(ctx, "unlink_violation", func(tx domain.Tx) error {
		if err := requireAll(ctx, tx, incidentRef(incidentID), victimRef(victimID), violationRef(violationID)); err != nil {
			return err
		}
		iv, err := tx.FindIncidentVictim(ctx, incidentID, victimID)
		if err != nil {
			return err
		}
		v, err := tx.FindVictimViolation(ctx, iv.ID, violationID)
		if err != nil {
			return err
		}
		if err := tx.DeleteVictimViolation(ctx, v.ID); err != nil {
			return err
		}

		remaining, err := tx.VictimViolations(ctx, iv.ID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			if err := tx.DeleteIncidentVictim(ctx, iv.ID); err != nil {
				return err
			}
			result.VictimUnlinked = true
		}
		return nil
	})
	if err != nil {
		return UnlinkResult{}, err
	}

	s.publish(ctx, EventViolationUnlinked, actor, incidentID, map[string]any{
		"incident_id":     incidentID,
		"victim_id":       victimID,
		"violation_id":    violationID,
		"victim_unlinked": result.VictimUnlinked,
	})
	if result.VictimUnlinked {
		s.publish(ctx, EventVictimUnlinked, actor, incidentID, map[string]any{
			"incident_id": incidentID,
			"victim_id":   victimID,
		})
	}
	return result, nil
}

// LinkVictimWithViolations links a victim together with at least one violation
// in a single transaction.
func (s *Service) LinkVictimWithViolations(ctx context.Context, actor, incidentID, victimID types.ID, det *domain.Detention, links []ViolationLink) (*domain.LinkedVictim, error) {
	if len(links) == 0 {
		return nil, apperrors.FieldError("violations", "at least one violation is required")
	}
	for i, l := range links {
		if l.ViolationID.IsZero() {
			return nil, apperrors.FieldError(fmt.Sprintf("violations[%d].violation_id", i), "required")
		}
	}
	now := s.clock()

	var iv *domain.IncidentVictim
	err := s.run(ctx, "link_victim_with_violations", func(tx domain.Tx) error {
		if err := requireAll(ctx, tx, incidentRef(incidentID), victimRef(victimID)); err != nil {
			return err
		}
		for _, l := range links {
			if err := requireExists(ctx, tx, domain.KindViolation, l.ViolationID); err != nil {
				return err
			}
		}

		var err error
		iv, err = upsertIncidentVictim(ctx, tx, actor, incidentID, victimID, det, now)
		if err != nil {
			return err
		}
		for _, l := range links {
			if _, err := upsertViolation(ctx, tx, actor, iv, l.ViolationID, l.Description, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventVictimLinked, actor, incidentID, map[string]any{
		"incident_id": incidentID,
		"victim_id":   victimID,
	})
	for _, l := range links {
		s.publish(ctx, EventViolationLinked, actor, incidentID, map[string]any{
			"incident_id":  incidentID,
			"victim_id":    victimID,
			"violation_id": l.ViolationID,
		})
	}
	return s.linkedVictim(ctx, *iv)
}

// LinkPerpetrator links a perpetrator to an incident, or updates the description of an existing link.
func (s *Service) LinkPerpetrator(ctx context.Context, actor, incidentID, perpetratorID types.ID, description string) (*domain.IncidentPerpetrator, error) {
	now := s.clock()

	var ip *domain.IncidentPerpetrator
	err := s.run(ctx, "link_perpetrator", func(tx domain.Tx) error {
		if err := requireAll(ctx, tx, incidentRef(incidentID), perpetratorRef(perpetratorID)); err != nil {
			return err
		}

		existing, err := tx.FindIncidentPerpetrator(ctx, incidentID, perpetratorID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if existing == nil {
			ip = &domain.IncidentPerpetrator{
				ID:            types.NewID(),
				IncidentID:    incidentID,
				PerpetratorID: perpetratorID,
				Description:   description,
				OwnerID:       actor,
				Status:        true,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			err := tx.InsertIncidentPerpetrator(ctx, ip)
			if !errors.Is(err, domain.ErrDuplicate) {
				return err
			}
			if existing, err = tx.FindIncidentPerpetrator(ctx, incidentID, perpetratorID); err != nil {
				return err
			}
		}

		existing.Description = description
		existing.UpdatedAt = now
		ip = existing
		return tx.UpdateIncidentPerpetrator(ctx, existing)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventPerpetratorLinked, actor, incidentID, map[string]any{
		"incident_id":    incidentID,
		"perpetrator_id": perpetratorID,
	})
	return ip, nil
}

// UnlinkPerpetrator removes a perpetrator from an incident.
func (s *Service) UnlinkPerpetrator(ctx context.Context, actor, incidentID, perpetratorID types.ID) error {
	err := s.run(ctx, "unlink_perpetrator", func(tx domain.Tx) error {
		if err := requireAll(ctx, tx, incidentRef(incidentID), perpetratorRef(perpetratorID)); err != nil {
			return err
		}
		ip, err := tx.FindIncidentPerpetrator(ctx, incidentID, perpetratorID)
		if err != nil {
			return err
		}
		return tx.DeleteIncidentPerpetrator(ctx, ip.ID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EventPerpetratorUnlinked, actor, incidentID, map[string]any{
		"incident_id":    incidentID,
		"perpetrator_id": perpetratorID,
	})
	return nil
}

// IncidentVictims lists an incident's victims with their violations.
func (s *Service) IncidentVictims(ctx context.Context, incidentID types.ID) ([]domain.LinkedVictim, error) {
	if err := requireExists(ctx, s.store, domain.KindIncident, incidentID); err != nil {
		return nil, err
	}
	links, err := s.store.IncidentVictims(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.LinkedVictim, 0, len(links))
	for _, iv := range links {
		lv, err := s.linkedVictim(ctx, iv)
		if err != nil {
			return nil, err
		}
		out = append(out, *lv)
	}
	return out, nil
}

func (s *Service) linkedVictim(ctx context.Context, iv domain.IncidentVictim) (*domain.LinkedVictim, error) {
	rec, err := s.store.Get(ctx, domain.KindVictim, iv.VictimID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.VictimViolations(ctx, iv.ID)
	if err != nil {
		return nil, err
	}

	lv := &domain.LinkedVictim{
		IncidentVictim: iv,
		Victim:         rec.(*domain.Victim),
		Violations:     make([]domain.LinkedViolation, 0, len(rows)),
	}
	for _, row := range rows {
		vrec, err := s.store.Get(ctx, domain.KindViolation, row.ViolationID)
		if err != nil {
			return nil, err
		}
		lv.Violations = append(lv.Violations, domain.LinkedViolation{
			IncidentVictimViolation: row,
			Violation:               vrec.(*domain.Violation),
		})
	}
	return lv, nil
}

// IncidentPerpetrators lists an incident's perpetrators.
func (s *Service) IncidentPerpetrators(ctx context.Context, incidentID types.ID) ([]domain.LinkedPerpetrator, error) {
	if err := requireExists(ctx, s.store, domain.KindIncident, incidentID); err != nil {
		return nil, err
	}
	links, err := s.store.IncidentPerpetrators(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.LinkedPerpetrator, 0, len(links))
	for _, ip := range links {
		rec, err := s.store.Get(ctx, domain.KindPerpetrator, ip.PerpetratorID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.LinkedPerpetrator{
			IncidentPerpetrator: ip,
			Perpetrator:         rec.(*domain.Perpetrator),
		})
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, eventType string, actor, incidentID types.ID, data map[string]any) {
	if s.bus == nil {
		return
	}
	event := events.NewEvent(eventType, "relationship", data).
		WithActor(actor).
		WithAggregate(string(domain.KindIncident), incidentID)
	if err := s.bus.Publish(ctx, event); err != nil {
		logger.Error("failed to publish event", "type", eventType, "incident_id", incidentID, "error", err)
	}
}
