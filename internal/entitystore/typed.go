package entitystore

import (
	"context"

	"github.com/eden-hr/casetracker/internal/record/domain"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

func create[T domain.Record](ctx context.Context, s *Service, actor types.ID, in T) (T, error) {
	var zero T
	rec, err := s.Create(ctx, actor, in)
	if err != nil {
		return zero, err
	}
	return rec.(T), nil
}

func update[T domain.Record](ctx context.Context, s *Service, actor, id types.ID, in T) (T, error) {
	var zero T
	rec, err := s.Update(ctx, actor, id, in)
	if err != nil {
		return zero, err
	}
	return rec.(T), nil
}

func get[T domain.Record](ctx context.Context, s *Service, kind domain.Kind, id types.ID) (T, error) {
	var zero T
	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return zero, err
	}
	return rec.(T), nil
}

func list[T domain.Record](ctx context.Context, s *Service, kind domain.Kind, q domain.ListQuery) ([]T, int, error) {
	recs, total, err := s.List(ctx, kind, q)
	if err != nil {
		return nil, 0, err
	}
	out := make([]T, len(recs))
	for i, rec := range recs {
		out[i] = rec.(T)
	}
	return out, total, nil
}

func (s *Service) CreateIncident(ctx context.Context, actor types.ID, in *domain.Incident) (*domain.Incident, error) {
	return create(ctx, s, actor, in)
}

func (s *Service) UpdateIncident(ctx context.Context, actor, id types.ID, in *domain.Incident) (*domain.Incident, error) {
	return update(ctx, s, actor, id, in)
}

func (s *Service) GetIncident(ctx context.Context, id types.ID) (*domain.Incident, error) {
	return get[*domain.Incident](ctx, s, domain.KindIncident, id)
}

func (s *Service) ListIncidents(ctx context.Context, q domain.ListQuery) ([]*domain.Incident, int, error) {
	return list[*domain.Incident](ctx, s, domain.KindIncident, q)
}

func (s *Service) CreateVictim(ctx context.Context, actor types.ID, in *domain.Victim) (*domain.Victim, error) {
	return create(ctx, s, actor, in)
}

func (s *Service) UpdateVictim(ctx context.Context, actor, id types.ID, in *domain.Victim) (*domain.Victim, error) {
	return update(ctx, s, actor, id, in)
}

func (s *Service) GetVictim(ctx context.Context, id types.ID) (*domain.Victim, error) {
	return get[*domain.Victim](ctx, s, domain.KindVictim, id)
}

func (s *Service) ListVictims(ctx context.Context, q domain.ListQuery) ([]*domain.Victim, int, error) {
	return list[*domain.Victim](ctx, s, domain.KindVictim, q)
}

func (s *Service) CreatePerpetrator(ctx context.Context, actor types.ID, in *domain.Perpetrator) (*domain.Perpetrator, error) {
	return create(ctx, s, actor, in)
}

func (s *Service) UpdatePerpetrator(ctx context.Context, actor, id types.ID, in *domain.Perpetrator) (*domain.Perpetrator, error) {
	return update(ctx, s, actor, id, in)
}

func (s *Service) GetPerpetrator(ctx context.Context, id types.ID) (*domain.Perpetrator, error) {
	return get[*domain.Perpetrator](ctx, s, domain.KindPerpetrator, id)
}

func (s *Service) ListPerpetrators(ctx context.Context, q domain.ListQuery) ([]*domain.Perpetrator, int, error) {
	return list[*domain.Perpetrator](ctx, s, domain.KindPerpetrator, q)
}

func (s *Service) CreateLocation(ctx context.Context, actor types.ID, in *domain.Location) (*domain.Location, error) {
	return create(ctx, s, actor, in)
}

func (s *Service) UpdateLocation(ctx context.Context, actor, id types.ID, in *domain.Location) (*domain.Location, error) {
	return update(ctx, s, actor, id, in)
}

func (s *Service) GetLocation(ctx context.Context, id types.ID) (*domain.Location, error) {
	return get[*domain.Location](ctx, s, domain.KindLocation, id)
}

func (s *Service) ListLocations(ctx context.Context, q domain.ListQuery) ([]*domain.Location, int, error) {
	return list[*domain.Location](ctx, s, domain.KindLocation, q)
}

func (s *Service) CreateSector(ctx context.Context, actor types.ID, in *domain.Sector) (*domain.Sector, error) {
	return create(ctx, s, actor, in)
}

func (s *Service) UpdateSector(ctx context.Context, actor, id types.ID, in *domain.Sector) (*domain.Sector, error) {
	return update(ctx, s, actor, id, in)
}

func (s *Service) GetSector(ctx context.Context, id types.ID) (*domain.Sector, error) {
	return get[*domain.Sector](ctx, s, domain.KindSector, id)
}

func (s *Service) ListSectors(ctx context.Context, q domain.ListQuery) ([]*domain.Sector, int, error) {
	return list[*domain.Sector](ctx, s, domain.KindSector, q)
}

func (s *Service) CreateViolation(ctx context.Context, actor types.ID, in *domain.Violation) (*domain.Violation, error) {
	return create(ctx, s, actor, in)
}

func (s *Service) UpdateViolation(ctx context.Context, actor, id types.ID, in *domain.Violation) (*domain.Violation, error) {
	return update(ctx, s, actor, id, in)
}

func (s *Service) GetViolation(ctx context.Context, id types.ID) (*domain.Violation, error) {
	return get[*domain.Violation](ctx, s, domain.KindViolation, id)
}

func (s *Service) ListViolations(ctx context.Context, q domain.ListQuery) ([]*domain.Violation, int, error) {
	return list[*domain.Violation](ctx, s, domain.KindViolation, q)
}
