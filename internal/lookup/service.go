// Package lookup serves autocomplete and site-wide search over published records.
package lookup

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eden-hr/casetracker/internal/casenumber"
	"github.com/eden-hr/casetracker/internal/record/domain"
	"github.com/eden-hr/casetracker/internal/shared/events"
	"github.com/eden-hr/casetracker/internal/shared/logger"
	"github.com/eden-hr/casetracker/internal/shared/metrics"
)

// SearchLimit caps each kind's group in a site-wide search.
const SearchLimit = 10

// Group is one kind's share of a search.
type Group struct {
	Kind    domain.Kind         `json:"kind"`
	Results []domain.Suggestion `json:"results"`
}

// Service answers lookups
type Service struct {
	store domain.Reader
	cache Cache
}

// NewService creates a lookup service. cache may be nil.
func NewService(store domain.Reader, cache Cache) *Service {
	return &Service{store: store, cache: cache}
}

// Autocomplete returns published records of kind whose suggest fields contain q.
func (s *Service) Autocomplete(ctx context.Context, kind domain.Kind, q string, limit int) ([]domain.Suggestion, error) {
	if _, err := domain.ParseKind(string(kind)); err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	limit = domain.ClampSuggestLimit(limit)
	start := time.Now()

	if s.cache == nil {
		results, err := s.suggest(ctx, kind, q, limit)
		metrics.RecordLookup(string(kind), "none", time.Since(start))
		return results, err
	}

	key, cached, ok := s.cached(ctx, kind, q, limit)
	if ok {
		metrics.RecordLookup(string(kind), "hit", time.Since(start))
		return cached, nil
	}

	results, err := s.suggest(ctx, kind, q, limit)
	if err != nil {
		return nil, err
	}
	if key != "" {
		if err := s.cache.Set(ctx, key, results); err != nil {
			logger.Warn("lookup cache write failed", "kind", kind, "error", err)
		}
	}
	metrics.RecordLookup(string(kind), "miss", time.Since(start))
	return results, nil
}

// cached returns the cache key and a hit, if any. Cache failures degrade to a
// miss with an empty key so nothing is written back.
func (s *Service) cached(ctx context.Context, kind domain.Kind, q string, limit int) (string, []domain.Suggestion, bool) {
	gen, err := s.cache.Generation(ctx, kind)
	if err != nil {
		logger.Warn("lookup cache unavailable", "kind", kind, "error", err)
		return "", nil, false
	}
	key := cacheKey(gen, kind, limit, q)
	results, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("lookup cache read failed", "key", key, "error", err)
		return key, nil, false
	}
	return key, results, ok
}

func (s *Service) suggest(ctx context.Context, kind domain.Kind, q string, limit int) ([]domain.Suggestion, error) {
	recs, err := s.store.Suggest(ctx, kind, q, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Suggestion, len(recs))
	for i, rec := range recs {
		out[i] = domain.Suggestion{Kind: kind, ID: rec.Base().ID, Label: rec.Label()}
	}
	return out, nil
}

// Search runs autocomplete for every kind concurrently and groups the results.
// A well-formed case number only searches incidents.
func (s *Service) Search(ctx context.Context, q string) ([]Group, error) {
	q = strings.TrimSpace(q)
	kinds := domain.Kinds
	if casenumber.IsCaseNumber(strings.ToUpper(q)) {
		kinds = []domain.Kind{domain.KindIncident}
	}

	groups := make([]Group, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			results, err := s.Autocomplete(gctx, kind, q, SearchLimit)
			if err != nil {
				return err
			}
			groups[i] = Group{Kind: kind, Results: results}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}

// Invalidate makes cached suggestions for kind stale.
func (s *Service) Invalidate(ctx context.Context, kind domain.Kind) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Bump(ctx, kind)
}

// Subscribe invalidates the cache whenever a record changes.
func (s *Service) Subscribe(ctx context.Context, bus events.EventBus) error {
	if s.cache == nil {
		return nil
	}
	return bus.Subscribe(ctx, "record.*", "lookup-cache", func(ctx context.Context, e events.Event) error {
		kind, err := domain.ParseKind(e.AggregateKind)
		if err != nil {
			logger.Warn("record event without a known kind", "type", e.Type, "id", e.ID)
			return nil
		}
		if err := s.Invalidate(ctx, kind); err != nil {
			logger.Error("failed to invalidate lookup cache", "kind", kind, "error", err)
		}
		return nil
	})
}
