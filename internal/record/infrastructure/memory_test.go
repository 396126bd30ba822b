package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/eden-hr/casetracker/internal/record/domain"
	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

var base = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newLocation(n int, town, province, region string) *domain.Location {
	loc := &domain.Location{Town: town, Province: province, Region: region}
	loc.ID = types.NewID()
	loc.Status = true
	loc.OwnerID = types.NewID()
	loc.CreatedAt = base.Add(time.Duration(n) * time.Minute)
	loc.UpdatedAt = loc.CreatedAt
	return loc
}

func insert(t *testing.T, s *MemoryStore, recs ...domain.Record) {
	t.Helper()
	err := s.InTx(context.Background(), func(tx domain.Tx) error {
		for _, rec := range recs {
			if err := tx.Insert(context.Background(), rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error inserting, got %v", err)
	}
}

func seedLocations(t *testing.T) *MemoryStore {
	s := NewMemoryStore()
	insert(t, s,
		newLocation(1, "Tacloban", "Leyte", "Eastern Visayas"),
		newLocation(2, "Ormoc", "Leyte", "Eastern Visayas"),
		newLocation(3, "Davao City", "Davao del Sur", "Davao"),
		newLocation(4, "Baybay", "Leyte", "Eastern Visayas"),
	)
	return s
}

func towns(recs []domain.Record) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.(*domain.Location).Town
	}
	return out
}

func TestMemoryStoreList(t *testing.T) {
	s := seedLocations(t)
	schema := domain.KindLocation.Schema()
	ctx := context.Background()

	tests := []struct {
		name     string
		query    domain.ListQuery
		expected []string
		total    int
	}{
		{"default newest first", domain.ListQuery{}, []string{"Baybay", "Davao City", "Ormoc", "Tacloban"}, 4},
		{"sort by town", domain.ListQuery{Sort: "town"}, []string{"Baybay", "Davao City", "Ormoc", "Tacloban"}, 4},
		{"sort by town desc", domain.ListQuery{Sort: "town", Desc: true}, []string{"Tacloban", "Ormoc", "Davao City", "Baybay"}, 4},
		{"filter province", domain.ListQuery{Sort: "town", Filters: map[string]string{"province": "Leyte"}}, []string{"Baybay", "Ormoc", "Tacloban"}, 3},
		{"search is case insensitive", domain.ListQuery{Search: "DAVAO"}, []string{"Davao City"}, 1},
		{"paging keeps total", domain.ListQuery{Sort: "town", Limit: 2, Offset: 1}, []string{"Davao City", "Ormoc"}, 4},
		{"offset past end", domain.ListQuery{Offset: 10}, []string{}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.query.Normalize(schema)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			recs, total, err := s.List(ctx, domain.KindLocation, q)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if total != tt.total {
				t.Errorf("Expected total %d, got %d", tt.total, total)
			}
			got := towns(recs)
			if fmt.Sprint(got) != fmt.Sprint(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMemoryStoreListStatus(t *testing.T) {
	s := NewMemoryStore()
	draft := newLocation(1, "Palo", "Leyte", "Eastern Visayas")
	draft.Status = false
	insert(t, s, draft, newLocation(2, "Tanauan", "Leyte", "Eastern Visayas"))

	published := true
	q, _ := domain.ListQuery{Status: &published}.Normalize(domain.KindLocation.Schema())
	recs, total, err := s.List(context.Background(), domain.KindLocation, q)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if total != 1 || recs[0].(*domain.Location).Town != "Tanauan" {
		t.Errorf("Expected only Tanauan, got %v", towns(recs))
	}
}

func TestMemoryStoreSuggest(t *testing.T) {
	s := seedLocations(t)
	hidden := newLocation(5, "Leyte", "Leyte", "Eastern Visayas")
	hidden.Status = false
	insert(t, s, hidden)

	recs, err := s.Suggest(context.Background(), domain.KindLocation, "leyte", 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// ordered by region, province, town; unpublished records never appear
	expected := []string{"Baybay", "Ormoc"}
	if fmt.Sprint(towns(recs)) != fmt.Sprint(expected) {
		t.Errorf("Expected %v, got %v", expected, towns(recs))
	}
}

func TestMemoryStoreSuggestIgnoresCase(t *testing.T) {
	s := NewMemoryStore()
	insert(t, s,
		newLocation(1, "abuyog", "Leyte", "Eastern Visayas"),
		newLocation(2, "Zumarraga", "Samar", "Eastern Visayas"),
		newLocation(3, "Basey", "Samar", "Eastern Visayas"),
		newLocation(4, "burauen", "Leyte", "Eastern Visayas"),
	)

	recs, err := s.Suggest(context.Background(), domain.KindLocation, "", 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// LOWER(col) COLLATE "C" order in Postgres
	expected := []string{"abuyog", "burauen", "Basey", "Zumarraga"}
	if fmt.Sprint(towns(recs)) != fmt.Sprint(expected) {
		t.Errorf("Expected %v, got %v", expected, towns(recs))
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	s := NewMemoryStore()
	loc := newLocation(1, "Palo", "Leyte", "Eastern Visayas")
	insert(t, s, loc)

	loc.Town = "changed after insert"
	got, err := s.Get(context.Background(), domain.KindLocation, loc.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.(*domain.Location).Town != "Palo" {
		t.Errorf("Expected stored copy to be unaffected, got %s", got.(*domain.Location).Town)
	}

	got.(*domain.Location).Town = "changed after get"
	again, _ := s.Get(context.Background(), domain.KindLocation, loc.ID)
	if again.(*domain.Location).Town != "Palo" {
		t.Errorf("Expected returned copy to be detached, got %s", again.(*domain.Location).Town)
	}
}

func TestMemoryStoreRollback(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx domain.Tx) error {
		if _, err := tx.NextSerial(ctx, "2024-03"); err != nil {
			return err
		}
		if err := tx.Insert(ctx, newLocation(1, "Palo", "Leyte", "Eastern Visayas")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	q, _ := domain.ListQuery{}.Normalize(domain.KindLocation.Schema())
	if _, total, _ := s.List(ctx, domain.KindLocation, q); total != 0 {
		t.Errorf("Expected rolled back insert to vanish, got %d records", total)
	}

	var serial int
	_ = s.InTx(ctx, func(tx domain.Tx) error {
		serial, err = tx.NextSerial(ctx, "2024-03")
		return err
	})
	if serial != 1 {
		t.Errorf("Expected counter to restart at 1 after rollback, got %d", serial)
	}
}

func TestMemoryStoreConstraints(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	loc := newLocation(1, "Palo", "Leyte", "Eastern Visayas")
	insert(t, s, loc)

	t.Run("duplicate id", func(t *testing.T) {
		err := s.InTx(ctx, func(tx domain.Tx) error { return tx.Insert(ctx, loc) })
		if !errors.Is(err, domain.ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("missing reference", func(t *testing.T) {
		p := &domain.Perpetrator{GroupName: "PNP", Unit: "RMFB 8", LocationID: types.NewID()}
		p.ID = types.NewID()
		err := s.InTx(ctx, func(tx domain.Tx) error { return tx.Insert(ctx, p) })
		if !apperrors.HasCode(err, apperrors.CodeConflict) {
			t.Errorf("Expected conflict, got %v", err)
		}
	})

	t.Run("delete referenced", func(t *testing.T) {
		p := &domain.Perpetrator{GroupName: "PNP", Unit: "RMFB 8", LocationID: loc.ID}
		p.ID = types.NewID()
		insert(t, s, p)

		err := s.InTx(ctx, func(tx domain.Tx) error { return tx.Delete(ctx, domain.KindLocation, loc.ID) })
		if !apperrors.HasCode(err, apperrors.CodeConflict) {
			t.Errorf("Expected conflict, got %v", err)
		}
	})

	t.Run("revision numbers are unique", func(t *testing.T) {
		rev, err := domain.NewRevision(nil, loc, loc.OwnerID, "created", base)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		err = s.InTx(ctx, func(tx domain.Tx) error {
			if err := tx.AppendRevision(ctx, rev); err != nil {
				return err
			}
			return tx.AppendRevision(ctx, rev)
		})
		if !errors.Is(err, domain.ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate, got %v", err)
		}
	})
}

func TestMemoryStoreBlobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	old := domain.Blob{FileRef: "old", ObjectKey: "k/old", Filename: "a.pdf", OwnerID: types.NewID(), CreatedAt: base}
	used := domain.Blob{FileRef: "used", ObjectKey: "k/used", Filename: "b.pdf", OwnerID: types.NewID(), CreatedAt: base}
	fresh := domain.Blob{FileRef: "fresh", ObjectKey: "k/fresh", Filename: "c.pdf", OwnerID: types.NewID(), CreatedAt: base.Add(2 * time.Hour)}

	err := s.InTx(ctx, func(tx domain.Tx) error {
		for _, b := range []domain.Blob{old, used, fresh} {
			if err := tx.InsertBlob(ctx, &b); err != nil {
				return err
			}
		}
		return tx.UseBlob(ctx, "used")
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	b, err := s.Blob(ctx, "used")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if b.UsageCount != 1 || !b.Permanent {
		t.Errorf("Expected used blob to be permanent with one use, got %+v", b)
	}

	var orphans []domain.Blob
	_ = s.InTx(ctx, func(tx domain.Tx) error {
		orphans, err = tx.OrphanBlobs(ctx, base.Add(time.Hour))
		return err
	})
	if len(orphans) != 1 || orphans[0].FileRef != "old" {
		t.Errorf("Expected only the old unused blob, got %+v", orphans)
	}

	err = s.InTx(ctx, func(tx domain.Tx) error { return tx.UseBlob(ctx, "missing") })
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}
