package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/eden-hr/casetracker/internal/record/domain"
	"github.com/eden-hr/casetracker/internal/record/infrastructure"
	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

var actor = types.MustParseID("aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa")

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newTestService(store domain.Store) (*Service, *MemoryObjects, *testClock) {
	objects := NewMemoryObjects()
	clock := &testClock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	return NewService(store, objects, "incident_documents/").WithClock(clock.now), objects, clock
}

func TestUpload(t *testing.T) {
	store := infrastructure.NewMemoryStore()
	svc, objects, _ := newTestService(store)
	ctx := context.Background()

	b, err := svc.Upload(ctx, actor, "../Affidavit.PDF", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(b.FileRef) != 21 {
		t.Errorf("Expected a 21 character file ref, got %q", b.FileRef)
	}
	if b.Filename != "Affidavit.PDF" {
		t.Errorf("Expected directory stripped from filename, got %q", b.Filename)
	}
	if want := "incident_documents/" + b.FileRef + ".pdf"; b.ObjectKey != want {
		t.Errorf("Expected key %s, got %s", want, b.ObjectKey)
	}
	if b.Size != 8 || b.Permanent || b.UsageCount != 0 {
		t.Errorf("Expected a temporary 8 byte blob, got %+v", b)
	}

	stored, err := store.Blob(ctx, b.FileRef)
	if err != nil {
		t.Fatalf("Expected blob row, got %v", err)
	}
	if stored.ObjectKey != b.ObjectKey {
		t.Errorf("Expected stored key %s, got %s", b.ObjectKey, stored.ObjectKey)
	}
	if objects.Len() != 1 {
		t.Errorf("Expected 1 object, got %d", objects.Len())
	}

	meta, rc, err := svc.Open(ctx, b.FileRef)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.4" || meta.ContentType != "application/pdf" {
		t.Errorf("Expected pdf contents, got %q (%s)", data, meta.ContentType)
	}
}

func TestUploadRejects(t *testing.T) {
	svc, objects, _ := newTestService(infrastructure.NewMemoryStore())

	tests := []struct {
		name     string
		filename string
		body     string
	}{
		{"empty file", "a.pdf", ""},
		{"no filename", "  ", "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), actor, tt.filename, "", strings.NewReader(tt.body))
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
	if objects.Len() != 0 {
		t.Errorf("Expected nothing stored, got %d objects", objects.Len())
	}
}

// failingStore refuses every transaction.
type failingStore struct {
	*infrastructure.MemoryStore
}

func (s failingStore) InTx(context.Context, func(domain.Tx) error) error {
	return errors.New("database is down")
}

func TestUploadRemovesObjectWhenRowFails(t *testing.T) {
	svc, objects, _ := newTestService(failingStore{infrastructure.NewMemoryStore()})

	if _, err := svc.Upload(context.Background(), actor, "a.jpg", "image/jpeg", strings.NewReader("jpeg")); err == nil {
		t.Fatal("Expected an error")
	}
	if objects.Len() != 0 {
		t.Errorf("Expected the orphaned object to be removed, got %d objects", objects.Len())
	}
}

func TestOpenUnknown(t *testing.T) {
	svc, _, _ := newTestService(infrastructure.NewMemoryStore())

	_, _, err := svc.Open(context.Background(), "missing")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	store := infrastructure.NewMemoryStore()
	svc, objects, clock := newTestService(store)
	ctx := context.Background()

	used, _ := svc.Upload(ctx, actor, "used.pdf", "application/pdf", strings.NewReader("a"))
	orphan, _ := svc.Upload(ctx, actor, "orphan.pdf", "application/pdf", strings.NewReader("b"))
	clock.t = clock.t.Add(5 * time.Hour)
	fresh, _ := svc.Upload(ctx, actor, "fresh.pdf", "application/pdf", strings.NewReader("c"))

	if err := store.InTx(ctx, func(tx domain.Tx) error { return tx.UseBlob(ctx, used.FileRef) }); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	clock.t = clock.t.Add(2 * time.Hour)
	n, err := svc.Sweep(ctx, 6*time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 swept file, got %d", n)
	}

	if _, err := store.Blob(ctx, orphan.FileRef); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected orphan row removed, got %v", err)
	}
	for _, b := range []*domain.Blob{used, fresh} {
		if _, err := store.Blob(ctx, b.FileRef); err != nil {
			t.Errorf("Expected %s to survive, got %v", b.Filename, err)
		}
	}
	if objects.Len() != 2 {
		t.Errorf("Expected 2 objects left, got %d", objects.Len())
	}
}
