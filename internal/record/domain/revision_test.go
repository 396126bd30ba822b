package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/eden-hr/casetracker/internal/shared/types"
)

func TestRevisionChain(t *testing.T) {
	actor := types.NewID()
	loc := &Location{Town: "Tagum", Province: "Davao del Norte", Region: "XI"}
	loc.ID = types.NewID()
	now := time.Date(2024, 6, 1, 8, 0, 0, 123456789, time.UTC)

	first, err := NewRevision(nil, loc, actor, "created", now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first.Number != 1 || first.PrevHash != "" {
		t.Errorf("Expected first revision, got number=%d prev=%q", first.Number, first.PrevHash)
	}
	if loc.RevisionID != 1 || loc.RevisionUser != actor {
		t.Error("Expected record revision metadata to be stamped")
	}
	if !first.CreatedAt.Equal(now.Truncate(time.Microsecond)) {
		t.Errorf("Expected microsecond precision, got %s", first.CreatedAt)
	}

	loc.Town = "Panabo"
	second, err := NewRevision(first, loc, actor, "updated", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if second.Number != 2 || second.PrevHash != first.Hash {
		t.Error("Expected second revision to link to the first")
	}

	chain := []Revision{*first, *second}
	if err := VerifyChain(chain); err != nil {
		t.Errorf("Expected valid chain, got %v", err)
	}

	tampered := []Revision{*first, *second}
	tampered[0].Log = "rewritten"
	if err := VerifyChain(tampered); err == nil {
		t.Error("Expected tampered revision to fail verification")
	}
}

func TestRevisionHashSurvivesKeyReordering(t *testing.T) {
	loc := &Location{Town: "Tagum", Province: "Davao del Norte", Region: "XI"}
	loc.ID = types.NewID()
	rev, _ := NewRevision(nil, loc, types.NewID(), "created", time.Now())

	// Re-encode the snapshot with Go's key order, as a JSONB round trip might.
	var parsed map[string]any
	_ = json.Unmarshal(rev.Snapshot, &parsed)
	reordered, _ := json.MarshalIndent(parsed, "", "  ")
	rev.Snapshot = reordered

	if !rev.VerifyHash() {
		t.Error("Expected hash to be independent of snapshot formatting")
	}
}
