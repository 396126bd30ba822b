package lookup

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/eden-hr/casetracker/internal/record/domain"
)

// TestRedisCache runs against a real server when EDEN_TEST_REDIS_ADDR is set.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("EDEN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EDEN_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	c, err := NewRedisCache(ctx, addr, "", 0, time.Minute)
	if err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer c.Close()

	before, err := c.Generation(ctx, domain.KindViolation)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	key := cacheKey(before, domain.KindViolation, 10, "torture")
	want := []domain.Suggestion{{Kind: domain.KindViolation, Label: "Torture"}}
	if err := c.Set(ctx, key, want); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok || len(got) != 1 || got[0].Label != "Torture" {
		t.Fatalf("Expected cached Torture, got %v %v %v", got, ok, err)
	}

	if err := c.Bump(ctx, domain.KindViolation); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	after, _ := c.Generation(ctx, domain.KindViolation)
	if after != before+1 {
		t.Errorf("Expected generation %d, got %d", before+1, after)
	}
	if _, ok, _ := c.Get(ctx, cacheKey(after, domain.KindViolation, 10, "torture")); ok {
		t.Error("Expected a miss under the new generation")
	}
}
