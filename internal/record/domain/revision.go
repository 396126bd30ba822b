package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/eden-hr/casetracker/internal/shared/types"
)

// Revision is an append-only snapshot of a record after a mutation.
// Revisions of one record form a hash chain: each hash covers the previous one.
type Revision struct {
	ID         types.ID        `json:"id"`
	EntityKind Kind            `json:"entity_kind"`
	EntityID   types.ID        `json:"entity_id"`
	Number     int             `json:"number"`
	ActorID    types.ID        `json:"actor_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Log        string          `json:"log"`
	Snapshot   json.RawMessage `json:"snapshot"`
	PrevHash   string          `json:"prev_hash"`
	Hash       string          `json:"hash"`
}

// NewRevision snapshots rec as the revision following prev (nil for the first).
// The record's revision metadata is stamped before the snapshot is taken.
func NewRevision(prev *Revision, rec Record, actorID types.ID, log string, now time.Time) (*Revision, error) {
	now = now.UTC().Truncate(time.Microsecond)

	number := 1
	prevHash := ""
	if prev != nil {
		number = prev.Number + 1
		prevHash = prev.Hash
	}

	meta := rec.Base()
	meta.RevisionID = number
	meta.RevisionUser = actorID
	meta.RevisionTimestamp = now
	meta.RevisionLog = log

	snapshot, err := canonicalJSON(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot %s: %w", rec.Kind(), err)
	}

	r := &Revision{
		ID:         types.NewID(),
		EntityKind: rec.Kind(),
		EntityID:   meta.ID,
		Number:     number,
		ActorID:    actorID,
		CreatedAt:  now,
		Log:        log,
		Snapshot:   snapshot,
		PrevHash:   prevHash,
	}
	r.Hash = r.ComputeHash()
	return r, nil
}

// ComputeHash returns the SHA-256 over the revision's canonical form.
func (r *Revision) ComputeHash() string {
	var snapshot any
	if len(r.Snapshot) > 0 {
		_ = json.Unmarshal(r.Snapshot, &snapshot)
	}

	data := map[string]any{
		"id":          r.ID.String(),
		"entity_kind": string(r.EntityKind),
		"entity_id":   r.EntityID.String(),
		"number":      r.Number,
		"actor_id":    r.ActorID.String(),
		"created_at":  r.CreatedAt.UTC().Format(time.RFC3339Nano),
		"log":         r.Log,
		"snapshot":    snapshot,
		"prev_hash":   r.PrevHash,
	}

	jsonData, _ := canonicalJSON(data)
	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:])
}

// VerifyHash reports whether the stored hash matches the content.
func (r *Revision) VerifyHash() bool {
	return r.Hash == r.ComputeHash()
}

// VerifyChain checks that revisions are numbered from 1, correctly linked and untampered.
func VerifyChain(revs []Revision) error {
	prevHash := ""
	for i := range revs {
		r := &revs[i]
		if r.Number != i+1 {
			return fmt.Errorf("revision %d out of sequence at position %d", r.Number, i)
		}
		if r.PrevHash != prevHash {
			return fmt.Errorf("revision %d does not link to revision %d", r.Number, r.Number-1)
		}
		if !r.VerifyHash() {
			return fmt.Errorf("revision %d hash mismatch", r.Number)
		}
		prevHash = r.Hash
	}
	return nil
}

// canonicalJSON produces deterministic JSON with sorted map keys, so a snapshot
// read back from JSONB hashes the same as when it was written.
func canonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	return canonicalMarshal(parsed)
}

func canonicalMarshal(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, _ := json.Marshal(k)
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := canonicalMarshal(val[k])
			if err != nil {
				return nil, err
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil

	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			itemBytes, err := canonicalMarshal(item)
			if err != nil {
				return nil, err
			}
			buf.Write(itemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil

	default:
		return json.Marshal(val)
	}
}
