package logger

import (
	"testing"
)

type recordingInstance struct {
	entries []entry
}

type entry struct {
	level   string
	message string
	keyvals []any
}

func (r *recordingInstance) record(level, message string, keyvals []any) {
	r.entries = append(r.entries, entry{level: level, message: message, keyvals: keyvals})
}

func (r *recordingInstance) Debug(m string, kv ...any) { r.record("debug", m, kv) }
func (r *recordingInstance) Info(m string, kv ...any)  { r.record("info", m, kv) }
func (r *recordingInstance) Warn(m string, kv ...any)  { r.record("warn", m, kv) }
func (r *recordingInstance) Error(m string, kv ...any) { r.record("error", m, kv) }
func (r *recordingInstance) Fatal(m string, kv ...any) { r.record("fatal", m, kv) }
func (r *recordingInstance) Sync() error               { return nil }

func TestDispatchToAllInstances(t *testing.T) {
	a := &recordingInstance{}
	b := &recordingInstance{}
	Init(a, b)
	defer Init()

	Info("incident created", "case_number", "EDN-2024-05-0001")
	Error("link failed", "operation", "link_victim")

	for _, inst := range []*recordingInstance{a, b} {
		if len(inst.entries) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(inst.entries))
		}
		if inst.entries[0].level != "info" || inst.entries[1].level != "error" {
			t.Errorf("Expected info then error, got %s then %s", inst.entries[0].level, inst.entries[1].level)
		}
	}
}

func TestWithPrependsFields(t *testing.T) {
	rec := &recordingInstance{}
	Init(rec)
	defer Init()

	With("component", "relationship").Warn("retrying", "attempt", 2)

	if len(rec.entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(rec.entries))
	}
	kv := rec.entries[0].keyvals
	if len(kv) != 4 || kv[0] != "component" || kv[2] != "attempt" {
		t.Errorf("Expected component fields before call fields, got %v", kv)
	}
}

func TestNoInitIsSilent(t *testing.T) {
	singleton = nil
	Info("dropped")
	Default().With("k", "v").Debug("also dropped")
}
