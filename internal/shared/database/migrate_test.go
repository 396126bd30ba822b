package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationFilesOrdered(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(files) == 0 {
		t.Fatal("Expected embedded migrations")
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("Expected %s before %s", files[i-1], files[i])
		}
	}
}

func TestSchemaDeclaresConstraints(t *testing.T) {
	content, err := fs.ReadFile(migrationsFS, "migrations/001_records.sql")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	schema := string(content)

	for _, want := range []string{
		"case_number VARCHAR(20) NOT NULL UNIQUE",
		"UNIQUE (incident_id, victim_id)",
		"UNIQUE (incident_victim_id, incident_id, victim_id, violation_id)",
		"UNIQUE (incident_id, perpetrator_id)",
		"UNIQUE (entity_kind, entity_id, number)",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("Expected schema to contain %q", want)
		}
	}
}
