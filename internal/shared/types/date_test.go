package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input       string
		expected    string
		expectError bool
	}{
		{"2024-02-29", "2024-02-29", false},
		{"2023-12-01", "2023-12-01", false},
		{"2023-02-30", "", true},
		{"01/02/2023", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDate(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for %q, got %s", tt.input, d)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if d.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, d)
			}
		})
	}
}

func TestDateComparison(t *testing.T) {
	a := MustParseDate("2024-05-01")
	b := MustParseDate("2024-05-02")

	if !a.Before(b) {
		t.Error("Expected 2024-05-01 to be before 2024-05-02")
	}
	if !b.After(a) {
		t.Error("Expected 2024-05-02 to be after 2024-05-01")
	}
	if a.After(a) || a.Before(a) {
		t.Error("Expected a date to be neither before nor after itself")
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	instant := time.Date(2024, 3, 31, 20, 0, 0, 0, time.UTC)

	if got := DateOf(instant).String(); got != "2024-03-31" {
		t.Errorf("Expected 2024-03-31, got %s", got)
	}
	if got := DateOf(instant.In(manila)).String(); got != "2024-04-01" {
		t.Errorf("Expected 2024-04-01, got %s", got)
	}
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Filed *Date `json:"filed"`
		Empty Date  `json:"empty"`
	}
	if err := json.Unmarshal([]byte(`{"filed":"2024-01-15","empty":""}`), &payload); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if payload.Filed == nil || payload.Filed.String() != "2024-01-15" {
		t.Errorf("Expected filed 2024-01-15, got %v", payload.Filed)
	}
	if !payload.Empty.IsZero() {
		t.Errorf("Expected empty string to decode as zero date, got %s", payload.Empty)
	}

	out, err := json.Marshal(payload.Empty)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(out) != "null" {
		t.Errorf("Expected zero date to encode as null, got %s", out)
	}
}
