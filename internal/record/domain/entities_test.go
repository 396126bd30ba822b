package domain

import (
	"encoding/json"
	"testing"

	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

var (
	today      = types.MustParseDate("2024-06-01")
	locationID = types.MustParseID("11111111-1111-4111-8111-111111111111")
)

func validVictim() *Victim {
	return &Victim{
		VictimType:  VictimIndividual,
		FirstName:   "Juan",
		LastName:    "dela Cruz",
		CivilStatus: "single",
		LocationID:  locationID,
	}
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Code != apperrors.CodeValidation {
		t.Fatalf("Expected validation error, got %v", err)
	}
	return appErr.Details
}

func TestVictimFullName(t *testing.T) {
	tests := []struct {
		name     string
		victim   Victim
		expected string
	}{
		{"no middle name", Victim{VictimType: VictimIndividual, FirstName: "Juan", LastName: "dela Cruz"}, "Juan dela Cruz"},
		{"all parts", Victim{VictimType: VictimIndividual, FirstName: "Maria", MiddleName: "Santos", LastName: "Reyes"}, "Maria Santos Reyes"},
		{"padded parts", Victim{VictimType: VictimIndividual, FirstName: "  Ana ", MiddleName: " ", LastName: "Lopez"}, "Ana Lopez"},
		{"community uses group name", Victim{VictimType: VictimCommunity, GroupName: "Sitio Malinis", FirstName: "ignored"}, "Sitio Malinis"},
		{"empty", Victim{VictimType: VictimIndividual}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.victim.FullName(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestVictimValidation(t *testing.T) {
	t.Run("valid individual", func(t *testing.T) {
		if err := validVictim().Validate(); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("children below 18 exceeding children", func(t *testing.T) {
		v := validVictim()
		v.NumberOfChildren = 2
		v.ChildrenBelow18 = 3
		d := details(t, v.Validate())
		if d["children_below_18"] != "must not exceed number_of_children" {
			t.Errorf("Expected children_below_18 detail, got %v", d)
		}
	})

	t.Run("individual needs names and civil status", func(t *testing.T) {
		v := &Victim{VictimType: VictimIndividual, LocationID: locationID}
		d := details(t, v.Validate())
		for _, field := range []string{"first_name", "last_name", "civil_status"} {
			if d[field] != "required" {
				t.Errorf("Expected %s required, got %v", field, d)
			}
		}
	})

	t.Run("group needs group name", func(t *testing.T) {
		v := &Victim{VictimType: VictimOrganization, LocationID: locationID}
		d := details(t, v.Validate())
		if d["group_name"] != "required" {
			t.Errorf("Expected group_name required, got %v", d)
		}
		if _, ok := d["first_name"]; ok {
			t.Error("Expected first_name not required for organizations")
		}
	})

	t.Run("enums and ranges", func(t *testing.T) {
		age := 151
		v := validVictim()
		v.Gender = "unknown"
		v.Age = &age
		v.VictimType = VictimIndividual
		d := details(t, v.Validate())
		if d["gender"] != "must be one of: male, female, other, na" {
			t.Errorf("Expected gender enum detail, got %q", d["gender"])
		}
		if d["age"] != "must be less than or equal to 150" {
			t.Errorf("Expected age detail, got %q", d["age"])
		}
	})

	t.Run("unknown victim type", func(t *testing.T) {
		v := validVictim()
		v.VictimType = "tribe"
		d := details(t, v.Validate())
		if _, ok := d["victim_type"]; !ok {
			t.Errorf("Expected victim_type detail, got %v", d)
		}
	})
}

func TestVictimJSONIncludesFullName(t *testing.T) {
	data, err := json.Marshal(validVictim())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	if out["full_name"] != "Juan dela Cruz" {
		t.Errorf("Expected full_name in JSON, got %v", out["full_name"])
	}
	if out["first_name"] != "Juan" {
		t.Errorf("Expected embedded fields flattened, got %v", out)
	}
	if _, ok := out["sector_ids"].([]any); !ok {
		t.Errorf("Expected sector_ids to encode as an array, got %v", out["sector_ids"])
	}
}

func TestIncidentValidation(t *testing.T) {
	incident := func() *Incident {
		return &Incident{Title: "Demolition in Sitio Uno", AccountOfIncident: "...", LocationID: locationID}
	}

	t.Run("date required unless unspecified", func(t *testing.T) {
		i := incident()
		i.Normalize(today)
		d := details(t, i.Validate())
		if _, ok := d["date_of_incident"]; !ok {
			t.Errorf("Expected date_of_incident detail, got %v", d)
		}

		i.UnspecifiedDate = true
		if err := i.Validate(); err != nil {
			t.Errorf("Expected no error with unspecified date, got %v", err)
		}
	})

	t.Run("filing date defaults to today", func(t *testing.T) {
		i := incident()
		i.Normalize(today)
		if !i.FilingDate.IsZero() {
			t.Errorf("Expected normalize to leave filing date unset, got %s", i.FilingDate)
		}
		i.ApplyDefaults(today)
		if i.FilingDate != today {
			t.Errorf("Expected filing date %s, got %s", today, i.FilingDate)
		}
	})

	t.Run("negative counts and missing location", func(t *testing.T) {
		i := incident()
		i.UnspecifiedDate = true
		i.VictimCount = -1
		i.LocationID = ""
		d := details(t, i.Validate())
		if d["victim_count"] == "" || d["location_id"] != "required" {
			t.Errorf("Expected victim_count and location_id details, got %v", d)
		}
	})

	t.Run("case number is kept on update", func(t *testing.T) {
		prev := &Incident{CaseNumber: "EDN-2024-06-0001"}
		next := incident()
		next.CaseNumber = "EDN-9999-99-9999"
		next.KeepImmutable(prev)
		if next.CaseNumber != "EDN-2024-06-0001" {
			t.Errorf("Expected case number preserved, got %s", next.CaseNumber)
		}
	})

	t.Run("omitted filing date is kept on update", func(t *testing.T) {
		filed := types.MustParseDate("2024-04-01")
		prev := &Incident{FilingDate: filed}
		next := incident()
		next.KeepImmutable(prev)
		if next.FilingDate != filed {
			t.Errorf("Expected filing date %s, got %s", filed, next.FilingDate)
		}

		next = incident()
		next.FilingDate = types.MustParseDate("2024-03-15")
		next.KeepImmutable(prev)
		if next.FilingDate.String() != "2024-03-15" {
			t.Errorf("Expected explicit filing date kept, got %s", next.FilingDate)
		}
	})
}

func TestPerpetratorDefaults(t *testing.T) {
	p := &Perpetrator{Unit: "3rd Infantry Battalion"}
	p.Normalize(today)
	if p.GroupName != DefaultPerpetratorGroup {
		t.Errorf("Expected group %s, got %s", DefaultPerpetratorGroup, p.GroupName)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if p.Label() != "3rd Infantry Battalion (OTHER)" {
		t.Errorf("Expected label, got %s", p.Label())
	}

	p.GroupName = "militia"
	d := details(t, p.Validate())
	if _, ok := d["group_name"]; !ok {
		t.Errorf("Expected group_name detail, got %v", d)
	}
}

func TestLocationAndSectorValidation(t *testing.T) {
	d := details(t, (&Location{Town: "Tagum"}).Validate())
	if d["province"] != "required" || d["region"] != "required" {
		t.Errorf("Expected province and region required, got %v", d)
	}

	s := &Sector{Name: "Farmers", SectorCode: "FARMERS-AND-AGRICULTURAL-WORKERS-OF-THE-SOUTHERN-REGION"}
	d = details(t, s.Validate())
	if d["sector_code"] != "must be at most 50 characters" {
		t.Errorf("Expected sector_code max detail, got %v", d)
	}
}

func TestFieldsMatchSchemaColumns(t *testing.T) {
	for _, kind := range Kinds {
		rec := MustNew(kind)
		cols := kind.Schema().Columns
		if len(rec.Fields()) != len(cols) {
			t.Errorf("%s: expected %d fields, got %d", kind, len(cols), len(rec.Fields()))
		}
		if len(rec.FieldPtrs()) != len(cols) {
			t.Errorf("%s: expected %d field pointers, got %d", kind, len(cols), len(rec.FieldPtrs()))
		}
	}
}

func TestKinds(t *testing.T) {
	if _, err := ParseKind("victim"); err != nil {
		t.Errorf("Expected victim to parse, got %v", err)
	}
	if _, err := ParseKind("victims"); err == nil {
		t.Error("Expected plural kind to be rejected")
	}

	deletable := map[Kind]bool{KindLocation: true, KindPerpetrator: true, KindSector: true}
	for _, k := range Kinds {
		if k.Deletable() != deletable[k] {
			t.Errorf("%s: expected deletable=%v", k, deletable[k])
		}
	}
}
