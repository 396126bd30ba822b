package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/types"
	"github.com/eden-hr/casetracker/internal/shared/validate"
)

// Incident is a reported human-rights violation event.
type Incident struct {
	Meta

	CaseNumber         string      `json:"case_number"`
	Title              string      `json:"title" validate:"required,max=255"`
	AccountOfIncident  string      `json:"account_of_incident" validate:"required"`
	DateOfIncident     *types.Date `json:"date_of_incident"`
	UnspecifiedDate    bool        `json:"unspecified_date"`
	IncidentContinuing bool        `json:"incident_continuing"`
	FilingDate         types.Date  `json:"filing_date"`
	VictimCount        int         `json:"victim_count" validate:"gte=0"`
	FamilyCount        int         `json:"family_count" validate:"gte=0"`
	PerpetratorCount   int         `json:"perpetrator_count" validate:"gte=0"`
	LocationID         types.ID    `json:"location_id" validate:"required,uuid"`
	InvolvingChildren  bool        `json:"involving_children"`
	MiningRelated      bool        `json:"mining_related"`
	AgrarianRelated    bool        `json:"agrarian_related"`
	DemolitionRelated  bool        `json:"demolition_related"`
}

func (i *Incident) Kind() Kind { return KindIncident }

func (i *Incident) Normalize(today types.Date) {
	i.Title = strings.TrimSpace(i.Title)
	if i.UnspecifiedDate {
		i.DateOfIncident = nil
	}
}

func (i *Incident) Validate() error {
	var extra error
	if i.DateOfIncident == nil && !i.UnspecifiedDate {
		extra = apperrors.FieldError("date_of_incident", "required unless unspecified_date is set")
	}
	return validate.Merge(validate.Struct(i), extra)
}

func (i *Incident) References() []Reference {
	return []Reference{{Field: "location_id", Kind: KindLocation, ID: i.LocationID}}
}

// ApplyDefaults fills the filing date with the creation day.
func (i *Incident) ApplyDefaults(today types.Date) {
	if i.FilingDate.IsZero() {
		i.FilingDate = today
	}
}

// KeepImmutable keeps the case number, and the filing date when the edit leaves it out.
func (i *Incident) KeepImmutable(prev Record) {
	if p, ok := prev.(*Incident); ok {
		i.CaseNumber = p.CaseNumber
		if i.FilingDate.IsZero() {
			i.FilingDate = p.FilingDate
		}
	}
}

func (i *Incident) Fields() []any {
	return []any{
		i.CaseNumber, i.Title, i.AccountOfIncident, i.DateOfIncident,
		i.UnspecifiedDate, i.IncidentContinuing, i.FilingDate,
		i.VictimCount, i.FamilyCount, i.PerpetratorCount, i.LocationID,
		i.InvolvingChildren, i.MiningRelated, i.AgrarianRelated, i.DemolitionRelated,
	}
}

func (i *Incident) FieldPtrs() []any {
	return []any{
		&i.CaseNumber, &i.Title, &i.AccountOfIncident, &i.DateOfIncident,
		&i.UnspecifiedDate, &i.IncidentContinuing, &i.FilingDate,
		&i.VictimCount, &i.FamilyCount, &i.PerpetratorCount, &i.LocationID,
		&i.InvolvingChildren, &i.MiningRelated, &i.AgrarianRelated, &i.DemolitionRelated,
	}
}

func (i *Incident) Label() string {
	return fmt.Sprintf("%s: %s", i.CaseNumber, i.Title)
}

// VictimType distinguishes individual victims from collective ones.
type VictimType string

const (
	VictimIndividual   VictimType = "individual"
	VictimFamily       VictimType = "family"
	VictimCommunity    VictimType = "community"
	VictimGroup        VictimType = "group"
	VictimOrganization VictimType = "organization"
)

// Victim is a person or collective harmed in one or more incidents.
type Victim struct {
	Meta

	VictimType       VictimType  `json:"victim_type" validate:"required,oneof=individual family community group organization"`
	GroupName        string      `json:"group_name" validate:"max=255"`
	FirstName        string      `json:"first_name" validate:"max=255"`
	MiddleName       string      `json:"middle_name" validate:"max=255"`
	LastName         string      `json:"last_name" validate:"max=255"`
	Occupation       string      `json:"occupation" validate:"max=255"`
	SectorIDs        []types.ID  `json:"sector_ids" validate:"dive,uuid"`
	Birthdate        *types.Date `json:"birthdate"`
	Age              *int        `json:"age" validate:"omitempty,gte=0,lte=150"`
	Gender           string      `json:"gender" validate:"omitempty,oneof=male female other na"`
	CivilStatus      string      `json:"civil_status" validate:"omitempty,oneof=single married divorced widowed na"`
	Ethnicity        string      `json:"ethnicity" validate:"max=255"`
	NumberOfChildren int         `json:"number_of_children" validate:"gte=0"`
	ChildrenBelow18  int         `json:"children_below_18" validate:"gte=0,ltefield=NumberOfChildren"`
	LocationID       types.ID    `json:"location_id" validate:"required,uuid"`
	Residence        string      `json:"residence"`
	OrganizationName string      `json:"organization_name" validate:"max=255"`
	Position         string      `json:"position" validate:"max=255"`
	OtherAffiliation string      `json:"other_affiliation" validate:"max=255"`
	Remarks          string      `json:"remarks"`
}

func (v *Victim) Kind() Kind { return KindVictim }

// IsIndividual reports whether the victim is a single person.
func (v *Victim) IsIndividual() bool {
	return v.VictimType == VictimIndividual
}

// FullName joins the non-empty name parts for individuals; collectives use their group name.
func (v *Victim) FullName() string {
	if !v.IsIndividual() {
		return strings.TrimSpace(v.GroupName)
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{v.FirstName, v.MiddleName, v.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (v *Victim) Normalize(types.Date) {
	v.FirstName = strings.TrimSpace(v.FirstName)
	v.MiddleName = strings.TrimSpace(v.MiddleName)
	v.LastName = strings.TrimSpace(v.LastName)
	v.GroupName = strings.TrimSpace(v.GroupName)
	v.SectorIDs = dedupeIDs(v.SectorIDs)
}

func (v *Victim) Validate() error {
	details := map[string]string{}
	if v.IsIndividual() {
		if v.FirstName == "" {
			details["first_name"] = "required"
		}
		if v.LastName == "" {
			details["last_name"] = "required"
		}
		if v.CivilStatus == "" {
			details["civil_status"] = "required"
		}
	} else if v.VictimType != "" && v.GroupName == "" {
		details["group_name"] = "required"
	}

	var extra error
	if len(details) > 0 {
		extra = apperrors.Validation("validation failed", details)
	}
	return validate.Merge(validate.Struct(v), extra)
}

func (v *Victim) References() []Reference {
	refs := []Reference{{Field: "location_id", Kind: KindLocation, ID: v.LocationID}}
	for i, id := range v.SectorIDs {
		refs = append(refs, Reference{Field: fmt.Sprintf("sector_ids[%d]", i), Kind: KindSector, ID: id})
	}
	return refs
}

// Fields excludes SectorIDs, which live in victim_sectors.
func (v *Victim) Fields() []any {
	return []any{
		v.VictimType, v.GroupName, v.FirstName, v.MiddleName, v.LastName,
		v.Occupation, v.Birthdate, v.Age, v.Gender, v.CivilStatus, v.Ethnicity,
		v.NumberOfChildren, v.ChildrenBelow18, v.LocationID, v.Residence,
		v.OrganizationName, v.Position, v.OtherAffiliation, v.Remarks,
	}
}

func (v *Victim) FieldPtrs() []any {
	return []any{
		&v.VictimType, &v.GroupName, &v.FirstName, &v.MiddleName, &v.LastName,
		&v.Occupation, &v.Birthdate, &v.Age, &v.Gender, &v.CivilStatus, &v.Ethnicity,
		&v.NumberOfChildren, &v.ChildrenBelow18, &v.LocationID, &v.Residence,
		&v.OrganizationName, &v.Position, &v.OtherAffiliation, &v.Remarks,
	}
}

func (v *Victim) Label() string { return v.FullName() }

func (v Victim) MarshalJSON() ([]byte, error) {
	type victim Victim
	if v.SectorIDs == nil {
		v.SectorIDs = []types.ID{}
	}
	return json.Marshal(struct {
		victim
		FullName string `json:"full_name"`
	}{victim(v), v.FullName()})
}

// PerpetratorGroups are the organisations a perpetrator can belong to.
var PerpetratorGroups = []string{
	"AFP", "AFP-ARMY", "AFP-NAVY", "AFP-AIRFORCE", "PNP", "CAFGU", "LGU",
	"BPSO", "CVO", "CAA", "NGU", "PRIVATE", "PARAMILITARY", "OTHER",
}

// DefaultPerpetratorGroup is used when no group is given.
const DefaultPerpetratorGroup = "OTHER"

// Perpetrator is a unit or group alleged to be responsible for violations.
type Perpetrator struct {
	Meta

	GroupName         string   `json:"group_name" validate:"required,oneof=AFP AFP-ARMY AFP-NAVY AFP-AIRFORCE PNP CAFGU LGU BPSO CVO CAA NGU PRIVATE PARAMILITARY OTHER"`
	Unit              string   `json:"unit" validate:"required,max=255"`
	BriefInfo         string   `json:"brief_info"`
	CommandingOfficer string   `json:"commanding_officer" validate:"max=255"`
	LocationID        types.ID `json:"location_id,omitempty" validate:"omitempty,uuid"`
	Remarks           string   `json:"remarks"`
}

func (p *Perpetrator) Kind() Kind { return KindPerpetrator }

func (p *Perpetrator) Normalize(types.Date) {
	p.Unit = strings.TrimSpace(p.Unit)
	p.GroupName = strings.ToUpper(strings.TrimSpace(p.GroupName))
	if p.GroupName == "" {
		p.GroupName = DefaultPerpetratorGroup
	}
}

func (p *Perpetrator) Validate() error { return validate.Struct(p) }

func (p *Perpetrator) References() []Reference {
	if p.LocationID.IsZero() {
		return nil
	}
	return []Reference{{Field: "location_id", Kind: KindLocation, ID: p.LocationID}}
}

func (p *Perpetrator) Fields() []any {
	return []any{p.GroupName, p.Unit, p.BriefInfo, p.CommandingOfficer, p.LocationID, p.Remarks}
}

func (p *Perpetrator) FieldPtrs() []any {
	return []any{&p.GroupName, &p.Unit, &p.BriefInfo, &p.CommandingOfficer, &p.LocationID, &p.Remarks}
}

func (p *Perpetrator) Label() string {
	return fmt.Sprintf("%s (%s)", p.Unit, p.GroupName)
}

func (p Perpetrator) MarshalJSON() ([]byte, error) {
	type perpetrator Perpetrator
	return json.Marshal(struct {
		perpetrator
		Label string `json:"label"`
	}{perpetrator(p), p.Label()})
}

// Location is a town within a province and region.
type Location struct {
	Meta

	Town     string `json:"town" validate:"required,max=255"`
	Province string `json:"province" validate:"required,max=255"`
	Region   string `json:"region" validate:"required,max=255"`
}

func (l *Location) Kind() Kind { return KindLocation }

func (l *Location) Normalize(types.Date) {
	l.Town = strings.TrimSpace(l.Town)
	l.Province = strings.TrimSpace(l.Province)
	l.Region = strings.TrimSpace(l.Region)
}

func (l *Location) Validate() error { return validate.Struct(l) }

func (l *Location) References() []Reference { return nil }

func (l *Location) Fields() []any { return []any{l.Town, l.Province, l.Region} }

func (l *Location) FieldPtrs() []any { return []any{&l.Town, &l.Province, &l.Region} }

func (l *Location) Label() string {
	return fmt.Sprintf("%s, %s, %s", l.Town, l.Province, l.Region)
}

func (l Location) MarshalJSON() ([]byte, error) {
	type location Location
	return json.Marshal(struct {
		location
		Label string `json:"label"`
	}{location(l), l.Label()})
}

// Sector is a social sector a victim belongs to (farmers, workers, ...).
type Sector struct {
	Meta

	Name        string `json:"name" validate:"required,max=255"`
	SectorCode  string `json:"sector_code" validate:"required,max=50"`
	Description string `json:"description"`
}

func (s *Sector) Kind() Kind { return KindSector }

func (s *Sector) Normalize(types.Date) {
	s.Name = strings.TrimSpace(s.Name)
	s.SectorCode = strings.TrimSpace(s.SectorCode)
}

func (s *Sector) Validate() error { return validate.Struct(s) }

func (s *Sector) References() []Reference { return nil }

func (s *Sector) Fields() []any { return []any{s.Name, s.SectorCode, s.Description} }

func (s *Sector) FieldPtrs() []any { return []any{&s.Name, &s.SectorCode, &s.Description} }

func (s *Sector) Label() string { return s.Name }

// Violation is a type of human-rights violation.
type Violation struct {
	Meta

	Violation   string `json:"violation" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required,max=255"`
}

func (v *Violation) Kind() Kind { return KindViolation }

func (v *Violation) Normalize(types.Date) {
	v.Violation = strings.TrimSpace(v.Violation)
	v.Category = strings.TrimSpace(v.Category)
}

func (v *Violation) Validate() error { return validate.Struct(v) }

func (v *Violation) References() []Reference { return nil }

func (v *Violation) Fields() []any { return []any{v.Violation, v.Description, v.Category} }

func (v *Violation) FieldPtrs() []any { return []any{&v.Violation, &v.Description, &v.Category} }

func (v *Violation) Label() string { return v.Violation }

func dedupeIDs(ids []types.ID) []types.ID {
	if len(ids) == 0 {
		return ids
	}
	seen := make(map[types.ID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
