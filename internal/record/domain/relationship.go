package domain

import (
	"time"

	"github.com/eden-hr/casetracker/internal/shared/types"
)

// Detention records an arrest tied to a victim's involvement in an incident.
type Detention struct {
	DateOfDetention  *types.Date `json:"date_of_detention"`
	PlaceOfArrest    string      `json:"place_of_arrest"`
	PlaceOfDetention string      `json:"place_of_detention"`
	Charges          string      `json:"charges"`
	AlreadyReleased  bool        `json:"already_released"`
	RemarksOnRelease string      `json:"remarks_on_release"`
}

// IncidentVictim links a victim to an incident. The pair is unique.
type IncidentVictim struct {
	ID         types.ID  `json:"id"`
	IncidentID types.ID  `json:"incident_id"`
	VictimID   types.ID  `json:"victim_id"`
	Detention  Detention `json:"detention"`
	OwnerID    types.ID  `json:"owner_id"`
	Status     bool      `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IncidentVictimViolation records one violation suffered by a linked victim.
type IncidentVictimViolation struct {
	ID               types.ID  `json:"id"`
	IncidentVictimID types.ID  `json:"incident_victim_id"`
	IncidentID       types.ID  `json:"incident_id"`
	VictimID         types.ID  `json:"victim_id"`
	ViolationID      types.ID  `json:"violation_id"`
	Description      string    `json:"description"`
	OwnerID          types.ID  `json:"owner_id"`
	Status           bool      `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IncidentPerpetrator links a perpetrator to an incident. The pair is unique.
type IncidentPerpetrator struct {
	ID            types.ID  `json:"id"`
	IncidentID    types.ID  `json:"incident_id"`
	PerpetratorID types.ID  `json:"perpetrator_id"`
	Description   string    `json:"description"`
	OwnerID       types.ID  `json:"owner_id"`
	Status        bool      `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LinkedVictim is a victim as seen from an incident, with its violations.
type LinkedVictim struct {
	IncidentVictim
	Victim     *Victim           `json:"victim"`
	Violations []LinkedViolation `json:"violations"`
}

// LinkedViolation is a violation row with the violation type resolved.
type LinkedViolation struct {
	IncidentVictimViolation
	Violation *Violation `json:"violation"`
}

// LinkedPerpetrator is a perpetrator as seen from an incident.
type LinkedPerpetrator struct {
	IncidentPerpetrator
	Perpetrator *Perpetrator `json:"perpetrator"`
}
