package domain

import (
	"time"

	"github.com/eden-hr/casetracker/internal/shared/types"
)

// CaseUpdate is an append-only progress note on an incident.
type CaseUpdate struct {
	ID         types.ID             `json:"id"`
	IncidentID types.ID             `json:"incident_id"`
	ActorID    types.ID             `json:"actor_id"`
	Note       string               `json:"note"`
	CreatedAt  time.Time            `json:"created_at"`
	Documents  []CaseUpdateDocument `json:"documents"`
}

// CaseUpdateDocument is a file attached to a case update.
type CaseUpdateDocument struct {
	ID           types.ID   `json:"id"`
	CaseUpdateID types.ID   `json:"case_update_id"`
	FileRef      string     `json:"file_ref"`
	Description  string     `json:"description"`
	FileDate     types.Date `json:"file_date"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Blob is stored file metadata. Uploads start temporary and become permanent
// once a document uses them; temporary blobs nobody uses are swept.
type Blob struct {
	FileRef     string    `json:"file_ref"`
	ObjectKey   string    `json:"-"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UsageCount  int       `json:"usage_count"`
	Permanent   bool      `json:"permanent"`
	OwnerID     types.ID  `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}
