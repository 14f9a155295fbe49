package model

import "time"

// Dispute is a staff-mediated escalation on a claim.
type Dispute struct {
	ID         int64      `json:"id"`
	ClaimID    int64      `json:"claim_id"`
	ReporterID int64      `json:"reporter_id"`
	ClaimerID  int64      `json:"claimer_id"`
	RaisedBy   int64      `json:"raised_by"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	Resolution string     `json:"resolution,omitempty"`
	AdminNotes string     `json:"admin_notes,omitempty"`
	AssignedTo *int64     `json:"assigned_to,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Dispute statuses.
const (
	DisputeOpen       = "open"
	DisputeInProgress = "in_progress"
	DisputeResolved   = "resolved"
	DisputeClosed     = "closed"
)

// DisputeActive reports whether a dispute with this status blocks a new one.
func DisputeActive(status string) bool {
	return status == DisputeOpen || status == DisputeInProgress
}

// Dispute resolutions.
const (
	ResolutionFavorClaimer    = "favor_claimer"
	ResolutionFavorReporter   = "favor_reporter"
	ResolutionMutualAgreement = "mutual_agreement"
	ResolutionNoResolution    = "no_resolution"
)

// ValidResolution reports whether r is a known resolution.
func ValidResolution(r string) bool {
	switch r {
	case ResolutionFavorClaimer, ResolutionFavorReporter, ResolutionMutualAgreement, ResolutionNoResolution:
		return true
	}
	return false
}
