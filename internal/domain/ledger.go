package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContradictionType is the classifier's verdict for a (new, stored) fact pair.
// Only ContradictionTrue opens a ledger entry; the rest are benign.
type ContradictionType string

const (
	ContradictionTrue                ContradictionType = "true_contradiction"
	ContradictionTemporalUpdate      ContradictionType = "temporal_update"
	ContradictionTemporalDeprecation ContradictionType = "temporal_deprecation"
	ContradictionDomainCoexistence   ContradictionType = "domain_coexistence"
	ContradictionRefinement          ContradictionType = "refinement"
	ContradictionRevision            ContradictionType = "revision"
	ContradictionSameValue           ContradictionType = "same_value"
	ContradictionBothPast            ContradictionType = "both_past"
	ContradictionFirstObservation    ContradictionType = "first_observation"
)

type LedgerStatus string

const (
	LedgerOpen     LedgerStatus = "open"
	LedgerResolved LedgerStatus = "resolved"
)

// ResolutionMethod is how a ledger entry was closed.
type ResolutionMethod string

const (
	ResolutionOverride ResolutionMethod = "override"
	ResolutionPreserve ResolutionMethod = "preserve"
	ResolutionAskUser  ResolutionMethod = "ask_user"
)

func ValidResolutionMethod(m string) bool {
	switch ResolutionMethod(m) {
	case ResolutionOverride, ResolutionPreserve, ResolutionAskUser:
		return true
	}
	return false
}

// DriftMetrics snapshots how far apart the two facts were at detection time.
type DriftMetrics struct {
	TrustDelta float64 `json:"trust_delta"`
	Similarity float64 `json:"similarity"`
}

// LedgerEntry is one row of the append-only contradiction audit.
// FactA is the stored (prior) fact, FactB the incoming one.
// Status moves open -> resolved exactly once; ResolutionMethod is set
// iff the entry is resolved.
type LedgerEntry struct {
	ID               uuid.UUID         `json:"id"`
	Slot             string            `json:"slot"`
	Status           LedgerStatus      `json:"status"`
	Type             ContradictionType `json:"contradiction_type"`
	FactA            uuid.UUID         `json:"fact_a"`
	FactB            uuid.UUID         `json:"fact_b"`
	ResolutionMethod *ResolutionMethod `json:"resolution_method,omitempty"`
	ChosenFactID     *uuid.UUID        `json:"chosen_fact_id,omitempty"`
	UserConfirmation string            `json:"user_confirmation,omitempty"`
	Drift            DriftMetrics      `json:"drift"`
	OpenedAt         time.Time         `json:"opened_at"`
	ResolvedAt       *time.Time        `json:"resolved_at,omitempty"`
}
