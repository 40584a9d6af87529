package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FactSource indicates where a fact originated.
type FactSource string

const (
	SourceUserStated    FactSource = "user_stated"
	SourceUserCorrected FactSource = "user_corrected"
	SourceInferred      FactSource = "inferred"
	SourceExternal      FactSource = "external"
)

func ValidFactSource(s string) bool {
	switch FactSource(s) {
	case SourceUserStated, SourceUserCorrected, SourceInferred, SourceExternal:
		return true
	}
	return false
}

func (s FactSource) InitialTrust() float64 {
	switch s {
	case SourceUserStated:
		return 0.9
	case SourceUserCorrected:
		return 0.95
	case SourceInferred:
		return 0.6
	case SourceExternal:
		return 0.7
	default:
		return 0.5
	}
}

// TemporalStatus classifies when a statement holds.
type TemporalStatus string

const (
	TemporalPast      TemporalStatus = "past"
	TemporalActive    TemporalStatus = "active"
	TemporalFuture    TemporalStatus = "future"
	TemporalPotential TemporalStatus = "potential"
)

func ValidTemporalStatus(s string) bool {
	switch TemporalStatus(s) {
	case TemporalPast, TemporalActive, TemporalFuture, TemporalPotential:
		return true
	}
	return false
}

// DomainGeneral is the fallback tag when no life-context keywords match.
// It overlaps every other tag set.
const DomainGeneral = "general"

// Fact is one atomic (slot, value) observation about the user.
// Rows are never deleted; supersession flips is_current and links the successor.
type Fact struct {
	ID               uuid.UUID      `json:"id"`
	Slot             string         `json:"slot"`
	Value            string         `json:"value"`
	NormalizedValue  string         `json:"normalized_value"`
	Trust            float64        `json:"trust"`
	Source           FactSource     `json:"source"`
	Domains          []string       `json:"domains"`
	TemporalStatus   TemporalStatus `json:"temporal_status"`
	TemporalPeriod   string         `json:"temporal_period,omitempty"`
	Embedding        []float32      `json:"-"`
	IsCurrent        bool           `json:"is_current"`
	SupersededBy     *uuid.UUID     `json:"superseded_by,omitempty"`
	DeprecatedReason string         `json:"deprecated_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

var (
	normalizeStrip    = regexp.MustCompile(`[^\p{L}\p{N} ]+`)
	normalizeSpace    = regexp.MustCompile(`\s+`)
	normalizeArticles = regexp.MustCompile(`^(the|a|an) `)
)

// NormalizeValue canonicalizes a raw value for equality checks:
// lowercase, punctuation stripped, whitespace collapsed, leading article dropped.
func NormalizeValue(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = normalizeStrip.ReplaceAllString(v, "")
	v = normalizeSpace.ReplaceAllString(v, " ")
	v = strings.TrimSpace(v)
	return normalizeArticles.ReplaceAllString(v, "")
}

// DomainsOverlap reports whether two tag sets share a life context.
// The "general" tag is a wildcard: an untagged statement is assumed to
// apply everywhere, so it overlaps any set.
func DomainsOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		if t == DomainGeneral {
			return true
		}
		set[t] = true
	}
	for _, t := range b {
		if t == DomainGeneral || set[t] {
			return true
		}
	}
	return false
}
