// Package service implements the belief-revision core: contradiction
// classification, probability calibration, the yellow-zone policy,
// fact ingestion, ledger resolution, and the reconstruction gate.
package service

import (
	"strings"

	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/extract"
)

// ClassifyInput carries everything the classifier may consult for one
// (new fact, stored fact) pair.
type ClassifyInput struct {
	Slot         string
	NewValue     string
	PriorValue   string
	NewStatus    domain.TemporalStatus
	PriorStatus  domain.TemporalStatus
	NewDomains   []string
	PriorDomains []string
	// RawText is the new statement's original text, used only for
	// progression-marker detection.
	RawText string
}

// ClassifyResult is the verdict plus a short machine-readable reason.
type ClassifyResult struct {
	Type            domain.ContradictionType
	IsContradiction bool
	Reason          string
}

// Classify is the single authority for the contradiction label. It is
// pure and total: every input yields a verdict, and anything that
// survives all benign checks is a true contradiction (fail closed;
// ambiguous pairs go to the ledger for confirmation, never to a silent
// merge). Decision order is fixed; first match wins.
func Classify(in ClassifyInput) ClassifyResult {
	if strings.TrimSpace(in.PriorValue) == "" {
		return ClassifyResult{Type: domain.ContradictionFirstObservation, Reason: "no stored value for slot"}
	}

	// Past-over-active outranks value equality: "I used to work at
	// Google" closes out an active Google fact rather than restating it.
	if in.NewStatus == domain.TemporalPast && in.PriorStatus == domain.TemporalActive {
		return ClassifyResult{Type: domain.ContradictionTemporalDeprecation, Reason: "new statement marks stored fact historical"}
	}

	if domain.NormalizeValue(in.NewValue) == domain.NormalizeValue(in.PriorValue) {
		return ClassifyResult{Type: domain.ContradictionSameValue, Reason: "normalized values equal"}
	}

	if in.NewStatus == domain.TemporalPast && in.PriorStatus == domain.TemporalPast {
		return ClassifyResult{Type: domain.ContradictionBothPast, Reason: "both facts are historical"}
	}

	if extract.HasProgressionMarker(in.RawText) {
		return ClassifyResult{Type: domain.ContradictionTemporalUpdate, Reason: "progression language indicates ongoing-role update"}
	}

	if !domain.DomainsOverlap(in.NewDomains, in.PriorDomains) {
		return ClassifyResult{Type: domain.ContradictionDomainCoexistence, Reason: "facts belong to disjoint life contexts"}
	}

	return ClassifyResult{
		Type:            domain.ContradictionTrue,
		IsContradiction: true,
		Reason:          "same slot, overlapping domain, both active, different values",
	}
}

// ClassifyFactChange is the lighter three-way variant used when domain
// and temporal metadata are unavailable. Explicit correction markers
// mean a revision; promotion/recency language means a temporal change;
// added specificity that retains the prior value is a refinement.
// Anything else defaults to revision: with no metadata to prove the
// change benign, the old value must not silently survive.
func ClassifyFactChange(slot, newValue, priorValue, rawText string) domain.ContradictionType {
	if extract.HasCorrectionMarker(rawText) {
		return domain.ContradictionRevision
	}
	if extract.HasProgressionMarker(rawText) || extract.TemporalStatusOf(rawText).Status != domain.TemporalActive {
		return domain.ContradictionTemporalUpdate
	}
	newNorm := domain.NormalizeValue(newValue)
	priorNorm := domain.NormalizeValue(priorValue)
	if priorNorm != "" && newNorm != priorNorm && strings.Contains(newNorm, priorNorm) {
		return domain.ContradictionRefinement
	}
	return domain.ContradictionRevision
}
