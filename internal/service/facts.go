package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/extract"
	"go.uber.org/zap"
)

var (
	ErrStatementEmpty = errors.New("statement text is required")
)

// FactService is the ingestion path: extract candidates, classify each
// against the store, mutate facts, and open ledger entries for genuine
// conflicts. All writes for one slot happen under that slot's lock.
type FactService struct {
	facts      domain.FactStore
	ledger     domain.LedgerStore
	calibrator *Calibrator
	policy     *YellowZonePolicy
	resolver   *ResolutionService
	logger     *zap.Logger
	locks      *slotLocks
}

func NewFactService(fs domain.FactStore, ls domain.LedgerStore, cal *Calibrator, policy *YellowZonePolicy, logger *zap.Logger) *FactService {
	return &FactService{
		facts:      fs,
		ledger:     ls,
		calibrator: cal,
		policy:     policy,
		logger:     logger,
		locks:      newSlotLocks(),
	}
}

// SetResolver wires the resolution engine in after construction. Both
// services share one lock map, so writers to a slot are mutually
// exclusive whether the write comes from ingestion or resolution.
func (s *FactService) SetResolver(r *ResolutionService) {
	s.resolver = r
	r.locks = s.locks
}

// RecordResult summarizes one ingested statement.
type RecordResult struct {
	Extracted      []domain.Fact       `json:"extracted"`
	Contradictions []domain.LedgerEntry `json:"contradictions"`
	Updated        []string            `json:"updated"`
}

// ExtractAndRecord runs the full ingestion pipeline for one statement.
// Extraction is total; a statement that matches nothing returns an
// empty result, not an error.
func (s *FactService) ExtractAndRecord(ctx context.Context, text string) (*RecordResult, error) {
	if text == "" {
		return nil, ErrStatementEmpty
	}

	result := &RecordResult{}
	candidates := extract.Facts(text)
	isCorrection := extract.HasCorrectionMarker(text)

	for _, cand := range candidates {
		unlock := s.locks.lock(cand.Slot)
		entry, fact, updated, err := s.recordCandidate(ctx, cand, text, isCorrection)
		unlock()
		if err != nil {
			return nil, err
		}
		if fact != nil {
			result.Extracted = append(result.Extracted, *fact)
		}
		if entry != nil {
			result.Contradictions = append(result.Contradictions, *entry)
		}
		if updated {
			result.Updated = append(result.Updated, cand.Slot)
		}
	}
	return result, nil
}

func (s *FactService) recordCandidate(ctx context.Context, cand extract.Candidate, rawText string, isCorrection bool) (*domain.LedgerEntry, *domain.Fact, bool, error) {
	source := domain.SourceUserStated
	if isCorrection {
		source = domain.SourceUserCorrected
	}
	newFact := &domain.Fact{
		ID:              uuid.New(),
		Slot:            cand.Slot,
		Value:           cand.Value,
		NormalizedValue: domain.NormalizeValue(cand.Value),
		Trust:           source.InitialTrust(),
		Source:          source,
		Domains:         cand.Domains,
		TemporalStatus:  cand.TemporalStatus,
		TemporalPeriod:  cand.TemporalPeriod,
		IsCurrent:       true,
	}

	// A correction that names one side of an open conflict resolves it
	// instead of opening another.
	if isCorrection {
		resolved, err := s.resolveByCorrection(ctx, newFact, rawText)
		if err != nil {
			return nil, nil, false, err
		}
		if resolved != nil {
			return resolved, nil, true, nil
		}
	}

	currents, err := s.facts.GetCurrent(ctx, cand.Slot)
	if err != nil {
		return nil, nil, false, err
	}

	// Same value restated: refresh, never duplicate. A past-tense
	// restatement of an active fact is not a restatement; it falls
	// through to classification as a temporal deprecation.
	for i := range currents {
		if currents[i].NormalizedValue == newFact.NormalizedValue &&
			!(newFact.TemporalStatus == domain.TemporalPast && currents[i].TemporalStatus == domain.TemporalActive) {
			if err := s.facts.RefreshTimestamp(ctx, currents[i].ID); err != nil {
				return nil, nil, false, err
			}
			return nil, nil, false, nil
		}
	}

	if len(currents) == 0 {
		if err := s.facts.Create(ctx, newFact); err != nil {
			return nil, nil, false, err
		}
		return nil, newFact, true, nil
	}

	// Multi-valued slots are additive for new values, but the classifier
	// still rules on a stored value the candidate names: a past-marked
	// restatement closes it out rather than duplicating it.
	if domain.SlotIsMultiValued(cand.Slot) {
		for i := range currents {
			if currents[i].NormalizedValue != newFact.NormalizedValue {
				continue
			}
			verdict := Classify(ClassifyInput{
				Slot:         cand.Slot,
				NewValue:     newFact.Value,
				PriorValue:   currents[i].Value,
				NewStatus:    newFact.TemporalStatus,
				PriorStatus:  currents[i].TemporalStatus,
				NewDomains:   newFact.Domains,
				PriorDomains: currents[i].Domains,
				RawText:      rawText,
			})
			switch verdict.Type {
			case domain.ContradictionSameValue:
				if err := s.facts.RefreshTimestamp(ctx, currents[i].ID); err != nil {
					return nil, nil, false, err
				}
				return nil, nil, false, nil
			case domain.ContradictionTemporalDeprecation:
				if err := s.facts.Deprecate(ctx, currents[i].ID, string(domain.ContradictionTemporalDeprecation)); err != nil {
					return nil, nil, false, err
				}
				if err := s.facts.Create(ctx, newFact); err != nil {
					return nil, nil, false, err
				}
				return nil, newFact, true, nil
			}
		}
		if err := s.facts.Create(ctx, newFact); err != nil {
			return nil, nil, false, err
		}
		return nil, newFact, true, nil
	}

	prior := &currents[0]
	verdict := Classify(ClassifyInput{
		Slot:         cand.Slot,
		NewValue:     newFact.Value,
		PriorValue:   prior.Value,
		NewStatus:    newFact.TemporalStatus,
		PriorStatus:  prior.TemporalStatus,
		NewDomains:   newFact.Domains,
		PriorDomains: prior.Domains,
		RawText:      rawText,
	})

	switch verdict.Type {
	case domain.ContradictionSameValue:
		if err := s.facts.RefreshTimestamp(ctx, prior.ID); err != nil {
			return nil, nil, false, err
		}
		return nil, nil, false, nil

	case domain.ContradictionTemporalDeprecation:
		// The new statement closes out the stored fact rather than
		// disputing it; the historical record becomes current.
		if err := s.facts.Deprecate(ctx, prior.ID, string(domain.ContradictionTemporalDeprecation)); err != nil {
			return nil, nil, false, err
		}
		if err := s.facts.Create(ctx, newFact); err != nil {
			return nil, nil, false, err
		}
		return nil, newFact, true, nil

	case domain.ContradictionBothPast:
		// Pure history; the stored current belief is untouched.
		newFact.IsCurrent = false
		if err := s.facts.Create(ctx, newFact); err != nil {
			return nil, nil, false, err
		}
		return nil, newFact, false, nil

	case domain.ContradictionTemporalUpdate:
		if err := s.facts.Create(ctx, newFact); err != nil {
			return nil, nil, false, err
		}
		if err := s.facts.Supersede(ctx, prior.ID, newFact.ID); err != nil {
			return nil, nil, false, err
		}
		return nil, newFact, true, nil

	case domain.ContradictionDomainCoexistence:
		// Disjoint life contexts: both stay current.
		if err := s.facts.Create(ctx, newFact); err != nil {
			return nil, nil, false, err
		}
		return nil, newFact, true, nil

	case domain.ContradictionTrue:
		// The contradiction label can still hide a benign change: an
		// explicit correction, or a more specific spelling that retains
		// the stored value, supersedes in place instead of opening a
		// conflict.
		change := ClassifyFactChange(cand.Slot, newFact.Value, prior.Value, rawText)
		if change == domain.ContradictionRefinement || (change == domain.ContradictionRevision && isCorrection) {
			if err := s.facts.Create(ctx, newFact); err != nil {
				return nil, nil, false, err
			}
			if err := s.facts.Supersede(ctx, prior.ID, newFact.ID); err != nil {
				return nil, nil, false, err
			}
			return nil, newFact, true, nil
		}
		return s.recordContradiction(ctx, newFact, prior, rawText)

	default:
		s.logger.Warn("unhandled classification, failing closed",
			zap.String("slot", cand.Slot),
			zap.String("type", string(verdict.Type)))
		return s.recordContradiction(ctx, newFact, prior, rawText)
	}
}

// recordContradiction inserts the candidate off-current, opens a ledger
// entry, and applies the yellow-zone policy: confident accepts and
// rejects auto-resolve, everything in between stays open for the user.
func (s *FactService) recordContradiction(ctx context.Context, newFact, prior *domain.Fact, rawText string) (*domain.LedgerEntry, *domain.Fact, bool, error) {
	features := ExtractFeatures(newFact, prior, domain.ActionUpdate, -1, newFact.Trust, time.Now().UTC())
	pValid := s.calibrator.Predict(features)
	decision := s.policy.Decide(pValid, newFact.Slot)

	newFact.IsCurrent = false
	newFact.Trust = clamp01(newFact.Trust * s.policy.Dampening(pValid))
	if err := s.facts.Create(ctx, newFact); err != nil {
		return nil, nil, false, err
	}

	entry := &domain.LedgerEntry{
		ID:     uuid.New(),
		Slot:   newFact.Slot,
		Status: domain.LedgerOpen,
		Type:   domain.ContradictionTrue,
		FactA:  prior.ID,
		FactB:  newFact.ID,
		Drift: domain.DriftMetrics{
			TrustDelta: newFact.Trust - prior.Trust,
			Similarity: features.Similarity,
		},
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		return nil, nil, false, err
	}

	s.logger.Info("contradiction detected",
		zap.String("slot", newFact.Slot),
		zap.String("ledger_id", entry.ID.String()),
		zap.Float64("p_valid", pValid),
		zap.String("decision", string(decision)))

	updated := false
	if s.resolver != nil {
		switch decision {
		case DecisionAccept:
			if _, err := s.resolver.resolveLocked(ctx, entry, domain.ResolutionOverride, &newFact.ID, ""); err != nil {
				return nil, nil, false, err
			}
			updated = true
		case DecisionReject:
			if _, err := s.resolver.resolveLocked(ctx, entry, domain.ResolutionOverride, &prior.ID, ""); err != nil {
				return nil, nil, false, err
			}
		case DecisionLogForReview:
			s.logger.Warn("contradiction logged for review",
				zap.String("ledger_id", entry.ID.String()),
				zap.Float64("p_valid", pValid))
		}
	}

	current, err := s.ledger.GetByID(ctx, entry.ID)
	if err != nil {
		return nil, nil, false, err
	}
	return current, newFact, updated, nil
}

// resolveByCorrection closes an open entry when the corrected value
// names one of its sides. Returns nil when no open entry matches.
func (s *FactService) resolveByCorrection(ctx context.Context, newFact *domain.Fact, rawText string) (*domain.LedgerEntry, error) {
	if s.resolver == nil {
		return nil, nil
	}
	entries, err := s.ledger.ListBySlot(ctx, newFact.Slot)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Status != domain.LedgerOpen {
			continue
		}
		for _, factID := range []uuid.UUID{entries[i].FactA, entries[i].FactB} {
			side, err := s.facts.GetByID(ctx, factID)
			if err != nil {
				return nil, err
			}
			if side.NormalizedValue != newFact.NormalizedValue {
				continue
			}
			chosen := factID
			resolved, err := s.resolver.resolveLocked(ctx, &entries[i], domain.ResolutionOverride, &chosen, rawText)
			if err != nil {
				return nil, err
			}
			s.logger.Info("correction resolved open contradiction",
				zap.String("slot", newFact.Slot),
				zap.String("ledger_id", entries[i].ID.String()))
			return resolved, nil
		}
	}
	return nil, nil
}

// Answer is the direct lookup path: infer the slot from the question
// and return its current fact, or nil when nothing is known.
func (s *FactService) Answer(ctx context.Context, question string) (*domain.Fact, error) {
	slots := extract.QuerySlots(question)
	if len(slots) == 0 {
		return nil, nil
	}
	for _, slot := range slots {
		currents, err := s.facts.GetCurrent(ctx, slot)
		if err != nil {
			return nil, err
		}
		if len(currents) == 0 {
			continue
		}
		best := currents[0]
		for _, f := range currents[1:] {
			if f.UpdatedAt.After(best.UpdatedAt) {
				best = f
			}
		}
		return &best, nil
	}
	return nil, nil
}

// CurrentFacts returns every current fact for a slot.
func (s *FactService) CurrentFacts(ctx context.Context, slot string) ([]domain.Fact, error) {
	return s.facts.GetCurrent(ctx, slot)
}

// AllCurrentFacts returns the whole current profile.
func (s *FactService) AllCurrentFacts(ctx context.Context) ([]domain.Fact, error) {
	return s.facts.GetAllCurrent(ctx)
}

// History returns every row ever written for a slot, oldest first.
func (s *FactService) History(ctx context.Context, slot string) ([]domain.Fact, error) {
	return s.facts.GetHistory(ctx, slot)
}
