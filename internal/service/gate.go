package service

import (
	"context"

	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/extract"
	"go.uber.org/zap"
)

// GateService is the stateless pass/fail check applied to a candidate
// answer before it may be surfaced.
type GateService struct {
	cfg    *domain.GateConfig
	ledger domain.LedgerStore
	logger *zap.Logger
}

func NewGateService(cfg *domain.GateConfig, ls domain.LedgerStore, logger *zap.Logger) *GateService {
	if cfg == nil {
		cfg = domain.DefaultGateConfig()
	}
	return &GateService{cfg: cfg, ledger: ls, logger: logger}
}

// GateResult is the gate's verdict and why.
type GateResult struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// Check is total over well-formed numeric inputs: it always yields a
// definite pass or fail. A blocking severity fails unconditionally; a
// note proceeds on scores alone; otherwise all three scores must meet
// the response type's thresholds.
func (s *GateService) Check(intentAlign, memoryAlign float64, responseType domain.ResponseType, groundingScore float64, severity domain.ContradictionSeverity) GateResult {
	if severity == domain.SeverityBlocking {
		return GateResult{Passed: false, Reason: "unresolved_contradiction"}
	}

	t := s.cfg.For(responseType)
	switch {
	case intentAlign < t.Intent:
		return GateResult{Passed: false, Reason: "intent_below_threshold"}
	case memoryAlign < t.Memory:
		return GateResult{Passed: false, Reason: "memory_below_threshold"}
	case groundingScore < t.Grounding:
		return GateResult{Passed: false, Reason: "grounding_below_threshold"}
	}
	return GateResult{Passed: true, Reason: "ok"}
}

// SeverityForQuery derives the ledger's bearing on a question: blocking
// when an open entry touches one of the question's inferred slots, a
// note when open entries exist elsewhere, none otherwise.
func (s *GateService) SeverityForQuery(ctx context.Context, question string) (domain.ContradictionSeverity, error) {
	openSlots, err := s.ledger.OpenSlots(ctx)
	if err != nil {
		return "", err
	}
	if len(openSlots) == 0 {
		return domain.SeverityNone, nil
	}
	querySlots := extract.QuerySlots(question)
	open := make(map[string]bool, len(openSlots))
	for _, slot := range openSlots {
		open[slot] = true
	}
	for _, slot := range querySlots {
		if open[slot] {
			s.logger.Debug("open contradiction blocks query slot", zap.String("slot", slot))
			return domain.SeverityBlocking, nil
		}
	}
	return domain.SeverityNote, nil
}
