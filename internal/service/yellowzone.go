package service

import "github.com/verity-mem/verity/internal/domain"

// YellowZoneDecision is the policy's verdict for one candidate fact.
type YellowZoneDecision string

const (
	DecisionAccept       YellowZoneDecision = "accept"
	DecisionReject       YellowZoneDecision = "reject"
	DecisionAskUser      YellowZoneDecision = "ask_user"
	DecisionLogForReview YellowZoneDecision = "log_for_review"
)

const (
	// DefaultGreenThreshold accepts at or above this probability.
	DefaultGreenThreshold = 0.75
	// DefaultRedThreshold rejects below this probability.
	DefaultRedThreshold = 0.30
)

// YellowZonePolicy maps P(valid) to an action. Between red and green is
// the yellow zone: the fact is neither trusted nor dismissed. It goes
// to the user when a confirmation channel exists or the slot is
// high-stakes, otherwise to a review log.
type YellowZonePolicy struct {
	Green      float64
	Red        float64
	CanConfirm bool
}

func NewYellowZonePolicy(canConfirm bool) *YellowZonePolicy {
	return &YellowZonePolicy{
		Green:      DefaultGreenThreshold,
		Red:        DefaultRedThreshold,
		CanConfirm: canConfirm,
	}
}

// Decide applies the three-band policy for a slot.
func (p *YellowZonePolicy) Decide(pValid float64, slot string) YellowZoneDecision {
	switch {
	case pValid >= p.Green:
		return DecisionAccept
	case pValid < p.Red:
		return DecisionReject
	case p.CanConfirm || domain.SlotIsHighStakes(slot):
		return DecisionAskUser
	default:
		return DecisionLogForReview
	}
}

// Dampening returns the confidence multiplier for a probability:
// 1.0 at or above green, 0.5 below red, linear in between.
func (p *YellowZonePolicy) Dampening(pValid float64) float64 {
	switch {
	case pValid >= p.Green:
		return 1.0
	case pValid < p.Red:
		return 0.5
	default:
		return 0.5 + 0.5*(pValid-p.Red)/(p.Green-p.Red)
	}
}
