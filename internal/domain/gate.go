package domain

import "errors"

// ErrThresholdOutOfRange rejects a gate threshold outside [0,1].
var ErrThresholdOutOfRange = errors.New("gate threshold outside [0,1]")

// ResponseType labels what kind of answer the caller intends to surface.
// The label comes from an external classifier; the gate only selects
// thresholds by it.
type ResponseType string

const (
	ResponseFactual        ResponseType = "factual"
	ResponseInferential    ResponseType = "inferential"
	ResponseConversational ResponseType = "conversational"
)

// ContradictionSeverity is the ledger's bearing on a candidate answer.
type ContradictionSeverity string

const (
	// SeverityBlocking: an open ledger entry touches the query's slots.
	SeverityBlocking ContradictionSeverity = "blocking"
	// SeverityNote: open entries exist but none touch the query.
	SeverityNote ContradictionSeverity = "note"
	SeverityNone ContradictionSeverity = "none"
)

// GateThresholds are the per-response-type score floors.
type GateThresholds struct {
	Intent    float64 `yaml:"intent" json:"intent"`
	Memory    float64 `yaml:"memory" json:"memory"`
	Grounding float64 `yaml:"grounding" json:"grounding"`
}

// GateConfig is read-only threshold configuration, loaded once at startup.
type GateConfig struct {
	Default        GateThresholds                  `yaml:"default"`
	ByResponseType map[ResponseType]GateThresholds `yaml:"by_response_type"`
}

// For returns the thresholds for a response type, falling back to the
// default block for unknown labels.
func (c *GateConfig) For(rt ResponseType) GateThresholds {
	if t, ok := c.ByResponseType[rt]; ok {
		return t
	}
	return c.Default
}

// Validate rejects thresholds outside [0,1].
func (c *GateConfig) Validate() error {
	check := func(t GateThresholds) error {
		for _, v := range []float64{t.Intent, t.Memory, t.Grounding} {
			if v < 0 || v > 1 {
				return ErrThresholdOutOfRange
			}
		}
		return nil
	}
	if err := check(c.Default); err != nil {
		return err
	}
	for _, t := range c.ByResponseType {
		if err := check(t); err != nil {
			return err
		}
	}
	return nil
}

// DefaultGateConfig mirrors configs/gate_thresholds.yaml: factual
// answers are gated strictest, conversational most leniently.
func DefaultGateConfig() *GateConfig {
	return &GateConfig{
		Default: GateThresholds{Intent: 0.6, Memory: 0.6, Grounding: 0.5},
		ByResponseType: map[ResponseType]GateThresholds{
			ResponseFactual:        {Intent: 0.7, Memory: 0.7, Grounding: 0.6},
			ResponseInferential:    {Intent: 0.6, Memory: 0.6, Grounding: 0.5},
			ResponseConversational: {Intent: 0.4, Memory: 0.3, Grounding: 0.2},
		},
	}
}
