package domain

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// FeatureCount is the fixed width of a ValidationFeatures vector.
const FeatureCount = 10

// ValidationAction is the write the candidate fact implies.
type ValidationAction string

const (
	ActionAdd       ValidationAction = "add"
	ActionUpdate    ValidationAction = "update"
	ActionDeprecate ValidationAction = "deprecate"
)

// FeatureNames index the dimensions of the feature vector, in order.
var FeatureNames = [FeatureCount]string{
	"similarity",
	"recency",
	"memory_confidence",
	"claimed_confidence",
	"action_add",
	"action_update",
	"action_deprecate",
	"high_stakes",
	"entity_match",
	"attribute_match",
}

// ValidationFeatures is the fixed-shape input to the probability
// calibrator. Ephemeral: recomputed per decision, never persisted as
// part of a fact.
type ValidationFeatures struct {
	Similarity        float64 `json:"similarity"`
	Recency           float64 `json:"recency"`
	MemoryConfidence  float64 `json:"memory_confidence"`
	ClaimedConfidence float64 `json:"claimed_confidence"`
	ActionAdd         float64 `json:"action_add"`
	ActionUpdate      float64 `json:"action_update"`
	ActionDeprecate   float64 `json:"action_deprecate"`
	HighStakes        float64 `json:"high_stakes"`
	EntityMatch       float64 `json:"entity_match"`
	AttributeMatch    float64 `json:"attribute_match"`
}

var (
	ErrFeatureOutOfRange = errors.New("feature value outside [0,1]")
	ErrActionNotOneHot   = errors.New("action flags must be one-hot")
)

// Vector flattens the features in FeatureNames order.
func (f ValidationFeatures) Vector() [FeatureCount]float64 {
	return [FeatureCount]float64{
		f.Similarity,
		f.Recency,
		f.MemoryConfidence,
		f.ClaimedConfidence,
		f.ActionAdd,
		f.ActionUpdate,
		f.ActionDeprecate,
		f.HighStakes,
		f.EntityMatch,
		f.AttributeMatch,
	}
}

// Validate rejects malformed vectors before they reach the calibrator.
func (f ValidationFeatures) Validate() error {
	for _, v := range f.Vector() {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return ErrFeatureOutOfRange
		}
	}
	if f.ActionAdd+f.ActionUpdate+f.ActionDeprecate != 1 {
		return ErrActionNotOneHot
	}
	return nil
}

// SetAction sets the one-hot action flags.
func (f *ValidationFeatures) SetAction(a ValidationAction) {
	f.ActionAdd, f.ActionUpdate, f.ActionDeprecate = 0, 0, 0
	switch a {
	case ActionAdd:
		f.ActionAdd = 1
	case ActionUpdate:
		f.ActionUpdate = 1
	case ActionDeprecate:
		f.ActionDeprecate = 1
	}
}

// TrainingExample pairs a feature vector with its confirmed label.
type TrainingExample struct {
	Features ValidationFeatures `json:"features"`
	Valid    bool               `json:"valid"`
}

// ModelSnapshot is the persisted calibration model: logistic weights
// plus the feature scaler fitted at training time. An untrained
// snapshot signals the heuristic fallback.
type ModelSnapshot struct {
	Weights   [FeatureCount]float64 `json:"weights"`
	Bias      float64               `json:"bias"`
	Mean      [FeatureCount]float64 `json:"mean"`
	Std       [FeatureCount]float64 `json:"std"`
	Trained   bool                  `json:"trained"`
	Samples   int                   `json:"samples"`
	TrainedAt time.Time             `json:"trained_at"`
}

// TrainingReport is returned from a successful train for observability.
type TrainingReport struct {
	Accuracy       float64            `json:"accuracy"`
	Samples        int                `json:"samples"`
	FeatureWeights map[string]float64 `json:"feature_weights"`
}

// FeedbackSample is one buffered (features, user_confirmed) pair for
// online recalibration.
type FeedbackSample struct {
	ID        uuid.UUID          `json:"id"`
	Features  ValidationFeatures `json:"features"`
	Confirmed bool               `json:"confirmed"`
	CreatedAt time.Time          `json:"created_at"`
}
