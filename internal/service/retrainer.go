package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/verity-mem/verity/internal/domain"
	"go.uber.org/zap"
)

const (
	// DefaultRetrainInterval is how many new samples trigger a retrain.
	DefaultRetrainInterval = 100
	// DefaultMinSamplesForRetrain is the total-sample floor before the
	// retrainer acts at all.
	DefaultMinSamplesForRetrain = 50

	defaultRetrainerTick = 15 * time.Minute
	retrainTimeout       = 30 * time.Second
)

// Retrainer accumulates calibration feedback and periodically retrains
// the calibrator. A failed training run is logged and the previous
// model stays active; a partially-updated model is never observable.
type Retrainer struct {
	feedback   domain.FeedbackStore
	calibrator *Calibrator
	logger     *zap.Logger

	retrainInterval int
	minSamples      int
	tick            time.Duration

	mu               sync.Mutex
	lastTrainedCount int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRetrainer(fs domain.FeedbackStore, cal *Calibrator, logger *zap.Logger) *Retrainer {
	return &Retrainer{
		feedback:        fs,
		calibrator:      cal,
		logger:          logger,
		retrainInterval: DefaultRetrainInterval,
		minSamples:      DefaultMinSamplesForRetrain,
		tick:            defaultRetrainerTick,
		stopCh:          make(chan struct{}),
	}
}

func (r *Retrainer) SetRetrainInterval(n int) { r.retrainInterval = n }
func (r *Retrainer) SetMinSamples(n int)      { r.minSamples = n }
func (r *Retrainer) SetTick(d time.Duration)  { r.tick = d }

// Add buffers one (features, confirmed) pair and retrains when the
// thresholds are met.
func (r *Retrainer) Add(ctx context.Context, features domain.ValidationFeatures, confirmed bool) error {
	if err := features.Validate(); err != nil {
		return err
	}
	sample := &domain.FeedbackSample{
		ID:        uuid.New(),
		Features:  features,
		Confirmed: confirmed,
	}
	if err := r.feedback.Create(ctx, sample); err != nil {
		return err
	}
	r.maybeRetrain(ctx)
	return nil
}

// Start runs the retrainer on a periodic schedule so feedback ingested
// out of band (or left over from a previous run) still gets trained on.
func (r *Retrainer) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.tick)
		defer ticker.Stop()

		r.logger.Info("calibration retrainer started", zap.Duration("tick", r.tick))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), retrainTimeout)
				r.maybeRetrain(ctx)
				cancel()
			case <-r.stopCh:
				r.logger.Info("calibration retrainer stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the retrainer.
func (r *Retrainer) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

// maybeRetrain trains when enough total samples exist and enough new
// ones arrived since the last run.
func (r *Retrainer) maybeRetrain(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count, err := r.feedback.Count(ctx)
	if err != nil {
		r.logger.Warn("feedback count failed", zap.Error(err))
		return
	}
	if count < r.minSamples {
		return
	}
	if count-r.lastTrainedCount < r.retrainInterval && r.lastTrainedCount > 0 {
		return
	}

	samples, err := r.feedback.List(ctx, 0)
	if err != nil {
		r.logger.Warn("feedback load failed", zap.Error(err))
		return
	}

	examples := make([]domain.TrainingExample, 0, len(samples))
	for _, s := range samples {
		examples = append(examples, domain.TrainingExample{Features: s.Features, Valid: s.Confirmed})
	}

	report, err := r.calibrator.Train(ctx, examples)
	if err != nil {
		// Keep the prior model; class imbalance in particular clears
		// itself as more feedback arrives.
		if errors.Is(err, ErrClassImbalance) || errors.Is(err, ErrInsufficientSamples) {
			r.logger.Info("retrain skipped", zap.Error(err), zap.Int("samples", count))
		} else {
			r.logger.Error("retrain failed, keeping previous model", zap.Error(err))
		}
		return
	}

	r.lastTrainedCount = count
	r.logger.Info("calibration model retrained",
		zap.Int("samples", report.Samples),
		zap.Float64("accuracy", report.Accuracy))
}
