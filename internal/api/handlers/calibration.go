package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/service"
)

type CalibrationHandler struct {
	retrainer  *service.Retrainer
	calibrator *service.Calibrator
}

func NewCalibrationHandler(retrainer *service.Retrainer, calibrator *service.Calibrator) *CalibrationHandler {
	return &CalibrationHandler{retrainer: retrainer, calibrator: calibrator}
}

type feedbackRequest struct {
	Features  domain.ValidationFeatures `json:"features"`
	Confirmed bool                      `json:"confirmed"`
}

// Feedback buffers one labeled validation outcome for recalibration.
func (h *CalibrationHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.retrainer.Add(r.Context(), req.Features, req.Confirmed); err != nil {
		if errors.Is(err, domain.ErrFeatureOutOfRange) || errors.Is(err, domain.ErrActionNotOneHot) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record feedback")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type modelResponse struct {
	Trained   bool               `json:"trained"`
	Samples   int                `json:"samples"`
	TrainedAt string             `json:"trained_at,omitempty"`
	Weights   map[string]float64 `json:"weights,omitempty"`
}

// Model exposes the active calibration model for observability.
func (h *CalibrationHandler) Model(w http.ResponseWriter, r *http.Request) {
	snap := h.calibrator.Snapshot()
	resp := modelResponse{Trained: snap.Trained, Samples: snap.Samples}
	if snap.Trained {
		resp.TrainedAt = snap.TrainedAt.Format(time.RFC3339)
		resp.Weights = make(map[string]float64, domain.FeatureCount)
		for i, name := range domain.FeatureNames {
			resp.Weights[name] = snap.Weights[i]
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
