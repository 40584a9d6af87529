package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/service"
)

type GateHandler struct {
	svc *service.GateService
}

func NewGateHandler(svc *service.GateService) *GateHandler {
	return &GateHandler{svc: svc}
}

type gateCheckRequest struct {
	Question       string  `json:"question"`
	IntentAlign    float64 `json:"intent_align"`
	MemoryAlign    float64 `json:"memory_align"`
	ResponseType   string  `json:"response_type"`
	GroundingScore float64 `json:"grounding_score"`
}

type gateCheckResponse struct {
	Passed   bool   `json:"passed"`
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
}

// Check runs the reconstruction gate for one candidate response. The
// contradiction severity is derived from the open ledger against the
// question; the caller supplies the alignment scores.
func (h *GateHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req gateCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rt := domain.ResponseType(req.ResponseType)
	switch rt {
	case domain.ResponseFactual, domain.ResponseInferential, domain.ResponseConversational:
	case "":
		rt = domain.ResponseFactual
	default:
		writeError(w, http.StatusBadRequest, "invalid response_type")
		return
	}

	severity, err := h.svc.SeverityForQuery(r.Context(), req.Question)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to derive severity")
		return
	}

	result := h.svc.Check(req.IntentAlign, req.MemoryAlign, rt, req.GroundingScore, severity)
	writeJSON(w, http.StatusOK, gateCheckResponse{
		Passed:   result.Passed,
		Reason:   result.Reason,
		Severity: string(severity),
	})
}
