package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/verity-mem/verity/internal/service"
)

type StatementHandler struct {
	svc *service.FactService
}

func NewStatementHandler(svc *service.FactService) *StatementHandler {
	return &StatementHandler{svc: svc}
}

type recordStatementRequest struct {
	Text string `json:"text"`
}

// Record ingests one user statement: extraction, classification, fact
// mutation, and any ledger entries it opens or resolves.
func (h *StatementHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.ExtractAndRecord(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, service.ErrStatementEmpty) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record statement")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type answerResponse struct {
	Found bool `json:"found"`
	Fact  any  `json:"fact,omitempty"`
}

// Answer resolves a direct question against the current profile.
func (h *StatementHandler) Answer(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("q")
	if question == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	fact, err := h.svc.Answer(r.Context(), question)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to answer")
		return
	}
	if fact == nil {
		writeJSON(w, http.StatusOK, answerResponse{Found: false})
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Found: true, Fact: fact})
}
