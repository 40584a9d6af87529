package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/service"
)

type FactHandler struct {
	svc *service.FactService
}

func NewFactHandler(svc *service.FactService) *FactHandler {
	return &FactHandler{svc: svc}
}

type factListResponse struct {
	Facts []domain.Fact `json:"facts"`
	Count int           `json:"count"`
}

// ListCurrent returns the whole current profile.
func (h *FactHandler) ListCurrent(w http.ResponseWriter, r *http.Request) {
	facts, err := h.svc.AllCurrentFacts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list facts")
		return
	}
	writeJSON(w, http.StatusOK, factListResponse{Facts: facts, Count: len(facts)})
}

// GetBySlot returns the current fact(s) for one slot.
func (h *FactHandler) GetBySlot(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	if !domain.KnownSlot(slot) {
		writeError(w, http.StatusNotFound, "unknown slot")
		return
	}

	facts, err := h.svc.CurrentFacts(r.Context(), slot)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get facts")
		return
	}
	writeJSON(w, http.StatusOK, factListResponse{Facts: facts, Count: len(facts)})
}

// History returns every fact ever recorded for one slot, oldest first.
func (h *FactHandler) History(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	if !domain.KnownSlot(slot) {
		writeError(w, http.StatusNotFound, "unknown slot")
		return
	}

	facts, err := h.svc.History(r.Context(), slot)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}
	writeJSON(w, http.StatusOK, factListResponse{Facts: facts, Count: len(facts)})
}
