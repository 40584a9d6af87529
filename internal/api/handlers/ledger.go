package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/service"
)

type LedgerHandler struct {
	svc *service.ResolutionService
}

func NewLedgerHandler(svc *service.ResolutionService) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

type ledgerListResponse struct {
	Entries []domain.LedgerEntry `json:"entries"`
	Count   int                  `json:"count"`
}

// List returns ledger entries, newest state first; ?status=open|resolved filters.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.LedgerStatus(r.URL.Query().Get("status"))
	if status != "" && status != domain.LedgerOpen && status != domain.LedgerResolved {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	entries, err := h.svc.Entries(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list ledger")
		return
	}
	writeJSON(w, http.StatusOK, ledgerListResponse{Entries: entries, Count: len(entries)})
}

// Get returns one ledger entry.
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}

	entry, err := h.svc.Entry(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUnknownLedgerEntry) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get ledger entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type resolveRequest struct {
	Method       string `json:"method"`
	ChosenFactID string `json:"chosen_fact_id,omitempty"`
	Confirmation string `json:"confirmation,omitempty"`
}

// Resolve applies OVERRIDE, PRESERVE, or ASK_USER to one open entry.
func (h *LedgerHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var chosen *uuid.UUID
	if req.ChosenFactID != "" {
		parsed, err := uuid.Parse(req.ChosenFactID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid chosen_fact_id")
			return
		}
		chosen = &parsed
	}

	entry, err := h.svc.Resolve(r.Context(), id, domain.ResolutionMethod(req.Method), chosen, req.Confirmation)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownLedgerEntry):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyResolved):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidResolution),
			errors.Is(err, service.ErrChosenFactMissing),
			errors.Is(err, service.ErrChosenFactForeign):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to resolve")
		}
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
