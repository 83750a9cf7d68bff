package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"rota/internal/approval"
	"rota/internal/schedule"

	"github.com/go-chi/chi/v5"
)

// ReviewHandler covers everything that happens to a proposal after
// submission: listing, decisions, cancellation, and the rejection inbox.
type ReviewHandler struct {
	Orchestrator *approval.Orchestrator
	Store        schedule.Store
}

func urlID(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *ReviewHandler) weekFromURL(w http.ResponseWriter, r *http.Request) (schedule.Week, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		http.Error(w, "invalid week number", http.StatusBadRequest)
		return schedule.Week{}, false
	}
	week, err := h.Store.WeekByNumber(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return schedule.Week{}, false
	}
	return week, true
}

func (h *ReviewHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	week, ok := h.weekFromURL(w, r)
	if !ok {
		return
	}
	items, err := h.Orchestrator.ListPending(r.Context(), week.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []approval.PendingChange{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	outcome, err := h.Orchestrator.Approve(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type rejectReq struct {
	Reason string `json:"reason"`
}

func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req rejectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	outcome, err := h.Orchestrator.Reject(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *ReviewHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	outcome, err := h.Orchestrator.Cancel(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *ReviewHandler) ApproveAll(w http.ResponseWriter, r *http.Request) {
	week, ok := h.weekFromURL(w, r)
	if !ok {
		return
	}
	items, err := h.Orchestrator.ApproveAll(r.Context(), actorFrom(r), week.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ReviewHandler) RejectAll(w http.ResponseWriter, r *http.Request) {
	week, ok := h.weekFromURL(w, r)
	if !ok {
		return
	}
	var req rejectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	items, err := h.Orchestrator.RejectAll(r.Context(), actorFrom(r), week.ID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ReviewHandler) ListRejected(w http.ResponseWriter, r *http.Request) {
	inbox, err := h.Orchestrator.ListRejected(r.Context(), actorFrom(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

func (h *ReviewHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.Orchestrator.MarkRead(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Orchestrator.MarkAllRead(r.Context(), actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
