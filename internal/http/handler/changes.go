package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"rota/internal/approval"
	"rota/internal/schedule"

	"github.com/go-chi/chi/v5"
)

type ChangeHandler struct {
	Orchestrator *approval.Orchestrator
	Matcher      *schedule.Matcher
	Applier      *schedule.Applier
	Store        schedule.Store
}

type proposeReq struct {
	WeekNumber int                    `json:"weekNumber"`
	ChangeType string                 `json:"changeType"`
	Payload    approval.ChangePayload `json:"payload"`
}

// Propose is the single entry point for schedule mutations. The orchestrator
// decides by role whether the change applies now or waits for approval.
func (h *ChangeHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req proposeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	ct, err := schedule.ParseChangeType(strings.ToUpper(strings.TrimSpace(req.ChangeType)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	week, err := h.Store.WeekByNumber(r.Context(), req.WeekNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.Orchestrator.Submit(r.Context(), actorFrom(r), week.ID, ct, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if outcome.Status == approval.StatusPending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcome)
}

// Duplicates answers "which weeks already have this activity" so the UI can
// warn a submitter and preselect fan-out targets.
func (h *ChangeHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	timeStr := q.Get("time")
	description := q.Get("description")
	dayName := q.Get("day")
	if timeStr == "" || description == "" || dayName == "" {
		http.Error(w, "time, description and day are required", http.StatusBadRequest)
		return
	}
	weeks, err := h.Matcher.FindMatchingWeeks(r.Context(), timeStr, description, dayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"existingWeeks": weeks})
}

type reorderReq struct {
	NewIndex int `json:"newIndex"`
}

// Reorder nudges an activity within its period bucket. It is a direct
// mutation, so only unrestricted actors may call it.
func (h *ChangeHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if !actor.Role.Unrestricted() {
		writeError(w, approval.ErrRoleForbidden)
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req reorderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.Applier.Reorder(r.Context(), id, req.NewIndex); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
