package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"rota/internal/approval"
	"rota/internal/auth"
	"rota/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// actorFrom maps the authenticated user onto the approval-layer actor.
func actorFrom(r *http.Request) approval.Actor {
	u, _ := auth.UserFromContext(r.Context())
	role := approval.RoleMember
	if u.Role == auth.RoleAdmin {
		role = approval.RoleAdmin
	}
	return approval.Actor{ID: u.ID, Name: u.Name, Role: role}
}

// writeError translates domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var v *approval.ValidationError
	switch {
	case errors.As(err, &v):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": v.Error(), "fields": v.Fields})
	case errors.Is(err, schedule.ErrBadIndex):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, schedule.ErrNotFound), errors.Is(err, approval.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, approval.ErrNotOwner), errors.Is(err, approval.ErrRoleForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, schedule.ErrNoEffect):
		http.Error(w, "change applied to zero weeks", http.StatusConflict)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}
