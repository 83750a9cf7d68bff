package approval

import (
	"encoding/json"
	"strings"
	"time"

	"rota/internal/schedule"
)

// Role separates actors whose changes apply immediately from actors whose
// changes wait for a decision.
type Role string

const (
	RoleAdmin  Role = "admin"  // unrestricted
	RoleMember Role = "member" // restricted; all mutations go through the ledger
)

// Unrestricted reports whether this role may mutate the schedule directly.
func (r Role) Unrestricted() bool { return r == RoleAdmin }

// Actor is the identity the transport layer resolved for a request.
type Actor struct {
	ID   uint64
	Name string
	Role Role
}

// PendingChange is a contributor proposal waiting for a decision. Its
// presence is the SUBMITTED state; approval, rejection, and cancellation all
// remove the row. There is no amend transition — a contributor cancels and
// resubmits instead.
type PendingChange struct {
	ID         uint64              `gorm:"primaryKey"`
	WeekID     uint64              `gorm:"index;not null"`
	ChangeType schedule.ChangeType `gorm:"type:text;not null"`
	ChangeData json.RawMessage     `gorm:"type:jsonb;not null;default:'{}'::jsonb"`
	UserID     uint64              `gorm:"index;not null"`
	CreatedAt  time.Time           `gorm:"not null;default:now()"`
}

// RejectedChange is the append-only record of a rejection. ChangeData is the
// payload snapshot exactly as submitted; only IsRead ever changes after
// creation, and rows are never auto-deleted.
type RejectedChange struct {
	ID              uint64              `gorm:"primaryKey"`
	WeekID          uint64              `gorm:"index;not null"`
	ChangeType      schedule.ChangeType `gorm:"type:text;not null"`
	ChangeData      json.RawMessage     `gorm:"type:jsonb;not null;default:'{}'::jsonb"`
	UserID          uint64              `gorm:"index;not null"`
	SubmittedAt     time.Time           `gorm:"not null"`
	RejectedBy      uint64              `gorm:"not null"`
	RejectedAt      time.Time           `gorm:"not null;default:now()"`
	RejectionReason string              `gorm:"type:text;not null"`
	IsRead          bool                `gorm:"not null;default:false"`
}

// ChangePayload is the single payload shape shared by ADD, EDIT, and DELETE
// proposals. A pending ADD has no activity row yet, so targets are carried by
// value (day name, time, description) rather than by foreign key; EDIT and
// DELETE additionally carry the concrete ActivityID for the single-target
// path. ApplyToWeeks lists extra week numbers beyond the origin week; its
// presence routes the change through the multi-week applier.
type ChangePayload struct {
	DayID          uint64 `json:"dayId,omitempty"`
	ActivityID     uint64 `json:"activityId,omitempty"`
	Time           string `json:"time"`
	Description    string `json:"description"`
	Period         string `json:"period,omitempty"`
	DayName        string `json:"dayName"`
	OldTime        string `json:"oldTime,omitempty"`
	OldDescription string `json:"oldDescription,omitempty"`
	ApplyToWeeks   []int  `json:"applyToWeeks,omitempty"`
}

// Validate checks the payload for the given change type before any write.
func (p ChangePayload) Validate(ct schedule.ChangeType) error {
	v := &ValidationError{}
	if !schedule.ValidDayName(p.DayName) {
		v.add("dayName", "must be a weekday name")
	}
	if !schedule.ValidTime(p.Time) {
		v.add("time", "must be HH:MM (24h)")
	}
	if strings.TrimSpace(p.Description) == "" {
		v.add("description", "required")
	}
	switch ct {
	case schedule.ChangeAdd:
		if p.DayID == 0 {
			v.add("dayId", "required")
		}
		if _, err := schedule.ParsePeriod(p.Period); err != nil {
			v.add("period", "must be MORNING, AFTERNOON or EVENING")
		}
	case schedule.ChangeEdit:
		if p.ActivityID == 0 {
			v.add("activityId", "required")
		}
		if !schedule.ValidTime(p.OldTime) {
			v.add("oldTime", "must be HH:MM (24h)")
		}
		if strings.TrimSpace(p.OldDescription) == "" {
			v.add("oldDescription", "required")
		}
	case schedule.ChangeDelete:
		if p.ActivityID == 0 {
			v.add("activityId", "required")
		}
	default:
		v.add("changeType", "must be ADD, EDIT or DELETE")
	}
	if v.HasErrors() {
		return v
	}
	return nil
}

// Change renders the payload as the week-independent mutation the multi-week
// applier consumes.
func (p ChangePayload) Change(ct schedule.ChangeType) schedule.Change {
	return schedule.Change{
		Type:           ct,
		DayName:        p.DayName,
		Time:           p.Time,
		Description:    p.Description,
		Period:         schedule.Period(p.Period),
		OldTime:        p.OldTime,
		OldDescription: p.OldDescription,
	}
}
