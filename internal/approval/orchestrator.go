package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rota/internal/notify"
	"rota/internal/schedule"
)

// Status labels the outcome of one pass through the change state machine.
// A proposal is SUBMITTED while its pending row exists and moves exactly once
// to APPROVED, REJECTED, or CANCELLED; there is no reopen or amend.
type Status string

const (
	StatusApplied          Status = "APPLIED" // unrestricted change, applied directly
	StatusPending          Status = "PENDING" // restricted change, recorded for review
	StatusApproved         Status = "APPROVED"
	StatusRejected         Status = "REJECTED"
	StatusCancelled        Status = "CANCELLED"
	StatusAlreadyProcessed Status = "ALREADY_PROCESSED" // lost a race with another decision
)

// Outcome is the explicit result of a transition, so callers never have to
// re-query for a row's absence to learn what happened.
type Outcome struct {
	Status   Status           `json:"status"`
	Report   *schedule.Report `json:"report,omitempty"`
	Pending  *PendingChange   `json:"pending,omitempty"`
	Rejected *RejectedChange  `json:"rejected,omitempty"`
}

// ItemOutcome is one entry of a bulk approve/reject result.
type ItemOutcome struct {
	ChangeID uint64   `json:"changeId"`
	Outcome  *Outcome `json:"outcome,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Orchestrator enforces the one rule every transport must agree on: a
// restricted actor never mutates the schedule directly, and every decision on
// a proposal happens here. It is the sole writer of the pending and rejected
// ledgers.
type Orchestrator struct {
	Ledger     Ledger
	Applier    *schedule.Applier
	Store      schedule.Store
	Dispatcher notify.Dispatcher
	Log        *slog.Logger
	Now        func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

// Submit routes a change by role: unrestricted actors hit the applier
// immediately and never touch the ledger, restricted actors always land in
// the ledger, even for a single-week change with no fan-out.
func (o *Orchestrator) Submit(ctx context.Context, actor Actor, weekID uint64, ct schedule.ChangeType, payload ChangePayload) (Outcome, error) {
	if err := payload.Validate(ct); err != nil {
		return Outcome{}, err
	}
	week, err := o.Store.WeekByID(ctx, weekID)
	if err != nil {
		return Outcome{}, err
	}

	if actor.Role.Unrestricted() {
		report, err := o.apply(ctx, ct, payload, week.WeekNumber)
		if err != nil {
			return Outcome{}, err
		}
		// Direct applications are not proposals; nothing to notify.
		return Outcome{Status: StatusApplied, Report: &report}, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, err
	}
	p := PendingChange{
		WeekID:     weekID,
		ChangeType: ct,
		ChangeData: raw,
		UserID:     actor.ID,
		CreatedAt:  o.now(),
	}
	if err := o.Ledger.CreatePending(ctx, &p); err != nil {
		return Outcome{}, err
	}
	o.emit(notify.EventRequestCreated, actor, p.ID, week.WeekNumber, ct, payload, "")
	return Outcome{Status: StatusPending, Pending: &p}, nil
}

// Approve applies a pending proposal and deletes it. If the applier reports
// zero effective changes the approval aborts with the pending row intact —
// approving "nothing" must not consume the request. A proposal that is
// already gone means another admin decided first; that is reported as
// AlreadyProcessed, not as a failure.
func (o *Orchestrator) Approve(ctx context.Context, actor Actor, changeID uint64) (Outcome, error) {
	if !actor.Role.Unrestricted() {
		return Outcome{}, ErrRoleForbidden
	}
	p, err := o.Ledger.GetPending(ctx, changeID)
	if errors.Is(err, ErrNotFound) {
		return Outcome{Status: StatusAlreadyProcessed}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	var payload ChangePayload
	if err := json.Unmarshal(p.ChangeData, &payload); err != nil {
		return Outcome{}, fmt.Errorf("decode pending change %d: %w", p.ID, err)
	}
	week, err := o.Store.WeekByID(ctx, p.WeekID)
	if err != nil {
		return Outcome{}, err
	}

	report, err := o.apply(ctx, p.ChangeType, payload, week.WeekNumber)
	if err != nil {
		// Nothing was applied (or the applier failed before touching
		// anything it could report); leave the proposal in place.
		return Outcome{}, err
	}

	if err := o.Ledger.DeletePending(ctx, p.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Another decision consumed the proposal while we were
			// applying; the winner already notified.
			return Outcome{Status: StatusAlreadyProcessed}, nil
		}
		return Outcome{}, err
	}
	o.emit(notify.EventApproved, actor, p.ID, week.WeekNumber, p.ChangeType, payload, "")
	return Outcome{Status: StatusApproved, Report: &report}, nil
}

// Reject moves a proposal to the rejection ledger with a mandatory reason.
func (o *Orchestrator) Reject(ctx context.Context, actor Actor, changeID uint64, reason string) (Outcome, error) {
	if !actor.Role.Unrestricted() {
		return Outcome{}, ErrRoleForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		v := &ValidationError{}
		v.add("reason", "required")
		return Outcome{}, v
	}
	p, err := o.Ledger.GetPending(ctx, changeID)
	if errors.Is(err, ErrNotFound) {
		return Outcome{Status: StatusAlreadyProcessed}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	rc, err := o.Ledger.MoveToRejected(ctx, p, actor.ID, reason, o.now())
	if errors.Is(err, ErrNotFound) {
		return Outcome{Status: StatusAlreadyProcessed}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	var payload ChangePayload
	_ = json.Unmarshal(p.ChangeData, &payload)
	weekNumber := 0
	if week, err := o.Store.WeekByID(ctx, p.WeekID); err == nil {
		weekNumber = week.WeekNumber
	}
	o.emit(notify.EventRejected, actor, p.ID, weekNumber, p.ChangeType, payload, reason)
	return Outcome{Status: StatusRejected, Rejected: &rc}, nil
}

// Cancel withdraws a proposal. Only the original submitter may cancel; there
// is no admin override here, admins approve or reject instead.
func (o *Orchestrator) Cancel(ctx context.Context, actor Actor, changeID uint64) (Outcome, error) {
	p, err := o.Ledger.GetPending(ctx, changeID)
	if errors.Is(err, ErrNotFound) {
		return Outcome{Status: StatusAlreadyProcessed}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	if p.UserID != actor.ID {
		return Outcome{}, ErrNotOwner
	}
	if err := o.Ledger.DeletePending(ctx, p.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Outcome{Status: StatusAlreadyProcessed}, nil
		}
		return Outcome{}, err
	}
	return Outcome{Status: StatusCancelled, Pending: &p}, nil
}

// ApproveAll runs the per-item state machine over every proposal of a week.
// One failing item never stops the rest; each entry reports its own outcome.
func (o *Orchestrator) ApproveAll(ctx context.Context, actor Actor, weekID uint64) ([]ItemOutcome, error) {
	if !actor.Role.Unrestricted() {
		return nil, ErrRoleForbidden
	}
	pending, err := o.Ledger.ListPendingForWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	out := make([]ItemOutcome, 0, len(pending))
	for _, p := range pending {
		res, err := o.Approve(ctx, actor, p.ID)
		item := ItemOutcome{ChangeID: p.ID}
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Outcome = &res
		}
		out = append(out, item)
	}
	return out, nil
}

// RejectAll rejects every proposal of a week with one shared reason.
func (o *Orchestrator) RejectAll(ctx context.Context, actor Actor, weekID uint64, reason string) ([]ItemOutcome, error) {
	if !actor.Role.Unrestricted() {
		return nil, ErrRoleForbidden
	}
	pending, err := o.Ledger.ListPendingForWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	out := make([]ItemOutcome, 0, len(pending))
	for _, p := range pending {
		res, err := o.Reject(ctx, actor, p.ID, reason)
		item := ItemOutcome{ChangeID: p.ID}
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Outcome = &res
		}
		out = append(out, item)
	}
	return out, nil
}

// ListPending returns a week's proposals, newest first.
func (o *Orchestrator) ListPending(ctx context.Context, weekID uint64) ([]PendingChange, error) {
	return o.Ledger.ListPendingForWeek(ctx, weekID)
}

// RejectedInbox is what a submitter sees when reviewing their rejections.
type RejectedInbox struct {
	Items       []RejectedChange `json:"items"`
	UnreadCount int64            `json:"unreadCount"`
}

func (o *Orchestrator) ListRejected(ctx context.Context, userID uint64) (RejectedInbox, error) {
	items, err := o.Ledger.ListRejectedForUser(ctx, userID)
	if err != nil {
		return RejectedInbox{}, err
	}
	n, err := o.Ledger.UnreadCount(ctx, userID)
	if err != nil {
		return RejectedInbox{}, err
	}
	if items == nil {
		items = []RejectedChange{}
	}
	return RejectedInbox{Items: items, UnreadCount: n}, nil
}

// MarkRead flips a rejection's read flag; only its submitter may.
func (o *Orchestrator) MarkRead(ctx context.Context, actor Actor, rejectedID uint64) error {
	rc, err := o.Ledger.GetRejected(ctx, rejectedID)
	if err != nil {
		return err
	}
	if rc.UserID != actor.ID {
		return ErrNotOwner
	}
	return o.Ledger.MarkRead(ctx, rejectedID)
}

func (o *Orchestrator) MarkAllRead(ctx context.Context, actor Actor) error {
	return o.Ledger.MarkAllRead(ctx, actor.ID)
}

// apply dispatches to the multi-week path whenever the payload names extra
// weeks, otherwise to the single-target path against concrete row ids.
func (o *Orchestrator) apply(ctx context.Context, ct schedule.ChangeType, payload ChangePayload, originWeek int) (schedule.Report, error) {
	if len(payload.ApplyToWeeks) > 0 {
		return o.Applier.ApplyAcrossWeeks(ctx, payload.Change(ct), originWeek, payload.ApplyToWeeks)
	}

	var (
		a   schedule.Activity
		err error
	)
	switch ct {
	case schedule.ChangeAdd:
		a, err = o.Applier.ApplyAdd(ctx, payload.DayID, payload.Time, payload.Description, schedule.Period(payload.Period))
	case schedule.ChangeEdit:
		a, err = o.Applier.ApplyEdit(ctx, payload.ActivityID, payload.Time, payload.Description)
	case schedule.ChangeDelete:
		a, err = o.Applier.ApplyDelete(ctx, payload.ActivityID)
	default:
		err = fmt.Errorf("unrecognized change type %q", ct)
	}
	if err != nil {
		return schedule.Report{}, err
	}
	return schedule.Report{
		Applied: []schedule.TargetResult{{WeekNumber: originWeek, Action: ct, Activity: a}},
	}, nil
}

// emit hands an event to the dispatcher. Delivery problems are logged and
// swallowed: by the time we notify, the mutation has already committed.
func (o *Orchestrator) emit(event string, actor Actor, requestID uint64, weekNumber int, ct schedule.ChangeType, payload ChangePayload, reason string) {
	e := notify.Event{
		Event:      event,
		ChangeType: string(ct),
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		RequestID:  requestID,
		WeekNumber: weekNumber,
		DayName:    payload.DayName,
		Summary:    payload.Time + " " + payload.Description,
		Reason:     reason,
		Timestamp:  o.now(),
	}
	d := o.Dispatcher
	if d == nil {
		d = notify.Discard
	}
	if err := d.Dispatch(e); err != nil {
		o.logger().Warn("notification dispatch failed",
			"event", event, "requestId", requestID, "error", err)
	}
}
