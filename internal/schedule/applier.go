package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// ChangeType names the three mutations a change request can carry.
type ChangeType string

const (
	ChangeAdd    ChangeType = "ADD"
	ChangeEdit   ChangeType = "EDIT"
	ChangeDelete ChangeType = "DELETE"
)

func ParseChangeType(s string) (ChangeType, error) {
	switch ChangeType(s) {
	case ChangeAdd, ChangeEdit, ChangeDelete:
		return ChangeType(s), nil
	}
	return "", fmt.Errorf("unrecognized change type %q", s)
}

// Change is the week-independent description of a mutation, used when the
// same change fans out across several weeks. Time and Description are the
// values to write; for EDIT the pre-change tuple (OldTime, OldDescription)
// locates the targets, for DELETE the current Time/Description does.
type Change struct {
	Type           ChangeType
	DayName        string
	Time           string
	Description    string
	Period         Period
	OldTime        string
	OldDescription string
}

// matchTuple returns the (time, description) pair that identifies this
// change's targets in other weeks.
func (c Change) matchTuple() (string, string) {
	if c.Type == ChangeEdit {
		return c.OldTime, c.OldDescription
	}
	return c.Time, c.Description
}

// TargetResult is one concrete per-week outcome of a multi-week apply.
type TargetResult struct {
	WeekNumber int        `json:"weekNumber"`
	Action     ChangeType `json:"action"`
	Activity   Activity   `json:"activity"`
}

// SkippedTarget records a week the apply could not reach, and why.
type SkippedTarget struct {
	WeekNumber int    `json:"weekNumber"`
	Reason     string `json:"reason"`
}

// Report is the aggregate outcome of a multi-week apply. A non-empty Skipped
// alongside a non-empty Applied is a partial success, which callers must
// inspect rather than assume all-or-nothing.
type Report struct {
	Applied []TargetResult  `json:"applied"`
	Skipped []SkippedTarget `json:"skipped,omitempty"`
}

func (r Report) Partial() bool { return len(r.Applied) > 0 && len(r.Skipped) > 0 }

// Applier executes schedule mutations. Single-target methods operate on
// concrete row ids; ApplyAcrossWeeks locates targets per week by value, since
// recurring activities share no stored link.
type Applier struct {
	Store Store
	Log   *slog.Logger
}

func (ap *Applier) logger() *slog.Logger {
	if ap.Log != nil {
		return ap.Log
	}
	return slog.Default()
}

// ApplyAdd appends a new activity to the (day, period) bucket. The new
// order index goes past the bucket's highest, so a freed index is never
// reused without an explicit Reorder and the bucket never holds duplicates.
func (ap *Applier) ApplyAdd(ctx context.Context, dayID uint64, timeStr, description string, period Period) (Activity, error) {
	if _, err := ap.Store.DayByID(ctx, dayID); err != nil {
		return Activity{}, err
	}
	bucket, err := ap.Store.BucketActivities(ctx, dayID, period)
	if err != nil {
		return Activity{}, err
	}
	next := 1
	for _, b := range bucket {
		if b.OrderIndex >= next {
			next = b.OrderIndex + 1
		}
	}
	a := Activity{
		DayID:       dayID,
		Time:        timeStr,
		Description: description,
		Period:      period,
		OrderIndex:  next,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := ap.Store.CreateActivity(ctx, &a); err != nil {
		return Activity{}, err
	}
	return a, nil
}

// ApplyEdit rewrites time and description only. Period, day, and order index
// never change through an edit; moving an activity to another period or day
// is modeled as delete plus add.
func (ap *Applier) ApplyEdit(ctx context.Context, activityID uint64, timeStr, description string) (Activity, error) {
	a, err := ap.Store.ActivityByID(ctx, activityID)
	if err != nil {
		return Activity{}, err
	}
	a.Time = timeStr
	a.Description = description
	a.UpdatedAt = time.Now()
	if err := ap.Store.UpdateActivity(ctx, &a); err != nil {
		return Activity{}, err
	}
	return a, nil
}

// ApplyDelete removes the row and returns the deleted record. The order
// index gap it leaves in the bucket is tolerated: read paths sort by
// (time, order_index, id), so gaps never reorder anything.
func (ap *Applier) ApplyDelete(ctx context.Context, activityID uint64) (Activity, error) {
	a, err := ap.Store.ActivityByID(ctx, activityID)
	if err != nil {
		return Activity{}, err
	}
	if err := ap.Store.DeleteActivity(ctx, a.ID); err != nil {
		return Activity{}, err
	}
	return a, nil
}

// Reorder moves an activity to newIndex within its (day, period) bucket,
// shifting everything strictly between the old and new position by one so
// indices stay dense. The whole renumber lands through one ReorderBucket
// call, so a half-shifted bucket is never observable. It is a tie-break for
// activities sharing a time value; the caller is responsible for only
// invoking it between same-time rows.
func (ap *Applier) Reorder(ctx context.Context, activityID uint64, newIndex int) error {
	a, err := ap.Store.ActivityByID(ctx, activityID)
	if err != nil {
		return err
	}
	bucket, err := ap.Store.BucketActivities(ctx, a.DayID, a.Period)
	if err != nil {
		return err
	}
	maxIdx := 0
	for _, b := range bucket {
		if b.OrderIndex > maxIdx {
			maxIdx = b.OrderIndex
		}
	}
	if newIndex < 1 || newIndex > maxIdx {
		return ErrBadIndex
	}
	old := a.OrderIndex
	if newIndex == old {
		return nil
	}
	updates := make([]OrderUpdate, 0, len(bucket))
	for _, b := range bucket {
		if b.ID == a.ID {
			continue
		}
		switch {
		case old < newIndex && b.OrderIndex > old && b.OrderIndex <= newIndex:
			updates = append(updates, OrderUpdate{ID: b.ID, OrderIndex: b.OrderIndex - 1})
		case old > newIndex && b.OrderIndex >= newIndex && b.OrderIndex < old:
			updates = append(updates, OrderUpdate{ID: b.ID, OrderIndex: b.OrderIndex + 1})
		}
	}
	updates = append(updates, OrderUpdate{ID: a.ID, OrderIndex: newIndex})
	return ap.Store.ReorderBucket(ctx, updates)
}

// ApplyAcrossWeeks applies one change to every week in targetWeeks plus the
// origin week, which is always included even when the caller left it out.
// Weeks that cannot be resolved, or that hold no activity matching the
// change's pre-change tuple, are skipped with a reason instead of failing
// the batch. The operation errors only when no week at all received the
// change.
func (ap *Applier) ApplyAcrossWeeks(ctx context.Context, ch Change, originWeek int, targetWeeks []int) (Report, error) {
	weeks := effectiveTargets(originWeek, targetWeeks)
	matchTime, matchDesc := ch.matchTuple()

	var report Report
	for _, wn := range weeks {
		day, err := ap.Store.DayInWeek(ctx, wn, ch.DayName)
		if errors.Is(err, ErrNotFound) {
			ap.logger().Warn("skipping week during multi-week apply",
				"week", wn, "day", ch.DayName, "reason", "week or day not found")
			report.Skipped = append(report.Skipped, SkippedTarget{WeekNumber: wn, Reason: "week or day not found"})
			continue
		}
		if err != nil {
			return report, err
		}

		switch ch.Type {
		case ChangeAdd:
			a, err := ap.ApplyAdd(ctx, day.ID, ch.Time, ch.Description, ch.Period)
			if err != nil {
				return report, err
			}
			report.Applied = append(report.Applied, TargetResult{WeekNumber: wn, Action: ChangeAdd, Activity: a})

		case ChangeEdit, ChangeDelete:
			// Match by value: there may be zero or several rows with the
			// pre-change tuple in this day, and all of them are "the same"
			// recurring activity once week boundaries are crossed.
			all, err := ap.Store.ActivitiesForDay(ctx, day.ID)
			if err != nil {
				return report, err
			}
			matched := false
			for _, cand := range all {
				if cand.Time != matchTime || cand.Description != matchDesc {
					continue
				}
				matched = true
				if ch.Type == ChangeEdit {
					upd, err := ap.ApplyEdit(ctx, cand.ID, ch.Time, ch.Description)
					if err != nil {
						return report, err
					}
					report.Applied = append(report.Applied, TargetResult{WeekNumber: wn, Action: ChangeEdit, Activity: upd})
				} else {
					del, err := ap.ApplyDelete(ctx, cand.ID)
					if err != nil {
						return report, err
					}
					report.Applied = append(report.Applied, TargetResult{WeekNumber: wn, Action: ChangeDelete, Activity: del})
				}
			}
			if !matched {
				report.Skipped = append(report.Skipped, SkippedTarget{WeekNumber: wn, Reason: "no matching activity"})
			}

		default:
			return report, fmt.Errorf("unrecognized change type %q", ch.Type)
		}
	}

	if len(report.Applied) == 0 {
		return report, ErrNoEffect
	}
	return report, nil
}

// effectiveTargets unions the origin week into the requested set, dedupes,
// and sorts.
func effectiveTargets(origin int, targets []int) []int {
	seen := map[int]struct{}{origin: {}}
	out := []int{origin}
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}
