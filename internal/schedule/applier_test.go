package schedule

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// constraintStore reproduces the statement-level checking of the database's
// unique (day_id, period, order_index) index: every single order index write
// must leave the bucket duplicate-free, not just the batch as a whole.
type constraintStore struct {
	*MemoryStore
}

func (s *constraintStore) checkBucket(ctx context.Context, dayID uint64, period Period) error {
	bucket, err := s.MemoryStore.BucketActivities(ctx, dayID, period)
	if err != nil {
		return err
	}
	seen := map[int]uint64{}
	for _, b := range bucket {
		if prev, ok := seen[b.OrderIndex]; ok {
			return fmt.Errorf("duplicate key value violates bucket index (index %d shared by %d and %d)", b.OrderIndex, prev, b.ID)
		}
		seen[b.OrderIndex] = b.ID
	}
	return nil
}

func (s *constraintStore) UpdateActivity(ctx context.Context, a *Activity) error {
	if err := s.MemoryStore.UpdateActivity(ctx, a); err != nil {
		return err
	}
	return s.checkBucket(ctx, a.DayID, a.Period)
}

// ReorderBucket replays the write sequence GormStore issues, park on the
// negated targets then assign the real values, verifying the constraint
// after each individual statement.
func (s *constraintStore) ReorderBucket(ctx context.Context, updates []OrderUpdate) error {
	write := func(id uint64, idx int) error {
		a, err := s.MemoryStore.ActivityByID(ctx, id)
		if err != nil {
			return err
		}
		a.OrderIndex = idx
		if err := s.MemoryStore.UpdateActivity(ctx, &a); err != nil {
			return err
		}
		return s.checkBucket(ctx, a.DayID, a.Period)
	}
	for _, u := range updates {
		if err := write(u.ID, -u.OrderIndex); err != nil {
			return err
		}
	}
	for _, u := range updates {
		if err := write(u.ID, u.OrderIndex); err != nil {
			return err
		}
	}
	return nil
}

func seeded(t *testing.T, weeks int) (*MemoryStore, *Applier) {
	t.Helper()
	store := NewMemoryStore()
	store.SeedWeeks(weeks)
	return store, &Applier{Store: store}
}

func mustDay(t *testing.T, store *MemoryStore, weekNumber int, dayName string) Day {
	t.Helper()
	d, err := store.DayInWeek(context.Background(), weekNumber, dayName)
	if err != nil {
		t.Fatalf("day %s of week %d: %v", dayName, weekNumber, err)
	}
	return d
}

func mustAdd(t *testing.T, ap *Applier, dayID uint64, timeStr, desc string, period Period) Activity {
	t.Helper()
	a, err := ap.ApplyAdd(context.Background(), dayID, timeStr, desc, period)
	if err != nil {
		t.Fatalf("ApplyAdd(%q, %q): %v", timeStr, desc, err)
	}
	return a
}

func assertUniqueIndexes(t *testing.T, store *MemoryStore, dayID uint64, period Period) {
	t.Helper()
	bucket, err := store.BucketActivities(context.Background(), dayID, period)
	if err != nil {
		t.Fatalf("BucketActivities: %v", err)
	}
	seen := map[int]uint64{}
	for _, a := range bucket {
		if prev, ok := seen[a.OrderIndex]; ok {
			t.Fatalf("duplicate order index %d shared by activities %d and %d", a.OrderIndex, prev, a.ID)
		}
		seen[a.OrderIndex] = a.ID
	}
}

func TestApplyAddAssignsSequentialIndexes(t *testing.T) {
	store, ap := seeded(t, 1)
	day := mustDay(t, store, 1, "Monday")

	for i, desc := range []string{"first", "second", "third"} {
		a := mustAdd(t, ap, day.ID, "09:00", desc, PeriodMorning)
		if a.OrderIndex != i+1 {
			t.Fatalf("activity %q got index %d, want %d", desc, a.OrderIndex, i+1)
		}
	}
}

func TestApplyAddNeverReusesFreedIndex(t *testing.T) {
	store, ap := seeded(t, 1)
	day := mustDay(t, store, 1, "Monday")

	mustAdd(t, ap, day.ID, "09:00", "first", PeriodMorning)
	second := mustAdd(t, ap, day.ID, "09:00", "second", PeriodMorning)
	mustAdd(t, ap, day.ID, "09:00", "third", PeriodMorning)

	if _, err := ap.ApplyDelete(context.Background(), second.ID); err != nil {
		t.Fatalf("ApplyDelete: %v", err)
	}

	fourth := mustAdd(t, ap, day.ID, "09:00", "fourth", PeriodMorning)
	if fourth.OrderIndex != 4 {
		t.Fatalf("index after delete+add = %d, want 4 (freed index must not come back)", fourth.OrderIndex)
	}
	assertUniqueIndexes(t, store, day.ID, PeriodMorning)
}

func TestApplyEditTouchesOnlyTimeAndDescription(t *testing.T) {
	store, ap := seeded(t, 1)
	day := mustDay(t, store, 1, "Tuesday")
	a := mustAdd(t, ap, day.ID, "14:00", "choir practice", PeriodAfternoon)

	got, err := ap.ApplyEdit(context.Background(), a.ID, "15:30", "band practice")
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if got.Time != "15:30" || got.Description != "band practice" {
		t.Fatalf("edit result = (%q, %q)", got.Time, got.Description)
	}
	if got.Period != PeriodAfternoon || got.DayID != day.ID || got.OrderIndex != a.OrderIndex {
		t.Fatalf("edit moved the activity: period=%s day=%d index=%d", got.Period, got.DayID, got.OrderIndex)
	}
}

func TestApplyEditMissingActivity(t *testing.T) {
	_, ap := seeded(t, 1)
	if _, err := ap.ApplyEdit(context.Background(), 9999, "10:00", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestApplyDeleteLeavesGapWithoutMisordering(t *testing.T) {
	store, ap := seeded(t, 1)
	day := mustDay(t, store, 1, "Wednesday")

	first := mustAdd(t, ap, day.ID, "19:00", "first", PeriodEvening)
	second := mustAdd(t, ap, day.ID, "19:00", "second", PeriodEvening)
	third := mustAdd(t, ap, day.ID, "19:00", "third", PeriodEvening)

	deleted, err := ap.ApplyDelete(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("ApplyDelete: %v", err)
	}
	if deleted.ID != second.ID {
		t.Fatalf("deleted record id = %d, want %d", deleted.ID, second.ID)
	}

	bucket, _ := store.BucketActivities(context.Background(), day.ID, PeriodEvening)
	if len(bucket) != 2 {
		t.Fatalf("bucket size = %d, want 2", len(bucket))
	}
	// Indices 1 and 3 remain; the gap is tolerated and ordering holds.
	if bucket[0].ID != first.ID || bucket[1].ID != third.ID {
		t.Fatalf("bucket order = [%d %d], want [%d %d]", bucket[0].ID, bucket[1].ID, first.ID, third.ID)
	}
	assertUniqueIndexes(t, store, day.ID, PeriodEvening)
}

func TestReorderShiftsBetweenOldAndNew(t *testing.T) {
	store, ap := seeded(t, 1)
	day := mustDay(t, store, 1, "Thursday")

	var ids []uint64
	for _, desc := range []string{"a", "b", "c", "d"} {
		ids = append(ids, mustAdd(t, ap, day.ID, "06:00", desc, PeriodMorning).ID)
	}

	// Move the last activity to position 2.
	if err := ap.Reorder(context.Background(), ids[3], 2); err != nil {
		t.Fatalf("Reorder: %v", err)
	}

	want := map[uint64]int{ids[0]: 1, ids[1]: 3, ids[2]: 4, ids[3]: 2}
	for id, idx := range want {
		a, _ := store.ActivityByID(context.Background(), id)
		if a.OrderIndex != idx {
			t.Errorf("activity %d index = %d, want %d", id, a.OrderIndex, idx)
		}
	}
	assertUniqueIndexes(t, store, day.ID, PeriodMorning)

	// And back down: move the first activity to position 3.
	if err := ap.Reorder(context.Background(), ids[0], 3); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	assertUniqueIndexes(t, store, day.ID, PeriodMorning)
}

func TestReorderSurvivesBucketUniquenessChecks(t *testing.T) {
	mem := NewMemoryStore()
	mem.SeedWeeks(1)
	ap := &Applier{Store: &constraintStore{MemoryStore: mem}}
	day := mustDay(t, mem, 1, "Thursday")
	ctx := context.Background()

	var ids []uint64
	for _, desc := range []string{"a", "b", "c"} {
		ids = append(ids, mustAdd(t, ap, day.ID, "06:00", desc, PeriodMorning).ID)
	}

	// Moving the last row to the front renumbers every row in the dense
	// bucket; no individual write may collide with an index a neighbor
	// still holds.
	if err := ap.Reorder(ctx, ids[2], 1); err != nil {
		t.Fatalf("Reorder to front: %v", err)
	}
	want := map[uint64]int{ids[0]: 2, ids[1]: 3, ids[2]: 1}
	for id, idx := range want {
		a, _ := mem.ActivityByID(ctx, id)
		if a.OrderIndex != idx {
			t.Errorf("activity %d index = %d, want %d", id, a.OrderIndex, idx)
		}
	}
	assertUniqueIndexes(t, mem, day.ID, PeriodMorning)

	if err := ap.Reorder(ctx, ids[2], 3); err != nil {
		t.Fatalf("Reorder to back: %v", err)
	}
	assertUniqueIndexes(t, mem, day.ID, PeriodMorning)
}

func TestReorderRejectsOutOfRangeIndex(t *testing.T) {
	store, ap := seeded(t, 1)
	day := mustDay(t, store, 1, "Friday")
	a := mustAdd(t, ap, day.ID, "08:00", "only", PeriodMorning)

	if err := ap.Reorder(context.Background(), a.ID, 0); !errors.Is(err, ErrBadIndex) {
		t.Fatalf("newIndex=0: err = %v, want ErrBadIndex", err)
	}
	if err := ap.Reorder(context.Background(), a.ID, 2); !errors.Is(err, ErrBadIndex) {
		t.Fatalf("newIndex=2: err = %v, want ErrBadIndex", err)
	}
}

func TestIndexesStayUniqueAcrossMixedOperations(t *testing.T) {
	store, ap := seeded(t, 1)
	day := mustDay(t, store, 1, "Saturday")
	ctx := context.Background()

	a1 := mustAdd(t, ap, day.ID, "18:00", "one", PeriodEvening)
	a2 := mustAdd(t, ap, day.ID, "18:00", "two", PeriodEvening)
	a3 := mustAdd(t, ap, day.ID, "18:00", "three", PeriodEvening)
	assertUniqueIndexes(t, store, day.ID, PeriodEvening)

	if err := ap.Reorder(ctx, a3.ID, 1); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	assertUniqueIndexes(t, store, day.ID, PeriodEvening)

	if _, err := ap.ApplyDelete(ctx, a1.ID); err != nil {
		t.Fatalf("ApplyDelete: %v", err)
	}
	assertUniqueIndexes(t, store, day.ID, PeriodEvening)

	mustAdd(t, ap, day.ID, "18:00", "four", PeriodEvening)
	assertUniqueIndexes(t, store, day.ID, PeriodEvening)

	if err := ap.Reorder(ctx, a2.ID, 1); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	assertUniqueIndexes(t, store, day.ID, PeriodEvening)
}

func TestApplyAcrossWeeksAddAlwaysIncludesOrigin(t *testing.T) {
	store, ap := seeded(t, 4)
	ctx := context.Background()

	ch := Change{
		Type:        ChangeAdd,
		DayName:     "Sunday",
		Time:        "06:00",
		Description: "Prayer Watch Post",
		Period:      PeriodMorning,
	}
	// Origin week 1 deliberately left out of the explicit target list.
	report, err := ap.ApplyAcrossWeeks(ctx, ch, 1, []int{3})
	if err != nil {
		t.Fatalf("ApplyAcrossWeeks: %v", err)
	}
	if len(report.Applied) != 2 {
		t.Fatalf("applied = %d entries, want 2", len(report.Applied))
	}
	gotWeeks := []int{report.Applied[0].WeekNumber, report.Applied[1].WeekNumber}
	if gotWeeks[0] != 1 || gotWeeks[1] != 3 {
		t.Fatalf("applied weeks = %v, want [1 3]", gotWeeks)
	}

	for _, wn := range []int{1, 3} {
		day := mustDay(t, store, wn, "Sunday")
		acts, _ := store.ActivitiesForDay(ctx, day.ID)
		if len(acts) != 1 {
			t.Fatalf("week %d Sunday has %d activities, want 1", wn, len(acts))
		}
	}
	day2 := mustDay(t, store, 2, "Sunday")
	acts2, _ := store.ActivitiesForDay(ctx, day2.ID)
	if len(acts2) != 0 {
		t.Fatalf("week 2 received the change but was not a target")
	}
}

func TestApplyAcrossWeeksEditMatchesByOldTuple(t *testing.T) {
	store, ap := seeded(t, 4)
	ctx := context.Background()

	for _, wn := range []int{1, 3} {
		day := mustDay(t, store, wn, "Sunday")
		mustAdd(t, ap, day.ID, "06:00", "Prayer Watch Post", PeriodMorning)
	}

	ch := Change{
		Type:           ChangeEdit,
		DayName:        "Sunday",
		Time:           "06:30",
		Description:    "Prayer Watch Post",
		OldTime:        "06:00",
		OldDescription: "Prayer Watch Post",
	}
	report, err := ap.ApplyAcrossWeeks(ctx, ch, 1, []int{3})
	if err != nil {
		t.Fatalf("ApplyAcrossWeeks: %v", err)
	}
	if len(report.Applied) != 2 {
		t.Fatalf("applied = %d entries, want 2 (origin auto-included)", len(report.Applied))
	}
	for _, res := range report.Applied {
		if res.Activity.Time != "06:30" {
			t.Errorf("week %d activity time = %q, want 06:30", res.WeekNumber, res.Activity.Time)
		}
	}
}

func TestApplyAcrossWeeksDeleteRemovesAllTupleMatches(t *testing.T) {
	store, ap := seeded(t, 2)
	ctx := context.Background()

	day := mustDay(t, store, 1, "Monday")
	mustAdd(t, ap, day.ID, "12:00", "lunch duty", PeriodAfternoon)
	mustAdd(t, ap, day.ID, "12:00", "lunch duty", PeriodAfternoon)

	ch := Change{
		Type:        ChangeDelete,
		DayName:     "Monday",
		Time:        "12:00",
		Description: "lunch duty",
	}
	report, err := ap.ApplyAcrossWeeks(ctx, ch, 1, nil)
	if err != nil {
		t.Fatalf("ApplyAcrossWeeks: %v", err)
	}
	// Identity is by value; both rows with the tuple go.
	if len(report.Applied) != 2 {
		t.Fatalf("applied = %d entries, want 2", len(report.Applied))
	}
	acts, _ := store.ActivitiesForDay(ctx, day.ID)
	if len(acts) != 0 {
		t.Fatalf("day still has %d activities", len(acts))
	}
}

func TestApplyAcrossWeeksSkipsUnknownWeek(t *testing.T) {
	_, ap := seeded(t, 2)
	ctx := context.Background()

	ch := Change{
		Type:        ChangeAdd,
		DayName:     "Sunday",
		Time:        "06:00",
		Description: "Prayer Watch Post",
		Period:      PeriodMorning,
	}
	report, err := ap.ApplyAcrossWeeks(ctx, ch, 1, []int{99})
	if err != nil {
		t.Fatalf("ApplyAcrossWeeks: %v", err)
	}
	if len(report.Applied) != 1 || report.Applied[0].WeekNumber != 1 {
		t.Fatalf("applied = %+v, want origin week only", report.Applied)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].WeekNumber != 99 {
		t.Fatalf("skipped = %+v, want week 99", report.Skipped)
	}
	if !report.Partial() {
		t.Fatal("report should be partial")
	}
}

func TestApplyAcrossWeeksZeroEffectIsAnError(t *testing.T) {
	_, ap := seeded(t, 2)
	ctx := context.Background()

	ch := Change{
		Type:           ChangeEdit,
		DayName:        "Sunday",
		Time:           "07:00",
		Description:    "nothing here",
		OldTime:        "06:00",
		OldDescription: "nothing here",
	}
	report, err := ap.ApplyAcrossWeeks(ctx, ch, 1, []int{2})
	if !errors.Is(err, ErrNoEffect) {
		t.Fatalf("err = %v, want ErrNoEffect", err)
	}
	if len(report.Applied) != 0 {
		t.Fatalf("applied = %+v, want none", report.Applied)
	}
}
