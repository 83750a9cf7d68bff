package schedule

import (
	"context"
	"reflect"
	"testing"
)

func TestFindMatchingWeeks(t *testing.T) {
	store, ap := seeded(t, 8)
	ctx := context.Background()
	m := &Matcher{Store: store}

	for _, wn := range []int{1, 3} {
		day := mustDay(t, store, wn, "Sunday")
		mustAdd(t, ap, day.ID, "06:00", "Prayer Watch Post", PeriodMorning)
	}

	weeks, err := m.FindMatchingWeeks(ctx, "06:00", "Prayer Watch Post", "Sunday")
	if err != nil {
		t.Fatalf("FindMatchingWeeks: %v", err)
	}
	if !reflect.DeepEqual(weeks, []int{1, 3}) {
		t.Fatalf("weeks = %v, want [1 3]", weeks)
	}
}

func TestFindMatchingWeeksEmptyResultIsNotAnError(t *testing.T) {
	store, _ := seeded(t, 3)
	m := &Matcher{Store: store}

	weeks, err := m.FindMatchingWeeks(context.Background(), "23:00", "night shift", "Friday")
	if err != nil {
		t.Fatalf("FindMatchingWeeks: %v", err)
	}
	if len(weeks) != 0 {
		t.Fatalf("weeks = %v, want empty", weeks)
	}
}

func TestFindMatchingWeeksIsExactAndCaseSensitive(t *testing.T) {
	store, ap := seeded(t, 2)
	ctx := context.Background()
	m := &Matcher{Store: store}

	day := mustDay(t, store, 1, "Sunday")
	mustAdd(t, ap, day.ID, "06:00", "Prayer Watch Post", PeriodMorning)

	for _, tc := range []struct {
		name, time, desc, day string
	}{
		{"lowercase description", "06:00", "prayer watch post", "Sunday"},
		{"different time", "06:30", "Prayer Watch Post", "Sunday"},
		{"different day", "06:00", "Prayer Watch Post", "Monday"},
		{"trailing space", "06:00", "Prayer Watch Post ", "Sunday"},
	} {
		weeks, err := m.FindMatchingWeeks(ctx, tc.time, tc.desc, tc.day)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(weeks) != 0 {
			t.Errorf("%s: matched %v, want no match", tc.name, weeks)
		}
	}
}

func TestFindMatchingWeeksAddRemoveRoundTrip(t *testing.T) {
	store, ap := seeded(t, 4)
	ctx := context.Background()
	m := &Matcher{Store: store}

	for _, wn := range []int{1, 3} {
		day := mustDay(t, store, wn, "Sunday")
		mustAdd(t, ap, day.ID, "06:00", "Prayer Watch Post", PeriodMorning)
	}

	day2 := mustDay(t, store, 2, "Sunday")
	created := mustAdd(t, ap, day2.ID, "06:00", "Prayer Watch Post", PeriodMorning)

	weeks, _ := m.FindMatchingWeeks(ctx, "06:00", "Prayer Watch Post", "Sunday")
	if !reflect.DeepEqual(weeks, []int{1, 2, 3}) {
		t.Fatalf("after add: weeks = %v, want [1 2 3]", weeks)
	}

	if _, err := ap.ApplyDelete(ctx, created.ID); err != nil {
		t.Fatalf("ApplyDelete: %v", err)
	}
	weeks, _ = m.FindMatchingWeeks(ctx, "06:00", "Prayer Watch Post", "Sunday")
	if !reflect.DeepEqual(weeks, []int{1, 3}) {
		t.Fatalf("after delete: weeks = %v, want [1 3]", weeks)
	}
}

func TestSingleTargetDeleteShrinksMatchSet(t *testing.T) {
	store, ap := seeded(t, 5)
	ctx := context.Background()
	m := &Matcher{Store: store}

	var week5 Activity
	for _, wn := range []int{2, 4, 5} {
		day := mustDay(t, store, wn, "Wednesday")
		a := mustAdd(t, ap, day.ID, "19:30", "Bible Study", PeriodEvening)
		if wn == 5 {
			week5 = a
		}
	}

	if _, err := ap.ApplyDelete(ctx, week5.ID); err != nil {
		t.Fatalf("ApplyDelete: %v", err)
	}
	weeks, _ := m.FindMatchingWeeks(ctx, "19:30", "Bible Study", "Wednesday")
	if !reflect.DeepEqual(weeks, []int{2, 4}) {
		t.Fatalf("weeks = %v, want [2 4]", weeks)
	}
}
