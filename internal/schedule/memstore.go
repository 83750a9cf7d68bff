package schedule

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store entirely in memory. It backs the test suites
// and ad-hoc tooling where Postgres is unavailable; ordering semantics match
// GormStore exactly.
type MemoryStore struct {
	mu     sync.Mutex
	weeks  map[uint64]Week
	days   map[uint64]Day
	acts   map[uint64]Activity
	nextID uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		weeks: make(map[uint64]Week),
		days:  make(map[uint64]Day),
		acts:  make(map[uint64]Activity),
	}
}

// SeedWeeks creates weeks 1..n, each with the seven canonical days.
func (m *MemoryStore) SeedWeeks(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 1; i <= n; i++ {
		m.nextID++
		w := Week{ID: m.nextID, WeekNumber: i}
		m.weeks[w.ID] = w
		for _, name := range DayNames {
			m.nextID++
			d := Day{ID: m.nextID, WeekID: w.ID, DayName: name}
			m.days[d.ID] = d
		}
	}
}

func (m *MemoryStore) ListWeeks(ctx context.Context) ([]Week, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Week, 0, len(m.weeks))
	for _, w := range m.weeks {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekNumber < out[j].WeekNumber })
	return out, nil
}

func (m *MemoryStore) WeekByID(ctx context.Context, id uint64) (Week, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.weeks[id]
	if !ok {
		return Week{}, ErrNotFound
	}
	return w, nil
}

func (m *MemoryStore) WeekByNumber(ctx context.Context, weekNumber int) (Week, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.weeks {
		if w.WeekNumber == weekNumber {
			return w, nil
		}
	}
	return Week{}, ErrNotFound
}

func (m *MemoryStore) DayByID(ctx context.Context, id uint64) (Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.days[id]
	if !ok {
		return Day{}, ErrNotFound
	}
	return d, nil
}

func (m *MemoryStore) DayInWeek(ctx context.Context, weekNumber int, dayName string) (Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.weeks {
		if w.WeekNumber != weekNumber {
			continue
		}
		for _, d := range m.days {
			if d.WeekID == w.ID && d.DayName == dayName {
				return d, nil
			}
		}
	}
	return Day{}, ErrNotFound
}

func (m *MemoryStore) ActivityByID(ctx context.Context, id uint64) (Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.acts[id]
	if !ok {
		return Activity{}, ErrNotFound
	}
	return a, nil
}

func sortActivities(out []Activity) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
}

func (m *MemoryStore) ActivitiesForDay(ctx context.Context, dayID uint64) ([]Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Activity
	for _, a := range m.acts {
		if a.DayID == dayID {
			out = append(out, a)
		}
	}
	sortActivities(out)
	return out, nil
}

func (m *MemoryStore) BucketActivities(ctx context.Context, dayID uint64, period Period) ([]Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Activity
	for _, a := range m.acts {
		if a.DayID == dayID && a.Period == period {
			out = append(out, a)
		}
	}
	sortActivities(out)
	return out, nil
}

func (m *MemoryStore) CreateActivity(ctx context.Context, a *Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.days[a.DayID]; !ok {
		return ErrNotFound
	}
	m.nextID++
	a.ID = m.nextID
	m.acts[a.ID] = *a
	return nil
}

func (m *MemoryStore) UpdateActivity(ctx context.Context, a *Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.acts[a.ID]; !ok {
		return ErrNotFound
	}
	m.acts[a.ID] = *a
	return nil
}

func (m *MemoryStore) ReorderBucket(ctx context.Context, updates []OrderUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		if _, ok := m.acts[u.ID]; !ok {
			return ErrNotFound
		}
	}
	for _, u := range updates {
		a := m.acts[u.ID]
		a.OrderIndex = u.OrderIndex
		m.acts[u.ID] = a
	}
	return nil
}

func (m *MemoryStore) DeleteActivity(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.acts[id]; !ok {
		return ErrNotFound
	}
	delete(m.acts, id)
	return nil
}

func (m *MemoryStore) FindByTuple(ctx context.Context, dayName, timeStr, description string) ([]WeekMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []WeekMatch
	for _, a := range m.acts {
		if a.Time != timeStr || a.Description != description {
			continue
		}
		d, ok := m.days[a.DayID]
		if !ok || d.DayName != dayName {
			continue
		}
		w, ok := m.weeks[d.WeekID]
		if !ok {
			continue
		}
		out = append(out, WeekMatch{WeekNumber: w.WeekNumber, Activity: a})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeekNumber != out[j].WeekNumber {
			return out[i].WeekNumber < out[j].WeekNumber
		}
		return out[i].Activity.ID < out[j].Activity.ID
	})
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
