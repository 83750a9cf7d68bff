package schedule

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderUpdate assigns an activity a new order index inside its bucket.
type OrderUpdate struct {
	ID         uint64
	OrderIndex int
}

// Store is the persistence surface the matcher and applier work against. The
// production implementation is GormStore; tests supply in-memory fakes.
type Store interface {
	ListWeeks(ctx context.Context) ([]Week, error)
	WeekByID(ctx context.Context, id uint64) (Week, error)
	WeekByNumber(ctx context.Context, weekNumber int) (Week, error)

	DayByID(ctx context.Context, id uint64) (Day, error)
	// DayInWeek resolves a Day by (weekNumber, dayName).
	DayInWeek(ctx context.Context, weekNumber int, dayName string) (Day, error)

	ActivityByID(ctx context.Context, id uint64) (Activity, error)
	// ActivitiesForDay returns all activities of a day ordered by
	// (time, order_index, id).
	ActivitiesForDay(ctx context.Context, dayID uint64) ([]Activity, error)
	// BucketActivities returns one (day, period) bucket ordered by
	// (time, order_index, id).
	BucketActivities(ctx context.Context, dayID uint64, period Period) ([]Activity, error)

	CreateActivity(ctx context.Context, a *Activity) error
	UpdateActivity(ctx context.Context, a *Activity) error
	DeleteActivity(ctx context.Context, id uint64) error

	// ReorderBucket writes a set of order index assignments atomically.
	// Every listed id must exist; the assignments may swap indices between
	// rows without tripping the bucket's uniqueness constraint mid-write.
	ReorderBucket(ctx context.Context, updates []OrderUpdate) error

	// FindByTuple returns every activity in any week whose owning day is
	// named dayName and whose time and description match exactly.
	FindByTuple(ctx context.Context, dayName, timeStr, description string) ([]WeekMatch, error)
}

// GormStore backs Store with Postgres through GORM.
type GormStore struct {
	DB *gorm.DB
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) ListWeeks(ctx context.Context) ([]Week, error) {
	var weeks []Week
	err := s.DB.WithContext(ctx).Order("week_number asc").Find(&weeks).Error
	return weeks, err
}

func (s *GormStore) WeekByID(ctx context.Context, id uint64) (Week, error) {
	var w Week
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&w).Error
	return w, wrapNotFound(err)
}

func (s *GormStore) WeekByNumber(ctx context.Context, weekNumber int) (Week, error) {
	var w Week
	err := s.DB.WithContext(ctx).Where("week_number = ?", weekNumber).First(&w).Error
	return w, wrapNotFound(err)
}

func (s *GormStore) DayByID(ctx context.Context, id uint64) (Day, error) {
	var d Day
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&d).Error
	return d, wrapNotFound(err)
}

func (s *GormStore) DayInWeek(ctx context.Context, weekNumber int, dayName string) (Day, error) {
	var d Day
	err := s.DB.WithContext(ctx).
		Joins("join weeks on weeks.id = days.week_id").
		Where("weeks.week_number = ? AND days.day_name = ?", weekNumber, dayName).
		First(&d).Error
	return d, wrapNotFound(err)
}

func (s *GormStore) ActivityByID(ctx context.Context, id uint64) (Activity, error) {
	var a Activity
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error
	return a, wrapNotFound(err)
}

func (s *GormStore) ActivitiesForDay(ctx context.Context, dayID uint64) ([]Activity, error) {
	var out []Activity
	err := s.DB.WithContext(ctx).
		Where("day_id = ?", dayID).
		Order("time asc, order_index asc, id asc").
		Find(&out).Error
	return out, err
}

func (s *GormStore) BucketActivities(ctx context.Context, dayID uint64, period Period) ([]Activity, error) {
	var out []Activity
	err := s.DB.WithContext(ctx).
		Where("day_id = ? AND period = ?", dayID, period).
		Order("time asc, order_index asc, id asc").
		Find(&out).Error
	return out, err
}

func (s *GormStore) CreateActivity(ctx context.Context, a *Activity) error {
	return s.DB.WithContext(ctx).Create(a).Error
}

func (s *GormStore) UpdateActivity(ctx context.Context, a *Activity) error {
	return s.DB.WithContext(ctx).Save(a).Error
}

func (s *GormStore) DeleteActivity(ctx context.Context, id uint64) error {
	res := s.DB.WithContext(ctx).Delete(&Activity{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderBucket renumbers inside one transaction. The bucket carries a
// unique (day_id, period, order_index) index, so each row is first parked
// on the negation of its target index; negatives never collide with the
// live indices, and the targets are distinct among themselves. Only then
// does a second pass write the real values.
func (s *GormStore) ReorderBucket(ctx context.Context, updates []OrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.ID)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []Activity
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).Find(&locked).Error; err != nil {
			return err
		}
		if len(locked) != len(updates) {
			return ErrNotFound
		}
		for _, u := range updates {
			if err := tx.Model(&Activity{}).Where("id = ?", u.ID).
				Update("order_index", -u.OrderIndex).Error; err != nil {
				return err
			}
		}
		now := time.Now()
		for _, u := range updates {
			if err := tx.Model(&Activity{}).Where("id = ?", u.ID).
				Updates(map[string]any{"order_index": u.OrderIndex, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) FindByTuple(ctx context.Context, dayName, timeStr, description string) ([]WeekMatch, error) {
	type row struct {
		Activity
		WeekNumber int
	}
	var rows []row
	err := s.DB.WithContext(ctx).Model(&Activity{}).
		Select("activities.*, weeks.week_number").
		Joins("join days on days.id = activities.day_id").
		Joins("join weeks on weeks.id = days.week_id").
		Where("days.day_name = ? AND activities.time = ? AND activities.description = ?", dayName, timeStr, description).
		Order("weeks.week_number asc, activities.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]WeekMatch, 0, len(rows))
	for _, r := range rows {
		out = append(out, WeekMatch{WeekNumber: r.WeekNumber, Activity: r.Activity})
	}
	return out, nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
