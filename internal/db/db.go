package db

import (
	"errors"
	"fmt"

	"rota/internal/approval"
	"rota/internal/auth"
	"rota/internal/jobs"
	"rota/internal/schedule"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&schedule.Week{},
		&schedule.Day{},
		&schedule.Activity{},
		&approval.PendingChange{},
		&approval.RejectedChange{},
		&jobs.Job{},
		&auth.User{},
	); err != nil {
		return err
	}

	// One day per (week, name)
	if err := gdb.Exec(`create unique index if not exists uq_days_week_name on days(week_id, day_name);`).Error; err != nil {
		return err
	}

	// Bucket ordering invariant: no duplicate index within (day, period)
	if err := gdb.Exec(`create unique index if not exists uq_activities_bucket_order on activities(day_id, period, order_index);`).Error; err != nil {
		return err
	}

	// Matcher scan support: tuple lookups join days and filter by time+description
	if err := gdb.Exec(`create index if not exists idx_activities_tuple on activities(time, description);`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_activities_day on activities(day_id, period, order_index);`,
		`create index if not exists idx_pending_week_created on pending_changes(week_id, created_at desc);`,
		`create index if not exists idx_rejected_user_unread on rejected_changes(user_id, is_read);`,
		`create index if not exists idx_rejected_user_at on rejected_changes(user_id, rejected_at desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}

// Seed creates weeks 1..weeks with their seven days. It is idempotent:
// existing weeks and days are left alone, and weeks are never deleted here
// even if the configured count shrinks.
func Seed(gdb *gorm.DB, weeks int) error {
	for n := 1; n <= weeks; n++ {
		var w schedule.Week
		err := gdb.Where("week_number = ?", n).First(&w).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			w = schedule.Week{WeekNumber: n}
			if err := gdb.Create(&w).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		for _, name := range schedule.DayNames {
			var d schedule.Day
			err := gdb.Where("week_id = ? AND day_name = ?", w.ID, name).First(&d).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := gdb.Create(&schedule.Day{WeekID: w.ID, DayName: name}).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
		}
	}
	return nil
}

// SeedAdmin creates the configured admin account if no user holds that email
// yet. Registration always produces members; this is the only way an admin
// comes into existence.
func SeedAdmin(gdb *gorm.DB, email, password, name string) error {
	if email == "" || password == "" {
		return nil
	}
	var existing auth.User
	err := gdb.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u := auth.User{Email: email, Name: name, PasswordHash: hash, Role: auth.RoleAdmin}
	return gdb.Create(&u).Error
}
