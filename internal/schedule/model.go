package schedule

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// Period is one of the three daily buckets an activity belongs to.
type Period string

const (
	PeriodMorning   Period = "MORNING"
	PeriodAfternoon Period = "AFTERNOON"
	PeriodEvening   Period = "EVENING"
)

var ErrInvalidPeriod = errors.New("invalid period")

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodMorning, PeriodAfternoon, PeriodEvening:
		return Period(s), nil
	}
	return "", ErrInvalidPeriod
}

// DayNames are the canonical weekday names, in display order. Every week owns
// exactly one Day per name.
var DayNames = []string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

func ValidDayName(name string) bool {
	for _, d := range DayNames {
		if d == name {
			return true
		}
	}
	return false
}

// ValidTime reports whether s is a 24h HH:MM string.
func ValidTime(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

type Week struct {
	ID         uint64    `gorm:"primaryKey"`
	WeekNumber int       `gorm:"uniqueIndex;not null"`
	CreatedAt  time.Time `gorm:"not null;default:now()"`
}

type Day struct {
	ID      uint64 `gorm:"primaryKey"`
	WeekID  uint64 `gorm:"index;not null"`
	DayName string `gorm:"not null"`
}

// Activity is one schedule entry. OrderIndex is a per-(day_id, period)
// sequence starting at 1; gaps after deletes are tolerated, duplicates are
// not. Labels are annotations only and never participate in identity.
type Activity struct {
	ID          uint64         `gorm:"primaryKey"`
	DayID       uint64         `gorm:"index;not null"`
	Time        string         `gorm:"type:text;not null"`
	Description string         `gorm:"type:text;not null"`
	Period      Period         `gorm:"type:text;not null"`
	OrderIndex  int            `gorm:"not null;default:1"`
	Labels      pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
	CreatedAt   time.Time      `gorm:"not null;default:now()"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()"`
}

// WeekMatch pairs a found activity with the week it lives in. Identity across
// weeks is the (dayName, time, description) tuple; there is no stored link.
type WeekMatch struct {
	WeekNumber int
	Activity   Activity
}
