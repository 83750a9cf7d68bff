package approval

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Ledger is the persistence surface for pending and rejected changes. The
// production implementation is GormLedger; tests supply in-memory fakes.
type Ledger interface {
	CreatePending(ctx context.Context, p *PendingChange) error
	GetPending(ctx context.Context, id uint64) (PendingChange, error)
	// DeletePending removes the row, returning ErrNotFound when it is
	// already gone — that is how a lost race with a concurrent decision
	// surfaces.
	DeletePending(ctx context.Context, id uint64) error
	// ListPendingForWeek returns proposals for a week, newest first.
	ListPendingForWeek(ctx context.Context, weekID uint64) ([]PendingChange, error)

	// MoveToRejected atomically writes the rejection record (with a full
	// snapshot of the proposal payload) and deletes the pending row.
	MoveToRejected(ctx context.Context, p PendingChange, rejectedBy uint64, reason string, at time.Time) (RejectedChange, error)
	GetRejected(ctx context.Context, id uint64) (RejectedChange, error)
	// ListRejectedForUser returns a submitter's rejections, newest first.
	ListRejectedForUser(ctx context.Context, userID uint64) ([]RejectedChange, error)
	UnreadCount(ctx context.Context, userID uint64) (int64, error)
	MarkRead(ctx context.Context, id uint64) error
	MarkAllRead(ctx context.Context, userID uint64) error
}

// GormLedger backs Ledger with Postgres through GORM.
type GormLedger struct {
	DB *gorm.DB
}

var _ Ledger = (*GormLedger)(nil)

func (l *GormLedger) CreatePending(ctx context.Context, p *PendingChange) error {
	return l.DB.WithContext(ctx).Create(p).Error
}

func (l *GormLedger) GetPending(ctx context.Context, id uint64) (PendingChange, error) {
	var p PendingChange
	err := l.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PendingChange{}, ErrNotFound
	}
	return p, err
}

func (l *GormLedger) DeletePending(ctx context.Context, id uint64) error {
	res := l.DB.WithContext(ctx).Delete(&PendingChange{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *GormLedger) ListPendingForWeek(ctx context.Context, weekID uint64) ([]PendingChange, error) {
	var out []PendingChange
	err := l.DB.WithContext(ctx).
		Where("week_id = ?", weekID).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}

func (l *GormLedger) MoveToRejected(ctx context.Context, p PendingChange, rejectedBy uint64, reason string, at time.Time) (RejectedChange, error) {
	rc := RejectedChange{
		WeekID:          p.WeekID,
		ChangeType:      p.ChangeType,
		ChangeData:      p.ChangeData,
		UserID:          p.UserID,
		SubmittedAt:     p.CreatedAt,
		RejectedBy:      rejectedBy,
		RejectedAt:      at,
		RejectionReason: reason,
		IsRead:          false,
	}
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&PendingChange{}, p.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(&rc).Error
	})
	if err != nil {
		return RejectedChange{}, err
	}
	return rc, nil
}

func (l *GormLedger) GetRejected(ctx context.Context, id uint64) (RejectedChange, error) {
	var rc RejectedChange
	err := l.DB.WithContext(ctx).Where("id = ?", id).First(&rc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RejectedChange{}, ErrNotFound
	}
	return rc, err
}

func (l *GormLedger) ListRejectedForUser(ctx context.Context, userID uint64) ([]RejectedChange, error) {
	var out []RejectedChange
	err := l.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("rejected_at desc, id desc").
		Find(&out).Error
	return out, err
}

func (l *GormLedger) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := l.DB.WithContext(ctx).Model(&RejectedChange{}).
		Where("user_id = ? AND is_read = false", userID).
		Count(&n).Error
	return n, err
}

func (l *GormLedger) MarkRead(ctx context.Context, id uint64) error {
	res := l.DB.WithContext(ctx).Model(&RejectedChange{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *GormLedger) MarkAllRead(ctx context.Context, userID uint64) error {
	return l.DB.WithContext(ctx).Model(&RejectedChange{}).
		Where("user_id = ? AND is_read = false", userID).
		Update("is_read", true).Error
}
