package schedule

import "errors"

var (
	ErrNotFound = errors.New("schedule: not found")
	// ErrNoEffect is returned by the multi-target applier when no target week
	// received the change at all.
	ErrNoEffect = errors.New("schedule: change applied to zero weeks")
	// ErrBadIndex is returned by Reorder when the requested index falls
	// outside the bucket.
	ErrBadIndex = errors.New("schedule: order index out of range")
)
