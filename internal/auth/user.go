package auth

import "time"

// User roles. Admins apply changes directly; members propose them for
// approval.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null;default:''"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null;default:'member'"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}
