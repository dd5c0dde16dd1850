package domain

import (
	"time"
)

type User struct {
	ID           int64      `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	IsVerified   bool       `json:"is_verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type UserRole string

const (
	UserRolePatient UserRole = "patient"
	UserRoleDoctor  UserRole = "doctor"
	UserRoleAdmin   UserRole = "admin"
)

// UserStatus is the moderation state of an account. Doctors start pending
// until an administrator approves them; patients start active.
type UserStatus string

const (
	UserStatusPending UserStatus = "pending"
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

func (s UserStatus) IsValid() bool {
	return s == UserStatusPending || s == UserStatusActive || s == UserStatusBlocked
}

type CreateUserDTO struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
}

type UpdateUserDTO struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

type PasswordUpdateDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type UserFilter struct {
	Role   *UserRole   `json:"role"`
	Status *UserStatus `json:"status"`
	Search string      `json:"search"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type UpdateUserStatusDTO struct {
	Status UserStatus `json:"status" binding:"required,oneof=pending active blocked"`
	Reason string     `json:"reason"`
}
