package domain

import (
	"time"
)

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Session struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	IP           string    `json:"ip"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterRequest struct {
	FirstName string   `json:"first_name" binding:"required"`
	LastName  string   `json:"last_name" binding:"required"`
	Email     string   `json:"email" binding:"required,email"`
	Phone     string   `json:"phone" binding:"required"`
	Password  string   `json:"password" binding:"required,min=6"`
	Role      UserRole `json:"role" binding:"required,oneof=patient doctor"`
}

type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type AuthEvent string

const (
	AuthEventLogin        AuthEvent = "login"
	AuthEventLogout       AuthEvent = "logout"
	AuthEventRefresh      AuthEvent = "refresh"
	AuthEventRegister     AuthEvent = "register"
	AuthEventOTPVerify    AuthEvent = "otp_verify"
	AuthEventStatusChange AuthEvent = "status_change"
)

// AuthLog is one authentication-related event, successful or not. UserID is
// nil when the login could not be matched to an account.
type AuthLog struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id"`
	Login     string    `json:"login"`
	Event     AuthEvent `json:"event"`
	Success   bool      `json:"success"`
	Details   string    `json:"details,omitempty"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthLogFilter struct {
	UserID    *int64     `json:"user_id"`
	Event     *AuthEvent `json:"event"`
	Success   *bool      `json:"success"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// ClientInfo identifies where an authentication request came from.
type ClientInfo struct {
	IP        string
	UserAgent string
}
