// internal/auth/models.go

package auth

import "time"

// RoleAdmin is the only role the admin API accepts
const RoleAdmin = "admin"

// Admin is a Telegram account allowed to run mailings and answer support
type Admin struct {
	TgID      int64   `json:"tg_id" db:"tg_id"`
	Username  *string `json:"username,omitempty" db:"username"`
	FirstName *string `json:"first_name,omitempty" db:"first_name"`
	// Bootstrap admins come from configuration and cannot be demoted
	Bootstrap bool `json:"bootstrap" db:"-"`
}

// TokenResponse is returned when an admin asks the bot for an API token
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GrantRequest promotes or demotes a user
type GrantRequest struct {
	IsAdmin *bool `json:"is_admin" validate:"required"`
}
