package dto

import (
	"time"

	domainuser "wanderlust/internal/domain/user"
)

type UserProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthSession struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserProfile `json:"user"`
}

func MapUserProfile(u *domainuser.User) UserProfile {
	if u == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:        string(u.ID),
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}
