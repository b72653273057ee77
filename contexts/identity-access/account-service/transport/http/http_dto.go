package http

import "time"

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=128"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	IsStaff   bool      `json:"is_staff"`
}

type MeResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}
