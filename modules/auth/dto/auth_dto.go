package dto

import (
	"time"

	"echoloom-api/modules/auth/entity"
)

// ===================== Request DTOs =====================

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type GoogleAttachRequest struct {
	Code string `json:"code" validate:"required"`
}

// ===================== Response DTOs =====================

type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	IsGuest    bool      `json:"is_guest"`
	HasGoogle  bool      `json:"has_google"`
	MeetingIDs []string  `json:"meeting_ids"`
	CreatedAt  time.Time `json:"created_at"`
}

type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

func ToUserResponse(u *entity.User) *UserResponse {
	return &UserResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		Name:       u.Name,
		IsGuest:    u.IsGuest(),
		HasGoogle:  u.GoogleID != nil,
		MeetingIDs: append([]string(nil), u.MeetingIDs...),
		CreatedAt:  u.CreatedAt,
	}
}
