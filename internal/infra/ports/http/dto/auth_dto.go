package dto

import (
	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/models"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse - токен дублируется в теле для клиентов без cookie
type LoginResponse struct {
	Token string     `json:"token"`
	User  MeResponse `json:"user"`
}

type MeResponse struct {
	ID               uuid.UUID   `json:"id"`
	Username         string      `json:"username"`
	SubscriptionTier models.Tier `json:"subscriptionTier"`
}

func NewMeResponse(u *models.User) MeResponse {
	return MeResponse{
		ID:               u.ID,
		Username:         u.Username,
		SubscriptionTier: u.SubscriptionTier,
	}
}
