package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Username         string    `json:"username" db:"username"`
	Password         string    `json:"-" db:"password"`
	SubscriptionTier Tier      `json:"subscriptionTier" db:"subscription_tier"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

func NewUser() *User {
	return &User{
		ID:               uuid.New(),
		SubscriptionTier: TierFree,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}
