package models

import (
	"time"

	"github.com/google/uuid"
)

// Boost - временно поднимает комнату до Pro.
type Boost struct {
	ID          uuid.UUID `json:"id"`
	PurchasedBy uuid.UUID `json:"purchasedBy"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Active истинно строго до ExpiresAt.
func (b *Boost) Active(now time.Time) bool {
	return b != nil && now.Before(b.ExpiresAt)
}

// EffectiveTier - уровень комнаты с учётом буста.
func EffectiveTier(creator Tier, boost *Boost, now time.Time) Tier {
	if boost.Active(now) && creator < TierPro {
		return TierPro
	}

	return creator
}
