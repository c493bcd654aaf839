package output

import (
	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/domain/runtime"
)

// RoomSnapshot - полное состояние комнаты, отправляется при входе
type RoomSnapshot struct {
	RoomID        string               `json:"roomId"`
	ShortCode     string               `json:"shortCode"`
	Version       uint64               `json:"version"`
	OwnerID       uuid.UUID            `json:"ownerId"`
	AdminIDs      []uuid.UUID          `json:"adminIds"`
	Settings      models.RoomSettings  `json:"settings"`
	CreatorTier   models.Tier          `json:"creatorTier"`
	EffectiveTier models.Tier          `json:"effectiveTier"`
	QueueLimit    models.Limit         `json:"queueLimit"`
	ActiveBoost   *models.Boost        `json:"activeBoost"`
	Queue         []models.Track       `json:"queue"`
	History       []models.Track       `json:"history"`
	Playback      models.PlaybackState `json:"playback"`
	PendingAd     *models.Ad           `json:"pendingAd"`
	Decks         []models.DJDeck      `json:"decks"`
	Users         []runtime.RoomUser   `json:"users"`
	You           runtime.RoomUser     `json:"you"`
}

// RoomSummary - публичная информация о комнате для REST
type RoomSummary struct {
	ID            string              `json:"id"`
	ShortCode     string              `json:"shortCode"`
	OwnerID       uuid.UUID           `json:"ownerId"`
	Settings      models.RoomSettings `json:"settings"`
	EffectiveTier models.Tier         `json:"effectiveTier"`
	QueueLength   int                 `json:"queueLength"`
	Listeners     int                 `json:"listeners"`
	Live          bool                `json:"live"`
}
