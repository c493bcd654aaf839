package events

import (
	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/domain/runtime"
	"github.com/Luminawater/juketogether/internal/domain/tempo"
)

type UsersPayload struct {
	Users []runtime.RoomUser `json:"users"`
	Count int                `json:"count"`
}

type TrackAddedPayload struct {
	Track       models.Track `json:"track"`
	QueueLength int          `json:"queueLength"`
}

type PlaylistAddedPayload struct {
	Tracks      []models.Track `json:"tracks"`
	QueueLength int            `json:"queueLength"`
}

// TrackUpdatedPayload - трек получил метаданные после добавления
type TrackUpdatedPayload struct {
	Track models.Track `json:"track"`
	Decks []int        `json:"decks,omitempty"`
}

type TrackRemovedPayload struct {
	TrackID     uuid.UUID `json:"trackId"`
	QueueLength int       `json:"queueLength"`
}

// PlaybackPayload - play, pause, restart-track, sync-all-users
type PlaybackPayload struct {
	Playback  models.PlaybackState `json:"playback"`
	AdPending bool                 `json:"adPending"`
	By        uuid.UUID            `json:"by,omitempty"`
}

type NextTrackPayload struct {
	Playback      models.PlaybackState `json:"playback"`
	PreviousTrack *models.Track        `json:"previousTrack"`
	QueueLength   int                  `json:"queueLength"`
	AdPending     bool                 `json:"adPending"`
}

// ReplayPayload - трек из истории снова играет, очередь могла измениться
type ReplayPayload struct {
	Playback models.PlaybackState `json:"playback"`
	Queue    []models.Track       `json:"queue"`
	History  []models.Track       `json:"history"`
}

type SettingsPayload struct {
	Settings      models.RoomSettings `json:"settings"`
	EffectiveTier models.Tier         `json:"effectiveTier"`
	QueueLimit    models.Limit        `json:"queueLimit"`
	Decks         []models.DJDeck     `json:"decks"`
}

type AdminsPayload struct {
	AdminIDs []uuid.UUID `json:"adminIds"`
}

type AdRequiredPayload struct {
	Ad   models.Ad   `json:"ad"`
	Tier models.Tier `json:"tier"`
}

type BoostPayload struct {
	Boost         *models.Boost `json:"boost"`
	EffectiveTier models.Tier   `json:"effectiveTier"`
	QueueLimit    models.Limit  `json:"queueLimit"`
}

type DeckPayload struct {
	Deck models.DJDeck `json:"deck"`
}

type DecksSyncedPayload struct {
	Sync tempo.SyncResult `json:"sync"`
	Deck models.DJDeck    `json:"deck"`
}

type LeftRoomPayload struct {
	RoomID string `json:"roomId"`
}
