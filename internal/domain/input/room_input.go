package input

import (
	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/models"
)

// RoomInput - команды, которым нужен только идентификатор комнаты
type RoomInput struct {
	RoomID string `json:"roomId"`
}

type AddTrackInput struct {
	RoomID    string            `json:"roomId"`
	TrackURL  string            `json:"trackUrl"`
	TrackInfo *models.TrackInfo `json:"trackInfo,omitempty"`
	Platform  models.Platform   `json:"platform,omitempty"`
}

type AddPlaylistInput struct {
	RoomID string `json:"roomId"`
	URL    string `json:"url"`
}

type TrackInput struct {
	RoomID  string    `json:"roomId"`
	TrackID uuid.UUID `json:"trackId"`
}

type PositionInput struct {
	RoomID   string `json:"roomId"`
	Position int64  `json:"position"`
	Duration int64  `json:"duration,omitempty"`
}

type SettingsInput struct {
	RoomID   string               `json:"roomId"`
	Settings models.SettingsPatch `json:"settings"`
}

// AdminInput - пользователь задаётся идентификатором или именем
type AdminInput struct {
	RoomID   string    `json:"roomId"`
	UserID   uuid.UUID `json:"userId,omitempty"`
	Username string    `json:"username,omitempty"`
}

type BoostInput struct {
	RoomID  string `json:"roomId"`
	Receipt string `json:"receipt"`
}

type FriendInput struct {
	UserID   uuid.UUID `json:"userId,omitempty"`
	Username string    `json:"username,omitempty"`
}

type DeckInput struct {
	RoomID    string            `json:"roomId"`
	Deck      int               `json:"deck"`
	TrackURL  string            `json:"trackUrl,omitempty"`
	TrackID   uuid.UUID         `json:"trackId,omitempty"`
	TrackInfo *models.TrackInfo `json:"trackInfo,omitempty"`
	Platform  models.Platform   `json:"platform,omitempty"`
	Position  int64             `json:"position,omitempty"`
	Volume    float64           `json:"volume,omitempty"`
}

type DeckSyncInput struct {
	RoomID string `json:"roomId"`
	DeckA  int    `json:"deckA"`
	DeckB  int    `json:"deckB"`
}
