package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type RoomSettings struct {
	IsPrivate              bool `json:"isPrivate"`
	AllowControls          bool `json:"allowControls"`
	AllowQueue             bool `json:"allowQueue"`
	AllowQueueRemoval      bool `json:"allowQueueRemoval"`
	DJMode                 bool `json:"djMode"`
	DJPlayers              int  `json:"djPlayers"`
	AllowPlaylistAdditions bool `json:"allowPlaylistAdditions"`
	SessionEnabled         bool `json:"sessionEnabled"`
	Autoplay               bool `json:"autoplay"`
}

func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		AllowControls:  true,
		AllowQueue:     true,
		SessionEnabled: true,
		Autoplay:       true,
	}
}

// Normalize приводит djPlayers к [0, MaxDJPlayers] и обнуляет его без djMode.
func (s RoomSettings) Normalize() RoomSettings {
	if !s.DJMode {
		s.DJPlayers = 0
		return s
	}

	s.DJPlayers = max(0, min(s.DJPlayers, MaxDJPlayers))

	return s
}

// SettingsPatch - частичное обновление настроек, nil-поля не меняются.
type SettingsPatch struct {
	IsPrivate              *bool `json:"isPrivate,omitempty"`
	AllowControls          *bool `json:"allowControls,omitempty"`
	AllowQueue             *bool `json:"allowQueue,omitempty"`
	AllowQueueRemoval      *bool `json:"allowQueueRemoval,omitempty"`
	DJMode                 *bool `json:"djMode,omitempty"`
	DJPlayers              *int  `json:"djPlayers,omitempty"`
	AllowPlaylistAdditions *bool `json:"allowPlaylistAdditions,omitempty"`
	SessionEnabled         *bool `json:"sessionEnabled,omitempty"`
	Autoplay               *bool `json:"autoplay,omitempty"`
}

func (p SettingsPatch) Apply(s RoomSettings) RoomSettings {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	set(&s.IsPrivate, p.IsPrivate)
	set(&s.AllowControls, p.AllowControls)
	set(&s.AllowQueue, p.AllowQueue)
	set(&s.AllowQueueRemoval, p.AllowQueueRemoval)
	set(&s.DJMode, p.DJMode)
	set(&s.AllowPlaylistAdditions, p.AllowPlaylistAdditions)
	set(&s.SessionEnabled, p.SessionEnabled)
	set(&s.Autoplay, p.Autoplay)
	if p.DJPlayers != nil {
		s.DJPlayers = *p.DJPlayers
	}

	return s.Normalize()
}

// TouchesOwnerSettings - меняет ли патч настройки, доступные только владельцу.
func (p SettingsPatch) TouchesOwnerSettings(current RoomSettings) bool {
	changed := func(src *bool, cur bool) bool { return src != nil && *src != cur }

	return changed(p.IsPrivate, current.IsPrivate) ||
		changed(p.DJMode, current.DJMode) ||
		changed(p.SessionEnabled, current.SessionEnabled)
}

// Room - долговечная часть комнаты, то что переживает рестарт процесса.
type Room struct {
	ID          string       `json:"id" db:"id"`
	ShortCode   string       `json:"shortCode" db:"short_code"`
	OwnerID     uuid.UUID    `json:"ownerId" db:"owner_id"`
	AdminIDs    []uuid.UUID  `json:"adminIds" db:"-"`
	Settings    RoomSettings `json:"settings" db:"-"`
	CreatorTier Tier         `json:"creatorTier" db:"creator_tier"`
	ActiveBoost *Boost       `json:"activeBoost" db:"-"`
	Queue       []Track      `json:"queue" db:"-"`
	History     []Track      `json:"history" db:"-"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

func NewRoom(id, shortCode string, ownerID uuid.UUID, creatorTier Tier, now time.Time) *Room {
	return &Room{
		ID:          id,
		ShortCode:   shortCode,
		OwnerID:     ownerID,
		AdminIDs:    []uuid.UUID{},
		Settings:    DefaultRoomSettings(),
		CreatorTier: creatorTier,
		Queue:       []Track{},
		History:     []Track{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (r *Room) IsAdmin(userID uuid.UUID) bool {
	return slices.Contains(r.AdminIDs, userID)
}
