// Package permission решает, может ли участник комнаты выполнить действие.
// Сначала проверяется роль, затем уровень подписки.
package permission

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/models"
)

type Action string

const (
	ActionAddTrack       Action = "add-track"
	ActionAddPlaylist    Action = "add-playlist"
	ActionRemoveTrack    Action = "remove-track"
	ActionPlay           Action = "play"
	ActionPause          Action = "pause"
	ActionNextTrack      Action = "next-track"
	ActionPreviousTrack  Action = "previous-track"
	ActionRestartTrack   Action = "restart-track"
	ActionReplayTrack    Action = "replay-track"
	ActionSyncPosition   Action = "sync-position"
	ActionDismissAd      Action = "ad-dismissed"
	ActionSyncAllUsers   Action = "sync-all-users"
	ActionUpdateSettings Action = "update-room-settings"
	ActionManageAdmins   Action = "manage-room-admins"
	ActionDJDeck         Action = "dj-deck"
	ActionPurchaseBoost  Action = "purchase-boost"
)

// controls - действия с воспроизведением, доступные участникам при allowControls
var controls = map[Action]struct{}{
	ActionPlay:          {},
	ActionPause:         {},
	ActionNextTrack:     {},
	ActionPreviousTrack: {},
	ActionRestartTrack:  {},
	ActionReplayTrack:   {},
	ActionSyncPosition:  {},
	ActionDismissAd:     {},
}

type Actor struct {
	UserID    uuid.UUID
	Anonymous bool
	IsOwner   bool
	IsAdmin   bool
	Tier      models.Tier
}

// Subject - всё, что гейту нужно знать о комнате и целевом объекте
type Subject struct {
	Settings      models.RoomSettings
	EffectiveTier models.Tier
	QueueLen      int
	QueueLimit    models.Limit
	SongsPlayed   int

	// Сколько треков добавляется за раз, для ActionAddPlaylist
	Adding int

	// Автор удаляемого трека
	TrackAddedBy uuid.UUID

	// Патч настроек для ActionUpdateSettings
	Patch *models.SettingsPatch
}

// CanPerform возвращает nil, если действие разрешено, иначе *errs.CommandError.
func CanPerform(actor Actor, action Action, s Subject) error {
	if err := checkRole(actor, action, s); err != nil {
		return err
	}

	return checkTier(actor, action, s)
}

func checkRole(actor Actor, action Action, s Subject) error {
	if actor.Anonymous {
		return errs.PermissionDenied("anonymous users cannot modify the room")
	}

	if actor.IsOwner {
		return nil
	}

	if actor.IsAdmin {
		switch action {
		case ActionManageAdmins:
			return errs.PermissionDenied("only the room owner can manage admins")
		case ActionUpdateSettings:
			if s.Patch != nil && s.Patch.TouchesOwnerSettings(s.Settings) {
				return errs.PermissionDenied("only the room owner can change privacy, dj mode or session")
			}
		}

		return nil
	}

	if !s.Settings.SessionEnabled && action != ActionPurchaseBoost {
		return errs.PermissionDenied("session is disabled by the room owner")
	}

	switch action {
	case ActionAddTrack:
		if !s.Settings.AllowQueue {
			return errs.PermissionDenied("adding tracks is disabled in this room")
		}
		return nil
	case ActionAddPlaylist:
		if !s.Settings.AllowQueue || !s.Settings.AllowPlaylistAdditions {
			return errs.PermissionDenied("adding playlists is disabled in this room")
		}
		return nil
	case ActionRemoveTrack:
		if s.Settings.AllowQueueRemoval || s.TrackAddedBy == actor.UserID {
			return nil
		}
		return errs.PermissionDenied("you can only remove tracks you added")
	case ActionPurchaseBoost:
		return nil
	}

	if _, ok := controls[action]; ok {
		if !s.Settings.AllowControls {
			return errs.PermissionDenied("playback controls are disabled in this room")
		}
		return nil
	}

	return errs.PermissionDenied(fmt.Sprintf("%s requires owner or admin", action))
}

func checkTier(actor Actor, action Action, s Subject) error {
	switch action {
	case ActionAddTrack, ActionAddPlaylist:
		fits := s.QueueLimit.Allows(s.QueueLen)
		if action == ActionAddPlaylist {
			fits = s.QueueLimit.Fits(s.QueueLen, max(1, s.Adding))
		}
		if fits {
			return nil
		}

		limit, songs, owner := s.QueueLimit.Max, s.SongsPlayed, actor.IsOwner
		err := errs.TierLimitReached("queue_limit",
			fmt.Sprintf("queue limit of %d reached for %s tier", limit, s.EffectiveTier))
		err.BlockedAt = &limit
		err.SongsPlayed = &songs
		err.IsOwner = &owner

		return err

	case ActionDJDeck:
		if !s.Settings.DJMode {
			return errs.PermissionDenied("dj mode is disabled")
		}
		if djTier(actor, s) < models.TierPro {
			return errs.TierLimitReached("dj_mode", "dj mode requires pro tier")
		}

	case ActionUpdateSettings:
		if s.Patch != nil && s.Patch.DJMode != nil && *s.Patch.DJMode && !s.Settings.DJMode &&
			s.EffectiveTier < models.TierPro {
			return errs.TierLimitReached("dj_mode", "dj mode requires pro tier")
		}
	}

	return nil
}

// djTier - владелец пользуется уровнем комнаты с учётом буста
func djTier(actor Actor, s Subject) models.Tier {
	if actor.IsOwner {
		return max(actor.Tier, s.EffectiveTier)
	}

	return actor.Tier
}
