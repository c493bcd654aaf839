package roomstate

import (
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/adpolicy"
	"github.com/Luminawater/juketogether/internal/domain/events"
	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/domain/runtime"
)

// Command - типизированная команда для актора комнаты
type Command interface {
	Name() string
}

// Origin - соединение, от имени которого пришла команда
type Origin struct {
	ConnID uuid.UUID
}

type Join struct {
	User runtime.RoomUser
	// Invited - пользователь в друзьях у владельца, пускаем в приватную комнату
	Invited bool
}

type Leave struct{ Origin }

// AddTrack с Lookup принимается с заглушкой, метаданные подтягиваются в фоне
type AddTrack struct {
	Origin
	Track  models.Track
	Lookup bool
}

// AddTracks добавляет плейлист целиком или не добавляет ничего
type AddTracks struct {
	Origin
	Tracks []models.Track
}

type RemoveTrack struct {
	Origin
	TrackID uuid.UUID
}

type Play struct{ Origin }

type Pause struct{ Origin }

type NextTrack struct{ Origin }

type PreviousTrack struct{ Origin }

type RestartTrack struct{ Origin }

type ReplayTrack struct {
	Origin
	TrackID uuid.UUID
}

type SyncAllUsers struct {
	Origin
	PositionMs int64
}

type SyncPosition struct {
	Origin
	PositionMs int64
	DurationMs int64
}

type UpdateSettings struct {
	Origin
	Patch models.SettingsPatch
}

type AddAdmin struct {
	Origin
	UserID uuid.UUID
}

type RemoveAdmin struct {
	Origin
	UserID uuid.UUID
}

type DismissAd struct{ Origin }

type InstallBoost struct {
	Origin
	Purchase adpolicy.Purchase
}

// DeckLoad ставит на деку новый трек или, если Track пустой,
// трек комнаты по TrackID
type DeckLoad struct {
	Origin
	Deck    int
	Track   models.Track
	TrackID uuid.UUID
	Lookup  bool
}

type DeckPlay struct {
	Origin
	Deck int
}

type DeckPause struct {
	Origin
	Deck int
}

type DeckSeek struct {
	Origin
	Deck       int
	PositionMs int64
}

type DeckVolume struct {
	Origin
	Deck   int
	Volume float64
}

type SyncDecks struct {
	Origin
	Source int
	Target int
}

// DeckBPMResolved приходит от фонового анализа
type DeckBPMResolved struct {
	Deck    int
	TrackID uuid.UUID
	BPM     float64
}

// TrackInfoResolved приходит от фонового запроса метаданных
type TrackInfoResolved struct {
	TrackID uuid.UUID
	Info    models.TrackInfo
}

// Служебные команды актора
type (
	expireBoost     struct{}
	snapshotDurable struct{}
	summary         struct{}
	evictIfIdle     struct{ ttl time.Duration }
)

func (Join) Name() string              { return events.CmdJoinRoom }
func (Leave) Name() string             { return events.CmdLeaveRoom }
func (AddTrack) Name() string          { return events.CmdAddTrack }
func (AddTracks) Name() string         { return events.CmdAddPlaylist }
func (RemoveTrack) Name() string       { return events.CmdRemoveTrack }
func (Play) Name() string              { return events.CmdPlay }
func (Pause) Name() string             { return events.CmdPause }
func (NextTrack) Name() string         { return events.CmdNextTrack }
func (PreviousTrack) Name() string     { return events.CmdPreviousTrack }
func (RestartTrack) Name() string      { return events.CmdRestartTrack }
func (ReplayTrack) Name() string       { return events.CmdReplayTrack }
func (SyncAllUsers) Name() string      { return events.CmdSyncAllUsers }
func (SyncPosition) Name() string      { return events.CmdSyncPosition }
func (UpdateSettings) Name() string    { return events.CmdUpdateRoomSettings }
func (AddAdmin) Name() string          { return events.CmdAddRoomAdmin }
func (RemoveAdmin) Name() string       { return events.CmdRemoveRoomAdmin }
func (DismissAd) Name() string         { return events.CmdAdDismissed }
func (InstallBoost) Name() string      { return events.CmdPurchaseBoost }
func (DeckLoad) Name() string          { return events.CmdDJDeckLoad }
func (DeckPlay) Name() string          { return events.CmdDJDeckPlay }
func (DeckPause) Name() string         { return events.CmdDJDeckPause }
func (DeckSeek) Name() string          { return events.CmdDJDeckSeek }
func (DeckVolume) Name() string        { return events.CmdDJDeckVolume }
func (SyncDecks) Name() string         { return events.CmdDJSyncTracks }
func (DeckBPMResolved) Name() string   { return "deck-bpm-resolved" }
func (TrackInfoResolved) Name() string { return "track-info-resolved" }
func (expireBoost) Name() string       { return "expire-boost" }
func (snapshotDurable) Name() string   { return "snapshot" }
func (summary) Name() string           { return "summary" }
func (evictIfIdle) Name() string       { return "evict" }
