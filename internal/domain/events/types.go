package events

import "encoding/json"

// Message - входящее сообщение клиента
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event - исходящее событие. Version - версия состояния комнаты после
// применения изменения, клиент отбрасывает события старее снапшота.
type Event struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId,omitempty"`
	Version uint64 `json:"version,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Команды клиента
const (
	CmdPing                = "ping"
	CmdJoinRoom            = "join-room"
	CmdLeaveRoom           = "leave-room"
	CmdAddTrack            = "add-track"
	CmdAddPlaylist         = "add-playlist"
	CmdRemoveTrack         = "remove-track"
	CmdPlay                = "play"
	CmdPause               = "pause"
	CmdNextTrack           = "next-track"
	CmdPreviousTrack       = "previous-track"
	CmdRestartTrack        = "restart-track"
	CmdReplayTrack         = "replay-track"
	CmdSyncAllUsers        = "sync-all-users"
	CmdSyncPosition        = "sync-position"
	CmdUpdateRoomSettings  = "update-room-settings"
	CmdAddRoomAdmin        = "add-room-admin"
	CmdRemoveRoomAdmin     = "remove-room-admin"
	CmdAdDismissed         = "ad-dismissed"
	CmdPurchaseBoost       = "purchase-boost"
	CmdAddFriend           = "add-friend"
	CmdAcceptFriendRequest = "accept-friend-request"
	CmdRejectFriendRequest = "reject-friend-request"
	CmdRemoveFriend        = "remove-friend"
	CmdDJDeckLoad          = "dj-deck-load"
	CmdDJDeckPlay          = "dj-deck-play"
	CmdDJDeckPause         = "dj-deck-pause"
	CmdDJDeckSeek          = "dj-deck-seek"
	CmdDJDeckVolume        = "dj-deck-volume"
	CmdDJSyncTracks        = "dj-sync-tracks"
)

// События сервера
const (
	EvtPong                = "pong"
	EvtRoomState           = "roomState"
	EvtUsersUpdated        = "usersUpdated"
	EvtTrackAdded          = "trackAdded"
	EvtPlaylistAdded       = "playlistAdded"
	EvtTrackRemoved        = "trackRemoved"
	EvtTrackUpdated        = "trackUpdated"
	EvtPlay                = "play"
	EvtPause               = "pause"
	EvtNextTrack           = "nextTrack"
	EvtRestartTrack        = "restart-track"
	EvtReplayTrack         = "replayTrack"
	EvtSyncAllUsers        = "sync-all-users"
	EvtRoomSettingsUpdated = "roomSettingsUpdated"
	EvtRoomAdminsUpdated   = "roomAdminsUpdated"
	EvtAdRequired          = "AdRequired"
	EvtBoostActivated      = "boostActivated"
	EvtBoostExpired        = "BoostExpired"
	EvtFriendsList         = "friendsList"
	EvtDJDeckUpdated       = "djDeckUpdated"
	EvtDJTracksSynced      = "djTracksSynced"
	EvtLeftRoom            = "leftRoom"
	EvtError               = "error"
)

// ErrorPayload - тело события error
type ErrorPayload struct {
	Message     string `json:"message"`
	Kind        string `json:"kind"`
	Command     string `json:"command,omitempty"`
	Blocked     bool   `json:"blocked,omitempty"`
	Reason      string `json:"reason,omitempty"`
	BlockedAt   *int   `json:"blockedAt,omitempty"`
	SongsPlayed *int   `json:"songsPlayed,omitempty"`
	IsOwner     *bool  `json:"isOwner,omitempty"`
}
