package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Luminawater/juketogether/internal/application/config"
	"github.com/Luminawater/juketogether/internal/application/constant"
	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/events"
	"github.com/Luminawater/juketogether/internal/domain/input"
	"github.com/Luminawater/juketogether/internal/domain/roomstate"
	"github.com/Luminawater/juketogether/internal/domain/runtime"
	"github.com/Luminawater/juketogether/internal/infra/adapters/memory"
	"github.com/Luminawater/juketogether/internal/infra/appctx"
	"github.com/Luminawater/juketogether/internal/usecase"
)

const (
	readWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	cleanupWait  = 5 * time.Second

	maxMessageSize = 64 << 10
)

type WebSocketHandler struct {
	cfg      *config.Config
	upgrader *websocket.Upgrader

	wsRepo memory.WebsocketConnectionRepository

	userUsecase   usecase.UserUsecase
	roomUsecase   usecase.RoomUsecase
	friendUsecase usecase.FriendUsecase
}

func NewWebSocketHandler(
	cfg *config.Config,
	wsRepo memory.WebsocketConnectionRepository,
	userUsecase usecase.UserUsecase,
	roomUsecase usecase.RoomUsecase,
	friendUsecase usecase.FriendUsecase,
) *WebSocketHandler {
	return &WebSocketHandler{
		cfg: cfg,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		wsRepo:        wsRepo,
		userUsecase:   userUsecase,
		roomUsecase:   roomUsecase,
		friendUsecase: friendUsecase,
	}
}

// Handle - одно соединение клиента. Горутина чтения владеет сессией,
// запись идёт только через очередь соединения.
func (h *WebSocketHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()
	sess := h.session(ctx)

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return nil
	}

	conn := memory.NewConnection(sess.ConnID, ws, sess.UserID, sess.Anonymous, h.cfg.Engine.SendBuffer)
	h.wsRepo.Add(conn)
	go conn.WritePump(pingInterval)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupWait)
		defer cancel()

		h.roomUsecase.Disconnect(cleanupCtx, sess)
		h.wsRepo.Remove(sess.ConnID)
		conn.Close()

		slog.Debug(
			"websocket closed",
			slog.Any(constant.ConnID, sess.ConnID),
			slog.Any(constant.UserID, sess.UserID),
		)
	}()

	ws.SetReadLimit(maxMessageSize)
	if err = ws.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		return nil
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readWait))
	})

	if !sess.Anonymous {
		h.friendUsecase.PushList(ctx, sess.UserID)
	}

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("webSocket read error", slog.Any(constant.Error, err))
			}
			return nil
		}

		// любое сообщение продлевает жизнь соединения
		_ = ws.SetReadDeadline(time.Now().Add(readWait))

		msg := new(events.Message)
		if err = json.Unmarshal(raw, msg); err != nil {
			h.sendError(sess, "", errs.InvalidCommand("malformed message"))
			continue
		}

		if err = h.handleMessage(ctx, sess, msg); err != nil {
			h.sendError(sess, msg.Type, err)
		}
	}
}

// session - аутентифицированный пользователь из токена или гость
func (h *WebSocketHandler) session(ctx context.Context) *runtime.Session {
	userID, ok := appctx.UserID(ctx)
	if !ok {
		return runtime.NewAnonymousSession()
	}

	user, err := h.userUsecase.GetUserByID(ctx, userID)
	if err != nil {
		slog.Warn(
			"token user not found, connecting as guest",
			slog.Any(constant.Error, err),
			slog.Any(constant.UserID, userID),
		)
		return runtime.NewAnonymousSession()
	}

	return runtime.NewSession(user.ID, user.Username, false, user.SubscriptionTier)
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, sess *runtime.Session, msg *events.Message) error {
	o := roomstate.Origin{ConnID: sess.ConnID}

	switch msg.Type {
	case events.CmdPing:
		h.wsRepo.Send(sess.ConnID, events.Event{Type: events.EvtPong})
		return nil

	case events.CmdJoinRoom:
		in, err := decode[input.RoomInput](msg.Data)
		if err != nil {
			return err
		}
		_, err = h.roomUsecase.Join(ctx, sess, in.RoomID)
		return err

	case events.CmdLeaveRoom:
		in, err := decode[input.RoomInput](msg.Data)
		if err != nil {
			return err
		}
		return h.roomUsecase.Leave(ctx, sess, in.RoomID)

	case events.CmdAddTrack:
		in, err := decode[input.AddTrackInput](msg.Data)
		if err != nil {
			return err
		}
		return h.roomUsecase.AddTrack(ctx, sess, in)

	case events.CmdAddPlaylist:
		in, err := decode[input.AddPlaylistInput](msg.Data)
		if err != nil {
			return err
		}
		return h.roomUsecase.AddPlaylist(ctx, sess, in)

	case events.CmdRemoveTrack, events.CmdReplayTrack:
		in, err := decode[input.TrackInput](msg.Data)
		if err != nil {
			return err
		}

		var cmd roomstate.Command = roomstate.RemoveTrack{Origin: o, TrackID: in.TrackID}
		if msg.Type == events.CmdReplayTrack {
			cmd = roomstate.ReplayTrack{Origin: o, TrackID: in.TrackID}
		}

		return h.roomUsecase.Submit(ctx, sess, in.RoomID, cmd)

	case events.CmdPlay, events.CmdPause, events.CmdNextTrack, events.CmdPreviousTrack,
		events.CmdRestartTrack, events.CmdAdDismissed:
		in, err := decode[input.RoomInput](msg.Data)
		if err != nil {
			return err
		}
		return h.roomUsecase.Submit(ctx, sess, in.RoomID, simpleCommand(msg.Type, o))

	case events.CmdSyncAllUsers:
		in, err := decode[input.PositionInput](msg.Data)
		if err != nil {
			return err
		}
		return h.roomUsecase.Submit(ctx, sess, in.RoomID, roomstate.SyncAllUsers{Origin: o, PositionMs: in.Position})

	case events.CmdSyncPosition:
		in, err := decode[input.PositionInput](msg.Data)
		if err != nil {
			return err
		}
		cmd := roomstate.SyncPosition{Origin: o, PositionMs: in.Position, DurationMs: in.Duration}
		return h.roomUsecase.Submit(ctx, sess, in.RoomID, cmd)

	case events.CmdUpdateRoomSettings:
		in, err := decode[input.SettingsInput](msg.Data)
		if err != nil {
			return err
		}
		return h.roomUsecase.Submit(ctx, sess, in.RoomID, roomstate.UpdateSettings{Origin: o, Patch: in.Settings})

	case events.CmdAddRoomAdmin, events.CmdRemoveRoomAdmin:
		in, err := decode[input.AdminInput](msg.Data)
		if err != nil {
			return err
		}
		if msg.Type == events.CmdAddRoomAdmin {
			return h.roomUsecase.AddAdmin(ctx, sess, in)
		}
		return h.roomUsecase.RemoveAdmin(ctx, sess, in)

	case events.CmdPurchaseBoost:
		in, err := decode[input.BoostInput](msg.Data)
		if err != nil {
			return err
		}
		return h.roomUsecase.PurchaseBoost(ctx, sess, in)

	case events.CmdAddFriend, events.CmdAcceptFriendRequest, events.CmdRejectFriendRequest, events.CmdRemoveFriend:
		return h.handleFriend(ctx, sess, msg)

	case events.CmdDJDeckLoad:
		in, err := decode[input.DeckInput](msg.Data)
		if err != nil {
			return err
		}
		return h.roomUsecase.LoadDeck(ctx, sess, in)

	case events.CmdDJDeckPlay, events.CmdDJDeckPause, events.CmdDJDeckSeek, events.CmdDJDeckVolume:
		in, err := decode[input.DeckInput](msg.Data)
		if err != nil {
			return err
		}
		return h.roomUsecase.Submit(ctx, sess, in.RoomID, deckCommand(msg.Type, o, in))

	case events.CmdDJSyncTracks:
		in, err := decode[input.DeckSyncInput](msg.Data)
		if err != nil {
			return err
		}
		return h.roomUsecase.Submit(ctx, sess, in.RoomID, roomstate.SyncDecks{Origin: o, Source: in.DeckA, Target: in.DeckB})
	}

	return errs.InvalidCommand("unknown message type " + msg.Type)
}

func (h *WebSocketHandler) handleFriend(ctx context.Context, sess *runtime.Session, msg *events.Message) error {
	if sess.Anonymous {
		return errs.PermissionDenied("sign in to manage friends")
	}

	in, err := decode[input.FriendInput](msg.Data)
	if err != nil {
		return err
	}

	switch msg.Type {
	case events.CmdAddFriend:
		return h.friendUsecase.SendRequest(ctx, sess.UserID, in)
	case events.CmdAcceptFriendRequest:
		return h.friendUsecase.Accept(ctx, sess.UserID, in)
	case events.CmdRejectFriendRequest:
		return h.friendUsecase.Reject(ctx, sess.UserID, in)
	default:
		return h.friendUsecase.Remove(ctx, sess.UserID, in)
	}
}

func simpleCommand(typ string, o roomstate.Origin) roomstate.Command {
	switch typ {
	case events.CmdPlay:
		return roomstate.Play{Origin: o}
	case events.CmdPause:
		return roomstate.Pause{Origin: o}
	case events.CmdNextTrack:
		return roomstate.NextTrack{Origin: o}
	case events.CmdPreviousTrack:
		return roomstate.PreviousTrack{Origin: o}
	case events.CmdRestartTrack:
		return roomstate.RestartTrack{Origin: o}
	default:
		return roomstate.DismissAd{Origin: o}
	}
}

func deckCommand(typ string, o roomstate.Origin, in *input.DeckInput) roomstate.Command {
	switch typ {
	case events.CmdDJDeckPlay:
		return roomstate.DeckPlay{Origin: o, Deck: in.Deck}
	case events.CmdDJDeckPause:
		return roomstate.DeckPause{Origin: o, Deck: in.Deck}
	case events.CmdDJDeckSeek:
		return roomstate.DeckSeek{Origin: o, Deck: in.Deck, PositionMs: in.Position}
	default:
		return roomstate.DeckVolume{Origin: o, Deck: in.Deck, Volume: in.Volume}
	}
}

func decode[T any](data json.RawMessage) (*T, error) {
	v := new(T)
	if len(data) == 0 {
		return v, nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return nil, errs.InvalidCommand("malformed payload")
	}

	return v, nil
}

// sendError превращает ошибку команды в событие error для этого соединения
func (h *WebSocketHandler) sendError(sess *runtime.Session, command string, err error) {
	payload := events.ErrorPayload{Command: command}

	var ce *errs.CommandError
	switch {
	case errors.As(err, &ce):
		payload.Kind = string(ce.Kind)
		payload.Message = ce.Message
		payload.Blocked = ce.Blocked
		payload.Reason = ce.Reason
		payload.BlockedAt = ce.BlockedAt
		payload.SongsPlayed = ce.SongsPlayed
		payload.IsOwner = ce.IsOwner
	case errors.Is(err, errs.ErrNotFound):
		payload.Kind = string(errs.KindNotFound)
		payload.Message = "not found"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		payload.Kind = string(errs.KindConnectionLost)
		payload.Message = "request timed out"
	default:
		slog.Error(
			"handle websocket message",
			slog.Any(constant.Error, err),
			slog.String(constant.Command, command),
			slog.Any(constant.ConnID, sess.ConnID),
		)
		payload.Kind = "InternalError"
		payload.Message = "internal error"
	}

	h.wsRepo.Send(sess.ConnID, events.Event{Type: events.EvtError, Data: payload})
}
