package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/application/clock"
	"github.com/Luminawater/juketogether/internal/application/constant"
	"github.com/Luminawater/juketogether/internal/domain/adpolicy"
	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/input"
	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/domain/output"
	"github.com/Luminawater/juketogether/internal/domain/roomstate"
	"github.com/Luminawater/juketogether/internal/domain/runtime"
	"github.com/Luminawater/juketogether/internal/infra/adapters/metadata"
	"github.com/Luminawater/juketogether/internal/infra/adapters/payment"
	"github.com/Luminawater/juketogether/internal/infra/adapters/postgres/repository"
)

const (
	// joinAttempts - сколько раз переподнимать комнату, которая выселяется прямо во время входа
	joinAttempts = 3

	maxPlaylistTracks = 50
)

// PaymentValidator проверяет квитанцию оплаты буста до её погашения
type PaymentValidator interface {
	Validate(ctx context.Context, receipt, roomID string, userID uuid.UUID) (payment.Receipt, error)
}

// PlaylistSource разворачивает ссылку на профиль или плейлист в список треков
type PlaylistSource interface {
	Collection(ctx context.Context, rawURL string, limit int) ([]metadata.ScrapedTrack, error)
}

// RoomUsecase - операции соединения над комнатами. Сессия принадлежит
// горутине чтения соединения, методы вызываются только из неё.
type RoomUsecase interface {
	// Подписка
	Join(ctx context.Context, sess *runtime.Session, ref string) (output.RoomSnapshot, error)
	Leave(ctx context.Context, sess *runtime.Session, ref string) error
	Disconnect(ctx context.Context, sess *runtime.Session)

	// Команды, которым не нужно ничего, кроме комнаты
	Submit(ctx context.Context, sess *runtime.Session, ref string, cmd roomstate.Command) error

	// Команды с подготовкой вне актора
	AddTrack(ctx context.Context, sess *runtime.Session, in *input.AddTrackInput) error
	AddPlaylist(ctx context.Context, sess *runtime.Session, in *input.AddPlaylistInput) error
	AddAdmin(ctx context.Context, sess *runtime.Session, in *input.AdminInput) error
	RemoveAdmin(ctx context.Context, sess *runtime.Session, in *input.AdminInput) error
	PurchaseBoost(ctx context.Context, sess *runtime.Session, in *input.BoostInput) error
	LoadDeck(ctx context.Context, sess *runtime.Session, in *input.DeckInput) error

	// REST
	Summary(ctx context.Context, ref string) (output.RoomSummary, error)
}

type RoomUsecaseConfig struct {
	// MetadataTimeout ограничивает разбор плейлиста
	MetadataTimeout time.Duration
	BoostDuration   time.Duration
}

type roomUsecase struct {
	cfg RoomUsecaseConfig

	registry *roomstate.Registry
	clock    clock.Clock

	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	boosts     repository.BoostLedger

	payments  PaymentValidator
	playlists PlaylistSource
}

func NewRoomUsecase(
	cfg RoomUsecaseConfig,
	registry *roomstate.Registry,
	clk clock.Clock,
	userRepo repository.UserRepository,
	friendRepo repository.FriendRepository,
	boosts repository.BoostLedger,
	payments PaymentValidator,
	playlists PlaylistSource,
) RoomUsecase {
	if clk == nil {
		clk = clock.Real()
	}

	return &roomUsecase{
		cfg:        cfg,
		registry:   registry,
		clock:      clk,
		userRepo:   userRepo,
		friendRepo: friendRepo,
		boosts:     boosts,
		payments:   payments,
		playlists:  playlists,
	}
}

// Join подписывает соединение на комнату, при необходимости поднимая или создавая её.
// Снапшот к этому моменту уже поставлен в очередь соединения.
func (uc *roomUsecase) Join(ctx context.Context, sess *runtime.Session, ref string) (output.RoomSnapshot, error) {
	roomID := uc.registry.Resolve(ctx, ref)

	var creator *roomstate.Creator
	if !sess.Anonymous {
		creator = &roomstate.Creator{UserID: sess.UserID, Tier: sess.Tier}
	}

	var lastErr error
	for range joinAttempts {
		room, err := uc.registry.GetOrLoad(ctx, roomID, creator)
		if err != nil {
			return output.RoomSnapshot{}, err
		}

		invited, err := uc.invited(ctx, sess, room)
		if err != nil {
			lastErr = err
			if errors.Is(err, errs.RoomClosed("")) {
				continue
			}
			return output.RoomSnapshot{}, err
		}

		snap, err := room.Join(ctx, roomstate.Join{User: sess.RoomUser(), Invited: invited})
		if errors.Is(err, errs.RoomClosed("")) {
			lastErr = err
			continue
		}
		if err != nil {
			return output.RoomSnapshot{}, err
		}

		sess.Subscribe(roomID)

		slog.Debug(
			"joined room",
			slog.String(constant.RoomID, roomID),
			slog.Any(constant.ConnID, sess.ConnID),
			slog.Any(constant.UserID, sess.UserID),
		)

		return snap, nil
	}

	return output.RoomSnapshot{}, lastErr
}

// invited - в приватную комнату пускаем друзей владельца
func (uc *roomUsecase) invited(ctx context.Context, sess *runtime.Session, room *roomstate.Room) (bool, error) {
	if sess.Anonymous {
		return false, nil
	}

	summary, err := room.Summary(ctx)
	if err != nil {
		return false, err
	}
	if !summary.Settings.IsPrivate || summary.OwnerID == sess.UserID {
		return false, nil
	}

	ok, err := uc.friendRepo.AreFriends(ctx, summary.OwnerID, sess.UserID)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}

	return ok, nil
}

// Leave отписывает соединение. Выход из комнаты, где соединения нет, ничего не делает.
func (uc *roomUsecase) Leave(ctx context.Context, sess *runtime.Session, ref string) error {
	roomID := uc.registry.Resolve(ctx, ref)
	if !sess.Subscribed(roomID) {
		return nil
	}
	sess.Unsubscribe(roomID)

	room, ok := uc.registry.Lookup(roomID)
	if !ok {
		return nil
	}

	err := room.Submit(ctx, roomstate.Leave{Origin: origin(sess)})
	if errors.Is(err, errs.RoomClosed("")) {
		return nil
	}

	return err
}

// Disconnect выводит соединение из всех комнат
func (uc *roomUsecase) Disconnect(ctx context.Context, sess *runtime.Session) {
	for _, roomID := range sess.Rooms() {
		if err := uc.Leave(ctx, sess, roomID); err != nil {
			slog.Warn(
				"leave on disconnect",
				slog.Any(constant.Error, err),
				slog.String(constant.RoomID, roomID),
				slog.Any(constant.ConnID, sess.ConnID),
			)
		}
	}
}

func (uc *roomUsecase) Submit(ctx context.Context, sess *runtime.Session, ref string, cmd roomstate.Command) error {
	room, err := uc.joined(ctx, sess, ref)
	if err != nil {
		return err
	}

	return room.Submit(ctx, cmd)
}

// joined - живая комната, на которую подписано соединение
func (uc *roomUsecase) joined(ctx context.Context, sess *runtime.Session, ref string) (*roomstate.Room, error) {
	if ref == "" {
		return nil, errs.InvalidCommand("roomId is required")
	}

	roomID := uc.registry.Resolve(ctx, ref)
	if !sess.Subscribed(roomID) {
		return nil, errs.InvalidCommand("join the room first")
	}

	room, ok := uc.registry.Lookup(roomID)
	if !ok {
		sess.Unsubscribe(roomID)
		return nil, errs.RoomClosed("room is closed, join again")
	}

	return room, nil
}

func (uc *roomUsecase) AddTrack(ctx context.Context, sess *runtime.Session, in *input.AddTrackInput) error {
	room, err := uc.joined(ctx, sess, in.RoomID)
	if err != nil {
		return err
	}
	if sess.Anonymous {
		return errs.PermissionDenied("sign in to add tracks")
	}

	track, lookup, err := uc.track(sess, in.TrackURL, in.Platform, in.TrackInfo)
	if err != nil {
		return err
	}

	return room.Submit(ctx, roomstate.AddTrack{Origin: origin(sess), Track: track, Lookup: lookup})
}

// track собирает трек. Если клиент не прислал название, трек принимается
// с заглушкой, а метаданные комната запросит в фоне.
func (uc *roomUsecase) track(
	sess *runtime.Session,
	rawURL string,
	hint models.Platform,
	info *models.TrackInfo,
) (models.Track, bool, error) {
	platform, err := models.DetectPlatform(rawURL, hint)
	if err != nil {
		return models.Track{}, false, errs.InvalidCommand(err.Error())
	}

	lookup := info == nil || info.Title == ""
	if lookup {
		info = models.PlaceholderInfo(platform, rawURL)
	}

	return models.NewTrack(rawURL, platform, info, sess.UserID, uc.clock.Now()), lookup, nil
}

// AddPlaylist добавляет треки профиля или плейлиста SoundCloud одной командой
func (uc *roomUsecase) AddPlaylist(ctx context.Context, sess *runtime.Session, in *input.AddPlaylistInput) error {
	room, err := uc.joined(ctx, sess, in.RoomID)
	if err != nil {
		return err
	}
	if sess.Anonymous {
		return errs.PermissionDenied("sign in to add tracks")
	}
	if uc.playlists == nil {
		return errs.InvalidCommand("playlists are not supported")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, uc.cfg.MetadataTimeout)
	defer cancel()

	scraped, err := uc.playlists.Collection(fetchCtx, in.URL, maxPlaylistTracks)
	switch {
	case errors.Is(err, metadata.ErrNotSoundCloud), errors.Is(err, metadata.ErrNotCollection):
		return errs.InvalidCommand(err.Error())
	case err != nil:
		return errs.New(errs.KindMetadataFetchFailed, err.Error())
	}

	now := uc.clock.Now()
	tracks := make([]models.Track, 0, len(scraped))
	for _, st := range scraped {
		info := &models.TrackInfo{Title: st.Title, Artist: st.Artist}
		tracks = append(tracks, models.NewTrack(st.URL, models.PlatformSoundCloud, info, sess.UserID, now))
	}

	return room.Submit(ctx, roomstate.AddTracks{Origin: origin(sess), Tracks: tracks})
}

func (uc *roomUsecase) AddAdmin(ctx context.Context, sess *runtime.Session, in *input.AdminInput) error {
	room, err := uc.joined(ctx, sess, in.RoomID)
	if err != nil {
		return err
	}

	userID, err := uc.resolveUser(ctx, in.UserID, in.Username)
	if err != nil {
		return err
	}

	return room.Submit(ctx, roomstate.AddAdmin{Origin: origin(sess), UserID: userID})
}

func (uc *roomUsecase) RemoveAdmin(ctx context.Context, sess *runtime.Session, in *input.AdminInput) error {
	room, err := uc.joined(ctx, sess, in.RoomID)
	if err != nil {
		return err
	}

	userID, err := uc.resolveUser(ctx, in.UserID, in.Username)
	if err != nil {
		return err
	}

	return room.Submit(ctx, roomstate.RemoveAdmin{Origin: origin(sess), UserID: userID})
}

// resolveUser - пользователь по идентификатору или, если его нет, по имени
func (uc *roomUsecase) resolveUser(ctx context.Context, id uuid.UUID, username string) (uuid.UUID, error) {
	return resolveUser(ctx, uc.userRepo, id, username)
}

// PurchaseBoost гасит квитанцию и ставит буст на комнату.
// Повтор той же квитанции для той же комнаты ничего не меняет.
func (uc *roomUsecase) PurchaseBoost(ctx context.Context, sess *runtime.Session, in *input.BoostInput) error {
	room, err := uc.joined(ctx, sess, in.RoomID)
	if err != nil {
		return err
	}
	if sess.Anonymous {
		return errs.PermissionDenied("sign in to purchase a boost")
	}
	if in.Receipt == "" {
		return errs.InvalidCommand("receipt is required")
	}

	receipt, err := uc.payments.Validate(ctx, in.Receipt, room.ID(), sess.UserID)
	if err != nil {
		return errs.InvalidCommand("boost receipt is not valid")
	}

	now := uc.clock.Now()
	redeemed, err := uc.boosts.Redeem(ctx, receipt.ID, room.ID(), sess.UserID, now.Add(uc.cfg.BoostDuration))
	if errors.Is(err, errs.ErrAlreadyExists) {
		return errs.InvalidCommand("receipt was already used for another room")
	}
	if err != nil {
		return fmt.Errorf("redeem boost: %w", err)
	}
	if !redeemed.ExpiresAt.After(now) {
		return errs.InvalidCommand("boost receipt has expired")
	}

	return room.Submit(ctx, roomstate.InstallBoost{
		Origin: origin(sess),
		Purchase: adpolicy.Purchase{
			ID:          redeemed.ID,
			PurchasedBy: sess.UserID,
			ExpiresAt:   redeemed.ExpiresAt,
		},
	})
}

// LoadDeck ставит на деку трек по ссылке или трек комнаты по идентификатору
func (uc *roomUsecase) LoadDeck(ctx context.Context, sess *runtime.Session, in *input.DeckInput) error {
	room, err := uc.joined(ctx, sess, in.RoomID)
	if err != nil {
		return err
	}

	cmd := roomstate.DeckLoad{Origin: origin(sess), Deck: in.Deck, TrackID: in.TrackID}

	switch {
	case in.TrackURL != "":
		if sess.Anonymous {
			return errs.PermissionDenied("sign in to use DJ mode")
		}
		if cmd.Track, cmd.Lookup, err = uc.track(sess, in.TrackURL, in.Platform, in.TrackInfo); err != nil {
			return err
		}
	case in.TrackID == uuid.Nil:
		return errs.InvalidCommand("trackUrl or trackId is required")
	}

	return room.Submit(ctx, cmd)
}

func (uc *roomUsecase) Summary(ctx context.Context, ref string) (output.RoomSummary, error) {
	if ref == "" {
		return output.RoomSummary{}, errs.InvalidCommand("room id is required")
	}

	return uc.registry.Summary(ctx, uc.registry.Resolve(ctx, ref))
}

func origin(sess *runtime.Session) roomstate.Origin {
	return roomstate.Origin{ConnID: sess.ConnID}
}

func resolveUser(ctx context.Context, users repository.UserRepository, id uuid.UUID, username string) (uuid.UUID, error) {
	if id != uuid.Nil {
		return id, nil
	}
	if username == "" {
		return uuid.Nil, errs.InvalidCommand("userId or username is required")
	}

	u, err := users.GetUserByUsername(ctx, username)
	if errors.Is(err, errs.ErrNotFound) {
		return uuid.Nil, errs.NotFound("user not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("get user by username: %w", err)
	}

	return u.ID, nil
}
