package roomstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/application/clock"
	"github.com/Luminawater/juketogether/internal/application/constant"
	"github.com/Luminawater/juketogether/internal/application/metric"
	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/domain/output"
	"github.com/Luminawater/juketogether/internal/domain/tempo"
)

// Repository - долговечное хранилище комнат
type Repository interface {
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	GetRoomByShortCode(ctx context.Context, code string) (*models.Room, error)
	SaveRoom(ctx context.Context, room *models.Room) error
}

// ProfileStore отдаёт текущий уровень подписки пользователя
type ProfileStore interface {
	SubscriptionTier(ctx context.Context, userID uuid.UUID) (models.Tier, error)
}

// ShortCodeIndex - соответствие коротких кодов и идентификаторов комнат
type ShortCodeIndex interface {
	Reserve(ctx context.Context, roomID string) (string, error)
	Put(ctx context.Context, code, roomID string) error
	Resolve(ctx context.Context, code string) (string, error)
}

const defaultMetadataTimeout = 2 * time.Second

// Creator - кто создаёт комнату при первом входе
type Creator struct {
	UserID uuid.UUID
	Tier   models.Tier
}

type RegistryConfig struct {
	Options

	IdleTTL         time.Duration
	EvictInterval   time.Duration
	BoostSweep      time.Duration
	AnalysisTimeout time.Duration
	MetadataTimeout time.Duration
	CommandBuffer   int
}

type RegistryDeps struct {
	Repo       Repository
	Profiles   ProfileStore
	ShortCodes ShortCodeIndex
	Ads        AdSource
	Analyzer   tempo.Analyzer
	Metadata   MetadataFetcher
	Out        Broadcaster
	Clock      clock.Clock
}

// Registry держит загруженные комнаты. Комнаты разных идентификаторов
// не разделяют изменяемого состояния, реестр только ищет их.
type Registry struct {
	cfg  RegistryConfig
	deps RegistryDeps

	mu      sync.Mutex
	rooms   map[string]*Room
	loading map[string]chan struct{}
}

func NewRegistry(cfg RegistryConfig, deps RegistryDeps) *Registry {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = defaultMetadataTimeout
	}

	return &Registry{
		cfg:     cfg,
		deps:    deps,
		rooms:   make(map[string]*Room),
		loading: make(map[string]chan struct{}),
	}
}

// Resolve превращает короткий код в идентификатор комнаты.
// Код в каноничном виде ищется сразу. Ввод в другом регистре считается кодом,
// только если комнаты с таким идентификатором нет.
func (rg *Registry) Resolve(ctx context.Context, ref string) string {
	code, ok := models.NormalizeShortCode(ref)
	if !ok {
		return ref
	}
	if code != ref && rg.exists(ctx, ref) {
		return ref
	}

	if id, ok := rg.resolveCode(ctx, code); ok {
		return id
	}

	return ref
}

func (rg *Registry) exists(ctx context.Context, id string) bool {
	if _, ok := rg.Lookup(id); ok {
		return true
	}
	_, err := rg.deps.Repo.GetRoom(ctx, id)

	return err == nil
}

// resolveCode ищет код в индексе, а при промахе в хранилище комнат и
// возвращает найденный код в индекс. Индекс в памяти пуст после перезапуска.
func (rg *Registry) resolveCode(ctx context.Context, code string) (string, bool) {
	if id, err := rg.deps.ShortCodes.Resolve(ctx, code); err == nil {
		return id, true
	}

	stored, err := rg.deps.Repo.GetRoomByShortCode(ctx, code)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			slog.Warn("resolve short code", slog.Any(constant.Error, err), slog.String("code", code))
		}
		return "", false
	}

	if err = rg.deps.ShortCodes.Put(ctx, code, stored.ID); err != nil {
		slog.Warn(
			"index short code",
			slog.Any(constant.Error, err),
			slog.String(constant.RoomID, stored.ID),
		)
	}

	return stored.ID, true
}

// Lookup возвращает живую комнату без загрузки из хранилища
func (rg *Registry) Lookup(id string) (*Room, bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	r, ok := rg.rooms[id]
	if !ok || r.Closed() {
		return nil, false
	}

	return r, true
}

// GetOrLoad отдаёт живую комнату, поднимает её из хранилища или создаёт.
// Создать комнату может только аутентифицированный пользователь (creator != nil).
func (rg *Registry) GetOrLoad(ctx context.Context, id string, creator *Creator) (*Room, error) {
	if id == "" {
		return nil, errs.InvalidCommand("room id is required")
	}

	for {
		rg.mu.Lock()

		if r, ok := rg.rooms[id]; ok {
			rg.mu.Unlock()
			if !r.Closed() {
				return r, nil
			}

			// комната выселяется, ждём сохранения и грузим заново
			select {
			case <-r.released:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if ch, ok := rg.loading[id]; ok {
			rg.mu.Unlock()
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		ch := make(chan struct{})
		rg.loading[id] = ch
		rg.mu.Unlock()

		r, err := rg.load(ctx, id, creator)

		rg.mu.Lock()
		delete(rg.loading, id)
		if err == nil {
			rg.rooms[id] = r
		}
		close(ch)
		rg.mu.Unlock()

		if err != nil {
			return nil, err
		}

		metric.IncrementRoomsActive()
		go r.run()

		return r, nil
	}
}

func (rg *Registry) load(ctx context.Context, id string, creator *Creator) (*Room, error) {
	now := rg.deps.Clock.Now()

	stored, err := rg.deps.Repo.GetRoom(ctx, id)
	switch {
	case err == nil:
		rg.refresh(ctx, stored)
	case errors.Is(err, errs.ErrNotFound):
		if creator == nil {
			return nil, errs.NotFound("room not found")
		}

		code, err := rg.deps.ShortCodes.Reserve(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reserve short code: %w", err)
		}

		stored = models.NewRoom(id, code, creator.UserID, creator.Tier, now)
		if err = rg.deps.Repo.SaveRoom(ctx, stored); err != nil {
			return nil, fmt.Errorf("save new room: %w", err)
		}

		slog.Info(
			"room created",
			slog.String(constant.RoomID, id),
			slog.Any(constant.UserID, creator.UserID),
		)
	default:
		return nil, fmt.Errorf("get room: %w", err)
	}

	state := NewState(stored, rg.cfg.Options, rg.deps.Ads, now)

	return newRoom(state, roomDeps{
		clock:           rg.deps.Clock,
		out:             rg.deps.Out,
		analyzer:        rg.deps.Analyzer,
		analysisTimeout: rg.cfg.AnalysisTimeout,
		metadata:        rg.deps.Metadata,
		metadataTimeout: rg.cfg.MetadataTimeout,
		boostSweep:      rg.cfg.BoostSweep,
		commandBuffer:   rg.cfg.CommandBuffer,
	}), nil
}

// refresh подтягивает актуальный уровень владельца и прогревает индекс кодов
func (rg *Registry) refresh(ctx context.Context, room *models.Room) {
	if tier, err := rg.deps.Profiles.SubscriptionTier(ctx, room.OwnerID); err == nil {
		room.CreatorTier = tier
	} else {
		slog.Warn(
			"refresh creator tier",
			slog.Any(constant.Error, err),
			slog.String(constant.RoomID, room.ID),
		)
	}

	if room.ShortCode == "" {
		return
	}
	if err := rg.deps.ShortCodes.Put(ctx, room.ShortCode, room.ID); err != nil {
		slog.Warn(
			"index short code",
			slog.Any(constant.Error, err),
			slog.String(constant.RoomID, room.ID),
		)
	}
}

// Summary - сведения о комнате: из памяти, если она загружена, иначе из хранилища
func (rg *Registry) Summary(ctx context.Context, id string) (output.RoomSummary, error) {
	if r, ok := rg.Lookup(id); ok {
		s, err := r.Summary(ctx)
		if err == nil {
			return s, nil
		}
	}

	stored, err := rg.deps.Repo.GetRoom(ctx, id)
	if err != nil {
		return output.RoomSummary{}, err
	}

	return output.RoomSummary{
		ID:            stored.ID,
		ShortCode:     stored.ShortCode,
		OwnerID:       stored.OwnerID,
		Settings:      stored.Settings,
		EffectiveTier: models.EffectiveTier(stored.CreatorTier, stored.ActiveBoost, rg.deps.Clock.Now()),
		QueueLength:   len(stored.Queue),
	}, nil
}

// Run периодически выселяет простаивающие комнаты, пока жив ctx
func (rg *Registry) Run(ctx context.Context) {
	ticker := rg.deps.Clock.NewTicker(rg.cfg.EvictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rg.EvictIdle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// EvictIdle сохраняет и выгружает комнаты без участников и активного буста,
// простаивающие дольше IdleTTL.
func (rg *Registry) EvictIdle(ctx context.Context) int {
	evicted := 0

	for _, r := range rg.snapshotRooms() {
		room, ok := r.tryEvict(ctx, rg.cfg.IdleTTL)
		if !ok {
			continue
		}

		if err := rg.deps.Repo.SaveRoom(ctx, room); err != nil {
			slog.Error(
				"persist evicted room",
				slog.Any(constant.Error, err),
				slog.String(constant.RoomID, r.ID()),
			)
		}

		rg.forget(r)
		evicted++

		slog.Debug("room evicted", slog.String(constant.RoomID, r.ID()))
	}

	return evicted
}

// Close сохраняет все комнаты и останавливает их акторы
func (rg *Registry) Close(ctx context.Context) error {
	var errsList []error

	for _, r := range rg.snapshotRooms() {
		if r.Closed() {
			continue
		}

		room, err := r.durable(ctx)
		r.Stop()

		if err == nil {
			err = rg.deps.Repo.SaveRoom(ctx, room)
		}
		if err != nil {
			errsList = append(errsList, fmt.Errorf("room %s: %w", r.ID(), err))
		}

		rg.forget(r)
	}

	return errors.Join(errsList...)
}

func (rg *Registry) forget(r *Room) {
	rg.mu.Lock()
	if rg.rooms[r.ID()] == r {
		delete(rg.rooms, r.ID())
		metric.DecrementRoomsActive()
	}
	rg.mu.Unlock()

	r.release()
}

func (rg *Registry) snapshotRooms() []*Room {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	out := make([]*Room, 0, len(rg.rooms))
	for _, r := range rg.rooms {
		out = append(out, r)
	}

	return out
}

// Len - количество загруженных комнат
func (rg *Registry) Len() int {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	return len(rg.rooms)
}
