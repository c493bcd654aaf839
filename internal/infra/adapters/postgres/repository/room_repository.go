package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Luminawater/juketogether/internal/domain/models"
)

type RoomRepository interface {
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	SaveRoom(ctx context.Context, room *models.Room) error
	GetRoomByShortCode(ctx context.Context, code string) (*models.Room, error)
}

type roomRepo struct {
	db *sqlx.DB
}

func NewRoomRepo(db *sqlx.DB) RoomRepository {
	return &roomRepo{db: db}
}

// roomRow - строка rooms, составные поля лежат в JSONB
type roomRow struct {
	ID          string         `db:"id"`
	ShortCode   sql.NullString `db:"short_code"`
	OwnerID     uuid.UUID      `db:"owner_id"`
	CreatorTier models.Tier    `db:"creator_tier"`
	Settings    []byte         `db:"settings"`
	Queue       []byte         `db:"queue"`
	History     []byte         `db:"history"`
	ActiveBoost []byte         `db:"active_boost"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

const roomColumns = "id, short_code, owner_id, creator_tier, settings, queue, history, active_boost, created_at, updated_at"

func (row *roomRow) toModel() (*models.Room, error) {
	room := &models.Room{
		ID:          row.ID,
		ShortCode:   row.ShortCode.String,
		OwnerID:     row.OwnerID,
		AdminIDs:    []uuid.UUID{},
		Settings:    models.DefaultRoomSettings(),
		CreatorTier: row.CreatorTier,
		Queue:       []models.Track{},
		History:     []models.Track{},
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}

	if err := json.Unmarshal(row.Settings, &room.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := json.Unmarshal(row.Queue, &room.Queue); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	if err := json.Unmarshal(row.History, &room.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if len(row.ActiveBoost) > 0 {
		if err := json.Unmarshal(row.ActiveBoost, &room.ActiveBoost); err != nil {
			return nil, fmt.Errorf("decode boost: %w", err)
		}
	}

	return room, nil
}

func (r *roomRepo) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	return r.getRoom(ctx, "id", id)
}

// GetRoomByShortCode - комната по короткому коду, когда индекс кодов его не знает
func (r *roomRepo) GetRoomByShortCode(ctx context.Context, code string) (*models.Room, error) {
	return r.getRoom(ctx, "short_code", code)
}

func (r *roomRepo) getRoom(ctx context.Context, column, value string) (*models.Room, error) {
	var row roomRow

	err := r.db.GetContext(ctx, &row, "SELECT "+roomColumns+" FROM rooms WHERE "+column+" = $1", value)
	if err != nil {
		return nil, notFound(err, "get room")
	}

	room, err := row.toModel()
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", row.ID, err)
	}

	err = r.db.SelectContext(
		ctx,
		&room.AdminIDs,
		"SELECT user_id FROM room_admins WHERE room_id = $1 ORDER BY created_at",
		room.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get room admins: %w", err)
	}

	return room, nil
}

// SaveRoom вставляет или обновляет комнату и целиком заменяет список админов
func (r *roomRepo) SaveRoom(ctx context.Context, room *models.Room) error {
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	queue, err := json.Marshal(nonNil(room.Queue))
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	history, err := json.Marshal(nonNil(room.History))
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	var boost []byte
	if room.ActiveBoost != nil {
		if boost, err = json.Marshal(room.ActiveBoost); err != nil {
			return fmt.Errorf("encode boost: %w", err)
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save room: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO rooms (`+roomColumns+`)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			short_code = EXCLUDED.short_code,
			creator_tier = EXCLUDED.creator_tier,
			settings = EXCLUDED.settings,
			queue = EXCLUDED.queue,
			history = EXCLUDED.history,
			active_boost = EXCLUDED.active_boost,
			updated_at = EXCLUDED.updated_at`,
		room.ID,
		room.ShortCode,
		room.OwnerID,
		room.CreatorTier,
		settings,
		queue,
		history,
		boost,
		room.CreatedAt,
		room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM room_admins WHERE room_id = $1", room.ID); err != nil {
		return fmt.Errorf("clear room admins: %w", err)
	}

	for _, adminID := range room.AdminIDs {
		_, err = tx.ExecContext(
			ctx,
			"INSERT INTO room_admins (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			room.ID,
			adminID,
		)
		if err != nil {
			return fmt.Errorf("insert room admin: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save room: %w", err)
	}

	return nil
}

func nonNil(tracks []models.Track) []models.Track {
	if tracks == nil {
		return []models.Track{}
	}

	return tracks
}
