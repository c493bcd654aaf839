package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Luminawater/juketogether/internal/domain/errs"
)

// Redemption - погашенная квитанция. Срок буста фиксируется при первом погашении.
type Redemption struct {
	ID        uuid.UUID `db:"id"`
	RoomID    string    `db:"room_id"`
	ExpiresAt time.Time `db:"expires_at"`
	New       bool      `db:"-"`
}

// BoostLedger - журнал оплаченных бустов. Каждая квитанция погашается один раз.
type BoostLedger interface {
	// Redeem записывает квитанцию со сроком expiresAt. Повторное погашение
	// для той же комнаты возвращает сохранённую запись с New=false,
	// для другой комнаты - errs.ErrAlreadyExists.
	Redeem(ctx context.Context, receipt, roomID string, userID uuid.UUID, expiresAt time.Time) (Redemption, error)
}

type boostLedger struct {
	db *sqlx.DB
}

func NewBoostLedger(db *sqlx.DB) BoostLedger {
	return &boostLedger{db: db}
}

func (l *boostLedger) Redeem(
	ctx context.Context,
	receipt, roomID string,
	userID uuid.UUID,
	expiresAt time.Time,
) (Redemption, error) {
	var r Redemption

	err := l.db.GetContext(
		ctx,
		&r,
		`INSERT INTO boost_purchases (receipt, room_id, purchased_by, expires_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (receipt) DO NOTHING
		RETURNING id, room_id, expires_at`,
		receipt,
		roomID,
		userID,
		expiresAt,
	)
	if err == nil {
		r.New = true
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Redemption{}, fmt.Errorf("redeem boost: %w", err)
	}

	err = l.db.GetContext(
		ctx,
		&r,
		"SELECT id, room_id, expires_at FROM boost_purchases WHERE receipt = $1",
		receipt,
	)
	if err != nil {
		return Redemption{}, fmt.Errorf("get redeemed boost: %w", err)
	}

	if r.RoomID != roomID {
		return Redemption{}, errs.ErrAlreadyExists
	}

	return r, nil
}
