package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/models"
)

type FriendRepository interface {
	// SendRequest создаёт заявку. Встречная заявка сразу превращается в дружбу.
	SendRequest(ctx context.Context, from, to uuid.UUID) error
	Accept(ctx context.Context, requester, addressee uuid.UUID) error
	Reject(ctx context.Context, requester, addressee uuid.UUID) error
	Remove(ctx context.Context, a, b uuid.UUID) error

	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
	List(ctx context.Context, userID uuid.UUID) (models.FriendsList, error)
}

type friendRepo struct {
	db *sqlx.DB
}

func NewFriendRepo(db *sqlx.DB) FriendRepository {
	return &friendRepo{db: db}
}

func (r *friendRepo) SendRequest(ctx context.Context, from, to uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin friend request: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		"UPDATE friendships SET status = $1 WHERE requester_id = $2 AND addressee_id = $3 AND status = $4",
		models.FriendshipAccepted,
		to,
		from,
		models.FriendshipPending,
	)
	if err != nil {
		return fmt.Errorf("accept reverse request: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO friendships (requester_id, addressee_id, status) VALUES ($1, $2, $3)
			ON CONFLICT (requester_id, addressee_id) DO NOTHING`,
			from,
			to,
			models.FriendshipPending,
		)
		if err != nil {
			return fmt.Errorf("insert friend request: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit friend request: %w", err)
	}

	return nil
}

func (r *friendRepo) Accept(ctx context.Context, requester, addressee uuid.UUID) error {
	res, err := r.db.ExecContext(
		ctx,
		"UPDATE friendships SET status = $1 WHERE requester_id = $2 AND addressee_id = $3 AND status = $4",
		models.FriendshipAccepted,
		requester,
		addressee,
		models.FriendshipPending,
	)
	if err != nil {
		return fmt.Errorf("accept friend request: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}

	return nil
}

func (r *friendRepo) Reject(ctx context.Context, requester, addressee uuid.UUID) error {
	res, err := r.db.ExecContext(
		ctx,
		"DELETE FROM friendships WHERE requester_id = $1 AND addressee_id = $2 AND status = $3",
		requester,
		addressee,
		models.FriendshipPending,
	)
	if err != nil {
		return fmt.Errorf("reject friend request: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}

	return nil
}

func (r *friendRepo) Remove(ctx context.Context, a, b uuid.UUID) error {
	_, err := r.db.ExecContext(
		ctx,
		`DELETE FROM friendships
		WHERE (requester_id = $1 AND addressee_id = $2) OR (requester_id = $2 AND addressee_id = $1)`,
		a,
		b,
	)
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}

	return nil
}

func (r *friendRepo) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var ok bool

	err := r.db.GetContext(
		ctx,
		&ok,
		`SELECT EXISTS (
			SELECT 1 FROM friendships
			WHERE status = $3
			  AND ((requester_id = $1 AND addressee_id = $2) OR (requester_id = $2 AND addressee_id = $1))
		)`,
		a,
		b,
		models.FriendshipAccepted,
	)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}

	return ok, nil
}

type friendRow struct {
	models.Friend
	Direction string                  `db:"direction"`
	Status    models.FriendshipStatus `db:"status"`
}

func (r *friendRepo) List(ctx context.Context, userID uuid.UUID) (models.FriendsList, error) {
	var rows []friendRow

	err := r.db.SelectContext(
		ctx,
		&rows,
		`SELECT u.id, u.username, 'out' AS direction, f.status
		FROM friendships f JOIN users u ON u.id = f.addressee_id
		WHERE f.requester_id = $1
		UNION ALL
		SELECT u.id, u.username, 'in' AS direction, f.status
		FROM friendships f JOIN users u ON u.id = f.requester_id
		WHERE f.addressee_id = $1
		ORDER BY username`,
		userID,
	)
	if err != nil {
		return models.FriendsList{}, fmt.Errorf("list friends: %w", err)
	}

	list := models.FriendsList{
		Friends:  []models.Friend{},
		Incoming: []models.Friend{},
		Outgoing: []models.Friend{},
	}

	for _, row := range rows {
		switch {
		case row.Status == models.FriendshipAccepted:
			list.Friends = append(list.Friends, row.Friend)
		case row.Direction == "in":
			list.Incoming = append(list.Incoming, row.Friend)
		default:
			list.Outgoing = append(list.Outgoing, row.Friend)
		}
	}

	return list, nil
}
