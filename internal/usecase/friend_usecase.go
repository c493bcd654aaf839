package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/application/constant"
	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/events"
	"github.com/Luminawater/juketogether/internal/domain/input"
	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/infra/adapters/memory"
	"github.com/Luminawater/juketogether/internal/infra/adapters/postgres/repository"
)

// FriendUsecase - заявки в друзья. После каждого изменения обе стороны
// получают свежий friendsList во все свои соединения.
type FriendUsecase interface {
	SendRequest(ctx context.Context, userID uuid.UUID, in *input.FriendInput) error
	Accept(ctx context.Context, userID uuid.UUID, in *input.FriendInput) error
	Reject(ctx context.Context, userID uuid.UUID, in *input.FriendInput) error
	Remove(ctx context.Context, userID uuid.UUID, in *input.FriendInput) error

	List(ctx context.Context, userID uuid.UUID) (models.FriendsList, error)
	PushList(ctx context.Context, userID uuid.UUID)
}

type friendUsecase struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	wsRepo     memory.WebsocketConnectionRepository
}

func NewFriendUsecase(
	userRepo repository.UserRepository,
	friendRepo repository.FriendRepository,
	wsRepo memory.WebsocketConnectionRepository,
) FriendUsecase {
	return &friendUsecase{
		userRepo:   userRepo,
		friendRepo: friendRepo,
		wsRepo:     wsRepo,
	}
}

func (uc *friendUsecase) SendRequest(ctx context.Context, userID uuid.UUID, in *input.FriendInput) error {
	return uc.change(ctx, userID, in, uc.friendRepo.SendRequest)
}

// Accept принимает заявку от in
func (uc *friendUsecase) Accept(ctx context.Context, userID uuid.UUID, in *input.FriendInput) error {
	return uc.change(ctx, userID, in, func(ctx context.Context, me, other uuid.UUID) error {
		return uc.friendRepo.Accept(ctx, other, me)
	})
}

// Reject отклоняет заявку от in
func (uc *friendUsecase) Reject(ctx context.Context, userID uuid.UUID, in *input.FriendInput) error {
	return uc.change(ctx, userID, in, func(ctx context.Context, me, other uuid.UUID) error {
		return uc.friendRepo.Reject(ctx, other, me)
	})
}

func (uc *friendUsecase) Remove(ctx context.Context, userID uuid.UUID, in *input.FriendInput) error {
	return uc.change(ctx, userID, in, uc.friendRepo.Remove)
}

func (uc *friendUsecase) change(
	ctx context.Context,
	userID uuid.UUID,
	in *input.FriendInput,
	apply func(ctx context.Context, me, other uuid.UUID) error,
) error {
	other, err := resolveUser(ctx, uc.userRepo, in.UserID, in.Username)
	if err != nil {
		return err
	}
	if other == userID {
		return errs.InvalidCommand("you cannot befriend yourself")
	}

	if _, err = uc.userRepo.GetUserByID(ctx, other); err != nil {
		return errs.NotFound("user not found")
	}

	err = apply(ctx, userID, other)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.NotFound("friend request not found")
	}
	if err != nil {
		return fmt.Errorf("update friendship: %w", err)
	}

	uc.PushList(ctx, userID)
	uc.PushList(ctx, other)

	return nil
}

func (uc *friendUsecase) List(ctx context.Context, userID uuid.UUID) (models.FriendsList, error) {
	return uc.friendRepo.List(ctx, userID)
}

// PushList отправляет список друзей во все соединения пользователя
func (uc *friendUsecase) PushList(ctx context.Context, userID uuid.UUID) {
	list, err := uc.friendRepo.List(ctx, userID)
	if err != nil {
		slog.Warn(
			"load friends list",
			slog.Any(constant.Error, err),
			slog.Any(constant.UserID, userID),
		)
		return
	}

	uc.wsRepo.SendToUser(userID, events.Event{Type: events.EvtFriendsList, Data: list})
}
