package valkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/valkey-io/valkey-go"

	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/models"
)

const reserveAttempts = 8

var ErrCodesExhausted = errors.New("could not reserve a free short code")

func NewClient(ctx context.Context, addr, password string) (valkey.Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}

	if err = client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}

	slog.Info("connected to valkey", slog.String("addr", addr))

	return client, nil
}

// ShortCodeRepository держит коды комнат в Valkey, чтобы они были общими
// для нескольких инстансов. Код занимается через SET NX.
type ShortCodeRepository struct {
	client valkey.Client
	prefix string
}

func NewShortCodeRepository(client valkey.Client, prefix string) *ShortCodeRepository {
	return &ShortCodeRepository{client: client, prefix: prefix}
}

func (r *ShortCodeRepository) key(code string) string {
	return r.prefix + code
}

func (r *ShortCodeRepository) Reserve(ctx context.Context, roomID string) (string, error) {
	for range reserveAttempts {
		code := models.NewShortCode()

		err := r.client.Do(ctx, r.client.B().Set().Key(r.key(code)).Value(roomID).Nx().Build()).Error()
		switch {
		case err == nil:
			return code, nil
		case valkey.IsValkeyNil(err):
			continue
		default:
			return "", fmt.Errorf("reserve short code: %w", err)
		}
	}

	return "", ErrCodesExhausted
}

func (r *ShortCodeRepository) Put(ctx context.Context, code, roomID string) error {
	err := r.client.Do(ctx, r.client.B().Set().Key(r.key(code)).Value(roomID).Build()).Error()
	if err != nil {
		return fmt.Errorf("put short code: %w", err)
	}

	return nil
}

func (r *ShortCodeRepository) Resolve(ctx context.Context, code string) (string, error) {
	id, err := r.client.Do(ctx, r.client.B().Get().Key(r.key(code)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", errs.ErrNotFound
		}
		return "", fmt.Errorf("resolve short code: %w", err)
	}

	return id, nil
}
