package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/models"
)

const reserveAttempts = 8

var ErrCodesExhausted = errors.New("could not reserve a free short code")

// ShortCodeRepository - индекс коротких кодов в памяти процесса.
// Используется, когда Valkey не настроен.
type ShortCodeRepository struct {
	codes map[string]string

	mu sync.RWMutex
}

func NewShortCodeRepository() *ShortCodeRepository {
	return &ShortCodeRepository{codes: make(map[string]string)}
}

func (r *ShortCodeRepository) Reserve(_ context.Context, roomID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range reserveAttempts {
		code := models.NewShortCode()
		if _, taken := r.codes[code]; taken {
			continue
		}

		r.codes[code] = roomID

		return code, nil
	}

	return "", ErrCodesExhausted
}

func (r *ShortCodeRepository) Put(_ context.Context, code, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codes[code] = roomID

	return nil
}

func (r *ShortCodeRepository) Resolve(_ context.Context, code string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.codes[code]
	if !ok {
		return "", errs.ErrNotFound
	}

	return id, nil
}
