// Package adpolicy решает, когда вставлять рекламу между треками,
// и ведёт временные бусты уровня комнаты.
package adpolicy

import (
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/models"
)

type Policy struct {
	table         models.TierTable
	boostDuration time.Duration
}

func New(table models.TierTable, boostDuration time.Duration) Policy {
	return Policy{table: table, boostDuration: boostDuration}
}

func (p Policy) Table() models.TierTable { return p.table }

// Decision - результат проверки на переходе к следующему треку
type Decision struct {
	AdDue   bool
	Counter int
}

// OnTrackStart вызывается ровно один раз на каждый next-track до того,
// как новый трек отмечен играющим. Счётчик сбрасывается в 0 после рекламы.
func (p Policy) OnTrackStart(tier models.Tier, songsSince int) Decision {
	every := p.table.AdEvery(tier)
	next := songsSince + 1

	if every <= 0 {
		return Decision{Counter: next}
	}
	if next >= every {
		return Decision{AdDue: true}
	}

	return Decision{Counter: next}
}

// Purchase - подтверждённая оплата буста. ExpiresAt задаёт журнал покупок,
// нулевое значение означает now+boostDuration.
type Purchase struct {
	ID          uuid.UUID
	PurchasedBy uuid.UUID
	ExpiresAt   time.Time
}

// ApplyBoost ставит буст на комнату. Повтор той же покупки ничего не меняет,
// истёкшая покупка не ставится. Новая покупка при активном бусте продлевает
// срок до своего, но никогда не укорачивает текущий и не суммирует сроки.
func (p Policy) ApplyBoost(current *models.Boost, purchase Purchase, now time.Time) (*models.Boost, bool) {
	if current.Active(now) && current.ID == purchase.ID {
		return current, false
	}

	expires := purchase.ExpiresAt
	if expires.IsZero() {
		expires = now.Add(p.boostDuration)
	}
	if !expires.After(now) {
		return current, false
	}
	if current.Active(now) && current.ExpiresAt.After(expires) {
		expires = current.ExpiresAt
	}

	return &models.Boost{
		ID:          purchase.ID,
		PurchasedBy: purchase.PurchasedBy,
		ExpiresAt:   expires,
	}, true
}

// Expired - буст установлен, но его срок вышел
func Expired(b *models.Boost, now time.Time) bool {
	return b != nil && !b.Active(now)
}
