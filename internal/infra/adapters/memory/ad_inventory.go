package memory

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/models"
)

const (
	DefaultAdURL        = "/static/ads/juketogether-upgrade.mp3"
	DefaultAdDurationMs = 15_000
)

// AdInventory раздаёт ролики по кругу. Потокобезопасен, не блокирует.
type AdInventory struct {
	creatives []string
	next      atomic.Uint64
}

func NewAdInventory(creatives []string) *AdInventory {
	cleaned := make([]string, 0, len(creatives))
	for _, c := range creatives {
		if c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultAdURL)
	}

	return &AdInventory{creatives: cleaned}
}

func (a *AdInventory) Next(models.Tier) models.Ad {
	i := a.next.Add(1) - 1

	return models.Ad{
		ID:         uuid.New(),
		URL:        a.creatives[i%uint64(len(a.creatives))],
		DurationMs: DefaultAdDurationMs,
	}
}
