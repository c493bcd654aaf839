package adpolicy

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/models"
)

func TestOnTrackStartCadence(t *testing.T) {
	p := New(models.DefaultTierTable(), time.Hour)

	tests := []struct {
		name        string
		tier        models.Tier
		songs       int
		wantAd      bool
		wantCounter int
	}{
		{"free every track", models.TierFree, 0, true, 0},
		{"standard first track", models.TierStandard, 0, false, 1},
		{"standard second track", models.TierStandard, 1, true, 0},
		{"pro never", models.TierPro, 41, false, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.OnTrackStart(tt.tier, tt.songs)
			if d.AdDue != tt.wantAd || d.Counter != tt.wantCounter {
				t.Fatalf("OnTrackStart() = %+v, want ad %v counter %d", d, tt.wantAd, tt.wantCounter)
			}
		})
	}
}

func TestStandardAlternates(t *testing.T) {
	p := New(models.DefaultTierTable(), time.Hour)

	counter, ads := 0, 0
	for range 6 {
		d := p.OnTrackStart(models.TierStandard, counter)
		if d.AdDue {
			ads++
		}
		counter = d.Counter
	}

	if ads != 3 {
		t.Fatalf("ads over 6 transitions = %d, want 3", ads)
	}
}

func TestApplyBoost(t *testing.T) {
	p := New(models.DefaultTierTable(), time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := Purchase{ID: uuid.New(), PurchasedBy: uuid.New()}

	b, changed := p.ApplyBoost(nil, first, now)
	if !changed || !b.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("first boost = %+v changed %v", b, changed)
	}

	later := now.Add(10 * time.Minute)
	same, changed := p.ApplyBoost(b, first, later)
	if changed || same != b {
		t.Fatal("repeating the same purchase must be a no-op")
	}

	second := Purchase{ID: uuid.New(), PurchasedBy: uuid.New()}
	ext, changed := p.ApplyBoost(b, second, later)
	if !changed || !ext.ExpiresAt.Equal(later.Add(time.Hour)) {
		t.Fatalf("extended boost = %+v, want expiry %v", ext, later.Add(time.Hour))
	}
	if ext.ExpiresAt.Sub(now) >= 2*time.Hour {
		t.Fatal("boost durations must not stack")
	}

	stale := Purchase{ID: uuid.New(), PurchasedBy: uuid.New(), ExpiresAt: now.Add(-time.Minute)}
	if kept, changed := p.ApplyBoost(nil, stale, now); changed || kept != nil {
		t.Fatalf("expired purchase installed a boost: %+v", kept)
	}

	stored := Purchase{ID: uuid.New(), PurchasedBy: uuid.New(), ExpiresAt: now.Add(20 * time.Minute)}
	if b, changed := p.ApplyBoost(nil, stored, now); !changed || !b.ExpiresAt.Equal(stored.ExpiresAt) {
		t.Fatalf("boost = %+v, want expiry from the purchase %v", b, stored.ExpiresAt)
	}

	expired := &models.Boost{ID: uuid.New(), ExpiresAt: now}
	if !Expired(expired, now) {
		t.Fatal("boost at its expiry instant must be expired")
	}
	if Expired(nil, now) {
		t.Fatal("nil boost reported as expired")
	}
}
