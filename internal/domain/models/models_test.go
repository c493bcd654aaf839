package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url     string
		hint    Platform
		want    Platform
		wantErr bool
	}{
		{url: "https://soundcloud.com/artist/track", want: PlatformSoundCloud},
		{url: "https://www.youtube.com/watch?v=abc", want: PlatformYouTube},
		{url: "https://youtu.be/abc", want: PlatformYouTube},
		{url: "https://open.spotify.com/track/123", want: PlatformSpotify},
		{url: "https://cdn.example.com/a.mp3", hint: PlatformSoundCloud, want: PlatformSoundCloud},
		{url: "https://cdn.example.com/a.mp3", wantErr: true},
		{url: "not a url", wantErr: true},
		{url: "ftp://soundcloud.com/x", wantErr: true},
	}

	for _, tt := range tests {
		got, err := DetectPlatform(tt.url, tt.hint)
		if (err != nil) != tt.wantErr {
			t.Fatalf("DetectPlatform(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("DetectPlatform(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}

	if _, err := DetectPlatform("https://example.org/x", ""); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("unknown host error = %v, want ErrUnsupportedPlatform", err)
	}
}

func TestTierTable(t *testing.T) {
	tt := DefaultTierTable()

	if l := tt.QueueLimit(TierFree); l.Unbounded || l.Max != 1 {
		t.Fatalf("free limit = %+v, want 1", l)
	}
	if l := tt.QueueLimit(TierStandard); l.Unbounded || l.Max != 10 {
		t.Fatalf("standard limit = %+v, want 10", l)
	}
	if l := tt.QueueLimit(TierPro); !l.Unbounded {
		t.Fatalf("pro limit = %+v, want unbounded", l)
	}
	if got := tt.AdEvery(TierPro); got != 0 {
		t.Fatalf("pro ad cadence = %d, want 0", got)
	}
}

func TestLimitJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Limit `json:"a"`
		B Limit `json:"b"`
	}{LimitOf(10), Unbounded()})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got, want := string(b), `{"a":10,"b":null}`; got != want {
		t.Fatalf("Marshal = %s, want %s", got, want)
	}
}

func TestLimitAllows(t *testing.T) {
	if !LimitOf(1).Allows(0) {
		t.Fatal("limit 1 should allow an empty queue")
	}
	if LimitOf(1).Allows(1) {
		t.Fatal("limit 1 should block a queue of 1")
	}
	if !Unbounded().Allows(1 << 20) {
		t.Fatal("unbounded limit blocked")
	}
}

func TestEffectiveTierExpiresExactly(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	boost := &Boost{ID: uuid.New(), ExpiresAt: now.Add(time.Hour)}

	if got := EffectiveTier(TierFree, boost, now); got != TierPro {
		t.Fatalf("EffectiveTier before expiry = %v, want pro", got)
	}
	if got := EffectiveTier(TierFree, boost, now.Add(time.Hour)); got != TierFree {
		t.Fatalf("EffectiveTier at expiry = %v, want free", got)
	}
	if got := EffectiveTier(TierStandard, nil, now); got != TierStandard {
		t.Fatalf("EffectiveTier without boost = %v, want standard", got)
	}
}

func TestSettingsNormalize(t *testing.T) {
	s := RoomSettings{DJMode: true, DJPlayers: 9}.Normalize()
	if s.DJPlayers != MaxDJPlayers {
		t.Fatalf("DJPlayers = %d, want %d", s.DJPlayers, MaxDJPlayers)
	}

	s = RoomSettings{DJMode: false, DJPlayers: 3}.Normalize()
	if s.DJPlayers != 0 {
		t.Fatalf("DJPlayers without djMode = %d, want 0", s.DJPlayers)
	}
}

func TestSettingsPatchOwnerFields(t *testing.T) {
	cur := DefaultRoomSettings()
	yes, no := true, false

	if (SettingsPatch{AllowQueue: &no}).TouchesOwnerSettings(cur) {
		t.Fatal("allowQueue is not an owner setting")
	}
	if !(SettingsPatch{IsPrivate: &yes}).TouchesOwnerSettings(cur) {
		t.Fatal("isPrivate change must be owner-only")
	}
	if (SettingsPatch{SessionEnabled: &yes}).TouchesOwnerSettings(cur) {
		t.Fatal("unchanged sessionEnabled must not count as a change")
	}
}

func TestPlaybackPositionAt(t *testing.T) {
	now := time.Unix(1000, 0)
	p := PlaybackState{IsPlaying: true, PositionMs: 1000, DurationMs: 5000, UpdatedAt: now}

	if got := p.PositionAt(now.Add(2 * time.Second)); got != 3000 {
		t.Fatalf("PositionAt = %d, want 3000", got)
	}
	if got := p.PositionAt(now.Add(time.Minute)); got != 5000 {
		t.Fatalf("PositionAt past end = %d, want 5000", got)
	}

	p.IsPlaying = false
	if got := p.PositionAt(now.Add(time.Minute)); got != 1000 {
		t.Fatalf("paused PositionAt = %d, want 1000", got)
	}
}

func TestShortCode(t *testing.T) {
	code := NewShortCode()
	if got, ok := NormalizeShortCode(code); !ok || got != code {
		t.Fatalf("NormalizeShortCode(%q) = %q, %v", code, got, ok)
	}

	if got, ok := NormalizeShortCode(" abc234 "); !ok || got != "ABC234" {
		t.Fatalf("NormalizeShortCode(lowercase) = %q, %v", got, ok)
	}
	if _, ok := NormalizeShortCode("ABC10O"); ok {
		t.Fatal("ambiguous characters accepted")
	}
	if _, ok := NormalizeShortCode("my-long-room-id"); ok {
		t.Fatal("room id accepted as a short code")
	}
}
