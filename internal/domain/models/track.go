package models

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Platform string

const (
	PlatformSoundCloud Platform = "soundcloud"
	PlatformSpotify    Platform = "spotify"
	PlatformYouTube    Platform = "youtube"
)

var ErrUnsupportedPlatform = errors.New("unsupported platform")

func (p Platform) Valid() bool {
	switch p {
	case PlatformSoundCloud, PlatformSpotify, PlatformYouTube:
		return true
	}

	return false
}

// DetectPlatform определяет платформу по хосту ссылки.
// Если хост неизвестен, используется hint от клиента.
func DetectPlatform(rawURL string, hint Platform) (Platform, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.New("invalid track url")
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	switch {
	case host == "soundcloud.com" || host == "on.soundcloud.com" || strings.HasSuffix(host, ".sndcdn.com"):
		return PlatformSoundCloud, nil
	case host == "open.spotify.com" || host == "spotify.com" || host == "spotify.link":
		return PlatformSpotify, nil
	case host == "youtube.com" || host == "youtu.be" || host == "music.youtube.com":
		return PlatformYouTube, nil
	}

	if hint.Valid() {
		return hint, nil
	}

	return "", ErrUnsupportedPlatform
}

type TrackInfo struct {
	Title      string   `json:"title"`
	Artist     string   `json:"artist,omitempty"`
	Thumbnail  string   `json:"thumbnail,omitempty"`
	DurationMs int64    `json:"duration,omitempty"`
	BPM        *float64 `json:"bpm,omitempty"`
}

// PlaceholderInfo используется, когда метаданные получить не удалось.
func PlaceholderInfo(p Platform, rawURL string) *TrackInfo {
	title := "Unknown track"
	switch p {
	case PlatformSoundCloud:
		title = "SoundCloud track"
	case PlatformSpotify:
		title = "Spotify track"
	case PlatformYouTube:
		title = "YouTube video"
	}

	return &TrackInfo{Title: title, Artist: rawURL}
}

type Track struct {
	ID       uuid.UUID  `json:"id"`
	URL      string     `json:"url"`
	Platform Platform   `json:"platform"`
	Info     *TrackInfo `json:"info,omitempty"`
	AddedBy  uuid.UUID  `json:"addedBy"`
	AddedAt  time.Time  `json:"addedAt"`
}

func NewTrack(rawURL string, platform Platform, info *TrackInfo, addedBy uuid.UUID, now time.Time) Track {
	return Track{
		ID:       uuid.New(),
		URL:      rawURL,
		Platform: platform,
		Info:     info,
		AddedBy:  addedBy,
		AddedAt:  now,
	}
}

func (t Track) DurationMs() int64 {
	if t.Info == nil {
		return 0
	}

	return t.Info.DurationMs
}
