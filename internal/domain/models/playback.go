package models

import "time"

// PlaybackState - состояние воспроизведения. PositionMs зафиксирована
// в момент UpdatedAt, текущую позицию даёт PositionAt.
type PlaybackState struct {
	CurrentTrack            *Track    `json:"currentTrack"`
	IsPlaying               bool      `json:"isPlaying"`
	PositionMs              int64     `json:"position"`
	DurationMs              int64     `json:"duration"`
	SongsSincePlaybackStart int       `json:"songsSincePlaybackStart"`
	UpdatedAt               time.Time `json:"positionUpdatedAt"`
}

func (p PlaybackState) PositionAt(now time.Time) int64 {
	pos := p.PositionMs
	if p.IsPlaying && now.After(p.UpdatedAt) {
		pos += now.Sub(p.UpdatedAt).Milliseconds()
	}
	if p.DurationMs > 0 && pos > p.DurationMs {
		pos = p.DurationMs
	}

	return pos
}

// Projected возвращает копию с позицией, пересчитанной на момент now.
func (p PlaybackState) Projected(now time.Time) PlaybackState {
	p.PositionMs = p.PositionAt(now)
	p.UpdatedAt = now

	return p
}
