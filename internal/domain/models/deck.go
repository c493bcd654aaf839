package models

import "time"

const MaxDJPlayers = 4

type DJDeck struct {
	Index      int       `json:"index"`
	Track      *Track    `json:"track"`
	IsPlaying  bool      `json:"isPlaying"`
	PositionMs int64     `json:"position"`
	DurationMs int64     `json:"duration"`
	Volume     float64   `json:"volume"`
	BPM        *float64  `json:"bpm"`
	UpdatedAt  time.Time `json:"positionUpdatedAt"`
}

func (d DJDeck) PositionAt(now time.Time) int64 {
	pos := d.PositionMs
	if d.IsPlaying && now.After(d.UpdatedAt) {
		pos += now.Sub(d.UpdatedAt).Milliseconds()
	}
	if d.DurationMs > 0 && pos > d.DurationMs {
		pos = d.DurationMs
	}

	return pos
}
