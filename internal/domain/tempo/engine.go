package tempo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/models"
)

// Analyzer определяет BPM трека. Вызывается вне актора комнаты.
type Analyzer interface {
	AnalyzeBPM(ctx context.Context, track models.Track) (float64, error)
}

type Confidence string

const (
	ConfidenceBeat     Confidence = "beat"
	ConfidencePosition Confidence = "position"
)

type SyncResult struct {
	Source     int        `json:"source"`
	Target     int        `json:"target"`
	OffsetMs   float64    `json:"offset"`
	PositionMs int64      `json:"position"`
	Confidence Confidence `json:"confidence"`
}

// Engine - деки комнаты. Не потокобезопасен, им владеет актор комнаты.
type Engine struct {
	decks [models.MaxDJPlayers]models.DJDeck
}

func NewEngine() *Engine {
	e := &Engine{}
	e.Reset()

	return e
}

// Reset выгружает все деки
func (e *Engine) Reset() {
	for i := range e.decks {
		e.decks[i] = models.DJDeck{Index: i, Volume: 1}
	}
}

// Decks возвращает первые n дек с позицией на момент now
func (e *Engine) Decks(n int, now time.Time) []models.DJDeck {
	n = max(0, min(n, models.MaxDJPlayers))
	out := make([]models.DJDeck, n)
	for i := range n {
		out[i] = e.deckAt(i, now)
	}

	return out
}

func (e *Engine) Deck(i int, now time.Time) models.DJDeck { return e.deckAt(i, now) }

func (e *Engine) deckAt(i int, now time.Time) models.DJDeck {
	d := e.decks[i]
	d.PositionMs = d.PositionAt(now)
	d.UpdatedAt = now

	return d
}

// CheckIndex проверяет, что дека существует при текущем djPlayers
func CheckIndex(i, djPlayers int) error {
	if i < 0 || i >= djPlayers {
		return errs.InvalidCommand(fmt.Sprintf("deck %d is not available, room has %d players", i, djPlayers))
	}

	return nil
}

// Load ставит трек на деку. BPM берётся из метаданных, если он известен,
// иначе сбрасывается до ответа анализатора.
func (e *Engine) Load(i int, t models.Track, now time.Time) {
	d := &e.decks[i]
	d.Track = &t
	d.IsPlaying = false
	d.PositionMs = 0
	d.DurationMs = t.DurationMs()
	d.UpdatedAt = now
	d.BPM = nil

	if t.Info != nil && t.Info.BPM != nil && *t.Info.BPM > 0 {
		bpm := *t.Info.BPM
		d.BPM = &bpm
	}
}

// SetBPM принимает результат анализа. Устаревшие ответы (трек на деке
// уже сменился) отбрасываются.
func (e *Engine) SetBPM(i int, trackID uuid.UUID, bpm float64) bool {
	d := &e.decks[i]
	if d.Track == nil || d.Track.ID != trackID || bpm <= 0 {
		return false
	}

	d.BPM = &bpm

	return true
}

// UpdateInfo подменяет метаданные трека на деках и возвращает их индексы
func (e *Engine) UpdateInfo(trackID uuid.UUID, info models.TrackInfo) []int {
	var changed []int
	for i := range e.decks {
		d := &e.decks[i]
		if d.Track == nil || d.Track.ID != trackID {
			continue
		}

		t := *d.Track
		in := info
		t.Info = &in
		d.Track = &t
		if info.DurationMs > 0 {
			d.DurationMs = info.DurationMs
		}
		if d.BPM == nil && info.BPM != nil && *info.BPM > 0 {
			bpm := *info.BPM
			d.BPM = &bpm
		}
		changed = append(changed, i)
	}

	return changed
}

func (e *Engine) Play(i int, now time.Time) error {
	d := &e.decks[i]
	if d.Track == nil {
		return errs.InvalidCommand("deck is empty")
	}

	d.PositionMs = d.PositionAt(now)
	d.UpdatedAt = now
	d.IsPlaying = true

	return nil
}

func (e *Engine) Pause(i int, now time.Time) {
	d := &e.decks[i]
	d.PositionMs = d.PositionAt(now)
	d.UpdatedAt = now
	d.IsPlaying = false
}

func (e *Engine) Seek(i int, positionMs int64, now time.Time) error {
	d := &e.decks[i]
	if d.Track == nil {
		return errs.InvalidCommand("deck is empty")
	}
	if positionMs < 0 {
		return errs.InvalidCommand("position must not be negative")
	}

	d.PositionMs = positionMs
	d.UpdatedAt = now

	return nil
}

func (e *Engine) SetVolume(i int, volume float64) error {
	if volume < 0 || volume > 1 || math.IsNaN(volume) {
		return errs.InvalidCommand("volume must be within [0, 1]")
	}

	e.decks[i].Volume = volume

	return nil
}

// Sync подгоняет деку target под source. При известных BPM обеих дек
// target сдвигается на beat offset, иначе просто получает позицию source.
func (e *Engine) Sync(source, target int, now time.Time) (SyncResult, error) {
	if source == target {
		return SyncResult{}, errs.InvalidCommand("cannot sync a deck with itself")
	}

	a, b := e.deckAt(source, now), e.deckAt(target, now)
	if a.Track == nil || b.Track == nil {
		return SyncResult{}, errs.InvalidCommand("both decks must have a track loaded")
	}

	res := SyncResult{Source: source, Target: target}

	if a.BPM != nil && b.BPM != nil {
		offset, err := BeatOffset(*a.BPM, *b.BPM, float64(a.PositionMs))
		if err != nil {
			return SyncResult{}, errs.InvalidCommand(err.Error())
		}

		res.OffsetMs = offset
		res.PositionMs = max(0, b.PositionMs+int64(math.Round(offset)))
		res.Confidence = ConfidenceBeat
	} else {
		res.PositionMs = a.PositionMs
		res.Confidence = ConfidencePosition
	}

	d := &e.decks[target]
	d.PositionMs = res.PositionMs
	d.UpdatedAt = now

	return res, nil
}
