// Package playback ведёт очередь, историю и позицию воспроизведения комнаты.
package playback

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/models"
)

// Synchronizer не потокобезопасен: им владеет актор комнаты.
type Synchronizer struct {
	state   models.PlaybackState
	queue   []models.Track
	history []models.Track

	historyTail    int
	previousWindow time.Duration
	lastPrevious   time.Time
}

func New(previousWindow time.Duration, historyTail int) *Synchronizer {
	return &Synchronizer{
		queue:          []models.Track{},
		history:        []models.Track{},
		historyTail:    historyTail,
		previousWindow: previousWindow,
	}
}

// Restore поднимает очередь и историю из хранилища. Воспроизведение
// после рестарта начинается с паузы.
func (s *Synchronizer) Restore(queue, history []models.Track) {
	s.queue = append(s.queue[:0], queue...)
	s.history = append(s.history[:0], history...)
	s.trimHistory()
}

func (s *Synchronizer) Queue() []models.Track { return slices.Clone(s.queue) }

func (s *Synchronizer) History() []models.Track { return slices.Clone(s.history) }

func (s *Synchronizer) QueueLen() int { return len(s.queue) }

func (s *Synchronizer) State(now time.Time) models.PlaybackState {
	return s.state.Projected(now)
}

func (s *Synchronizer) SongsSincePlaybackStart() int { return s.state.SongsSincePlaybackStart }

// Enqueue всегда добавляет в конец очереди, лимиты проверяет гейт.
func (s *Synchronizer) Enqueue(t models.Track) {
	s.queue = append(s.queue, t)
}

// Find ищет трек в очереди
func (s *Synchronizer) Find(trackID uuid.UUID) (models.Track, bool) {
	i := slices.IndexFunc(s.queue, func(t models.Track) bool { return t.ID == trackID })
	if i < 0 {
		return models.Track{}, false
	}

	return s.queue[i], true
}

func (s *Synchronizer) Remove(trackID uuid.UUID) (models.Track, error) {
	i := slices.IndexFunc(s.queue, func(t models.Track) bool { return t.ID == trackID })
	if i < 0 {
		return models.Track{}, errs.InvalidCommand("track is not in the queue")
	}

	t := s.queue[i]
	s.queue = slices.Delete(s.queue, i, i+1)

	return t, nil
}

// Play возвращает false, если уже играет.
func (s *Synchronizer) Play(now time.Time) (bool, error) {
	if s.state.CurrentTrack == nil {
		return false, errs.InvalidCommand("nothing to play")
	}
	if s.state.IsPlaying {
		return false, nil
	}

	s.state = s.state.Projected(now)
	s.state.IsPlaying = true

	return true, nil
}

// Pause возвращает false, если уже на паузе.
func (s *Synchronizer) Pause(now time.Time) bool {
	if !s.state.IsPlaying {
		return false
	}

	s.state = s.state.Projected(now)
	s.state.IsPlaying = false

	return true
}

// HasNext - есть ли что достать из очереди
func (s *Synchronizer) HasNext() bool { return len(s.queue) > 0 }

// AdvanceResult описывает переход next-track
type AdvanceResult struct {
	Previous *models.Track
	Current  *models.Track
	Paused   bool
}

// Advance переходит к голове очереди. Текущий трек уходит в начало истории.
// Пустая очередь: при autoplay ничего не меняется, иначе ставится пауза,
// текущий трек сохраняется. В обоих случаях возвращается QueueEmpty.
func (s *Synchronizer) Advance(now time.Time, autoplay, startPlaying bool, songsSince int) (AdvanceResult, error) {
	if len(s.queue) == 0 {
		if autoplay {
			return AdvanceResult{}, errs.QueueEmpty("queue is empty")
		}

		return AdvanceResult{Paused: s.Pause(now)}, errs.QueueEmpty("queue is empty")
	}

	var res AdvanceResult
	if cur := s.state.CurrentTrack; cur != nil {
		prev := *cur
		res.Previous = &prev
		s.pushHistory(prev)
	}

	next := s.queue[0]
	s.queue = slices.Delete(s.queue, 0, 1)
	s.setCurrent(next, now, startPlaying)
	s.state.SongsSincePlaybackStart = songsSince
	res.Current = &next

	return res, nil
}

// Restart возвращает текущий трек в 0, не меняя isPlaying.
func (s *Synchronizer) Restart(now time.Time) error {
	if s.state.CurrentTrack == nil {
		return errs.InvalidCommand("nothing to restart")
	}

	s.state.PositionMs = 0
	s.state.UpdatedAt = now

	return nil
}

// PreviousOutcome - что сделал previous-track
type PreviousOutcome int

const (
	PreviousRestarted PreviousOutcome = iota
	PreviousReplayed
)

// Previous: первый вызов перезапускает текущий трек, второй в пределах
// окна возвращает последний трек из истории. Окно сбрасывается после повтора.
func (s *Synchronizer) Previous(now time.Time) (PreviousOutcome, error) {
	if s.state.CurrentTrack == nil && len(s.history) == 0 {
		return 0, errs.InvalidCommand("nothing to go back to")
	}

	doubleTap := !s.lastPrevious.IsZero() && now.Sub(s.lastPrevious) < s.previousWindow

	if doubleTap && len(s.history) > 0 {
		s.lastPrevious = time.Time{}
		if err := s.Replay(now, s.history[0].ID); err != nil {
			return 0, err
		}
		return PreviousReplayed, nil
	}

	if s.state.CurrentTrack == nil {
		s.lastPrevious = time.Time{}
		if err := s.Replay(now, s.history[0].ID); err != nil {
			return 0, err
		}
		return PreviousReplayed, nil
	}

	s.lastPrevious = now
	_ = s.Restart(now)

	return PreviousRestarted, nil
}

// Replay делает трек из истории текущим и запускает его с нуля.
// Запись остаётся в истории, вытесненный текущий трек встаёт в начало очереди.
func (s *Synchronizer) Replay(now time.Time, trackID uuid.UUID) error {
	i := slices.IndexFunc(s.history, func(t models.Track) bool { return t.ID == trackID })
	if i < 0 {
		return errs.InvalidCommand("track is not in the history")
	}

	if cur := s.state.CurrentTrack; cur != nil && cur.ID != trackID {
		s.queue = slices.Insert(s.queue, 0, *cur)
	}

	s.setCurrent(s.history[i], now, true)

	return nil
}

// Seek выставляет позицию для всех (sync-all-users)
func (s *Synchronizer) Seek(now time.Time, positionMs int64) error {
	if s.state.CurrentTrack == nil {
		return errs.InvalidCommand("nothing is playing")
	}
	if positionMs < 0 {
		return errs.InvalidCommand("position must not be negative")
	}

	s.state.PositionMs = positionMs
	s.state.UpdatedAt = now

	return nil
}

// ObservePosition принимает позицию от клиента. Только подстраивает
// опорную точку, пока трек играет, и не рассылается остальным.
func (s *Synchronizer) ObservePosition(now time.Time, positionMs, durationMs int64) bool {
	if !s.state.IsPlaying || positionMs < 0 {
		return false
	}

	s.state.PositionMs = positionMs
	s.state.UpdatedAt = now
	if durationMs > 0 {
		s.state.DurationMs = durationMs
	}

	return true
}

// UpdateInfo подменяет метаданные трека в очереди, текущем и истории.
// Возвращает обновлённый трек, если он нашёлся.
func (s *Synchronizer) UpdateInfo(trackID uuid.UUID, info models.TrackInfo) (models.Track, bool) {
	var (
		updated models.Track
		found   bool
	)

	patch := func(t *models.Track) {
		if t.ID != trackID {
			return
		}
		i := info
		t.Info = &i
		updated, found = *t, true
	}

	for i := range s.queue {
		patch(&s.queue[i])
	}
	for i := range s.history {
		patch(&s.history[i])
	}
	if cur := s.state.CurrentTrack; cur != nil && cur.ID == trackID {
		t := *cur
		patch(&t)
		s.state.CurrentTrack = &t
		if info.DurationMs > 0 {
			s.state.DurationMs = info.DurationMs
		}
	}

	return updated, found
}

func (s *Synchronizer) setCurrent(t models.Track, now time.Time, playing bool) {
	s.state.CurrentTrack = &t
	s.state.PositionMs = 0
	s.state.DurationMs = t.DurationMs()
	s.state.IsPlaying = playing
	s.state.UpdatedAt = now
}

// pushHistory ставит трек в начало истории, убирая его прежнюю запись
func (s *Synchronizer) pushHistory(t models.Track) {
	s.history = slices.DeleteFunc(s.history, func(h models.Track) bool { return h.ID == t.ID })
	s.history = slices.Insert(s.history, 0, t)
	s.trimHistory()
}

func (s *Synchronizer) trimHistory() {
	if s.historyTail > 0 && len(s.history) > s.historyTail {
		s.history = s.history[:s.historyTail]
	}
}
