package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/models"
)

var t0 = time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)

func track(title string) models.Track {
	return models.NewTrack("https://soundcloud.com/a/"+title, models.PlatformSoundCloud,
		&models.TrackInfo{Title: title, DurationMs: 180_000}, uuid.New(), t0)
}

func newSync(tracks ...models.Track) *Synchronizer {
	s := New(2*time.Second, 50)
	for _, t := range tracks {
		s.Enqueue(t)
	}

	return s
}

func TestAdvanceMovesCurrentToHistory(t *testing.T) {
	a, b := track("a"), track("b")
	s := newSync(a, b)

	if _, err := s.Advance(t0, true, true, 1); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	res, err := s.Advance(t0.Add(time.Minute), true, true, 2)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if res.Previous == nil || res.Previous.ID != a.ID {
		t.Fatalf("Previous = %v, want %s", res.Previous, a.ID)
	}
	st := s.State(t0.Add(time.Minute))
	if st.CurrentTrack.ID != b.ID || !st.IsPlaying || st.PositionMs != 0 {
		t.Fatalf("state = %+v, want b playing from 0", st)
	}
	if h := s.History(); len(h) != 1 || h[0].ID != a.ID {
		t.Fatalf("history = %v, want [a]", h)
	}
	if st.SongsSincePlaybackStart != 2 {
		t.Fatalf("SongsSincePlaybackStart = %d, want 2", st.SongsSincePlaybackStart)
	}
}

func TestAdvanceEmptyQueueAutoplay(t *testing.T) {
	s := newSync(track("a"))
	_, _ = s.Advance(t0, true, true, 0)

	res, err := s.Advance(t0, true, true, 0)
	if !errors.Is(err, errs.QueueEmpty("")) {
		t.Fatalf("err = %v, want QueueEmpty", err)
	}
	if res.Paused || !s.State(t0).IsPlaying {
		t.Fatal("autoplay room must keep playing on empty queue")
	}
}

func TestAdvanceEmptyQueueNoAutoplayPauses(t *testing.T) {
	a := track("a")
	s := newSync(a)
	_, _ = s.Advance(t0, false, true, 0)

	res, err := s.Advance(t0.Add(time.Second), false, true, 0)
	if !errors.Is(err, errs.QueueEmpty("")) {
		t.Fatalf("err = %v, want QueueEmpty", err)
	}

	st := s.State(t0.Add(time.Second))
	if !res.Paused || st.IsPlaying {
		t.Fatal("room without autoplay must pause on empty queue")
	}
	if st.CurrentTrack == nil || st.CurrentTrack.ID != a.ID {
		t.Fatal("current track must survive an empty queue")
	}
	if st.PositionMs != 1000 {
		t.Fatalf("paused position = %d, want 1000", st.PositionMs)
	}
}

func TestAdvanceHeldForAd(t *testing.T) {
	s := newSync(track("a"))

	if _, err := s.Advance(t0, true, false, 0); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if s.State(t0).IsPlaying {
		t.Fatal("track held for an ad must not be playing")
	}
}

func TestRestartKeepsPlayState(t *testing.T) {
	s := newSync(track("a"))
	_, _ = s.Advance(t0, true, true, 0)
	s.Pause(t0.Add(30 * time.Second))

	if err := s.Restart(t0.Add(time.Minute)); err != nil {
		t.Fatalf("Restart: %v", err)
	}

	st := s.State(t0.Add(time.Minute))
	if st.PositionMs != 0 || st.IsPlaying {
		t.Fatalf("state = %+v, want paused at 0", st)
	}
}

func TestPreviousDoubleTap(t *testing.T) {
	a, b := track("a"), track("b")
	s := newSync(a, b)
	_, _ = s.Advance(t0, true, true, 0)
	_, _ = s.Advance(t0, true, true, 0)

	out, err := s.Previous(t0.Add(10 * time.Second))
	if err != nil || out != PreviousRestarted {
		t.Fatalf("first Previous = %v, %v, want restart", out, err)
	}
	if st := s.State(t0.Add(10 * time.Second)); st.CurrentTrack.ID != b.ID || st.PositionMs != 0 {
		t.Fatalf("after restart state = %+v", st)
	}

	out, err = s.Previous(t0.Add(11 * time.Second))
	if err != nil || out != PreviousReplayed {
		t.Fatalf("second Previous = %v, %v, want replay", out, err)
	}

	st := s.State(t0.Add(11 * time.Second))
	if st.CurrentTrack.ID != a.ID {
		t.Fatalf("current = %s, want a", st.CurrentTrack.ID)
	}
	if q := s.Queue(); len(q) != 1 || q[0].ID != b.ID {
		t.Fatalf("queue = %v, want displaced b at the front", q)
	}

	out, _ = s.Previous(t0.Add(12 * time.Second))
	if out != PreviousRestarted {
		t.Fatal("window must reset after a replay")
	}
}

func TestPreviousOutsideWindowRestarts(t *testing.T) {
	s := newSync(track("a"), track("b"))
	_, _ = s.Advance(t0, true, true, 0)
	_, _ = s.Advance(t0, true, true, 0)

	_, _ = s.Previous(t0)
	out, _ := s.Previous(t0.Add(3 * time.Second))
	if out != PreviousRestarted {
		t.Fatal("previous outside the window must restart")
	}
}

func TestReplayKeepsHistoryEntry(t *testing.T) {
	a, b := track("a"), track("b")
	s := newSync(a, b)
	_, _ = s.Advance(t0, true, true, 0)
	_, _ = s.Advance(t0, true, true, 0)

	if err := s.Replay(t0, a.ID); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if h := s.History(); len(h) != 1 || h[0].ID != a.ID {
		t.Fatalf("history = %v, want a kept", h)
	}
	if err := s.Replay(t0, uuid.New()); !errors.Is(err, errs.InvalidCommand("")) {
		t.Fatalf("unknown replay err = %v, want InvalidCommand", err)
	}
}

func TestRemoveAndPlayErrors(t *testing.T) {
	s := newSync()

	if _, err := s.Play(t0); !errors.Is(err, errs.InvalidCommand("")) {
		t.Fatalf("Play without track err = %v, want InvalidCommand", err)
	}
	if _, err := s.Remove(uuid.New()); !errors.Is(err, errs.InvalidCommand("")) {
		t.Fatalf("Remove unknown err = %v, want InvalidCommand", err)
	}
}

func TestObservePositionIgnoredWhilePaused(t *testing.T) {
	s := newSync(track("a"))
	_, _ = s.Advance(t0, true, true, 0)

	if !s.ObservePosition(t0.Add(time.Second), 5000, 0) {
		t.Fatal("position report while playing was ignored")
	}

	s.Pause(t0.Add(2 * time.Second))
	if s.ObservePosition(t0.Add(3*time.Second), 9000, 0) {
		t.Fatal("position report while paused must be ignored")
	}
	if got := s.State(t0.Add(3 * time.Second)).PositionMs; got != 6000 {
		t.Fatalf("position = %d, want 6000", got)
	}
}

func TestHistoryTail(t *testing.T) {
	s := New(2*time.Second, 2)
	for _, title := range []string{"a", "b", "c", "d"} {
		s.Enqueue(track(title))
	}
	for range 4 {
		_, _ = s.Advance(t0, true, true, 0)
	}

	if h := s.History(); len(h) != 2 {
		t.Fatalf("history len = %d, want 2", len(h))
	}
}
