package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/events"
	"github.com/Luminawater/juketogether/internal/domain/models"
)

type fakeSocket struct {
	mu      sync.Mutex
	written []events.Event
	closed  bool
}

func (s *fakeSocket) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.written = append(s.written, v.(events.Event))

	return nil
}

func (s *fakeSocket) WriteControl(int, []byte, time.Time) error { return nil }

func (s *fakeSocket) SetWriteDeadline(time.Time) error { return nil }

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

func (s *fakeSocket) snapshot() ([]events.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]events.Event(nil), s.written...), s.closed
}

func TestSendIsWrittenInOrder(t *testing.T) {
	repo := NewWSConnectionRepository()
	sock := &fakeSocket{}
	conn := NewConnection(uuid.New(), sock, uuid.New(), false, 8)
	repo.Add(conn)
	defer repo.Remove(conn.ID)

	go conn.WritePump(time.Hour)
	defer conn.Close()

	for v := uint64(1); v <= 3; v++ {
		repo.Send(conn.ID, events.Event{Type: events.EvtTrackAdded, Version: v})
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		written, _ := sock.snapshot()
		if len(written) == 3 {
			for i, e := range written {
				if e.Version != uint64(i+1) {
					t.Fatalf("event %d has version %d", i, e.Version)
				}
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("events were not written")
}

func TestSlowConsumerIsDisconnected(t *testing.T) {
	repo := NewWSConnectionRepository()
	sock := &fakeSocket{}
	conn := NewConnection(uuid.New(), sock, uuid.New(), false, 1)
	repo.Add(conn)
	defer repo.Remove(conn.ID)

	repo.Send(conn.ID, events.Event{Type: events.EvtPlay})
	repo.Send(conn.ID, events.Event{Type: events.EvtPause})

	if _, closed := sock.snapshot(); !closed {
		t.Fatal("overflowing connection was not closed")
	}

	select {
	case <-conn.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestGetAllConnectedSkipsAnonymous(t *testing.T) {
	repo := NewWSConnectionRepository()
	alice := uuid.New()

	tab1 := NewConnection(uuid.New(), &fakeSocket{}, alice, false, 1)
	tab2 := NewConnection(uuid.New(), &fakeSocket{}, alice, false, 1)
	anon := NewConnection(uuid.New(), &fakeSocket{}, uuid.New(), true, 1)
	for _, c := range []*Connection{tab1, tab2, anon} {
		repo.Add(c)
	}

	online := repo.GetAllConnected()
	if len(online) != 1 || online[0] != alice {
		t.Fatalf("online = %v, want [%s]", online, alice)
	}

	repo.Remove(tab1.ID)
	if got := repo.GetAllConnected(); len(got) != 1 {
		t.Fatalf("online after closing one tab = %v", got)
	}

	repo.Remove(tab2.ID)
	if got := repo.GetAllConnected(); len(got) != 0 {
		t.Fatalf("online after closing both tabs = %v", got)
	}
}

func TestAdInventoryRotates(t *testing.T) {
	inv := NewAdInventory([]string{"a.mp3", "", "b.mp3"})

	want := []string{"a.mp3", "b.mp3", "a.mp3"}
	for i, w := range want {
		if got := inv.Next(models.TierFree).URL; got != w {
			t.Fatalf("ad %d = %s, want %s", i, got, w)
		}
	}

	if got := NewAdInventory(nil).Next(models.TierFree).URL; got != DefaultAdURL {
		t.Fatalf("empty inventory ad = %s, want %s", got, DefaultAdURL)
	}
}

func TestShortCodeRepository(t *testing.T) {
	repo := NewShortCodeRepository()
	ctx := context.Background()

	code, err := repo.Reserve(ctx, "room-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, ok := models.NormalizeShortCode(code); !ok {
		t.Fatalf("reserved code %q is not a valid short code", code)
	}

	id, err := repo.Resolve(ctx, code)
	if err != nil || id != "room-1" {
		t.Fatalf("Resolve = %q, %v", id, err)
	}

	if _, err = repo.Resolve(ctx, "ZZZZZZ"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown code err = %v, want ErrNotFound", err)
	}
}
