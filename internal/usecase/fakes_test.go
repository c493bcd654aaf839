package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/application/clock"
	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/events"
	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/domain/roomstate"
	"github.com/Luminawater/juketogether/internal/domain/runtime"
	"github.com/Luminawater/juketogether/internal/infra/adapters/memory"
	"github.com/Luminawater/juketogether/internal/infra/adapters/metadata"
	"github.com/Luminawater/juketogether/internal/infra/adapters/payment"
	"github.com/Luminawater/juketogether/internal/infra/adapters/postgres/repository"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}

	return f
}

func (f *fakeUsers) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == user.Username {
			return errs.ErrAlreadyExists
		}
	}
	cp := *user
	f.users[user.ID] = &cp

	return nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *u

	return &cp, nil
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}

	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := f.GetUserByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}

	return out, nil
}

func (f *fakeUsers) SubscriptionTier(ctx context.Context, id uuid.UUID) (models.Tier, error) {
	u, err := f.GetUserByID(ctx, id)
	if err != nil {
		return models.TierFree, err
	}

	return u.SubscriptionTier, nil
}

type friendPair struct{ a, b uuid.UUID }

type fakeFriends struct {
	mu       sync.Mutex
	pending  map[friendPair]struct{}
	accepted map[friendPair]struct{}
}

func newFakeFriends() *fakeFriends {
	return &fakeFriends{
		pending:  make(map[friendPair]struct{}),
		accepted: make(map[friendPair]struct{}),
	}
}

func (f *fakeFriends) befriend(a, b uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accepted[friendPair{a, b}] = struct{}{}
}

func (f *fakeFriends) SendRequest(_ context.Context, from, to uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.pending[friendPair{to, from}]; ok {
		delete(f.pending, friendPair{to, from})
		f.accepted[friendPair{to, from}] = struct{}{}
		return nil
	}
	f.pending[friendPair{from, to}] = struct{}{}

	return nil
}

func (f *fakeFriends) Accept(_ context.Context, requester, addressee uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.pending[friendPair{requester, addressee}]; !ok {
		return errs.ErrNotFound
	}
	delete(f.pending, friendPair{requester, addressee})
	f.accepted[friendPair{requester, addressee}] = struct{}{}

	return nil
}

func (f *fakeFriends) Reject(_ context.Context, requester, addressee uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.pending[friendPair{requester, addressee}]; !ok {
		return errs.ErrNotFound
	}
	delete(f.pending, friendPair{requester, addressee})

	return nil
}

func (f *fakeFriends) Remove(_ context.Context, a, b uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.accepted, friendPair{a, b})
	delete(f.accepted, friendPair{b, a})

	return nil
}

func (f *fakeFriends) AreFriends(_ context.Context, a, b uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ab := f.accepted[friendPair{a, b}]
	_, ba := f.accepted[friendPair{b, a}]

	return ab || ba, nil
}

func (f *fakeFriends) List(_ context.Context, userID uuid.UUID) (models.FriendsList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := models.FriendsList{}
	for p := range f.accepted {
		switch userID {
		case p.a:
			list.Friends = append(list.Friends, models.Friend{ID: p.b})
		case p.b:
			list.Friends = append(list.Friends, models.Friend{ID: p.a})
		}
	}
	for p := range f.pending {
		switch userID {
		case p.a:
			list.Outgoing = append(list.Outgoing, models.Friend{ID: p.b})
		case p.b:
			list.Incoming = append(list.Incoming, models.Friend{ID: p.a})
		}
	}

	return list, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	receipts map[string]repository.Redemption
}

func (l *fakeLedger) Redeem(
	_ context.Context,
	receipt, roomID string,
	_ uuid.UUID,
	expiresAt time.Time,
) (repository.Redemption, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r, ok := l.receipts[receipt]; ok {
		if r.RoomID != roomID {
			return repository.Redemption{}, errs.ErrAlreadyExists
		}
		return r, nil
	}

	r := repository.Redemption{ID: uuid.New(), RoomID: roomID, ExpiresAt: expiresAt}
	l.receipts[receipt] = r
	r.New = true

	return r, nil
}

type memRooms struct {
	mu    sync.Mutex
	rooms map[string]models.Room
}

func (r *memRooms) GetRoom(_ context.Context, id string) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, errs.ErrNotFound
	}

	return &room, nil
}

func (r *memRooms) GetRoomByShortCode(_ context.Context, code string) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, room := range r.rooms {
		if room.ShortCode == code {
			return &room, nil
		}
	}

	return nil, errs.ErrNotFound
}

func (r *memRooms) SaveRoom(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[room.ID] = *room

	return nil
}

// wsRecorder подменяет репозиторий соединений и рассыльщик комнат
type wsRecorder struct {
	mu     sync.Mutex
	online []uuid.UUID
	toConn map[uuid.UUID][]events.Event
	toUser map[uuid.UUID][]events.Event
}

func newWSRecorder() *wsRecorder {
	return &wsRecorder{
		toConn: make(map[uuid.UUID][]events.Event),
		toUser: make(map[uuid.UUID][]events.Event),
	}
}

var _ memory.WebsocketConnectionRepository = (*wsRecorder)(nil)

func (w *wsRecorder) Add(*memory.Connection) {}

func (w *wsRecorder) Remove(uuid.UUID) {}

func (w *wsRecorder) Send(connID uuid.UUID, e events.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.toConn[connID] = append(w.toConn[connID], e)
}

func (w *wsRecorder) SendToUser(userID uuid.UUID, e events.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.toUser[userID] = append(w.toUser[userID], e)
}

func (w *wsRecorder) GetAllConnected() []uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]uuid.UUID(nil), w.online...)
}

func (w *wsRecorder) userEvents(userID uuid.UUID, typ string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	for _, e := range w.toUser[userID] {
		if e.Type == typ {
			n++
		}
	}

	return n
}

// waitForConn ждёт событие typ на соединении, для которого match вернёт true
func (w *wsRecorder) waitForConn(t *testing.T, connID uuid.UUID, typ string, match func(events.Event) bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w.mu.Lock()
		got := append([]events.Event(nil), w.toConn[connID]...)
		w.mu.Unlock()

		for _, e := range got {
			if e.Type == typ && (match == nil || match(e)) {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("no %s event delivered to %s", typ, connID)
}

type stubFetcher map[string]*models.TrackInfo

func (f stubFetcher) Fetch(_ context.Context, _ models.Platform, rawURL string) (*models.TrackInfo, error) {
	info, ok := f[rawURL]
	if !ok {
		return nil, metadata.ErrBPMUnavailable
	}

	return info, nil
}

// slowFetcher отвечает только после закрытия release
type slowFetcher struct {
	release chan struct{}
	info    models.TrackInfo
}

func (f *slowFetcher) Fetch(ctx context.Context, _ models.Platform, _ string) (*models.TrackInfo, error) {
	select {
	case <-f.release:
		info := f.info
		return &info, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type stubPlaylists struct {
	tracks []metadata.ScrapedTrack
	err    error
}

func (p stubPlaylists) Collection(context.Context, string, int) ([]metadata.ScrapedTrack, error) {
	return p.tracks, p.err
}

type noBPM struct{}

func (noBPM) AnalyzeBPM(context.Context, models.Track) (float64, error) {
	return 0, metadata.ErrBPMUnavailable
}

var harnessStart = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

type roomHarness struct {
	uc       RoomUsecase
	reg      *roomstate.Registry
	rooms    *memRooms
	users    *fakeUsers
	friends  *fakeFriends
	out      *wsRecorder
	clock    *clock.FakeClock
	payments *payment.ReceiptValidator
}

func newRoomHarness(
	t *testing.T,
	fetcher roomstate.MetadataFetcher,
	playlists PlaylistSource,
	users ...*models.User,
) *roomHarness {
	t.Helper()

	h := &roomHarness{
		rooms:   &memRooms{rooms: make(map[string]models.Room)},
		users:   newFakeUsers(users...),
		friends: newFakeFriends(),
		out:     newWSRecorder(),
		clock:   clock.Fake(harnessStart),
	}
	h.payments = payment.NewReceiptValidator([]byte("payments-secret"), h.clock)
	h.reg = h.registry(fetcher, memory.NewShortCodeRepository())
	t.Cleanup(func() { _ = h.reg.Close(context.Background()) })

	h.uc = NewRoomUsecase(
		RoomUsecaseConfig{MetadataTimeout: time.Second, BoostDuration: time.Hour},
		h.reg,
		h.clock,
		h.users,
		h.friends,
		&fakeLedger{receipts: make(map[string]repository.Redemption)},
		h.payments,
		playlists,
	)

	return h
}

// registry собирает реестр поверх хранилища стенда
func (h *roomHarness) registry(fetcher roomstate.MetadataFetcher, codes roomstate.ShortCodeIndex) *roomstate.Registry {
	return roomstate.NewRegistry(
		roomstate.RegistryConfig{
			Options: roomstate.Options{
				Table:          models.DefaultTierTable(),
				BoostDuration:  time.Hour,
				PreviousWindow: 2 * time.Second,
				HistoryTail:    50,
			},
			IdleTTL:         time.Minute,
			EvictInterval:   time.Minute,
			BoostSweep:      time.Minute,
			AnalysisTimeout: time.Second,
			MetadataTimeout: time.Second,
			CommandBuffer:   16,
		},
		roomstate.RegistryDeps{
			Repo:       h.rooms,
			Profiles:   h.users,
			ShortCodes: codes,
			Ads:        memory.NewAdInventory(nil),
			Analyzer:   noBPM{},
			Metadata:   fetcher,
			Out:        h.out,
			Clock:      h.clock,
		},
	)
}

func (h *roomHarness) receipt(t *testing.T, u *models.User, roomID string) string {
	t.Helper()

	raw, err := h.payments.Issue(u.ID, roomID, 24*time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	return raw
}

func newUser(name string, tier models.Tier) *models.User {
	u := models.NewUser()
	u.Username = name
	u.SubscriptionTier = tier

	return u
}

func sessionOf(u *models.User) *runtime.Session {
	return runtime.NewSession(u.ID, u.Username, false, u.SubscriptionTier)
}
