package usecase

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/events"
	"github.com/Luminawater/juketogether/internal/domain/input"
	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/domain/roomstate"
	"github.com/Luminawater/juketogether/internal/domain/runtime"
	"github.com/Luminawater/juketogether/internal/infra/adapters/memory"
	"github.com/Luminawater/juketogether/internal/infra/adapters/metadata"
	"github.com/Luminawater/juketogether/internal/infra/adapters/postgres/repository"
)

func TestJoinCreatesRoomOnlyForSignedInUsers(t *testing.T) {
	owner := newUser("owner", models.TierStandard)
	h := newRoomHarness(t, nil, nil, owner)
	ctx := context.Background()

	snap, err := h.uc.Join(ctx, runtime.NewAnonymousSession(), "ghost-room")
	if !errors.Is(err, errs.NotFound("")) {
		t.Fatalf("anonymous join of unknown room err = %v, want NotFound", err)
	}

	sess := sessionOf(owner)
	snap, err = h.uc.Join(ctx, sess, "room-1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if snap.OwnerID != owner.ID || snap.CreatorTier != models.TierStandard {
		t.Fatalf("snapshot owner = %s tier = %v", snap.OwnerID, snap.CreatorTier)
	}
	if !sess.Subscribed("room-1") {
		t.Fatal("session is not subscribed after join")
	}
}

func TestJoinByShortCode(t *testing.T) {
	owner := newUser("owner", models.TierFree)
	h := newRoomHarness(t, nil, nil, owner)
	ctx := context.Background()

	created, err := h.uc.Join(ctx, sessionOf(owner), "room-1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	guest := runtime.NewAnonymousSession()
	snap, err := h.uc.Join(ctx, guest, created.ShortCode)
	if err != nil {
		t.Fatalf("Join by short code: %v", err)
	}
	if snap.RoomID != "room-1" {
		t.Fatalf("joined %q, want room-1", snap.RoomID)
	}
	if !guest.Subscribed("room-1") {
		t.Fatal("guest subscribed under the short code instead of the room id")
	}

	summary, err := h.uc.Summary(ctx, created.ShortCode)
	if err != nil || summary.ID != "room-1" || summary.Listeners != 2 {
		t.Fatalf("Summary = %+v, %v", summary, err)
	}
}

func TestCommandsRequireJoin(t *testing.T) {
	owner := newUser("owner", models.TierPro)
	h := newRoomHarness(t, nil, nil, owner)
	sess := sessionOf(owner)

	err := h.uc.Submit(context.Background(), sess, "room-1", roomstate.Play{Origin: origin(sess)})
	if !errors.Is(err, errs.InvalidCommand("")) {
		t.Fatalf("err = %v, want InvalidCommand", err)
	}
}

func TestAddTrackUsesMetadataOrPlaceholder(t *testing.T) {
	owner := newUser("owner", models.TierPro)
	fetcher := stubFetcher{
		"https://soundcloud.com/dj/opener": {Title: "Opener", Artist: "DJ"},
	}
	h := newRoomHarness(t, fetcher, nil, owner)
	ctx := context.Background()

	sess := sessionOf(owner)
	if _, err := h.uc.Join(ctx, sess, "room-1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	adds := []*input.AddTrackInput{
		{RoomID: "room-1", TrackURL: "https://soundcloud.com/dj/opener"},
		{RoomID: "room-1", TrackURL: "https://youtu.be/abc"},
		{RoomID: "room-1", TrackURL: "https://open.spotify.com/track/1", TrackInfo: &models.TrackInfo{Title: "Given"}},
	}
	for _, in := range adds {
		if err := h.uc.AddTrack(ctx, sess, in); err != nil {
			t.Fatalf("AddTrack(%s): %v", in.TrackURL, err)
		}
	}

	if err := h.uc.AddTrack(ctx, sess, &input.AddTrackInput{RoomID: "room-1", TrackURL: "ftp://x"}); !errors.Is(err, errs.InvalidCommand("")) {
		t.Fatalf("bad url err = %v, want InvalidCommand", err)
	}

	h.out.waitForConn(t, sess.ConnID, events.EvtTrackUpdated, func(e events.Event) bool {
		p, ok := e.Data.(events.TrackUpdatedPayload)
		return ok && p.Track.Info.Title == "Opener"
	})

	snap, err := h.uc.Join(ctx, runtime.NewAnonymousSession(), "room-1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	var titles []string
	for _, tr := range snap.Queue {
		titles = append(titles, tr.Info.Title)
	}

	want := []string{"Opener", "YouTube video", "Given"}
	if !slices.Equal(titles, want) {
		t.Fatalf("titles = %v, want %v", titles, want)
	}
}

func TestAddTrackDoesNotWaitForMetadata(t *testing.T) {
	owner := newUser("owner", models.TierPro)
	fetcher := &slowFetcher{release: make(chan struct{}), info: models.TrackInfo{Title: "Slow one"}}
	h := newRoomHarness(t, fetcher, nil, owner)
	ctx := context.Background()

	sess := sessionOf(owner)
	if _, err := h.uc.Join(ctx, sess, "room-1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- h.uc.AddTrack(ctx, sess, &input.AddTrackInput{RoomID: "room-1", TrackURL: "https://soundcloud.com/dj/slow"})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("AddTrack: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("AddTrack waited for the metadata fetch")
	}

	summary, err := h.uc.Summary(ctx, "room-1")
	if err != nil || summary.QueueLength != 1 {
		t.Fatalf("summary = %+v (err %v), want 1 queued track", summary, err)
	}

	close(fetcher.release)

	h.out.waitForConn(t, sess.ConnID, events.EvtTrackUpdated, func(e events.Event) bool {
		p, ok := e.Data.(events.TrackUpdatedPayload)
		return ok && p.Track.Info.Title == "Slow one"
	})
}

func TestAnonymousCannotAddTracks(t *testing.T) {
	owner := newUser("owner", models.TierPro)
	h := newRoomHarness(t, stubFetcher{}, nil, owner)
	ctx := context.Background()

	if _, err := h.uc.Join(ctx, sessionOf(owner), "room-1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	guest := runtime.NewAnonymousSession()
	if _, err := h.uc.Join(ctx, guest, "room-1"); err != nil {
		t.Fatalf("guest Join: %v", err)
	}

	err := h.uc.AddTrack(ctx, guest, &input.AddTrackInput{RoomID: "room-1", TrackURL: "https://youtu.be/abc"})
	if !errors.Is(err, errs.PermissionDenied("")) {
		t.Fatalf("err = %v, want PermissionDenied", err)
	}
}

func TestAddPlaylist(t *testing.T) {
	owner := newUser("owner", models.TierPro)
	playlists := stubPlaylists{tracks: []metadata.ScrapedTrack{
		{URL: "https://soundcloud.com/dj/a", Title: "A", Artist: "DJ"},
		{URL: "https://soundcloud.com/dj/b", Title: "B", Artist: "DJ"},
	}}
	h := newRoomHarness(t, nil, playlists, owner)
	ctx := context.Background()

	sess := sessionOf(owner)
	if _, err := h.uc.Join(ctx, sess, "room-1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	in := &input.AddPlaylistInput{RoomID: "room-1", URL: "https://soundcloud.com/dj/sets/warmup"}
	if err := h.uc.AddPlaylist(ctx, sess, in); err != nil {
		t.Fatalf("AddPlaylist: %v", err)
	}

	summary, err := h.uc.Summary(ctx, "room-1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.QueueLength != 2 {
		t.Fatalf("queue length = %d, want 2", summary.QueueLength)
	}
}

func TestAddPlaylistMapsScraperErrors(t *testing.T) {
	owner := newUser("owner", models.TierPro)
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{"single track", metadata.ErrNotCollection, errs.KindInvalidCommand},
		{"not soundcloud", metadata.ErrNotSoundCloud, errs.KindInvalidCommand},
		{"empty page", metadata.ErrNoTracks, errs.KindMetadataFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newRoomHarness(t, nil, stubPlaylists{err: tt.err}, owner)
			sess := sessionOf(owner)
			if _, err := h.uc.Join(ctx, sess, "room-1"); err != nil {
				t.Fatalf("Join: %v", err)
			}

			err := h.uc.AddPlaylist(ctx, sess, &input.AddPlaylistInput{RoomID: "room-1", URL: "x"})
			if got := errs.KindOf(err); got != tt.want {
				t.Fatalf("kind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrivateRoomAdmitsOwnersFriends(t *testing.T) {
	owner := newUser("owner", models.TierPro)
	friend := newUser("friend", models.TierFree)
	stranger := newUser("stranger", models.TierFree)
	h := newRoomHarness(t, nil, nil, owner, friend, stranger)
	h.friends.befriend(owner.ID, friend.ID)
	ctx := context.Background()

	ownerSess := sessionOf(owner)
	if _, err := h.uc.Join(ctx, ownerSess, "room-1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	private := true
	cmd := roomstate.UpdateSettings{Origin: origin(ownerSess), Patch: models.SettingsPatch{IsPrivate: &private}}
	if err := h.uc.Submit(ctx, ownerSess, "room-1", cmd); err != nil {
		t.Fatalf("make private: %v", err)
	}

	if _, err := h.uc.Join(ctx, sessionOf(friend), "room-1"); err != nil {
		t.Fatalf("friend Join: %v", err)
	}

	if _, err := h.uc.Join(ctx, sessionOf(stranger), "room-1"); !errors.Is(err, errs.PermissionDenied("")) {
		t.Fatalf("stranger err = %v, want PermissionDenied", err)
	}

	if _, err := h.uc.Join(ctx, runtime.NewAnonymousSession(), "room-1"); !errors.Is(err, errs.PermissionDenied("")) {
		t.Fatalf("anonymous err = %v, want PermissionDenied", err)
	}
}

func TestAddAdminByUsername(t *testing.T) {
	owner := newUser("owner", models.TierPro)
	bob := newUser("bob", models.TierFree)
	h := newRoomHarness(t, nil, nil, owner, bob)
	ctx := context.Background()

	sess := sessionOf(owner)
	if _, err := h.uc.Join(ctx, sess, "room-1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if err := h.uc.AddAdmin(ctx, sess, &input.AdminInput{RoomID: "room-1", Username: "bob"}); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	err := h.uc.AddAdmin(ctx, sess, &input.AdminInput{RoomID: "room-1", Username: "nobody"})
	if !errors.Is(err, errs.NotFound("")) {
		t.Fatalf("unknown user err = %v, want NotFound", err)
	}

	snap, err := h.uc.Join(ctx, sessionOf(bob), "room-1")
	if err != nil {
		t.Fatalf("bob Join: %v", err)
	}
	if !slices.Contains(snap.AdminIDs, bob.ID) || !snap.You.IsAdmin {
		t.Fatalf("bob is not an admin: %v", snap.AdminIDs)
	}

	if err = h.uc.RemoveAdmin(ctx, sess, &input.AdminInput{RoomID: "room-1", UserID: bob.ID}); err != nil {
		t.Fatalf("RemoveAdmin: %v", err)
	}
}

func TestPurchaseBoost(t *testing.T) {
	owner := newUser("owner", models.TierFree)
	h := newRoomHarness(t, nil, nil, owner)
	ctx := context.Background()

	sess := sessionOf(owner)
	for _, id := range []string{"room-1", "room-2"} {
		if _, err := h.uc.Join(ctx, sess, id); err != nil {
			t.Fatalf("Join %s: %v", id, err)
		}
	}

	err := h.uc.PurchaseBoost(ctx, sess, &input.BoostInput{RoomID: "room-1", Receipt: "receipt-1"})
	if !errors.Is(err, errs.InvalidCommand("")) {
		t.Fatalf("unsigned receipt err = %v, want InvalidCommand", err)
	}

	in := &input.BoostInput{RoomID: "room-1", Receipt: h.receipt(t, owner, "room-1")}
	if err = h.uc.PurchaseBoost(ctx, sess, in); err != nil {
		t.Fatalf("PurchaseBoost: %v", err)
	}
	first, err := h.uc.Join(ctx, runtime.NewAnonymousSession(), "room-1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if first.ActiveBoost == nil || first.EffectiveTier != models.TierPro {
		t.Fatalf("boost not active: %+v tier %v", first.ActiveBoost, first.EffectiveTier)
	}

	// повтор той же квитанции не продлевает буст
	if err = h.uc.PurchaseBoost(ctx, sess, in); err != nil {
		t.Fatalf("repeat PurchaseBoost: %v", err)
	}
	again, err := h.uc.Join(ctx, runtime.NewAnonymousSession(), "room-1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if again.ActiveBoost.ID != first.ActiveBoost.ID || !again.ActiveBoost.ExpiresAt.Equal(first.ActiveBoost.ExpiresAt) {
		t.Fatalf("repeat purchase changed the boost: %+v -> %+v", first.ActiveBoost, again.ActiveBoost)
	}

	err = h.uc.PurchaseBoost(ctx, sess, &input.BoostInput{RoomID: "room-2", Receipt: in.Receipt})
	if !errors.Is(err, errs.InvalidCommand("")) {
		t.Fatalf("receipt for another room err = %v, want InvalidCommand", err)
	}

	guest := runtime.NewAnonymousSession()
	if _, err = h.uc.Join(ctx, guest, "room-1"); err != nil {
		t.Fatalf("guest Join: %v", err)
	}
	err = h.uc.PurchaseBoost(ctx, guest, &input.BoostInput{RoomID: "room-1", Receipt: h.receipt(t, owner, "room-1")})
	if !errors.Is(err, errs.PermissionDenied("")) {
		t.Fatalf("anonymous purchase err = %v, want PermissionDenied", err)
	}
}

func TestReplayedReceiptAfterExpiryDoesNotBoost(t *testing.T) {
	owner := newUser("owner", models.TierFree)
	h := newRoomHarness(t, nil, nil, owner)
	ctx := context.Background()

	sess := sessionOf(owner)
	if _, err := h.uc.Join(ctx, sess, "room-1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	in := &input.BoostInput{RoomID: "room-1", Receipt: h.receipt(t, owner, "room-1")}
	if err := h.uc.PurchaseBoost(ctx, sess, in); err != nil {
		t.Fatalf("PurchaseBoost: %v", err)
	}

	h.clock.Advance(2 * time.Hour)

	if err := h.uc.PurchaseBoost(ctx, sess, in); !errors.Is(err, errs.InvalidCommand("")) {
		t.Fatalf("replayed receipt err = %v, want InvalidCommand", err)
	}

	snap, err := h.uc.Join(ctx, runtime.NewAnonymousSession(), "room-1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if snap.EffectiveTier != models.TierFree {
		t.Fatalf("effective tier = %v, want free", snap.EffectiveTier)
	}
	if snap.ActiveBoost != nil && snap.ActiveBoost.Active(h.clock.Now()) {
		t.Fatalf("boost still active: %+v", snap.ActiveBoost)
	}
}

func TestJoinByShortCodeAfterRestart(t *testing.T) {
	owner := newUser("owner", models.TierFree)
	h := newRoomHarness(t, nil, nil, owner)
	ctx := context.Background()

	created, err := h.uc.Join(ctx, sessionOf(owner), "room-1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err = h.reg.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reg := h.registry(nil, memory.NewShortCodeRepository())
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	uc := NewRoomUsecase(
		RoomUsecaseConfig{MetadataTimeout: time.Second, BoostDuration: time.Hour},
		reg,
		h.clock,
		h.users,
		h.friends,
		&fakeLedger{receipts: make(map[string]repository.Redemption)},
		h.payments,
		nil,
	)

	guest := newUser("guest", models.TierFree)
	if err = h.users.CreateUser(ctx, guest); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	snap, err := uc.Join(ctx, sessionOf(guest), created.ShortCode)
	if err != nil {
		t.Fatalf("Join by short code: %v", err)
	}
	if snap.RoomID != "room-1" || snap.OwnerID != owner.ID {
		t.Fatalf("joined %q owned by %s, want room-1 owned by %s", snap.RoomID, snap.OwnerID, owner.ID)
	}
}

func TestLoadDeckNeedsTrack(t *testing.T) {
	owner := newUser("owner", models.TierPro)
	h := newRoomHarness(t, nil, nil, owner)
	ctx := context.Background()

	sess := sessionOf(owner)
	if _, err := h.uc.Join(ctx, sess, "room-1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	err := h.uc.LoadDeck(ctx, sess, &input.DeckInput{RoomID: "room-1", Deck: 0})
	if !errors.Is(err, errs.InvalidCommand("")) {
		t.Fatalf("err = %v, want InvalidCommand", err)
	}
}

func TestDisconnectLeavesAllRooms(t *testing.T) {
	owner := newUser("owner", models.TierPro)
	h := newRoomHarness(t, nil, nil, owner)
	ctx := context.Background()

	sess := sessionOf(owner)
	for _, id := range []string{"room-1", "room-2"} {
		if _, err := h.uc.Join(ctx, sess, id); err != nil {
			t.Fatalf("Join %s: %v", id, err)
		}
	}

	h.uc.Disconnect(ctx, sess)

	if rooms := sess.Rooms(); len(rooms) != 0 {
		t.Fatalf("rooms after disconnect = %v", rooms)
	}

	summary, err := h.uc.Summary(ctx, "room-1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Listeners != 0 {
		t.Fatalf("listeners = %d, want 0", summary.Listeners)
	}

	if err = h.uc.Leave(ctx, sess, "room-1"); err != nil {
		t.Fatalf("second Leave: %v", err)
	}
	if err = h.uc.Submit(ctx, sess, "room-1", roomstate.Pause{Origin: origin(sess)}); !errors.Is(err, errs.InvalidCommand("")) {
		t.Fatalf("command after leave err = %v, want InvalidCommand", err)
	}
}
