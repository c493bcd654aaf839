package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/events"
	"github.com/Luminawater/juketogether/internal/domain/input"
	"github.com/Luminawater/juketogether/internal/domain/models"
)

func TestFriendRequestPushesListsToBothSides(t *testing.T) {
	alice := newUser("alice", models.TierFree)
	bob := newUser("bob", models.TierFree)
	ws := newWSRecorder()
	friends := newFakeFriends()
	uc := NewFriendUsecase(newFakeUsers(alice, bob), friends, ws)
	ctx := context.Background()

	if err := uc.SendRequest(ctx, alice.ID, &input.FriendInput{Username: "bob"}); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if ws.userEvents(alice.ID, events.EvtFriendsList) != 1 || ws.userEvents(bob.ID, events.EvtFriendsList) != 1 {
		t.Fatal("friendsList was not pushed to both users")
	}

	list, err := uc.List(ctx, bob.ID)
	if err != nil || len(list.Incoming) != 1 || list.Incoming[0].ID != alice.ID {
		t.Fatalf("bob list = %+v, %v", list, err)
	}

	if err = uc.Accept(ctx, bob.ID, &input.FriendInput{UserID: alice.ID}); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if ok, _ := friends.AreFriends(ctx, alice.ID, bob.ID); !ok {
		t.Fatal("users are not friends after accept")
	}

	if err = uc.Accept(ctx, bob.ID, &input.FriendInput{UserID: alice.ID}); !errors.Is(err, errs.NotFound("")) {
		t.Fatalf("second accept err = %v, want NotFound", err)
	}
}

func TestFriendRequestValidation(t *testing.T) {
	alice := newUser("alice", models.TierFree)
	uc := NewFriendUsecase(newFakeUsers(alice), newFakeFriends(), newWSRecorder())
	ctx := context.Background()

	tests := []struct {
		name string
		in   input.FriendInput
		want errs.Kind
	}{
		{"self", input.FriendInput{UserID: alice.ID}, errs.KindInvalidCommand},
		{"nobody", input.FriendInput{}, errs.KindInvalidCommand},
		{"unknown name", input.FriendInput{Username: "ghost"}, errs.KindNotFound},
		{"unknown id", input.FriendInput{UserID: uuid.New()}, errs.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := uc.SendRequest(ctx, alice.ID, &tt.in)
			if got := errs.KindOf(err); got != tt.want {
				t.Fatalf("kind = %q, want %q (err %v)", got, tt.want, err)
			}
		})
	}
}
