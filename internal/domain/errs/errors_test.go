package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestCommandErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("submit: %w", QueueEmpty("queue is empty"))

	if !errors.Is(err, QueueEmpty("")) {
		t.Fatal("wrapped QueueEmpty does not match by kind")
	}
	if errors.Is(err, PermissionDenied("")) {
		t.Fatal("QueueEmpty matched PermissionDenied")
	}
	if got := KindOf(err); got != KindQueueEmpty {
		t.Fatalf("KindOf = %q, want %q", got, KindQueueEmpty)
	}
	if got := KindOf(errors.New("boom")); got != "" {
		t.Fatalf("KindOf(plain) = %q, want empty", got)
	}
}

func TestTierLimitReachedIsBlocked(t *testing.T) {
	err := TierLimitReached("queue_limit", "queue limit reached")
	if !err.Blocked || err.Reason != "queue_limit" {
		t.Fatalf("TierLimitReached = %+v, want blocked with reason", err)
	}
}
