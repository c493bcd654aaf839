package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type Kind string

const (
	KindPermissionDenied    Kind = "PermissionDenied"
	KindTierLimitReached    Kind = "TierLimitReached"
	KindQueueEmpty          Kind = "QueueEmpty"
	KindInvalidCommand      Kind = "InvalidCommand"
	KindConnectionLost      Kind = "ConnectionLost"
	KindMetadataFetchFailed Kind = "MetadataFetchFailed"
	KindRoomClosed          Kind = "RoomClosed"
	KindNotFound            Kind = "NotFound"
)

// CommandError - отказ в выполнении команды. Уходит клиенту как событие error.
type CommandError struct {
	Kind    Kind
	Message string

	Blocked     bool
	Reason      string
	BlockedAt   *int
	SongsPlayed *int
	IsOwner     *bool
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is позволяет сравнивать по виду: errors.Is(err, errs.QueueEmpty(""))
func (e *CommandError) Is(target error) bool {
	t, ok := target.(*CommandError)

	return ok && t.Kind == e.Kind
}

func New(kind Kind, msg string) *CommandError {
	return &CommandError{Kind: kind, Message: msg}
}

func PermissionDenied(msg string) *CommandError { return New(KindPermissionDenied, msg) }

func InvalidCommand(msg string) *CommandError { return New(KindInvalidCommand, msg) }

func QueueEmpty(msg string) *CommandError { return New(KindQueueEmpty, msg) }

func RoomClosed(msg string) *CommandError { return New(KindRoomClosed, msg) }

func NotFound(msg string) *CommandError { return New(KindNotFound, msg) }

// TierLimitReached - блокировка по уровню, клиент показывает апгрейд.
func TierLimitReached(reason, msg string) *CommandError {
	return &CommandError{
		Kind:    KindTierLimitReached,
		Message: msg,
		Blocked: true,
		Reason:  reason,
	}
}

// KindOf возвращает вид ошибки или пустую строку для посторонних ошибок.
func KindOf(err error) Kind {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Kind
	}

	return ""
}
