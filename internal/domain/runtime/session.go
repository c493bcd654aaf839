package runtime

import (
	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/models"
)

// Session - личность соединения и таблица его подписок на комнаты.
// Принадлежит горутине чтения соединения.
type Session struct {
	ConnID    uuid.UUID
	UserID    uuid.UUID
	Username  string
	Anonymous bool
	Tier      models.Tier

	rooms map[string]struct{}
}

func NewSession(userID uuid.UUID, username string, anonymous bool, tier models.Tier) *Session {
	return &Session{
		ConnID:    uuid.New(),
		UserID:    userID,
		Username:  username,
		Anonymous: anonymous,
		Tier:      tier,
		rooms:     make(map[string]struct{}),
	}
}

// NewAnonymousSession - гость с одноразовым идентификатором
func NewAnonymousSession() *Session {
	id := uuid.New()

	return NewSession(id, "anon-"+id.String()[:8], true, models.TierFree)
}

func (s *Session) Subscribe(roomID string) { s.rooms[roomID] = struct{}{} }

func (s *Session) Unsubscribe(roomID string) { delete(s.rooms, roomID) }

func (s *Session) Subscribed(roomID string) bool {
	_, ok := s.rooms[roomID]

	return ok
}

func (s *Session) Rooms() []string {
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}

	return out
}

func (s *Session) RoomUser() RoomUser {
	return RoomUser{
		ConnID:    s.ConnID,
		UserID:    s.UserID,
		Username:  s.Username,
		Anonymous: s.Anonymous,
		Tier:      s.Tier,
	}
}
