package runtime

import (
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/models"
)

// RoomUser - участник комнаты, пока открыто его соединение
type RoomUser struct {
	ConnID    uuid.UUID   `json:"connId"`
	UserID    uuid.UUID   `json:"userId"`
	Username  string      `json:"username"`
	Anonymous bool        `json:"anonymous"`
	Tier      models.Tier `json:"tier"`
	IsOwner   bool        `json:"isOwner"`
	IsAdmin   bool        `json:"isAdmin"`
	JoinedAt  time.Time   `json:"joinedAt"`
}
