package constant

// Ключи для структурированных логов
const (
	Error     = "error"
	UserID    = "user_id"
	UserName  = "user_name"
	RoomID    = "room_id"
	ConnID    = "conn_id"
	Command   = "command"
	Version   = "version"
	State     = "state"
	DeckIndex = "deck"
)
