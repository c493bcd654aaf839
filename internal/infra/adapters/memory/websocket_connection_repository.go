package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Luminawater/juketogether/internal/application/constant"
	"github.com/Luminawater/juketogether/internal/application/metric"
	"github.com/Luminawater/juketogether/internal/domain/events"
)

const writeWait = 10 * time.Second

// Socket - то, что нужно от *websocket.Conn для записи
type Socket interface {
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// WebsocketConnectionRepository хранит открытые соединения и доставляет им события.
// Отправка не блокирует: у каждого соединения своя очередь и пишущая горутина.
type WebsocketConnectionRepository interface {
	Add(conn *Connection)
	Remove(connID uuid.UUID)

	Send(connID uuid.UUID, event events.Event)
	SendToUser(userID uuid.UUID, event events.Event)

	GetAllConnected() []uuid.UUID
}

// Connection - одно клиентское соединение
type Connection struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Anonymous bool

	socket Socket
	send   chan events.Event
	done   chan struct{}
	once   sync.Once
}

func NewConnection(id uuid.UUID, socket Socket, userID uuid.UUID, anonymous bool, buffer int) *Connection {
	return &Connection{
		ID:        id,
		UserID:    userID,
		Anonymous: anonymous,
		socket:    socket,
		send:      make(chan events.Event, buffer),
		done:      make(chan struct{}),
	}
}

// WritePump - единственный писатель в сокет. Завершается при закрытии соединения.
func (c *Connection) WritePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteJSON(e); err != nil {
				slog.Debug(
					"write to websocket",
					slog.Any(constant.Error, err),
					slog.Any(constant.ConnID, c.ID),
				)
				c.Close()
				return
			}
		case <-ticker.C:
			err := c.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Done закрывается вместе с соединением
func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.socket.Close()
	})
}

// enqueue возвращает false, если очередь переполнена
func (c *Connection) enqueue(e events.Event) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- e:
		return true
	default:
		return false
	}
}

type wsConnectionRepository struct {
	// conns хранит map[conn_id]*Connection
	conns map[uuid.UUID]*Connection
	// byUser хранит map[user_id]set[conn_id], у пользователя может быть несколько вкладок
	byUser map[uuid.UUID]map[uuid.UUID]struct{}

	mu sync.RWMutex
}

func NewWSConnectionRepository() WebsocketConnectionRepository {
	return &wsConnectionRepository{
		conns:  make(map[uuid.UUID]*Connection, 10),
		byUser: make(map[uuid.UUID]map[uuid.UUID]struct{}, 10),
	}
}

func (w *wsConnectionRepository) Add(conn *Connection) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.conns[conn.ID] = conn

	set, ok := w.byUser[conn.UserID]
	if !ok {
		set = make(map[uuid.UUID]struct{}, 1)
		w.byUser[conn.UserID] = set
	}
	set[conn.ID] = struct{}{}

	metric.IncrementWSActiveConnections()
}

func (w *wsConnectionRepository) Remove(connID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	conn, exists := w.conns[connID]
	if !exists {
		return
	}

	delete(w.conns, connID)
	if set := w.byUser[conn.UserID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(w.byUser, conn.UserID)
		}
	}

	metric.DecrementWSActiveConnections()
}

// Send кладёт событие в очередь соединения. Медленный клиент отключается,
// он получит свежий снапшот при переподключении.
func (w *wsConnectionRepository) Send(connID uuid.UUID, event events.Event) {
	w.mu.RLock()
	conn, ok := w.conns[connID]
	w.mu.RUnlock()

	if !ok {
		return
	}

	if !conn.enqueue(event) {
		slog.Warn(
			"slow websocket consumer",
			slog.Any(constant.ConnID, connID),
			slog.Any(constant.UserID, conn.UserID),
		)
		metric.IncrementSlowConsumers()
		conn.Close()
	}
}

func (w *wsConnectionRepository) SendToUser(userID uuid.UUID, event events.Event) {
	for _, connID := range w.connsOf(userID) {
		w.Send(connID, event)
	}
}

func (w *wsConnectionRepository) connsOf(userID uuid.UUID) []uuid.UUID {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(w.byUser[userID]))
	for id := range w.byUser[userID] {
		ids = append(ids, id)
	}

	return ids
}

// GetAllConnected возвращает аутентифицированных пользователей онлайн
func (w *wsConnectionRepository) GetAllConnected() []uuid.UUID {
	w.mu.RLock()
	defer w.mu.RUnlock()

	userIDs := make([]uuid.UUID, 0, len(w.byUser))

	for userID, set := range w.byUser {
		for connID := range set {
			if !w.conns[connID].Anonymous {
				userIDs = append(userIDs, userID)
			}
			break
		}
	}

	return userIDs
}
