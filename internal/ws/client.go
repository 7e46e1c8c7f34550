package ws

import (
	"time"

	"challenge_arena/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 64
)

// Client - одно websocket соединение участника. Канал только на отправку:
// входящие сообщения читаются ради pong и закрытия.
type Client struct {
	ParticipantID string
	Conn          *websocket.Conn
	Send          chan []byte
	Hub           *Hub
	Done          chan struct{}
}

func NewClient(participantID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ParticipantID: participantID,
		Conn:          conn,
		Send:          make(chan []byte, sendBuffer),
		Hub:           hub,
		Done:          make(chan struct{}),
	}
}

// Run регистрирует клиента в хабе и держит соединение до разрыва
func (c *Client) Run() {
	c.Hub.Register(c)
	go c.writePump()

	// хендшейк готовности, клиент может его дождаться
	select {
	case c.Send <- []byte(`{"type":"ready"}`):
	default:
	}

	c.readPump()
}

// read
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(4096)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read failed", "participant", c.ParticipantID, "error", err)
			}
			return
		}
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write failed", "participant", c.ParticipantID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done:
			return
		}
	}
}
