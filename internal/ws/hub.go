package ws

import (
	"errors"
	"sync"
)

// ErrNoConnection - у участника нет живых соединений
var ErrNoConnection = errors.New("no live websocket connection")

// Hub хранит живые соединения по участнику. У одного участника
// может быть несколько вкладок, сообщение уходит во все.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.ParticipantID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.ParticipantID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.ParticipantID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.ParticipantID)
	}
}

// Connected - число живых соединений участника
func (h *Hub) Connected(participantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[participantID])
}

// SendTo ставит сообщение в очередь всех соединений участника.
// Соединение с переполненной очередью пропускается, доставка в остальные продолжается.
// Возвращает число соединений, принявших сообщение.
func (h *Hub) SendTo(participantID string, msg []byte) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.clients[participantID]
	if len(set) == 0 {
		return 0, ErrNoConnection
	}
	sent := 0
	for c := range set {
		select {
		case c.Send <- msg:
			sent++
		default:
		}
	}
	return sent, nil
}
