package notify

import (
	"context"
	"encoding/json"
	"errors"

	"challenge_arena/internal/domain"
	"challenge_arena/internal/ws"
)

// WSChannel отправляет событие во все живые соединения участника
type WSChannel struct {
	hub *ws.Hub
}

func NewWSChannel(hub *ws.Hub) *WSChannel {
	return &WSChannel{hub: hub}
}

func (c *WSChannel) Kind() domain.EndpointKind {
	return domain.EndpointWS
}

func (c *WSChannel) Deliver(_ context.Context, participantID string, msg Message) error {
	payload, err := json.Marshal(struct {
		Type string `json:"type"`
		Message
	}{Type: string(msg.Event), Message: msg})
	if err != nil {
		return err
	}
	if _, err := c.hub.SendTo(participantID, payload); err != nil {
		if errors.Is(err, ws.ErrNoConnection) {
			return ErrSkipped
		}
		return err
	}
	return nil
}
