package domain

import "time"

// Участник матчей. ID стабилен, адрес кошелька может меняться между сессиями
type Participant struct {
	ID            string    `db:"id" json:"id"`
	Handle        string    `db:"handle" json:"handle"`
	TgID          int64     `db:"tg_id" json:"tg_id,omitempty"`
	WalletAddress string    `db:"wallet_address" json:"wallet_address,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Тип канала доставки уведомлений
type EndpointKind string

const (
	EndpointTelegram EndpointKind = "telegram" // target = chat id
	EndpointWebhook  EndpointKind = "webhook"  // target = url
	EndpointWS       EndpointKind = "ws"       // живые websocket соединения, в БД не хранится
)

// Адрес доставки уведомлений участнику (только чтение со стороны ядра)
type NotificationEndpoint struct {
	ID            int64        `db:"id" json:"id"`
	ParticipantID string       `db:"participant_id" json:"participant_id"`
	Kind          EndpointKind `db:"kind" json:"kind"`
	Target        string       `db:"target" json:"target"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}
