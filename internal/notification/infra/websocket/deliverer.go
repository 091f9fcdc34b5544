package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cristianortiz/auctionMarket/internal/notification"
	"github.com/cristianortiz/auctionMarket/internal/shared/websocket"
)

const MessageTypeServerNotification = "server_notification"

// ServerNotificationMessage is the frame pushed to a user's open sockets
type ServerNotificationMessage struct {
	Type    string             `json:"type"`
	Payload notification.Event `json:"payload"`
}

// UserSender is the part of the hub the deliverer needs
type UserSender interface {
	SendToUser(userID string, data []byte)
}

// Deliverer pushes each event to the sockets of its recipient
type Deliverer struct {
	hub UserSender
}

func NewDeliverer(hub UserSender) *Deliverer {
	return &Deliverer{hub: hub}
}

var (
	_ notification.Dispatcher = (*Deliverer)(nil)
	_ UserSender              = (*websocket.Hub)(nil)
)

func (d *Deliverer) Dispatch(_ context.Context, events []notification.Event) error {
	for _, e := range events {
		data, err := json.Marshal(ServerNotificationMessage{Type: MessageTypeServerNotification, Payload: e})
		if err != nil {
			return fmt.Errorf("websocket deliverer: marshal %s event: %w", e.Kind, err)
		}
		d.hub.SendToUser(e.RecipientID.String(), data)
	}
	return nil
}
