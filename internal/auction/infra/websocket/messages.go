package websocket

import (
	"github.com/cristianortiz/auctionMarket/internal/auction/application"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientBid           MessageType = "client_bid"            // client msg to make a bid
	MessageTypeServerListingUpdate MessageType = "server_listing_update" // server msg with listing update
	MessageTypeServerError         MessageType = "server_error"          // server msg indicating error
	MessageTypeServerInitialState  MessageType = "server_initial_state"  // server msg with listing state on connect
)

// BaseMessage is base struct for all the WS messages, includes a Type field for identify the message type
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is DTO for a bid message sent by the client, the bidder is the
// user the socket was opened for. Amount accepts a JSON number or string.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		ListingID uuid.UUID       `json:"listing_id"`
		Amount    decimal.Decimal `json:"amount"`
	} `json:"payload"`
}

// ServerListingMessage carries a listing snapshot, used for the initial state and every update
type ServerListingMessage struct {
	BaseMessage
	Payload *application.ListingStateDTO `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
	} `json:"payload"`
}
