package websocket

import (
	"context"
	"encoding/json"

	"github.com/cristianortiz/auctionMarket/internal/auction/application"
	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/cristianortiz/auctionMarket/internal/shared/logger"
	"github.com/cristianortiz/auctionMarket/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler handles the ws inbound msgs wich are specific for auction module (remember is a bounded context)
type AuctionWSHandler struct {
	auctionService application.AuctionService // application layer dependency
	hub            *websocket.Hub             // shared hub dependency to send msgs
}

// NewAuctionWSHandler creates a new instance of AuctionWSHandler
func NewAuctionWSHandler(auctionService application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
	}
}

// RegisterRoutes mounts the listing socket endpoint: /ws/listings/:id?user_id=<uuid>.
// Without user_id the socket only watches, it can't bid nor receive notifications.
func (h *AuctionWSHandler) RegisterRoutes(ctx context.Context, app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/listings/:id", func(c *fiber.Ctx) error {
		if _, err := uuid.Parse(c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid listing id")
		}
		if userID := c.Query("user_id"); userID != "" {
			if _, err := uuid.Parse(userID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
			}
		}
		return c.Next()
	}, fiberws.New(func(conn *fiberws.Conn) {
		h.serve(ctx, conn)
	}))
}

// serve runs one socket until it disconnects
func (h *AuctionWSHandler) serve(ctx context.Context, conn *fiberws.Conn) {
	client := &websocket.Client{
		Hub:       h.hub,
		Conn:      conn,
		Send:      make(chan []byte, websocket.ClientQueueSize),
		ListingID: conn.Params("id"),
		UserID:    conn.Query("user_id"),
		ID:        uuid.NewString(),
	}

	listingID, _ := uuid.Parse(client.ListingID)
	state, err := h.auctionService.GetListingState(ctx, listingID)
	if err != nil {
		// no pumps yet, write straight to the connection
		errMsg := ServerErrorMessage{BaseMessage: BaseMessage{MessageTypeServerError}}
		errMsg.Payload.Error = clientError(err)
		_ = conn.WriteJSON(errMsg)
		_ = conn.Close()
		return
	}
	h.hub.RegisterClient(client)
	h.sendToClient(client, ServerListingMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
		Payload:     state,
	})

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// ListenForMessages starts a go routine that listen the Hub inbound channel for messages and proccess every one of them
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

// processMesssage dispatch the message by this type
func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, "invalid message format")
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBidMessage(ctx, client, data)
	default:
		h.sendErrorToClient(client, "unknown message type")
	}
}

func (h *AuctionWSHandler) handleClientBidMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorToClient(client, "invalid bid message format")
		return
	}
	if bidMsg.Payload.ListingID.String() != client.ListingID {
		h.sendErrorToClient(client, "listing ID mismatch")
		return
	}
	bidderID, err := uuid.Parse(client.UserID)
	if err != nil {
		h.sendErrorToClient(client, "connect with user_id to place bids")
		return
	}

	result, err := h.auctionService.PlaceBid(ctx, application.PlaceBidDTO{
		ListingID: bidMsg.Payload.ListingID,
		BidderID:  bidderID,
		Amount:    bidMsg.Payload.Amount,
	})
	if err != nil {
		h.sendErrorToClient(client, clientError(err))
		return
	}

	state, err := h.auctionService.GetListingState(ctx, result.Listing.ID)
	if err != nil {
		log.Error("failed to load listing state after bid",
			zap.String("listingID", client.ListingID),
			zap.Error(err),
		)
		return
	}
	update, err := json.Marshal(ServerListingMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerListingUpdate},
		Payload:     state,
	})
	if err != nil {
		log.Error("failed to marshal listing update", zap.Error(err))
		return
	}
	h.hub.BroadcastToListing(client.ListingID, update)
}

// clientError hides infrastructure failures from the socket
func clientError(err error) string {
	if rejection := domain.RejectionOf(err); rejection != nil {
		return rejection.Error()
	}
	return "internal error, try again"
}

// sendErrorToClient serializes and sends an error msg to a specific client
func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, errorMessage string) {
	errMsg := ServerErrorMessage{
		BaseMessage: BaseMessage{MessageTypeServerError},
	}
	errMsg.Payload.Error = errorMessage
	h.sendToClient(client, errMsg)
}

func (h *AuctionWSHandler) sendToClient(client *websocket.Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal ws message", zap.Error(err))
		return
	}
	if !client.Enqueue(data) {
		log.Warn("client send queue full or closed, could not send message", zap.String("clientID", client.ID))
	}
}
