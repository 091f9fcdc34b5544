package http

import (
	"errors"

	"github.com/cristianortiz/auctionMarket/internal/auction/application"
	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/cristianortiz/auctionMarket/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// UserHeader carries the acting user id, set by whatever authenticates requests upstream
const UserHeader = "X-User-ID"

var (
	errMissingUser   = errors.New("missing or invalid " + UserHeader + " header")
	errInvalidID     = errors.New("invalid listing id")
	errInvalidBody   = errors.New("invalid request body")
	errInternalError = errors.New("internal error")
)

type createListingRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	ImageURL      string          `json:"image_url"`
	StartingPrice decimal.Decimal `json:"starting_price"`
}

type placeBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type placeBidResponse struct {
	Bid           *application.BidDTO `json:"bid"`
	CurrentPrice  string              `json:"current_price"`
	Notifications int                 `json:"notifications"`
}

type highestBidResponse struct {
	HighestBid *application.BidDTO `json:"highest_bid"`
}

type closeResponse struct {
	Listing    *application.ListingStateDTO `json:"listing"`
	WinningBid *application.BidDTO          `json:"winning_bid"`
	NoBids     bool                         `json:"no_bids"`
}

// AuctionHTTPHandler exposes the AuctionService over REST
type AuctionHTTPHandler struct {
	auctionService application.AuctionService
}

func NewAuctionHTTPHandler(auctionService application.AuctionService) *AuctionHTTPHandler {
	return &AuctionHTTPHandler{auctionService: auctionService}
}

func (h *AuctionHTTPHandler) RegisterRoutes(router fiber.Router) {
	listings := router.Group("/api/listings")
	listings.Get("/", h.activeListings)
	listings.Post("/", h.createListing)
	listings.Get("/:id", h.getListing)
	listings.Post("/:id/bids", h.placeBid)
	listings.Get("/:id/bids", h.listBids)
	listings.Get("/:id/highest-bid", h.highestBid)
	listings.Post("/:id/close", h.closeListing)
}

func (h *AuctionHTTPHandler) createListing(c *fiber.Ctx) error {
	ownerID, err := actingUser(c)
	if err != nil {
		return writeError(c, err)
	}
	var req createListingRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody)
	}
	listing, err := h.auctionService.CreateListing(c.UserContext(), application.CreateListingDTO{
		OwnerID:       ownerID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		ImageURL:      req.ImageURL,
		StartingPrice: req.StartingPrice,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(application.NewListingStateDTO(listing, nil))
}

func (h *AuctionHTTPHandler) activeListings(c *fiber.Ctx) error {
	states, err := h.auctionService.ActiveListings(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(states)
}

func (h *AuctionHTTPHandler) getListing(c *fiber.Ctx) error {
	listingID, err := listingParam(c)
	if err != nil {
		return writeError(c, err)
	}
	state, err := h.auctionService.GetListingState(c.UserContext(), listingID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(state)
}

func (h *AuctionHTTPHandler) placeBid(c *fiber.Ctx) error {
	listingID, err := listingParam(c)
	if err != nil {
		return writeError(c, err)
	}
	bidderID, err := actingUser(c)
	if err != nil {
		return writeError(c, err)
	}
	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody)
	}
	result, err := h.auctionService.PlaceBid(c.UserContext(), application.PlaceBidDTO{
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    req.Amount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(placeBidResponse{
		Bid:           application.NewBidDTO(result.Bid),
		CurrentPrice:  result.Listing.Price().StringFixed(2),
		Notifications: len(result.Events),
	})
}

func (h *AuctionHTTPHandler) listBids(c *fiber.Ctx) error {
	listingID, err := listingParam(c)
	if err != nil {
		return writeError(c, err)
	}
	bids, err := h.auctionService.ListBids(c.UserContext(), listingID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]*application.BidDTO, 0, len(bids))
	for _, b := range bids {
		out = append(out, application.NewBidDTO(b))
	}
	return c.JSON(out)
}

func (h *AuctionHTTPHandler) highestBid(c *fiber.Ctx) error {
	listingID, err := listingParam(c)
	if err != nil {
		return writeError(c, err)
	}
	bid, err := h.auctionService.HighestBid(c.UserContext(), listingID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(highestBidResponse{HighestBid: application.NewBidDTO(bid)})
}

func (h *AuctionHTTPHandler) closeListing(c *fiber.Ctx) error {
	listingID, err := listingParam(c)
	if err != nil {
		return writeError(c, err)
	}
	requesterID, err := actingUser(c)
	if err != nil {
		return writeError(c, err)
	}
	result, err := h.auctionService.Close(c.UserContext(), application.CloseListingDTO{
		ListingID:   listingID,
		RequesterID: requesterID,
	})
	if err != nil {
		return writeError(c, err)
	}
	state, err := h.auctionService.GetListingState(c.UserContext(), listingID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(closeResponse{
		Listing:    state,
		WinningBid: application.NewBidDTO(result.WinningBid),
		NoBids:     result.NoBids,
	})
}

func listingParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func actingUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Get(UserHeader))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errMissingUser
	}
	return id, nil
}

// statusOf maps ledger errors to http status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, errMissingUser):
		return fiber.StatusUnauthorized
	case errors.Is(err, errInvalidID), errors.Is(err, errInvalidBody),
		errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidListing),
		errors.Is(err, domain.ErrSelfBid):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrListingNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNotOwner):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrListingInactive), errors.Is(err, domain.ErrAlreadyClosed),
		errors.Is(err, domain.ErrBidTooLow), errors.Is(err, domain.ErrDuplicateTitle):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrContention):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	msg := err.Error()
	switch rejection := domain.RejectionOf(err); {
	case rejection != nil:
		msg = rejection.Error()
	case status == fiber.StatusServiceUnavailable:
		msg = domain.ErrContention.Error()
	case status == fiber.StatusInternalServerError:
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		msg = errInternalError.Error()
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
