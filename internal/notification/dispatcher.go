package notification

import (
	"context"
	"errors"

	"github.com/cristianortiz/auctionMarket/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

//go:generate mockgen -source=dispatcher.go -destination=mock_dispatcher.go -package=notification

// Dispatcher delivers notification events somewhere (log, pub/sub, sockets...).
// Delivery is best effort from the ledger point of view.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []Event) error
}

// LogDispatcher writes every event to the logger
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, events []Event) error {
	for _, e := range events {
		log.Info("Notification emitted",
			zap.String("kind", string(e.Kind)),
			zap.String("recipientID", e.RecipientID.String()),
			zap.String("listingID", e.ListingID.String()),
			zap.String("amount", e.Amount.String()),
		)
	}
	return nil
}

// FanOut sends events to every dispatcher, one failing does not stop the others
type FanOut []Dispatcher

func (f FanOut) Dispatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	var errs []error
	for _, d := range f {
		if err := d.Dispatch(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
