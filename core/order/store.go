package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thespaceapp/marketplace/kv"
	"github.com/thespaceapp/marketplace/validate"
)

const storageKey = "orders"

var (
	ErrNotFound       = errors.New("order not found")
	ErrNotCancellable = errors.New("order can no longer be cancelled")
)

// Create appends the order to the ledger with an initial pending update.
func Create(ctx context.Context, store *kv.Store, ord Order) (Order, error) {
	if ord.ID == "" {
		ord.ID = validate.GenerateID()
	}
	now := time.Now().UTC()
	ord.CreatedAt = now
	ord.Tracking = []TrackingUpdate{{
		ID:          validate.GenerateID(),
		Status:      Pending,
		Description: "Order placed",
		Timestamp:   now,
	}}

	err := kv.Update(ctx, store, storageKey, func(orders []Order) ([]Order, error) {
		return append(orders, ord), nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("creating order for buyer[%s]: %w", ord.BuyerID, err)
	}

	return ord, nil
}

func all(ctx context.Context, store *kv.Store) ([]Order, error) {
	orders, _, err := kv.Load[[]Order](ctx, store, storageKey)
	if err != nil {
		return nil, fmt.Errorf("loading orders: %w", err)
	}
	return orders, nil
}

func ByID(ctx context.Context, store *kv.Store, orderID string) (Order, error) {
	orders, err := all(ctx, store)
	if err != nil {
		return Order{}, err
	}

	for _, o := range orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func ListForBuyer(ctx context.Context, store *kv.Store, buyerID string) ([]Order, error) {
	orders, err := all(ctx, store)
	if err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func ListForSeller(ctx context.Context, store *kv.Store, sellerID string) ([]Order, error) {
	orders, err := all(ctx, store)
	if err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.SellerID == sellerID {
			out = append(out, o)
		}
	}
	return out, nil
}

// AppendUpdate appends a tracking update to the order's sequence. The
// sequence is append-only: existing entries are never touched.
func AppendUpdate(ctx context.Context, store *kv.Store, orderID string, up TrackingUpdate) (Order, error) {
	if up.ID == "" {
		up.ID = validate.GenerateID()
	}
	if up.Timestamp.IsZero() {
		up.Timestamp = time.Now().UTC()
	}

	var updated Order
	err := kv.Update(ctx, store, storageKey, func(orders []Order) ([]Order, error) {
		for i := range orders {
			if orders[i].ID == orderID {
				orders[i].Tracking = append(orders[i].Tracking, up)
				updated = orders[i]
				return orders, nil
			}
		}
		return nil, ErrNotFound
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("appending tracking to order[%s]: %w", orderID, err)
	}

	return updated, nil
}

// AttachTrackingNumber stores the carrier link on the order record itself,
// the first source consulted when resolving tracking.
func AttachTrackingNumber(ctx context.Context, store *kv.Store, orderID, link string) (Order, error) {
	var updated Order
	err := kv.Update(ctx, store, storageKey, func(orders []Order) ([]Order, error) {
		for i := range orders {
			if orders[i].ID == orderID {
				orders[i].TrackingNumber = link
				updated = orders[i]
				return orders, nil
			}
		}
		return nil, ErrNotFound
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("attaching tracking number to order[%s]: %w", orderID, err)
	}

	return updated, nil
}

// Cancel closes the order by appending a cancelled update, provided the
// cancellation window has not passed.
func Cancel(ctx context.Context, store *kv.Store, orderID string, now time.Time) (Order, error) {
	var updated Order
	err := kv.Update(ctx, store, storageKey, func(orders []Order) ([]Order, error) {
		for i := range orders {
			if orders[i].ID != orderID {
				continue
			}

			if !IsCancellable(orders[i], now) {
				return nil, ErrNotCancellable
			}

			orders[i].Tracking = append(orders[i].Tracking, TrackingUpdate{
				ID:          validate.GenerateID(),
				Status:      Cancelled,
				Description: "Cancelled by buyer",
				Timestamp:   now.UTC(),
			})
			updated = orders[i]
			return orders, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotCancellable) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("cancelling order[%s]: %w", orderID, err)
	}

	return updated, nil
}

// Fulfill marks every order bound to the payment session as processing.
// Called from the payment capture path once the provider confirms payment.
func Fulfill(ctx context.Context, store *kv.Store, providerID string) ([]Order, error) {
	var fulfilled []Order
	err := kv.Update(ctx, store, storageKey, func(orders []Order) ([]Order, error) {
		fulfilled = fulfilled[:0]
		now := time.Now().UTC()
		for i := range orders {
			if orders[i].ProviderID != providerID {
				continue
			}

			orders[i].Tracking = append(orders[i].Tracking, TrackingUpdate{
				ID:          validate.GenerateID(),
				Status:      Processing,
				Description: "Payment confirmed",
				Timestamp:   now,
			})
			fulfilled = append(fulfilled, orders[i])
		}

		if len(fulfilled) == 0 {
			return nil, fmt.Errorf("no orders bound to payment[%s]: %w", providerID, ErrNotFound)
		}
		return orders, nil
	})
	if err != nil {
		return nil, err
	}

	return fulfilled, nil
}
