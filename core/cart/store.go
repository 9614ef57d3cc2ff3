package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thespaceapp/marketplace/kv"
	"github.com/thespaceapp/marketplace/validate"
)

var ErrItemNotFound = errors.New("cart item not found")

func storageKey(userID string) string {
	return "cart:" + userID
}

// Items returns the buyer's cart lines in insertion order.
func Items(ctx context.Context, store *kv.Store, userID string) ([]LineItem, error) {
	items, _, err := kv.Load[[]LineItem](ctx, store, storageKey(userID))
	if err != nil {
		return nil, fmt.Errorf("loading cart for user[%s]: %w", userID, err)
	}
	return items, nil
}

// AddItem appends a new line with a fresh cartItemId. It never merges with an
// existing line for the same product.
func AddItem(ctx context.Context, store *kv.Store, userID string, n ItemNew) (LineItem, error) {
	qty := n.Quantity
	if qty < 1 {
		qty = 1
	}

	item := LineItem{
		CartItemID: validate.GenerateID(),
		ProductID:  n.ProductID,
		SellerID:   n.SellerID,
		Name:       n.Name,
		ImageURL:   n.ImageURL,
		UnitPrice:  n.Price,
		Quantity:   qty,
		AddedAt:    time.Now().UTC(),
	}

	err := kv.Update(ctx, store, storageKey(userID), func(items []LineItem) ([]LineItem, error) {
		return append(items, item), nil
	})
	if err != nil {
		return LineItem{}, fmt.Errorf("adding item to cart for user[%s]: %w", userID, err)
	}

	return item, nil
}

// RemoveItem filters the line out. Removing an absent line is a no-op.
func RemoveItem(ctx context.Context, store *kv.Store, userID, cartItemID string) error {
	err := kv.Update(ctx, store, storageKey(userID), func(items []LineItem) ([]LineItem, error) {
		kept := items[:0]
		for _, it := range items {
			if it.CartItemID != cartItemID {
				kept = append(kept, it)
			}
		}
		return kept, nil
	})
	if err != nil {
		return fmt.Errorf("removing item[%s] from cart for user[%s]: %w", cartItemID, userID, err)
	}
	return nil
}

// SetQuantity updates a line's quantity, flooring at one.
func SetQuantity(ctx context.Context, store *kv.Store, userID, cartItemID string, qty int) (LineItem, error) {
	if qty < 1 {
		qty = 1
	}

	var updated LineItem
	err := kv.Update(ctx, store, storageKey(userID), func(items []LineItem) ([]LineItem, error) {
		for i := range items {
			if items[i].CartItemID == cartItemID {
				items[i].Quantity = qty
				updated = items[i]
				return items, nil
			}
		}
		return nil, ErrItemNotFound
	})
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return LineItem{}, err
		}
		return LineItem{}, fmt.Errorf("updating quantity of item[%s] for user[%s]: %w", cartItemID, userID, err)
	}

	return updated, nil
}

// Flush empties the cart, typically after a fulfilled checkout.
func Flush(ctx context.Context, store *kv.Store, userID string) error {
	err := kv.Update(ctx, store, storageKey(userID), func([]LineItem) ([]LineItem, error) {
		return []LineItem{}, nil
	})
	if err != nil {
		return fmt.Errorf("flushing cart for user[%s]: %w", userID, err)
	}
	return nil
}
