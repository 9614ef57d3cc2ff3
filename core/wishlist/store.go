package wishlist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/thespaceapp/marketplace/kv"
)

// Toggle saves the product if absent and removes it if present, reporting
// whether it ended up saved. Toggling twice always restores the previous
// state.
func Toggle(ctx context.Context, store *kv.Store, userID string, product json.RawMessage) (bool, error) {
	id, err := Identity(product)
	if err != nil {
		return false, err
	}

	var saved bool
	err = kv.Update(ctx, store, storageKey(userID), func(entries []Entry) ([]Entry, error) {
		for i, e := range entries {
			if e.ID == id {
				saved = false
				return append(entries[:i], entries[i+1:]...), nil
			}
		}

		saved = true
		return append(entries, Entry{
			ID:      id,
			Product: product,
			SavedAt: time.Now().UTC(),
		}), nil
	})
	if err != nil {
		return false, fmt.Errorf("toggling wishlist entry[%s] for user[%s]: %w", id, userID, err)
	}

	return saved, nil
}

// IsSaved reports whether the product is currently on the wishlist.
func IsSaved(ctx context.Context, store *kv.Store, userID string, product json.RawMessage) (bool, error) {
	id, err := Identity(product)
	if err != nil {
		return false, err
	}

	entries, _, err := kv.Load[[]Entry](ctx, store, storageKey(userID))
	if err != nil {
		return false, fmt.Errorf("loading wishlist for user[%s]: %w", userID, err)
	}

	for _, e := range entries {
		if e.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// List returns the wishlist ordered by save time, oldest first.
func List(ctx context.Context, store *kv.Store, userID string) ([]Entry, error) {
	entries, _, err := kv.Load[[]Entry](ctx, store, storageKey(userID))
	if err != nil {
		return nil, fmt.Errorf("loading wishlist for user[%s]: %w", userID, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SavedAt.Before(entries[j].SavedAt)
	})
	return entries, nil
}
