package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thespaceapp/marketplace/kv"
)

const storageKey = "subscriptions"

var (
	ErrUnknownTier = errors.New("unknown subscription tier")
	ErrBasicTier   = errors.New("basic plans cannot be extended")
)

// Get returns the user's plan, defaulting to basic when none was ever stored.
func Get(ctx context.Context, store *kv.Store, userID string) (Record, error) {
	records, _, err := kv.Load[[]Record](ctx, store, storageKey)
	if err != nil {
		return Record{}, fmt.Errorf("loading subscriptions: %w", err)
	}

	for _, rec := range records {
		if rec.UserID == userID {
			return rec, nil
		}
	}

	return Record{UserID: userID, Tier: Basic}, nil
}

// ChangeTier moves the user to another tier. Paid tiers expire at the given
// date, or one year from now when none is given; dropping to basic clears the
// expiry.
func ChangeTier(ctx context.Context, store *kv.Store, userID string, tier Tier, until *time.Time, now time.Time) (Record, error) {
	if !tier.Valid() {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}

	rec := Record{
		UserID:    userID,
		Tier:      tier,
		UpdatedAt: now.UTC(),
	}
	if tier != Basic {
		exp := now.UTC().AddDate(1, 0, 0)
		if until != nil {
			exp = until.UTC()
		}
		rec.ExpiresAt = &exp
	}

	if err := upsert(ctx, store, rec); err != nil {
		return Record{}, fmt.Errorf("changing tier of user[%s] to %s: %w", userID, tier, err)
	}
	return rec, nil
}

// Extend adds a year to the plan, counting from the expiry when the plan is
// still running and from now when it already lapsed. An explicit until
// overrides the computed date.
func Extend(ctx context.Context, store *kv.Store, userID string, until *time.Time, now time.Time) (Record, error) {
	rec, err := Get(ctx, store, userID)
	if err != nil {
		return Record{}, err
	}
	if rec.Tier == Basic {
		return Record{}, ErrBasicTier
	}

	var exp time.Time
	switch {
	case until != nil:
		exp = until.UTC()
	case rec.ExpiresAt != nil && rec.ExpiresAt.After(now):
		exp = rec.ExpiresAt.UTC().AddDate(1, 0, 0)
	default:
		exp = now.UTC().AddDate(1, 0, 0)
	}

	rec.ExpiresAt = &exp
	rec.UpdatedAt = now.UTC()

	if err := upsert(ctx, store, rec); err != nil {
		return Record{}, fmt.Errorf("extending plan of user[%s]: %w", userID, err)
	}
	return rec, nil
}

func upsert(ctx context.Context, store *kv.Store, rec Record) error {
	return kv.Update(ctx, store, storageKey, func(records []Record) ([]Record, error) {
		for i := range records {
			if records[i].UserID == rec.UserID {
				records[i] = rec
				return records, nil
			}
		}
		return append(records, rec), nil
	})
}
