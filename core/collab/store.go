package collab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thespaceapp/marketplace/core/subscription"
	"github.com/thespaceapp/marketplace/kv"
)

const storageKey = "collab:requests"

var (
	ErrNotFound          = errors.New("collaboration request not found")
	ErrDuplicatePending  = errors.New("a pending request for this seller already exists")
	ErrLimitReached      = errors.New("the seller reached its collaboration limit")
	ErrIllegalTransition = errors.New("request status can only move from pending to accepted or rejected")
)

// SendRequest opens a pending request from the influencer to the seller. It
// refuses a second pending request for the same pair, and refuses when the
// seller's open requests already fill their plan's collaboration capacity.
func SendRequest(ctx context.Context, store *kv.Store, influencerID, sellerID, message string) (Request, error) {
	plan, err := subscription.Get(ctx, store, sellerID)
	if err != nil {
		return Request{}, fmt.Errorf("loading seller plan: %w", err)
	}
	capacity := plan.Tier.Limits().Collaborations

	now := time.Now().UTC()
	req := Request{
		ID:           newID(now),
		InfluencerID: influencerID,
		SellerID:     sellerID,
		Message:      message,
		Status:       Pending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = kv.Update(ctx, store, storageKey, func(requests []Request) ([]Request, error) {
		open := 0
		for _, r := range requests {
			if r.SellerID != sellerID {
				continue
			}
			if r.InfluencerID == influencerID && r.Status == Pending {
				return nil, ErrDuplicatePending
			}
			if r.Open() {
				open++
			}
		}

		if capacity != subscription.Unlimited && open >= capacity {
			return nil, ErrLimitReached
		}
		return append(requests, req), nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicatePending) || errors.Is(err, ErrLimitReached) {
			return Request{}, err
		}
		return Request{}, fmt.Errorf("sending collaboration request to seller[%s]: %w", sellerID, err)
	}

	return req, nil
}

// UpdateStatus resolves a pending request. Accepted and rejected are terminal:
// any further transition fails.
func UpdateStatus(ctx context.Context, store *kv.Store, requestID string, next Status) (Request, error) {
	if next != Accepted && next != Rejected {
		return Request{}, ErrIllegalTransition
	}

	var updated Request
	err := kv.Update(ctx, store, storageKey, func(requests []Request) ([]Request, error) {
		for i := range requests {
			if requests[i].ID != requestID {
				continue
			}

			if requests[i].Status != Pending {
				return nil, ErrIllegalTransition
			}

			requests[i].Status = next
			requests[i].UpdatedAt = time.Now().UTC()
			updated = requests[i]
			return requests, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrIllegalTransition) {
			return Request{}, err
		}
		return Request{}, fmt.Errorf("updating collaboration request[%s]: %w", requestID, err)
	}

	return updated, nil
}

func ByID(ctx context.Context, store *kv.Store, requestID string) (Request, error) {
	requests, _, err := kv.Load[[]Request](ctx, store, storageKey)
	if err != nil {
		return Request{}, fmt.Errorf("loading collaboration requests: %w", err)
	}

	for _, r := range requests {
		if r.ID == requestID {
			return r, nil
		}
	}
	return Request{}, ErrNotFound
}

func ForInfluencer(ctx context.Context, store *kv.Store, influencerID string) ([]Request, error) {
	requests, _, err := kv.Load[[]Request](ctx, store, storageKey)
	if err != nil {
		return nil, fmt.Errorf("loading collaboration requests: %w", err)
	}

	out := make([]Request, 0, len(requests))
	for _, r := range requests {
		if r.InfluencerID == influencerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func ForSeller(ctx context.Context, store *kv.Store, sellerID string) ([]Request, error) {
	requests, _, err := kv.Load[[]Request](ctx, store, storageKey)
	if err != nil {
		return nil, fmt.Errorf("loading collaboration requests: %w", err)
	}

	out := make([]Request, 0, len(requests))
	for _, r := range requests {
		if r.SellerID == sellerID {
			out = append(out, r)
		}
	}
	return out, nil
}
