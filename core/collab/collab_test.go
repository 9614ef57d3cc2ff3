package collab_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thespaceapp/marketplace/core/collab"
	"github.com/thespaceapp/marketplace/core/subscription"
	"github.com/thespaceapp/marketplace/kv/kvtest"
)

func TestSendRequestDeduplicates(t *testing.T) {
	store := kvtest.NewStore(t)
	ctx := context.Background()

	// Pro plan so capacity is not the limiting factor here.
	if _, err := subscription.ChangeTier(ctx, store, "seller", subscription.Pro, nil, time.Now()); err != nil {
		t.Fatalf("setting seller plan: %v", err)
	}

	sent, err := collab.SendRequest(ctx, store, "inf", "seller", "let's work together")
	if err != nil {
		t.Fatalf("sending request: %v", err)
	}
	if sent.Status != collab.Pending {
		t.Errorf("fresh request status = %s, want %s", sent.Status, collab.Pending)
	}

	if _, err := collab.SendRequest(ctx, store, "inf", "seller", "again"); !errors.Is(err, collab.ErrDuplicatePending) {
		t.Fatalf("second pending request err = %v, want ErrDuplicatePending", err)
	}

	// Once resolved, the influencer may reach out again.
	if _, err := collab.UpdateStatus(ctx, store, sent.ID, collab.Rejected); err != nil {
		t.Fatalf("rejecting: %v", err)
	}
	if _, err := collab.SendRequest(ctx, store, "inf", "seller", "one more try"); err != nil {
		t.Fatalf("re-sending after rejection: %v", err)
	}
}

func TestSendRequestHonoursSellerCapacity(t *testing.T) {
	store := kvtest.NewStore(t)
	ctx := context.Background()

	// The implicit basic plan allows a single open collaboration.
	first, err := collab.SendRequest(ctx, store, "inf-1", "seller", "")
	if err != nil {
		t.Fatalf("sending first request: %v", err)
	}

	if _, err := collab.SendRequest(ctx, store, "inf-2", "seller", ""); !errors.Is(err, collab.ErrLimitReached) {
		t.Fatalf("err = %v, want ErrLimitReached on a full basic plan", err)
	}

	// Accepted requests still occupy capacity.
	if _, err := collab.UpdateStatus(ctx, store, first.ID, collab.Accepted); err != nil {
		t.Fatalf("accepting: %v", err)
	}
	if _, err := collab.SendRequest(ctx, store, "inf-2", "seller", ""); !errors.Is(err, collab.ErrLimitReached) {
		t.Fatalf("err = %v, want ErrLimitReached while a request is accepted", err)
	}

	// Upgrading the plan frees capacity.
	if _, err := subscription.ChangeTier(ctx, store, "seller", subscription.Enterprise, nil, time.Now()); err != nil {
		t.Fatalf("upgrading seller: %v", err)
	}
	if _, err := collab.SendRequest(ctx, store, "inf-2", "seller", ""); err != nil {
		t.Fatalf("sending on unlimited plan: %v", err)
	}
}

func TestUpdateStatusGuardsTransitions(t *testing.T) {
	store := kvtest.NewStore(t)
	ctx := context.Background()

	sent, err := collab.SendRequest(ctx, store, "inf", "seller", "")
	if err != nil {
		t.Fatalf("sending request: %v", err)
	}

	if _, err := collab.UpdateStatus(ctx, store, sent.ID, collab.Pending); !errors.Is(err, collab.ErrIllegalTransition) {
		t.Errorf("moving back to pending err = %v, want ErrIllegalTransition", err)
	}

	accepted, err := collab.UpdateStatus(ctx, store, sent.ID, collab.Accepted)
	if err != nil {
		t.Fatalf("accepting: %v", err)
	}
	if accepted.Status != collab.Accepted {
		t.Errorf("status = %s, want %s", accepted.Status, collab.Accepted)
	}

	// Accepted is terminal.
	if _, err := collab.UpdateStatus(ctx, store, sent.ID, collab.Rejected); !errors.Is(err, collab.ErrIllegalTransition) {
		t.Errorf("resolving twice err = %v, want ErrIllegalTransition", err)
	}

	if _, err := collab.UpdateStatus(ctx, store, "missing", collab.Accepted); !errors.Is(err, collab.ErrNotFound) {
		t.Errorf("unknown request err = %v, want ErrNotFound", err)
	}
}

func TestListsFilterByParticipant(t *testing.T) {
	store := kvtest.NewStore(t)
	ctx := context.Background()

	if _, err := subscription.ChangeTier(ctx, store, "s1", subscription.Pro, nil, time.Now()); err != nil {
		t.Fatalf("setting seller plan: %v", err)
	}

	if _, err := collab.SendRequest(ctx, store, "inf-1", "s1", ""); err != nil {
		t.Fatalf("sending: %v", err)
	}
	if _, err := collab.SendRequest(ctx, store, "inf-2", "s1", ""); err != nil {
		t.Fatalf("sending: %v", err)
	}

	mine, err := collab.ForInfluencer(ctx, store, "inf-1")
	if err != nil {
		t.Fatalf("listing for influencer: %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("influencer sees %d requests, want 1", len(mine))
	}

	theirs, err := collab.ForSeller(ctx, store, "s1")
	if err != nil {
		t.Fatalf("listing for seller: %v", err)
	}
	if len(theirs) != 2 {
		t.Errorf("seller sees %d requests, want 2", len(theirs))
	}
}
