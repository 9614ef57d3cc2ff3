package test

import (
	"net/http"
	"testing"

	"github.com/thespaceapp/marketplace/core/cart"
	"github.com/thespaceapp/marketplace/core/collab"
	"github.com/thespaceapp/marketplace/core/subscription"
	"github.com/thespaceapp/marketplace/core/wishlist"
	"github.com/thespaceapp/marketplace/money"
)

func TestCartFlow(t *testing.T) {
	env := NewTestEnv(t)

	// Anonymous requests bounce.
	discard(t, env.do(t, http.MethodGet, "/cart", nil), http.StatusUnauthorized)

	env.Login(t, "buyer@test.io")
	defer env.Logout(t)

	item := map[string]any{
		"productId": "p1",
		"sellerId":  "u-seller",
		"name":      "Desk Lamp",
		"price":     "49.99",
		"quantity":  2,
	}

	var added cart.LineItem
	decode(t, env.do(t, http.MethodPut, "/cart/items", item), http.StatusCreated, &added)
	if added.CartItemID == "" {
		t.Fatal("added line should get a cart item id")
	}

	// Adding the same product again opens a second line.
	discard(t, env.do(t, http.MethodPut, "/cart/items", item), http.StatusCreated)

	var shown struct {
		Items    []cart.LineItem `json:"items"`
		Subtotal money.Amount    `json:"subtotal"`
	}
	decode(t, env.do(t, http.MethodGet, "/cart", nil), http.StatusOK, &shown)
	if len(shown.Items) != 2 {
		t.Fatalf("cart has %d lines, want 2", len(shown.Items))
	}
	if !shown.Subtotal.Equal(money.FromFloat(199.96)) {
		t.Errorf("subtotal = %s, want 199.96", shown.Subtotal)
	}

	var quote struct {
		Subtotal money.Amount `json:"subtotal"`
		Shipping money.Amount `json:"shipping"`
		Discount money.Amount `json:"discount"`
		Total    money.Amount `json:"total"`
	}
	decode(t, env.do(t, http.MethodPost, "/cart/quote", map[string]string{
		"shippingMethod": "flat",
		"discountCode":   "save10",
	}), http.StatusOK, &quote)
	if !quote.Total.Equal(money.FromFloat(199.96)) {
		t.Errorf("total = %s, want 199.96 (subtotal +10 shipping -10 discount)", quote.Total)
	}

	// Decrementing below one floors to one; an explicit zero is no different.
	var updated cart.LineItem
	decode(t, env.do(t, http.MethodPut, "/cart/items/"+added.CartItemID, map[string]int{
		"quantity": 0,
	}), http.StatusOK, &updated)
	if updated.Quantity != 1 {
		t.Errorf("quantity after setting 0 = %d, want floor of 1", updated.Quantity)
	}

	discard(t, env.do(t, http.MethodDelete, "/cart/items/"+added.CartItemID, nil), http.StatusNoContent)
	discard(t, env.do(t, http.MethodDelete, "/cart", nil), http.StatusNoContent)

	decode(t, env.do(t, http.MethodGet, "/cart", nil), http.StatusOK, &shown)
	if len(shown.Items) != 0 {
		t.Errorf("cart has %d lines after flush, want 0", len(shown.Items))
	}
}

func TestWishlistFlow(t *testing.T) {
	env := NewTestEnv(t)
	env.Login(t, "buyer@test.io")
	defer env.Logout(t)

	product := map[string]any{"product": map[string]any{"id": "p1", "name": "Desk Lamp"}}

	var toggled struct {
		Saved bool `json:"saved"`
	}
	decode(t, env.do(t, http.MethodPost, "/wishlist/toggle", product), http.StatusOK, &toggled)
	if !toggled.Saved {
		t.Fatal("first toggle should save")
	}

	var entries []wishlist.Entry
	decode(t, env.do(t, http.MethodGet, "/wishlist", nil), http.StatusOK, &entries)
	if len(entries) != 1 || entries[0].ID != "p1" {
		t.Fatalf("wishlist = %+v, want the single entry p1", entries)
	}

	decode(t, env.do(t, http.MethodPost, "/wishlist/toggle", product), http.StatusOK, &toggled)
	if toggled.Saved {
		t.Fatal("second toggle should remove")
	}
}

func TestSubscriptionFlow(t *testing.T) {
	env := NewTestEnv(t)
	env.Login(t, "buyer@test.io")

	var plan struct {
		Tier      subscription.Tier   `json:"tier"`
		Limits    subscription.Limits `json:"limits"`
		Remaining string              `json:"remaining"`
	}
	decode(t, env.do(t, http.MethodGet, "/subscription", nil), http.StatusOK, &plan)
	if plan.Tier != subscription.Basic {
		t.Fatalf("default tier = %s, want %s", plan.Tier, subscription.Basic)
	}
	if plan.Remaining != "Active" {
		t.Errorf("remaining = %q, want Active", plan.Remaining)
	}

	// Changing tiers directly is an admin operation.
	discard(t, env.do(t, http.MethodPut, "/subscription/tier", map[string]string{
		"userId": "u-seller", "tier": "pro",
	}), http.StatusForbidden)
	env.Logout(t)

	env.Login(t, "admin@test.io")
	decode(t, env.do(t, http.MethodPut, "/subscription/tier", map[string]string{
		"userId": "u-seller", "tier": "pro",
	}), http.StatusOK, &plan)
	if plan.Tier != subscription.Pro || plan.Limits.Products != 25 {
		t.Errorf("plan after upgrade = %+v, want pro limits", plan)
	}
	env.Logout(t)
}

func TestCollabFlow(t *testing.T) {
	env := NewTestEnv(t)

	// Buyers have no business sending collaboration requests.
	env.Login(t, "buyer@test.io")
	discard(t, env.do(t, http.MethodPost, "/collabs", map[string]string{
		"sellerId": "u-seller",
	}), http.StatusForbidden)
	env.Logout(t)

	env.Login(t, "inf@test.io")

	var sellers []struct {
		ID               string `json:"id"`
		AlreadyRequested bool   `json:"alreadyRequested"`
	}
	decode(t, env.do(t, http.MethodGet, "/collabs/sellers", nil), http.StatusOK, &sellers)
	if len(sellers) != 2 {
		t.Fatalf("directory exposes %d sellers, want 2", len(sellers))
	}

	var sent collab.Request
	decode(t, env.do(t, http.MethodPost, "/collabs", map[string]string{
		"sellerId": "u-seller",
		"message":  "let's feature your lamps",
	}), http.StatusCreated, &sent)
	if sent.Status != collab.Pending {
		t.Fatalf("fresh request status = %s, want %s", sent.Status, collab.Pending)
	}

	// A second pending request for the same seller is refused.
	discard(t, env.do(t, http.MethodPost, "/collabs", map[string]string{
		"sellerId": "u-seller",
	}), http.StatusConflict)

	decode(t, env.do(t, http.MethodGet, "/collabs/sellers", nil), http.StatusOK, &sellers)
	for _, s := range sellers {
		if s.ID == "u-seller" && !s.AlreadyRequested {
			t.Error("seller with an open request should be flagged")
		}
	}
	env.Logout(t)

	env.Login(t, "seller@test.io")
	var resolved collab.Request
	decode(t, env.do(t, http.MethodPut, "/collabs/"+sent.ID, map[string]string{
		"status": "accepted",
	}), http.StatusOK, &resolved)
	if resolved.Status != collab.Accepted {
		t.Fatalf("resolved status = %s, want %s", resolved.Status, collab.Accepted)
	}

	// Accepted is terminal.
	discard(t, env.do(t, http.MethodPut, "/collabs/"+sent.ID, map[string]string{
		"status": "rejected",
	}), http.StatusConflict)
	env.Logout(t)
}

func TestOrdersStartEmpty(t *testing.T) {
	env := NewTestEnv(t)
	env.Login(t, "buyer@test.io")
	defer env.Logout(t)

	var orders []map[string]any
	decode(t, env.do(t, http.MethodGet, "/orders", nil), http.StatusOK, &orders)
	if len(orders) != 0 {
		t.Errorf("fresh buyer has %d orders, want 0", len(orders))
	}
}
