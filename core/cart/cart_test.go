package cart_test

import (
	"context"
	"testing"

	"github.com/thespaceapp/marketplace/core/cart"
	"github.com/thespaceapp/marketplace/kv/kvtest"
	"github.com/thespaceapp/marketplace/money"
)

func TestSubtotalTracksPresentLines(t *testing.T) {
	store := kvtest.NewStore(t)
	ctx := context.Background()
	const buyer = "b1"

	first, err := cart.AddItem(ctx, store, buyer, cart.ItemNew{
		ProductID: "p1", SellerID: "s1", Name: "lamp", Price: money.FromFloat(12.50), Quantity: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	second, err := cart.AddItem(ctx, store, buyer, cart.ItemNew{
		ProductID: "p2", SellerID: "s1", Name: "rug", Price: money.FromFloat(30),
	})
	if err != nil {
		t.Fatal(err)
	}

	items, err := cart.Items(ctx, store, buyer)
	if err != nil {
		t.Fatal(err)
	}
	if got := cart.Subtotal(items); !got.Equal(money.FromFloat(55)) {
		t.Errorf("subtotal = %s, want 55", got)
	}

	if err := cart.RemoveItem(ctx, store, buyer, first.CartItemID); err != nil {
		t.Fatal(err)
	}

	items, err = cart.Items(ctx, store, buyer)
	if err != nil {
		t.Fatal(err)
	}
	if got := cart.Subtotal(items); !got.Equal(money.FromFloat(30)) {
		t.Errorf("subtotal after removal = %s, want 30", got)
	}
	if len(items) != 1 || items[0].CartItemID != second.CartItemID {
		t.Errorf("expected only the second line to remain, got %+v", items)
	}

	// Removing a line that is already gone changes nothing.
	if err := cart.RemoveItem(ctx, store, buyer, first.CartItemID); err != nil {
		t.Fatal(err)
	}
	items, err = cart.Items(ctx, store, buyer)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 line after redundant removal, got %d", len(items))
	}
}

func TestDuplicateAddsStayOnSeparateLines(t *testing.T) {
	store := kvtest.NewStore(t)
	ctx := context.Background()
	const buyer = "b1"

	n := cart.ItemNew{ProductID: "p1", SellerID: "s1", Name: "lamp", Price: money.FromFloat(10)}
	a, err := cart.AddItem(ctx, store, buyer, n)
	if err != nil {
		t.Fatal(err)
	}
	b, err := cart.AddItem(ctx, store, buyer, n)
	if err != nil {
		t.Fatal(err)
	}

	if a.CartItemID == b.CartItemID {
		t.Fatal("duplicate adds must get distinct cart item ids")
	}

	items, err := cart.Items(ctx, store, buyer)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 lines, got %d", len(items))
	}
}

func TestSetQuantityFloorsAtOne(t *testing.T) {
	store := kvtest.NewStore(t)
	ctx := context.Background()
	const buyer = "b1"

	item, err := cart.AddItem(ctx, store, buyer, cart.ItemNew{
		ProductID: "p1", SellerID: "s1", Name: "lamp", Price: money.FromFloat(10), Quantity: 3,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := cart.SetQuantity(ctx, store, buyer, item.CartItemID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 1 {
		t.Errorf("quantity after decrement below one = %d, want 1", got.Quantity)
	}

	got, err = cart.SetQuantity(ctx, store, buyer, item.CartItemID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 5 {
		t.Errorf("quantity = %d, want 5", got.Quantity)
	}

	if _, err := cart.SetQuantity(ctx, store, buyer, "nope", 2); err != cart.ErrItemNotFound {
		t.Errorf("expected ErrItemNotFound for unknown line, got %v", err)
	}
}

func TestDiscountCode(t *testing.T) {
	cases := []struct {
		code string
		want money.Amount
	}{
		{"SAVE10", money.FromInt(10)},
		{"save10", money.FromInt(10)},
		{"Save10 ", money.FromInt(10)},
		{"SAVE20", money.Zero()},
		{"", money.Zero()},
	}

	for _, c := range cases {
		if got := cart.Discount(c.code); !got.Equal(c.want) {
			t.Errorf("Discount(%q) = %s, want %s", c.code, got, c.want)
		}
	}
}

func TestTotal(t *testing.T) {
	items := []cart.LineItem{
		{UnitPrice: money.FromFloat(49.99), Quantity: 2},
	}

	got := cart.Total(items, cart.ShippingFlat, "save10")
	if !got.Equal(money.FromFloat(99.98)) {
		t.Errorf("total = %s, want 99.98", got)
	}

	got = cart.Total(items, cart.ShippingLocal, "bogus")
	if !got.Equal(money.FromFloat(104.98)) {
		t.Errorf("total = %s, want 104.98", got)
	}

	got = cart.Total(items, cart.ShippingFree, "")
	if !got.Equal(money.FromFloat(99.98)) {
		t.Errorf("total = %s, want 99.98", got)
	}

	// A discount larger than the order clamps at zero rather than going
	// negative.
	small := []cart.LineItem{{UnitPrice: money.FromFloat(3), Quantity: 1}}
	got = cart.Total(small, cart.ShippingFree, "SAVE10")
	if !got.Equal(money.Zero()) {
		t.Errorf("clamped total = %s, want 0", got)
	}
}
