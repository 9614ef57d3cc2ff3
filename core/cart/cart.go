package cart

import (
	"strings"
	"time"

	"github.com/thespaceapp/marketplace/money"
)

// LineItem is one entry in a buyer's cart. Adding the same product twice
// creates two independent lines; lines never merge.
type LineItem struct {
	CartItemID string       `json:"cartItemId"`
	ProductID  string       `json:"productId"`
	SellerID   string       `json:"sellerId"`
	Name       string       `json:"name"`
	ImageURL   string       `json:"image"`
	UnitPrice  money.Amount `json:"price"`
	Quantity   int          `json:"quantity"`
	AddedAt    time.Time    `json:"addedAt"`
}

type ItemNew struct {
	ProductID string       `json:"productId" validate:"required"`
	SellerID  string       `json:"sellerId" validate:"required"`
	Name      string       `json:"name" validate:"required"`
	ImageURL  string       `json:"image"`
	Price     money.Amount `json:"price"`
	Quantity  int          `json:"quantity" validate:"omitempty,gte=1"`
}

type ShippingMethod string

const (
	ShippingFree  ShippingMethod = "free"
	ShippingLocal ShippingMethod = "local"
	ShippingFlat  ShippingMethod = "flat"
)

// Surcharge returns the flat fee for the shipping method. Unknown methods
// cost nothing, mirroring the forgiving treatment of discount codes.
func (m ShippingMethod) Surcharge() money.Amount {
	switch m {
	case ShippingLocal:
		return money.FromInt(5)
	case ShippingFlat:
		return money.FromInt(10)
	default:
		return money.Zero()
	}
}

const discountCode = "SAVE10"

// Discount resolves a discount code to a flat amount off. Invalid codes are
// worth zero; they are never an error.
func Discount(code string) money.Amount {
	if strings.EqualFold(strings.TrimSpace(code), discountCode) {
		return money.FromInt(10)
	}
	return money.Zero()
}

// Subtotal sums unit price times quantity over all present lines.
func Subtotal(items []LineItem) money.Amount {
	total := money.Zero()
	for _, it := range items {
		total = total.Add(it.UnitPrice.MulInt(int64(it.Quantity)))
	}
	return total
}

// Total is subtotal plus the shipping surcharge minus the discount, clamped
// at zero.
func Total(items []LineItem, method ShippingMethod, code string) money.Amount {
	total := Subtotal(items).Add(method.Surcharge()).Sub(Discount(code))
	if total.IsNegative() {
		return money.Zero()
	}
	return total
}
