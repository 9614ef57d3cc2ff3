package order

import (
	"time"

	"github.com/thespaceapp/marketplace/money"
)

type Status string

const (
	Pending    Status = "pending"
	Processing Status = "processing"
	Shipped    Status = "shipped"
	Delivered  Status = "delivered"
	Cancelled  Status = "cancelled"
)

// CancelWindow is how long after creation a buyer may cancel.
const CancelWindow = 24 * time.Hour

// TrackingUpdate is one immutable entry in an order's history. Updates are
// append-only; nothing ever rewrites one in place.
type TrackingUpdate struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type ShippingDetails struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

// Order is a single-product purchase. Its status is not stored: it is always
// the status of the last tracking update, so the two can never diverge.
type Order struct {
	ID             string           `json:"id"`
	BuyerID        string           `json:"buyerId"`
	SellerID       string           `json:"sellerId"`
	ProductID      string           `json:"productId"`
	ProductName    string           `json:"productName"`
	Quantity       int              `json:"quantity"`
	Amount         money.Amount     `json:"amount"`
	Currency       string           `json:"currency"`
	ProviderID     string           `json:"providerId,omitempty"`
	TrackingNumber string           `json:"trackingNumber,omitempty"`
	Shipping       ShippingDetails  `json:"shippingDetails"`
	CreatedAt      time.Time        `json:"createdAt"`
	Tracking       []TrackingUpdate `json:"tracking"`
}

// Status derives the current state from the tracking sequence.
func (o Order) Status() Status {
	if len(o.Tracking) == 0 {
		return Pending
	}
	return o.Tracking[len(o.Tracking)-1].Status
}

// IsCancellable reports whether the buyer may still cancel: within the
// window and not already cancelled.
func IsCancellable(o Order, now time.Time) bool {
	if o.Status() == Cancelled {
		return false
	}
	return now.Sub(o.CreatedAt) <= CancelWindow
}
