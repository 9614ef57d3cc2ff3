// Package collab manages collaboration requests between influencers and
// sellers. Requests move Pending to Accepted or Rejected and never back.
package collab

import (
	"fmt"
	"time"

	"github.com/thespaceapp/marketplace/random"
)

type Status string

const (
	Pending  Status = "pending"
	Accepted Status = "accepted"
	Rejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case Pending, Accepted, Rejected:
		return true
	}
	return false
}

type Request struct {
	ID           string    `json:"id"`
	InfluencerID string    `json:"influencerId"`
	SellerID     string    `json:"sellerId"`
	Message      string    `json:"message,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Open reports whether the request still counts against the seller's
// collaboration capacity.
func (r Request) Open() bool {
	return r.Status == Pending || r.Status == Accepted
}

// newID builds a sortable request id from the creation time plus a short
// random suffix to break ties.
func newID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), random.String(6))
}
