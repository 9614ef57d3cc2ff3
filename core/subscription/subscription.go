package subscription

import (
	"fmt"
	"time"
)

type Tier string

const (
	Basic      Tier = "basic"
	Pro        Tier = "pro"
	Enterprise Tier = "enterprise"
)

// Unlimited marks a limit with no cap.
const Unlimited = -1

// Limits are the plan entitlements: how many products a seller may list, how
// many collaborations they may hold open, and the platform fee on sales.
type Limits struct {
	Products       int `json:"products"`
	Collaborations int `json:"collaborations"`
	FeePercent     int `json:"feePercent"`
}

var tierLimits = map[Tier]Limits{
	Basic:      {Products: 3, Collaborations: 1, FeePercent: 5},
	Pro:        {Products: 25, Collaborations: 50, FeePercent: 3},
	Enterprise: {Products: Unlimited, Collaborations: Unlimited, FeePercent: 2},
}

func (t Tier) Valid() bool {
	_, ok := tierLimits[t]
	return ok
}

// Limits returns the entitlements of the tier. Unknown tiers get the basic
// limits rather than failing.
func (t Tier) Limits() Limits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[Basic]
}

// Record is a user's current plan. A nil ExpiresAt means the plan does not
// expire, which is always the case for basic.
type Record struct {
	UserID    string     `json:"userId"`
	Tier      Tier       `json:"tier"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FormatRemaining renders the time left on the plan for display. Day counts
// compare calendar days, so a plan expiring at 23:59 tonight still says
// "Expires today".
func FormatRemaining(expiresAt *time.Time, now time.Time) string {
	if expiresAt == nil {
		return "Active"
	}
	if expiresAt.Before(now) {
		return "Expired"
	}

	midnight := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	days := int(midnight(*expiresAt).Sub(midnight(now)) / (24 * time.Hour))

	switch {
	case days <= 0:
		return "Expires today"
	case days == 1:
		return "Expires tomorrow"
	case days <= 30:
		return fmt.Sprintf("Expires in %d days", days)
	}
	return "Active"
}
