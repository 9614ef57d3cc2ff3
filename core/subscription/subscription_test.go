package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thespaceapp/marketplace/core/subscription"
	"github.com/thespaceapp/marketplace/kv/kvtest"
)

func TestLimitsPerTier(t *testing.T) {
	if l := subscription.Basic.Limits(); l.Products != 3 || l.Collaborations != 1 || l.FeePercent != 5 {
		t.Errorf("basic limits = %+v", l)
	}
	if l := subscription.Pro.Limits(); l.Products != 25 || l.Collaborations != 50 || l.FeePercent != 3 {
		t.Errorf("pro limits = %+v", l)
	}
	if l := subscription.Enterprise.Limits(); l.Products != subscription.Unlimited || l.Collaborations != subscription.Unlimited {
		t.Errorf("enterprise limits = %+v, want unlimited", l)
	}

	// Unknown tiers degrade to basic entitlements.
	if l := subscription.Tier("gold").Limits(); l != subscription.Basic.Limits() {
		t.Errorf("unknown tier limits = %+v, want basic", l)
	}
}

func TestGetDefaultsToBasic(t *testing.T) {
	store := kvtest.NewStore(t)

	rec, err := subscription.Get(context.Background(), store, "nobody")
	if err != nil {
		t.Fatalf("getting plan: %v", err)
	}
	if rec.Tier != subscription.Basic {
		t.Errorf("tier = %s, want %s", rec.Tier, subscription.Basic)
	}
	if rec.ExpiresAt != nil {
		t.Error("basic plan must not carry an expiry")
	}
}

func TestChangeTierStartsFreshTerm(t *testing.T) {
	store := kvtest.NewStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec, err := subscription.ChangeTier(ctx, store, "u1", subscription.Pro, nil, now)
	if err != nil {
		t.Fatalf("changing to pro: %v", err)
	}
	if rec.ExpiresAt == nil || !rec.ExpiresAt.Equal(now.AddDate(1, 0, 0)) {
		t.Errorf("pro expiry = %v, want one year from now", rec.ExpiresAt)
	}

	// Upgrading mid-term restarts the year; it does not stack.
	later := now.AddDate(0, 6, 0)
	rec, err = subscription.ChangeTier(ctx, store, "u1", subscription.Enterprise, nil, later)
	if err != nil {
		t.Fatalf("changing to enterprise: %v", err)
	}
	if rec.ExpiresAt == nil || !rec.ExpiresAt.Equal(later.AddDate(1, 0, 0)) {
		t.Errorf("enterprise expiry = %v, want one year from the change", rec.ExpiresAt)
	}

	rec, err = subscription.ChangeTier(ctx, store, "u1", subscription.Basic, nil, later)
	if err != nil {
		t.Fatalf("dropping to basic: %v", err)
	}
	if rec.ExpiresAt != nil {
		t.Error("dropping to basic must clear the expiry")
	}

	// An explicit date on a paid tier wins over the default year.
	until := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err = subscription.ChangeTier(ctx, store, "u1", subscription.Pro, &until, later)
	if err != nil {
		t.Fatalf("changing to pro with explicit expiry: %v", err)
	}
	if rec.ExpiresAt == nil || !rec.ExpiresAt.Equal(until) {
		t.Errorf("expiry = %v, want the explicit date", rec.ExpiresAt)
	}

	if _, err := subscription.ChangeTier(ctx, store, "u1", "gold", nil, later); !errors.Is(err, subscription.ErrUnknownTier) {
		t.Errorf("err = %v, want ErrUnknownTier", err)
	}
}

func TestExtend(t *testing.T) {
	store := kvtest.NewStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := subscription.Extend(ctx, store, "u1", nil, now); !errors.Is(err, subscription.ErrBasicTier) {
		t.Fatalf("err = %v, want ErrBasicTier for a basic plan", err)
	}

	rec, err := subscription.ChangeTier(ctx, store, "u1", subscription.Pro, nil, now)
	if err != nil {
		t.Fatalf("changing to pro: %v", err)
	}

	// Extending a running plan counts from its expiry.
	rec, err = subscription.Extend(ctx, store, "u1", nil, now.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("extending: %v", err)
	}
	if rec.ExpiresAt == nil || !rec.ExpiresAt.Equal(now.AddDate(2, 0, 0)) {
		t.Errorf("expiry = %v, want two years from the original start", rec.ExpiresAt)
	}

	// An explicit date overrides the computed one.
	until := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err = subscription.Extend(ctx, store, "u1", &until, now)
	if err != nil {
		t.Fatalf("extending with override: %v", err)
	}
	if rec.ExpiresAt == nil || !rec.ExpiresAt.Equal(until) {
		t.Errorf("expiry = %v, want the override date", rec.ExpiresAt)
	}
}

func TestFormatRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(t time.Time) *time.Time { return &t }

	cases := []struct {
		name string
		exp  *time.Time
		want string
	}{
		{"no expiry", nil, "Active"},
		{"already lapsed", at(now.Add(-time.Hour)), "Expired"},
		{"tonight", at(now.Add(11 * time.Hour)), "Expires today"},
		{"tomorrow", at(now.Add(24 * time.Hour)), "Expires tomorrow"},
		{"next week", at(now.AddDate(0, 0, 7)), "Expires in 7 days"},
		{"far out", at(now.AddDate(0, 6, 0)), "Active"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := subscription.FormatRemaining(c.exp, now); got != c.want {
				t.Errorf("FormatRemaining = %q, want %q", got, c.want)
			}
		})
	}
}
