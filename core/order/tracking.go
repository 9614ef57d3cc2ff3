package order

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

var ErrNoTrackingLink = errors.New("order has no tracking link")

// Carrier links for legacy orders that predate the notifications feed. Kept
// as a static dataset so old orders keep resolving after the feed pruned
// their entries.
//
//go:embed trackingfallback.json
var trackingFallbackRaw []byte

var (
	fallbackOnce  sync.Once
	fallbackLinks map[string]string
)

func fallbackTrackingLinks() map[string]string {
	fallbackOnce.Do(func() {
		if err := json.Unmarshal(trackingFallbackRaw, &fallbackLinks); err != nil {
			fallbackLinks = map[string]string{}
		}
	})
	return fallbackLinks
}

// ResolveTrackingLink picks a tracking link for the order, trying the order
// record first, then the notifications feed, then the static fallback
// dataset. Returns the empty string when no source has one.
func ResolveTrackingLink(o Order, feed map[string]string) string {
	if strings.TrimSpace(o.TrackingNumber) != "" {
		return o.TrackingNumber
	}
	if link, ok := feed[o.ID]; ok && link != "" {
		return link
	}
	return fallbackTrackingLinks()[o.ID]
}

// NormalizeTrackingURL prepares a tracking link for opening externally,
// prepending https:// when the scheme is missing.
func NormalizeTrackingURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoTrackingLink
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid tracking link %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid tracking link %q: missing host", raw)
	}

	return u.String(), nil
}
