package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thespaceapp/marketplace/cache"
)

// Notification is an item from the external notifications feed. Only the
// order-linked tracking URL matters to this service; everything else is
// passed through untouched.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	OrderID   string    `json:"orderId"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"createdAt"`
}

type wireNotification struct {
	ID        json.Number `json:"id"`
	UserID    json.Number `json:"user_id"`
	OrderID   json.Number `json:"order_id"`
	Message   string      `json:"message"`
	Link      string      `json:"link"`
	CreatedAt time.Time   `json:"created_at"`
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	var w wireNotification
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*n = Notification{
		ID:        w.ID.String(),
		UserID:    w.UserID.String(),
		OrderID:   w.OrderID.String(),
		Message:   w.Message,
		Link:      w.Link,
		CreatedAt: w.CreatedAt,
	}
	return nil
}

const feedCacheKey = "notifications:feed"

// Feed reads the external notifications service.
type Feed struct {
	base   string
	client *http.Client
	cache  cache.Cache
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewFeed(base string, timeout time.Duration, c cache.Cache, ttl time.Duration, log logrus.FieldLogger) *Feed {
	return &Feed{
		base:   base,
		client: &http.Client{Timeout: timeout},
		cache:  c,
		ttl:    ttl,
		log:    log,
	}
}

func (f *Feed) Notifications(ctx context.Context) ([]Notification, error) {
	if raw, ok := f.cache.Get(ctx, feedCacheKey); ok {
		var items []Notification
		if err := json.Unmarshal(raw, &items); err == nil {
			return items, nil
		}
		f.cache.Delete(ctx, feedCacheKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+"/notifications", nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notifications feed answered with status %s", resp.Status)
	}

	var items []Notification
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding notifications: %w", err)
	}

	if raw, err := json.Marshal(items); err == nil {
		f.cache.Set(ctx, feedCacheKey, raw, f.ttl)
	}

	return items, nil
}

// TrackingLinks extracts order-linked tracking URLs from the feed. A feed
// outage degrades to an empty map; the caller falls through to its other
// tracking sources.
func (f *Feed) TrackingLinks(ctx context.Context) map[string]string {
	items, err := f.Notifications(ctx)
	if err != nil {
		f.log.WithField("message", err).Warn("notifications feed unavailable")
		return map[string]string{}
	}

	links := make(map[string]string)
	for _, n := range items {
		if n.OrderID == "" || n.Link == "" {
			continue
		}
		if _, ok := links[n.OrderID]; !ok {
			links[n.OrderID] = n.Link
		}
	}
	return links
}
