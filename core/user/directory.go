package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thespaceapp/marketplace/cache"
)

var ErrNotFound = errors.New("user not found in directory")

const usersCacheKey = "directory:users"

// Directory looks up users from the external user service.
type Directory struct {
	base   string
	client *http.Client
	cache  cache.Cache
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewDirectory(base string, timeout time.Duration, c cache.Cache, ttl time.Duration, log logrus.FieldLogger) *Directory {
	return &Directory{
		base:   base,
		client: &http.Client{Timeout: timeout},
		cache:  c,
		ttl:    ttl,
		log:    log,
	}
}

// Users fetches the full directory, serving from cache when fresh.
func (d *Directory) Users(ctx context.Context) ([]User, error) {
	if raw, ok := d.cache.Get(ctx, usersCacheKey); ok {
		var users []User
		if err := json.Unmarshal(raw, &users); err == nil {
			return users, nil
		}
		d.cache.Delete(ctx, usersCacheKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.base+"/users", nil)
	if err != nil {
		return nil, fmt.Errorf("building directory request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching users from directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory answered with status %s", resp.Status)
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decoding directory response: %w", err)
	}

	if raw, err := json.Marshal(users); err == nil {
		d.cache.Set(ctx, usersCacheKey, raw, d.ttl)
	}

	return users, nil
}

func (d *Directory) ByID(ctx context.Context, id string) (User, error) {
	users, err := d.Users(ctx)
	if err != nil {
		return User{}, err
	}

	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (d *Directory) ByEmail(ctx context.Context, email string) (User, error) {
	users, err := d.Users(ctx)
	if err != nil {
		return User{}, err
	}

	for _, u := range users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (d *Directory) Sellers(ctx context.Context) ([]User, error) {
	users, err := d.Users(ctx)
	if err != nil {
		return nil, err
	}

	sellers := make([]User, 0, len(users))
	for _, u := range users {
		if u.IsSeller() {
			sellers = append(sellers, u)
		}
	}
	return sellers, nil
}

// UpdateRole mirrors a local role/tier change to the directory. Callers treat
// this as best-effort: the local record stays authoritative.
func (d *Directory) UpdateRole(ctx context.Context, id, role, tier string) error {
	body, err := json.Marshal(map[string]string{"role": role, "tier": tier})
	if err != nil {
		return fmt.Errorf("encoding role update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, d.base+"/users/"+id+"/role", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building role update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("mirroring role update to directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("directory rejected role update with status %s", resp.Status)
	}

	d.cache.Delete(ctx, usersCacheKey)
	return nil
}
