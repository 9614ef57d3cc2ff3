package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/sirupsen/logrus"
	"github.com/thespaceapp/marketplace/api"
	"github.com/thespaceapp/marketplace/api/background"
	"github.com/thespaceapp/marketplace/cache"
	"github.com/thespaceapp/marketplace/core/notification"
	"github.com/thespaceapp/marketplace/core/user"
	"github.com/thespaceapp/marketplace/kv"
	"github.com/thespaceapp/marketplace/kv/kvtest"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "gopher"

// TestEnv spins up the whole API over a throwaway store, with a stub
// standing in for the remote directory and notifications services.
type TestEnv struct {
	URL    string
	Store  *kv.Store
	client *http.Client
}

func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	store := kvtest.NewStore(t)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}

	remote := httptest.NewServer(remoteStub(string(hash)))
	t.Cleanup(remote.Close)

	directory := user.NewDirectory(remote.URL, time.Second, cache.NewMemory(), time.Minute, log)
	feed := notification.NewFeed(remote.URL, time.Second, cache.None{}, 0, log)

	sm := scs.New()
	sm.Lifetime = time.Hour

	mux := api.APIMux(api.APIConfig{
		Log:        log,
		Store:      store,
		Session:    sm,
		Directory:  directory,
		Feed:       feed,
		Background: background.New(log),
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("building cookie jar: %v", err)
	}

	return &TestEnv{
		URL:    srv.URL,
		Store:  store,
		client: &http.Client{Jar: jar},
	}
}

// remoteStub mimics the external user directory and notifications feed.
func remoteStub(passwordHash string) http.Handler {
	users := []map[string]any{
		{"id": "u-buyer", "name": "Bea Buyer", "email": "buyer@test.io", "role": "buyer", "password_hash": passwordHash},
		{"id": "u-seller", "name": "Sal Seller", "email": "seller@test.io", "role": "seller", "password_hash": passwordHash},
		{"id": "u-seller-2", "name": "Sam Seller", "email": "seller2@test.io", "account_type": "Seller", "password_hash": passwordHash},
		{"id": "u-inf", "name": "Ines Influencer", "email": "inf@test.io", "role": "influencer", "password_hash": passwordHash},
		{"id": "u-admin", "name": "Ada Admin", "email": "admin@test.io", "role": "admin", "password_hash": passwordHash},
	}

	notifications := []map[string]any{
		{"id": 1, "user_id": 7, "order_id": 42, "message": "your package is moving", "link": "https://track.example.com/42"},
	}

	m := http.NewServeMux()
	m.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(users)
	})
	m.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	m.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(notifications)
	})
	return m
}

func (e *TestEnv) Login(t *testing.T, email string) {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logging in as %s: status %s", email, resp.Status)
	}
}

func (e *TestEnv) Logout(t *testing.T) {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/auth/logout", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logging out: status %s", resp.Status)
	}
}

func (e *TestEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, e.URL+path, rd)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(r)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// decode drains and closes the body, failing the test on a surprising status.
func decode(t *testing.T, resp *http.Response, wantStatus int, out any) {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %s, want %d: %s", resp.Status, wantStatus, b)
	}
	if out == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func discard(t *testing.T, resp *http.Response, wantStatus int) {
	t.Helper()
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("status %s, want %d: %s", resp.Status, wantStatus, b)
	}
}
