package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/thespaceapp/marketplace/api/web"
	"github.com/thespaceapp/marketplace/api/weberr"
	"github.com/thespaceapp/marketplace/core/claims"
)

const (
	sessionUserID = "userID"
	sessionName   = "name"
	sessionRole   = "role"
)

// LoadAndSave adapts the scs session middleware to the web.Handler chain.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			wrapped := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			}))
			wrapped.ServeHTTP(w, r)

			return err
		}
		return h
	}
	return m
}

// Authenticate populates claims from the session, rejecting anonymous
// requests.
func Authenticate(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			userID := sm.GetString(ctx, sessionUserID)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			ctx = claims.Set(ctx, claims.Claims{
				UserID: userID,
				Name:   sm.GetString(ctx, sessionName),
				Role:   sm.GetString(ctx, sessionRole),
			})

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Require rejects authenticated users whose role is not in roles. It must
// run after Authenticate.
func Require(roles ...string) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			if !claims.HasRole(ctx, roles...) {
				return weberr.Forbidden(errors.New("role not allowed for this operation"))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Admin shorthand for the admin-only routes.
func Admin(sm *scs.SessionManager) web.Middleware {
	authen := Authenticate(sm)
	admin := Require(claims.RoleAdmin)
	return func(handler web.Handler) web.Handler {
		return authen(admin(handler))
	}
}
