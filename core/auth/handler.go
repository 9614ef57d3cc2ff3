package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/thespaceapp/marketplace/api/web"
	"github.com/thespaceapp/marketplace/api/weberr"
	"github.com/thespaceapp/marketplace/core/claims"
	"github.com/thespaceapp/marketplace/core/user"
	"github.com/thespaceapp/marketplace/validate"
	"golang.org/x/crypto/bcrypt"
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func HandleLogin(directory *user.Directory, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var creds Credentials
		if err := web.Decode(w, r, &creds); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding credentials: %w", err))
		}

		if err := validate.Check(creds); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		u, err := directory.ByEmail(ctx, creds.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotAuthorized(errors.New("unknown email or wrong password"))
			}
			return fmt.Errorf("looking up user by email: %w", err)
		}

		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
			return weberr.NotAuthorized(errors.New("unknown email or wrong password"))
		}

		if err := sm.RenewToken(ctx); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}
		sm.Put(ctx, sessionUserID, u.ID)
		sm.Put(ctx, sessionName, u.Name)
		sm.Put(ctx, sessionRole, u.NormalizedRole())

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleLogout(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := sm.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleShowCurrent(directory *user.Directory) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		u, err := directory.ByID(ctx, clm.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("looking up current user: %w", err)
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}
