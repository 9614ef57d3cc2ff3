package collab

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/thespaceapp/marketplace/api/web"
	"github.com/thespaceapp/marketplace/api/weberr"
	"github.com/thespaceapp/marketplace/core/claims"
	"github.com/thespaceapp/marketplace/core/user"
	"github.com/thespaceapp/marketplace/kv"
	"github.com/thespaceapp/marketplace/validate"
)

func HandleSend(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var req struct {
			SellerID string `json:"sellerId" validate:"required"`
			Message  string `json:"message"`
		}
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding collaboration request: %w", err))
		}
		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		sent, err := SendRequest(ctx, store, clm.UserID, req.SellerID, req.Message)
		if err != nil {
			switch {
			case errors.Is(err, ErrDuplicatePending):
				return weberr.Conflict(err)
			case errors.Is(err, ErrLimitReached):
				return weberr.Unprocessable(err)
			}
			return err
		}

		return web.Respond(ctx, w, sent, http.StatusCreated)
	}
}

// HandleResolve lets the seller accept or reject a pending request aimed at
// them.
func HandleResolve(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		requestID := web.Param(r, "id")

		req, err := ByID(ctx, store, requestID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}
		if req.SellerID != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("request is aimed at another seller"))
		}

		var body struct {
			Status string `json:"status" validate:"required,oneof=accepted rejected"`
		}
		if err := web.Decode(w, r, &body); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding resolution: %w", err))
		}
		if err := validate.Check(body); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		updated, err := UpdateStatus(ctx, store, requestID, Status(body.Status))
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrIllegalTransition):
				return weberr.Conflict(err)
			}
			return err
		}

		return web.Respond(ctx, w, updated, http.StatusOK)
	}
}

func HandleListMine(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var (
			requests []Request
		)
		if clm.Role == claims.RoleSeller {
			requests, err = ForSeller(ctx, store, clm.UserID)
		} else {
			requests, err = ForInfluencer(ctx, store, clm.UserID)
		}
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, requests, http.StatusOK)
	}
}

type sellerView struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	AlreadyRequested bool   `json:"alreadyRequested"`
}

// HandleAvailableSellers lists the directory's sellers, flagging the ones the
// influencer already has an open request with.
func HandleAvailableSellers(store *kv.Store, directory *user.Directory) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		sellers, err := directory.Sellers(ctx)
		if err != nil {
			return fmt.Errorf("listing sellers: %w", err)
		}

		mine, err := ForInfluencer(ctx, store, clm.UserID)
		if err != nil {
			return err
		}

		pending := make(map[string]bool, len(mine))
		for _, req := range mine {
			if req.Status == Pending {
				pending[req.SellerID] = true
			}
		}

		views := make([]sellerView, 0, len(sellers))
		for _, s := range sellers {
			views = append(views, sellerView{
				ID:               s.ID,
				Name:             s.Name,
				AlreadyRequested: pending[s.ID],
			})
		}

		return web.Respond(ctx, w, views, http.StatusOK)
	}
}
