package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/thespaceapp/marketplace/api/web"
	"github.com/thespaceapp/marketplace/api/weberr"
	"github.com/thespaceapp/marketplace/core/claims"
	"github.com/thespaceapp/marketplace/kv"
)

type toggleRequest struct {
	Product json.RawMessage `json:"product"`
}

func HandleToggle(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var req toggleRequest
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding toggle request: %w", err))
		}
		if len(req.Product) == 0 {
			return weberr.BadRequest(errors.New("product payload is required"))
		}

		saved, err := Toggle(ctx, store, clm.UserID, req.Product)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("toggling wishlist entry: %w", err))
		}

		resp := struct {
			Saved bool `json:"saved"`
		}{saved}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleIsSaved(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var req toggleRequest
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding check request: %w", err))
		}
		if len(req.Product) == 0 {
			return weberr.BadRequest(errors.New("product payload is required"))
		}

		saved, err := IsSaved(ctx, store, clm.UserID, req.Product)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("checking wishlist entry: %w", err))
		}

		resp := struct {
			Saved bool `json:"saved"`
		}{saved}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleList(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		entries, err := List(ctx, store, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, entries, http.StatusOK)
	}
}
