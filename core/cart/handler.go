package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/thespaceapp/marketplace/api/web"
	"github.com/thespaceapp/marketplace/api/weberr"
	"github.com/thespaceapp/marketplace/core/claims"
	"github.com/thespaceapp/marketplace/kv"
	"github.com/thespaceapp/marketplace/money"
	"github.com/thespaceapp/marketplace/validate"
)

type cartResponse struct {
	Items    []LineItem   `json:"items"`
	Subtotal money.Amount `json:"subtotal"`
}

type quoteRequest struct {
	ShippingMethod string `json:"shippingMethod" validate:"required,oneof=free local flat"`
	DiscountCode   string `json:"discountCode"`
}

type quoteResponse struct {
	Subtotal money.Amount `json:"subtotal"`
	Shipping money.Amount `json:"shipping"`
	Discount money.Amount `json:"discount"`
	Total    money.Amount `json:"total"`
}

func HandleShow(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		items, err := Items(ctx, store, clm.UserID)
		if err != nil {
			return err
		}
		if items == nil {
			items = []LineItem{}
		}

		return web.Respond(ctx, w, cartResponse{Items: items, Subtotal: Subtotal(items)}, http.StatusOK)
	}
}

func HandleCreateItem(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var n ItemNew
		if err := web.Decode(w, r, &n); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding cart item: %w", err))
		}

		if err := validate.Check(n); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		item, err := AddItem(ctx, store, clm.UserID, n)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, item, http.StatusCreated)
	}
}

func HandleDeleteItem(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if err := RemoveItem(ctx, store, clm.UserID, web.Param(r, "cart_item_id")); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleUpdateQuantity(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		// Quantity is a pointer so that an explicit zero still passes the
		// presence check and floors to one like any other sub-1 value.
		var up struct {
			Quantity *int `json:"quantity" validate:"required"`
		}
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding quantity update: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		item, err := SetQuantity(ctx, store, clm.UserID, web.Param(r, "cart_item_id"), *up.Quantity)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, item, http.StatusOK)
	}
}

// HandleQuote prices the current cart for a shipping method and optional
// discount code without mutating anything.
func HandleQuote(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var q quoteRequest
		if err := web.Decode(w, r, &q); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding quote request: %w", err))
		}

		if err := validate.Check(q); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		items, err := Items(ctx, store, clm.UserID)
		if err != nil {
			return err
		}

		method := ShippingMethod(q.ShippingMethod)
		resp := quoteResponse{
			Subtotal: Subtotal(items),
			Shipping: method.Surcharge(),
			Discount: Discount(q.DiscountCode),
			Total:    Total(items, method, q.DiscountCode),
		}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleDelete(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if err := Flush(ctx, store, clm.UserID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
