package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
	"github.com/thespaceapp/marketplace/api/web"
	"github.com/thespaceapp/marketplace/api/weberr"
	"github.com/thespaceapp/marketplace/config"
	"github.com/thespaceapp/marketplace/core/cart"
	"github.com/thespaceapp/marketplace/core/claims"
	"github.com/thespaceapp/marketplace/core/notification"
	"github.com/thespaceapp/marketplace/kv"
	"github.com/thespaceapp/marketplace/validate"
)

const currency = "USD"

type CheckoutRequest struct {
	ShippingMethod string          `json:"shippingMethod" validate:"required,oneof=free local flat"`
	DiscountCode   string          `json:"discountCode"`
	Shipping       ShippingDetails `json:"shippingDetails"`
}

type orderView struct {
	Order
	Status       Status `json:"status"`
	TrackingLink string `json:"trackingLink,omitempty"`
}

func view(o Order, feed map[string]string) orderView {
	return orderView{
		Order:        o,
		Status:       o.Status(),
		TrackingLink: ResolveTrackingLink(o, feed),
	}
}

func checkout(ctx context.Context, store *kv.Store, userID string) ([]cart.LineItem, error) {
	items, err := cart.Items(ctx, store, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching cart items: %w", err)
	}
	return items, nil
}

// prepare converts every cart line into an order bound to the payment
// session, so capture can fulfill them all at once.
func prepare(ctx context.Context, store *kv.Store, buyerID, providerID string, items []cart.LineItem, shipping ShippingDetails) error {
	for _, it := range items {
		ord := Order{
			ID:          validate.GenerateID(),
			BuyerID:     buyerID,
			SellerID:    it.SellerID,
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Quantity:    it.Quantity,
			Amount:      it.UnitPrice.MulInt(int64(it.Quantity)),
			Currency:    currency,
			ProviderID:  providerID,
			Shipping:    shipping,
		}

		if _, err := Create(ctx, store, ord); err != nil {
			return fmt.Errorf("creating order bound to payment[%s] for user[%s]: %w", providerID, buyerID, err)
		}
	}
	return nil
}

func fulfill(ctx context.Context, store *kv.Store, providerID string) error {
	orders, err := Fulfill(ctx, store, providerID)
	if err != nil {
		return fmt.Errorf("fulfilling orders bound to payment[%s]: %w", providerID, err)
	}

	flushed := make(map[string]bool)
	for _, o := range orders {
		if flushed[o.BuyerID] {
			continue
		}
		if err := cart.Flush(ctx, store, o.BuyerID); err != nil {
			return fmt.Errorf("flushing cart of user[%s]: %w", o.BuyerID, err)
		}
		flushed[o.BuyerID] = true
	}
	return nil
}

func HandleList(store *kv.Store, feed *notification.Feed) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, err := ListForBuyer(ctx, store, clm.UserID)
		if err != nil {
			return err
		}

		links := feed.TrackingLinks(ctx)
		views := make([]orderView, 0, len(orders))
		for _, o := range orders {
			views = append(views, view(o, links))
		}

		if s := Status(web.QueryParam(r, "status")); s != "" {
			filtered := views[:0]
			for _, v := range views {
				if v.Status == s {
					filtered = append(filtered, v)
				}
			}
			views = filtered
		}

		return web.Respond(ctx, w, views, http.StatusOK)
	}
}

func HandleListBySeller(store *kv.Store, feed *notification.Feed) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, err := ListForSeller(ctx, store, clm.UserID)
		if err != nil {
			return err
		}

		links := feed.TrackingLinks(ctx)
		views := make([]orderView, 0, len(orders))
		for _, o := range orders {
			views = append(views, view(o, links))
		}

		return web.Respond(ctx, w, views, http.StatusOK)
	}
}

func HandleShow(store *kv.Store, feed *notification.Feed) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		o, err := ByID(ctx, store, web.Param(r, "id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		if o.BuyerID != clm.UserID && o.SellerID != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("order belongs to another user"))
		}

		return web.Respond(ctx, w, view(o, feed.TrackingLinks(ctx)), http.StatusOK)
	}
}

func HandleCancel(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orderID := web.Param(r, "id")

		o, err := ByID(ctx, store, orderID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}
		if o.BuyerID != clm.UserID {
			return weberr.Forbidden(errors.New("order belongs to another user"))
		}

		cancelled, err := Cancel(ctx, store, orderID, time.Now())
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrNotCancellable):
				return weberr.Unprocessable(err)
			}
			return err
		}

		return web.Respond(ctx, w, view(cancelled, nil), http.StatusOK)
	}
}

// HandleTrack resolves and normalizes the order's tracking link for the
// client to open externally.
func HandleTrack(store *kv.Store, feed *notification.Feed) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		o, err := ByID(ctx, store, web.Param(r, "id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}
		if o.BuyerID != clm.UserID && o.SellerID != clm.UserID {
			return weberr.Forbidden(errors.New("order belongs to another user"))
		}

		link, err := NormalizeTrackingURL(ResolveTrackingLink(o, feed.TrackingLinks(ctx)))
		if err != nil {
			if errors.Is(err, ErrNoTrackingLink) {
				return weberr.NotFound(err)
			}
			return weberr.Unprocessable(err)
		}

		resp := struct {
			Link string `json:"link"`
		}{link}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// HandleAppendTracking lets the seller push a tracking update, optionally
// attaching a carrier link to the order record.
func HandleAppendTracking(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orderID := web.Param(r, "id")

		o, err := ByID(ctx, store, orderID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}
		if o.SellerID != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("order belongs to another seller"))
		}

		var up struct {
			Status      string `json:"status" validate:"required,oneof=processing shipped delivered"`
			Location    string `json:"location"`
			Description string `json:"description"`
			Link        string `json:"link"`
		}
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding tracking update: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if up.Link != "" {
			if _, err := AttachTrackingNumber(ctx, store, orderID, up.Link); err != nil {
				return err
			}
		}

		updated, err := AppendUpdate(ctx, store, orderID, TrackingUpdate{
			Status:      Status(up.Status),
			Location:    up.Location,
			Description: up.Description,
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, view(updated, nil), http.StatusOK)
	}
}

func HandleStripeCheckout(store *kv.Store, strp *stripecl.API, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var req CheckoutRequest
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding checkout request: %w", err))
		}
		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		items, err := checkout(ctx, store, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching details of cart items: %w", err)
		}

		if len(items) == 0 {
			err := errors.New("no items to checkout")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		li := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items)+1)
		for _, it := range items {
			li = append(li, &stripe.CheckoutSessionLineItemParams{
				Quantity: stripe.Int64(int64(it.Quantity)),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String("usd"),
					TaxBehavior: stripe.String("inclusive"),
					UnitAmount:  stripe.Int64(it.UnitPrice.Cents()),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(it.Name),
					},
				},
			})
		}

		method := cart.ShippingMethod(req.ShippingMethod)
		if surcharge := method.Surcharge(); surcharge.Cents() > 0 {
			li = append(li, &stripe.CheckoutSessionLineItemParams{
				Quantity: stripe.Int64(1),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(surcharge.Cents()),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Shipping (" + req.ShippingMethod + ")"),
					},
				},
			})
		}

		params := &stripe.CheckoutSessionParams{
			SuccessURL: stripe.String(cfg.SuccessURL),
			CancelURL:  stripe.String(cfg.CancelURL),
			Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
			LineItems:  li,
		}

		// The discount is a pre-provisioned coupon on the Stripe account;
		// unknown codes simply do not attach one.
		if cart.Discount(req.DiscountCode).Cents() > 0 && cfg.DiscountCoupon != "" {
			params.Discounts = []*stripe.CheckoutSessionDiscountParams{
				{Coupon: stripe.String(cfg.DiscountCoupon)},
			}
		}

		s, err := strp.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe session: %w", err)
		}

		if err := prepare(ctx, store, clm.UserID, s.ID, items, req.Shipping); err != nil {
			return fmt.Errorf("creating the orders on the store: %w", err)
		}

		return web.Respond(ctx, w, s.URL, http.StatusOK)
	}
}

func HandleStripeCapture(store *kv.Store, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		if event.Type != "checkout.session.completed" {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
		}

		if session.Mode != stripe.CheckoutSessionModePayment {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		if err := fulfill(ctx, store, session.ID); err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandlePaypalCheckout(store *kv.Store, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var req CheckoutRequest
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding checkout request: %w", err))
		}
		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		items, err := checkout(ctx, store, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching details of cart items: %w", err)
		}

		if len(items) == 0 {
			err := errors.New("no items to checkout")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ppItems := make([]paypal.Item, 0, len(items))
		for _, it := range items {
			ppItems = append(ppItems, paypal.Item{
				Quantity: fmt.Sprintf("%d", it.Quantity),
				Name:     it.Name,

				UnitAmount: &paypal.Money{
					Currency: currency,
					Value:    it.UnitPrice.Fixed(),
				},
			})
		}

		method := cart.ShippingMethod(req.ShippingMethod)
		subtotal := cart.Subtotal(items)
		total := cart.Total(items, method, req.DiscountCode)

		units := []paypal.PurchaseUnitRequest{{
			Items: ppItems,

			Amount: &paypal.PurchaseUnitAmount{
				Currency: currency,
				Value:    total.Fixed(),

				Breakdown: &paypal.PurchaseUnitAmountBreakdown{
					ItemTotal: &paypal.Money{
						Currency: currency,
						Value:    subtotal.Fixed(),
					},
					Shipping: &paypal.Money{
						Currency: currency,
						Value:    method.Surcharge().Fixed(),
					},
					Discount: &paypal.Money{
						Currency: currency,
						Value:    cart.Discount(req.DiscountCode).Fixed(),
					},
				},
			},
		}}

		app := &paypal.ApplicationContext{}

		ord, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, app)
		if err != nil {
			return fmt.Errorf("creating paypal order: %w", err)
		}

		if err := prepare(ctx, store, clm.UserID, ord.ID, items, req.Shipping); err != nil {
			return fmt.Errorf("creating the orders on the store: %w", err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandlePaypalCapture(store *kv.Store, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		providerID := web.Param(r, "id")

		resp, err := pp.CaptureOrder(ctx, providerID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", providerID, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", providerID, resp.Status)
		}

		if err := fulfill(ctx, store, providerID); err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
