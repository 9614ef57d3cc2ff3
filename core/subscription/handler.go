package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
	"github.com/thespaceapp/marketplace/api/background"
	"github.com/thespaceapp/marketplace/api/web"
	"github.com/thespaceapp/marketplace/api/weberr"
	"github.com/thespaceapp/marketplace/config"
	"github.com/thespaceapp/marketplace/core/claims"
	"github.com/thespaceapp/marketplace/core/user"
	"github.com/thespaceapp/marketplace/kv"
	"github.com/thespaceapp/marketplace/validate"
)

type planView struct {
	Tier      Tier       `json:"tier"`
	Limits    Limits     `json:"limits"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Remaining string     `json:"remaining"`
}

func view(rec Record, now time.Time) planView {
	return planView{
		Tier:      rec.Tier,
		Limits:    rec.Tier.Limits(),
		ExpiresAt: rec.ExpiresAt,
		Remaining: FormatRemaining(rec.ExpiresAt, now),
	}
}

func HandleShow(store *kv.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		rec, err := Get(ctx, store, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, view(rec, time.Now()), http.StatusOK)
	}
}

// HandleChangeTier sets a user's plan directly, bypassing payment. Admin only;
// regular users go through the checkout flow.
func HandleChangeTier(store *kv.Store, directory *user.Directory, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req struct {
			UserID string     `json:"userId" validate:"required"`
			Tier   string     `json:"tier" validate:"required,oneof=basic pro enterprise"`
			Until  *time.Time `json:"until"`
		}
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding tier change: %w", err))
		}
		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		rec, err := ChangeTier(ctx, store, req.UserID, Tier(req.Tier), req.Until, time.Now())
		if err != nil {
			if errors.Is(err, ErrUnknownTier) {
				return weberr.Unprocessable(err)
			}
			return err
		}

		mirror(ctx, directory, bg, rec)
		return web.Respond(ctx, w, view(rec, time.Now()), http.StatusOK)
	}
}

func HandleExtend(store *kv.Store, directory *user.Directory, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req struct {
			UserID string     `json:"userId" validate:"required"`
			Until  *time.Time `json:"until"`
		}
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding extension: %w", err))
		}
		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		rec, err := Extend(ctx, store, req.UserID, req.Until, time.Now())
		if err != nil {
			if errors.Is(err, ErrBasicTier) {
				return weberr.Unprocessable(err)
			}
			return err
		}

		mirror(ctx, directory, bg, rec)
		return web.Respond(ctx, w, view(rec, time.Now()), http.StatusOK)
	}
}

func HandleStripeCheckout(strp *stripecl.API, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var req struct {
			Tier string `json:"tier" validate:"required,oneof=pro enterprise"`
		}
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding subscription request: %w", err))
		}
		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		price := cfg.ProPriceID
		if Tier(req.Tier) == Enterprise {
			price = cfg.EnterprisePriceID
		}

		params := &stripe.CheckoutSessionParams{
			SuccessURL: stripe.String(cfg.SuccessURL),
			CancelURL:  stripe.String(cfg.CancelURL),
			Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),

			LineItems: []*stripe.CheckoutSessionLineItemParams{{
				Price:    stripe.String(price),
				Quantity: stripe.Int64(1),
			}},
		}
		params.AddMetadata("userID", clm.UserID)
		params.AddMetadata("tier", req.Tier)

		s, err := strp.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe subscription session: %w", err)
		}

		return web.Respond(ctx, w, s.URL, http.StatusOK)
	}
}

func HandleStripeCapture(store *kv.Store, directory *user.Directory, bg *background.Background, cfg config.Stripe) web.Handler {
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

		if session.Mode != stripe.CheckoutSessionModeSubscription {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		userID, tier := session.Metadata["userID"], Tier(session.Metadata["tier"])
		if userID == "" || !tier.Valid() {
			return weberr.BadRequest(fmt.Errorf("stripe session[%s] misses user or tier metadata", session.ID))
		}

		rec, err := ChangeTier(ctx, store, userID, tier, nil, time.Now())
		if err != nil {
			return fmt.Errorf("the subscription was payed but activating it failed: %w", err)
		}

		mirror(ctx, directory, bg, rec)
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// mirror pushes the tier change to the remote directory on a background task.
// The local record stays authoritative, so failures are only logged.
func mirror(ctx context.Context, directory *user.Directory, bg *background.Background, rec Record) {
	bg.Run(func() error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		u, err := directory.ByID(ctx, rec.UserID)
		if err != nil {
			return fmt.Errorf("looking up user[%s] for tier mirror: %w", rec.UserID, err)
		}
		return directory.UpdateRole(ctx, rec.UserID, u.NormalizedRole(), string(rec.Tier))
	})
}
