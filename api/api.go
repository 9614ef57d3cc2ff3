package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/thespaceapp/marketplace/api/background"
	"github.com/thespaceapp/marketplace/api/middleware"
	"github.com/thespaceapp/marketplace/api/web"
	"github.com/thespaceapp/marketplace/config"
	"github.com/thespaceapp/marketplace/core/auth"
	"github.com/thespaceapp/marketplace/core/cart"
	"github.com/thespaceapp/marketplace/core/claims"
	"github.com/thespaceapp/marketplace/core/collab"
	"github.com/thespaceapp/marketplace/core/notification"
	"github.com/thespaceapp/marketplace/core/order"
	"github.com/thespaceapp/marketplace/core/subscription"
	"github.com/thespaceapp/marketplace/core/user"
	"github.com/thespaceapp/marketplace/core/wishlist"
	"github.com/thespaceapp/marketplace/kv"
	"github.com/thespaceapp/marketplace/rate"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	Store      *kv.Store
	Session    *scs.SessionManager
	Directory  *user.Directory
	Feed       *notification.Feed
	Background *background.Background
	Limiter    *rate.Limiter
	Paypal     *paypal.Client
	Stripe     *stripecl.API
	StripeCfg  config.Stripe
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.Limiter != nil {
		a.mw = append(a.mw, middleware.RateLimit(cfg.Limiter))
	}

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)
	seller := auth.Require(claims.RoleSeller, claims.RoleAdmin)
	influencer := auth.Require(claims.RoleInfluencer, claims.RoleAdmin)

	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.Directory, cfg.Session))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))

	a.Handle(http.MethodGet, "/users/current", auth.HandleShowCurrent(cfg.Directory), authen)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.Store), authen)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.Store), authen)
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(cfg.Store), authen)
	a.Handle(http.MethodPut, "/cart/items/{cart_item_id}", cart.HandleUpdateQuantity(cfg.Store), authen)
	a.Handle(http.MethodDelete, "/cart/items/{cart_item_id}", cart.HandleDeleteItem(cfg.Store), authen)
	a.Handle(http.MethodPost, "/cart/quote", cart.HandleQuote(cfg.Store), authen)

	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.Store, cfg.Feed), authen)
	a.Handle(http.MethodGet, "/orders/sold", order.HandleListBySeller(cfg.Store, cfg.Feed), authen, seller)
	a.Handle(http.MethodGet, "/orders/{id}/track", order.HandleTrack(cfg.Store, cfg.Feed), authen)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.Store, cfg.Feed), authen)
	a.Handle(http.MethodPost, "/orders/{id}/cancel", order.HandleCancel(cfg.Store), authen)
	a.Handle(http.MethodPost, "/orders/{id}/tracking", order.HandleAppendTracking(cfg.Store), authen, seller)

	a.Handle(http.MethodPost, "/orders/paypal", order.HandlePaypalCheckout(cfg.Store, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/orders/paypal/{id}/capture", order.HandlePaypalCapture(cfg.Store, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/orders/stripe", order.HandleStripeCheckout(cfg.Store, cfg.Stripe, cfg.StripeCfg), authen)
	a.Handle(http.MethodPost, "/orders/stripe/capture", order.HandleStripeCapture(cfg.Store, cfg.StripeCfg))

	a.Handle(http.MethodGet, "/wishlist", wishlist.HandleList(cfg.Store), authen)
	a.Handle(http.MethodPost, "/wishlist/toggle", wishlist.HandleToggle(cfg.Store), authen)
	a.Handle(http.MethodPost, "/wishlist/check", wishlist.HandleIsSaved(cfg.Store), authen)

	a.Handle(http.MethodGet, "/subscription", subscription.HandleShow(cfg.Store), authen)
	a.Handle(http.MethodPost, "/subscription/stripe", subscription.HandleStripeCheckout(cfg.Stripe, cfg.StripeCfg), authen)
	a.Handle(http.MethodPost, "/subscription/stripe/capture", subscription.HandleStripeCapture(cfg.Store, cfg.Directory, cfg.Background, cfg.StripeCfg))
	a.Handle(http.MethodPut, "/subscription/tier", subscription.HandleChangeTier(cfg.Store, cfg.Directory, cfg.Background), admin)
	a.Handle(http.MethodPut, "/subscription/extend", subscription.HandleExtend(cfg.Store, cfg.Directory, cfg.Background), admin)

	a.Handle(http.MethodGet, "/collabs", collab.HandleListMine(cfg.Store), authen)
	a.Handle(http.MethodGet, "/collabs/sellers", collab.HandleAvailableSellers(cfg.Store, cfg.Directory), authen, influencer)
	a.Handle(http.MethodPost, "/collabs", collab.HandleSend(cfg.Store), authen, influencer)
	a.Handle(http.MethodPut, "/collabs/{id}", collab.HandleResolve(cfg.Store), authen, seller)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {
	handler = web.WrapMiddleware(mw, handler)
	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {
			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
