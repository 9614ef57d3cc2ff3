package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
	"github.com/plutov/paypal/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/thespaceapp/marketplace/api"
	"github.com/thespaceapp/marketplace/api/background"
	"github.com/thespaceapp/marketplace/cache"
	"github.com/thespaceapp/marketplace/config"
	"github.com/thespaceapp/marketplace/core/notification"
	"github.com/thespaceapp/marketplace/core/user"
	"github.com/thespaceapp/marketplace/database"
	"github.com/thespaceapp/marketplace/kv"
	"github.com/thespaceapp/marketplace/rate"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	// Missing .env is fine: production sets the environment directly.
	godotenv.Load()

	const prefix = "SPACE"
	var cfg config.Config
	if help, err := conf.Parse(prefix, &cfg); err != nil {
		if err == conf.ErrHelpWanted {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(database.Config{
		Driver: cfg.DB.Driver,
		DSN:    cfg.DB.DSN,
	})
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.DB.Driver); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	store := kv.NewStore(db, logger)

	var cch cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		cch = cache.NewRedis(redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}), logger)
	case "memory":
		cch = cache.NewMemory()
	default:
		cch = cache.None{}
	}

	directory := user.NewDirectory(cfg.Directory.URL, cfg.Directory.Timeout, cch, cfg.Directory.CacheTTL, logger)
	feed := notification.NewFeed(cfg.Notifications.URL, cfg.Notifications.Timeout, cch, cfg.Notifications.CacheTTL, logger)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime

	bg := background.New(logger)

	pp, err := paypal.NewClient(
		cfg.Paypal.ClientID,
		cfg.Paypal.Secret,
		cfg.Paypal.URL,
	)
	if err != nil {
		return fmt.Errorf("failed to build the paypal client: %w", err)
	}

	if _, err = pp.GetAccessToken(context.TODO()); err != nil {
		return fmt.Errorf("failed to get the first paypal access token: %w", err)
	}

	strp := &stripecl.API{}
	strp.Init(cfg.Stripe.APISecret, nil)

	limiter := rate.NewLimiter(cfg.Rate.Burst, cfg.Rate.ExpiryMins, rate.Every(cfg.Rate.FillInterval))

	mux := api.APIMux(api.APIConfig{
		CorsOrigin: cfg.Cors.Origin,
		Log:        logger,
		Store:      store,
		Session:    sessionManager,
		Directory:  directory,
		Feed:       feed,
		Background: bg,
		Limiter:    limiter,
		Paypal:     pp,
		Stripe:     strp,
		StripeCfg:  cfg.Stripe,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}
