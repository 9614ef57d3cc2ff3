// Package config holds the whole service configuration, parsed from the
// environment with the SPACE prefix.
package config

import "time"

type Config struct {
	Web struct {
		Address         string        `conf:"default:0.0.0.0:8000"`
		ReadTimeout     time.Duration `conf:"default:5s"`
		WriteTimeout    time.Duration `conf:"default:10s"`
		IdleTimeout     time.Duration `conf:"default:120s"`
		ShutdownTimeout time.Duration `conf:"default:20s"`
	}

	Cors struct {
		Origin string
	}

	DB struct {
		Driver string `conf:"default:sqlite"`
		DSN    string `conf:"default:thespace.db"`
	}

	Session struct {
		Lifetime time.Duration `conf:"default:24h"`
	}

	// Directory is the external user service the commerce state refers to.
	Directory struct {
		URL      string        `conf:"default:http://localhost:9000"`
		Timeout  time.Duration `conf:"default:5s"`
		CacheTTL time.Duration `conf:"default:5m"`
	}

	// Notifications is the feed consulted for shipment tracking links.
	Notifications struct {
		URL      string        `conf:"default:http://localhost:9000"`
		Timeout  time.Duration `conf:"default:5s"`
		CacheTTL time.Duration `conf:"default:1m"`
	}

	Cache struct {
		Backend       string `conf:"default:memory,help:one of none memory redis"`
		RedisAddr     string `conf:"default:localhost:6379"`
		RedisPassword string `conf:"mask"`
		RedisDB       int
	}

	Rate struct {
		Burst        int           `conf:"default:10"`
		ExpiryMins   int           `conf:"default:10"`
		FillInterval time.Duration `conf:"default:250ms"`
	}

	Stripe Stripe
	Paypal Paypal
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:3000/checkout/success"`
	CancelURL     string `conf:"default:http://localhost:3000/checkout/cancel"`

	// DiscountCoupon is the id of the coupon provisioned on the Stripe
	// account that mirrors the flat discount applied locally.
	DiscountCoupon string

	ProPriceID        string
	EnterprisePriceID string
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}
