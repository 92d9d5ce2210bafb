package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abbashop/storefront/internal/account"
	"github.com/abbashop/storefront/internal/cart"
	"github.com/abbashop/storefront/internal/catalog"
	"github.com/abbashop/storefront/internal/config"
	"github.com/abbashop/storefront/internal/db"
	"github.com/abbashop/storefront/internal/order"
	"github.com/abbashop/storefront/internal/session"
)

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := newLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	sessions := session.NewStore(rdb, cfg.SessionCookie, cfg.SessionTTL, cfg.SecureCookies)

	deps := &deps{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		accounts: account.NewPGRepo(pool),
		items:    catalog.NewPGRepo(pool),
		carts:    cart.NewPGRepo(pool),
		orders:   order.NewPGRepo(pool),
	}
	deps.lifecycle = catalog.NewService(deps.items)
	deps.engine = order.NewEngine(deps.orders)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      newRouter(deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	log.Info("storefront listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("serve", "err", err)
		os.Exit(1)
	}
}
