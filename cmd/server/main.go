package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Skotchmaster/bakery_shop/internal/config"
	"github.com/Skotchmaster/bakery_shop/internal/db"
	"github.com/Skotchmaster/bakery_shop/internal/events"
	"github.com/Skotchmaster/bakery_shop/internal/httpserver"
	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/metrics"
	"github.com/Skotchmaster/bakery_shop/internal/repo"
	"github.com/Skotchmaster/bakery_shop/internal/search"
	"github.com/Skotchmaster/bakery_shop/internal/service"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}
	if cfg.SeedCatalog {
		if err := db.Seed(context.Background(), gdb, logger); err != nil {
			log.Fatalf("db seed error: %v", err)
		}
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, events.Topics()...)
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	r := &repo.GormRepo{DB: gdb}

	var index search.Index = search.DBIndex{Repo: r}
	if cfg.ESURL != "" {
		client, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		index = &search.ESIndex{Client: client, Index: cfg.ESIndex}
		logger.Info("elasticsearch_enabled", "index", cfg.ESIndex)
	}

	m := metrics.NewServerMetrics(cfg.ServiceName)
	catalog := &service.CatalogService{Repo: r, Search: index, Events: publisher}

	if cfg.ESURL != "" {
		ctx := logging.IntoContext(context.Background(), logger)
		n, err := catalog.Reindex(ctx)
		if err != nil {
			logger.Warn("reindex_failed", "error", err)
		} else {
			logger.Info("reindex_done", "products", n)
		}
	}

	e, err := httpserver.New(logger, &httpserver.Deps{
		DB:       gdb,
		Catalog:  catalog,
		Wishlist: &service.WishlistService{Repo: r, Events: publisher},
		Orders:   &service.OrderService{Repo: r, Events: publisher, Created: m.Orders},
		Auth: &service.AuthService{
			Repo:          r,
			JWTSecret:     cfg.JWTAccessSecret,
			RefreshSecret: cfg.JWTRefreshSecret,
			Events:        publisher,
		},
		Metrics:      m,
		CookieSecure: cfg.CookieSecure,
		CSRFEnabled:  cfg.CSRFEnabled,
	})
	if err != nil {
		log.Fatalf("http server init error: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_failed", "error", err)
		}
	}

	logger.Info("shutdown_complete")
}
