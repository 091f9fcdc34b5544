package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cristianortiz/auctionMarket/internal/auction/application"
	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	auctionhttp "github.com/cristianortiz/auctionMarket/internal/auction/infra/http"
	"github.com/cristianortiz/auctionMarket/internal/auction/infra/repository/memory"
	"github.com/cristianortiz/auctionMarket/internal/auction/infra/repository/postgres"
	auctionws "github.com/cristianortiz/auctionMarket/internal/auction/infra/websocket"
	"github.com/cristianortiz/auctionMarket/internal/notification"
	notificationredis "github.com/cristianortiz/auctionMarket/internal/notification/infra/redis"
	notificationws "github.com/cristianortiz/auctionMarket/internal/notification/infra/websocket"
	"github.com/cristianortiz/auctionMarket/internal/shared/config"
	"github.com/cristianortiz/auctionMarket/internal/shared/db"
	"github.com/cristianortiz/auctionMarket/internal/shared/db/migrations"
	"github.com/cristianortiz/auctionMarket/internal/shared/httpserver"
	"github.com/cristianortiz/auctionMarket/internal/shared/logger"
	"github.com/cristianortiz/auctionMarket/internal/shared/websocket"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// Inicializa logger
	logger := logger.GetLogger()
	defer logger.Sync()

	logger.Info("Starting AuctionMarket server...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		listingRepo domain.ListingRepository
		bidRepo     domain.BidRepository
	)
	if cfg.DB.Enabled() {
		logger.Info("Running database migrations...")
		if err := migrations.RunMigrations(cfg.MigrationsPath, cfg.DB.DSN()); err != nil {
			logger.Fatal("Database migration failed", zap.Error(err))
		}
		logger.Info("Database migrations completed successfully.")

		pool, err := db.NewPostgresPool(ctx, cfg.DB.DSN())
		if err != nil {
			logger.Fatal("Database connection failed", zap.Error(err))
		}
		defer pool.Close()
		listingRepo = postgres.NewListingRepository(pool)
		bidRepo = postgres.NewBidRepository(pool)
	} else {
		logger.Warn("DB_HOST not set, using in-memory store")
		store := memory.NewStore()
		listingRepo, bidRepo = store, store
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	dispatchers := notification.FanOut{
		notification.LogDispatcher{},
		notificationws.NewDeliverer(hub),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Redis connection failed", zap.Error(err))
		}
		dispatchers = append(dispatchers, notificationredis.NewPublisher(rdb, cfg.RedisChannel))
		logger.Info("Publishing notifications to redis", zap.String("channel", cfg.RedisChannel))
	}

	auctionService := application.NewLedger(listingRepo, bidRepo, dispatchers, cfg.MaxCommitAttempts)

	server := httpserver.NewServer()
	auctionhttp.NewAuctionHTTPHandler(auctionService).RegisterRoutes(server.App())
	wsHandler := auctionws.NewAuctionWSHandler(auctionService, hub)
	wsHandler.RegisterRoutes(ctx, server.App())
	go wsHandler.ListenForMessages(ctx)

	if err := server.Start(ctx, cfg.HTTPAddr); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
	logger.Info("AuctionMarket server stopped")
}
