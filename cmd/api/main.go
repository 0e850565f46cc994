package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"curryhouse/internal/config"
	"curryhouse/internal/db"
	"curryhouse/internal/events"
	"curryhouse/internal/extras"
	"curryhouse/internal/httpserver"
	"curryhouse/internal/mongodb"
	customerrepo "curryhouse/internal/repository/customer"
	menurepo "curryhouse/internal/repository/menu"
	orderrepo "curryhouse/internal/repository/order"
	customersvc "curryhouse/internal/service/customer"
	menusvc "curryhouse/internal/service/menu"
	ordersvc "curryhouse/internal/service/order"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	policy, err := ordersvc.ParsePolicy(cfg.AdminStatusPolicy)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	var orderRepo orderrepo.Repository
	switch cfg.OrderStore {
	case "mongo":
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			logger.Fatalf("connect to mongo: %v", err)
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()
		mongoRepo := orderrepo.NewMongo(client.Database(cfg.MongoDatabase), logger)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			logger.Fatalf("mongo indexes: %v", err)
		}
		orderRepo = mongoRepo
		logger.Printf("orders stored in mongo database %s", cfg.MongoDatabase)
	case "postgres":
		orderRepo = orderrepo.NewPostgres(dbpool, logger)
	default:
		logger.Fatalf("unknown ORDER_STORE %q", cfg.OrderStore)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		pool, err := events.NewChannelPool(cfg.RabbitMQURL, cfg.RabbitMQQueue, cfg.ChannelPoolSize, logger)
		if err != nil {
			logger.Fatalf("connect to rabbitmq: %v", err)
		}
		defer pool.Close()
		publisher = events.NewAMQPPublisher(pool, cfg.RabbitMQQueue, logger)
	} else {
		logger.Printf("RABBITMQ_URL not set, order events are dropped")
	}

	customerRepo := customerrepo.NewPostgres(dbpool, logger)
	menuRepo := menurepo.NewPostgres(dbpool, logger)
	customerService := customersvc.New(customerRepo, cfg.JWTSecret, cfg.TokenTTL).WithMenu(menuRepo)
	menuService := menusvc.New(menuRepo)
	orderService := ordersvc.New(orderRepo, ordersvc.Options{
		Menu:         menuService,
		Extras:       extras.Default(),
		Customers:    customerRepo,
		Publisher:    publisher,
		Policy:       policy,
		NumberPrefix: cfg.OrderNumberPrefix,
		Logger:       logger,
	})

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CustomerSvc: customerService,
		MenuSvc:     menuService,
		OrderSvc:    orderService,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
