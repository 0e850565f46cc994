package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"curryhouse/internal/config"
	"curryhouse/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[notifier] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	if cfg.RabbitMQURL == "" {
		logger.Fatalf("RABBITMQ_URL is required")
	}
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := events.NewTracker()
	var wg sync.WaitGroup
	for i := 1; i <= cfg.NotifierWorkers; i++ {
		w, err := events.NewWorker(i, conn, cfg.RabbitMQQueue, tracker, logger)
		if err != nil {
			logger.Fatalf("start worker: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				logger.Printf("%v", err)
				stop()
			}
		}()
	}
	logger.Printf("started %d workers on %s", cfg.NotifierWorkers, cfg.RabbitMQQueue)

	<-ctx.Done()
	wg.Wait()
	logger.Printf("shutting down\n%s", tracker.Summary())
}
