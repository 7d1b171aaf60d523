package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joshuaaaaa/Lednice-2.0/internal/config"
	"github.com/joshuaaaaa/Lednice-2.0/internal/events"
	"github.com/joshuaaaaa/Lednice-2.0/internal/inventory"
	kafkax "github.com/joshuaaaaa/Lednice-2.0/internal/kafka"
	"github.com/joshuaaaaa/Lednice-2.0/internal/postgres"
	"github.com/joshuaaaaa/Lednice-2.0/internal/redisx"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	ledger := &inventory.Ledger{
		Store:       &inventory.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-auditlog",
	}

	group := getenv("AUDITLOG_GROUP", "auditlog-svc")
	workers := mustAtoi(os.Getenv("AUDITLOG_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicProductsConsumed, workers)

	go func() {
		log.Printf("auditlog consumer started: group=%s topic=%s workers=%d", group, events.TopicProductsConsumed, workers)
		if err := cons.Start(ctx, ledger.HandleConsumed); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
