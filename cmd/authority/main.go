package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joshuaaaaa/Lednice-2.0/internal/config"
	"github.com/joshuaaaaa/Lednice-2.0/internal/events"
	"github.com/joshuaaaaa/Lednice-2.0/internal/httpx"
	"github.com/joshuaaaaa/Lednice-2.0/internal/inventory"
	kafkax "github.com/joshuaaaaa/Lednice-2.0/internal/kafka"
	"github.com/joshuaaaaa/Lednice-2.0/internal/postgres"
	"github.com/joshuaaaaa/Lednice-2.0/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	repo := &inventory.Repo{DB: db}
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	if err := repo.SeedDefaultRooms(ctx); err != nil {
		log.Fatalf("seed rooms: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producers: consumed & failed (two separate topics)
	pOK := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicProductsConsumed, 1024)
	pOK.Start(ctx)
	pRJ := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicConsumeFailed, 1024)
	pRJ.Start(ctx)

	svc := &inventory.Service{
		Store:          repo,
		Redis:          rdb,
		ProducerOK:     pOK,
		ProducerReject: pRJ,
		ServiceName:    cfg.ServiceName + "-authority",
	}

	if err := svc.PublishHostState(ctx); err != nil {
		log.Printf("host state publish: %v", err)
	}
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := svc.PublishHostState(ctx); err != nil {
					log.Printf("host state publish: %v", err)
				}
			}
		}
	}()

	router := httpx.NewRouter()
	ah := &httpx.AuthorityHandler{Svc: svc}
	ah.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("authority listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pOK.Close()
	pRJ.Close()
	cancel()
	pOK.WaitClosed()
	pRJ.WaitClosed()
}
