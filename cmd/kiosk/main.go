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

	"github.com/joshuaaaaa/Lednice-2.0/internal/authority"
	"github.com/joshuaaaaa/Lednice-2.0/internal/config"
	"github.com/joshuaaaaa/Lednice-2.0/internal/host"
	"github.com/joshuaaaaa/Lednice-2.0/internal/httpx"
	"github.com/joshuaaaaa/Lednice-2.0/internal/redisx"
	"github.com/joshuaaaaa/Lednice-2.0/internal/terminal"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis: push notifications, host state, guest flag
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	bridge := &host.Bridge{Redis: rdb, TerminalID: cfg.TerminalID}
	client := authority.NewClient(cfg.AuthorityURL)

	term := terminal.New(terminal.Config{
		Verifier:          client,
		Consumer:          client,
		Credentials:       bridge,
		SessionTimeout:    cfg.SessionTimeout,
		LockDuration:      cfg.LockDuration,
		MaxFailedAttempts: cfg.MaxFailedAttempts,
		OnSessionEnd: func(reason string) {
			go bridge.SetGuestActive(false)
		},
	})

	// push-delivery path for verification outcomes
	sub := &authority.Subscriber{Redis: rdb}
	go func() {
		if err := sub.Run(ctx, term.HandleNotification); err != nil {
			log.Printf("subscriber exit: %v", err)
			cancel()
		}
	}()

	// host state mirror (catalog + credentials)
	go func() {
		if err := bridge.Run(ctx, term.RefreshCatalog); err != nil {
			log.Printf("host bridge exit: %v", err)
			cancel()
		}
	}()

	router := httpx.NewRouter()
	th := &httpx.TerminalHandler{Term: term}
	th.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("kiosk %s listening at %s (authority %s)", cfg.TerminalID, cfg.HTTPAddr, cfg.AuthorityURL)
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
	cancel()
}
