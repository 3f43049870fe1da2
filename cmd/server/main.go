package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gigpay/config"
	"gigpay/internal/database"
	"gigpay/internal/events"
	"gigpay/internal/router"
	"gigpay/pkg/gateway"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var gw gateway.Gateway
	if cfg.Gateway.UseStub {
		log.Printf("[Gateway] using in-memory stub")
		gw = gateway.NewStub()
	} else {
		gw = gateway.NewFlutterwave(cfg.Gateway.BaseURL, cfg.Gateway.SecretKey, cfg.Gateway.Timeout)
	}

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.Events.NATSURL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.ClientName)
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		publisher = natsPub
	}
	defer publisher.Close()

	engine, sweep := router.Setup(router.Deps{
		Config:    cfg,
		DB:        db,
		Gateway:   gw,
		Publisher: publisher,
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweep.Run(sweepCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	log.Println("server stopped")
}
