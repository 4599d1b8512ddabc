package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bytron/internal/catalog"
	"bytron/internal/config"
	"bytron/internal/forward"
	internalhttp "bytron/internal/http"
	"bytron/internal/logger"
	"bytron/internal/mail"
	"bytron/internal/pricing"
	"bytron/internal/services"
	"bytron/internal/store"
	"bytron/internal/tron"
	"bytron/internal/worker"

	"github.com/jaevor/go-nanoid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Env); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.L.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	if cfg.DB.DSN != "" {
		pg, err := store.Connect(ctx, cfg.DB.DSN)
		if err != nil {
			logger.L.Fatal("db connect failed", zap.Error(err))
		}
		defer pg.Close()
		st = pg
		logger.L.Info("using postgres store")
	} else {
		st = store.NewMemory()
		logger.L.Info("using in-memory store")
	}

	explorer, err := tron.NewMultiExplorer(cfg.Tron.ExplorerEndpoints, cfg.Tron.FailoverThreshold)
	if err != nil {
		logger.L.Fatal("explorer setup failed", zap.Error(err))
	}

	newID, err := nanoid.Standard(12)
	if err != nil {
		logger.L.Fatal("id generator setup failed", zap.Error(err))
	}

	oracle := pricing.NewOracle(
		cfg.Pricing.CoinGeckoURL,
		cfg.Pricing.CryptoCompareURL,
		cfg.Pricing.FallbackRate,
		time.Duration(cfg.Pricing.CacheTTLMinutes)*time.Minute,
	)

	if cfg.Tron.OwnerAddress == "" {
		logger.L.Warn("owner address not configured, deposits will not be forwarded")
	}
	fwd := &forward.Forwarder{
		Node:         tron.NewNode(cfg.Tron.NodeEndpoint),
		OwnerAddress: cfg.Tron.OwnerAddress,
		FeeBufferSun: cfg.Tron.FeeBufferSun,
	}

	var mailer services.Mailer
	sender := &mail.Sender{
		Host: cfg.Mail.Host,
		Port: cfg.Mail.Port,
		User: cfg.Mail.User,
		Pass: cfg.Mail.Pass,
		From: cfg.Mail.From,
	}
	if sender.Configured() {
		mailer = sender
	} else {
		logger.L.Warn("smtp not configured, receipts disabled")
	}

	orderSvc := &services.OrderService{
		Store:     st,
		Catalog:   catalog.New(cfg.Products),
		Oracle:    oracle,
		Explorer:  explorer,
		Forwarder: fwd,
		Mailer:    mailer,
		NewID:     newID,
		ScanLimit: cfg.Tron.ScanLimit,
		Validity:  time.Duration(cfg.Orders.ValidityMinutes) * time.Minute,
		FilesDir:  cfg.Files.Dir,
	}

	w := &worker.Worker{
		Store:      st,
		Orders:     orderSvc,
		Interval:   time.Duration(cfg.Worker.IntervalSeconds) * time.Second,
		AbandonTTL: time.Duration(cfg.Orders.AbandonTTLHours) * time.Hour,
	}
	go w.Run(ctx)

	h := internalhttp.NewHandler(orderSvc)
	srv := internalhttp.NewServer(h)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		logger.L.Info("api listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
}
