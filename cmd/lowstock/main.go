package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-stock-orders/internal/config"
	"github.com/ariefcatur/go-stock-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-stock-orders/internal/kafka"
	"github.com/ariefcatur/go-stock-orders/internal/logging"
	"github.com/ariefcatur/go-stock-orders/internal/metrics"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/ariefcatur/go-stock-orders/internal/postgres"
	"github.com/ariefcatur/go-stock-orders/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.ServiceName+"-lowstock", cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The watcher reads the shared database; an in-memory store lives only
	// inside the api process.
	if cfg.Store != config.StorePostgres {
		log.Fatal("lowstock watcher requires STORE=postgres")
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 4)
	if err != nil {
		log.Fatal("db", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	go func() {
		// metrics only; the watcher serves no API
		if err := http.ListenAndServe(cfg.HTTPAddr, metrics.Handler(reg)); err != nil {
			log.Warn("metrics listener", zap.Error(err))
		}
	}()

	w := inventory.NewWatcher(postgres.New(db), redisx.Dedup{RDB: rdb, Consumer: cfg.LowStockGroup},
		cfg.LowStockThreshold, log, m)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.LowStockGroup, orders.TopicOrderCreated, cfg.LowStockWorkers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("lowstock consumer started",
			zap.String("group", cfg.LowStockGroup),
			zap.String("topic", orders.TopicOrderCreated),
			zap.Int("workers", cfg.LowStockWorkers),
			zap.Int("threshold", cfg.LowStockThreshold))
		if err := cons.Start(ctx, w.HandleOrderCreated); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done
}
