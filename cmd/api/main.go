package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-stock-orders/internal/cart"
	"github.com/ariefcatur/go-stock-orders/internal/catalog"
	"github.com/ariefcatur/go-stock-orders/internal/checkout"
	"github.com/ariefcatur/go-stock-orders/internal/config"
	"github.com/ariefcatur/go-stock-orders/internal/fulfillment"
	"github.com/ariefcatur/go-stock-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-stock-orders/internal/kafka"
	"github.com/ariefcatur/go-stock-orders/internal/logging"
	"github.com/ariefcatur/go-stock-orders/internal/memstore"
	"github.com/ariefcatur/go-stock-orders/internal/metrics"
	"github.com/ariefcatur/go-stock-orders/internal/observability"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/ariefcatur/go-stock-orders/internal/outbox"
	"github.com/ariefcatur/go-stock-orders/internal/postgres"
	"github.com/ariefcatur/go-stock-orders/internal/redisx"
	"github.com/ariefcatur/go-stock-orders/internal/reports"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type backend interface {
	orders.Store
	orders.OutboxStore
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatal("tracing setup", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Store
	var store backend
	switch cfg.Store {
	case config.StoreMemory:
		mem := memstore.New()
		if err := memstore.Seed(ctx, mem); err != nil {
			log.Fatal("seed", zap.Error(err))
		}
		store = mem
		log.Info("using in-memory store")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, 16)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		store = postgres.New(db)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer behind the outbox
	prod := kafkax.NewProducer(cfg.KafkaBrokers)
	relay := outbox.NewRelay(store, prod, cfg.OutboxInterval, cfg.OutboxBatch, log.Named("outbox"), m)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(ctx)
	}()

	// Services & handlers
	carts := cart.NewService(store, log.Named("cart"), m)
	co := checkout.NewService(store, carts, cfg.ServiceName, log.Named("checkout"), m,
		checkout.WithIdempotency(redisx.Idempotency{RDB: rdb}))
	ff := fulfillment.NewService(store, redisx.StatusCache{RDB: rdb}, cfg.ServiceName, log.Named("fulfillment"), m)
	rep := reports.NewService(store, cfg.LowStockThreshold, cfg.LowStockLimit)
	cat := catalog.NewService(store, log.Named("catalog"))

	router := httpx.NewRouter(log.Named("http"), m, reg)
	(&httpx.CartHandler{Cart: carts, Log: log}).Register(router)
	(&httpx.OrdersHandler{Checkout: co, Fulfillment: ff, Log: log}).Register(router)
	(&httpx.AdminHandler{Reports: rep, Catalog: cat, Log: log}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()
	<-relayDone
	if err := prod.Close(); err != nil {
		log.Warn("producer close", zap.Error(err))
	}
	if err := shutdownTracing(ctx2); err != nil {
		log.Warn("tracing shutdown", zap.Error(err))
	}
}
