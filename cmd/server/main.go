package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/config"
	"github.com/mamadbah2/kitchenpos/internal/events"
	"github.com/mamadbah2/kitchenpos/internal/repository/idempotency"
	"github.com/mamadbah2/kitchenpos/internal/repository/memory"
	"github.com/mamadbah2/kitchenpos/internal/repository/mongodb"
	"github.com/mamadbah2/kitchenpos/internal/repository/sheets"
	"github.com/mamadbah2/kitchenpos/internal/scheduler"
	"github.com/mamadbah2/kitchenpos/internal/server/handlers"
	"github.com/mamadbah2/kitchenpos/internal/server/router"
	catalogsvc "github.com/mamadbah2/kitchenpos/internal/service/catalog"
	"github.com/mamadbah2/kitchenpos/internal/service/checkout"
	commandsvc "github.com/mamadbah2/kitchenpos/internal/service/commands"
	inventorysvc "github.com/mamadbah2/kitchenpos/internal/service/inventory"
	"github.com/mamadbah2/kitchenpos/internal/service/notification"
	reportingsvc "github.com/mamadbah2/kitchenpos/internal/service/reporting"
	salessvc "github.com/mamadbah2/kitchenpos/internal/service/sales"
	whatsappsvc "github.com/mamadbah2/kitchenpos/internal/service/whatsapp"
	"github.com/mamadbah2/kitchenpos/internal/tracing"
	"github.com/mamadbah2/kitchenpos/pkg/clients/mailer"
	whatsappclient "github.com/mamadbah2/kitchenpos/pkg/clients/whatsapp"
	"github.com/mamadbah2/kitchenpos/pkg/logger"
)

// backend is everything the services need from persistence.
type backend interface {
	checkout.CatalogStore
	checkout.SaleLedger
	inventorysvc.Store
	catalogsvc.Store
	salessvc.Ledger
	reportingsvc.ReportArchive
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		baseLogger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			baseLogger.Error("failed to flush traces", zap.Error(err))
		}
	}()

	location, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	var store backend
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		baseLogger.Warn("using in-memory storage, data is lost on restart")
		store = memory.New()
	default:
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		store = mongoRepo
	}

	var observers []checkout.SaleObserver
	if cfg.Sheets.Enabled() {
		sheetWriter, err := sheets.NewSpreadsheetWriter(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to open sales journal spreadsheet", zap.Error(err))
		}
		observers = append(observers, sheets.NewSalesJournal(sheetWriter, location))
		baseLogger.Info("sales journal enabled")
	}
	if cfg.Kafka.Enabled() {
		publisher := events.NewSalePublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.SalesTopic), baseLogger.Named("events.kafka"))
		defer func() {
			if err := publisher.Close(); err != nil {
				baseLogger.Error("failed to close kafka writer", zap.Error(err))
			}
		}()
		observers = append(observers, publisher)
		baseLogger.Info("sale events enabled", zap.String("topic", cfg.Kafka.SalesTopic))
	}

	var idem checkout.IdempotencyStore = idempotency.NewMemoryStore(idempotency.DefaultTTL)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			baseLogger.Fatal("failed to reach redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		idem = idempotency.NewRedisStore(rdb, idempotency.DefaultTTL)
	}

	// nil interfaces, not typed nil pointers, mark a disabled channel.
	var mailClient mailer.Client
	if cfg.Mail.Enabled() {
		mailClient = mailer.NewClient(cfg.Mail)
	}
	var whatsClient whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		whatsClient = whatsappclient.NewClient(cfg.WhatsApp)
	} else {
		baseLogger.Warn("whatsapp token missing, staff commands and whatsapp receipts disabled")
	}

	dispatcher := notification.NewDispatcher(mailClient, whatsClient, location, baseLogger.Named("svc.notification"))
	engine := checkout.NewEngine(store, store, dispatcher, checkout.Options{
		Timeout:       cfg.Checkout.Timeout,
		MaxAttempts:   cfg.Checkout.MaxAttempts,
		RetryBackoff:  cfg.Checkout.RetryBackoff,
		NotifyTimeout: cfg.Checkout.NotifyTimeout,
		Observers:     observers,
		Idempotency:   idem,
	}, baseLogger.Named("svc.checkout"))

	inventorySvc := inventorysvc.NewService(store, baseLogger.Named("svc.inventory"))
	catalogSvc := catalogsvc.NewService(store, baseLogger.Named("svc.catalog"))
	salesSvc := salessvc.NewService(store)
	reportingSvc := reportingsvc.NewService(inventorySvc, salesSvc, store, location, baseLogger.Named("svc.reporting"))
	commandDispatcher := commandsvc.NewService(inventorySvc, reportingSvc, baseLogger.Named("svc.commands"))
	messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))

	httpHandler := router.New(router.Handlers{
		Checkout:  handlers.NewCheckoutHandler(engine, baseLogger.Named("handlers.checkout")),
		Inventory: handlers.NewInventoryHandler(inventorySvc, baseLogger.Named("handlers.inventory")),
		Products:  handlers.NewProductHandler(catalogSvc, baseLogger.Named("handlers.products")),
		Sales:     handlers.NewSalesHandler(salesSvc, baseLogger.Named("handlers.sales")),
		Webhook:   handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp")),
	}, baseLogger.Named("router"))

	var messenger whatsappsvc.MessagingService
	if whatsClient != nil {
		messenger = messagingSvc
	}
	sched := scheduler.NewScheduler(cfg.Reporting, cfg.WhatsApp.ManagerID, location, reportingSvc, messenger, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}

	// let in-flight receipts and journal writes finish before closing their sinks
	engine.Wait()
}
