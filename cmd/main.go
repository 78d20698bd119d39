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

	"backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/events"
	httpapi "backoffice/internal/http"
	"backoffice/internal/metrics"
	"backoffice/internal/notification"
	"backoffice/internal/provider"
	"backoffice/internal/repository"
	"backoffice/internal/service"
	"backoffice/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Log.Sync()

	pricing, err := cfg.Pricing()
	if err != nil {
		logger.Log.Fatal("pricing config", logger.Error(err))
	}

	var sink domain.EventPublisher = events.LogPublisher{}
	if brokers := events.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(brokers, cfg.KafkaEventsTopic)
		defer kafkaPub.Close()
		sink = events.Fanout{events.LogPublisher{}, kafkaPub}
		logger.Log.Info("publishing domain events to kafka",
			logger.Strings("brokers", brokers),
			logger.String("topic", cfg.KafkaEventsTopic),
		)
	}
	dispatcher := events.NewDispatcher(sink)

	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	paymentsRepo := repository.NewMemoryPayments(store)
	tx := repository.NewMemoryTx(store)

	providers := provider.FromConfig(cfg.Stripe(), cfg.MobilePay())
	if len(providers.Providers()) == 0 {
		logger.Log.Warn("no payment providers configured")
	}
	m := metrics.New()

	orderDomain := service.NewOrderDomainService(service.NewOrderValidationService(), pricing, dispatcher)
	paymentDomain := service.NewPaymentDomainService(
		service.NewPaymentValidationService(cfg.SupportedCurrencies, providers),
		dispatcher,
		cfg.PaymentMaxRetries,
	)

	productsSvc := service.NewProductService(store, ordersRepo, tx)
	ordersSvc := service.NewOrderService(store, ordersRepo, tx, dispatcher, orderDomain, m)
	notifier := notification.LogNotifier{}
	paymentsSvc := service.NewPaymentService(paymentsRepo, ordersRepo, tx, dispatcher, providers, paymentDomain, orderDomain, m).
		WithNotifier(notifier)

	srv := httpapi.NewServer(productsSvc, ordersSvc, paymentsSvc, providers, notifier, m)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Log.Info("HTTP server listening", logger.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server error", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Log.Error("shutdown error", logger.Error(err))
	}
}
