package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kodesha/internal/app/commands"
	bookingapp "kodesha/internal/app/handlers/booking"
	walletapp "kodesha/internal/app/handlers/wallet"
	"kodesha/internal/app/middleware"
	"kodesha/internal/app/outbox"
	"kodesha/internal/app/queries"
	"kodesha/internal/app/uow"
	"kodesha/internal/domain/shared/money"
	domainwallet "kodesha/internal/domain/wallet"
	"kodesha/internal/infra/broker/kafka"
	"kodesha/internal/infra/config"
	dbmongo "kodesha/internal/infra/db/mongo"
	ginserver "kodesha/internal/infra/http/gin"
	"kodesha/internal/infra/obs"
	outboxworker "kodesha/internal/infra/outbox"
	"kodesha/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.Currency = money.DefaultCurrency
		cfg.StorageMode = config.StorageMemory
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready(ctx),
	}, app.handlers)

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.Options{})
		if err != nil {
			logger.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		worker := &outboxworker.Worker{
			Store:       app.outboxStore,
			Producer:    producer,
			Logger:      logger,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
		logger.Info("outbox worker started", "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("no kafka brokers configured, events stay in outbox")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers    ginserver.Handlers
	outboxStore outboxworker.Store
	mongoClient *dbmongo.Client
}

func buildApplication(cfg config.Config, logger *slog.Logger) (application, error) {
	app := application{}

	var uowFactory uow.Factory
	var idStore middleware.IdempotencyStore
	var box outbox.Outbox
	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := dbmongo.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, err
		}
		app.mongoClient = client
		uowFactory = dbmongo.Factory{
			DB:          client.DB,
			BookingRepo: dbmongo.NewBookingRepository(client.DB),
			EscrowRepo:  dbmongo.NewEscrowRepository(client.DB),
			WalletRepo:  dbmongo.NewWalletRepository(client.DB),
		}
		idStore = dbmongo.NewIdempotencyStore(client.DB)
		store := dbmongo.NewOutboxStore(client.DB)
		box = store
		app.outboxStore = store
	default:
		uowFactory = memory.NewFactory(
			memory.NewBookingRepository(),
			memory.NewEscrowRepository(),
			memory.NewWalletRepository(),
		)
		idStore = memory.NewIdempotencyStore()
		memBox := memory.NewOutbox()
		box = memBox
		app.outboxStore = memBox
	}

	encoder := outbox.JSONEventEncoder{}
	limits := domainwallet.Limits{
		MinTopUp:    money.Money{Amount: cfg.MinTopUp, Currency: cfg.Currency},
		MinWithdraw: money.Money{Amount: cfg.MinWithdraw, Currency: cfg.Currency},
	}
	gateway := memory.NewPaymentGateway()

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		UoWFactory: uowFactory,
		Outbox:     box,
		Encoder:    encoder,
		Currency:   cfg.Currency,
		FeeRate:    cfg.PlatformFeeRate,
	})
	commands.RegisterHandler(commandBus, bookingapp.TransitionBookingCommand{}.Key(), &bookingapp.TransitionBookingHandler{
		UoWFactory: uowFactory,
		Outbox:     box,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.MarkPaidCommand{}.Key(), &bookingapp.MarkPaidHandler{
		UoWFactory: uowFactory,
		Outbox:     box,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.ResolveDisputeCommand{}.Key(), &bookingapp.ResolveDisputeHandler{
		UoWFactory: uowFactory,
	})
	commands.RegisterHandler(commandBus, walletapp.TopUpCommand{}.Key(), &walletapp.TopUpHandler{
		UoWFactory:     uowFactory,
		Gateway:        gateway,
		Limits:         limits,
		Currency:       cfg.Currency,
		GatewayTimeout: cfg.GatewayTimeout,
	})
	commands.RegisterHandler(commandBus, walletapp.WithdrawCommand{}.Key(), &walletapp.WithdrawHandler{
		UoWFactory:     uowFactory,
		Gateway:        gateway,
		Limits:         limits,
		Currency:       cfg.Currency,
		GatewayTimeout: cfg.GatewayTimeout,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.QuoteQuery{}.Key(), &bookingapp.QuoteHandler{
		Currency: cfg.Currency,
		FeeRate:  cfg.PlatformFeeRate,
	})
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, bookingapp.ListBookingsQuery{}.Key(), &bookingapp.ListBookingsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, bookingapp.GetEscrowQuery{}.Key(), &bookingapp.GetEscrowHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, walletapp.GetWalletQuery{}.Key(), &walletapp.GetWalletHandler{UoWFactory: uowFactory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(box),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	app.handlers = ginserver.Handlers{
		Booking: ginserver.BookingHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
		Wallet: ginserver.WalletHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
	}
	return app, nil
}

func (a application) ready(ctx context.Context) func() error {
	if a.mongoClient == nil {
		return func() error { return nil }
	}
	return func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return a.mongoClient.Ping(pingCtx)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
