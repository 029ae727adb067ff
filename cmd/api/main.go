package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/morningroast/brewpass/internal/cart"
	"github.com/morningroast/brewpass/internal/config"
	"github.com/morningroast/brewpass/internal/httpx"
	kafkax "github.com/morningroast/brewpass/internal/kafka"
	"github.com/morningroast/brewpass/internal/ledger"
	"github.com/morningroast/brewpass/internal/menu"
	"github.com/morningroast/brewpass/internal/orders"
	"github.com/morningroast/brewpass/internal/payments"
	"github.com/morningroast/brewpass/internal/postgres"
	"github.com/morningroast/brewpass/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderSettled, 1024)
	prod.Start(context.Background()) // stopped via Close after the server drains

	provider := payments.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, log)

	menuRepo := &menu.Repo{DB: db}
	ledgerRepo := &ledger.Repo{DB: db, Threshold: cfg.FreeDrinkThreshold, Log: log}
	cartRepo := &cart.Repo{DB: db, Threshold: cfg.FreeDrinkThreshold, Log: log}
	orderRepo := &orders.Repo{DB: db, Threshold: cfg.FreeDrinkThreshold}

	settlement := &orders.Settlement{
		Orders:                orderRepo,
		Cart:                  cartRepo,
		Ledger:                ledgerRepo,
		Provider:              provider,
		Producer:              prod,
		Service:               cfg.ServiceName,
		Currency:              cfg.Currency,
		ReloadMaxCents:        cfg.ReloadMaxCents,
		PointsPerReloadDollar: cfg.PointsPerReloadDollar,
		Log:                   log,
	}
	reconciler := &orders.Reconciler{
		Orders:   orderRepo,
		Redis:    rdb,
		Producer: prod,
		Service:  cfg.ServiceName,
		Log:      log,
	}

	router := httpx.NewRouter()
	ph := &httpx.PaymentsHandler{Settlement: settlement, Provider: provider, Reconciler: reconciler, Log: log}
	ph.RegisterWebhook(router)
	router.Group(func(r chi.Router) {
		r.Use(httpx.Auth(cfg.JWTSecret))
		(&httpx.MenuHandler{Menu: menuRepo}).Register(r)
		(&httpx.CartHandler{Cart: cartRepo}).Register(r)
		(&httpx.RewardsHandler{Ledger: ledgerRepo, Settlement: settlement}).Register(r)
		(&httpx.OrdersHandler{Orders: orderRepo, Redis: rdb}).Register(r)
		ph.Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited")
	}

	log.Info().Msg("shutting down")
	prod.Close()
	prod.WaitClosed()
}
