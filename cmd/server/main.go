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

	"github.com/ticketforge/booking-engine/internal/cache"
	"github.com/ticketforge/booking-engine/internal/clock"
	"github.com/ticketforge/booking-engine/internal/config"
	"github.com/ticketforge/booking-engine/internal/database"
	"github.com/ticketforge/booking-engine/internal/handler"
	"github.com/ticketforge/booking-engine/internal/ledger"
	"github.com/ticketforge/booking-engine/internal/logger"
	"github.com/ticketforge/booking-engine/internal/repository"
	"github.com/ticketforge/booking-engine/internal/service"
	"github.com/ticketforge/booking-engine/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: !cfg.IsProduction(),
	})
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		return err
	}
	log.Info("migrations applied")

	clk := clock.NewSystem()
	bookingRepo := repository.NewBookingRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	bookingOpts := []service.BookingServiceOption{}

	var uow service.UnitOfWork
	var led service.Ledger
	switch cfg.Booking.LedgerBackend {
	case "memory":
		entries, err := eventRepo.LedgerSnapshot(ctx)
		if err != nil {
			return err
		}
		mem := ledger.NewMemory()
		mem.Restore(entries)
		led = mem
		uow = service.Passthrough{}
		bookingOpts = append(bookingOpts,
			service.WithCompensatingRelease(cfg.Booking.ReleaseRetries, cfg.Booking.ReleaseBackoff))
		log.Info("in-memory ledger restored", zap.Int("events", len(entries)))
	default:
		led = repository.NewLedgerRepository(pool, cfg.Booking.LockTimeout)
		uow = repository.NewTxManager(pool)
	}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		bookingOpts = append(bookingOpts,
			service.WithAvailabilityCache(cache.NewAvailability(client, cfg.Redis.TTL, log)))
		log.Info("availability cache enabled", zap.String("addr", cfg.Redis.Addr()))
	}

	bookingSvc := service.NewBookingService(uow, led, bookingRepo, eventRepo, clk, log, bookingOpts...)
	eventSvc := service.NewEventService(uow, eventRepo, led, clk, log)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, clk, log)
	adminSvc := service.NewAdminService(userRepo, eventRepo, bookingRepo, clk, log)

	authed := handler.Authenticate(cfg.JWT)
	router := handler.NewRouter(log,
		handler.NewAuthHandler(authSvc, authed, log),
		handler.NewEventHandler(eventSvc, bookingSvc, authed, log),
		handler.NewBookingHandler(bookingSvc, authed, log),
		handler.NewAdminHandler(adminSvc, authed, log),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	log.Info("server stopped")
	return nil
}
