package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/eltafawook-admin/api/controllers"
	"github.com/angelmondragon/eltafawook-admin/api/routes"
	"github.com/angelmondragon/eltafawook-admin/internal/auth"
	"github.com/angelmondragon/eltafawook-admin/internal/cart"
	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/internal/inventory"
	"github.com/angelmondragon/eltafawook-admin/internal/notifications"
	"github.com/angelmondragon/eltafawook-admin/internal/reservations"
	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/internal/settings"
	"github.com/angelmondragon/eltafawook-admin/internal/students"
	"github.com/angelmondragon/eltafawook-admin/internal/transfers"
	"github.com/angelmondragon/eltafawook-admin/internal/uploads"
	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	"github.com/angelmondragon/eltafawook-admin/pkg/config"
	"github.com/angelmondragon/eltafawook-admin/pkg/db"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
	"github.com/angelmondragon/eltafawook-admin/pkg/metrics"
	"github.com/angelmondragon/eltafawook-admin/pkg/migrate"
	"github.com/angelmondragon/eltafawook-admin/pkg/probe"
	"github.com/angelmondragon/eltafawook-admin/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "admin"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "admin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "admin server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	apiMetrics := metrics.NewAPIMetrics(reg)
	opMetrics := metrics.NewOperationMetrics(reg)

	dbClient, err := db.New(ctx, cfg.Store, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing store", err)
		}
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	ready := map[string]controllers.Pinger{"store": dbClient}
	var availabilityStore inventory.Store = inventory.NewMemoryStore()
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		availabilityStore = inventory.NewRedisStore(redisClient)
		ready["redis"] = redisClient
	}

	client, err := apiclient.NewClient(cfg.API.BaseURL,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithLogger(logg),
		apiclient.WithMetrics(apiMetrics),
	)
	if err != nil {
		return err
	}
	prober, err := probe.New(client, logg, opMetrics)
	if err != nil {
		return err
	}

	settingsSvc, err := settings.NewService(settings.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return err
	}
	wa, err := settingsSvc.Load(ctx)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "using default wa settings")
	}
	sess := session.New(wa)
	sessions := session.NewRepository(dbClient.DB())

	catalogSvc, err := catalog.NewService(catalog.ServiceParams{
		API:      client,
		Session:  sess,
		Store:    sessions,
		Branches: cfg.Branch,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(auth.ServiceParams{
		API:      client,
		Session:  sess,
		Catalog:  catalogSvc,
		Remember: sessions,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	notifySvc, err := notifications.NewService(prober, logg)
	if err != nil {
		return err
	}
	studentSvc, err := students.NewService(students.ServiceParams{
		API:           client,
		Session:       sess,
		Notifications: notifySvc,
		Logger:        logg,
	})
	if err != nil {
		return err
	}
	uploadSvc, err := uploads.NewService(client, prober, logg)
	if err != nil {
		return err
	}
	reservationSvc, err := reservations.NewService(reservations.ServiceParams{
		API:      client,
		Prober:   prober,
		Session:  sess,
		Items:    catalogSvc,
		Uploads:  uploadSvc,
		Students: studentSvc,
		Logger:   logg,
		Metrics:  opMetrics,
	})
	if err != nil {
		return err
	}
	transferSvc, err := transfers.NewService(transfers.ServiceParams{API: client, Session: sess, Logger: logg})
	if err != nil {
		return err
	}
	availability, err := inventory.NewCache(inventory.CacheParams{
		API:     client,
		Session: sess,
		Store:   availabilityStore,
		Logger:  logg,
		Metrics: opMetrics,
	})
	if err != nil {
		return err
	}
	defer availability.Wait()

	if restored, ok, err := authSvc.Restore(ctx); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "could not restore remembered session")
	} else if ok {
		logg.Info(logg.WithFields(ctx, map[string]any{"username": restored.Username, "branch": restored.Branch.Code}), "remembered session restored")
	}

	addr := cfg.App.Addr()
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			Gatherer:     reg,
			Ready:        ready,
			Session:      sess,
			Auth:         authSvc,
			Catalog:      catalogSvc,
			Settings:     settingsSvc,
			Students:     studentSvc,
			Reservations: reservationSvc,
			Transfers:    transferSvc,
			Availability: availability,
			Cart:         cart.New(availability),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr}), "starting admin server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down admin server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
