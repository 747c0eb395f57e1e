package main

import (
	"collection-route-service/internal/adapters/cache"
	"collection-route-service/internal/adapters/notify"
	"collection-route-service/internal/adapters/oracle"
	"collection-route-service/internal/adapters/repositories"
	"collection-route-service/internal/api"
	"collection-route-service/internal/config"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/db"
	"collection-route-service/internal/platform/logger"
	"collection-route-service/internal/platform/metrics"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// app is the composition root: concrete adapters (SQL store, OSRM, caches, MQTT)
// are wired behind ports and handed to the services and the HTTP router.
type app struct {
	cfg        *config.Config
	log        logger.Logger
	db         *sql.DB
	redis      *redis.Client
	dispatcher *notify.Dispatcher
	mqtt       *notify.MQTTSender
	checker    *services.Checker
	srv        *http.Server
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg, log: logger.New("main")}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	obs.SetLogger(logger.New("obs"))

	a.db, err = db.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	dialect, err := repositories.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	if err := repositories.InitSchema(a.db, dialect); err != nil {
		return nil, err
	}
	store := repositories.NewSQLStore(a.db, dialect)

	threshold := repositories.NewThresholdSetting(store, cfg.Dispatch.DefaultThreshold)
	if err := threshold.EnsureDefault(ctx); err != nil {
		return nil, err
	}
	if cfg.Database.SeedPath != "" {
		if err := seedOnce(ctx, store, cfg.Database.SeedPath); err != nil {
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if err := obs.Register(reg); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	osrm, err := oracle.NewOSRMClient(oracle.Options{
		BaseURL:       cfg.Oracle.BaseURL,
		Profile:       cfg.Oracle.Profile,
		HealthTimeout: cfg.Oracle.HealthTimeout,
		RouteTimeout:  cfg.Oracle.RouteTimeout,
		TripTimeout:   cfg.Oracle.TripTimeout,
	}, logger.New("osrm"))
	if err != nil {
		return nil, err
	}
	routing, err := a.wrapCache(ctx, osrm, dialect)
	if err != nil {
		return nil, err
	}

	endpoints, err := config.NewStaticEndpoints(cfg.Endpoints)
	if err != nil {
		return nil, err
	}

	senders := []notify.Sender{notify.LogSender{Log: logger.New("events")}}
	if cfg.Notify.MQTT.Enabled {
		a.mqtt, err = notify.NewMQTTSender(notify.MQTTOptions{
			Broker:      cfg.Notify.MQTT.Broker,
			ClientID:    cfg.Notify.MQTT.ClientID,
			Username:    cfg.Notify.MQTT.Username,
			Password:    cfg.Notify.MQTT.Password,
			TopicPrefix: cfg.Notify.MQTT.TopicPrefix,
			QoS:         cfg.Notify.MQTT.QoS,
		}, logger.New("mqtt"))
		if err != nil {
			return nil, err
		}
		senders = append(senders, a.mqtt)
	}
	a.dispatcher = notify.NewDispatcher(cfg.Notify.Buffer, logger.New("notify"), rec, senders...)

	sequencer := services.NewRouteSequencer(routing, endpoints, cfg.Dispatch.SequencerConcurrency, logger.New("sequencer"), rec)
	lc := services.NewLifecycle(services.LifecycleDeps{
		Store:     store,
		Config:    threshold,
		Sequencer: sequencer,
		Sink:      a.dispatcher,
		Log:       logger.New("lifecycle"),
		Metrics:   rec,
	})
	intake := services.NewIntake(store, lc, logger.New("intake"))
	drivers := services.NewDriverRegistry(store, nil)
	a.checker = services.NewChecker(lc, cfg.Dispatch.CheckInterval, logger.New("checker"))

	probe, err := endpoints.Endpoints(domain.ZoneA)
	if err != nil {
		return nil, err
	}

	router := api.NewRouter(api.Deps{
		Lifecycle: lc,
		Intake:    intake,
		Drivers:   drivers,
		Threshold: threshold,
		OracleProbe: func(ctx context.Context) error {
			return osrm.Health(ctx, probe.Depot)
		},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Log:     logger.New("http"),
	})

	// Timeouts are tuned for cold-cache trip optimisation (external API latency).
	a.srv = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	return a, nil
}

// wrapCache puts the configured route cache in front of the oracle.
func (a *app) wrapCache(ctx context.Context, next ports.RoutingOracle, dialect repositories.Dialect) (ports.RoutingOracle, error) {
	c := a.cfg.Cache
	switch c.Backend {
	case "none":
		return next, nil
	case "redis":
		client, err := cache.DialRedis(ctx, c.RedisAddr, c.RedisDB)
		if err != nil {
			return nil, err
		}
		a.redis = client
		return oracle.NewCachedOracle(next, cache.NewRedisRouteCache(client, c.TTL), logger.New("route-cache")), nil
	default:
		sqlCache := cache.NewSQLRouteCache(a.db, dialect == repositories.DialectPostgres, c.TTL)
		return oracle.NewCachedOracle(next, sqlCache, logger.New("route-cache")), nil
	}
}

// seedOnce loads demo data into an empty database and leaves a populated one alone.
func seedOnce(ctx context.Context, store *repositories.SQLStore, path string) error {
	existing, err := store.ListIncidents(ctx, ports.IncidentFilter{})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	seed, err := repositories.LoadSeed(path)
	if err != nil {
		return err
	}
	return seed.Apply(ctx, store, time.Now().UTC())
}

// Run serves HTTP and the background workers until ctx is cancelled, then drains them.
func (a *app) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	// The dispatcher outlives ctx so queued events drain after Close.
	go func() {
		defer wg.Done()
		a.dispatcher.Run(context.WithoutCancel(ctx))
	}()
	go func() {
		defer wg.Done()
		a.checker.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("Server listening addr=%s", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		a.log.Errorf("http shutdown: %v", err)
	}

	a.dispatcher.Close()
	wg.Wait()
	a.log.Infof("stopped")
	return serveErr
}

func (a *app) Close() {
	if a.mqtt != nil {
		a.mqtt.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Errorf("redis close: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Errorf("db close: %v", err)
		}
	}
}
