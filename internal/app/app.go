package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ratecache/internal/adapters/cache"
	"ratecache/internal/adapters/httpclient"
	"ratecache/internal/adapters/postgres"
	"ratecache/internal/api"
	"ratecache/internal/config"
	"ratecache/internal/conversion"
	"ratecache/internal/platform/db"
	httpserver "ratecache/internal/platform/http"
	"ratecache/internal/rate"
	"ratecache/internal/rate/handler"

	nethttp "net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Run wires the application components, starts the conversion worker and
// the HTTP server, and blocks until shutdown.
func Run() error {
	appCfg, err := config.Init()
	if err != nil {
		return err
	}
	// Logger
	logrus.SetOutput(os.Stdout)
	cfgLevel := appCfg.Logging.Level
	if parsedLvl, parseErr := logrus.ParseLevel(cfgLevel); parseErr != nil {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(parsedLvl)
	}
	logrus.Info("✅ Config initialization successful")

	// Root context bound to OS signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bounded context for startup operations (DB connect, initial reads)
	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// DB pool
	pool, err := db.CreatePoolAndPing(startupCtx, appCfg.DbServer)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to db")
		return err
	}
	defer pool.Close()
	logrus.Info("✅ Postgres connection successful")

	// Load supported currencies codes
	supportedCodes, err := loadSupportedCodes(startupCtx, pool)
	if err != nil || len(supportedCodes) == 0 {
		if err == nil {
			err = errors.New("no supported currencies available")
		}
		logrus.WithError(err).Error("Failed to load supported currencies")
		return err
	}
	logrus.Info("✅ Supported currencies loaded")

	// Repositories
	rateRepo := postgres.NewRateRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	settingsRepo := postgres.NewSettingsRepository(pool)

	// Base currency: the settings table wins over the config default
	baseCode := appCfg.Cache.BaseCurrency
	if stored, loadErr := settingsRepo.BaseCurrency(startupCtx); loadErr == nil {
		baseCode = stored
	} else if !errors.Is(loadErr, postgres.ErrSettingNotFound) {
		logrus.WithError(loadErr).Error("Failed to load base currency setting")
		return loadErr
	}
	if _, ok := supportedCodes[baseCode]; !ok {
		return fmt.Errorf("base currency %q is not in the supported set", baseCode)
	}
	baseCurrency := rate.NewBaseCurrency(baseCode)
	logrus.Infof("✅ Base currency is %s", baseCode)

	// Fast in-memory layer
	fastCache, err := cache.NewRateCache(
		appCfg.Cache.FastMaxItems,
		time.Duration(appCfg.Cache.FastTTLMinutes)*time.Minute,
	)
	if err != nil {
		logrus.WithError(err).Error("Failed to create fast rate cache")
		return err
	}
	defer fastCache.Close()

	// External client
	if appCfg.ExternalAPI.APIKey == "" {
		return fmt.Errorf("external api key is required")
	}
	httpTimeout := time.Duration(appCfg.ExternalAPI.TimeoutSeconds) * time.Second
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}
	rateSource := httpclient.NewCurrencyAPIClient(
		&nethttp.Client{Timeout: httpTimeout},
		appCfg.ExternalAPI.BaseURL,
		appCfg.ExternalAPI.APIKey,
	)

	// Core components
	lockRegistry := rate.NewLockRegistry()
	rateCache := rate.NewCache(
		rateRepo, taskRepo, rateSource, fastCache, lockRegistry, baseCurrency, supportedCodes,
		time.Duration(appCfg.Cache.TTLHours)*time.Hour,
		time.Duration(appCfg.Cache.RebaseWaitSeconds)*time.Second,
	)

	taskQueue := conversion.NewQueue()
	conversionSvc := conversion.NewService(
		taskRepo, rateRepo, settingsRepo, baseCurrency, fastCache, taskQueue, supportedCodes,
	)

	// Conversion worker: starts draining only once startup has finished.
	ready := make(chan struct{})
	worker := conversion.NewWorker(
		taskQueue, taskRepo, conversionSvc, ready,
		time.Duration(appCfg.Worker.PollIntervalMs)*time.Millisecond,
	)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()
	// Cancel before joining: an error return between here and close(ready)
	// would otherwise leave the worker blocked on its startup gate forever.
	defer func() {
		stop()
		<-workerDone
	}()

	// Warm refresh scheduler (optional)
	if appCfg.Scheduler.RefreshIntervalSec > 0 {
		scheduler := rate.NewScheduler(
			rateCache, baseCurrency,
			time.Duration(appCfg.Scheduler.RefreshIntervalSec)*time.Second,
		)
		defer func() {
			if shutDownErr := scheduler.Shutdown(); shutDownErr != nil {
				logrus.Errorf("Scheduler shutdown error: %v", shutDownErr)
			}
		}()
		if startErr := scheduler.Start(ctx); startErr != nil {
			logrus.WithError(startErr).Error("Failed to start scheduler")
			return startErr
		}
		logrus.Info("✅ Warm refresh scheduler activation successful")
	}

	// Handlers and router
	rateHandler := handler.NewHandler(rateCache, conversionSvc, rateSource, supportedCodes)
	router := api.NewRouter(rateHandler)

	// Startup is complete; let the worker run its recovery pass.
	close(ready)

	logrus.Info("Starting http server")
	// Block until context is canceled, then perform graceful shutdown.
	if serverErr := httpserver.Start(ctx, appCfg.HTTPServer, router); serverErr != nil {
		stop()
		logrus.Errorf("HTTP server error: %v", serverErr)
		return serverErr
	}
	return nil
}

// loadSupportedCodes loads supported currencies codes from DB
func loadSupportedCodes(ctx context.Context, pool *pgxpool.Pool) (map[string]struct{}, error) {
	rows, err := pool.Query(ctx, `select code from currencies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]struct{})
	for rows.Next() {
		var c string
		if err = rows.Scan(&c); err != nil {
			return nil, err
		}
		m[c] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
