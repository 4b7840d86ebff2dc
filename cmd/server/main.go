package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"simutu-ng/internal/access"
	"simutu-ng/internal/activity"
	"simutu-ng/internal/cache"
	"simutu-ng/internal/config"
	"simutu-ng/internal/database"
	"simutu-ng/internal/entries"
	"simutu-ng/internal/entrycode"
	"simutu-ng/internal/handlers"
	"simutu-ng/internal/pdca"
	"simutu-ng/internal/reports"
	"simutu-ng/internal/retry"
	"simutu-ng/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := database.Init(cfg.DBDSN, database.Options{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		SeedDemo:      cfg.SeedDemo,
		Logger:        logger,
	})

	rdb, err := cache.Connect(ctx, cfg.RedisAddress)
	if err != nil {
		logger.Fatalf("redis error: %v", err)
	}
	if rdb == nil {
		logger.Warn("REDIS_ADDRESS is empty, report cache and cleanup lock are disabled")
	} else {
		defer rdb.Close()
	}

	entryStore := database.NewEntryStore(db)
	resolver := access.NewResolver(database.NewHierarchyStore(db))
	activityLog := activity.NewLogger(database.NewActivityRepo(db), logger)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.EntryCodeMaxRetries
	codes := entrycode.New(entryStore, retryCfg, logger)

	reportOpts := []reports.Option{reports.WithSlowThreshold(cfg.ReportSlowThreshold)}
	var entryOpts []entries.Option
	cleanup := &activity.CleanupTask{
		Repo:      database.NewActivityRepo(db),
		Retention: cfg.ActivityLogRetention,
		Interval:  cfg.ActivityCleanupInterval,
		Logger:    logger,
	}
	if rdb != nil {
		reportCache := cache.NewReportCache(rdb, cfg.ReportCacheTTL)
		reportOpts = append(reportOpts, reports.WithCache(reportCache))
		entryOpts = append(entryOpts, entries.WithReportInvalidator(reportCache))
		cleanup.Locker = cache.NewLocker(rdb)
	}

	users := database.NewUserStore(db)
	h := handlers.New(handlers.Deps{
		Entries:  entries.NewService(entryStore, resolver, codes, activityLog, logger, entryOpts...),
		Reports:  reports.NewReporter(database.NewReportStore(db), resolver, logger, reportOpts...),
		PDCA:     pdca.NewService(database.NewPDCAStore(db), resolver, activityLog),
		Users:    users,
		Activity: activityLog,
		Logger:   logger,
	})

	go cleanup.Run(ctx)

	r := server.NewRouter(cfg, h, users, logger)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
