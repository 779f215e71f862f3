package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/prediction-league/internal/app"
	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/observability"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	uptraceShutdown, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	pyroscopeStop, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof server", "error", err)
		os.Exit(1)
	}

	engine, err := app.NewEngine(cfg, logger)
	if err != nil {
		logger.Error("build engine", "error", err)
		os.Exit(1)
	}

	if err := engine.Scheduler.Start(); err != nil {
		logger.Error("start scheduler", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("http server starting", "addr", engine.HTTPServer.Addr)
		if err := engine.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")

	if err := engine.Scheduler.Stop(); err != nil {
		logger.Warn("stop scheduler", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := engine.HTTPServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	if err := observability.StopPprofServer(pprofSrv, logger, 5*time.Second); err != nil {
		logger.Warn("stop pprof server", "error", err)
	}
	if pyroscopeStop != nil {
		if err := pyroscopeStop(); err != nil {
			logger.Warn("stop pyroscope", "error", err)
		}
	}
	if uptraceShutdown != nil {
		if err := uptraceShutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}

	if err := engine.DB.Close(); err != nil {
		logger.Warn("close database", "error", err)
	}

	logger.Info("engine stopped")
}
