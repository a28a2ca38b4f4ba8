package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/ethpandaops/evmstore/db"
	"github.com/ethpandaops/evmstore/handlers/api"
	"github.com/ethpandaops/evmstore/handlers/middleware"
	"github.com/ethpandaops/evmstore/metrics"
	"github.com/ethpandaops/evmstore/services"
	"github.com/ethpandaops/evmstore/types"
	"github.com/ethpandaops/evmstore/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file, if empty string defaults will be used")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, *configPath)
	if err != nil {
		logrus.Fatalf("error reading config file: %v", err)
	}
	logWriter, logger := utils.InitLogger(cfg)
	defer logWriter.Dispose()

	logger.WithFields(logrus.Fields{
		"config":  *configPath,
		"version": utils.GetBuildVersion(),
		"engine":  cfg.Database.Engine,
	}).Printf("starting")

	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		utils.LogFatal(err, "error initializing database", 0)
	}
	err = database.ApplyEmbeddedDbSchema(-2)
	if err != nil {
		utils.LogFatal(err, "error initializing db schema", 0)
	}

	ledger := services.NewLevelLedger(logger.WithField("module", "ledger"), database, cfg.Ledger.BlockCacheSize)
	dispatcher := api.NewDispatcher(logger.WithField("module", "api"), ledger)
	if cfg.RateLimit.Enabled {
		dispatcher.SetCallRateLimiter(services.NewCallRateLimiter(ctx, cfg.RateLimit.ProxyCount, cfg.RateLimit.Rate, cfg.RateLimit.Burst))
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled && !cfg.Metrics.Public {
		metricsServer, err = metrics.StartMetricsServer(logger.WithField("module", "metrics"), cfg.Metrics.Host, cfg.Metrics.Port)
		if err != nil {
			logger.Fatalf("error starting metrics server: %v", err)
		}
	}

	webserver, err := startWebserver(logger, cfg, dispatcher)
	if err != nil {
		logger.Fatalf("error starting webserver: %v", err)
	}

	utils.WaitForCtrlC()
	logger.Println("exiting...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	if err := webserver.Shutdown(shutdownCtx); err != nil {
		utils.LogError(err, "error shutting down webserver", 0)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			utils.LogError(err, "error shutting down metrics server", 0)
		}
	}
	if err := database.Close(); err != nil {
		utils.LogError(err, "error closing database", 0)
	}
}

func startWebserver(logger logrus.FieldLogger, cfg *types.Config, dispatcher *api.Dispatcher) (*http.Server, error) {
	router := mux.NewRouter()
	dispatcher.RegisterRoutes(router)

	if cfg.Auth.Secret != "" {
		auth := middleware.NewTokenAuthMiddleware(logger.WithField("module", "auth"), cfg.Auth.Secret, cfg.Auth.RequireAuth, cfg.RateLimit.ProxyCount)
		router.Use(auth.Middleware)
		dispatcher.SetWriteAuth(true)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Public {
		router.Handle("/metrics", metrics.GetMetricsHandler())
	}

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	if cfg.Logging.OutputLevel == "debug" || cfg.Logging.OutputLevel == "trace" {
		n.Use(negroni.NewLogger())
	}
	n.UseHandler(router)

	if cfg.Server.HttpWriteTimeout == 0 {
		cfg.Server.HttpWriteTimeout = time.Second * 15
	}
	if cfg.Server.HttpReadTimeout == 0 {
		cfg.Server.HttpReadTimeout = time.Second * 15
	}
	if cfg.Server.HttpIdleTimeout == 0 {
		cfg.Server.HttpIdleTimeout = time.Second * 60
	}
	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		WriteTimeout: cfg.Server.HttpWriteTimeout,
		ReadTimeout:  cfg.Server.HttpReadTimeout,
		IdleTimeout:  cfg.Server.HttpIdleTimeout,
		Handler:      n,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}

	logger.Printf("http server listening on %v", srv.Addr)
	go func() {
		defer utils.HandleSubroutinePanic("webserver")
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("error serving api")
		}
	}()

	return srv, nil
}
