package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solar-quote/internal/api"
	"solar-quote/internal/config"
	"solar-quote/internal/logger"
	"solar-quote/internal/metrics"
	"solar-quote/internal/quote"
	"solar-quote/internal/refdata"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("SOLARQUOTE_CONFIG"), "Path to server config YAML (optional)")
	flag.Parse()

	cfg, err := config.LoadServer(*cfgPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	engineCfg, err := config.Load(cfg.Engine.File)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var src refdata.Source
	switch cfg.Refdata.Source {
	case "postgres":
		if err := refdata.Migrate(cfg.Postgres.DSN); err != nil {
			return err
		}
		log.Info("migrations applied")

		pool, err := refdata.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info("db connected")
		src = refdata.NewPostgresSource(pool)
	case "yaml", "":
		src = refdata.NewYAMLSource(cfg.Refdata.Dir)
		log.Info("reading reference data from files", "dir", cfg.Refdata.Dir)
	default:
		return errors.New("refdata.source must be yaml or postgres, got " + cfg.Refdata.Source)
	}

	store := refdata.NewStore(src, log, m)
	if _, err := store.Reseed(ctx); err != nil {
		return err
	}

	if cfg.Refdata.ReseedCron != "" {
		sched, err := refdata.NewScheduler(store, cfg.Refdata.ReseedCron, cfg.Refdata.Timezone, log)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	asm, err := quote.New(store, *engineCfg, log, m)
	if err != nil {
		return err
	}

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	deps := api.Deps{
		Assembler:   asm,
		Store:       store,
		Log:         log,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Parallelism: engineCfg.SupplierParallelism,
	}
	if cfg.Metrics.Enabled {
		deps.Gatherer = reg
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr, "snapshot", store.Current().Version)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
	return nil
}
