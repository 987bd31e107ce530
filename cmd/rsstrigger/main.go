package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rsstrigger/internal/api"
	"rsstrigger/internal/config"
	"rsstrigger/internal/feed"
	"rsstrigger/internal/jobs"
	"rsstrigger/internal/metrics"
	"rsstrigger/internal/quiz"
	"rsstrigger/internal/scheduler"
	"rsstrigger/internal/store"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "TOML config file")
		addr      = flag.String("addr", ":3000", "HTTP bind address")
		storeKind = flag.String("store", "file", "storage backend: memory, file, tmp, sqlite, edge-config")
		dataDir   = flag.String("data", "data", "data directory for the file store")
		dbPath    = flag.String("db", "rsstrigger.db", "SQLite DB path")
		idle      = flag.Duration("idle-timeout", store.DefaultIdleTimeout, "memory store idle timeout (0 disables)")
		maxItems  = flag.Int("max-items", feed.DefaultMaxItems, "feed items retained")
		baseURL   = flag.String("base-url", "", "public base URL used in item links")
		logLevel  = flag.String("log-level", "info", "log level")
		logJSON   = flag.Bool("log-json", false, "log as JSON instead of console output")
		noInit    = flag.Bool("no-init", false, "wait for POST /init-scheduler instead of starting jobs at boot")
		debug     = flag.Bool("debug", false, "enable pprof routes")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "store":
			cfg.Store.Kind = *storeKind
		case "data":
			cfg.Store.DataDir = *dataDir
		case "db":
			cfg.Store.SQLitePath = *dbPath
		case "idle-timeout":
			cfg.Store.IdleTimeout = config.Duration{Duration: *idle}
		case "max-items":
			cfg.MaxItems = *maxItems
		case "base-url":
			cfg.BaseURL = *baseURL
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-json":
			cfg.Log.JSON = *logJSON
		}
	})
	cfg.ApplyEnv(os.Getenv)

	setupLogging(cfg.Log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("rsstrigger", reg)

	backend, err := store.Open(cfg.StoreOptions())
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store.Kind).Msg("open store")
	}
	if f, ok := backend.(*store.File); ok {
		log.Info().Str("dir", f.Dir()).Msg("file store")
	}
	backend = store.WithFaultHook(backend, m.StorageFault)
	if c, ok := backend.(io.Closer); ok {
		defer c.Close()
	}

	feedRepo := feed.NewRepository(backend, cfg.BaseURL, cfg.MaxItems)
	jobRepo := jobs.NewRepository(backend)
	sched := scheduler.NewService(feedRepo, jobRepo, m)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	if !*noInit {
		sched.Init(ctx)
	}

	handler := api.NewServer(api.Deps{
		Feed:      feedRepo,
		Jobs:      jobRepo,
		Scheduler: sched,
		Quizzes:   quiz.NewStore(),
		Riddle:    quiz.NewClient(cfg.Riddle.Endpoint, cfg.Riddle.APIKey),
		Metrics:   m,
		Gatherer:  reg,
		BaseURL:   cfg.BaseURL,
		Debug:     *debug,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Str("store", cfg.Store.Kind).
			Str("base_url", cfg.BaseURL).
			Int("max_items", feedRepo.MaxItems()).
			Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")
	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)
	sched.Stop(5 * time.Second)
	cancel()
}

func setupLogging(c config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	if !c.JSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		log.Warn().Str("level", c.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
