package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eve-counter/internal/config"
	"eve-counter/internal/detector"
	"eve-counter/internal/publish"
	"eve-counter/internal/server"
	"eve-counter/internal/state"
	"eve-counter/internal/store"
	"eve-counter/internal/supervisor"
	"eve-counter/internal/window"
	"eve-counter/internal/zkill"

	"github.com/joho/godotenv"
)

// exitNoScope is returned when no corporation or alliance is configured.
const exitNoScope = 2

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	path := os.Getenv("EVE_COUNTER_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	path = config.ConfigPath(os.Args[1:], path)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	config.BindFlags(fs, &cfg)
	_ = fs.Parse(os.Args[1:])

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nshutting down\n", err)
		if errors.Is(err, config.ErrNoScope) {
			os.Exit(exitNoScope)
		}
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.LogLevel)
	scope := cfg.Scope()
	logger.Info("eve-counter starting",
		slog.String("channel", scope.Channel()),
		slog.Duration("lifetime", cfg.Lifetime()),
		slog.Bool("fresh", cfg.Fresh),
		slog.String("redis", cfg.RedisAddr()),
		slog.String("mqtt", publish.BrokerURL(cfg.MQTTHost, cfg.MQTTPort)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// TTL store
	redis := store.NewRedis(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	defer redis.Close()
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := redis.Ping(pingCtx); err != nil {
		logger.Warn("ttl store not reachable yet", slog.String("err", err.Error()))
	}
	cancelPing()
	agg := window.NewAggregate(redis, cfg.Lifetime())

	// Publishing: MQTT, optionally mirrored to the preview server
	mq := publish.NewMQTT(cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTTopic, logger)
	defer mq.Close()
	var pub publish.Publisher = mq

	st := state.NewState()
	var httpSrv *http.Server
	if cfg.HTTPPort > 0 {
		srv := server.NewHTTPServer(cfg, st, logger)
		pub = publish.Tee{Primary: mq, Mirror: srv, Log: logger}
		httpSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler: srv.Router(),
		}
		go func() {
			logger.Info("HTTP server listening", slog.Int("port", cfg.HTTPPort))
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", slog.String("err", err.Error()))
			}
		}()
	}

	det := detector.New(agg, pub, logger)

	// Feed: killmail -> value lookup -> window -> display check
	lookup := zkill.NewClient(cfg.KillAPIURL, cfg.UserAgent, logger)
	consumer := zkill.NewConsumer(scope, lookup, agg, st, logger)
	consumer.OnIngest(det.Trigger)
	feed := zkill.NewListener(cfg.FeedURL, scope.Channel(), consumer, st, logger)

	if err := supervisor.New(cfg, agg, det, feed, logger).Run(ctx); err != nil {
		logger.Error("supervisor stopped", slog.String("err", err.Error()))
	}

	logger.Info("shutting down...")
	if httpSrv != nil {
		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shCancel()
		_ = httpSrv.Shutdown(shCtx)
	}
	logger.Info("bye")
}
