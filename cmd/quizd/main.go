package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/activity"
	"github.com/mind-engage/mindengage-quiz/internal/analytics"
	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/cache"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/journal"
	"github.com/mind-engage/mindengage-quiz/internal/logging"
	"github.com/mind-engage/mindengage-quiz/internal/metrics"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

func main() {
	cfg := config.Load()
	log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer log.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Journal ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	jr, closeJournal, err := journal.Open(ctx, cfg.JournalDriver, cfg.JournalDSN)
	if err != nil {
		log.Fatal("journal open failed", zap.Error(err))
	}
	defer closeJournal()

	// --- Upstream services ---
	act := activity.New(activity.Config{
		BaseURL:       cfg.ActivityBaseURL,
		Timeout:       cfg.HTTPTimeout,
		TokenURL:      cfg.OAuthTokenURL,
		ClientID:      cfg.OAuthClientID,
		ClientSecret:  cfg.OAuthClientSecret,
		RatePerSecond: cfg.RateLimitRPS,
		Burst:         5,
		Observer:      m,
	})
	an := analytics.New(analytics.Config{BaseURL: cfg.AnalyticsBaseURL, Timeout: cfg.HTTPTimeout, Observer: m})

	var source session.QuizSource = act
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, quiz cache will fall through", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		source = cache.NewQuizCache(act, rdb, cfg.QuizCacheTTL, log.Named("cache"))
	}

	sessions := api.NewRegistry(func() *session.Session {
		return session.New(source, act, act,
			session.WithJournal(jr),
			session.WithLogger(log.Named("session")))
	}, m, api.WithIdleTTL(cfg.SessionIdleTTL), api.WithCompletedTTL(cfg.SessionCompletedTTL))

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.SessionSweepEvery > 0 {
		go sessions.RunSweeper(sweepCtx, cfg.SessionSweepEvery, func(n int) {
			log.Debug("evicted sessions", zap.Int("count", n), zap.Int("open_sessions", sessions.Len()))
		})
	}

	r := api.NewRouter(api.RouterOptions{
		Sessions:    &api.SessionAPI{Sessions: sessions, Journal: jr, Metrics: m, Log: log},
		Catalog:     &api.CatalogAPI{Activities: act, Analytics: an},
		Metrics:     m,
		Log:         log.Named("http"),
		CORSOrigins: cfg.CORSOrigins,
		Ready: func() error {
			if rdb == nil {
				return nil
			}
			pctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return rdb.Ping(pctx).Err()
		},
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("activity", cfg.ActivityBaseURL),
			zap.String("journal", cfg.JournalDriver),
			zap.Bool("cache", rdb != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	stopSweep()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("stopped", zap.Int("open_sessions", sessions.Len()))
}
