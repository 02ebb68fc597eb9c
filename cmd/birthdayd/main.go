// Command birthdayd keeps a birthday record store warm and periodically
// announces whose birthday is today and whose is coming up. It is the
// standalone companion to embedding the library directly in a game server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	birthday "github.com/GalaxyPoke/PlayerBirthdayPerks"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "birthdayd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return err
	}

	store, err := birthday.NewStore(cfg.storeConfig())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = store.Initialize(initCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("initialize %s store: %w", store.Backend(), err)
	}

	var opts []birthday.ServiceOption
	if cfg.Cache.TTL > 0 {
		opts = append(opts, birthday.WithCacheTTL(cfg.Cache.TTL))
	}
	if cfg.Cache.MaxSize > 0 {
		opts = append(opts, birthday.WithCacheMaxSize(cfg.Cache.MaxSize))
	}
	opts = append(opts, birthday.WithObserver(slogObserver(logger)))

	svc := birthday.NewService(store, opts...)
	defer svc.Close()

	logger.Info("birthdayd started",
		slog.String("backend", string(store.Backend())),
		slog.Duration("announce_interval", cfg.Announce.Interval),
		slog.Int("upcoming_days", cfg.rules().UpcomingDays),
	)

	announce(ctx, logger, svc, cfg.rules())

	ticker := time.NewTicker(cfg.Announce.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			announce(ctx, logger, svc, cfg.rules())
		}
	}
}

// announce logs today's birthdays and the upcoming horizon. Query failures
// are logged and retried on the next tick rather than ending the process.
func announce(ctx context.Context, logger *slog.Logger, svc *birthday.Service, rules birthday.Rules) {
	now := time.Now().UTC()

	today, err := svc.Store().FindByMonthDay(ctx, now.Month(), now.Day())
	if err != nil {
		logger.Error("today lookup failed", slog.Any("error", err))
		return
	}
	for _, rec := range today {
		logger.Info("birthday today",
			slog.String("id", rec.ID.String()),
			slog.String("name", rec.DisplayName),
			slog.Int("age", rec.Age(now)),
			slog.Bool("claimed", rec.HasClaimedThisYear(now)),
		)
	}

	upcoming, err := svc.Store().FindUpcoming(ctx, rules.UpcomingDays, now)
	if err != nil {
		logger.Error("upcoming lookup failed", slog.Any("error", err))
		return
	}
	for _, rec := range upcoming {
		logger.Info("birthday upcoming",
			slog.String("id", rec.ID.String()),
			slog.String("name", rec.DisplayName),
			slog.Int("days_until", rec.DaysUntilBirthday(now)),
		)
	}
	logger.Debug("announce pass complete",
		slog.Int("today", len(today)),
		slog.Int("upcoming", len(upcoming)),
	)
}

func newLogger(level string, pretty bool) (*slog.Logger, error) {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return nil, err
	}
	if pretty {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// slogObserver logs record operations; errors surface at warn, everything
// else at debug.
func slogObserver(logger *slog.Logger) birthday.Observer {
	return birthday.ObserverFunc(func(ctx context.Context, op string, id uuid.UUID, hit bool, err error, dur time.Duration, backend birthday.Backend) {
		if err != nil {
			logger.WarnContext(ctx, "record op failed",
				slog.String("op", op),
				slog.String("id", id.String()),
				slog.String("backend", string(backend)),
				slog.Any("error", err),
			)
			return
		}
		logger.DebugContext(ctx, "record op",
			slog.String("op", op),
			slog.String("id", id.String()),
			slog.Bool("cache_hit", hit),
			slog.Duration("duration", dur),
		)
	})
}
