package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/auditorium-netlock/internal/actuator"
	"github.com/iliyamo/auditorium-netlock/internal/config"
	"github.com/iliyamo/auditorium-netlock/internal/database"
	"github.com/iliyamo/auditorium-netlock/internal/handler"
	"github.com/iliyamo/auditorium-netlock/internal/lock"
	"github.com/iliyamo/auditorium-netlock/internal/middleware"
	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/queue"
	"github.com/iliyamo/auditorium-netlock/internal/registry"
	"github.com/iliyamo/auditorium-netlock/internal/repository"
	"github.com/iliyamo/auditorium-netlock/internal/router"
	"github.com/iliyamo/auditorium-netlock/internal/service"
	"github.com/iliyamo/auditorium-netlock/internal/status"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func run(ctx context.Context, cfg config.Config) error {
	db, err := database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	if cfg.SeedOperatorEmail != "" && cfg.SeedOperatorPassword != "" {
		created, err := users.EnsureUser(ctx, cfg.SeedOperatorEmail, cfg.SeedOperatorPassword, model.RoleOperator, cfg.BcryptCost)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("email", cfg.SeedOperatorEmail).Msg("seeded operator account")
		}
	}

	rooms, err := registry.Load(cfg.RoomsFile)
	if err != nil {
		return err
	}
	act, err := actuator.New(cfg.ActuatorMode, cfg.PlaybookDir)
	if err != nil {
		return err
	}
	store := lockStore(cfg, db)

	var opts []lock.Option
	if cfg.EventsEnabled {
		opts = append(opts, lock.WithPublisher(service.NewLockPublisher(cfg.RabbitURL)))
	}
	mgr := lock.NewManager(rooms, store, act, lock.Config{
		ActuatorTimeout: cfg.ActuatorTimeout,
		SweepInterval:   cfg.SweepInterval,
		MaxDuration:     cfg.MaxDuration(),
	}, opts...)
	if err := mgr.Load(ctx); err != nil {
		return err
	}
	log.Info().
		Int("rooms", rooms.Len()).
		Str("store", cfg.LockStore).
		Str("actuator", cfg.ActuatorMode).
		Bool("events", cfg.EventsEnabled).
		Msg("lock manager ready")

	rdb := connectRedis(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	router.RegisterRoutes(e, mgr)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterRooms(e, handler.NewRoomHandler(rooms, status.New(rooms, store, mgr)), cfg.JWTSecret,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterLocks(e, handler.NewLockHandler(rooms, mgr), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return mgr.Run(gctx) })
	if cfg.EventLogConsumer {
		g.Go(func() error { return queue.StartLockEventConsumer(gctx, cfg.RabbitURL, queue.DefaultLogPath) })
	}
	return g.Wait()
}

func lockStore(cfg config.Config, db *sql.DB) lock.Store {
	if cfg.LockStore == config.StoreMemory {
		log.Warn().Msg("LOCK_STORE=memory: room locks are lost on restart")
		return repository.NewMemoryLockRepo()
	}
	return repository.NewRoomLockRepo(db)
}

// connectRedis returns nil when Redis is unreachable; the server then runs
// without response cache and rate limiting.
func connectRedis(ctx context.Context) *redis.Client {
	rdb, err := config.NewRedisClient(ctx, config.RedisOptions())
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable; cache and rate limit disabled")
		return nil
	}
	return rdb
}
