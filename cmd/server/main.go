package main // Entry point package

import (
    "context"
    "errors"
    "log" // only used before the zap logger exists
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/go-co-op/gocron/v2"
    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"

    "github.com/iliyamo/seat-inventory/internal/config"
    "github.com/iliyamo/seat-inventory/internal/database"
    "github.com/iliyamo/seat-inventory/internal/handler"
    "github.com/iliyamo/seat-inventory/internal/logger"
    "github.com/iliyamo/seat-inventory/internal/middleware"
    "github.com/iliyamo/seat-inventory/internal/queue"
    "github.com/iliyamo/seat-inventory/internal/repository"
    "github.com/iliyamo/seat-inventory/internal/router"
    "github.com/iliyamo/seat-inventory/internal/scheduler"
    "github.com/iliyamo/seat-inventory/internal/service"
)

func main() {
    // A missing .env is fine: the environment may already be set.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config
    zl, err := logger.New(cfg.Env)
    if err != nil {
        log.Fatalf("logger: %v", err)
    }
    defer func() { _ = zl.Sync() }()

    db, err := database.Open(database.Options{
        User: cfg.DBUser,
        Pass: cfg.DBPass,
        Host: cfg.DBHost,
        Port: cfg.DBPort,
        Name: cfg.DBName,
    })
    if err != nil {
        zl.Fatal("open database", zap.Error(err))
    }
    defer db.Close()
    if cfg.DBMigrate {
        if err := database.Migrate(context.Background(), db); err != nil {
            zl.Fatal("migrate", zap.Error(err))
        }
        zl.Info("schema applied")
    }

    // Redis is optional: without it there is no cache, no rate limit and
    // no job lock.
    rdb := config.NewRedisClient(config.LoadRedisConfig())
    if rdb == nil {
        zl.Warn("redis unavailable; cache, rate limit and job lock disabled")
    } else {
        defer rdb.Close()
    }

    opts, err := service.ConfigOptions(cfg.Inventory)
    if err != nil {
        zl.Fatal("inventory config", zap.Error(err))
    }
    opts = append(opts, service.WithLogger(zl))

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if cfg.Events.Enabled {
        pub := queue.NewPublisher(cfg.Events.URL, zl)
        defer pub.Close()
        opts = append(opts, service.WithPublisher(pub))
        if cfg.Events.AuditConsumer {
            audit, err := logger.NewFile(cfg.Events.AuditLogPath)
            if err != nil {
                zl.Fatal("audit log", zap.Error(err))
            }
            go func() {
                if err := queue.StartAuditConsumer(ctx, cfg.Events.URL, audit, zl); err != nil && !errors.Is(err, context.Canceled) {
                    zl.Error("audit consumer stopped", zap.Error(err))
                }
            }()
        }
    }

    store := repository.NewMySQLStore(db)
    inv := service.NewInventory(store, opts...)
    res := service.NewReservationManager(store, opts...)
    book := service.NewBookingCommitter(store, opts...)
    rec := service.NewReconciler(store, opts...)

    // With several replicas the Redis lock keeps each tick on one instance.
    var locker gocron.Locker
    if rdb != nil {
        locker = scheduler.NewRedisLocker(rdb, "seatinv:lock", time.Minute)
    }
    sched, err := scheduler.Start(cfg.Jobs, scheduler.Jobs{Sweeper: res, Pending: book, Reconcile: rec}, locker, zl)
    if err != nil {
        zl.Fatal("scheduler", zap.Error(err))
    }

    e := echo.New() // Create Echo instance
    e.HideBanner = true
    e.Validator = handler.NewRequestValidator()
    e.Use(echomw.Recover())
    e.Use(echomw.RequestID())
    e.Use(middleware.RequestLogger(zl))

    cacheCfg := config.LoadCacheConfig()
    h := router.Handlers{
        Inventory: handler.NewInventoryHandler(inv, func(ctx context.Context) {
            if rdb == nil || !cacheCfg.Enabled {
                return
            }
            n, err := middleware.PurgeCache(ctx, cacheCfg, rdb)
            if err != nil {
                zl.Warn("purge layout cache", zap.Error(err))
                return
            }
            zl.Debug("layout cache purged", zap.Int64("keys", n))
        }),
        Reservations: handler.NewReservationHandler(res),
        Bookings:     handler.NewBookingHandler(book),
        Sync:         handler.NewSyncHandler(rec),
        Ready:        handler.Ready(db),
        JWTSecret:    cfg.JWTSecret,
    }
    if rdb != nil {
        h.LayoutCache = middleware.NewRedisCache(cacheCfg, rdb, zl)
        h.RateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl)
    }
    router.RegisterRoutes(e, h) // Register application routes

    addr := ":" + cfg.Port // Address string with port
    go func() {
        zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            zl.Fatal("server", zap.Error(err))
        }
    }()

    <-ctx.Done()
    zl.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        zl.Error("http shutdown", zap.Error(err))
    }
    if err := sched.Shutdown(); err != nil {
        zl.Error("scheduler shutdown", zap.Error(err))
    }
}
