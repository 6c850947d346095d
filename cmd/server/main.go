package main // Entry point package

import (
    "context"   // shutdown deadline
    "errors"    // errors.Is for server close
    "net/http"  // http.ErrServerClosed
    "os"        // signal channel
    "os/signal" // graceful shutdown on SIGINT/SIGTERM
    "syscall"   // SIGTERM
    "time"      // shutdown timeout

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/labstack/gommon/log"

    "github.com/iliyamo/flight-seat-reservation/internal/booking"    // transaction coordinator
    "github.com/iliyamo/flight-seat-reservation/internal/config"     // Internal config loader
    "github.com/iliyamo/flight-seat-reservation/internal/database"   // MySQL connection
    "github.com/iliyamo/flight-seat-reservation/internal/handler"    // HTTP handlers
    "github.com/iliyamo/flight-seat-reservation/internal/middleware" // cache and rate limit
    "github.com/iliyamo/flight-seat-reservation/internal/queue"      // audit consumer
    "github.com/iliyamo/flight-seat-reservation/internal/repository" // SQL repositories
    "github.com/iliyamo/flight-seat-reservation/internal/router"     // Internal router setup
    "github.com/iliyamo/flight-seat-reservation/internal/service"    // use cases and publisher
)

func main() {
    _ = godotenv.Load() // a missing .env is fine outside local development

    cfg := config.Load() // Load environment config
    logger := config.NewLogger("flight-seat-reservation", cfg.LogLevel)

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        logger.Fatalj(log.JSON{"msg": "database unavailable", "error": err.Error()})
    }
    defer db.Close()

    // Redis is optional; a nil client turns cache and rate limit into pass-through.
    rdb := config.NewRedisClient(config.LoadRedisConfig())
    if rdb == nil {
        logger.Warnj(log.JSON{"msg": "redis unreachable, cache and rate limit disabled"})
    } else {
        defer rdb.Close()
    }

    bookingCfg := config.LoadBookingConfig()
    queueCfg := config.LoadQueueConfig()

    // ---- Repositories and booking ----
    flights := repository.NewFlightRepo(db)
    fares := repository.NewFareRepo(db)
    reservations := repository.NewReservationRepo(db)
    users := repository.NewUserRepo(db)

    coordinator := booking.NewCoordinator(
        booking.NewSQLStore(db, flights, fares, reservations),
        booking.WithRetryPolicy(booking.RetryPolicy{
            MaxAttempts:    bookingCfg.MaxAttempts,
            BaseDelay:      bookingCfg.BackoffBase,
            MaxDelay:       bookingCfg.BackoffMax,
            AttemptTimeout: bookingCfg.AttemptTimeout,
        }),
        booking.WithAutoConfirm(bookingCfg.AutoConfirm),
        booking.WithSeatAllocator(booking.NewSeatAllocator(booking.SeatLayout{
            Letters: bookingCfg.SeatLetters,
            MaxRows: bookingCfg.MaxRows,
        })),
        booking.WithLogger(config.NewLogger("booking", cfg.LogLevel)),
    )

    // ---- Events ----
    var publisher service.Publisher // stays nil when publishing is disabled
    if queueCfg.PublishEnabled {
        p := service.NewAMQPPublisher(queueCfg.URL, config.NewLogger("publisher", cfg.LogLevel))
        defer p.Close()
        publisher = p
    }
    svc := service.NewReservationService(users, coordinator, reservations, publisher, logger)

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if queueCfg.ConsumerEnabled {
        consumer := queue.NewAuditConsumer(queueCfg.URL, queueCfg.LogDir, config.NewLogger("audit-consumer", cfg.LogLevel))
        go func() {
            if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
                logger.Errorj(log.JSON{"msg": "audit consumer stopped", "error": err.Error()})
            }
        }()
    }

    // ---- HTTP ----
    e := echo.New() // Create Echo instance
    e.HideBanner = true
    e.Logger.SetLevel(config.ParseLogLevel(cfg.LogLevel))
    e.Use(echomw.Recover())
    e.Use(echomw.RequestID())

    router.RegisterRoutes(e, db) // Register health checks
    router.RegisterPublic(e,
        handler.NewFlightHandler(flights, fares),
        middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
    router.RegisterReservations(e,
        handler.NewReservationHandler(svc),
        cfg.JWTSecret,
        middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    addr := ":" + cfg.Port // Address string with port
    go func() {
        logger.Infoj(log.JSON{"msg": "listening", "addr": addr, "env": cfg.Env})
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logger.Fatalj(log.JSON{"msg": "server failed", "error": err.Error()})
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        logger.Errorj(log.JSON{"msg": "shutdown", "error": err.Error()})
    }
}
