package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // loads .env files into the environment
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/gatewise/checkin-engine/internal/config"
    "github.com/gatewise/checkin-engine/internal/database"
    "github.com/gatewise/checkin-engine/internal/engine"
    "github.com/gatewise/checkin-engine/internal/handler"
    "github.com/gatewise/checkin-engine/internal/middleware"
    "github.com/gatewise/checkin-engine/internal/queue"
    "github.com/gatewise/checkin-engine/internal/repository"
    "github.com/gatewise/checkin-engine/internal/router"
)

func main() {
    if err := godotenv.Load(); err != nil {
        log.Println("no .env file found, relying on process environment")
    }
    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connect failed: %v", err)
    }
    defer db.Close()

    // Storage layer: registry, ledger and device repo all share the pool.
    tickets := repository.NewTicketRepo(db)
    ledger := repository.NewLedgerRepo(db)
    devices := repository.NewDeviceRepo(db)

    // The engine is the single decision path for live scans, offline
    // batches and overrides alike.
    eng := engine.New(tickets, ledger)

    sessions := handler.NewSessionHandler(cfg, devices)
    validate := handler.NewValidateHandler(eng)
    validate.Publish = handler.PublishAcceptedEvent
    admin := handler.NewTicketAdminHandler(tickets)

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterSession(e, sessions)

    // Rate limiting degrades gracefully: with no Redis the middleware is
    // a pass-through and validation keeps working.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable, rate limiting disabled")
    }
    limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    router.RegisterValidation(e, validate, admin, cfg.JWTSecret, limiter)

    // Background consumer mirrors accepted check-ins into the audit log.
    go func() {
        if err := queue.StartCheckinConsumer(); err != nil {
            log.Printf("checkin consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port                                // Address string with port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err) // Log and exit if server fails
    }
}
