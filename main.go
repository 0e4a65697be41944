package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/tylerhoskins/ticketing-platform/config"
	"github.com/tylerhoskins/ticketing-platform/internal/cache"
	"github.com/tylerhoskins/ticketing-platform/internal/handler"
	"github.com/tylerhoskins/ticketing-platform/internal/middleware"
	"github.com/tylerhoskins/ticketing-platform/internal/processor"
	"github.com/tylerhoskins/ticketing-platform/internal/repository"
	"github.com/tylerhoskins/ticketing-platform/internal/service"
	"github.com/tylerhoskins/ticketing-platform/pkg/database"
	"github.com/tylerhoskins/ticketing-platform/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ publisher: intent lifecycle events for downstream consumers.
	// Optional; the queue works without a broker.
	var publisher *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Printf("rabbitmq unavailable, lifecycle events disabled: %v", err)
		} else {
			publisher = p
			defer publisher.Close()
		}
	}

	// Redis: short-TTL cache for the queue stats projection. Optional.
	var statsCache *cache.StatsCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Printf("redis unavailable, stats cache disabled: %v", err)
		} else {
			statsCache = cache.NewStatsCache(client, cfg.StatsCacheTTL)
			defer client.Close()
		}
	}

	// Repositories
	eventRepo := repository.NewEventRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	intentRepo := repository.NewIntentRepository(db)

	// Services
	arrivalClock := service.NewArrivalClock()
	allocator := service.NewInventoryAllocator(db, eventRepo, ticketRepo)
	eventSvc := service.NewEventService(eventRepo, publisher)
	intakeSvc := service.NewIntakeService(intentRepo, eventRepo, arrivalClock, cfg.WaitEstimatePerIntent)
	queueSvc := service.NewQueueService(intentRepo, eventRepo, ticketRepo, statsCache, cfg.WaitEstimatePerIntent)

	// Queue processor
	proc := processor.New(processor.Config{
		TickPeriod:       cfg.TickPeriod,
		BatchSize:        cfg.BatchSize,
		IntentExpiry:     cfg.IntentExpiry,
		PerIntentTimeout: cfg.PerIntentTimeout,
		MaxAttempts:      cfg.MaxAttempts,
		SweeperPeriod:    cfg.SweeperPeriod,
	}, intentRepo, allocator, publisher)
	proc.Start()
	defer proc.Stop()

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "ticketing-platform"})
	})

	api := e.Group("/api/v1/events")
	handler.NewEventHandler(eventSvc, queueSvc).RegisterRoutes(api)
	handler.NewIntentHandler(intakeSvc, queueSvc, proc).RegisterRoutes(e)

	go func() {
		log.Printf("Ticketing Platform starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
