package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	inhttp "github.com/medibook/booking-slots-service/internal/adapters/in/http"
	inrabbitmq "github.com/medibook/booking-slots-service/internal/adapters/in/rabbitmq"
	"github.com/medibook/booking-slots-service/internal/adapters/out/cache"
	"github.com/medibook/booking-slots-service/internal/adapters/out/logger"
	"github.com/medibook/booking-slots-service/internal/adapters/out/postgres"
	outrabbitmq "github.com/medibook/booking-slots-service/internal/adapters/out/rabbitmq"
	"github.com/medibook/booking-slots-service/internal/config"
	"github.com/medibook/booking-slots-service/internal/core/ports/out"
	"github.com/medibook/booking-slots-service/internal/core/services"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера с таймзоной
	mainLogger, err := logger.NewConsoleLogger(cfg.App.Timezone)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := mainLogger.WithModule("Main")

	logger.Info("app.starting", out.LogFields{
		"version":         cfg.App.Version,
		"env":             cfg.App.Env,
		"timezone":        cfg.App.Timezone,
		"rabbitmqEnabled": cfg.RabbitMQ.Enabled,
		"cacheEnabled":    cfg.Cache.Enabled,
	})

	// Настройка Gin в зависимости от окружения
	if cfg.IsNotLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Подключение к Postgres и авто-миграция
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		logger.Error("app.postgres.init_failed", out.LogFields{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		logger.Error("app.postgres.migrate_failed", out.LogFields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Инициализация адаптеров
	scheduleStore := postgres.NewScheduleStoreAdapter(pool, logger.WithModule("ScheduleStoreAdapter"))
	bookingLedger := postgres.NewBookingLedgerAdapter(pool, logger.WithModule("BookingLedgerAdapter"))

	var cacheAdapter out.CachePort
	if cfg.Cache.Enabled {
		templateCache, err := cache.NewTemplateCacheAdapter(cfg, logger.WithModule("TemplateCacheAdapter"))
		if err != nil {
			logger.Error("app.cache.init_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		cacheAdapter = templateCache
	}

	var eventsAdapter out.EventPublisherPort
	if cfg.RabbitMQ.Enabled {
		publisher, err := outrabbitmq.NewEventPublisherAdapter(cfg, logger.WithModule("EventPublisherAdapter"))
		if err != nil {
			logger.Error("app.rabbitmq.publisher_init_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		eventsAdapter = publisher
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("app.rabbitmq.publisher_close_failed", out.LogFields{
					"error": err.Error(),
				})
			}
		}()
	}

	// Инициализация сервиса
	bookingService := services.NewBookingService(
		scheduleStore,
		bookingLedger,
		cacheAdapter,
		eventsAdapter,
		logger.WithModule("BookingService"),
		cfg,
	)

	// Настройка HTTP сервера
	router := gin.Default()
	controller := inhttp.NewBookingController(bookingService, cfg)
	controller.RegisterRoutes(router)

	// Слушатель изменений расписаний только если включен RabbitMQ и кэш
	if cfg.RabbitMQ.Enabled && cfg.Cache.Enabled {
		listener, err := inrabbitmq.NewScheduleChangeListener(
			cacheAdapter,
			cfg,
			logger.WithModule("ScheduleChangeListener"),
		)
		if err != nil {
			logger.Error("app.rabbitmq.init_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}

		if err := listener.Start(ctx); err != nil {
			logger.Error("app.rabbitmq.start_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}

		defer func() {
			if err := listener.Stop(); err != nil {
				logger.Error("app.rabbitmq.stop_failed", out.LogFields{
					"error": err.Error(),
				})
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("app.http.starting", out.LogFields{
			"host": cfg.HTTP.Host,
			"port": cfg.HTTP.Port,
		})

		if err := router.Run(cfg.HTTP.Host + ":" + cfg.HTTP.Port); err != nil {
			logger.Error("app.http.failed", out.LogFields{
				"error": err.Error(),
			})
			sigChan <- syscall.SIGTERM
		}
	}()

	sig := <-sigChan
	logger.Info("app.shutdown.initiated", out.LogFields{
		"signal": sig.String(),
	})
}
