package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/marketdata/internal/marketdata/application"
	"github.com/wyfcoding/marketdata/internal/marketdata/bootstrap"
	"github.com/wyfcoding/marketdata/internal/marketdata/domain"
	"github.com/wyfcoding/marketdata/internal/marketdata/infrastructure/persistence"
	"github.com/wyfcoding/marketdata/internal/marketdata/infrastructure/persistence/mysql"
	persistence_redis "github.com/wyfcoding/marketdata/internal/marketdata/infrastructure/persistence/redis"
	"github.com/wyfcoding/marketdata/internal/marketdata/interfaces/consumer"
	httpserver "github.com/wyfcoding/marketdata/internal/marketdata/interfaces/http"
	"github.com/wyfcoding/marketdata/pkg/cache"
	"github.com/wyfcoding/marketdata/pkg/config"
	"github.com/wyfcoding/marketdata/pkg/db"
	"github.com/wyfcoding/marketdata/pkg/logger"
	"github.com/wyfcoding/marketdata/pkg/metrics"
	"github.com/wyfcoding/marketdata/pkg/mq"
)

var configPath = flag.String("config", "configs/marketdata/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	ctx := context.Background()

	// 3. Metrics
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(); err != nil {
		logger.Fatal(ctx, "failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 4. Database
	database, err := db.Init(db.Config{
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	}, m)
	if err != nil {
		logger.Fatal(ctx, "failed to connect database", "error", err)
	}
	defer database.Close()

	if cfg.Environment == "dev" {
		if err := database.DB.AutoMigrate(&domain.Quote{}, &domain.Candle{}, &domain.Article{}); err != nil {
			logger.Error(ctx, "failed to migrate database", "error", err)
		}
	}

	// 5. Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}, m)
	if err != nil {
		logger.Fatal(ctx, "failed to connect redis", "error", err)
	}
	defer redisCache.Close()

	// 6. Repositories & application service
	quoteStore := mysql.NewQuoteRepository(database.DB)
	quoteCache := persistence_redis.NewQuoteRedisRepository(redisCache.GetClient())
	quotes := persistence.NewCompositeQuoteRepository(quoteStore, quoteCache, logger.Get(), m)
	candles := mysql.NewCandleRepository(database.DB)
	articles := mysql.NewArticleRepository(database.DB)

	service := application.NewMarketDataService(quotes, candles, articles, logger.Get(), m)

	// 7. Kafka producer and consumer handlers
	mqCfg := mq.Config{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		SASLUsername:   cfg.Kafka.SASLUsername,
		SASLPassword:   cfg.Kafka.SASLPassword,
	}
	producer := mq.NewProducer(mqCfg)
	defer producer.Close()
	dlq := mq.NewDeadLetterQueue(producer, cfg.Kafka.DeadLetterTopic)

	priceHandler := consumer.NewMarketPriceHandler(service, dlq, logger.Get())
	newsHandler := consumer.NewNewsHandler(service, dlq, logger.Get())

	// 8. Broker bootstrap: probe, connector, orchestrator
	probe := bootstrap.NewProbe()
	connector := bootstrap.NewKafkaConnector(bootstrap.KafkaConnectorConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.PriceTopic,
		Timeout:      cfg.Bootstrap.ConnectTimeoutDuration(),
		SASLUsername: cfg.Kafka.SASLUsername,
		SASLPassword: cfg.Kafka.SASLPassword,
	})
	orch := bootstrap.New(bootstrap.Config{
		StabilizationWait: cfg.Bootstrap.StabilizationDuration(),
		MaxAttempts:       cfg.Bootstrap.MaxAttempts,
		BackoffBase:       cfg.Bootstrap.BackoffBase(),
		BackoffCap:        cfg.Bootstrap.BackoffCap(),
	}, connector, probe, logger.Get())
	orch.WithMetrics(m)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Each successful connection gets fresh consumers. When any consumer's
	// read loop dies on a broker error, tear the whole session down and
	// let the orchestrator reconnect.
	orch.OnConnected(func(handle bootstrap.Handle) {
		logger.Info(runCtx, "broker connected, starting consumers", "broker", handle.Broker())

		priceConsumer := mq.NewConsumer(mqCfg, cfg.Kafka.PriceTopic, m)
		newsConsumer := mq.NewConsumer(mqCfg, cfg.Kafka.NewsTopic, m)

		var lostOnce sync.Once
		onLost := func(err error) {
			lostOnce.Do(func() {
				logger.Warn(runCtx, "broker connection lost", "error", err)
				priceConsumer.Close()
				newsConsumer.Close()
				handle.Close()
				orch.ConnectionLost()
			})
		}
		priceConsumer.OnDisconnect(onLost)
		newsConsumer.OnDisconnect(onLost)

		priceHandler.Subscribe(runCtx, priceConsumer)
		newsHandler.Subscribe(runCtx, newsConsumer)
	})

	// 9. HTTP interface
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestMetrics(m))

	httpserver.NewMarketDataHandler(service).RegisterRoutes(r)
	httpserver.NewHealthHandler(probe, orch, redisCache, cfg.ServiceName, cfg.Version).RegisterRoutes(r)

	// 10. Start
	g, gctx := errgroup.WithContext(runCtx)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return bootstrapExitErr(orch.Run(gctx))
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info(gctx, "shutting down servers...")
		case <-gctx.Done():
			logger.Info(gctx, "context cancelled, shutting down...")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server exited with error", "error", err)
	}
}

// bootstrapExitErr maps the orchestrator's terminal outcomes to process
// lifecycle decisions. Degraded is terminal for the broker but not for the
// process: the service stays live with ready=false so that orchestration
// tooling makes the restart call. A non-retryable abort stays fatal.
func bootstrapExitErr(err error) error {
	if errors.Is(err, bootstrap.ErrRetriesExhausted) {
		logger.Error(context.Background(), "broker bootstrap degraded, serving without consumers", "error", err)
		return nil
	}
	return err
}

// requestMetrics records per-route request counts and latency.
func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.Observe(time.Since(start).Seconds())
	}
}
