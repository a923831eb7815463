package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	assetmysql "github.com/wyfcoding/equitysim/internal/asset/infrastructure/persistence/mysql"
	assetredis "github.com/wyfcoding/equitysim/internal/asset/infrastructure/persistence/redis"
	execdomain "github.com/wyfcoding/equitysim/internal/execution/domain"
	"github.com/wyfcoding/equitysim/internal/ledger/application"
	ledgerdomain "github.com/wyfcoding/equitysim/internal/ledger/domain"
	"github.com/wyfcoding/equitysim/internal/ledger/infrastructure/messaging"
	ledgermysql "github.com/wyfcoding/equitysim/internal/ledger/infrastructure/persistence/mysql"
	ledgerhttp "github.com/wyfcoding/equitysim/internal/ledger/interfaces/http"
	mktmysql "github.com/wyfcoding/equitysim/internal/marketdata/infrastructure/persistence/mysql"
	"github.com/wyfcoding/equitysim/pkg/cache"
	"github.com/wyfcoding/equitysim/pkg/config"
	"github.com/wyfcoding/equitysim/pkg/db"
	"github.com/wyfcoding/equitysim/pkg/logger"
	"github.com/wyfcoding/equitysim/pkg/metrics"
	"github.com/wyfcoding/equitysim/pkg/middleware"
	"github.com/wyfcoding/equitysim/pkg/mq"
	"github.com/wyfcoding/equitysim/pkg/ratelimit"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/config.toml", "path to config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "backtest service exited: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(cfg.ServiceName)

	// 数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&assetmysql.AssetModel{},
		&mktmysql.BarModel{},
		&ledgermysql.OrderModel{},
		&ledgermysql.TransactionModel{},
		&ledgermysql.SnapshotModel{},
		&ledgermysql.ArchivedPositionModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// 资产目录，Redis 不可用时直连数据库
	directory := assetmysql.NewAssetRepository(database.DB)
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Warn(ctx, "Redis 不可用，资产目录降级为直连数据库", "error", err)
	} else {
		defer redisCache.Close()
		directory = assetredis.NewCachedDirectory(directory, redisCache)
	}

	// 事件发布，Kafka 未配置时降级为空实现
	var publisher ledgerdomain.EventPublisher = messaging.NoopEventPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			return fmt.Errorf("init kafka producer: %w", err)
		}
		defer producer.Close()
		publisher = messaging.NewKafkaEventPublisher(producer, cfg.Kafka.FillTopic, cfg.Kafka.SnapshotTopic)
	}

	// 撮合引擎
	seed := cfg.Backtest.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	dist, err := execdomain.NewDistribution(cfg.Backtest.Distribution, rand.New(rand.NewSource(seed)))
	if err != nil {
		return fmt.Errorf("init distribution: %w", err)
	}
	commission, err := execdomain.NewCommission(cfg.Backtest.Commission, cfg.Backtest.CommissionMultiplier)
	if err != nil {
		return fmt.Errorf("init commission: %w", err)
	}
	engine := execdomain.NewEngine(execdomain.Config{
		Delay:           cfg.Backtest.Delay,
		ImpactFactor:    cfg.Backtest.ImpactFactor,
		SlippageFactor:  cfg.Backtest.SlippageFactor,
		Epsilon:         cfg.Backtest.Epsilon,
		TickGranularity: cfg.Backtest.TickGranularity,
		SamplesPerBar:   cfg.Backtest.SamplesPerBar,
	}, dist, commission)

	// 账本
	service := application.NewLedgerService(
		engine,
		ledgerdomain.NewTracker(),
		ledgerdomain.NewPortfolio(decimal.NewFromFloat(cfg.Backtest.InitialBalance)),
		directory,
		mktmysql.NewBarRepository(database.DB),
		ledgermysql.NewLedgerRepository(database.DB),
		publisher,
		m,
		time.Duration(cfg.Backtest.DataWaitTimeout)*time.Millisecond,
		0,
	)

	// HTTP
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Trace(), ledgerhttp.MetricsMiddleware(m))
	if redisCache != nil && cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(ratelimit.NewRedisLimiter(redisCache.Client()), cfg.RateLimit))
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
	})
	ledgerhttp.NewLedgerHandler(service).RegisterRoutes(router.Group("/api"))

	httpServer := &nethttp.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return service.Run(gctx)
	})

	g.Go(func() error {
		logger.Info(gctx, "HTTP 服务启动", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	var metricsServer *nethttp.Server
	if cfg.Metrics.Enabled {
		metricsServer = m.Serve(cfg.Metrics.Port, cfg.Metrics.Path)
		g.Go(func() error {
			logger.Info(gctx, "指标服务启动", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn(context.Background(), "HTTP 服务关闭异常", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn(context.Background(), "指标服务关闭异常", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info(context.Background(), "服务已退出")
	return nil
}
