package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"tmpmail/backend/internal/config"
	"tmpmail/backend/internal/health"
	"tmpmail/backend/internal/logger"
	"tmpmail/backend/internal/middleware"
	"tmpmail/backend/internal/monitoring"
	"tmpmail/backend/internal/render"
	"tmpmail/backend/internal/service"
	"tmpmail/backend/internal/session"
	"tmpmail/backend/internal/storage"
	"tmpmail/backend/internal/storage/hybrid"
	"tmpmail/backend/internal/storage/memory"
	"tmpmail/backend/internal/storage/postgres"
	redisstore "tmpmail/backend/internal/storage/redis"
	sqlstore "tmpmail/backend/internal/storage/sql"
	httptransport "tmpmail/backend/internal/transport/http"
)

const statsInterval = 15 * time.Second

// main 启动临时邮箱 HTTP 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.NewLogger(logger.FromConfig(cfg.Log))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting tmpmail server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("mail_domain", cfg.MailDomain()),
		zap.Bool("password_enabled", cfg.PasswordEnabled()),
	)

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(log)

	store, cacheClient, err := initializeStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close storage failed", zap.Error(err))
		}
		if cacheClient != nil {
			if err := cacheClient.Close(); err != nil {
				log.Warn("close redis failed", zap.Error(err))
			}
		}
	}()

	healthChecker.AddDependency("database", store)
	if cacheClient != nil {
		healthChecker.AddDependency("redis", cacheClient)
	}

	sessions, err := session.NewStore(cfg.Session)
	if err != nil {
		log.Fatal("failed to initialize session store", zap.Error(err))
	}

	renderer, err := render.New()
	if err != nil {
		log.Fatal("failed to parse page templates", zap.Error(err))
	}

	identityService := service.NewIdentityService(store, service.NewAddressGenerator(cfg.MailDomain()))

	var issueLimiter *middleware.RateLimiter
	if cfg.API.IssueRate > 0 {
		issueLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.API.IssueRate),
			Burst: cfg.API.IssueBurst,
		})
	}

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:          cfg,
		IdentityService: identityService,
		Sessions:        sessions,
		Renderer:        renderer,
		IssueLimiter:    issueLimiter,
		Metrics:         metrics,
		Health:          healthChecker,
		Logger:          log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 限流器清理 goroutine
	if issueLimiter != nil {
		group.Go(func() error {
			return issueLimiter.Run(groupCtx)
		})
	}

	// 连接池指标 goroutine
	if counter, ok := store.(storage.ConnectionCounter); ok {
		group.Go(func() error {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()

			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					metrics.UpdateDatabaseConnections(counter.OpenConnections())
				}
			}
		})
	}

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
		return
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置选择存储后端，配置了 Redis 时在外层加一层列表缓存
func initializeStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, *redisstore.Client, error) {
	var (
		db  storage.Store
		err error
	)

	switch cfg.Database.Type {
	case "":
		// 内存存储只用于开发，投递进程无法写入
		db = memory.NewStore()
		log.Warn("using memory storage (development mode)")

	case "mysql", "postgres":
		db, err = sqlstore.NewStore(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create %s store: %w", cfg.Database.Type, err)
		}

	case "pgx":
		if cfg.Database.AutoMigrate {
			if err := postgres.MigrateUp(cfg.Database.DSN); err != nil {
				return nil, nil, err
			}
		}
		client, err := postgres.New(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		db = postgres.NewStore(client)

	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	log.Info("database storage initialized",
		zap.String("database_type", cfg.Database.Type),
		zap.Bool("auto_migrate", cfg.Database.AutoMigrate),
	)

	if cfg.Redis.Address == "" {
		return db, nil, nil
	}

	client, err := redisstore.New(ctx, cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	cache := redisstore.NewCache(client.Client(), cfg.Redis.CacheTTL)
	log.Info("email list cache enabled",
		zap.String("redis_address", cfg.Redis.Address),
		zap.Duration("ttl", cfg.Redis.CacheTTL),
	)
	return hybrid.NewStore(db, cache, log), client, nil
}
