package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/config"
	"github.com/carlosrosan/palantir-webapp/internal/pipeline"
	"github.com/carlosrosan/palantir-webapp/internal/repository"
	"github.com/carlosrosan/palantir-webapp/internal/runlock"
	"github.com/carlosrosan/palantir-webapp/internal/scoring"
	"github.com/carlosrosan/palantir-webapp/internal/service"
	"github.com/carlosrosan/palantir-webapp/pkg/database"
	"github.com/carlosrosan/palantir-webapp/pkg/logger"
	redispkg "github.com/carlosrosan/palantir-webapp/pkg/redis"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "palantir-etl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting palantir-etl run",
		zap.String("mode", cfg.Pipeline.Mode),
		zap.Bool("snapshot", cfg.Pipeline.Snapshot),
	)

	// 信号取消：批处理运行收到 SIGTERM 时中断而不是硬杀
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn("Received signal, cancelling run", zap.String("signal", sig.String()))
		cancel()
	}()

	// 事件库与特征库连接
	sourceDB, err := database.NewPostgresDB(&cfg.SourceDB)
	if err != nil {
		log.Fatal("Failed to connect to source database", zap.Error(err))
	}
	defer database.Close(sourceDB)

	sinkDB := sourceDB
	if cfg.SinkDB != cfg.SourceDB {
		sinkDB, err = database.NewPostgresDB(&cfg.SinkDB)
		if err != nil {
			log.Fatal("Failed to connect to sink database", zap.Error(err))
		}
		defer database.Close(sinkDB)
	}

	// 运行锁（可选）：防止并发运行互相覆盖目标表
	if cfg.RunLock.Enabled {
		rdb := redispkg.NewRedisClient(&cfg.Redis)
		defer redispkg.Close(rdb)
		if err := redispkg.Ping(ctx, rdb); err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}

		lock := runlock.NewLock(rdb, cfg.RunLock.Key, cfg.RunLock.TTL, log)
		if err := lock.Acquire(ctx); err != nil {
			if errors.Is(err, runlock.ErrHeld) {
				log.Warn("Another run is in progress, exiting")
				os.Exit(0)
			}
			log.Fatal("Failed to acquire run lock", zap.Error(err))
		}
		defer lock.Release(context.Background())
	}

	// 外部评分客户端（可选）
	var scorer *scoring.Client
	if cfg.Scorer.Enabled {
		scorer = scoring.NewClient(cfg.Scorer.BaseURL, cfg.Scorer.Timeout, log)
	}

	svc := service.NewETLService(
		cfg,
		pipeline.NewMaterializer(repository.NewPostgresEventStore(sourceDB), log),
		repository.NewPostgresFeatureWriter(sinkDB, log),
		repository.NewPostgresPredictionWriter(sinkDB, log),
		scorer,
		log,
	)

	summary, err := svc.Run(ctx)
	if err != nil {
		log.Error("ETL run failed", zap.Error(err))
		os.Exit(1)
	}

	if summary.FeatureRows == 0 {
		log.Warn("ETL run finished with no feature rows")
		return
	}
	log.Info("ETL run finished",
		zap.Int("feature_rows", summary.FeatureRows),
		zap.Duration("elapsed", summary.Elapsed),
	)
}
