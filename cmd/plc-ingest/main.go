package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/config"
	"github.com/carlosrosan/palantir-webapp/internal/ingest"
	"github.com/carlosrosan/palantir-webapp/internal/repository"
	"github.com/carlosrosan/palantir-webapp/pkg/database"
	"github.com/carlosrosan/palantir-webapp/pkg/logger"
	mqttpkg "github.com/carlosrosan/palantir-webapp/pkg/mqtt"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "plc-ingest")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting plc-ingest service", zap.String("broker", cfg.MQTT.Broker))

	// 事件库连接（写入侧）
	db, err := database.NewPostgresDB(&cfg.SourceDB)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// MQTT连接
	mqttClient, err := mqttpkg.NewClient(&cfg.MQTT)
	if err != nil {
		log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
	}
	defer mqttClient.Disconnect()

	consumer := ingest.NewConsumer(mqttClient, repository.NewPostgresSensorReadingWriter(db), log)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start consumer", zap.Error(err))
	}

	// 等待退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	consumer.Stop()
	log.Info("Service stopped")
}
