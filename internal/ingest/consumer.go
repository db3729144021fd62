package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
	"github.com/carlosrosan/palantir-webapp/internal/repository"
	"github.com/carlosrosan/palantir-webapp/pkg/mqtt"
)

// TopicPattern PLC读数上报主题，asset_id 在第二段
const TopicPattern = "plc/+/reading"

// readingMessage PLC上报的读数载荷
type readingMessage struct {
	SensorName   string  `json:"sensor_name"`
	SensorType   string  `json:"sensor_type"`
	ReadingValue float64 `json:"reading_value"`
	Unit         string  `json:"unit"`
	Timestamp    string  `json:"timestamp"` // RFC3339，缺省为接收时刻
	Status       string  `json:"status"`
}

// Consumer PLC读数接入桥：订阅MQTT主题，写入事件库。
// 坏消息（主题不合规、JSON解析失败、字段缺失）记日志后丢弃，不中断订阅。
type Consumer struct {
	client *mqtt.Client
	writer repository.SensorReadingWriter
	logger *zap.Logger

	writeTimeout time.Duration
}

// NewConsumer 创建接入桥
func NewConsumer(client *mqtt.Client, writer repository.SensorReadingWriter, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:       client,
		writer:       writer,
		logger:       logger,
		writeTimeout: 10 * time.Second,
	}
}

// Start 订阅读数主题
func (c *Consumer) Start() error {
	if err := c.client.Subscribe(TopicPattern, 1, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", TopicPattern, err)
	}
	c.logger.Info("PLC reading consumer started", zap.String("topic", TopicPattern))
	return nil
}

// Stop 退订并断开
func (c *Consumer) Stop() {
	if err := c.client.Unsubscribe(TopicPattern); err != nil {
		c.logger.Warn("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("PLC reading consumer stopped")
}

// handleMessage 处理单条读数消息
func (c *Consumer) handleMessage(topic string, payload []byte) error {
	assetID, err := assetIDFromTopic(topic)
	if err != nil {
		c.logger.Warn("Dropping message with invalid topic",
			zap.String("topic", topic), zap.Error(err))
		return nil
	}

	var msg readingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Warn("Dropping malformed reading payload",
			zap.String("topic", topic), zap.Error(err))
		return nil
	}
	if msg.SensorType == "" {
		c.logger.Warn("Dropping reading without sensor_type",
			zap.String("topic", topic), zap.Int("asset_id", assetID))
		return nil
	}

	ts := time.Now().UTC()
	if msg.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, msg.Timestamp)
		if err != nil {
			c.logger.Warn("Dropping reading with invalid timestamp",
				zap.String("topic", topic), zap.String("timestamp", msg.Timestamp))
			return nil
		}
		ts = parsed.UTC()
	}

	status := msg.Status
	if status == "" {
		status = domain.ReadingStatusNormal
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()

	reading := &domain.SensorReading{
		AssetID:          assetID,
		SensorName:       msg.SensorName,
		SensorType:       msg.SensorType,
		ReadingValue:     msg.ReadingValue,
		Unit:             msg.Unit,
		ReadingTimestamp: ts,
		Status:           status,
	}
	if err := c.writer.InsertSensorReading(ctx, reading); err != nil {
		c.logger.Error("Failed to persist sensor reading",
			zap.Int("asset_id", assetID), zap.Error(err))
		return err
	}
	return nil
}

// assetIDFromTopic 从 plc/{asset_id}/reading 提取资产ID
func assetIDFromTopic(topic string) (int, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "plc" || parts[2] != "reading" {
		return 0, fmt.Errorf("unexpected topic format: %s", topic)
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid asset id in topic: %s", parts[1])
	}
	return id, nil
}
