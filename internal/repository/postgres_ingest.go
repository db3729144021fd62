package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

// PostgresSensorReadingWriter 传感器读数写入器，供MQTT接入桥使用。
// 与只读的 PostgresEventStore 分开，批处理管道拿不到写路径。
type PostgresSensorReadingWriter struct {
	db *sql.DB
}

// NewPostgresSensorReadingWriter 创建读数写入器
func NewPostgresSensorReadingWriter(db *sql.DB) *PostgresSensorReadingWriter {
	return &PostgresSensorReadingWriter{db: db}
}

// 确保实现了接口
var _ SensorReadingWriter = (*PostgresSensorReadingWriter)(nil)

// InsertSensorReading 追加写入一条读数
func (w *PostgresSensorReadingWriter) InsertSensorReading(ctx context.Context, r *domain.SensorReading) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO plc_sensor_readings (
			asset_id, sensor_name, sensor_type, reading_value,
			unit, reading_timestamp, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.AssetID, r.SensorName, r.SensorType, r.ReadingValue,
		r.Unit, r.ReadingTimestamp, r.Status)
	if err != nil {
		return fmt.Errorf("failed to insert sensor reading (asset %d): %w", r.AssetID, err)
	}
	return nil
}
