package repository

import (
	"context"
	"time"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

// EventStore 事件库只读接口。时间参数为 nil 表示该侧无界。
// 查询不存在的资产返回空切片，不报错。
type EventStore interface {
	// AllAssetIDs 全部资产ID（升序）
	AllAssetIDs(ctx context.Context) ([]int, error)

	// Asset 单个资产，不存在时返回 ErrNotFound
	Asset(ctx context.Context, assetID int) (*domain.Asset, error)

	// ReadingDateSpan 传感器读数的最早/最晚日期，空表时 ok=false
	ReadingDateSpan(ctx context.Context) (min, max time.Time, ok bool, err error)

	// SensorReadings 资产在 [start, end] 内的读数（按时间升序）
	SensorReadings(ctx context.Context, assetID int, start, end *time.Time) ([]domain.SensorReading, error)

	// Failures 资产在 [start, end] 内的故障（按故障日期升序）
	Failures(ctx context.Context, assetID int, start, end *time.Time) ([]domain.FailureEvent, error)

	// MaintenanceOrders 资产的维护工单，scheduled_date 或 created_at 落在区间即匹配
	MaintenanceOrders(ctx context.Context, assetID int, start, end *time.Time) ([]domain.MaintenanceOrder, error)

	// MaintenanceTasks 资产的维护任务（经工单关联），start_time 或 created_at 落在区间即匹配
	MaintenanceTasks(ctx context.Context, assetID int, start, end *time.Time) ([]domain.MaintenanceTask, error)

	// AssetCosts 资产在 [start, end] 内的成本记录（按日期升序）
	AssetCosts(ctx context.Context, assetID int, start, end *time.Time) ([]domain.AssetCost, error)
}

// FeatureWriter 特征库写入接口
type FeatureWriter interface {
	// ReplaceAll 单事务整表替换（DELETE+INSERT），任一失败整体回滚
	ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error

	// UpsertSnapshot 快照模式：按 asset_id 覆盖写入（每资产一行）
	UpsertSnapshot(ctx context.Context, rows []*domain.FeatureRow) error
}

// PredictionWriter 预测与派生指标写入接口
type PredictionWriter interface {
	// ReplacePredictions 单事务整表替换预测结果
	ReplacePredictions(ctx context.Context, records []*domain.PredictionRecord) error

	// UpsertPredictions 按 (asset_id, prediction_date) 覆盖写入
	UpsertPredictions(ctx context.Context, records []*domain.PredictionRecord) error

	// UpsertFailureProbability 按 asset_id 覆盖写入启发式概率
	UpsertFailureProbability(ctx context.Context, probs []*domain.FailureProbability) error

	// UpsertMaintenanceCost 按 asset_id 覆盖写入成本指标
	UpsertMaintenanceCost(ctx context.Context, summaries []*domain.MaintenanceCostSummary) error
}

// SensorReadingWriter 传感器读数写入接口（MQTT接入桥使用）
type SensorReadingWriter interface {
	InsertSensorReading(ctx context.Context, r *domain.SensorReading) error
}
