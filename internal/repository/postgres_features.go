package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

// featureSinkTable 特征库目标表
const featureSinkTable = "faliure_probability_base"

// featureColumn 特征列到行字段的映射。写入前与目标表实际列求交集，
// 可选列缺失则降级跳过，必需列缺失则拒绝写入。
type featureColumn struct {
	name     string
	required bool
	value    func(r *domain.FeatureRow) interface{}
}

// dailyKeyColumns 日度模式的键列与标签列
var dailyKeyColumns = []featureColumn{
	{"asset_id", true, func(r *domain.FeatureRow) interface{} { return r.AssetID }},
	{"reading_date", true, func(r *domain.FeatureRow) interface{} { return r.AsOfDate }},
	{"faliure", true, func(r *domain.FeatureRow) interface{} { return r.WillFailWithinHorizon }},
}

// snapshotKeyColumns 快照模式的键列（无标签）
var snapshotKeyColumns = []featureColumn{
	{"asset_id", true, func(r *domain.FeatureRow) interface{} { return r.AssetID }},
	{"extraction_date", true, func(r *domain.FeatureRow) interface{} { return r.AsOfDate }},
}

// featureValueColumns 特征值列，两种模式共用。
// database/sql 对 nil 指针参数写 NULL，空值策略在 domain.FeatureRow 已定。
var featureValueColumns = []featureColumn{
	{"sensor_vibration_avg", false, func(r *domain.FeatureRow) interface{} { return r.SensorVibrationAvg }},
	{"sensor_rpm_avg", false, func(r *domain.FeatureRow) interface{} { return r.SensorRPMAvg }},
	{"sensor_power_avg", false, func(r *domain.FeatureRow) interface{} { return r.SensorPowerAvg }},
	{"sensor_current_avg", false, func(r *domain.FeatureRow) interface{} { return r.SensorCurrentAvg }},
	{"sensor_pressure_avg", false, func(r *domain.FeatureRow) interface{} { return r.SensorPressureAvg }},
	{"sensor_flow_avg", false, func(r *domain.FeatureRow) interface{} { return r.SensorFlowAvg }},
	{"sensor_total_readings_30d", false, func(r *domain.FeatureRow) interface{} { return r.SensorTotalReadings30d }},
	{"sensor_warning_count_30d", false, func(r *domain.FeatureRow) interface{} { return r.SensorWarningCount30d }},
	{"sensor_critical_count_30d", false, func(r *domain.FeatureRow) interface{} { return r.SensorCriticalCount30d }},
	{"sensor_avg_normal_value", false, func(r *domain.FeatureRow) interface{} { return r.SensorAvgNormalValue }},
	{"sensor_avg_warning_value", false, func(r *domain.FeatureRow) interface{} { return r.SensorAvgWarningValue }},
	{"sensor_avg_critical_value", false, func(r *domain.FeatureRow) interface{} { return r.SensorAvgCriticalValue }},
	{"sensor_max_value", false, func(r *domain.FeatureRow) interface{} { return r.SensorMaxValue }},
	{"sensor_min_value", false, func(r *domain.FeatureRow) interface{} { return r.SensorMinValue }},
	{"sensor_std_value", false, func(r *domain.FeatureRow) interface{} { return r.SensorStdValue }},
	{"failure_count_365d", false, func(r *domain.FeatureRow) interface{} { return r.FailureCount365d }},
	{"failure_critical_count", false, func(r *domain.FeatureRow) interface{} { return r.FailureCriticalCount }},
	{"failure_high_count", false, func(r *domain.FeatureRow) interface{} { return r.FailureHighCount }},
	{"failure_medium_count", false, func(r *domain.FeatureRow) interface{} { return r.FailureMediumCount }},
	{"failure_low_count", false, func(r *domain.FeatureRow) interface{} { return r.FailureLowCount }},
	{"failure_avg_downtime", false, func(r *domain.FeatureRow) interface{} { return r.FailureAvgDowntime }},
	{"failure_total_downtime", false, func(r *domain.FeatureRow) interface{} { return r.FailureTotalDowntime }},
	{"failure_unresolved_count", false, func(r *domain.FeatureRow) interface{} { return r.FailureUnresolvedCount }},
	{"task_total_365d", false, func(r *domain.FeatureRow) interface{} { return r.TaskTotal365d }},
	{"task_completed_count", false, func(r *domain.FeatureRow) interface{} { return r.TaskCompletedCount }},
	{"task_in_progress_count", false, func(r *domain.FeatureRow) interface{} { return r.TaskInProgressCount }},
	{"task_pending_count", false, func(r *domain.FeatureRow) interface{} { return r.TaskPendingCount }},
	{"task_avg_estimated_hours", false, func(r *domain.FeatureRow) interface{} { return r.TaskAvgEstimatedHours }},
	{"task_avg_actual_hours", false, func(r *domain.FeatureRow) interface{} { return r.TaskAvgActualHours }},
	{"task_total_hours", false, func(r *domain.FeatureRow) interface{} { return r.TaskTotalHours }},
	{"order_total_365d", false, func(r *domain.FeatureRow) interface{} { return r.OrderTotal365d }},
	{"order_preventive_count", false, func(r *domain.FeatureRow) interface{} { return r.OrderPreventiveCount }},
	{"order_corrective_count", false, func(r *domain.FeatureRow) interface{} { return r.OrderCorrectiveCount }},
	{"order_emergency_count", false, func(r *domain.FeatureRow) interface{} { return r.OrderEmergencyCount }},
	{"order_completed_count", false, func(r *domain.FeatureRow) interface{} { return r.OrderCompletedCount }},
	{"order_avg_estimated_cost", false, func(r *domain.FeatureRow) interface{} { return r.OrderAvgEstimatedCost }},
	{"order_avg_actual_cost", false, func(r *domain.FeatureRow) interface{} { return r.OrderAvgActualCost }},
	{"order_total_actual_cost", false, func(r *domain.FeatureRow) interface{} { return r.OrderTotalActualCost }},
	{"days_since_last_failure", false, func(r *domain.FeatureRow) interface{} { return r.DaysSinceLastFailure }},
	{"days_since_last_task", false, func(r *domain.FeatureRow) interface{} { return r.DaysSinceLastTask }},
	{"days_since_last_order", false, func(r *domain.FeatureRow) interface{} { return r.DaysSinceLastOrder }},
	{"days_since_last_inspection", false, func(r *domain.FeatureRow) interface{} { return r.DaysSinceLastInspection }},
	{"asset_service_days", false, func(r *domain.FeatureRow) interface{} { return r.AssetServiceDays }},
	{"asset_service_hours", false, func(r *domain.FeatureRow) interface{} { return r.AssetServiceHours }},
}

// PostgresFeatureWriter 特征库写入器
type PostgresFeatureWriter struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresFeatureWriter 创建特征库写入器
func NewPostgresFeatureWriter(db *sql.DB, logger *zap.Logger) *PostgresFeatureWriter {
	return &PostgresFeatureWriter{db: db, logger: logger}
}

// 确保实现了接口
var _ FeatureWriter = (*PostgresFeatureWriter)(nil)

// sinkColumns 查询目标表的实际列集合（information_schema），
// 管理字段不参与协商
func (w *PostgresFeatureWriter) sinkColumns(ctx context.Context) (map[string]bool, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1
	`, featureSinkTable)
	if err != nil {
		return nil, fmt.Errorf("%w: query sink columns: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		switch name {
		case "base_id", "created_at", "updated_at":
			continue
		}
		existing[name] = true
	}
	return existing, rows.Err()
}

// negotiateColumns 与目标表求列交集。必需列缺失返回 ErrSchemaMismatch，
// 可选列缺失降级跳过并告警。
func (w *PostgresFeatureWriter) negotiateColumns(ctx context.Context, keyColumns []featureColumn) ([]featureColumn, error) {
	existing, err := w.sinkColumns(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]featureColumn, 0, len(keyColumns)+len(featureValueColumns))
	candidates = append(candidates, keyColumns...)
	candidates = append(candidates, featureValueColumns...)

	var cols []featureColumn
	var dropped []string
	for _, c := range candidates {
		if existing[c.name] {
			cols = append(cols, c)
			continue
		}
		if c.required {
			return nil, fmt.Errorf("%w: required column %q missing from %s", ErrSchemaMismatch, c.name, featureSinkTable)
		}
		dropped = append(dropped, c.name)
	}
	if len(dropped) > 0 {
		w.logger.Warn("Sink table missing optional feature columns, dropping them",
			zap.String("table", featureSinkTable),
			zap.Strings("columns", dropped),
		)
	}
	return cols, nil
}

// insertSQL 生成单行 INSERT 语句
func insertSQL(cols []featureColumn) string {
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		featureSinkTable, strings.Join(names, ", "), strings.Join(placeholders, ", "))
}

func columnArgs(cols []featureColumn, r *domain.FeatureRow) []interface{} {
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		args[i] = c.value(r)
	}
	return args
}

// ReplaceAll 单事务整表替换：先 DELETE 再逐行 INSERT，任一失败整体回滚，
// 上一次的完整结果保持可见
func (w *PostgresFeatureWriter) ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error {
	cols, err := w.negotiateColumns(ctx, dailyKeyColumns)
	if err != nil {
		return err
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", featureSinkTable)); err != nil {
		return fmt.Errorf("failed to clear sink table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(cols))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, columnArgs(cols, r)...); err != nil {
			return fmt.Errorf("failed to insert feature row (asset %d, %s): %w",
				r.AssetID, r.AsOfDate.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feature rows: %w", err)
	}

	w.logger.Info("Feature table replaced",
		zap.String("table", featureSinkTable),
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(cols)),
	)
	return nil
}

// UpsertSnapshot 快照模式：每资产一行，按 asset_id 覆盖
func (w *PostgresFeatureWriter) UpsertSnapshot(ctx context.Context, rows []*domain.FeatureRow) error {
	cols, err := w.negotiateColumns(ctx, snapshotKeyColumns)
	if err != nil {
		return err
	}

	var sets []string
	for _, c := range cols {
		if c.name == "asset_id" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c.name, c.name))
	}
	query := insertSQL(cols) + fmt.Sprintf(
		" ON CONFLICT (asset_id) DO UPDATE SET %s", strings.Join(sets, ", "))

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, columnArgs(cols, r)...); err != nil {
			return fmt.Errorf("failed to upsert snapshot row (asset %d): %w", r.AssetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot rows: %w", err)
	}

	w.logger.Info("Feature snapshot upserted",
		zap.String("table", featureSinkTable),
		zap.Int("rows", len(rows)),
	)
	return nil
}
