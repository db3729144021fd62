package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

// PostgresEventStore 事件库只读适配器。所有查询按资产过滤、按时间升序，
// 时间边界按日期部分闭区间。nil 边界表示该侧无界（预加载全历史时使用）。
type PostgresEventStore struct {
	db *sql.DB
}

// NewPostgresEventStore 创建事件库适配器
func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// 确保实现了接口
var _ EventStore = (*PostgresEventStore)(nil)

// AllAssetIDs 全部资产ID（升序）
func (r *PostgresEventStore) AllAssetIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT asset_id FROM assets ORDER BY asset_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query assets: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan asset id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Asset 单个资产
func (r *PostgresEventStore) Asset(ctx context.Context, assetID int) (*domain.Asset, error) {
	query := `
		SELECT asset_id, asset_name, asset_type, location, installation_date,
		       manufacturer, model_number, status, created_at, updated_at
		FROM assets
		WHERE asset_id = $1
	`
	var a domain.Asset
	var manufacturer, modelNumber sql.NullString
	err := r.db.QueryRowContext(ctx, query, assetID).Scan(
		&a.AssetID, &a.AssetName, &a.AssetType, &a.Location, &a.InstallationDate,
		&manufacturer, &modelNumber, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %d: %w", assetID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query asset %d: %v", ErrStoreUnavailable, assetID, err)
	}
	if manufacturer.Valid {
		a.Manufacturer = &manufacturer.String
	}
	if modelNumber.Valid {
		a.ModelNumber = &modelNumber.String
	}
	return &a, nil
}

// ReadingDateSpan 读数表的最早/最晚日期
func (r *PostgresEventStore) ReadingDateSpan(ctx context.Context) (time.Time, time.Time, bool, error) {
	var minTS, maxTS sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(reading_timestamp), MAX(reading_timestamp) FROM plc_sensor_readings`,
	).Scan(&minTS, &maxTS)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("%w: query reading span: %v", ErrStoreUnavailable, err)
	}
	if !minTS.Valid || !maxTS.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return minTS.Time, maxTS.Time, true, nil
}

// dateWindow 生成按日期部分的闭区间条件，nil 边界跳过
func dateWindow(column string, start, end *time.Time, args []interface{}) (string, []interface{}) {
	clause := ""
	if start != nil {
		args = append(args, *start)
		clause += fmt.Sprintf(" AND %s::date >= $%d::date", column, len(args))
	}
	if end != nil {
		args = append(args, *end)
		clause += fmt.Sprintf(" AND %s::date <= $%d::date", column, len(args))
	}
	return clause, args
}

// SensorReadings 资产在 [start, end] 内的读数
func (r *PostgresEventStore) SensorReadings(ctx context.Context, assetID int, start, end *time.Time) ([]domain.SensorReading, error) {
	args := []interface{}{assetID}
	window, args := dateWindow("reading_timestamp", start, end, args)
	query := `
		SELECT reading_id, asset_id, sensor_name, sensor_type, reading_value,
		       unit, reading_timestamp, status
		FROM plc_sensor_readings
		WHERE asset_id = $1` + window + `
		ORDER BY reading_timestamp
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query sensor readings: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var readings []domain.SensorReading
	for rows.Next() {
		var sr domain.SensorReading
		if err := rows.Scan(
			&sr.ReadingID, &sr.AssetID, &sr.SensorName, &sr.SensorType,
			&sr.ReadingValue, &sr.Unit, &sr.ReadingTimestamp, &sr.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}
		readings = append(readings, sr)
	}
	return readings, rows.Err()
}

// Failures 资产在 [start, end] 内的故障
func (r *PostgresEventStore) Failures(ctx context.Context, assetID int, start, end *time.Time) ([]domain.FailureEvent, error) {
	args := []interface{}{assetID}
	window, args := dateWindow("failure_date", start, end, args)
	query := `
		SELECT failure_id, asset_id, failure_date, failure_type, severity,
		       description, root_cause, downtime_hours, resolved, resolution_date
		FROM assets_faliures
		WHERE asset_id = $1` + window + `
		ORDER BY failure_date
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query failures: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var failures []domain.FailureEvent
	for rows.Next() {
		var f domain.FailureEvent
		var rootCause sql.NullString
		var downtime sql.NullFloat64
		var resolutionDate sql.NullTime
		if err := rows.Scan(
			&f.FailureID, &f.AssetID, &f.FailureDate, &f.FailureType, &f.Severity,
			&f.Description, &rootCause, &downtime, &f.Resolved, &resolutionDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan failure event: %w", err)
		}
		if rootCause.Valid {
			f.RootCause = &rootCause.String
		}
		if downtime.Valid {
			f.DowntimeHours = &downtime.Float64
		}
		if resolutionDate.Valid {
			f.ResolutionDate = &resolutionDate.Time
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// MaintenanceOrders 资产的维护工单，scheduled_date 或 created_at 落在区间即匹配
func (r *PostgresEventStore) MaintenanceOrders(ctx context.Context, assetID int, start, end *time.Time) ([]domain.MaintenanceOrder, error) {
	args := []interface{}{assetID}
	window := ""
	if start != nil && end != nil {
		args = append(args, *start, *end)
		window = fmt.Sprintf(
			" AND ((scheduled_date::date >= $%d::date AND scheduled_date::date <= $%d::date)"+
				" OR (created_at::date >= $%d::date AND created_at::date <= $%d::date))",
			len(args)-1, len(args), len(args)-1, len(args))
	}
	query := `
		SELECT order_id, asset_id, order_type, priority, description,
		       scheduled_date, start_date, completion_date, status,
		       estimated_cost, actual_cost, created_at
		FROM mantainance_orders
		WHERE asset_id = $1` + window + `
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query maintenance orders: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var orders []domain.MaintenanceOrder
	for rows.Next() {
		var o domain.MaintenanceOrder
		var scheduled, started, completed sql.NullTime
		var estCost, actCost sql.NullFloat64
		if err := rows.Scan(
			&o.OrderID, &o.AssetID, &o.OrderType, &o.Priority, &o.Description,
			&scheduled, &started, &completed, &o.Status,
			&estCost, &actCost, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan maintenance order: %w", err)
		}
		if scheduled.Valid {
			o.ScheduledDate = &scheduled.Time
		}
		if started.Valid {
			o.StartDate = &started.Time
		}
		if completed.Valid {
			o.CompletionDate = &completed.Time
		}
		if estCost.Valid {
			o.EstimatedCost = &estCost.Float64
		}
		if actCost.Valid {
			o.ActualCost = &actCost.Float64
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// MaintenanceTasks 资产的维护任务（经 mantainance_orders 关联资产），
// start_time 或 created_at 落在区间即匹配
func (r *PostgresEventStore) MaintenanceTasks(ctx context.Context, assetID int, start, end *time.Time) ([]domain.MaintenanceTask, error) {
	args := []interface{}{assetID}
	window := ""
	if start != nil && end != nil {
		args = append(args, *start, *end)
		window = fmt.Sprintf(
			" AND ((t.start_time::date >= $%d::date AND t.start_time::date <= $%d::date)"+
				" OR (t.created_at::date >= $%d::date AND t.created_at::date <= $%d::date))",
			len(args)-1, len(args), len(args)-1, len(args))
	}
	query := `
		SELECT t.task_id, t.order_id, o.asset_id, t.task_name, t.status,
		       t.estimated_hours, t.actual_hours, t.start_time, t.end_time, t.created_at
		FROM mantainance_tasks t
		JOIN mantainance_orders o ON t.order_id = o.order_id
		WHERE o.asset_id = $1` + window + `
		ORDER BY t.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query maintenance tasks: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var tasks []domain.MaintenanceTask
	for rows.Next() {
		var t domain.MaintenanceTask
		var estHours, actHours sql.NullFloat64
		var startTime, endTime sql.NullTime
		if err := rows.Scan(
			&t.TaskID, &t.OrderID, &t.AssetID, &t.TaskName, &t.Status,
			&estHours, &actHours, &startTime, &endTime, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan maintenance task: %w", err)
		}
		if estHours.Valid {
			t.EstimatedHours = &estHours.Float64
		}
		if actHours.Valid {
			t.ActualHours = &actHours.Float64
		}
		if startTime.Valid {
			t.StartTime = &startTime.Time
		}
		if endTime.Valid {
			t.EndTime = &endTime.Time
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// AssetCosts 资产在 [start, end] 内的成本记录
func (r *PostgresEventStore) AssetCosts(ctx context.Context, assetID int, start, end *time.Time) ([]domain.AssetCost, error) {
	args := []interface{}{assetID}
	window, args := dateWindow("cost_date", start, end, args)
	query := `
		SELECT cost_id, asset_id, cost_type, amount, cost_date
		FROM asset_costs
		WHERE asset_id = $1` + window + `
		ORDER BY cost_date
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query asset costs: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var costs []domain.AssetCost
	for rows.Next() {
		var c domain.AssetCost
		if err := rows.Scan(&c.CostID, &c.AssetID, &c.CostType, &c.Amount, &c.CostDate); err != nil {
			return nil, fmt.Errorf("failed to scan asset cost: %w", err)
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}
