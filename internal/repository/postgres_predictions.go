package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

// PostgresPredictionWriter 预测与派生指标写入器
type PostgresPredictionWriter struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresPredictionWriter 创建预测写入器
func NewPostgresPredictionWriter(db *sql.DB, logger *zap.Logger) *PostgresPredictionWriter {
	return &PostgresPredictionWriter{db: db, logger: logger}
}

// 确保实现了接口
var _ PredictionWriter = (*PostgresPredictionWriter)(nil)

// ReplacePredictions 单事务整表替换预测结果
func (w *PostgresPredictionWriter) ReplacePredictions(ctx context.Context, records []*domain.PredictionRecord) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM faliure_prediction`); err != nil {
		return fmt.Errorf("failed to clear prediction table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faliure_prediction (
			asset_id, prediction_date, probability_score,
			predicted_failure, risk_level, model_version
		) VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare prediction insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range records {
		if _, err := stmt.ExecContext(ctx,
			p.AssetID, p.PredictionDate, p.ProbabilityScore,
			p.PredictedFailure, p.RiskLevel, p.ModelVersion,
		); err != nil {
			return fmt.Errorf("failed to insert prediction (asset %d): %w", p.AssetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit predictions: %w", err)
	}

	w.logger.Info("Prediction table replaced", zap.Int("rows", len(records)))
	return nil
}

// UpsertPredictions 按 (asset_id, prediction_date) 覆盖写入
func (w *PostgresPredictionWriter) UpsertPredictions(ctx context.Context, records []*domain.PredictionRecord) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faliure_prediction (
			asset_id, prediction_date, probability_score,
			predicted_failure, risk_level, model_version
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (asset_id, prediction_date) DO UPDATE SET
			probability_score = EXCLUDED.probability_score,
			predicted_failure = EXCLUDED.predicted_failure,
			risk_level = EXCLUDED.risk_level,
			model_version = EXCLUDED.model_version
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare prediction upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range records {
		if _, err := stmt.ExecContext(ctx,
			p.AssetID, p.PredictionDate, p.ProbabilityScore,
			p.PredictedFailure, p.RiskLevel, p.ModelVersion,
		); err != nil {
			return fmt.Errorf("failed to upsert prediction (asset %d): %w", p.AssetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit predictions: %w", err)
	}
	return nil
}

// UpsertFailureProbability 按 asset_id 覆盖写入启发式概率
func (w *PostgresPredictionWriter) UpsertFailureProbability(ctx context.Context, probs []*domain.FailureProbability) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faliure_probability (
			asset_id, probability_score, risk_level, calculation_date,
			failure_count, warning_count, critical_sensor_count,
			days_since_maintenance, unresolved_failures, asset_age_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (asset_id) DO UPDATE SET
			probability_score = EXCLUDED.probability_score,
			risk_level = EXCLUDED.risk_level,
			calculation_date = EXCLUDED.calculation_date,
			failure_count = EXCLUDED.failure_count,
			warning_count = EXCLUDED.warning_count,
			critical_sensor_count = EXCLUDED.critical_sensor_count,
			days_since_maintenance = EXCLUDED.days_since_maintenance,
			unresolved_failures = EXCLUDED.unresolved_failures,
			asset_age_days = EXCLUDED.asset_age_days
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare probability upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range probs {
		if _, err := stmt.ExecContext(ctx,
			p.AssetID, p.ProbabilityScore, p.RiskLevel, p.CalculationDate,
			p.FailureCount, p.WarningCount, p.CriticalSensorCount,
			p.DaysSinceMaintenance, p.UnresolvedFailures, p.AssetAgeDays,
		); err != nil {
			return fmt.Errorf("failed to upsert probability (asset %d): %w", p.AssetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit probabilities: %w", err)
	}

	w.logger.Info("Failure probability upserted", zap.Int("rows", len(probs)))
	return nil
}

// UpsertMaintenanceCost 按 asset_id 覆盖写入成本指标
func (w *PostgresPredictionWriter) UpsertMaintenanceCost(ctx context.Context, summaries []*domain.MaintenanceCostSummary) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mantainace_cost (
			asset_id, calculation_date,
			total_cost, total_transactions, avg_cost_per_transaction,
			maintenance_cost, repair_cost, upgrade_cost, other_cost,
			cost_last_12m, cost_last_6m, cost_last_3m,
			transactions_12m, transactions_6m, transactions_3m,
			avg_monthly_cost, avg_yearly_cost, cost_per_day,
			cost_trend, last_cost_date, days_since_last_cost, asset_age_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		          $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (asset_id) DO UPDATE SET
			calculation_date = EXCLUDED.calculation_date,
			total_cost = EXCLUDED.total_cost,
			total_transactions = EXCLUDED.total_transactions,
			avg_cost_per_transaction = EXCLUDED.avg_cost_per_transaction,
			maintenance_cost = EXCLUDED.maintenance_cost,
			repair_cost = EXCLUDED.repair_cost,
			upgrade_cost = EXCLUDED.upgrade_cost,
			other_cost = EXCLUDED.other_cost,
			cost_last_12m = EXCLUDED.cost_last_12m,
			cost_last_6m = EXCLUDED.cost_last_6m,
			cost_last_3m = EXCLUDED.cost_last_3m,
			transactions_12m = EXCLUDED.transactions_12m,
			transactions_6m = EXCLUDED.transactions_6m,
			transactions_3m = EXCLUDED.transactions_3m,
			avg_monthly_cost = EXCLUDED.avg_monthly_cost,
			avg_yearly_cost = EXCLUDED.avg_yearly_cost,
			cost_per_day = EXCLUDED.cost_per_day,
			cost_trend = EXCLUDED.cost_trend,
			last_cost_date = EXCLUDED.last_cost_date,
			days_since_last_cost = EXCLUDED.days_since_last_cost,
			asset_age_days = EXCLUDED.asset_age_days
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cost upsert: %w", err)
	}
	defer stmt.Close()

	for _, s := range summaries {
		if _, err := stmt.ExecContext(ctx,
			s.AssetID, s.CalculationDate,
			s.TotalCost, s.TotalTransactions, s.AvgCostPerTransaction,
			s.MaintenanceCost, s.RepairCost, s.UpgradeCost, s.OtherCost,
			s.CostLast12M, s.CostLast6M, s.CostLast3M,
			s.Transactions12M, s.Transactions6M, s.Transactions3M,
			s.AvgMonthlyCost, s.AvgYearlyCost, s.CostPerDay,
			s.CostTrend, s.LastCostDate, s.DaysSinceLastCost, s.AssetAgeDays,
		); err != nil {
			return fmt.Errorf("failed to upsert cost summary (asset %d): %w", s.AssetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cost summaries: %w", err)
	}

	w.logger.Info("Maintenance cost upserted", zap.Int("rows", len(summaries)))
	return nil
}
