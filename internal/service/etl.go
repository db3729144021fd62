package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/config"
	"github.com/carlosrosan/palantir-webapp/internal/cost"
	"github.com/carlosrosan/palantir-webapp/internal/domain"
	"github.com/carlosrosan/palantir-webapp/internal/feature"
	"github.com/carlosrosan/palantir-webapp/internal/pipeline"
	"github.com/carlosrosan/palantir-webapp/internal/report"
	"github.com/carlosrosan/palantir-webapp/internal/repository"
	"github.com/carlosrosan/palantir-webapp/internal/risk"
	"github.com/carlosrosan/palantir-webapp/internal/scoring"
)

// RunSummary 单次ETL运行的结果汇总
type RunSummary struct {
	FeatureRows   int
	PositiveRows  int
	Violations    int64
	Probabilities int
	CostSummaries int
	Predictions   int
	Elapsed       time.Duration
}

// ETLService ETL管道编排：物化 → 写入 → 启发式评分 → 成本指标 → 模型评分 → 报表
type ETLService struct {
	cfg          *config.Config
	materializer *pipeline.Materializer
	features     repository.FeatureWriter
	predictions  repository.PredictionWriter
	scorer       *scoring.Client // 可为 nil（未启用外部评分）
	logger       *zap.Logger
}

// NewETLService 创建ETL服务
func NewETLService(
	cfg *config.Config,
	materializer *pipeline.Materializer,
	features repository.FeatureWriter,
	predictions repository.PredictionWriter,
	scorer *scoring.Client,
	logger *zap.Logger,
) *ETLService {
	return &ETLService{
		cfg:          cfg,
		materializer: materializer,
		features:     features,
		predictions:  predictions,
		scorer:       scorer,
		logger:       logger,
	}
}

// Run 执行一次完整的ETL运行
func (s *ETLService) Run(ctx context.Context) (*RunSummary, error) {
	started := time.Now()
	summary := &RunSummary{}

	opts := pipeline.Options{
		Mode:              feature.Mode(s.cfg.Pipeline.Mode),
		HorizonDays:       s.cfg.Pipeline.HorizonDays,
		Workers:           s.cfg.Pipeline.Workers,
		SensorWindowDays:  s.cfg.Pipeline.SensorWindowDays,
		HistoryWindowDays: s.cfg.Pipeline.HistoryWindowDays,
		RangeStart:        s.cfg.Pipeline.RangeStart,
		RangeEnd:          s.cfg.Pipeline.RangeEnd,
	}

	var result *pipeline.Result
	var histories []*feature.AssetHistory
	var err error
	var asOf time.Time

	if s.cfg.Pipeline.Snapshot {
		asOf = feature.DateOf(time.Now().UTC())
		if opts.RangeEnd != nil {
			asOf = feature.DateOf(*opts.RangeEnd)
		}
		result, histories, err = s.materializer.Snapshot(ctx, opts, asOf)
	} else {
		result, histories, err = s.materializer.Run(ctx, opts)
		asOf = result.RangeEnd
	}
	if err != nil {
		return nil, fmt.Errorf("materialization failed: %w", err)
	}

	summary.FeatureRows = len(result.Rows)
	summary.PositiveRows = result.PositiveCount
	summary.Violations = result.Violations

	if len(result.Rows) == 0 {
		// 零行运行：源数据为空，目标表不动
		s.logger.Warn("ETL run produced no feature rows, sink left untouched")
		summary.Elapsed = time.Since(started)
		return summary, nil
	}

	if s.cfg.Pipeline.Snapshot {
		err = s.features.UpsertSnapshot(ctx, result.Rows)
	} else {
		err = s.features.ReplaceAll(ctx, result.Rows)
	}
	if err != nil {
		return nil, fmt.Errorf("feature write failed: %w", err)
	}

	if err := s.runHeuristics(ctx, histories, asOf, summary); err != nil {
		return nil, err
	}
	if err := s.runCostMetrics(ctx, histories, asOf, summary); err != nil {
		return nil, err
	}
	if err := s.runScoring(ctx, result, histories, asOf, summary); err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(started)
	s.logger.Info("ETL run completed",
		zap.Int("feature_rows", summary.FeatureRows),
		zap.Int("positive_rows", summary.PositiveRows),
		zap.Int64("data_quality_violations", summary.Violations),
		zap.Int("probabilities", summary.Probabilities),
		zap.Int("cost_summaries", summary.CostSummaries),
		zap.Int("predictions", summary.Predictions),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// runHeuristics 启发式故障概率，每资产一行
func (s *ETLService) runHeuristics(ctx context.Context, histories []*feature.AssetHistory, asOf time.Time, summary *RunSummary) error {
	probs := make([]*domain.FailureProbability, 0, len(histories))
	for _, h := range histories {
		probs = append(probs, risk.Evaluate(h, asOf))
	}
	if err := s.predictions.UpsertFailureProbability(ctx, probs); err != nil {
		return fmt.Errorf("probability write failed: %w", err)
	}
	summary.Probabilities = len(probs)
	return nil
}

// runCostMetrics 维护成本指标，每资产一行
func (s *ETLService) runCostMetrics(ctx context.Context, histories []*feature.AssetHistory, asOf time.Time, summary *RunSummary) error {
	summaries := make([]*domain.MaintenanceCostSummary, 0, len(histories))
	for _, h := range histories {
		summaries = append(summaries, cost.Calculate(h, asOf))
	}
	if err := s.predictions.UpsertMaintenanceCost(ctx, summaries); err != nil {
		return fmt.Errorf("cost write failed: %w", err)
	}
	summary.CostSummaries = len(summaries)
	return nil
}

// runScoring 外部模型评分（可选）。评分输入为每资产最新一天的特征行。
func (s *ETLService) runScoring(ctx context.Context, result *pipeline.Result, histories []*feature.AssetHistory, asOf time.Time, summary *RunSummary) error {
	if s.scorer == nil {
		return nil
	}

	// 日度矩阵按 (日, 资产) 排列，最后一段即最新一天
	latest := result.Rows
	if !s.cfg.Pipeline.Snapshot && result.DayCount > 0 {
		latest = result.Rows[(result.DayCount-1)*result.AssetCount:]
	}

	records, err := s.scorer.Score(ctx, latest, asOf)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}
	if err := s.predictions.UpsertPredictions(ctx, records); err != nil {
		return fmt.Errorf("prediction write failed: %w", err)
	}
	summary.Predictions = len(records)

	if s.cfg.Export.Enabled {
		if err := report.WritePredictionReport(records, s.cfg.Export.Path); err != nil {
			return fmt.Errorf("report export failed: %w", err)
		}
		s.logger.Info("Prediction report exported", zap.String("path", s.cfg.Export.Path))
	}
	return nil
}
