package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
	"github.com/carlosrosan/palantir-webapp/internal/feature"
	"github.com/carlosrosan/palantir-webapp/internal/repository"
)

// Options 物化运行参数
type Options struct {
	Mode              feature.Mode
	HorizonDays       int // 标签前瞻窗口，默认7天
	Workers           int // 并发 worker 数，默认4
	SensorWindowDays  int
	HistoryWindowDays int

	// 日期区间覆盖。未设置时从读数表的实际日期跨度推导。
	RangeStart *time.Time
	RangeEnd   *time.Time
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 7
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return opts
}

// Result 物化结果。Rows 按 (as_of_date, asset_id) 升序，与 worker 数无关。
type Result struct {
	Rows          []*domain.FeatureRow
	AssetCount    int
	DayCount      int
	PositiveCount int // will_fail_within_horizon = true 的行数
	Violations    int64
	RangeStart    time.Time
	RangeEnd      time.Time
}

// Materializer 特征矩阵物化器：资产×天的全量笛卡尔网格。
// 每资产的历史在运行开始时一次性加载，逐单元计算全部在内存完成。
type Materializer struct {
	store  repository.EventStore
	logger *zap.Logger
}

// NewMaterializer 创建物化器
func NewMaterializer(store repository.EventStore, logger *zap.Logger) *Materializer {
	return &Materializer{store: store, logger: logger}
}

// loadHistories 预加载全部资产的完整历史。资产记录缺失时跳过该资产并告警，
// 事件库错误则中断整个运行。
func (m *Materializer) loadHistories(ctx context.Context, assetIDs []int) ([]*feature.AssetHistory, error) {
	histories := make([]*feature.AssetHistory, 0, len(assetIDs))
	for _, id := range assetIDs {
		asset, err := m.store.Asset(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			m.logger.Warn("Asset record missing, skipping", zap.Int("asset_id", id))
			continue
		}
		if err != nil {
			return nil, err
		}

		readings, err := m.store.SensorReadings(ctx, id, nil, nil)
		if err != nil {
			return nil, err
		}
		failures, err := m.store.Failures(ctx, id, nil, nil)
		if err != nil {
			return nil, err
		}
		orders, err := m.store.MaintenanceOrders(ctx, id, nil, nil)
		if err != nil {
			return nil, err
		}
		tasks, err := m.store.MaintenanceTasks(ctx, id, nil, nil)
		if err != nil {
			return nil, err
		}
		costs, err := m.store.AssetCosts(ctx, id, nil, nil)
		if err != nil {
			return nil, err
		}

		histories = append(histories, feature.NewAssetHistory(asset, readings, failures, orders, tasks, costs))
	}
	return histories, nil
}

// resolveRange 确定物化日期区间：显式覆盖优先，否则取读数表的日期跨度。
// 两者都没有时 ok=false（零行运行）。
func (m *Materializer) resolveRange(ctx context.Context, opts Options) (time.Time, time.Time, bool, error) {
	if opts.RangeStart != nil && opts.RangeEnd != nil {
		return feature.DateOf(*opts.RangeStart), feature.DateOf(*opts.RangeEnd), true, nil
	}

	min, max, ok, err := m.store.ReadingDateSpan(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if !ok {
		return time.Time{}, time.Time{}, false, nil
	}

	start, end := feature.DateOf(min), feature.DateOf(max)
	if opts.RangeStart != nil {
		start = feature.DateOf(*opts.RangeStart)
	}
	if opts.RangeEnd != nil {
		end = feature.DateOf(*opts.RangeEnd)
	}
	return start, end, true, nil
}

// Run 物化整个特征矩阵。行序固定为 (as_of_date, asset_id) 升序，
// 并发度只影响耗时，不影响结果。加载过的资产历史一并返回，
// 供后续启发式评分与成本计算复用，不再回查事件库。
func (m *Materializer) Run(ctx context.Context, opts Options) (*Result, []*feature.AssetHistory, error) {
	opts = opts.withDefaults()

	assetIDs, err := m.store.AllAssetIDs(ctx)
	if err != nil {
		return nil, nil, err
	}

	start, end, ok, err := m.resolveRange(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if !ok || end.Before(start) || len(assetIDs) == 0 {
		m.logger.Warn("Nothing to materialize",
			zap.Int("assets", len(assetIDs)),
			zap.Bool("range_resolved", ok),
		)
		return &Result{Rows: []*domain.FeatureRow{}}, nil, nil
	}

	histories, err := m.loadHistories(ctx, assetIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(histories) == 0 {
		return &Result{Rows: []*domain.FeatureRow{}}, nil, nil
	}

	failureIndex := feature.NewEmptyFailureIndex()
	for _, h := range histories {
		failureIndex.AddHistory(h)
	}

	days := feature.DaysBetween(start, end) + 1
	extractor := feature.NewExtractor(opts.Mode, opts.SensorWindowDays, opts.HistoryWindowDays, m.logger)

	m.logger.Info("Materializing feature matrix",
		zap.String("mode", string(opts.Mode)),
		zap.Int("assets", len(histories)),
		zap.Int("days", days),
		zap.Time("range_start", start),
		zap.Time("range_end", end),
		zap.Int("workers", opts.Workers),
	)

	// 行位置由 (日序号, 资产序号) 决定，worker 各写各的槽位，无需加锁
	rows := make([]*domain.FeatureRow, days*len(histories))

	jobs := make(chan int)
	var wg sync.WaitGroup
	var completed int64
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for assetIdx := range jobs {
				h := histories[assetIdx]
				for dayIdx := 0; dayIdx < days; dayIdx++ {
					asOf := start.AddDate(0, 0, dayIdx)
					row := extractor.Extract(h, asOf)
					row.WillFailWithinHorizon = failureIndex.WillFailWithinHorizon(
						h.Asset.AssetID, asOf, opts.HorizonDays)
					rows[dayIdx*len(histories)+assetIdx] = row
				}
				done := atomic.AddInt64(&completed, 1)
				m.logger.Info("Asset materialized",
					zap.Int("asset_id", h.Asset.AssetID),
					zap.Int("rows", days),
					zap.Int64("assets_done", done),
					zap.Int("assets_total", len(histories)),
				)
			}
		}()
	}

	for assetIdx := range histories {
		select {
		case jobs <- assetIdx:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, nil, fmt.Errorf("materialization cancelled: %w", ctx.Err())
		}
	}
	close(jobs)
	wg.Wait()

	result := &Result{
		Rows:       rows,
		AssetCount: len(histories),
		DayCount:   days,
		Violations: extractor.Violations(),
		RangeStart: start,
		RangeEnd:   end,
	}
	for _, r := range rows {
		if r.WillFailWithinHorizon {
			result.PositiveCount++
		}
	}

	m.logger.Info("Feature matrix materialized",
		zap.Int("rows", len(rows)),
		zap.Int("positives", result.PositiveCount),
		zap.Int64("data_quality_violations", result.Violations),
	)
	return result, histories, nil
}

// Snapshot 快照模式：每资产一行，as_of_date 固定为给定日期（通常是今天）。
// 不计算标签，产出用于在线推理输入。
func (m *Materializer) Snapshot(ctx context.Context, opts Options, asOf time.Time) (*Result, []*feature.AssetHistory, error) {
	opts = opts.withDefaults()
	asOf = feature.DateOf(asOf)

	assetIDs, err := m.store.AllAssetIDs(ctx)
	if err != nil {
		return nil, nil, err
	}
	histories, err := m.loadHistories(ctx, assetIDs)
	if err != nil {
		return nil, nil, err
	}

	extractor := feature.NewExtractor(opts.Mode, opts.SensorWindowDays, opts.HistoryWindowDays, m.logger)
	rows := make([]*domain.FeatureRow, len(histories))
	for i, h := range histories {
		rows[i] = extractor.Extract(h, asOf)
	}

	m.logger.Info("Feature snapshot materialized",
		zap.Int("assets", len(histories)),
		zap.Time("as_of_date", asOf),
	)
	return &Result{
		Rows:       rows,
		AssetCount: len(histories),
		DayCount:   1,
		Violations: extractor.Violations(),
		RangeStart: asOf,
		RangeEnd:   asOf,
	}, histories, nil
}
