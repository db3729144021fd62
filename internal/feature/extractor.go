package feature

import (
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

// Mode 抽取模式。源系统存在多个近似重复的抽取变体，这里收敛为
// 一个带模式开关的抽取器，窗口逻辑只实现一次。
type Mode string

const (
	// ModeNarrow 窄模式：仅六类连续传感器的30天均值
	ModeNarrow Mode = "narrow"
	// ModeBroad 广模式：全量统计+分类明细
	ModeBroad Mode = "broad"
)

// NarrowSensorTypes 窄模式覆盖的连续传感器类型
var NarrowSensorTypes = []string{"vibration", "rpm", "power", "current", "pressure", "flow"}

// Extractor 时间窗口特征抽取器。给定 (资产历史, as_of_date) 产出特征块。
// 特征列只能使用 as_of_date 当天及之前的数据（含当天，严格截止）。
type Extractor struct {
	mode              Mode
	sensorWindowDays  int // 传感器统计窗口，默认30天
	historyWindowDays int // 故障/维护统计窗口，默认365天
	logger            *zap.Logger

	// 数据质量违规计数（如安装日期晚于 as_of_date），跨 worker 并发累加
	violations int64
}

// NewExtractor 创建特征抽取器
func NewExtractor(mode Mode, sensorWindowDays, historyWindowDays int, logger *zap.Logger) *Extractor {
	if sensorWindowDays <= 0 {
		sensorWindowDays = 30
	}
	if historyWindowDays <= 0 {
		historyWindowDays = 365
	}
	return &Extractor{
		mode:              mode,
		sensorWindowDays:  sensorWindowDays,
		historyWindowDays: historyWindowDays,
		logger:            logger,
	}
}

// Mode 返回抽取模式
func (e *Extractor) Mode() Mode {
	return e.mode
}

// Violations 返回累计的数据质量违规数
func (e *Extractor) Violations() int64 {
	return atomic.LoadInt64(&e.violations)
}

// Extract 计算 (asset, as_of_date) 单元的特征块。标签由调用方通过
// FailureIndex 另行填充。窗口内无数据时仍返回行（不丢弃）。
func (e *Extractor) Extract(h *AssetHistory, asOf time.Time) *domain.FeatureRow {
	asOf = DateOf(asOf)
	row := &domain.FeatureRow{
		AssetID:  h.Asset.AssetID,
		AsOfDate: asOf,
	}

	e.extractRecency(h, asOf, row)
	e.extractServiceAge(h, asOf, row)

	switch e.mode {
	case ModeNarrow:
		e.extractNarrow(h, asOf, row)
	default:
		e.extractBroad(h, asOf, row)
		// 广模式展示型均值缺失补0（见 domain.FeatureRow 的空值策略）
		row.ApplyAbsentPolicy()
	}

	return row
}

// extractNarrow 窄模式：每类传感器在30天窗口内的 reading_value 均值。
// 窗口内无该类型读数时保持 nil，不补零。
func (e *Extractor) extractNarrow(h *AssetHistory, asOf time.Time, row *domain.FeatureRow) {
	start := asOf.AddDate(0, 0, -e.sensorWindowDays)
	readings := h.ReadingsWindow(start, asOf)

	sums := make(map[string]float64, len(NarrowSensorTypes))
	counts := make(map[string]int, len(NarrowSensorTypes))
	for _, r := range readings {
		sums[r.SensorType] += r.ReadingValue
		counts[r.SensorType]++
	}

	avg := func(sensorType string) *float64 {
		n := counts[sensorType]
		if n == 0 {
			return nil
		}
		v := sums[sensorType] / float64(n)
		return &v
	}

	row.SensorVibrationAvg = avg("vibration")
	row.SensorRPMAvg = avg("rpm")
	row.SensorPowerAvg = avg("power")
	row.SensorCurrentAvg = avg("current")
	row.SensorPressureAvg = avg("pressure")
	row.SensorFlowAvg = avg("flow")
}

// extractBroad 广模式：30天传感器统计 + 365天故障/维护统计
func (e *Extractor) extractBroad(h *AssetHistory, asOf time.Time, row *domain.FeatureRow) {
	sensorStart := asOf.AddDate(0, 0, -e.sensorWindowDays)
	historyStart := asOf.AddDate(0, 0, -e.historyWindowDays)

	// ===== 传感器统计（30天窗口，不分类型） =====
	readings := h.ReadingsWindow(sensorStart, asOf)
	row.SensorTotalReadings30d = len(readings)

	var all, normal, warning, critical []float64
	for _, r := range readings {
		all = append(all, r.ReadingValue)
		switch r.Status {
		case domain.ReadingStatusWarning:
			row.SensorWarningCount30d++
			warning = append(warning, r.ReadingValue)
		case domain.ReadingStatusCritical:
			row.SensorCriticalCount30d++
			critical = append(critical, r.ReadingValue)
		default:
			normal = append(normal, r.ReadingValue)
		}
	}
	row.SensorAvgNormalValue = mean(normal)
	row.SensorAvgWarningValue = mean(warning)
	row.SensorAvgCriticalValue = mean(critical)
	row.SensorMaxValue = maxOf(all)
	row.SensorMinValue = minOf(all)
	row.SensorStdValue = popStdDev(all)

	// ===== 故障统计（365天窗口） =====
	failures := h.FailuresWindow(historyStart, asOf)
	row.FailureCount365d = len(failures)

	var downtimes []float64
	for _, f := range failures {
		switch f.Severity {
		case domain.SeverityCritical:
			row.FailureCriticalCount++
		case domain.SeverityHigh:
			row.FailureHighCount++
		case domain.SeverityMedium:
			row.FailureMediumCount++
		case domain.SeverityLow:
			row.FailureLowCount++
		}
		if f.DowntimeHours != nil {
			downtimes = append(downtimes, *f.DowntimeHours)
			row.FailureTotalDowntime += *f.DowntimeHours
		}
		if !f.Resolved {
			row.FailureUnresolvedCount++
		}
	}
	row.FailureAvgDowntime = mean(downtimes)

	// ===== 维护任务统计（365天窗口，经工单关联资产） =====
	tasks := h.TasksWindow(historyStart, asOf)
	row.TaskTotal365d = len(tasks)

	var estHours, actHours []float64
	var lastTaskEnd *time.Time
	for _, t := range tasks {
		switch t.Status {
		case domain.WorkStatusCompleted:
			row.TaskCompletedCount++
		case domain.WorkStatusInProgress:
			row.TaskInProgressCount++
		case domain.WorkStatusPending:
			row.TaskPendingCount++
		}
		if t.EstimatedHours != nil {
			estHours = append(estHours, *t.EstimatedHours)
		}
		if t.ActualHours != nil {
			actHours = append(actHours, *t.ActualHours)
			row.TaskTotalHours += *t.ActualHours
		}
		if t.EndTime != nil && !DateOf(*t.EndTime).After(asOf) {
			d := DateOf(*t.EndTime)
			if lastTaskEnd == nil || d.After(*lastTaskEnd) {
				lastTaskEnd = &d
			}
		}
	}
	row.TaskAvgEstimatedHours = mean(estHours)
	row.TaskAvgActualHours = mean(actHours)
	if lastTaskEnd != nil {
		days := DaysBetween(*lastTaskEnd, asOf)
		row.DaysSinceLastTask = &days
	}

	// ===== 维护工单统计（365天窗口） =====
	orders := h.OrdersWindow(historyStart, asOf)
	row.OrderTotal365d = len(orders)

	var estCosts, actCosts []float64
	var lastOrderCompletion *time.Time
	for _, o := range orders {
		switch o.OrderType {
		case domain.OrderTypePreventive:
			row.OrderPreventiveCount++
		case domain.OrderTypeCorrective:
			row.OrderCorrectiveCount++
		case domain.OrderTypeEmergency:
			row.OrderEmergencyCount++
		}
		if o.Status == domain.WorkStatusCompleted {
			row.OrderCompletedCount++
		}
		if o.EstimatedCost != nil {
			estCosts = append(estCosts, *o.EstimatedCost)
		}
		if o.ActualCost != nil {
			actCosts = append(actCosts, *o.ActualCost)
			row.OrderTotalActualCost += *o.ActualCost
		}
		if o.CompletionDate != nil && !DateOf(*o.CompletionDate).After(asOf) {
			d := DateOf(*o.CompletionDate)
			if lastOrderCompletion == nil || d.After(*lastOrderCompletion) {
				lastOrderCompletion = &d
			}
		}
	}
	row.OrderAvgEstimatedCost = mean(estCosts)
	row.OrderAvgActualCost = mean(actCosts)
	if lastOrderCompletion != nil {
		days := DaysBetween(*lastOrderCompletion, asOf)
		row.DaysSinceLastOrder = &days
	}
}

// extractRecency 间隔特征：距最近故障/最近预防性维护完成的天数。
// 均取 as_of_date 及之前的全历史，无符合条件事件时保持 nil。
func (e *Extractor) extractRecency(h *AssetHistory, asOf time.Time, row *domain.FeatureRow) {
	if last := h.LastFailureOnOrBefore(asOf); last != nil {
		days := DaysBetween(*last, asOf)
		row.DaysSinceLastFailure = &days
	}
	if last := h.LastPreventiveCompletionOnOrBefore(asOf); last != nil {
		days := DaysBetween(*last, asOf)
		row.DaysSinceLastInspection = &days
	}
}

// extractServiceAge 服役时长。安装日期晚于 as_of_date 属数据质量违规：
// 字段置 nil、计数上报，行本身保留。
func (e *Extractor) extractServiceAge(h *AssetHistory, asOf time.Time, row *domain.FeatureRow) {
	days := DaysBetween(h.Asset.InstallationDate, asOf)
	if days < 0 {
		atomic.AddInt64(&e.violations, 1)
		e.logger.Warn("Data quality violation: installation date after as-of date",
			zap.Int("asset_id", h.Asset.AssetID),
			zap.Time("installation_date", h.Asset.InstallationDate),
			zap.Time("as_of_date", asOf),
		)
		return
	}
	hours := days * 24
	row.AssetServiceDays = &days
	row.AssetServiceHours = &hours
}

// mean 均值，空集返回 nil（不返回0）
func mean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	m := sum / float64(len(vals))
	return &m
}

func maxOf(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return &m
}

func minOf(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return &m
}

// popStdDev 总体标准差（除以N，不是N-1）
func popStdDev(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	m := *mean(vals)
	var ss float64
	for _, v := range vals {
		d := v - m
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(vals)))
	return &sd
}
