package feature

import (
	"sort"
	"time"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

// DateOf 截断到UTC日期（00:00:00）。窗口边界一律按时间戳的日期部分比较。
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AssetHistory 单个资产的全量事件历史，运行开始时一次性加载，
// 之后所有 (asset, day) 单元的窗口查询都在内存中完成，不再回查事件库。
// 读数和故障按时间排序，窗口切片用二分查找；工单/任务的窗口匹配
// 是两个候选时间字段的逻辑或，无法按单键二分，量级也小，直接线性过滤。
type AssetHistory struct {
	Asset    *domain.Asset
	Readings []domain.SensorReading
	Failures []domain.FailureEvent
	Orders   []domain.MaintenanceOrder
	Tasks    []domain.MaintenanceTask
	Costs    []domain.AssetCost
}

// NewAssetHistory 构建资产历史，内部完成排序
func NewAssetHistory(
	asset *domain.Asset,
	readings []domain.SensorReading,
	failures []domain.FailureEvent,
	orders []domain.MaintenanceOrder,
	tasks []domain.MaintenanceTask,
	costs []domain.AssetCost,
) *AssetHistory {
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].ReadingTimestamp.Before(readings[j].ReadingTimestamp)
	})
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].FailureDate.Before(failures[j].FailureDate)
	})
	sort.Slice(costs, func(i, j int) bool {
		return costs[i].CostDate.Before(costs[j].CostDate)
	})

	return &AssetHistory{
		Asset:    asset,
		Readings: readings,
		Failures: failures,
		Orders:   orders,
		Tasks:    tasks,
		Costs:    costs,
	}
}

// ReadingsWindow 闭区间 [start, end]（按日期部分）内的读数
func (h *AssetHistory) ReadingsWindow(start, end time.Time) []domain.SensorReading {
	lo := DateOf(start)
	hi := DateOf(end).AddDate(0, 0, 1)

	first := sort.Search(len(h.Readings), func(i int) bool {
		return !h.Readings[i].ReadingTimestamp.Before(lo)
	})
	last := sort.Search(len(h.Readings), func(i int) bool {
		return !h.Readings[i].ReadingTimestamp.Before(hi)
	})
	return h.Readings[first:last]
}

// FailuresWindow 闭区间 [start, end] 内的故障
func (h *AssetHistory) FailuresWindow(start, end time.Time) []domain.FailureEvent {
	lo := DateOf(start)
	hi := DateOf(end).AddDate(0, 0, 1)

	first := sort.Search(len(h.Failures), func(i int) bool {
		return !h.Failures[i].FailureDate.Before(lo)
	})
	last := sort.Search(len(h.Failures), func(i int) bool {
		return !h.Failures[i].FailureDate.Before(hi)
	})
	return h.Failures[first:last]
}

// LastFailureOnOrBefore 不晚于 asOf 的最近故障日期，无则返回 nil
func (h *AssetHistory) LastFailureOnOrBefore(asOf time.Time) *time.Time {
	hi := DateOf(asOf).AddDate(0, 0, 1)
	idx := sort.Search(len(h.Failures), func(i int) bool {
		return !h.Failures[i].FailureDate.Before(hi)
	})
	if idx == 0 {
		return nil
	}
	d := DateOf(h.Failures[idx-1].FailureDate)
	return &d
}

// inDateRange 时间戳的日期部分是否落在闭区间 [start, end]
func inDateRange(t *time.Time, start, end time.Time) bool {
	if t == nil {
		return false
	}
	d := DateOf(*t)
	return !d.Before(DateOf(start)) && !d.After(DateOf(end))
}

// OrdersWindow 闭区间内的工单：scheduled_date 或 created_at 任一落在区间即匹配
// （沿用源系统的双时间字段逻辑或）
func (h *AssetHistory) OrdersWindow(start, end time.Time) []domain.MaintenanceOrder {
	var result []domain.MaintenanceOrder
	for _, o := range h.Orders {
		created := o.CreatedAt
		if inDateRange(o.ScheduledDate, start, end) || inDateRange(&created, start, end) {
			result = append(result, o)
		}
	}
	return result
}

// TasksWindow 闭区间内的任务：start_time 或 created_at 任一落在区间即匹配
func (h *AssetHistory) TasksWindow(start, end time.Time) []domain.MaintenanceTask {
	var result []domain.MaintenanceTask
	for _, t := range h.Tasks {
		created := t.CreatedAt
		if inDateRange(t.StartTime, start, end) || inDateRange(&created, start, end) {
			result = append(result, t)
		}
	}
	return result
}

// LastPreventiveCompletionOnOrBefore 不晚于 asOf 的最近一次已完成预防性维护的完成日期
func (h *AssetHistory) LastPreventiveCompletionOnOrBefore(asOf time.Time) *time.Time {
	cutoff := DateOf(asOf)
	var latest *time.Time
	for _, o := range h.Orders {
		if o.OrderType != domain.OrderTypePreventive || o.Status != domain.WorkStatusCompleted {
			continue
		}
		if o.CompletionDate == nil {
			continue
		}
		d := DateOf(*o.CompletionDate)
		if d.After(cutoff) {
			continue
		}
		if latest == nil || d.After(*latest) {
			dd := d
			latest = &dd
		}
	}
	return latest
}

// CostsWindow 闭区间 [start, end] 内的成本记录
func (h *AssetHistory) CostsWindow(start, end time.Time) []domain.AssetCost {
	lo := DateOf(start)
	hi := DateOf(end).AddDate(0, 0, 1)

	first := sort.Search(len(h.Costs), func(i int) bool {
		return !h.Costs[i].CostDate.Before(lo)
	})
	last := sort.Search(len(h.Costs), func(i int) bool {
		return !h.Costs[i].CostDate.Before(hi)
	})
	return h.Costs[first:last]
}

// DaysBetween 两个日期之间的天数（b - a，按日期部分）
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
