package cost

import (
	"time"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
	"github.com/carlosrosan/palantir-webapp/internal/feature"
)

// Calculate 计算单资产截至 asOf 的维护成本指标。
// 窗口按月回溯（12/6/3个月），趋势比较近6个月与再前6个月，±20% 为拐点。
func Calculate(h *feature.AssetHistory, asOf time.Time) *domain.MaintenanceCostSummary {
	asOf = feature.DateOf(asOf)
	s := &domain.MaintenanceCostSummary{
		AssetID:         h.Asset.AssetID,
		CalculationDate: asOf,
	}

	if age := feature.DaysBetween(h.Asset.InstallationDate, asOf); age > 0 {
		s.AssetAgeDays = age
	}

	// ===== 全历史汇总与分类 =====
	var lastCostDate *time.Time
	for _, c := range h.Costs {
		d := feature.DateOf(c.CostDate)
		if d.After(asOf) {
			continue
		}
		s.TotalCost += c.Amount
		s.TotalTransactions++
		switch c.CostType {
		case domain.CostTypeMaintenance:
			s.MaintenanceCost += c.Amount
		case domain.CostTypeRepair:
			s.RepairCost += c.Amount
		case domain.CostTypeUpgrade:
			s.UpgradeCost += c.Amount
		default:
			s.OtherCost += c.Amount
		}
		if lastCostDate == nil || d.After(*lastCostDate) {
			dd := d
			lastCostDate = &dd
		}
	}
	if s.TotalTransactions > 0 {
		s.AvgCostPerTransaction = s.TotalCost / float64(s.TotalTransactions)
	}
	if lastCostDate != nil {
		s.LastCostDate = lastCostDate
		days := feature.DaysBetween(*lastCostDate, asOf)
		s.DaysSinceLastCost = &days
	}

	// ===== 滚动月度窗口 =====
	sumWindow := func(start, end time.Time) (float64, int) {
		var sum float64
		var n int
		for _, c := range h.CostsWindow(start, end) {
			sum += c.Amount
			n++
		}
		return sum, n
	}
	s.CostLast12M, s.Transactions12M = sumWindow(asOf.AddDate(0, -12, 0), asOf)
	s.CostLast6M, s.Transactions6M = sumWindow(asOf.AddDate(0, -6, 0), asOf)
	s.CostLast3M, s.Transactions3M = sumWindow(asOf.AddDate(0, -3, 0), asOf)

	// ===== 均值指标 =====
	if s.CostLast12M > 0 {
		s.AvgMonthlyCost = s.CostLast12M / 12.0
	}
	if s.AssetAgeDays > 0 {
		s.AvgYearlyCost = s.TotalCost / (float64(s.AssetAgeDays) / 365.0)
		s.CostPerDay = s.TotalCost / float64(s.AssetAgeDays)
	}

	// ===== 趋势：近6个月 vs 再前6个月 =====
	prev6M, _ := sumWindow(asOf.AddDate(0, -12, 0), asOf.AddDate(0, -6, -1))
	s.CostTrend = domain.CostTrendStable
	if prev6M > 0 {
		pct := (s.CostLast6M - prev6M) / prev6M * 100
		if pct > 20 {
			s.CostTrend = domain.CostTrendIncreasing
		} else if pct < -20 {
			s.CostTrend = domain.CostTrendDecreasing
		}
	} else if s.CostLast6M > 0 {
		s.CostTrend = domain.CostTrendIncreasing
	}

	return s
}
