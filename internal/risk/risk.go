package risk

import (
	"time"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
	"github.com/carlosrosan/palantir-webapp/internal/feature"
)

// 风险等级
const (
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelCritical = "critical"
)

// LevelForProbability 概率到风险等级的映射，下界为闭区间
func LevelForProbability(p float64) string {
	switch {
	case p >= 0.7:
		return LevelCritical
	case p >= 0.5:
		return LevelHigh
	case p >= 0.3:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Factors 启发式评分的输入因子
type Factors struct {
	FailureCount365d     int      // 近365天故障数
	AvgSeverityScore     float64  // 近365天故障的平均严重度评分，[0,1]
	WarningCount30d      int      // 近30天告警读数
	CriticalCount30d     int      // 近30天严重读数
	DaysSinceMaintenance *int     // 距最近一次已完成维护的天数，nil 表示从未维护
	UnresolvedFailures   int      // 全历史未解决故障数
	AssetAgeDays         int      // 资产服役天数
}

// severityScore 严重等级的数值化评分
func severityScore(severity string) float64 {
	switch severity {
	case domain.SeverityCritical:
		return 1.0
	case domain.SeverityHigh:
		return 0.7
	case domain.SeverityMedium:
		return 0.4
	case domain.SeverityLow:
		return 0.2
	default:
		return 0.1
	}
}

// Score 启发式故障概率，五个分量各自封顶后求和，整体封顶 1.0：
//   - 故障历史 ≤0.4：次数*0.1 + 平均严重度*0.3
//   - 传感器异常 ≤0.3：告警*0.05 + 严重*0.15
//   - 维护间隔 ≤0.2：从未维护或 >180天 记 0.2，>90天 记 0.1
//   - 未解决故障 ≤0.1：每条 0.1
//   - 资产年龄 ≤0.1：天数/3650
func Score(f Factors) float64 {
	failureComponent := float64(f.FailureCount365d)*0.1 + f.AvgSeverityScore*0.3
	if failureComponent > 0.4 {
		failureComponent = 0.4
	}

	sensorComponent := float64(f.WarningCount30d)*0.05 + float64(f.CriticalCount30d)*0.15
	if sensorComponent > 0.3 {
		sensorComponent = 0.3
	}

	maintenanceComponent := 0.0
	if f.DaysSinceMaintenance == nil || *f.DaysSinceMaintenance > 180 {
		maintenanceComponent = 0.2
	} else if *f.DaysSinceMaintenance > 90 {
		maintenanceComponent = 0.1
	}

	unresolvedComponent := float64(f.UnresolvedFailures) * 0.1
	if unresolvedComponent > 0.1 {
		unresolvedComponent = 0.1
	}

	ageComponent := float64(f.AssetAgeDays) / 3650.0
	if ageComponent > 0.1 {
		ageComponent = 0.1
	}

	score := failureComponent + sensorComponent + maintenanceComponent + unresolvedComponent + ageComponent
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

// FactorsFrom 从资产历史提取评分因子。
// 故障历史取近365天，传感器异常取近30天，未解决故障不限窗口。
func FactorsFrom(h *feature.AssetHistory, asOf time.Time) Factors {
	asOf = feature.DateOf(asOf)
	var f Factors

	failures := h.FailuresWindow(asOf.AddDate(0, 0, -365), asOf)
	f.FailureCount365d = len(failures)
	if len(failures) > 0 {
		var sum float64
		for _, fe := range failures {
			sum += severityScore(fe.Severity)
		}
		f.AvgSeverityScore = sum / float64(len(failures))
	}

	for _, r := range h.ReadingsWindow(asOf.AddDate(0, 0, -30), asOf) {
		switch r.Status {
		case domain.ReadingStatusWarning:
			f.WarningCount30d++
		case domain.ReadingStatusCritical:
			f.CriticalCount30d++
		}
	}

	var lastMaintenance *time.Time
	for _, o := range h.Orders {
		if o.Status != domain.WorkStatusCompleted || o.CompletionDate == nil {
			continue
		}
		d := feature.DateOf(*o.CompletionDate)
		if d.After(asOf) {
			continue
		}
		if lastMaintenance == nil || d.After(*lastMaintenance) {
			dd := d
			lastMaintenance = &dd
		}
	}
	if lastMaintenance != nil {
		days := feature.DaysBetween(*lastMaintenance, asOf)
		f.DaysSinceMaintenance = &days
	}

	for _, fe := range h.Failures {
		if !fe.Resolved && !feature.DateOf(fe.FailureDate).After(asOf) {
			f.UnresolvedFailures++
		}
	}

	if age := feature.DaysBetween(h.Asset.InstallationDate, asOf); age > 0 {
		f.AssetAgeDays = age
	}

	return f
}

// Evaluate 计算单资产的启发式故障概率记录
func Evaluate(h *feature.AssetHistory, asOf time.Time) *domain.FailureProbability {
	f := FactorsFrom(h, asOf)
	score := Score(f)
	return &domain.FailureProbability{
		AssetID:              h.Asset.AssetID,
		ProbabilityScore:     score,
		RiskLevel:            LevelForProbability(score),
		CalculationDate:      feature.DateOf(asOf),
		FailureCount:         f.FailureCount365d,
		WarningCount:         f.WarningCount30d,
		CriticalSensorCount:  f.CriticalCount30d,
		DaysSinceMaintenance: f.DaysSinceMaintenance,
		UnresolvedFailures:   f.UnresolvedFailures,
		AssetAgeDays:         f.AssetAgeDays,
	}
}
