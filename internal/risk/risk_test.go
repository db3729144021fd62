package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
	"github.com/carlosrosan/palantir-webapp/internal/feature"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLevelForProbability(t *testing.T) {
	assert.Equal(t, LevelLow, LevelForProbability(0.0))
	assert.Equal(t, LevelLow, LevelForProbability(0.29))
	assert.Equal(t, LevelMedium, LevelForProbability(0.3))
	assert.Equal(t, LevelMedium, LevelForProbability(0.49))
	assert.Equal(t, LevelHigh, LevelForProbability(0.5))
	// 下界为闭区间：0.69 仍是 high，0.70 起算 critical
	assert.Equal(t, LevelHigh, LevelForProbability(0.69))
	assert.Equal(t, LevelCritical, LevelForProbability(0.7))
	assert.Equal(t, LevelCritical, LevelForProbability(1.0))
}

func TestScoreZeroFactors(t *testing.T) {
	// 无故障、无异常读数、刚维护过、无未解决故障、新资产
	recent := 10
	score := Score(Factors{DaysSinceMaintenance: &recent})
	assert.Zero(t, score)
}

func TestScoreComponentCaps(t *testing.T) {
	// 每个分量都打满：0.4 + 0.3 + 0.2 + 0.1 + 0.1 = 1.1，整体封顶 1.0
	score := Score(Factors{
		FailureCount365d:   10,
		AvgSeverityScore:   1.0,
		WarningCount30d:    10,
		CriticalCount30d:   10,
		UnresolvedFailures: 5,
		AssetAgeDays:       10000,
	})
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScoreFailureComponent(t *testing.T) {
	// 1次critical故障：0.1 + 1.0*0.3 = 0.4（恰好到分量上限）
	score := Score(Factors{FailureCount365d: 1, AvgSeverityScore: 1.0, DaysSinceMaintenance: intPtr(10)})
	assert.InDelta(t, 0.4, score, 1e-9)

	// 1次low故障：0.1 + 0.2*0.3 = 0.16
	score = Score(Factors{FailureCount365d: 1, AvgSeverityScore: 0.2, DaysSinceMaintenance: intPtr(10)})
	assert.InDelta(t, 0.16, score, 1e-9)
}

func TestScoreMaintenanceComponent(t *testing.T) {
	base := Factors{}

	// 从未维护：0.2
	assert.InDelta(t, 0.2, Score(base), 1e-9)

	// 间隔 200 天：0.2
	f := base
	f.DaysSinceMaintenance = intPtr(200)
	assert.InDelta(t, 0.2, Score(f), 1e-9)

	// 间隔 120 天：0.1
	f.DaysSinceMaintenance = intPtr(120)
	assert.InDelta(t, 0.1, Score(f), 1e-9)

	// 间隔 30 天：0
	f.DaysSinceMaintenance = intPtr(30)
	assert.Zero(t, Score(f))
}

func TestScoreMonotonicInFailures(t *testing.T) {
	recent := 10
	prev := 0.0
	for count := 0; count <= 5; count++ {
		s := Score(Factors{FailureCount365d: count, AvgSeverityScore: 0.4, DaysSinceMaintenance: &recent})
		assert.GreaterOrEqual(t, s, prev, "score must not decrease with more failures")
		prev = s
	}
}

func TestSeverityScore(t *testing.T) {
	assert.Equal(t, 1.0, severityScore(domain.SeverityCritical))
	assert.Equal(t, 0.7, severityScore(domain.SeverityHigh))
	assert.Equal(t, 0.4, severityScore(domain.SeverityMedium))
	assert.Equal(t, 0.2, severityScore(domain.SeverityLow))
	assert.Equal(t, 0.1, severityScore("unknown"))
}

func TestFactorsFrom(t *testing.T) {
	asset := &domain.Asset{AssetID: 7, InstallationDate: day("2022-05-14")}
	done := day("2023-04-14")
	h := feature.NewAssetHistory(asset,
		[]domain.SensorReading{
			{ReadingTimestamp: day("2023-05-01"), Status: domain.ReadingStatusWarning},
			{ReadingTimestamp: day("2023-05-02"), Status: domain.ReadingStatusCritical},
			// 窗口外
			{ReadingTimestamp: day("2023-01-01"), Status: domain.ReadingStatusCritical},
		},
		[]domain.FailureEvent{
			{FailureDate: day("2023-03-01"), Severity: domain.SeverityHigh, Resolved: false},
			// 超过365天，不进故障计数，但未解决数不限窗口
			{FailureDate: day("2021-01-01"), Severity: domain.SeverityLow, Resolved: false},
		},
		[]domain.MaintenanceOrder{
			{Status: domain.WorkStatusCompleted, CompletionDate: &done},
		},
		nil, nil)

	f := FactorsFrom(h, day("2023-05-14"))
	assert.Equal(t, 1, f.FailureCount365d)
	assert.InDelta(t, 0.7, f.AvgSeverityScore, 1e-9)
	assert.Equal(t, 1, f.WarningCount30d)
	assert.Equal(t, 1, f.CriticalCount30d)
	assert.Equal(t, 2, f.UnresolvedFailures)
	require.NotNil(t, f.DaysSinceMaintenance)
	assert.Equal(t, 30, *f.DaysSinceMaintenance)
	assert.Equal(t, 365, f.AssetAgeDays)
}

func TestEvaluate(t *testing.T) {
	asset := &domain.Asset{AssetID: 7, InstallationDate: day("2020-01-01")}
	h := feature.NewAssetHistory(asset, nil, nil, nil, nil, nil)

	p := Evaluate(h, day("2023-05-14"))
	require.NotNil(t, p)
	assert.Equal(t, 7, p.AssetID)
	assert.Equal(t, day("2023-05-14"), p.CalculationDate)
	// 从未维护 0.2 + 年龄分量 0.1（封顶）= 0.3
	assert.InDelta(t, 0.3, p.ProbabilityScore, 1e-9)
	assert.Equal(t, LevelMedium, p.RiskLevel)
}

func intPtr(v int) *int { return &v }
