package domain

import "time"

// PredictionRecord 外部评分器的输出，键为 (asset_id, prediction_date)
type PredictionRecord struct {
	AssetID          int
	PredictionDate   time.Time
	ProbabilityScore float64 // [0,1]
	PredictedFailure bool
	RiskLevel        string // low, medium, high, critical
	ModelVersion     string
}

// FailureProbability 启发式故障概率（faliure_probability 表，每资产一行）
type FailureProbability struct {
	AssetID          int
	ProbabilityScore float64
	RiskLevel        string
	CalculationDate  time.Time

	// 计算因子（便于前端解释评分构成）
	FailureCount         int
	WarningCount         int
	CriticalSensorCount  int
	DaysSinceMaintenance *int
	UnresolvedFailures   int
	AssetAgeDays         int
}

// MaintenanceCostSummary 资产维护成本指标（mantainace_cost 表，每资产一行）
type MaintenanceCostSummary struct {
	AssetID         int
	CalculationDate time.Time

	TotalCost             float64
	TotalTransactions     int
	AvgCostPerTransaction float64

	MaintenanceCost float64
	RepairCost      float64
	UpgradeCost     float64
	OtherCost       float64

	CostLast12M     float64
	CostLast6M      float64
	CostLast3M      float64
	Transactions12M int
	Transactions6M  int
	Transactions3M  int

	AvgMonthlyCost float64
	AvgYearlyCost  float64
	CostPerDay     float64

	CostTrend         string // increasing, decreasing, stable
	LastCostDate      *time.Time
	DaysSinceLastCost *int
	AssetAgeDays      int
}

// 成本趋势
const (
	CostTrendIncreasing = "increasing"
	CostTrendDecreasing = "decreasing"
	CostTrendStable     = "stable"
)
