package domain

import "time"

// FeatureRow 特征矩阵的一行，键为 (asset_id, as_of_date)，每资产每天至多一行。
//
// 空值策略（逐字段声明，避免存储层隐式转换）：
//   - 指针字段为 nil 表示窗口内无可计算数据（NULL 写入）
//   - 窄模式六个传感器均值：窗口内无该类型读数时保持 nil，永不补零
//   - 广模式展示型均值/极值（sensor_avg_*、sensor_max/min/std、failure_avg_downtime、
//     task_avg_*_hours、order_avg_*_cost）：抽取阶段为 nil，最终装配时由
//     ApplyAbsentPolicy 统一补 0（沿用"缺失记 0"的业务口径）
//   - days_since_* 间隔字段：无符合条件事件时保持 nil
//   - 计数与金额/工时总和：无符合条件行时为 0，非 NULL
//   - asset_service_days/hours：安装日期晚于 as_of_date 属数据质量违规，置 nil 并计数上报
type FeatureRow struct {
	AssetID  int
	AsOfDate time.Time // 特征可见性的时间截止点（含当天）

	// ===== 窄模式：六类连续传感器的30天均值 =====
	SensorVibrationAvg *float64
	SensorRPMAvg       *float64
	SensorPowerAvg     *float64
	SensorCurrentAvg   *float64
	SensorPressureAvg  *float64
	SensorFlowAvg      *float64

	// ===== 广模式：30天传感器统计 =====
	SensorTotalReadings30d int
	SensorWarningCount30d  int
	SensorCriticalCount30d int
	SensorAvgNormalValue   *float64
	SensorAvgWarningValue  *float64
	SensorAvgCriticalValue *float64
	SensorMaxValue         *float64
	SensorMinValue         *float64
	SensorStdValue         *float64 // 总体标准差

	// ===== 广模式：365天故障统计 =====
	FailureCount365d       int
	FailureCriticalCount   int
	FailureHighCount       int
	FailureMediumCount     int
	FailureLowCount        int
	FailureAvgDowntime     *float64
	FailureTotalDowntime   float64
	FailureUnresolvedCount int // 365天窗口内未解决故障数

	// ===== 广模式：365天维护任务统计 =====
	TaskTotal365d         int
	TaskCompletedCount    int
	TaskInProgressCount   int
	TaskPendingCount      int
	TaskAvgEstimatedHours *float64
	TaskAvgActualHours    *float64
	TaskTotalHours        float64

	// ===== 广模式：365天维护工单统计 =====
	OrderTotal365d        int
	OrderPreventiveCount  int
	OrderCorrectiveCount  int
	OrderEmergencyCount   int
	OrderCompletedCount   int
	OrderAvgEstimatedCost *float64
	OrderAvgActualCost    *float64
	OrderTotalActualCost  float64

	// ===== 间隔特征 =====
	DaysSinceLastFailure    *int
	DaysSinceLastTask       *int
	DaysSinceLastOrder      *int
	DaysSinceLastInspection *int // 已完成的预防性工单

	// ===== 资产服役时长 =====
	AssetServiceDays  *int
	AssetServiceHours *int

	// ===== 前瞻标签 =====
	// 仅由 (as_of_date, as_of_date+horizon] 内的故障决定，as_of_date 当天及之前的
	// 信息不得进入标签
	WillFailWithinHorizon bool
}

// ApplyAbsentPolicy 最终装配阶段的补零：广模式展示型均值/极值字段缺失记 0。
// 窄模式传感器均值与 days_since_* 间隔字段不在此列，保持 NULL。
func (r *FeatureRow) ApplyAbsentPolicy() {
	zero := func(p **float64) {
		if *p == nil {
			v := 0.0
			*p = &v
		}
	}
	zero(&r.SensorAvgNormalValue)
	zero(&r.SensorAvgWarningValue)
	zero(&r.SensorAvgCriticalValue)
	zero(&r.SensorMaxValue)
	zero(&r.SensorMinValue)
	zero(&r.SensorStdValue)
	zero(&r.FailureAvgDowntime)
	zero(&r.TaskAvgEstimatedHours)
	zero(&r.TaskAvgActualHours)
	zero(&r.OrderAvgEstimatedCost)
	zero(&r.OrderAvgActualCost)
}
