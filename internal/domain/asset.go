package domain

import "time"

// Asset 物理资产（泵、电机等）
// 资产生命周期由外部资产登记系统维护，本管道只读快照
type Asset struct {
	AssetID          int
	AssetName        string
	AssetType        string
	Location         string
	InstallationDate time.Time // 日期（无时间部分）
	Manufacturer     *string
	ModelNumber      *string
	Status           string // operational, maintenance, retired
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// 资产状态
const (
	AssetStatusOperational = "operational"
	AssetStatusMaintenance = "maintenance"
	AssetStatusRetired     = "retired"
)

// SensorReading PLC传感器读数（追加写入的事件流，采样间隔不规则）
type SensorReading struct {
	ReadingID        int64
	AssetID          int
	SensorName       string
	SensorType       string // vibration, rpm, power, current, pressure, flow, temperature, ...
	ReadingValue     float64
	Unit             string
	ReadingTimestamp time.Time
	Status           string // normal, warning, critical
}

// 传感器读数状态
const (
	ReadingStatusNormal   = "normal"
	ReadingStatusWarning  = "warning"
	ReadingStatusCritical = "critical"
)

// FailureEvent 资产故障记录（同一天可能有多条）
type FailureEvent struct {
	FailureID      int64
	AssetID        int
	FailureDate    time.Time
	FailureType    string
	Severity       string // low, medium, high, critical
	Description    string
	RootCause      *string
	DowntimeHours  *float64
	Resolved       bool
	ResolutionDate *time.Time
}

// 故障严重等级
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// MaintenanceOrder 维护工单
type MaintenanceOrder struct {
	OrderID        int64
	AssetID        int
	OrderType      string // preventive, corrective, emergency
	Priority       string // low, medium, high, urgent
	Description    string
	ScheduledDate  *time.Time
	StartDate      *time.Time
	CompletionDate *time.Time
	Status         string // pending, in_progress, completed, cancelled
	EstimatedCost  *float64
	ActualCost     *float64
	CreatedAt      time.Time
}

// 工单类型
const (
	OrderTypePreventive = "preventive"
	OrderTypeCorrective = "corrective"
	OrderTypeEmergency  = "emergency"
)

// 工单/任务状态
const (
	WorkStatusPending    = "pending"
	WorkStatusInProgress = "in_progress"
	WorkStatusCompleted  = "completed"
	WorkStatusCancelled  = "cancelled"
	WorkStatusSkipped    = "skipped"
)

// MaintenanceTask 工单下的维护任务（归属工单，通过工单关联资产）
type MaintenanceTask struct {
	TaskID         int64
	OrderID        int64
	AssetID        int // 通过 mantainance_orders 关联得到
	TaskName       string
	Status         string // pending, in_progress, completed, skipped
	EstimatedHours *float64
	ActualHours    *float64
	StartTime      *time.Time
	EndTime        *time.Time
	CreatedAt      time.Time
}

// AssetCost 资产成本记录（维护/维修/升级等支出）
type AssetCost struct {
	CostID   int64
	AssetID  int
	CostType string // maintenance, repair, upgrade, ...
	Amount   float64
	CostDate time.Time
}

// 成本类型
const (
	CostTypeMaintenance = "maintenance"
	CostTypeRepair      = "repair"
	CostTypeUpgrade     = "upgrade"
)
