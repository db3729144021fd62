package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
	"github.com/carlosrosan/palantir-webapp/internal/risk"
)

// featurePayload 评分请求中的单资产特征
type featurePayload struct {
	AssetID  int                    `json:"asset_id"`
	AsOfDate string                 `json:"as_of_date"`
	Features map[string]interface{} `json:"features"`
}

// scoreRequest 评分请求体
type scoreRequest struct {
	Rows []featurePayload `json:"rows"`
}

// scoredRow 评分响应中的单条预测
type scoredRow struct {
	AssetID          int     `json:"asset_id"`
	ProbabilityScore float64 `json:"probability_score"`
	PredictedFailure bool    `json:"predicted_failure"`
	RiskLevel        string  `json:"risk_level"`
}

// scoreResponse 评分响应体
type scoreResponse struct {
	ModelVersion string      `json:"model_version"`
	Predictions  []scoredRow `json:"predictions"`
}

// Client 外部模型评分服务客户端
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient 创建评分客户端
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)
	return &Client{http: c, logger: logger}
}

// Score 把特征快照发给评分服务，返回逐资产的预测记录。
// 分数越界 [0,1] 视为协议错误；响应缺 risk_level 时按概率本地派生。
func (c *Client) Score(ctx context.Context, rows []*domain.FeatureRow, predictionDate time.Time) ([]*domain.PredictionRecord, error) {
	payload := scoreRequest{Rows: make([]featurePayload, 0, len(rows))}
	for _, r := range rows {
		payload.Rows = append(payload.Rows, featurePayload{
			AssetID:  r.AssetID,
			AsOfDate: r.AsOfDate.Format("2006-01-02"),
			Features: featureMap(r),
		})
	}

	var result scoreResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/v1/score")
	if err != nil {
		return nil, fmt.Errorf("scoring request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("scoring service returned %d: %s", resp.StatusCode(), resp.String())
	}
	if result.ModelVersion == "" {
		return nil, fmt.Errorf("scoring response missing model_version")
	}

	records := make([]*domain.PredictionRecord, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		if p.ProbabilityScore < 0 || p.ProbabilityScore > 1 {
			return nil, fmt.Errorf("scoring response out of range for asset %d: %f",
				p.AssetID, p.ProbabilityScore)
		}
		level := p.RiskLevel
		if level == "" {
			level = risk.LevelForProbability(p.ProbabilityScore)
		}
		records = append(records, &domain.PredictionRecord{
			AssetID:          p.AssetID,
			PredictionDate:   predictionDate,
			ProbabilityScore: p.ProbabilityScore,
			PredictedFailure: p.PredictedFailure,
			RiskLevel:        level,
			ModelVersion:     result.ModelVersion,
		})
	}

	c.logger.Info("Scoring completed",
		zap.String("model_version", result.ModelVersion),
		zap.Int("predictions", len(records)),
	)
	return records, nil
}

// featureMap 序列化为评分服务的特征字典，nil 指针输出 JSON null
func featureMap(r *domain.FeatureRow) map[string]interface{} {
	return map[string]interface{}{
		"sensor_vibration_avg":       r.SensorVibrationAvg,
		"sensor_rpm_avg":             r.SensorRPMAvg,
		"sensor_power_avg":           r.SensorPowerAvg,
		"sensor_current_avg":         r.SensorCurrentAvg,
		"sensor_pressure_avg":        r.SensorPressureAvg,
		"sensor_flow_avg":            r.SensorFlowAvg,
		"sensor_total_readings_30d":  r.SensorTotalReadings30d,
		"sensor_warning_count_30d":   r.SensorWarningCount30d,
		"sensor_critical_count_30d":  r.SensorCriticalCount30d,
		"failure_count_365d":         r.FailureCount365d,
		"failure_unresolved_count":   r.FailureUnresolvedCount,
		"task_total_365d":            r.TaskTotal365d,
		"order_total_365d":           r.OrderTotal365d,
		"days_since_last_failure":    r.DaysSinceLastFailure,
		"days_since_last_inspection": r.DaysSinceLastInspection,
		"asset_service_days":         r.AssetServiceDays,
	}
}
