package report

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

// PredictionReportHeader 预测汇总报表表头
var PredictionReportHeader = []string{
	"Asset ID",
	"Prediction Date",
	"Probability Score",
	"Predicted Failure",
	"Risk Level",
	"Model Version",
}

// GeneratePredictionReport 生成预测汇总 Excel 文件。
// 行按 (probability_score 降序, asset_id 升序) 排列，高风险资产排在前面。
func GeneratePredictionReport(records []*domain.PredictionRecord) ([]byte, error) {
	sorted := make([]*domain.PredictionRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ProbabilityScore != sorted[j].ProbabilityScore {
			return sorted[i].ProbabilityScore > sorted[j].ProbabilityScore
		}
		return sorted[i].AssetID < sorted[j].AssetID
	})

	f := excelize.NewFile()
	// Note: Don't defer Close() here, because Write needs the file to be open

	sheetName := "Failure Predictions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range PredictionReportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	columnWidths := []float64{12, 18, 18, 16, 12, 16}
	for i := range PredictionReportHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, p := range sorted {
		row := rowIdx + 2
		values := []interface{}{
			p.AssetID,
			p.PredictionDate.Format("2006-01-02"),
			p.ProbabilityScore,
			p.PredictedFailure,
			p.RiskLevel,
			p.ModelVersion,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}

// WritePredictionReport 生成报表并落盘
func WritePredictionReport(records []*domain.PredictionRecord, path string) error {
	data, err := GeneratePredictionReport(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
