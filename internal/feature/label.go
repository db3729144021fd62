package feature

import (
	"sort"
	"time"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

// FailureIndex 标签查询索引：每资产的故障日期（截断到日、升序）。
// 全量构建一次，之后每个 (asset, day) 单元的标签判定为一次二分查找。
type FailureIndex struct {
	byAsset map[int][]time.Time
}

// NewFailureIndex 从故障事件构建索引
func NewFailureIndex(failures map[int][]domain.FailureEvent) *FailureIndex {
	idx := &FailureIndex{byAsset: make(map[int][]time.Time, len(failures))}
	for assetID, events := range failures {
		dates := make([]time.Time, 0, len(events))
		for _, f := range events {
			dates = append(dates, DateOf(f.FailureDate))
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		idx.byAsset[assetID] = dates
	}
	return idx
}

// AddHistory 把单个资产的历史并入索引（预加载路径按资产逐个调用）
func (idx *FailureIndex) AddHistory(h *AssetHistory) {
	dates := make([]time.Time, 0, len(h.Failures))
	for _, f := range h.Failures {
		dates = append(dates, DateOf(f.FailureDate))
	}
	// AssetHistory 的故障已按时间排序，截断到日后仍有序
	idx.byAsset[h.Asset.AssetID] = dates
}

// NewEmptyFailureIndex 创建空索引，配合 AddHistory 使用
func NewEmptyFailureIndex() *FailureIndex {
	return &FailureIndex{byAsset: make(map[int][]time.Time)}
}

// WillFailWithinHorizon 前瞻标签：(asOf, asOf+horizonDays] 内是否存在故障。
// 下界严格排除 asOf 当天，当天故障只进特征窗口、不进标签，否则标签泄漏。
func (idx *FailureIndex) WillFailWithinHorizon(assetID int, asOf time.Time, horizonDays int) bool {
	dates := idx.byAsset[assetID]
	if len(dates) == 0 {
		return false
	}
	day := DateOf(asOf)
	end := day.AddDate(0, 0, horizonDays)

	// 第一个晚于 asOf 的故障日期
	first := sort.Search(len(dates), func(i int) bool {
		return dates[i].After(day)
	})
	return first < len(dates) && !dates[first].After(end)
}
