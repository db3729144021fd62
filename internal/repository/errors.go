package repository

import "errors"

// 仓储层哨兵错误，调用方用 errors.Is 判别
var (
	// ErrStoreUnavailable 事件库不可达（连接失败、查询超时等）
	ErrStoreUnavailable = errors.New("event store unavailable")

	// ErrSchemaMismatch 目标表缺少必需列，写入前的协商阶段报出
	ErrSchemaMismatch = errors.New("sink table schema mismatch")

	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")

	// ErrEmptyInput 批量写入的输入为空
	ErrEmptyInput = errors.New("empty input")
)
