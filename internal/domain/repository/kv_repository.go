package repository

import (
	"context"
	"encoding/json"
)

// KVRepository 项目作用域 KV 仓储接口
// 所有流水线产物（大纲、节拍计划、散文、胶囊）都以 JSON 值的形式保存在
// (project_id, key) 复合主键的单表中
type KVRepository interface {
	// Set 写入或覆盖 JSON 值，并刷新 updated_at
	Set(ctx context.Context, projectID, key string, value any) error

	// Get 读取 JSON 值并反序列化到 out，键不存在时返回 (false, nil)
	Get(ctx context.Context, projectID, key string, out any) (bool, error)

	// GetRaw 读取原始 JSON 值，键不存在时返回 (nil, false, nil)
	GetRaw(ctx context.Context, projectID, key string) (json.RawMessage, bool, error)

	// Delete 删除单个键
	Delete(ctx context.Context, projectID, key string) error

	// ListByPrefix 按键前缀列出原始 JSON 值
	ListByPrefix(ctx context.Context, projectID, prefix string) (map[string]json.RawMessage, error)

	// DeleteByProject 删除项目的全部键
	DeleteByProject(ctx context.Context, projectID string) error
}
