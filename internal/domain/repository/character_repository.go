package repository

import (
	"context"

	"infinite-book-api/internal/domain/entity"
)

// CharacterRepository 角色仓储接口
type CharacterRepository interface {
	// ReplaceAll 在单个事务中用新的阵容整体替换项目角色
	// 并发读取方要么看到旧阵容要么看到新阵容，不会看到混合状态
	ReplaceAll(ctx context.Context, projectID string, characters []*entity.Character) error

	// ListGrouped 按类别分组列出项目角色
	ListGrouped(ctx context.Context, projectID string) (*entity.GroupedCharacters, error)

	// GetByID 根据 ID 获取角色，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, projectID string, id int64) (*entity.Character, error)

	// Update 部分更新角色字段，补丁为空时返回 (nil, nil) 且不写库
	Update(ctx context.Context, projectID string, id int64, patch *entity.CharacterPatch) (*entity.Character, error)

	// Delete 删除单个角色
	Delete(ctx context.Context, projectID string, id int64) error

	// DeleteByProject 删除项目的全部角色
	DeleteByProject(ctx context.Context, projectID string) error
}
