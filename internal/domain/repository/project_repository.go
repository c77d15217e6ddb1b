package repository

import (
	"context"

	"infinite-book-api/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	// Create 创建项目
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取项目，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*entity.Project, error)

	// List 列出所有项目，按创建时间倒序
	List(ctx context.Context) ([]*entity.Project, error)

	// Delete 删除项目行
	Delete(ctx context.Context, id string) error
}
