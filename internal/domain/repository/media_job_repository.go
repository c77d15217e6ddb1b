package repository

import (
	"context"

	"infinite-book-api/internal/domain/entity"
)

// MediaJobRepository 媒体任务仓储接口
type MediaJobRepository interface {
	// Upsert 写入或覆盖任务状态
	Upsert(ctx context.Context, job *entity.MediaJob) error

	// Get 获取任务状态，不存在时返回 (nil, nil)
	Get(ctx context.Context, projectID string, kind entity.MediaKind, provider string, chapter, beatIndex int) (*entity.MediaJob, error)

	// ListByProject 列出项目的全部任务
	ListByProject(ctx context.Context, projectID string, kind entity.MediaKind) ([]*entity.MediaJob, error)

	// DeleteByProject 删除项目的全部任务
	DeleteByProject(ctx context.Context, projectID string) error
}
