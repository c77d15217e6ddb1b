package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"infinite-book-api/internal/domain/entity"
)

// MediaJobRepository 媒体任务仓储实现
type MediaJobRepository struct {
	client *Client
}

// NewMediaJobRepository 创建媒体任务仓储
func NewMediaJobRepository(client *Client) *MediaJobRepository {
	return &MediaJobRepository{client: client}
}

// getDB 获取带上下文的 GORM 实例
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx)
}

// Upsert 写入或覆盖任务状态
func (r *MediaJobRepository) Upsert(ctx context.Context, job *entity.MediaJob) error {
	ctx, span := tracer.Start(ctx, "sqlite.MediaJobRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "project_id"}, {Name: "kind"}, {Name: "provider"},
			{Name: "chapter"}, {Name: "beat_index"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"status", "error", "output_path", "updated_at"}),
	}).Create(job).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert media job: %w", err)
	}
	return nil
}

// Get 获取任务状态
func (r *MediaJobRepository) Get(ctx context.Context, projectID string, kind entity.MediaKind, provider string, chapter, beatIndex int) (*entity.MediaJob, error) {
	ctx, span := tracer.Start(ctx, "sqlite.MediaJobRepository.Get")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var job entity.MediaJob
	err := db.First(&job,
		"project_id = ? AND kind = ? AND provider = ? AND chapter = ? AND beat_index = ?",
		projectID, kind, provider, chapter, beatIndex,
	).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get media job: %w", err)
	}
	return &job, nil
}

// ListByProject 列出项目的全部任务
func (r *MediaJobRepository) ListByProject(ctx context.Context, projectID string, kind entity.MediaKind) ([]*entity.MediaJob, error) {
	ctx, span := tracer.Start(ctx, "sqlite.MediaJobRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var jobs []*entity.MediaJob
	err := db.Where("project_id = ? AND kind = ?", projectID, kind).
		Order("chapter, beat_index, provider").
		Find(&jobs).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list media jobs: %w", err)
	}
	return jobs, nil
}

// DeleteByProject 删除项目的全部任务
func (r *MediaJobRepository) DeleteByProject(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "sqlite.MediaJobRepository.DeleteByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.MediaJob{}, "project_id = ?", projectID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete media jobs for project: %w", err)
	}
	return nil
}
