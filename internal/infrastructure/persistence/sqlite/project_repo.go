package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"infinite-book-api/internal/domain/entity"
)

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "sqlite.ProjectRepository.Create")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	query := `
		INSERT INTO projects (id, title, language, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		project.ID, project.Title, project.Language, project.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetByID 根据 ID 获取项目
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "sqlite.ProjectRepository.GetByID")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	query := `
		SELECT id, title, language, created_at
		FROM projects
		WHERE id = ?
	`

	var project entity.Project
	err := q.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.Title, &project.Language, &project.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// List 列出所有项目，按创建时间倒序
func (r *ProjectRepository) List(ctx context.Context) ([]*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "sqlite.ProjectRepository.List")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	query := `
		SELECT id, title, language, created_at
		FROM projects
		ORDER BY created_at DESC, id
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*entity.Project, 0)
	for rows.Next() {
		var project entity.Project
		if err := rows.Scan(&project.ID, &project.Title, &project.Language, &project.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &project)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// Delete 删除项目行
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "sqlite.ProjectRepository.Delete")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	query := `DELETE FROM projects WHERE id = ?`
	if _, err := q.ExecContext(ctx, query, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}
