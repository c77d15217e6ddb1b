// Package project 实现项目与角色管理的应用层
package project

import (
	"context"

	"infinite-book-api/internal/application/story"
	"infinite-book-api/internal/domain/entity"
	apperrors "infinite-book-api/pkg/errors"
	"infinite-book-api/pkg/logger"
)

// Service 项目管理服务
type Service struct {
	store *story.Store
}

// NewService 创建项目管理服务
func NewService(store *story.Store) *Service {
	return &Service{store: store}
}

// Create 创建项目
func (s *Service) Create(ctx context.Context, title, language string) (*entity.Project, error) {
	project := entity.NewProject(title, language)
	if err := s.store.Projects.Create(ctx, project); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create project")
	}
	logger.Info(ctx, "project created", "project_id", project.ID, "title", project.Title)
	return project, nil
}

// List 列出所有项目
func (s *Service) List(ctx context.Context) ([]*entity.Project, error) {
	projects, err := s.store.Projects.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list projects")
	}
	return projects, nil
}

// Get 获取项目
func (s *Service) Get(ctx context.Context, id string) (*entity.Project, error) {
	return s.store.RequireProject(ctx, id)
}

// Delete 删除项目及其全部产物
// 保留的 default 项目不可删除，请求被静默接受为空操作
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == entity.DefaultProjectID {
		logger.Debug(ctx, "ignoring delete of reserved default project")
		return nil
	}
	if _, err := s.store.RequireProject(ctx, id); err != nil {
		return err
	}
	if err := s.store.Scope(id).Reset(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to clear project data")
	}
	if err := s.store.Projects.Delete(ctx, id); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to delete project")
	}
	logger.Info(ctx, "project deleted", "project_id", id)
	return nil
}

// State 返回项目聚合状态，chapter > 0 时附带该章进度
func (s *Service) State(ctx context.Context, id string, chapter int) (*story.ProjectState, error) {
	if _, err := s.store.RequireProject(ctx, id); err != nil {
		return nil, err
	}
	state, err := s.store.Scope(id).LoadState(ctx, chapter)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project state")
	}
	return state, nil
}

// Reset 清空项目的全部生成产物，保留项目本身
func (s *Service) Reset(ctx context.Context, id string) error {
	if _, err := s.store.RequireProject(ctx, id); err != nil {
		return err
	}
	if err := s.store.Scope(id).Reset(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to reset project")
	}
	logger.Info(ctx, "project reset", "project_id", id)
	return nil
}

// UpdateCharacter 部分更新角色
func (s *Service) UpdateCharacter(ctx context.Context, projectID string, id int64, patch *entity.CharacterPatch) (*entity.Character, error) {
	if _, err := s.store.RequireProject(ctx, projectID); err != nil {
		return nil, err
	}
	if patch != nil && patch.Kind != nil && !entity.IsValidCharacterKind(*patch.Kind) {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "invalid character kind")
	}
	if patch == nil || patch.IsEmpty() {
		// 空补丁返回当前状态，不写库
		character, err := s.store.Characters.GetByID(ctx, projectID, id)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load character")
		}
		if character == nil {
			return nil, apperrors.ErrCharacterNotFound
		}
		return character, nil
	}
	character, err := s.store.Characters.Update(ctx, projectID, id, patch)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to update character")
	}
	if character == nil {
		return nil, apperrors.ErrCharacterNotFound
	}
	return character, nil
}

// DeleteCharacter 删除单个角色
func (s *Service) DeleteCharacter(ctx context.Context, projectID string, id int64) error {
	if _, err := s.store.RequireProject(ctx, projectID); err != nil {
		return err
	}
	character, err := s.store.Characters.GetByID(ctx, projectID, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load character")
	}
	if character == nil {
		return apperrors.ErrCharacterNotFound
	}
	if err := s.store.Characters.Delete(ctx, projectID, id); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to delete character")
	}
	return nil
}
