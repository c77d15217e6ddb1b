package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"infinite-book-api/internal/domain/entity"
	"infinite-book-api/internal/domain/repository"
)

// CharacterRepository 角色仓储实现
type CharacterRepository struct {
	client *Client
	txm    repository.Transactor
}

// NewCharacterRepository 创建角色仓储
func NewCharacterRepository(client *Client, txm repository.Transactor) *CharacterRepository {
	return &CharacterRepository{client: client, txm: txm}
}

// ReplaceAll 在单个事务中用新的阵容整体替换项目角色
func (r *CharacterRepository) ReplaceAll(ctx context.Context, projectID string, characters []*entity.Character) error {
	ctx, span := tracer.Start(ctx, "sqlite.CharacterRepository.ReplaceAll")
	defer span.End()

	err := r.txm.WithTransaction(ctx, func(ctx context.Context) error {
		q := getQuerier(ctx, r.client.sql)

		if _, err := q.ExecContext(ctx,
			`DELETE FROM characters WHERE project_id = ?`, projectID,
		); err != nil {
			return fmt.Errorf("failed to clear characters: %w", err)
		}

		insert := `INSERT INTO characters (project_id, kind, name, role, bio) VALUES (?, ?, ?, ?, ?)`
		for _, c := range characters {
			if _, err := q.ExecContext(ctx, insert,
				projectID, c.Kind, c.Name, c.Role, c.Bio,
			); err != nil {
				return fmt.Errorf("failed to insert character %q: %w", c.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// ListGrouped 按类别分组列出项目角色
func (r *CharacterRepository) ListGrouped(ctx context.Context, projectID string) (*entity.GroupedCharacters, error) {
	ctx, span := tracer.Start(ctx, "sqlite.CharacterRepository.ListGrouped")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	rows, err := q.QueryContext(ctx,
		`SELECT id, project_id, kind, name, role, bio FROM characters WHERE project_id = ? ORDER BY id`,
		projectID,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	grouped := &entity.GroupedCharacters{
		Protagonists: []*entity.Character{},
		Antagonists:  []*entity.Character{},
		Supporting:   []*entity.Character{},
	}
	for rows.Next() {
		var c entity.Character
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Kind, &c.Name, &c.Role, &c.Bio); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		switch c.Kind {
		case entity.CharacterKindProtagonist:
			grouped.Protagonists = append(grouped.Protagonists, &c)
		case entity.CharacterKindAntagonist:
			grouped.Antagonists = append(grouped.Antagonists, &c)
		default:
			grouped.Supporting = append(grouped.Supporting, &c)
		}
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate characters: %w", err)
	}

	return grouped, nil
}

// GetByID 根据 ID 获取角色
func (r *CharacterRepository) GetByID(ctx context.Context, projectID string, id int64) (*entity.Character, error) {
	ctx, span := tracer.Start(ctx, "sqlite.CharacterRepository.GetByID")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	var c entity.Character
	err := q.QueryRowContext(ctx,
		`SELECT id, project_id, kind, name, role, bio FROM characters WHERE project_id = ? AND id = ?`,
		projectID, id,
	).Scan(&c.ID, &c.ProjectID, &c.Kind, &c.Name, &c.Role, &c.Bio)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get character: %w", err)
	}

	return &c, nil
}

// Update 部分更新角色字段
func (r *CharacterRepository) Update(ctx context.Context, projectID string, id int64, patch *entity.CharacterPatch) (*entity.Character, error) {
	ctx, span := tracer.Start(ctx, "sqlite.CharacterRepository.Update")
	defer span.End()

	if patch == nil || patch.IsEmpty() {
		// 没有可识别字段时不写库
		return nil, nil
	}

	setClauses := []string{}
	args := []interface{}{}
	if patch.Name != nil {
		setClauses = append(setClauses, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Role != nil {
		setClauses = append(setClauses, "role = ?")
		args = append(args, *patch.Role)
	}
	if patch.Bio != nil {
		setClauses = append(setClauses, "bio = ?")
		args = append(args, *patch.Bio)
	}
	if patch.Kind != nil {
		setClauses = append(setClauses, "kind = ?")
		args = append(args, *patch.Kind)
	}

	query := "UPDATE characters SET "
	for i, clause := range setClauses {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE project_id = ? AND id = ?"
	args = append(args, projectID, id)

	q := getQuerier(ctx, r.client.sql)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update character: %w", err)
	}

	return r.GetByID(ctx, projectID, id)
}

// Delete 删除单个角色
func (r *CharacterRepository) Delete(ctx context.Context, projectID string, id int64) error {
	ctx, span := tracer.Start(ctx, "sqlite.CharacterRepository.Delete")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	if _, err := q.ExecContext(ctx,
		`DELETE FROM characters WHERE project_id = ? AND id = ?`, projectID, id,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete character: %w", err)
	}

	return nil
}

// DeleteByProject 删除项目的全部角色
func (r *CharacterRepository) DeleteByProject(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "sqlite.CharacterRepository.DeleteByProject")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	if _, err := q.ExecContext(ctx,
		`DELETE FROM characters WHERE project_id = ?`, projectID,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete characters for project: %w", err)
	}

	return nil
}
