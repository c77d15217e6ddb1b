package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// KVRepository 项目作用域 KV 仓储实现
type KVRepository struct {
	client *Client
}

// NewKVRepository 创建 KV 仓储
func NewKVRepository(client *Client) *KVRepository {
	return &KVRepository{client: client}
}

// Set 写入或覆盖 JSON 值
func (r *KVRepository) Set(ctx context.Context, projectID, key string, value any) error {
	ctx, span := tracer.Start(ctx, "sqlite.KVRepository.Set")
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal kv value: %w", err)
	}

	q := getQuerier(ctx, r.client.sql)

	query := `
		INSERT INTO kv (project_id, key, value, updated_at)
		VALUES (?, ?, ?, strftime('%s','now'))
		ON CONFLICT(project_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, projectID, key, string(data)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set kv %q: %w", key, err)
	}

	return nil
}

// Get 读取 JSON 值并反序列化
func (r *KVRepository) Get(ctx context.Context, projectID, key string, out any) (bool, error) {
	raw, ok, err := r.GetRaw(ctx, projectID, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal kv %q: %w", key, err)
	}
	return true, nil
}

// GetRaw 读取原始 JSON 值
func (r *KVRepository) GetRaw(ctx context.Context, projectID, key string) (json.RawMessage, bool, error) {
	ctx, span := tracer.Start(ctx, "sqlite.KVRepository.GetRaw")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	var value string
	err := q.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE project_id = ? AND key = ?`,
		projectID, key,
	).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to get kv %q: %w", key, err)
	}

	return json.RawMessage(value), true, nil
}

// Delete 删除单个键
func (r *KVRepository) Delete(ctx context.Context, projectID, key string) error {
	ctx, span := tracer.Start(ctx, "sqlite.KVRepository.Delete")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	if _, err := q.ExecContext(ctx,
		`DELETE FROM kv WHERE project_id = ? AND key = ?`,
		projectID, key,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete kv %q: %w", key, err)
	}

	return nil
}

// ListByPrefix 按键前缀列出原始 JSON 值
func (r *KVRepository) ListByPrefix(ctx context.Context, projectID, prefix string) (map[string]json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "sqlite.KVRepository.ListByPrefix")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	// LIKE 中的 _ 和 % 是通配符，前缀里的必须转义
	query := `SELECT key, value FROM kv WHERE project_id = ? AND key LIKE ? ESCAPE '\'`
	rows, err := q.QueryContext(ctx, query, projectID, escapeLike(prefix)+"%")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list kv by prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	result := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan kv row: %w", err)
		}
		result[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate kv rows: %w", err)
	}

	return result, nil
}

// DeleteByProject 删除项目的全部键
func (r *KVRepository) DeleteByProject(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "sqlite.KVRepository.DeleteByProject")
	defer span.End()

	q := getQuerier(ctx, r.client.sql)

	if _, err := q.ExecContext(ctx, `DELETE FROM kv WHERE project_id = ?`, projectID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete kv for project: %w", err)
	}

	return nil
}

// escapeLike 转义 LIKE 模式中的通配符
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
