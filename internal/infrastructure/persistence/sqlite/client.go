// Package sqlite 提供 SQLite 数据库访问层实现
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"infinite-book-api/internal/config"
	"infinite-book-api/internal/domain/entity"
)

var tracer = otel.Tracer("sqlite")

// Client SQLite 客户端
// 所有项目状态都保存在单个数据库文件中
type Client struct {
	db     *gorm.DB
	sql    *sql.DB
	config *config.SQLiteConfig
}

// NewClient 创建 SQLite 客户端并执行表结构迁移
func NewClient(cfg *config.SQLiteConfig) (*Client, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		cfg.Path, cfg.BusyTimeout.Milliseconds(),
	)

	// 配置 GORM 日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// 验证连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &Client{
		db:     db,
		sql:    sqlDB,
		config: cfg,
	}

	if err := client.migrate(); err != nil {
		return nil, err
	}

	return client, nil
}

// migrate 创建缺失的表
func (c *Client) migrate() error {
	if err := c.db.AutoMigrate(
		&entity.Project{},
		&entity.Character{},
		&entity.MediaJob{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// kv 表使用复合主键和裸 JSON 文本，直接建表以保持与历史数据的列布局一致
	ddl := `
		CREATE TABLE IF NOT EXISTS kv (
			project_id TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (project_id, key)
		)
	`
	if err := c.db.Exec(ddl).Error; err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}

	return nil
}

// DB 获取 GORM DB 实例
func (c *Client) DB() *gorm.DB {
	return c.db
}

// SqlDB 获取底层 sql.DB
func (c *Client) SqlDB() *sql.DB {
	return c.sql
}

// Close 关闭数据库连接
func (c *Client) Close() error {
	return c.sql.Close()
}

// Ping 检查数据库连接
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "sqlite.Ping")
	defer span.End()

	return c.sql.PingContext(ctx)
}

// Stats 获取连接池统计信息
func (c *Client) Stats() sql.DBStats {
	return c.sql.Stats()
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "sqlite.HealthCheck")
	defer span.End()

	var result int
	err := c.db.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
