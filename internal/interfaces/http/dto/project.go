package dto

import (
	"time"

	"infinite-book-api/internal/domain/entity"
)

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title    string `json:"title"`
	Language string `json:"language"`
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// ToProjectResponse 实体转响应
func ToProjectResponse(p *entity.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:        p.ID,
		Title:     p.Title,
		Language:  p.Language,
		CreatedAt: p.CreatedAt,
	}
}

// ToProjectResponses 实体列表转响应列表
func ToProjectResponses(projects []*entity.Project) []*ProjectResponse {
	out := make([]*ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, ToProjectResponse(p))
	}
	return out
}

// OKResponse 通用确认响应
type OKResponse struct {
	OK bool `json:"ok"`
}
