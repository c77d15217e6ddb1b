package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"infinite-book-api/internal/application/project"
	"infinite-book-api/internal/interfaces/http/dto"
	apperrors "infinite-book-api/pkg/errors"
)

// ProjectHandler 项目管理处理器
type ProjectHandler struct {
	projects *project.Service
}

// NewProjectHandler 创建项目管理处理器
func NewProjectHandler(projects *project.Service) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// CreateProject 创建项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	p, err := h.projects.Create(c.Request.Context(), req.Title, req.Language)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, dto.ToProjectResponse(p))
}

// ListProjects 列出所有项目
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToProjectResponses(projects))
}

// GetProject 获取项目
func (h *ProjectHandler) GetProject(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), c.Param("pid"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToProjectResponse(p))
}

// DeleteProject 删除项目
// 保留的 default 项目会被静默接受但不删除
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), c.Param("pid")); err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.OKResponse{OK: true})
}

// GetState 返回项目聚合状态
func (h *ProjectHandler) GetState(c *gin.Context) {
	chapter := queryInt(c, "chapter", 0)
	state, err := h.projects.State(c.Request.Context(), c.Param("pid"), chapter)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, state)
}

// ResetProject 清空项目的全部生成产物
func (h *ProjectHandler) ResetProject(c *gin.Context) {
	if err := h.projects.Reset(c.Request.Context(), c.Param("pid")); err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.OKResponse{OK: true})
}

// UpdateCharacter 部分更新角色
func (h *ProjectHandler) UpdateCharacter(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("cid"), 10, 64)
	if err != nil {
		respondError(c, apperrors.New(apperrors.CodeInvalidParam, "invalid character id"))
		return
	}

	var req dto.UpdateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	character, err := h.projects.UpdateCharacter(c.Request.Context(), c.Param("pid"), id, req.ToPatch())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, character)
}

// DeleteCharacter 删除单个角色
func (h *ProjectHandler) DeleteCharacter(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("cid"), 10, 64)
	if err != nil {
		respondError(c, apperrors.New(apperrors.CodeInvalidParam, "invalid character id"))
		return
	}
	if err := h.projects.DeleteCharacter(c.Request.Context(), c.Param("pid"), id); err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.OKResponse{OK: true})
}
