package handler

import (
	"github.com/gin-gonic/gin"

	"infinite-book-api/internal/application/media"
	"infinite-book-api/internal/interfaces/http/dto"
	apperrors "infinite-book-api/pkg/errors"
)

// MediaHandler 音频和封面处理器
type MediaHandler struct {
	audio  *media.AudioService
	covers *media.CoverService
}

// NewMediaHandler 创建媒体处理器
func NewMediaHandler(audio *media.AudioService, covers *media.CoverService) *MediaHandler {
	return &MediaHandler{audio: audio, covers: covers}
}

// GenerateAudio 启动节拍配音
func (h *MediaHandler) GenerateAudio(c *gin.Context) {
	var req dto.AudioGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.audio.Generate(c.Request.Context(), c.Param("pid"),
		req.Chapter, req.BeatIndex, req.Provider, req.Force)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// AudioStatus 某章配音全景
func (h *MediaHandler) AudioStatus(c *gin.Context) {
	chapter := queryInt(c, "chapter", 1)
	result, err := h.audio.Status(c.Request.Context(), c.Param("pid"), chapter)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// AudioWav 流式返回 wav 文件
func (h *MediaHandler) AudioWav(c *gin.Context) {
	chapter, ok := requireQueryInt(c, "chapter")
	if !ok {
		return
	}
	beatIndex, ok := requireQueryInt(c, "beat_index")
	if !ok {
		return
	}
	provider := c.Query("provider")
	if provider == "" {
		respondError(c, apperrors.New(apperrors.CodeInvalidParam, "provider is required"))
		return
	}

	path, err := h.audio.WavPath(c.Request.Context(), c.Param("pid"), chapter, beatIndex, provider)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "audio/wav")
	c.File(path)
}

// GenerateCover 启动封面生成，请求体可选
func (h *MediaHandler) GenerateCover(c *gin.Context) {
	var req dto.CoverGenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.covers.Generate(c.Request.Context(), c.Param("pid"), req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// CoverStatus 封面任务状态
func (h *MediaHandler) CoverStatus(c *gin.Context) {
	result, err := h.covers.Status(c.Request.Context(), c.Param("pid"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// CoverFile 返回封面图片，seq 缺省时取最新一张
func (h *MediaHandler) CoverFile(c *gin.Context) {
	seq := queryInt(c, "seq", 0)
	path, err := h.covers.FilePath(c.Request.Context(), c.Param("pid"), seq)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "image/png")
	c.File(path)
}
