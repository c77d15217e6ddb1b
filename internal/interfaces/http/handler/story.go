package handler

import (
	"github.com/gin-gonic/gin"

	"infinite-book-api/internal/application/story"
	"infinite-book-api/internal/interfaces/http/dto"
)

// StoryHandler 小说生成流水线处理器
type StoryHandler struct {
	story *story.Service
}

// NewStoryHandler 创建流水线处理器
func NewStoryHandler(storyService *story.Service) *StoryHandler {
	return &StoryHandler{story: storyService}
}

// Refine 创意精炼
func (h *StoryHandler) Refine(c *gin.Context) {
	var req dto.RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.story.Refine(c.Request.Context(), c.Param("pid"), &story.RefineInput{
		Genre: req.Genre,
		Idea:  req.Idea,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// Plot 大纲生成
func (h *StoryHandler) Plot(c *gin.Context) {
	var req dto.PlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.story.Plot(c.Request.Context(), c.Param("pid"), &story.PlotInput{
		Title:       req.Title,
		Genre:       req.Genre,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// Characters 角色阵容生成
// 请求体可选，缺省字段回退到已存的前提和大纲
func (h *StoryHandler) Characters(c *gin.Context) {
	var req dto.CharactersRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.story.Characters(c.Request.Context(), c.Param("pid"), &story.CharactersInput{
		Title:       req.Title,
		Genre:       req.Genre,
		PlotSummary: req.PlotSummary,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// ChapterPlan 节拍计划生成
func (h *StoryHandler) ChapterPlan(c *gin.Context) {
	var req dto.ChapterPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.story.ChapterPlan(c.Request.Context(), c.Param("pid"), &story.ChapterPlanInput{
		Chapter:        req.Chapter,
		Title:          req.Title,
		Genre:          req.Genre,
		ChapterTitle:   req.ChapterTitle,
		ChapterSummary: req.ChapterSummary,
		Characters:     req.Characters,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// WriteBeat 节拍散文生成
// 沿用查询参数形式：?chapter=N&beat_index=I
func (h *StoryHandler) WriteBeat(c *gin.Context) {
	chapter, ok := requireQueryInt(c, "chapter")
	if !ok {
		return
	}
	beatIndex, ok := requireQueryInt(c, "beat_index")
	if !ok {
		return
	}

	result, err := h.story.WriteBeat(c.Request.Context(), c.Param("pid"), chapter, beatIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// Continuity 章节连续性胶囊生成
func (h *StoryHandler) Continuity(c *gin.Context) {
	var req dto.ContinuityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.story.BuildChapterContinuity(c.Request.Context(), c.Param("pid"), req.Chapter)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// GetChapterPlan 查询某章节拍计划
func (h *StoryHandler) GetChapterPlan(c *gin.Context) {
	chapter, ok := requireQueryInt(c, "chapter")
	if !ok {
		return
	}
	plan, err := h.story.BeatPlanFor(c.Request.Context(), c.Param("pid"), chapter)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, plan)
}

// ClearBeat 删除单个节拍散文
func (h *StoryHandler) ClearBeat(c *gin.Context) {
	var req dto.ClearBeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.story.ClearBeat(c.Request.Context(), c.Param("pid"), req.Chapter, req.BeatIndex); err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.OKResponse{OK: true})
}

// ClearBeatsFrom 删除某章从给定下标起的全部散文
func (h *StoryHandler) ClearBeatsFrom(c *gin.Context) {
	var req dto.ClearBeatsFromRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	deleted, err := h.story.ClearBeatsFrom(c.Request.Context(), c.Param("pid"), req.Chapter, req.FromBeatIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ClearBeatsFromResponse{OK: true, Deleted: deleted})
}
