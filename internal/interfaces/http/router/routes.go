// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes 注册 /api 路由
func RegisterAPIRoutes(api *gin.RouterGroup, h *Handlers) {
	// 项目管理
	projects := api.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/:pid", h.Project.GetProject)
		projects.DELETE("/:pid", h.Project.DeleteProject)

		projects.GET("/:pid/state", h.Project.GetState)
		projects.POST("/:pid/reset", h.Project.ResetProject)

		// 生成流水线
		projects.POST("/:pid/refine", h.Story.Refine)
		projects.POST("/:pid/plot", h.Story.Plot)
		projects.POST("/:pid/characters", h.Story.Characters)
		projects.POST("/:pid/chapter_plan", h.Story.ChapterPlan)
		projects.GET("/:pid/chapter_plan", h.Story.GetChapterPlan)
		projects.GET("/:pid/write_beat", h.Story.WriteBeat)
		projects.POST("/:pid/chapter/continuity", h.Story.Continuity)

		// 散文编辑
		projects.POST("/:pid/beat/clear", h.Story.ClearBeat)
		projects.POST("/:pid/beat/clear_from", h.Story.ClearBeatsFrom)

		// 角色编辑
		projects.PATCH("/:pid/characters/:cid", h.Project.UpdateCharacter)
		projects.DELETE("/:pid/characters/:cid", h.Project.DeleteCharacter)

		// 配音
		projects.POST("/:pid/audio/generate", h.Media.GenerateAudio)
		projects.GET("/:pid/audio/status", h.Media.AudioStatus)
		projects.GET("/:pid/audio/wav", h.Media.AudioWav)

		// 封面
		projects.POST("/:pid/cover", h.Media.GenerateCover)
		projects.GET("/:pid/cover/status", h.Media.CoverStatus)
		projects.GET("/:pid/cover/file", h.Media.CoverFile)
	}
}
