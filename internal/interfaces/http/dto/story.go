package dto

// RefineRequest 创意精炼请求
type RefineRequest struct {
	Genre string `json:"genre"`
	Idea  string `json:"idea" binding:"required"`
}

// PlotRequest 大纲生成请求：用户选定的前提
type PlotRequest struct {
	Title       string `json:"title" binding:"required"`
	Genre       string `json:"genre"`
	Description string `json:"description" binding:"required"`
}

// CharactersRequest 角色阵容生成请求
// 所有字段可选，缺省时由服务端回退到已存的前提和大纲
type CharactersRequest struct {
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	PlotSummary string `json:"plot_summary"`
}

// ChapterPlanRequest 节拍计划请求
// 除 chapter 外所有字段可选，缺省时由服务端回退到已存状态
type ChapterPlanRequest struct {
	Chapter        int      `json:"chapter" binding:"required,min=1"`
	Title          string   `json:"title"`
	Genre          string   `json:"genre"`
	ChapterTitle   string   `json:"chapter_title"`
	ChapterSummary string   `json:"chapter_summary"`
	Characters     []string `json:"characters"`
}

// ContinuityRequest 连续性胶囊请求
type ContinuityRequest struct {
	Chapter int `json:"chapter" binding:"required,min=1"`
}

// ClearBeatRequest 删除单个节拍散文请求
type ClearBeatRequest struct {
	Chapter   int `json:"chapter" binding:"required,min=1"`
	BeatIndex int `json:"beat_index"`
}

// ClearBeatsFromRequest 批量删除节拍散文请求
type ClearBeatsFromRequest struct {
	Chapter       int `json:"chapter" binding:"required,min=1"`
	FromBeatIndex int `json:"from_beat_index"`
}

// ClearBeatsFromResponse 批量删除结果
type ClearBeatsFromResponse struct {
	OK      bool `json:"ok"`
	Deleted int  `json:"deleted"`
}
