package dto

// AudioGenerateRequest 配音请求
type AudioGenerateRequest struct {
	Chapter   int    `json:"chapter" binding:"required,min=1"`
	BeatIndex int    `json:"beat_index"`
	Provider  string `json:"provider" binding:"required"`
	Force     bool   `json:"force"`
}

// CoverGenerateRequest 封面生成请求
// prompt 非空时直接作为图像提示词
type CoverGenerateRequest struct {
	Prompt string `json:"prompt"`
}
