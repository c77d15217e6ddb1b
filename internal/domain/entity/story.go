package entity

// RefineOption 创意变体
type RefineOption struct {
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
}

// SelectedPremise 用户选定的故事前提
type SelectedPremise struct {
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
}

// PlotChapter 大纲中的单章
type PlotChapter struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// PlotOutline 全书大纲
type PlotOutline struct {
	StructureAnalysis string        `json:"structure_analysis"`
	Chapters          []PlotChapter `json:"chapters"`
}

// Beat 节拍计划中的单个节拍
// Type 为自由字符串（如 Dialogue / Action / Description / Internal Monologue）
type Beat struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// BeatPlan 一章的节拍计划
type BeatPlan struct {
	Beats []Beat `json:"beats"`
}

// BeatText 单个节拍的已写散文
type BeatText struct {
	BeatIndex int    `json:"beat_index"`
	Text      string `json:"text"`
}
