package entity

import (
	"time"
)

// MediaKind 媒体任务类型
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindCover MediaKind = "cover"
)

// MediaJobStatus 媒体任务状态
type MediaJobStatus string

const (
	MediaJobStatusGenerating MediaJobStatus = "generating"
	MediaJobStatusDone       MediaJobStatus = "done"
	MediaJobStatusError      MediaJobStatus = "error"
)

// MediaJob 媒体生成任务
// 任务状态落库而不是保存在进程内存，重启后状态依然可查
type MediaJob struct {
	ProjectID  string         `json:"project_id" gorm:"primaryKey"`
	Kind       MediaKind      `json:"kind" gorm:"primaryKey"`
	Provider   string         `json:"provider" gorm:"primaryKey"`
	Chapter    int            `json:"chapter" gorm:"primaryKey"`
	BeatIndex  int            `json:"beat_index" gorm:"primaryKey"`
	Status     MediaJobStatus `json:"status" gorm:"not null"`
	Error      string         `json:"error,omitempty"`
	OutputPath string         `json:"output_path,omitempty"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (MediaJob) TableName() string {
	return "media_jobs"
}

// NewMediaJob 创建处于 generating 状态的新任务
func NewMediaJob(projectID string, kind MediaKind, provider string, chapter, beatIndex int) *MediaJob {
	now := time.Now()
	return &MediaJob{
		ProjectID: projectID,
		Kind:      kind,
		Provider:  provider,
		Chapter:   chapter,
		BeatIndex: beatIndex,
		Status:    MediaJobStatusGenerating,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Complete 任务成功结束
func (j *MediaJob) Complete(outputPath string) {
	j.Status = MediaJobStatusDone
	j.OutputPath = outputPath
	j.Error = ""
	j.UpdatedAt = time.Now()
}

// Fail 任务失败
func (j *MediaJob) Fail(errMsg string) {
	j.Status = MediaJobStatusError
	j.Error = errMsg
	j.UpdatedAt = time.Now()
}

// IsGenerating 检查任务是否仍在执行
func (j *MediaJob) IsGenerating() bool {
	return j.Status == MediaJobStatusGenerating
}
