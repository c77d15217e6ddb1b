// Package media 实现音频和封面侧流水线的应用层
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"infinite-book-api/internal/application/story"
	"infinite-book-api/internal/config"
	"infinite-book-api/internal/domain/entity"
	"infinite-book-api/internal/infrastructure/tts"
	apperrors "infinite-book-api/pkg/errors"
	"infinite-book-api/pkg/logger"
	"infinite-book-api/pkg/metrics"
)

// AudioService 节拍配音服务
// 任务状态保存在 media_jobs 表中，重启后仍然可查；实际合成在
// 后台 goroutine 中进行，接口只负责启动和查询
type AudioService struct {
	store   *story.Store
	tts     *tts.Client
	dataDir string
}

// NewAudioService 创建配音服务
func NewAudioService(store *story.Store, ttsClient *tts.Client, cfg *config.MediaConfig) *AudioService {
	return &AudioService{
		store:   store,
		tts:     ttsClient,
		dataDir: cfg.DataDir,
	}
}

// wavPath 返回 wav 文件的落盘路径
// data/wavs/{project_id}/audio/{provider}/ch_{chapter}/beat_{beat_index}.wav
func (s *AudioService) wavPath(projectID, provider string, chapter, beatIndex int) string {
	return filepath.Join(
		s.dataDir, "wavs", projectID, "audio", provider,
		fmt.Sprintf("ch_%d", chapter),
		fmt.Sprintf("beat_%d.wav", beatIndex),
	)
}

func wavURL(projectID, provider string, chapter, beatIndex int) string {
	return fmt.Sprintf(
		"/api/projects/%s/audio/wav?chapter=%d&beat_index=%d&provider=%s",
		projectID, chapter, beatIndex, provider,
	)
}

// GenerateResult 配音启动结果
type GenerateResult struct {
	OK       bool   `json:"ok"`
	Status   string `json:"status"`
	Provider string `json:"provider"`
}

// Generate 启动单个节拍的配音
// 已在执行的任务和已存在的文件（非 force）都不会重复触发合成
func (s *AudioService) Generate(ctx context.Context, projectID string, chapter, beatIndex int, provider string, force bool) (*GenerateResult, error) {
	project, err := s.store.RequireProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	provider, err = s.normalizeProvider(provider)
	if err != nil {
		return nil, err
	}

	job, err := s.store.MediaJobs.Get(ctx, projectID, entity.MediaKindAudio, provider, chapter, beatIndex)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load media job")
	}
	outPath := s.wavPath(projectID, provider, chapter, beatIndex)

	if job != nil && job.IsGenerating() {
		logger.Info(ctx, "audio generation already in progress", "path", outPath)
		return &GenerateResult{OK: true, Status: "generating", Provider: provider}, nil
	}
	if !force && fileExists(outPath) {
		logger.Info(ctx, "skip audio generation, wav exists", "path", outPath)
		return &GenerateResult{OK: true, Status: "ready", Provider: provider}, nil
	}

	scope := s.store.Scope(projectID)
	text, _, err := scope.BeatText(ctx, chapter, beatIndex)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load beat text")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "beat text empty")
	}

	job = entity.NewMediaJob(projectID, entity.MediaKindAudio, provider, chapter, beatIndex)
	if err := s.store.MediaJobs.Upsert(ctx, job); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save media job")
	}
	metrics.MediaJobTransitions.WithLabelValues(string(entity.MediaKindAudio), provider, "generating").Inc()

	go s.runSynthesis(job, text, project.Language, outPath)

	return &GenerateResult{OK: true, Status: "generating", Provider: provider}, nil
}

// runSynthesis 在后台执行合成并落盘，结束时更新任务行
func (s *AudioService) runSynthesis(job *entity.MediaJob, text, language, outPath string) {
	ctx := context.Background()
	start := time.Now()

	fail := func(err error) {
		logger.Warn(ctx, "audio generation failed", "path", outPath, "error", err.Error())
		job.Fail(err.Error())
		if uerr := s.store.MediaJobs.Upsert(ctx, job); uerr != nil {
			logger.Error(ctx, "failed to persist failed media job", uerr)
		}
		metrics.MediaJobTransitions.WithLabelValues(string(job.Kind), job.Provider, "error").Inc()
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fail(fmt.Errorf("failed to create output dir: %w", err))
		return
	}
	wav, err := s.tts.Synthesize(ctx, job.Provider, text, language)
	if err != nil {
		fail(err)
		return
	}
	if err := os.WriteFile(outPath, wav, 0o644); err != nil {
		fail(fmt.Errorf("failed to write wav: %w", err))
		return
	}

	job.Complete(outPath)
	if err := s.store.MediaJobs.Upsert(ctx, job); err != nil {
		logger.Error(ctx, "failed to persist completed media job", err)
	}
	metrics.MediaJobTransitions.WithLabelValues(string(job.Kind), job.Provider, "done").Inc()
	metrics.MediaJobDuration.WithLabelValues(string(job.Kind), job.Provider).Observe(time.Since(start).Seconds())
	logger.Info(ctx, "audio generation finished", "path", outPath)
}

// StatusItem 单个 节拍 × 提供商 的配音状态
type StatusItem struct {
	BeatIndex int    `json:"beat_index"`
	Provider  string `json:"provider"`
	Status    string `json:"status"`
	Exists    bool   `json:"exists"`
	URL       string `json:"url"`
}

// StatusResult 某章配音全景
type StatusResult struct {
	ProjectID string       `json:"project_id"`
	Chapter   int          `json:"chapter"`
	Items     []StatusItem `json:"items"`
}

// Status 列出某章每个 节拍 × 提供商 的配音状态
// 文件存在与否是最终裁决，任务行只在 generating/error 时覆盖它
func (s *AudioService) Status(ctx context.Context, projectID string, chapter int) (*StatusResult, error) {
	if _, err := s.store.RequireProject(ctx, projectID); err != nil {
		return nil, err
	}

	scope := s.store.Scope(projectID)
	plan, ok, err := scope.BeatPlan(ctx, chapter)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load beat plan")
	}
	n := 0
	if ok {
		n = len(plan.Beats)
	}

	jobs, err := s.store.MediaJobs.ListByProject(ctx, projectID, entity.MediaKindAudio)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list media jobs")
	}
	jobState := make(map[string]entity.MediaJobStatus, len(jobs))
	for _, j := range jobs {
		if j.Chapter == chapter {
			jobState[fmt.Sprintf("%d/%s", j.BeatIndex, j.Provider)] = j.Status
		}
	}

	result := &StatusResult{ProjectID: projectID, Chapter: chapter, Items: []StatusItem{}}
	for idx := 0; idx < n; idx++ {
		for _, provider := range s.tts.Providers() {
			exists := fileExists(s.wavPath(projectID, provider, chapter, idx))
			status := "missing"
			switch jobState[fmt.Sprintf("%d/%s", idx, provider)] {
			case entity.MediaJobStatusGenerating:
				status = "generating"
			case entity.MediaJobStatusError:
				status = "error"
			default:
				if exists {
					status = "ready"
				}
			}
			url := ""
			if exists {
				url = wavURL(projectID, provider, chapter, idx)
			}
			result.Items = append(result.Items, StatusItem{
				BeatIndex: idx,
				Provider:  provider,
				Status:    status,
				Exists:    exists,
				URL:       url,
			})
		}
	}
	return result, nil
}

// WavPath 返回已存在的 wav 文件路径，供 HTTP 层流式返回
func (s *AudioService) WavPath(ctx context.Context, projectID string, chapter, beatIndex int, provider string) (string, error) {
	if _, err := s.store.RequireProject(ctx, projectID); err != nil {
		return "", err
	}
	provider, err := s.normalizeProvider(provider)
	if err != nil {
		return "", err
	}
	p := s.wavPath(projectID, provider, chapter, beatIndex)
	if !fileExists(p) {
		return "", apperrors.ErrAudioNotFound
	}
	return p, nil
}

func (s *AudioService) normalizeProvider(provider string) (string, error) {
	p, err := s.tts.NormalizeProvider(provider)
	if err != nil {
		return "", apperrors.New(apperrors.CodeInvalidParam, err.Error())
	}
	return p, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
