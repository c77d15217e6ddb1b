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
	"infinite-book-api/internal/infrastructure/comfy"
	"infinite-book-api/internal/workflow/prompt"
	apperrors "infinite-book-api/pkg/errors"
	"infinite-book-api/pkg/logger"
	"infinite-book-api/pkg/metrics"
)

// 封面任务在 media_jobs 表中的固定坐标
const coverProvider = "comfy"

// coverAnchors LLM 生成的封面提示词锚点
type coverAnchors struct {
	StyleAnchor string `json:"style_anchor"`
	SceneBlock  string `json:"scene_block"`
}

// CoverService 封面生成服务
// 两段式：先用 LLM 把选定前提压成图像提示词锚点，再提交 ComfyUI
// 文生图并轮询取回 PNG
type CoverService struct {
	store   *story.Store
	gateway *story.Gateway
	prompts *prompt.Registry
	comfy   *comfy.Client
	cfg     *config.MediaConfig
}

// NewCoverService 创建封面服务
func NewCoverService(store *story.Store, gateway *story.Gateway, prompts *prompt.Registry, comfyClient *comfy.Client, cfg *config.MediaConfig) *CoverService {
	return &CoverService{
		store:   store,
		gateway: gateway,
		prompts: prompts,
		comfy:   comfyClient,
		cfg:     cfg,
	}
}

// coverPath 返回封面文件的落盘路径
// data/covers/{project_id}/cover_{seq:04d}.png
func (s *CoverService) coverPath(projectID string, seq int) string {
	return filepath.Join(s.cfg.DataDir, "covers", projectID, fmt.Sprintf("cover_%04d.png", seq))
}

// Generate 启动封面生成
// promptOverride 非空时直接作为图像提示词，跳过 LLM 锚点压缩
func (s *CoverService) Generate(ctx context.Context, projectID, promptOverride string) (*GenerateResult, error) {
	if _, err := s.store.RequireProject(ctx, projectID); err != nil {
		return nil, err
	}

	scope := s.store.Scope(projectID)
	selected, ok, err := scope.Selected(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load selected premise")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeConflict, "no premise selected, run the plot step first")
	}

	job, err := s.store.MediaJobs.Get(ctx, projectID, entity.MediaKindCover, coverProvider, 0, 0)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load cover job")
	}
	if job != nil && job.IsGenerating() {
		return &GenerateResult{OK: true, Status: "generating", Provider: coverProvider}, nil
	}

	job = entity.NewMediaJob(projectID, entity.MediaKindCover, coverProvider, 0, 0)
	if err := s.store.MediaJobs.Upsert(ctx, job); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save cover job")
	}
	metrics.MediaJobTransitions.WithLabelValues(string(entity.MediaKindCover), coverProvider, "generating").Inc()

	go s.runCover(job, selected, strings.TrimSpace(promptOverride))

	return &GenerateResult{OK: true, Status: "generating", Provider: coverProvider}, nil
}

// runCover 后台生成封面并落盘
func (s *CoverService) runCover(job *entity.MediaJob, selected *entity.SelectedPremise, promptOverride string) {
	ctx := context.Background()
	start := time.Now()
	scope := s.store.Scope(job.ProjectID)

	fail := func(err error) {
		logger.Warn(ctx, "cover generation failed", "project_id", job.ProjectID, "error", err.Error())
		job.Fail(err.Error())
		if uerr := s.store.MediaJobs.Upsert(ctx, job); uerr != nil {
			logger.Error(ctx, "failed to persist failed cover job", uerr)
		}
		metrics.MediaJobTransitions.WithLabelValues(string(job.Kind), job.Provider, "error").Inc()
	}

	imagePrompt := promptOverride
	if imagePrompt == "" {
		var err error
		imagePrompt, err = s.buildCoverPrompt(ctx, selected)
		if err != nil {
			fail(err)
			return
		}
	}

	graph := comfy.BuildTextToImageGraph(&comfy.TextToImageParams{
		Prompt:     imagePrompt,
		Checkpoint: s.cfg.Comfy.Checkpoint,
		Width:      s.cfg.Comfy.Width,
		Height:     s.cfg.Comfy.Height,
		Steps:      s.cfg.Comfy.Steps,
	})
	promptID, err := s.comfy.SubmitPrompt(ctx, graph)
	if err != nil {
		fail(apperrors.Wrap(err, apperrors.CodeComfyError, "failed to submit comfy prompt"))
		return
	}
	ref, err := s.comfy.WaitForImage(ctx, promptID)
	if err != nil {
		fail(apperrors.Wrap(err, apperrors.CodeComfyError, "failed waiting for comfy output"))
		return
	}
	png, err := s.comfy.View(ctx, ref)
	if err != nil {
		fail(apperrors.Wrap(err, apperrors.CodeComfyError, "failed to download comfy image"))
		return
	}

	seq, err := s.nextCoverSeq(ctx, scope)
	if err != nil {
		fail(err)
		return
	}
	outPath := s.coverPath(job.ProjectID, seq)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fail(fmt.Errorf("failed to create cover dir: %w", err))
		return
	}
	if err := os.WriteFile(outPath, png, 0o644); err != nil {
		fail(fmt.Errorf("failed to write cover: %w", err))
		return
	}

	job.Complete(outPath)
	if err := s.store.MediaJobs.Upsert(ctx, job); err != nil {
		logger.Error(ctx, "failed to persist completed cover job", err)
	}
	metrics.MediaJobTransitions.WithLabelValues(string(job.Kind), job.Provider, "done").Inc()
	metrics.MediaJobDuration.WithLabelValues(string(job.Kind), job.Provider).Observe(time.Since(start).Seconds())
	logger.Info(ctx, "cover generation finished", "path", outPath)
}

// buildCoverPrompt 用 LLM 把前提压缩为图像提示词
func (s *CoverService) buildCoverPrompt(ctx context.Context, selected *entity.SelectedPremise) (string, error) {
	tpl, err := s.prompts.ChatTemplate(prompt.PromptCoverV1)
	if err != nil {
		return "", fmt.Errorf("failed to load cover prompt: %w", err)
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"title":       selected.Title,
		"genre":       selected.Genre,
		"description": selected.Description,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format cover prompt: %w", err)
	}

	var anchors coverAnchors
	err = s.gateway.GenerateJSON(ctx, &story.GenerateJSONRequest{
		Messages:    msgs,
		Temperature: 0.4,
		Out:         &anchors,
		Validate: func() error {
			if strings.TrimSpace(anchors.StyleAnchor) == "" && strings.TrimSpace(anchors.SceneBlock) == "" {
				return fmt.Errorf("empty cover anchors")
			}
			return nil
		},
	})
	if err != nil {
		return "", err
	}

	var parts []string
	for _, p := range []string{anchors.StyleAnchor, anchors.SceneBlock} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// nextCoverSeq 递增并返回封面序号，序号以 {"value": n} 形态保存在 kv
func (s *CoverService) nextCoverSeq(ctx context.Context, scope *story.ProjectScope) (int, error) {
	var obj struct {
		Value int `json:"value"`
	}
	if _, err := scope.GetValue(ctx, entity.KeyCoverSeq, &obj); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load cover seq")
	}
	next := obj.Value + 1
	obj.Value = next
	if err := scope.SetValue(ctx, entity.KeyCoverSeq, &obj); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save cover seq")
	}
	return next, nil
}

// CoverStatus 封面任务状态
type CoverStatus struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	Seq        int    `json:"seq"`
}

// Status 查询封面任务状态和当前序号
func (s *CoverService) Status(ctx context.Context, projectID string) (*CoverStatus, error) {
	if _, err := s.store.RequireProject(ctx, projectID); err != nil {
		return nil, err
	}

	seq, err := s.currentSeq(ctx, projectID)
	if err != nil {
		return nil, err
	}

	job, err := s.store.MediaJobs.Get(ctx, projectID, entity.MediaKindCover, coverProvider, 0, 0)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load cover job")
	}
	if job == nil {
		return &CoverStatus{Status: "missing", Seq: seq}, nil
	}
	return &CoverStatus{
		Status:     string(job.Status),
		Error:      job.Error,
		OutputPath: job.OutputPath,
		Seq:        seq,
	}, nil
}

// FilePath 返回封面文件路径，seq <= 0 时取最新一张
func (s *CoverService) FilePath(ctx context.Context, projectID string, seq int) (string, error) {
	if _, err := s.store.RequireProject(ctx, projectID); err != nil {
		return "", err
	}
	if seq <= 0 {
		var err error
		seq, err = s.currentSeq(ctx, projectID)
		if err != nil {
			return "", err
		}
	}
	if seq <= 0 {
		return "", apperrors.ErrCoverNotFound
	}
	p := s.coverPath(projectID, seq)
	if !fileExists(p) {
		return "", apperrors.ErrCoverNotFound
	}
	return p, nil
}

func (s *CoverService) currentSeq(ctx context.Context, projectID string) (int, error) {
	var obj struct {
		Value int `json:"value"`
	}
	if _, err := s.store.Scope(projectID).GetValue(ctx, entity.KeyCoverSeq, &obj); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load cover seq")
	}
	return obj.Value, nil
}
