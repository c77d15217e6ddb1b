package story

import (
	"context"
	"time"

	"infinite-book-api/internal/config"
	"infinite-book-api/internal/domain/entity"
	"infinite-book-api/internal/workflow/prompt"
	apperrors "infinite-book-api/pkg/errors"
	"infinite-book-api/pkg/metrics"
)

// Service 小说生成流水线应用服务
// 六个步骤共享同一个 Store、LLM 网关和提示词注册表
type Service struct {
	store     *Store
	gateway   *Gateway
	prompts   *prompt.Registry
	assembler *ContextAssembler
	cfg       *config.StoryConfig
}

// NewService 创建流水线服务
func NewService(store *Store, gateway *Gateway, prompts *prompt.Registry, cfg *config.StoryConfig) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		prompts: prompts,
		assembler: NewContextAssembler(
			cfg.ContextLookbackBeats,
			cfg.PrevTextApproxTokens,
		),
		cfg: cfg,
	}
}

// Store 暴露仓储聚合，供 HTTP 层做只读状态查询
func (s *Service) Store() *Store {
	return s.store
}

// observeStep 记录单个步骤的耗时和结果指标
func (s *Service) observeStep(step string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.PipelineStepTotal.WithLabelValues(step, status).Inc()
	metrics.PipelineStepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// requireScope 加载项目并返回其作用域和提示词语言
func (s *Service) requireScope(ctx context.Context, projectID string) (*ProjectScope, string, error) {
	project, err := s.store.RequireProject(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	return s.store.Scope(project.ID), entity.LanguageName(project.Language), nil
}

// errInvalidInput 输入校验失败
func errInvalidInput(msg string) error {
	return apperrors.New(apperrors.CodeInvalidParam, msg)
}

// errInternal 包装内部错误
func errInternal(err error, msg string) error {
	return apperrors.Wrap(err, apperrors.CodeInternalError, msg)
}

// requireSelected 读取选定前提，缺失时报业务错误
func (s *Service) requireSelected(ctx context.Context, scope *ProjectScope) (*entity.SelectedPremise, error) {
	sel, ok, err := scope.Selected(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load selected premise")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeConflict, "no premise selected, run the plot step first")
	}
	return sel, nil
}

// requirePlot 读取大纲，缺失时报业务错误
func (s *Service) requirePlot(ctx context.Context, scope *ProjectScope) (*entity.PlotOutline, error) {
	plot, ok, err := scope.Plot(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load plot outline")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeConflict, "no plot outline found, run the plot step first")
	}
	return plot, nil
}
