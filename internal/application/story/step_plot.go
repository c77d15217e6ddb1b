package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"infinite-book-api/internal/domain/entity"
	"infinite-book-api/internal/workflow/prompt"
	apperrors "infinite-book-api/pkg/errors"
)

// PlotInput 大纲生成输入：用户在精炼结果中选定的前提
type PlotInput struct {
	Title       string
	Genre       string
	Description string
}

// Plot 基于选定前提生成全书大纲
// 成功后持久化选定前提和大纲，这是流水线第一个落库的步骤
func (s *Service) Plot(ctx context.Context, projectID string, in *PlotInput) (result *entity.PlotOutline, err error) {
	start := time.Now()
	defer func() { s.observeStep("plot", start, err) }()

	scope, language, err := s.requireScope(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		return nil, errInvalidInput("title and description must not be empty")
	}

	tpl, err := s.prompts.ChatTemplate(prompt.PromptPlotV1)
	if err != nil {
		return nil, errInternal(err, "failed to load plot prompt")
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"title":        in.Title,
		"genre":        in.Genre,
		"description":  in.Description,
		"chapters_min": s.cfg.PlotChaptersMin,
		"chapters_max": s.cfg.PlotChaptersMax,
		"language":     language,
	})
	if err != nil {
		return nil, errInternal(err, "failed to format plot prompt")
	}

	var out entity.PlotOutline
	err = s.gateway.GenerateJSON(ctx, &GenerateJSONRequest{
		Messages:    msgs,
		Temperature: float32(s.cfg.TempPlot),
		Out:         &out,
		Validate: func() error {
			n := len(out.Chapters)
			if n < s.cfg.PlotChaptersMin || n > s.cfg.PlotChaptersMax {
				return fmt.Errorf("expected %d-%d chapters, got %d",
					s.cfg.PlotChaptersMin, s.cfg.PlotChaptersMax, n)
			}
			for i, ch := range out.Chapters {
				if ch.Number < 1 {
					return fmt.Errorf("chapter %d has invalid number %d", i, ch.Number)
				}
				if strings.TrimSpace(ch.Title) == "" || strings.TrimSpace(ch.Summary) == "" {
					return fmt.Errorf("chapter %d is missing title or summary", ch.Number)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	selected := &entity.SelectedPremise{
		Title:       in.Title,
		Genre:       in.Genre,
		Description: in.Description,
	}
	if err := scope.SetValue(ctx, entity.KeySelected, selected); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save selected premise")
	}
	if err := scope.SetValue(ctx, entity.KeyPlot, &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save plot outline")
	}

	return &out, nil
}
