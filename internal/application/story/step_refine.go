package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"infinite-book-api/internal/workflow/prompt"
)

// RefineInput 创意精炼输入
type RefineInput struct {
	Genre string
	Idea  string
}

// refineOutput LLM 输出的变体列表
type refineOutput struct {
	Options []refineOption `json:"options"`
}

type refineOption struct {
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
}

// RefineResult 精炼结果
// 第 0 项永远是用户的原始创意，其余为 LLM 变体；该结果不落库，
// 用户选定后由 plot 步骤持久化
type RefineResult struct {
	Options []refineOption `json:"options"`
}

// Refine 把一句话创意扩展为多个可选的故事前提
func (s *Service) Refine(ctx context.Context, projectID string, in *RefineInput) (result *RefineResult, err error) {
	start := time.Now()
	defer func() { s.observeStep("refine", start, err) }()

	scope, language, err := s.requireScope(ctx, projectID)
	if err != nil {
		return nil, err
	}
	_ = scope

	if strings.TrimSpace(in.Idea) == "" {
		return nil, errInvalidInput("idea must not be empty")
	}

	tpl, err := s.prompts.ChatTemplate(prompt.PromptRefineV1)
	if err != nil {
		return nil, errInternal(err, "failed to load refine prompt")
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"n_variations": s.cfg.RefineVariations,
		"genre":        in.Genre,
		"idea":         in.Idea,
		"language":     language,
	})
	if err != nil {
		return nil, errInternal(err, "failed to format refine prompt")
	}

	var out refineOutput
	err = s.gateway.GenerateJSON(ctx, &GenerateJSONRequest{
		Messages:    msgs,
		Temperature: float32(s.cfg.TempRefine),
		Out:         &out,
		Validate: func() error {
			if len(out.Options) != s.cfg.RefineVariations {
				return fmt.Errorf("expected exactly %d options, got %d", s.cfg.RefineVariations, len(out.Options))
			}
			for i, o := range out.Options {
				if strings.TrimSpace(o.Title) == "" || strings.TrimSpace(o.Description) == "" {
					return fmt.Errorf("option %d is missing title or description", i)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	options := make([]refineOption, 0, len(out.Options)+1)
	options = append(options, refineOption{
		Title:       "Original Concept",
		Genre:       in.Genre,
		Description: in.Idea,
	})
	options = append(options, out.Options...)

	return &RefineResult{Options: options}, nil
}
