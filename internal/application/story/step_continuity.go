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

// BuildChapterContinuity 汇总某章全部散文并生成连续性胶囊
// 章内没有任何散文时直接落一个空胶囊，不调用 LLM
func (s *Service) BuildChapterContinuity(ctx context.Context, projectID string, chapter int) (result *entity.ChapterContinuity, err error) {
	start := time.Now()
	defer func() { s.observeStep("build_chapter_continuity", start, err) }()

	scope, language, err := s.requireScope(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if chapter < 1 {
		return nil, errInvalidInput("chapter must be >= 1")
	}

	texts, err := scope.OrderedBeatTexts(ctx, chapter)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load chapter prose")
	}

	prose := strings.TrimSpace(strings.Join(texts, "\n\n"))
	var capsule *entity.ChapterContinuity
	if prose == "" {
		capsule = &entity.ChapterContinuity{Bullets: []string{}}
	} else {
		capsule, err = s.buildContinuityCapsule(ctx, prose, language)
		if err != nil {
			return nil, err
		}
	}

	if err := scope.SaveContinuity(ctx, chapter, capsule); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save continuity capsule")
	}
	return capsule, nil
}

// buildContinuityCapsule 调用 LLM 把章节散文压缩为事实清单
// 同时服务显式的构建步骤和规划前的尽力补建，温度固定压低以求事实性
func (s *Service) buildContinuityCapsule(ctx context.Context, prose, language string) (*entity.ChapterContinuity, error) {
	tpl, err := s.prompts.ChatTemplate(prompt.PromptContinuityV1)
	if err != nil {
		return nil, errInternal(err, "failed to load continuity prompt")
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"chapter_prose": prose,
		"language":      language,
	})
	if err != nil {
		return nil, errInternal(err, "failed to format continuity prompt")
	}

	var out entity.ChapterContinuity
	err = s.gateway.GenerateJSON(ctx, &GenerateJSONRequest{
		Messages:    msgs,
		Temperature: float32(s.cfg.TempContinuity),
		Out:         &out,
		Validate: func() error {
			if len(out.Bullets) == 0 {
				return fmt.Errorf("expected at least one bullet, got none")
			}
			for i, b := range out.Bullets {
				if strings.TrimSpace(b) == "" {
					return fmt.Errorf("bullet %d is empty", i)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
