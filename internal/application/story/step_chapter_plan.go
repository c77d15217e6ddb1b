package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"infinite-book-api/internal/domain/entity"
	"infinite-book-api/internal/workflow/prompt"
	apperrors "infinite-book-api/pkg/errors"
	"infinite-book-api/pkg/logger"
	"infinite-book-api/pkg/metrics"
)

// ChapterPlanInput 节拍计划输入
// 除 Chapter 外所有字段可选，缺省时回退到已存的前提、大纲和角色阵容
type ChapterPlanInput struct {
	Chapter        int
	Title          string
	Genre          string
	ChapterTitle   string
	ChapterSummary string
	Characters     []string
}

// ChapterPlan 为某一章生成节拍计划
// 从第 2 章起，若上一章已有散文但没有连续性胶囊，会先尽力补建一次；
// 补建失败只记日志和指标，不阻塞本步骤
func (s *Service) ChapterPlan(ctx context.Context, projectID string, in *ChapterPlanInput) (result *entity.BeatPlan, err error) {
	start := time.Now()
	defer func() { s.observeStep("chapter_plan", start, err) }()

	if in == nil {
		return nil, errInvalidInput("missing chapter plan input")
	}
	chapter := in.Chapter

	scope, language, err := s.requireScope(ctx, projectID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	genre := strings.TrimSpace(in.Genre)
	if title == "" || genre == "" {
		selected, err := s.requireSelected(ctx, scope)
		if err != nil {
			return nil, err
		}
		if title == "" {
			title = selected.Title
		}
		if genre == "" {
			genre = selected.Genre
		}
	}
	plot, err := s.requirePlot(ctx, scope)
	if err != nil {
		return nil, err
	}

	if chapter < 1 || chapter > len(plot.Chapters) {
		return nil, errInvalidInput(fmt.Sprintf("chapter must be between 1 and %d", len(plot.Chapters)))
	}
	plotChapter := plot.Chapters[chapter-1]
	chapterTitle := strings.TrimSpace(in.ChapterTitle)
	if chapterTitle == "" {
		chapterTitle = plotChapter.Title
	}
	chapterSummary := strings.TrimSpace(in.ChapterSummary)
	if chapterSummary == "" {
		chapterSummary = plotChapter.Summary
	}

	s.ensurePrevContinuity(ctx, scope, chapter, language)

	prevCapsuleText := ""
	if capsule, err := scope.PrevChapterContinuity(ctx, chapter); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load previous chapter continuity")
	} else if capsule != nil {
		prevCapsuleText = capsule.Text()
	}

	prevEnding, err := scope.PrevChapterEndingExcerpt(ctx, chapter, s.cfg.PrevChapterExcerptMaxChars)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load previous chapter ending")
	}

	present := strings.Join(in.Characters, ", ")
	if strings.TrimSpace(present) == "" {
		grouped, err := s.store.Characters.ListGrouped(ctx, scope.ProjectID())
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list characters")
		}
		present = charactersPresent(grouped)
	}

	tpl, err := s.prompts.ChatTemplate(prompt.PromptChapterBeatsV1)
	if err != nil {
		return nil, errInternal(err, "failed to load chapter beats prompt")
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"title":                       title,
		"genre":                       genre,
		"chapter_title":               chapterTitle,
		"chapter_summary":             chapterSummary,
		"characters_present":          present,
		"beats_min":                   s.cfg.BeatsMin,
		"beats_max":                   s.cfg.BeatsMax,
		"prev_chapter_continuity":     prevCapsuleText,
		"prev_chapter_ending_excerpt": prevEnding,
		"language":                    language,
	})
	if err != nil {
		return nil, errInternal(err, "failed to format chapter beats prompt")
	}

	var out entity.BeatPlan
	err = s.gateway.GenerateJSON(ctx, &GenerateJSONRequest{
		Messages:    msgs,
		Temperature: float32(s.cfg.TempBeats),
		Out:         &out,
		Validate: func() error {
			n := len(out.Beats)
			if n < s.cfg.BeatsMin || n > s.cfg.BeatsMax {
				return fmt.Errorf("expected %d-%d beats, got %d", s.cfg.BeatsMin, s.cfg.BeatsMax, n)
			}
			for i, b := range out.Beats {
				if strings.TrimSpace(b.Description) == "" {
					return fmt.Errorf("beat %d has empty description", i)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	if err := scope.SaveBeatPlan(ctx, chapter, &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save beat plan")
	}

	return &out, nil
}

// ensurePrevContinuity 尽力为上一章补建连续性胶囊
// 只在第 2 章起、上一章有散文且胶囊缺失时触发；任何失败都被吞掉，
// 仅记录日志与指标，胶囊缺失不是规划步骤的致命条件
func (s *Service) ensurePrevContinuity(ctx context.Context, scope *ProjectScope, chapter int, language string) {
	prev := chapter - 1
	if prev < 1 {
		metrics.ContinuityAutoBuildTotal.WithLabelValues("skipped").Inc()
		return
	}

	_, ok, err := scope.Continuity(ctx, prev)
	if err != nil {
		metrics.ContinuityAutoBuildTotal.WithLabelValues("failed").Inc()
		logger.Warn(ctx, "failed to check previous chapter continuity", "chapter", prev, "error", err.Error())
		return
	}
	if ok {
		metrics.ContinuityAutoBuildTotal.WithLabelValues("skipped").Inc()
		return
	}

	texts, err := scope.OrderedBeatTexts(ctx, prev)
	if err != nil {
		metrics.ContinuityAutoBuildTotal.WithLabelValues("failed").Inc()
		logger.Warn(ctx, "failed to load previous chapter prose", "chapter", prev, "error", err.Error())
		return
	}
	if len(texts) == 0 {
		metrics.ContinuityAutoBuildTotal.WithLabelValues("skipped").Inc()
		return
	}

	capsule, err := s.buildContinuityCapsule(ctx, strings.Join(texts, "\n\n"), language)
	if err != nil {
		metrics.ContinuityAutoBuildTotal.WithLabelValues("failed").Inc()
		logger.Warn(ctx, "best-effort continuity build failed", "chapter", prev, "error", err.Error())
		return
	}
	if err := scope.SaveContinuity(ctx, prev, capsule); err != nil {
		metrics.ContinuityAutoBuildTotal.WithLabelValues("failed").Inc()
		logger.Warn(ctx, "failed to save auto-built continuity", "chapter", prev, "error", err.Error())
		return
	}

	metrics.ContinuityAutoBuildTotal.WithLabelValues("built").Inc()
	logger.Debug(ctx, "auto-built previous chapter continuity", "chapter", prev)
}

// charactersPresent 把角色阵容渲染为 "Name (role)" 列表
func charactersPresent(grouped *entity.GroupedCharacters) string {
	if grouped == nil {
		return "(none)"
	}
	var parts []string
	add := func(rows []*entity.Character) {
		for _, c := range rows {
			if strings.TrimSpace(c.Role) != "" {
				parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, c.Role))
			} else {
				parts = append(parts, c.Name)
			}
		}
	}
	add(grouped.Protagonists)
	add(grouped.Antagonists)
	add(grouped.Supporting)
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, ", ")
}
