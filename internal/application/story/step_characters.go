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

// CharactersInput 角色生成输入
// 任一字段为空时回退到已存的前提或大纲
type CharactersInput struct {
	Title       string
	Genre       string
	PlotSummary string
}

// Characters 基于前提和大纲生成角色阵容并整体落库
// 重复执行会替换旧阵容，不会追加
func (s *Service) Characters(ctx context.Context, projectID string, in *CharactersInput) (result *entity.GroupedCharacters, err error) {
	start := time.Now()
	defer func() { s.observeStep("characters", start, err) }()

	scope, language, err := s.requireScope(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if in == nil {
		in = &CharactersInput{}
	}
	title := strings.TrimSpace(in.Title)
	genre := strings.TrimSpace(in.Genre)
	summary := strings.TrimSpace(in.PlotSummary)
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
	if summary == "" {
		plot, err := s.requirePlot(ctx, scope)
		if err != nil {
			return nil, err
		}
		summary = plotSummary(plot)
	}

	tpl, err := s.prompts.ChatTemplate(prompt.PromptCharactersV1)
	if err != nil {
		return nil, errInternal(err, "failed to load characters prompt")
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"title":        title,
		"genre":        genre,
		"plot_summary": summary,
		"prot_min":     s.cfg.ProtagonistsMin,
		"prot_max":     s.cfg.ProtagonistsMax,
		"ant_min":      s.cfg.AntagonistsMin,
		"side_min":     s.cfg.SupportingMin,
		"side_max":     s.cfg.SupportingMax,
		"language":     language,
	})
	if err != nil {
		return nil, errInternal(err, "failed to format characters prompt")
	}

	var out entity.CharacterRoster
	err = s.gateway.GenerateJSON(ctx, &GenerateJSONRequest{
		Messages:    msgs,
		Temperature: float32(s.cfg.TempCharacters),
		Out:         &out,
		Validate: func() error {
			if err := checkGroupSize("protagonists", len(out.Protagonists), s.cfg.ProtagonistsMin, s.cfg.ProtagonistsMax); err != nil {
				return err
			}
			if err := checkGroupSize("antagonists", len(out.Antagonists), s.cfg.AntagonistsMin, s.cfg.AntagonistsMax); err != nil {
				return err
			}
			if err := checkGroupSize("supporting", len(out.Supporting), s.cfg.SupportingMin, s.cfg.SupportingMax); err != nil {
				return err
			}
			seen := make(map[string]bool)
			for _, card := range append(append(append([]entity.CharacterCard{}, out.Protagonists...), out.Antagonists...), out.Supporting...) {
				name := strings.TrimSpace(card.Name)
				if name == "" {
					return fmt.Errorf("character with empty name")
				}
				if seen[name] {
					return fmt.Errorf("duplicate character name: %s", name)
				}
				seen[name] = true
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Characters.ReplaceAll(ctx, scope.ProjectID(), out.Flatten(scope.ProjectID())); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save characters")
	}

	grouped, err := s.store.Characters.ListGrouped(ctx, scope.ProjectID())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list characters")
	}
	return grouped, nil
}

func checkGroupSize(group string, n, min, max int) error {
	if n < min || n > max {
		return fmt.Errorf("expected %d-%d %s, got %d", min, max, group, n)
	}
	return nil
}

// plotSummary 把大纲渲染为提示词可用的章节概览
func plotSummary(plot *entity.PlotOutline) string {
	var b strings.Builder
	for _, ch := range plot.Chapters {
		fmt.Fprintf(&b, "Ch %d: %s - %s\n", ch.Number, ch.Title, ch.Summary)
	}
	return strings.TrimSpace(b.String())
}
