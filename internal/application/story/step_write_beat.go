package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"infinite-book-api/internal/domain/entity"
	"infinite-book-api/internal/workflow/prompt"
	apperrors "infinite-book-api/pkg/errors"
	"infinite-book-api/pkg/metrics"
)

// 短于该字符数的散文视为模型截断或拒答
const minBeatTextChars = 50

// WriteBeatResult 节拍写作结果
type WriteBeatResult struct {
	Chapter   int    `json:"chapter"`
	BeatIndex int    `json:"beat_index"`
	Text      string `json:"text"`
}

// WriteBeat 为某章的单个节拍生成散文并落库
// 下标校验先于任何 LLM 调用：越界请求不能消耗一次生成
func (s *Service) WriteBeat(ctx context.Context, projectID string, chapter, beatIndex int) (result *WriteBeatResult, err error) {
	start := time.Now()
	defer func() { s.observeStep("write_beat", start, err) }()

	scope, language, err := s.requireScope(ctx, projectID)
	if err != nil {
		return nil, err
	}

	plan, ok, err := scope.BeatPlan(ctx, chapter)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load beat plan")
	}
	if !ok {
		return nil, apperrors.ErrBeatPlanMissing
	}
	if beatIndex < 0 || beatIndex >= len(plan.Beats) {
		return nil, apperrors.ErrInvalidBeatIndex
	}
	beat := plan.Beats[beatIndex]

	wc, err := s.assembler.Build(ctx, scope, plan, chapter, beatIndex)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to assemble write context")
	}

	tpl, err := s.prompts.ChatTemplate(prompt.PromptWriteBeatV1)
	if err != nil {
		return nil, errInternal(err, "failed to load write beat prompt")
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"beat_number":          beatIndex + 1,
		"beat_type":            beat.Type,
		"beat_description":     beat.Description,
		"prev_beats":           wc.PrevBeats,
		"prev_text":            wc.PrevText,
		"prev_chapter_note":    wc.PrevChapterNote,
		"prev_chapter_capsule": wc.PrevChapterCapsule,
		"prev_chapter_ending":  wc.PrevChapterEnding,
		"language":             language,
	})
	if err != nil {
		return nil, errInternal(err, "failed to format write beat prompt")
	}

	var out struct {
		Text string `json:"text"`
	}
	err = s.gateway.GenerateJSON(ctx, &GenerateJSONRequest{
		Messages:    msgs,
		Temperature: float32(s.cfg.TempProse),
		Out:         &out,
		Validate: func() error {
			if len(strings.TrimSpace(out.Text)) < minBeatTextChars {
				return fmt.Errorf("prose too short: %d chars", len(strings.TrimSpace(out.Text)))
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(out.Text)
	if err := scope.SaveBeatText(ctx, chapter, beatIndex, text); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save beat text")
	}
	metrics.BeatWordCount.Observe(float64(len(strings.Fields(text))))

	return &WriteBeatResult{Chapter: chapter, BeatIndex: beatIndex, Text: text}, nil
}

// BeatPlanFor 读取某章节拍计划，供 HTTP 层查询
func (s *Service) BeatPlanFor(ctx context.Context, projectID string, chapter int) (*entity.BeatPlan, error) {
	scope := s.store.Scope(projectID)
	if _, err := s.store.RequireProject(ctx, projectID); err != nil {
		return nil, err
	}
	plan, ok, err := scope.BeatPlan(ctx, chapter)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load beat plan")
	}
	if !ok {
		return nil, apperrors.ErrBeatPlanMissing
	}
	return plan, nil
}

// ClearBeat 删除单个节拍散文
func (s *Service) ClearBeat(ctx context.Context, projectID string, chapter, beatIndex int) error {
	if _, err := s.store.RequireProject(ctx, projectID); err != nil {
		return err
	}
	if beatIndex < 0 {
		return apperrors.ErrInvalidBeatIndex
	}
	scope := s.store.Scope(projectID)
	if err := scope.ClearBeat(ctx, chapter, beatIndex); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to clear beat text")
	}
	return nil
}

// ClearBeatsFrom 删除某章下标 >= from 的全部散文，返回删除数量
func (s *Service) ClearBeatsFrom(ctx context.Context, projectID string, chapter, from int) (int, error) {
	if _, err := s.store.RequireProject(ctx, projectID); err != nil {
		return 0, err
	}
	if from < 0 {
		return 0, apperrors.ErrInvalidBeatIndex
	}
	scope := s.store.Scope(projectID)
	deleted, err := scope.ClearBeatsFrom(ctx, chapter, from)
	if err != nil {
		return deleted, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to clear beat texts")
	}
	return deleted, nil
}
