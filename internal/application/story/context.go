package story

import (
	"context"
	"fmt"
	"strings"

	"infinite-book-api/internal/application/story/storyutil"
	"infinite-book-api/internal/domain/entity"
)

// WriteContext 写作节拍时注入提示词的上下文
// 同章尾部文本与跨章回退互斥：只要本章已有散文，跨章字段必须为空
type WriteContext struct {
	PrevText           string
	PrevBeats          string
	PrevChapterNote    string
	PrevChapterCapsule string
	PrevChapterEnding  string
}

// ContextAssembler 为写作步骤组装上下文
type ContextAssembler struct {
	lookbackBeats        int
	prevTextApproxTokens int
}

// NewContextAssembler 创建上下文组装器
func NewContextAssembler(lookbackBeats, prevTextApproxTokens int) *ContextAssembler {
	return &ContextAssembler{
		lookbackBeats:        lookbackBeats,
		prevTextApproxTokens: prevTextApproxTokens,
	}
}

// Build 组装写作第 chapter 章第 beatIndex 拍的上下文
//
// 优先级：本章前一拍的尾部文本压倒一切；只有在第 2 章起且本章还没有
// 任何散文时，才回退到上一章的胶囊和结尾节选
func (a *ContextAssembler) Build(ctx context.Context, scope *ProjectScope, plan *entity.BeatPlan, chapter, beatIndex int) (*WriteContext, error) {
	wc := &WriteContext{
		PrevBeats: a.formatPrevBeats(plan, beatIndex),
	}

	if beatIndex > 0 {
		text, ok, err := scope.BeatText(ctx, chapter, beatIndex-1)
		if err != nil {
			return nil, fmt.Errorf("failed to load previous beat text: %w", err)
		}
		if ok {
			wc.PrevText = storyutil.TailByApproxTokens(text, a.prevTextApproxTokens)
		}
	}

	if chapter <= 1 || strings.TrimSpace(wc.PrevText) != "" {
		return wc, nil
	}

	wc.PrevChapterNote = fmt.Sprintf(
		"NOTE: The following context is from the PREVIOUS CHAPTER (Ch %d).", chapter-1)

	capsule, err := scope.PrevChapterContinuity(ctx, chapter)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous chapter continuity: %w", err)
	}
	if capsuleText := capsule.Text(); capsuleText != "" {
		wc.PrevChapterCapsule = capsuleText
	} else {
		wc.PrevChapterCapsule = "(none)"
	}

	// 结尾只取上一章最后一拍的尾部；两拍拼接的长节选是规划步骤的口径
	ending, ok, err := scope.LastWrittenBeatText(ctx, chapter-1)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous chapter ending: %w", err)
	}
	if ok && strings.TrimSpace(ending) != "" {
		wc.PrevChapterEnding = storyutil.TailByApproxTokens(ending, a.prevTextApproxTokens)
	} else {
		wc.PrevChapterEnding = "(none)"
	}

	return wc, nil
}

// formatPrevBeats 把计划中最近 lookbackBeats 个已过节拍渲染为列表行
func (a *ContextAssembler) formatPrevBeats(plan *entity.BeatPlan, beatIndex int) string {
	if plan == nil || beatIndex <= 0 {
		return "- (none)"
	}
	start := beatIndex - a.lookbackBeats
	if start < 0 {
		start = 0
	}
	var lines []string
	for i := start; i < beatIndex && i < len(plan.Beats); i++ {
		b := plan.Beats[i]
		lines = append(lines, fmt.Sprintf("- Beat %d (%s): %s", i+1, b.Type, b.Description))
	}
	if len(lines) == 0 {
		return "- (none)"
	}
	return strings.Join(lines, "\n")
}
