package story

import (
	"context"
	"strings"
	"testing"

	"infinite-book-api/internal/domain/entity"
)

func testPlan(n int) *entity.BeatPlan {
	plan := &entity.BeatPlan{}
	for i := 0; i < n; i++ {
		plan.Beats = append(plan.Beats, entity.Beat{Type: "Action", Description: "something happens"})
	}
	return plan
}

func TestBuildSameChapterTailWins(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	// 上一章有胶囊和散文，但本章前一拍已写，跨章字段必须为空
	if err := scope.SaveContinuity(ctx, 1, &entity.ChapterContinuity{Bullets: []string{"old fact"}}); err != nil {
		t.Fatalf("SaveContinuity: %v", err)
	}
	if err := scope.SaveBeatText(ctx, 1, 0, "chapter one ending"); err != nil {
		t.Fatalf("SaveBeatText ch1: %v", err)
	}
	if err := scope.SaveBeatText(ctx, 2, 0, "chapter two opens here"); err != nil {
		t.Fatalf("SaveBeatText ch2: %v", err)
	}

	assembler := NewContextAssembler(4, 1800)
	wc, err := assembler.Build(ctx, scope, testPlan(5), 2, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !strings.Contains(wc.PrevText, "chapter two opens here") {
		t.Errorf("expected same-chapter tail, got %q", wc.PrevText)
	}
	if wc.PrevChapterNote != "" || wc.PrevChapterCapsule != "" || wc.PrevChapterEnding != "" {
		t.Errorf("cross-chapter fields must stay empty when same-chapter text exists: %+v", wc)
	}
}

func TestBuildCrossChapterFallback(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	if err := scope.SaveContinuity(ctx, 1, &entity.ChapterContinuity{Bullets: []string{"Ari holds the key"}}); err != nil {
		t.Fatalf("SaveContinuity: %v", err)
	}
	if err := scope.SaveBeatText(ctx, 1, 0, "the chapter one finale"); err != nil {
		t.Fatalf("SaveBeatText: %v", err)
	}

	assembler := NewContextAssembler(4, 1800)
	wc, err := assembler.Build(ctx, scope, testPlan(5), 2, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if wc.PrevText != "" {
		t.Errorf("beat 0 has no same-chapter text, got %q", wc.PrevText)
	}
	if !strings.Contains(wc.PrevChapterNote, "Ch 1") {
		t.Errorf("expected note pointing at chapter 1, got %q", wc.PrevChapterNote)
	}
	if !strings.Contains(wc.PrevChapterCapsule, "Ari holds the key") {
		t.Errorf("expected capsule text, got %q", wc.PrevChapterCapsule)
	}
	if !strings.Contains(wc.PrevChapterEnding, "finale") {
		t.Errorf("expected ending excerpt, got %q", wc.PrevChapterEnding)
	}
}

func TestBuildCrossChapterEndingUsesLastBeatOnly(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	// 结尾节选只来自上一章下标最大的一拍，倒数第二拍不得混入
	if err := scope.SaveBeatText(ctx, 1, 0, "the penultimate scene winds down"); err != nil {
		t.Fatalf("SaveBeatText beat 0: %v", err)
	}
	if err := scope.SaveBeatText(ctx, 1, 1, "the final scene closes the chapter"); err != nil {
		t.Fatalf("SaveBeatText beat 1: %v", err)
	}

	assembler := NewContextAssembler(4, 1800)
	wc, err := assembler.Build(ctx, scope, testPlan(5), 2, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !strings.Contains(wc.PrevChapterEnding, "final scene") {
		t.Errorf("expected the last beat's text, got %q", wc.PrevChapterEnding)
	}
	if strings.Contains(wc.PrevChapterEnding, "penultimate") {
		t.Errorf("ending must not include the second-to-last beat, got %q", wc.PrevChapterEnding)
	}
}

func TestBuildCrossChapterEndingIsTailSliced(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	long := strings.Repeat("x", 500) + " TAIL-END"
	if err := scope.SaveBeatText(ctx, 1, 0, long); err != nil {
		t.Fatalf("SaveBeatText: %v", err)
	}

	// 预算 25 token ≈ 100 字符，必须取尾部
	assembler := NewContextAssembler(4, 25)
	wc, err := assembler.Build(ctx, scope, testPlan(5), 2, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(wc.PrevChapterEnding) != 100 {
		t.Errorf("expected 100-char tail, got %d", len(wc.PrevChapterEnding))
	}
	if !strings.HasSuffix(wc.PrevChapterEnding, "TAIL-END") {
		t.Errorf("expected the tail of the beat, got %q", wc.PrevChapterEnding)
	}
}

func TestBuildCrossChapterPlaceholders(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	// 上一章既无胶囊也无散文：字段用占位符而不是留空
	assembler := NewContextAssembler(4, 1800)
	wc, err := assembler.Build(ctx, scope, testPlan(5), 2, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if wc.PrevChapterCapsule != "(none)" {
		t.Errorf("expected capsule placeholder, got %q", wc.PrevChapterCapsule)
	}
	if wc.PrevChapterEnding != "(none)" {
		t.Errorf("expected ending placeholder, got %q", wc.PrevChapterEnding)
	}
}

func TestBuildFirstChapterNeverCross(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	assembler := NewContextAssembler(4, 1800)
	wc, err := assembler.Build(ctx, scope, testPlan(5), 1, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if wc.PrevChapterNote != "" || wc.PrevChapterCapsule != "" || wc.PrevChapterEnding != "" {
		t.Errorf("chapter 1 must never carry cross-chapter context: %+v", wc)
	}
	if wc.PrevBeats != "- (none)" {
		t.Errorf("beat 0 has no past beats, got %q", wc.PrevBeats)
	}
}

func TestFormatPrevBeatsWindow(t *testing.T) {
	assembler := NewContextAssembler(2, 1800)
	plan := &entity.BeatPlan{Beats: []entity.Beat{
		{Type: "Action", Description: "one"},
		{Type: "Dialogue", Description: "two"},
		{Type: "Description", Description: "three"},
		{Type: "Action", Description: "four"},
	}}

	got := assembler.formatPrevBeats(plan, 3)
	want := "- Beat 2 (Dialogue): two\n- Beat 3 (Description): three"
	if got != want {
		t.Errorf("formatPrevBeats(3) = %q, want %q", got, want)
	}

	if got := assembler.formatPrevBeats(plan, 0); got != "- (none)" {
		t.Errorf("formatPrevBeats(0) = %q", got)
	}
	if got := assembler.formatPrevBeats(nil, 2); got != "- (none)" {
		t.Errorf("formatPrevBeats(nil) = %q", got)
	}
}
