package story

import (
	"context"
	"strings"
	"testing"

	"infinite-book-api/internal/domain/entity"
)

func seedPlannedProject(t *testing.T, svc *Service) *entity.Project {
	t.Helper()
	ctx := context.Background()
	p := seedProject(t, svc)
	scope := svc.store.Scope(p.ID)
	if err := scope.SetValue(ctx, entity.KeySelected, &entity.SelectedPremise{
		Title: "The Long Night", Genre: "mystery", Description: "a premise",
	}); err != nil {
		t.Fatalf("seed selected: %v", err)
	}
	if err := scope.SetValue(ctx, entity.KeyPlot, &entity.PlotOutline{
		Chapters: []entity.PlotChapter{
			{Number: 1, Title: "One", Summary: "opening"},
			{Number: 2, Title: "Two", Summary: "escalation"},
		},
	}); err != nil {
		t.Fatalf("seed plot: %v", err)
	}
	return p
}

func beatPlanJSON(n int) string {
	beats := make([]string, n)
	for i := range beats {
		beats[i] = `{"type": "Action", "description": "something happens"}`
	}
	return `{"beats": [` + strings.Join(beats, ",") + `]}`
}

func TestChapterPlanAutoBuildsPrevContinuity(t *testing.T) {
	svc, chatModel := newTestService(t, []string{
		`{"bullets": ["Ari found the key", "The door stayed locked"]}`,
		beatPlanJSON(6),
	})
	p := seedPlannedProject(t, svc)
	ctx := context.Background()
	scope := svc.store.Scope(p.ID)

	// 上一章有散文但没有胶囊：规划第 2 章前必须先补建
	if err := scope.SaveBeatText(ctx, 1, 0, "the chapter opens"); err != nil {
		t.Fatalf("SaveBeatText: %v", err)
	}
	if err := scope.SaveBeatText(ctx, 1, 1, "the chapter closes"); err != nil {
		t.Fatalf("SaveBeatText: %v", err)
	}

	plan, err := svc.ChapterPlan(ctx, p.ID, &ChapterPlanInput{Chapter: 2})
	if err != nil {
		t.Fatalf("ChapterPlan: %v", err)
	}
	if len(plan.Beats) != 6 {
		t.Errorf("expected 6 beats, got %d", len(plan.Beats))
	}
	if len(chatModel.calls) != 2 {
		t.Errorf("expected capsule call + plan call, got %d", len(chatModel.calls))
	}

	capsule, ok, err := scope.Continuity(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("expected auto-built capsule: ok=%v err=%v", ok, err)
	}
	if len(capsule.Bullets) != 2 || capsule.Bullets[0] != "Ari found the key" {
		t.Errorf("unexpected capsule: %v", capsule.Bullets)
	}

	saved, ok, err := scope.BeatPlan(ctx, 2)
	if err != nil || !ok {
		t.Fatalf("plan not persisted: ok=%v err=%v", ok, err)
	}
	if len(saved.Beats) != 6 {
		t.Errorf("persisted plan has %d beats", len(saved.Beats))
	}
}

func TestChapterPlanSkipsCapsuleWithoutProse(t *testing.T) {
	svc, chatModel := newTestService(t, []string{beatPlanJSON(6)})
	p := seedPlannedProject(t, svc)
	ctx := context.Background()
	scope := svc.store.Scope(p.ID)

	// 上一章一个字都没写：不补建，也不阻塞规划
	plan, err := svc.ChapterPlan(ctx, p.ID, &ChapterPlanInput{Chapter: 2})
	if err != nil {
		t.Fatalf("ChapterPlan: %v", err)
	}
	if len(plan.Beats) != 6 {
		t.Errorf("expected 6 beats, got %d", len(plan.Beats))
	}
	if len(chatModel.calls) != 1 {
		t.Errorf("expected the plan call only, got %d", len(chatModel.calls))
	}

	_, ok, err := scope.Continuity(ctx, 1)
	if err != nil {
		t.Fatalf("Continuity: %v", err)
	}
	if ok {
		t.Error("no capsule must be written when the previous chapter has no prose")
	}
}

func TestChapterPlanFirstChapterNeverBuildsCapsule(t *testing.T) {
	svc, chatModel := newTestService(t, []string{beatPlanJSON(6)})
	p := seedPlannedProject(t, svc)
	ctx := context.Background()

	if _, err := svc.ChapterPlan(ctx, p.ID, &ChapterPlanInput{Chapter: 1}); err != nil {
		t.Fatalf("ChapterPlan: %v", err)
	}
	if len(chatModel.calls) != 1 {
		t.Errorf("chapter 1 must not trigger a capsule call, got %d", len(chatModel.calls))
	}
}

func TestChapterPlanRejectsOutOfRangeChapter(t *testing.T) {
	svc, chatModel := newTestService(t, nil)
	p := seedPlannedProject(t, svc)
	ctx := context.Background()

	for _, chapter := range []int{0, 3} {
		if _, err := svc.ChapterPlan(ctx, p.ID, &ChapterPlanInput{Chapter: chapter}); err == nil {
			t.Errorf("chapter %d: expected error", chapter)
		}
	}
	if len(chatModel.calls) != 0 {
		t.Errorf("no LLM call expected, got %d", len(chatModel.calls))
	}
}
