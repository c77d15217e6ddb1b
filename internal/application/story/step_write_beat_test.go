package story

import (
	"context"
	"strings"
	"testing"

	"infinite-book-api/internal/config"
	"infinite-book-api/internal/domain/entity"
	"infinite-book-api/internal/workflow/prompt"
	apperrors "infinite-book-api/pkg/errors"
)

func newTestService(t *testing.T, responses []string) (*Service, *fakeChatModel) {
	t.Helper()
	store := newTestStore(t)
	gw, chatModel := newTestGateway(responses, 2)
	cfg := &config.StoryConfig{
		RefineVariations:           3,
		PlotChaptersMin:            3,
		PlotChaptersMax:            12,
		BeatsMin:                   6,
		BeatsMax:                   12,
		TempProse:                  0.8,
		ContextLookbackBeats:       4,
		PrevTextApproxTokens:       1800,
		PrevChapterExcerptMaxChars: 1200,
	}
	return NewService(store, gw, prompt.NewRegistry(), cfg), chatModel
}

func seedProject(t *testing.T, svc *Service) *entity.Project {
	t.Helper()
	p := entity.NewProject("Test Book", "en")
	if err := svc.store.Projects.Create(context.Background(), p); err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return p
}

func TestWriteBeatMissingPlan(t *testing.T) {
	svc, chatModel := newTestService(t, nil)
	p := seedProject(t, svc)

	_, err := svc.WriteBeat(context.Background(), p.ID, 1, 0)
	if err == nil {
		t.Fatal("expected error without a beat plan")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeBeatPlanMissing {
		t.Errorf("expected CodeBeatPlanMissing, got %v", err)
	}
	if len(chatModel.calls) != 0 {
		t.Errorf("no LLM call expected, got %d", len(chatModel.calls))
	}
}

func TestWriteBeatIndexOutOfRange(t *testing.T) {
	svc, chatModel := newTestService(t, nil)
	p := seedProject(t, svc)
	ctx := context.Background()
	scope := svc.store.Scope(p.ID)

	if err := scope.SaveBeatPlan(ctx, 1, testPlan(3)); err != nil {
		t.Fatalf("SaveBeatPlan: %v", err)
	}

	for _, idx := range []int{-1, 3, 99} {
		_, err := svc.WriteBeat(ctx, p.ID, 1, idx)
		if err == nil {
			t.Fatalf("index %d: expected error", idx)
		}
		if apperrors.AsAppError(err).Code != apperrors.CodeInvalidParam {
			t.Errorf("index %d: expected invalid param, got %v", idx, err)
		}
	}
	// 越界请求不得触发生成，也不得落库
	if len(chatModel.calls) != 0 {
		t.Errorf("no LLM call expected, got %d", len(chatModel.calls))
	}
	texts, err := scope.ListBeatTexts(ctx, 1)
	if err != nil || len(texts) != 0 {
		t.Errorf("no beat text should be written, got %v err %v", texts, err)
	}
}

func TestWriteBeatHappyPath(t *testing.T) {
	prose := strings.Repeat("The rain kept falling on the empty street. ", 4)
	svc, chatModel := newTestService(t, []string{`{"text": "` + prose + `"}`})
	p := seedProject(t, svc)
	ctx := context.Background()
	scope := svc.store.Scope(p.ID)

	if err := scope.SaveBeatPlan(ctx, 1, testPlan(3)); err != nil {
		t.Fatalf("SaveBeatPlan: %v", err)
	}

	result, err := svc.WriteBeat(ctx, p.ID, 1, 0)
	if err != nil {
		t.Fatalf("WriteBeat: %v", err)
	}
	if result.Chapter != 1 || result.BeatIndex != 0 {
		t.Errorf("unexpected result coords: %+v", result)
	}
	if !strings.Contains(result.Text, "rain kept falling") {
		t.Errorf("unexpected text: %q", result.Text)
	}
	if len(chatModel.calls) != 1 {
		t.Errorf("expected 1 LLM call, got %d", len(chatModel.calls))
	}

	saved, ok, err := scope.BeatText(ctx, 1, 0)
	if err != nil || !ok {
		t.Fatalf("beat text not persisted: ok=%v err=%v", ok, err)
	}
	if saved != result.Text {
		t.Errorf("persisted text differs from result")
	}
}

func TestWriteBeatUnknownProject(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.WriteBeat(context.Background(), "missing", 1, 0)
	if err == nil {
		t.Fatal("expected error for unknown project")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeProjectNotFound {
		t.Errorf("expected CodeProjectNotFound, got %v", err)
	}
}

func TestClearBeatsFromRejectsNegative(t *testing.T) {
	svc, _ := newTestService(t, nil)
	p := seedProject(t, svc)

	_, err := svc.ClearBeatsFrom(context.Background(), p.ID, 1, -1)
	if err == nil {
		t.Fatal("expected error for negative from index")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidParam {
		t.Errorf("expected invalid param, got %v", err)
	}
}
