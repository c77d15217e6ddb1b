package story

import (
	"context"
	"testing"

	apperrors "infinite-book-api/pkg/errors"
)

func TestRefineRequiresExactVariationCount(t *testing.T) {
	// 配置要求 3 个变体；第一次只给 2 个，必须触发重试
	svc, chatModel := newTestService(t, []string{
		`{"options": [
			{"title": "A", "genre": "mystery", "description": "da"},
			{"title": "B", "genre": "mystery", "description": "db"}
		]}`,
		`{"options": [
			{"title": "A", "genre": "mystery", "description": "da"},
			{"title": "B", "genre": "mystery", "description": "db"},
			{"title": "C", "genre": "mystery", "description": "dc"}
		]}`,
	})
	p := seedProject(t, svc)

	result, err := svc.Refine(context.Background(), p.ID, &RefineInput{
		Genre: "mystery",
		Idea:  "a detective who cannot lie",
	})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(chatModel.calls) != 2 {
		t.Errorf("expected a retry after the short option list, got %d calls", len(chatModel.calls))
	}
	if len(result.Options) != 4 {
		t.Fatalf("expected original + 3 variants, got %d", len(result.Options))
	}
	if result.Options[0].Title != "Original Concept" {
		t.Errorf("first option must be the untouched idea, got %q", result.Options[0].Title)
	}
	if result.Options[0].Description != "a detective who cannot lie" {
		t.Errorf("original description lost: %q", result.Options[0].Description)
	}
}

func TestRefineRejectsEmptyIdea(t *testing.T) {
	svc, chatModel := newTestService(t, nil)
	p := seedProject(t, svc)

	_, err := svc.Refine(context.Background(), p.ID, &RefineInput{Genre: "mystery", Idea: "   "})
	if err == nil {
		t.Fatal("expected error for blank idea")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidParam {
		t.Errorf("expected invalid param, got %v", err)
	}
	if len(chatModel.calls) != 0 {
		t.Errorf("no LLM call expected, got %d", len(chatModel.calls))
	}
}
