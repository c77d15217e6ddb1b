package project

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"infinite-book-api/internal/application/story"
	"infinite-book-api/internal/config"
	"infinite-book-api/internal/domain/entity"
	"infinite-book-api/internal/infrastructure/persistence/sqlite"
	apperrors "infinite-book-api/pkg/errors"
)

func newTestService(t *testing.T) (*Service, *story.Store) {
	t.Helper()
	client, err := sqlite.NewClient(&config.SQLiteConfig{
		Path:            filepath.Join(t.TempDir(), "test.sqlite"),
		BusyTimeout:     5 * time.Second,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	txManager := sqlite.NewTxManager(client)
	store := story.NewStore(
		sqlite.NewProjectRepository(client),
		sqlite.NewKVRepository(client),
		sqlite.NewCharacterRepository(client, txManager),
		sqlite.NewMediaJobRepository(client),
		txManager,
	)
	return NewService(store), store
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "  My Book  ", "RU")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Title != "My Book" || p.Language != entity.LanguageRussian {
		t.Errorf("unexpected project: %+v", p)
	}

	got, err := svc.Get(ctx, p.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: %+v err %v", got, err)
	}

	_, err = svc.Get(ctx, "missing")
	if err == nil {
		t.Fatal("expected not found")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeProjectNotFound {
		t.Errorf("expected CodeProjectNotFound, got %v", err)
	}
}

func TestDeleteDefaultProjectIsNoop(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// default 项目带着数据存在，删除必须被静默忽略
	if err := store.Projects.Create(ctx, &entity.Project{
		ID:       entity.DefaultProjectID,
		Title:    "Default",
		Language: entity.LanguageEnglish,
	}); err != nil {
		t.Fatalf("seed default project: %v", err)
	}
	scope := store.Scope(entity.DefaultProjectID)
	if err := scope.SaveBeatText(ctx, 1, 0, "precious prose"); err != nil {
		t.Fatalf("SaveBeatText: %v", err)
	}

	if err := svc.Delete(ctx, entity.DefaultProjectID); err != nil {
		t.Fatalf("Delete(default) must succeed as a no-op, got %v", err)
	}

	p, err := store.Projects.GetByID(ctx, entity.DefaultProjectID)
	if err != nil || p == nil {
		t.Fatalf("default project must survive, got %+v err %v", p, err)
	}
	text, ok, err := scope.BeatText(ctx, 1, 0)
	if err != nil || !ok || text != "precious prose" {
		t.Fatalf("default project data must survive, got %q ok=%v err=%v", text, ok, err)
	}
}

func TestDeleteRemovesProjectAndData(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "Doomed", "en")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	scope := store.Scope(p.ID)
	if err := scope.SaveBeatText(ctx, 1, 0, "text"); err != nil {
		t.Fatalf("SaveBeatText: %v", err)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := store.Projects.GetByID(ctx, p.ID)
	if err != nil || got != nil {
		t.Fatalf("expected project gone, got %+v err %v", got, err)
	}
	texts, err := scope.ListBeatTexts(ctx, 1)
	if err != nil || len(texts) != 0 {
		t.Fatalf("expected kv gone, got %v err %v", texts, err)
	}

	err = svc.Delete(ctx, p.ID)
	if err == nil {
		t.Fatal("deleting a missing project must fail")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeProjectNotFound {
		t.Errorf("expected CodeProjectNotFound, got %v", err)
	}
}

func TestUpdateCharacter(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "Book", "en")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Characters.ReplaceAll(ctx, p.ID, []*entity.Character{
		{ProjectID: p.ID, Kind: entity.CharacterKindProtagonist, Name: "Ari", Role: "lead"},
	}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	grouped, err := store.Characters.ListGrouped(ctx, p.ID)
	if err != nil || len(grouped.Protagonists) != 1 {
		t.Fatalf("setup failed: %v", err)
	}
	id := grouped.Protagonists[0].ID

	badKind := "villain"
	_, err = svc.UpdateCharacter(ctx, p.ID, id, &entity.CharacterPatch{Kind: &badKind})
	if err == nil {
		t.Fatal("expected invalid kind to be rejected")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidParam {
		t.Errorf("expected invalid param, got %v", err)
	}

	// 空补丁返回当前状态
	current, err := svc.UpdateCharacter(ctx, p.ID, id, &entity.CharacterPatch{})
	if err != nil {
		t.Fatalf("UpdateCharacter empty patch: %v", err)
	}
	if current.Name != "Ari" {
		t.Errorf("expected current state, got %+v", current)
	}

	newName := "Mira"
	updated, err := svc.UpdateCharacter(ctx, p.ID, id, &entity.CharacterPatch{Name: &newName})
	if err != nil {
		t.Fatalf("UpdateCharacter: %v", err)
	}
	if updated.Name != "Mira" || updated.Role != "lead" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	_, err = svc.UpdateCharacter(ctx, p.ID, 9999, &entity.CharacterPatch{Name: &newName})
	if err == nil {
		t.Fatal("expected not found for unknown character")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeCharacterNotFound {
		t.Errorf("expected CodeCharacterNotFound, got %v", err)
	}
}

func TestDeleteCharacter(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "Book", "en")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Characters.ReplaceAll(ctx, p.ID, []*entity.Character{
		{ProjectID: p.ID, Kind: entity.CharacterKindSupporting, Name: "Tomas"},
	}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	grouped, err := store.Characters.ListGrouped(ctx, p.ID)
	if err != nil || len(grouped.Supporting) != 1 {
		t.Fatalf("setup failed: %v", err)
	}
	id := grouped.Supporting[0].ID

	if err := svc.DeleteCharacter(ctx, p.ID, id); err != nil {
		t.Fatalf("DeleteCharacter: %v", err)
	}
	if err := svc.DeleteCharacter(ctx, p.ID, id); err == nil {
		t.Fatal("expected not found on second delete")
	}
}

func TestStateAggregation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "Book", "en")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	scope := store.Scope(p.ID)
	if err := scope.SetValue(ctx, entity.KeySelected, &entity.SelectedPremise{Title: "Premise"}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := scope.SaveBeatPlan(ctx, 1, &entity.BeatPlan{Beats: []entity.Beat{{Type: "Action", Description: "x"}}}); err != nil {
		t.Fatalf("SaveBeatPlan: %v", err)
	}
	if err := scope.SaveBeatText(ctx, 1, 0, "written"); err != nil {
		t.Fatalf("SaveBeatText: %v", err)
	}

	state, err := svc.State(ctx, p.ID, 1)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Selected == nil || state.Selected.Title != "Premise" {
		t.Errorf("expected selected premise, got %+v", state.Selected)
	}
	if state.Plot != nil {
		t.Errorf("no plot was stored, got %+v", state.Plot)
	}
	if state.Chapter == nil || state.Chapter.Plan == nil || len(state.Chapter.Written) != 1 {
		t.Errorf("unexpected chapter state: %+v", state.Chapter)
	}

	// chapter=0 不带章节进度
	state, err = svc.State(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("State without chapter: %v", err)
	}
	if state.Chapter != nil {
		t.Errorf("chapter state must be omitted, got %+v", state.Chapter)
	}
}
