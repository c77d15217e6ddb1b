package story

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"infinite-book-api/internal/config"
	"infinite-book-api/internal/domain/entity"
	"infinite-book-api/internal/infrastructure/persistence/sqlite"
)

func newTestStore(t *testing.T) *Store {
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
	return NewStore(
		sqlite.NewProjectRepository(client),
		sqlite.NewKVRepository(client),
		sqlite.NewCharacterRepository(client, txManager),
		sqlite.NewMediaJobRepository(client),
		txManager,
	)
}

func TestClearBeatsFromNumericOrder(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	// 下标 10、11 在字典序上排在 2 之前，必须按数字比较
	for i := 0; i < 12; i++ {
		if err := scope.SaveBeatText(ctx, 1, i, "beat text"); err != nil {
			t.Fatalf("SaveBeatText(%d): %v", i, err)
		}
	}

	deleted, err := scope.ClearBeatsFrom(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ClearBeatsFrom: %v", err)
	}
	if deleted != 10 {
		t.Fatalf("expected 10 deleted, got %d", deleted)
	}

	remaining, err := scope.ListBeatTexts(ctx, 1)
	if err != nil {
		t.Fatalf("ListBeatTexts: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected beats 0 and 1 to survive, got %v", remaining)
	}
	for _, idx := range []int{0, 1} {
		if _, ok := remaining[idx]; !ok {
			t.Errorf("beat %d should survive", idx)
		}
	}
}

func TestLastWrittenBeatText(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	_, ok, err := scope.LastWrittenBeatText(ctx, 1)
	if err != nil {
		t.Fatalf("LastWrittenBeatText empty: %v", err)
	}
	if ok {
		t.Fatal("expected no beats yet")
	}

	for i, text := range []string{"zero", "one", "ten"} {
		idx := i
		if text == "ten" {
			idx = 10
		}
		if err := scope.SaveBeatText(ctx, 1, idx, text); err != nil {
			t.Fatalf("SaveBeatText: %v", err)
		}
	}

	got, ok, err := scope.LastWrittenBeatText(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("LastWrittenBeatText: ok=%v err=%v", ok, err)
	}
	if got != "ten" {
		t.Errorf("expected highest index beat, got %q", got)
	}
}

func TestPrevChapterEndingExcerpt(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	// 第 1 章没有上一章
	got, err := scope.PrevChapterEndingExcerpt(ctx, 1, 1000)
	if err != nil || got != "" {
		t.Fatalf("chapter 1 should have no excerpt, got %q err %v", got, err)
	}

	for i, text := range []string{"first beat", "second beat", "third beat"} {
		if err := scope.SaveBeatText(ctx, 1, i, text); err != nil {
			t.Fatalf("SaveBeatText: %v", err)
		}
	}

	got, err = scope.PrevChapterEndingExcerpt(ctx, 2, 1000)
	if err != nil {
		t.Fatalf("PrevChapterEndingExcerpt: %v", err)
	}
	if got != "second beat\n\nthird beat" {
		t.Errorf("expected last two beats joined, got %q", got)
	}

	// 截断取尾部
	got, err = scope.PrevChapterEndingExcerpt(ctx, 2, 10)
	if err != nil {
		t.Fatalf("PrevChapterEndingExcerpt truncated: %v", err)
	}
	if got != "third beat" {
		t.Errorf("expected tail of joined text, got %q", got)
	}
}

func TestListBeatTextsSkipsMalformed(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	if err := scope.SaveBeatText(ctx, 1, 0, "good"); err != nil {
		t.Fatalf("SaveBeatText: %v", err)
	}
	// 同前缀下的异形值：数组无法解到 BeatText，跳过
	if err := scope.SetValue(ctx, entity.KeyBeatText(1, 1), []string{"not", "a", "beat"}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}

	texts, err := scope.ListBeatTexts(ctx, 1)
	if err != nil {
		t.Fatalf("ListBeatTexts: %v", err)
	}
	if len(texts) != 1 || texts[0] != "good" {
		t.Fatalf("expected only the well-formed beat, got %v", texts)
	}
}

func TestContinuityRoundTripAndLegacyDecode(t *testing.T) {
	store := newTestStore(t)
	scope := store.Scope("p1")
	ctx := context.Background()

	if err := scope.SaveContinuity(ctx, 1, &entity.ChapterContinuity{Bullets: []string{"a", "b"}}); err != nil {
		t.Fatalf("SaveContinuity: %v", err)
	}
	c, ok, err := scope.Continuity(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("Continuity: ok=%v err=%v", ok, err)
	}
	if len(c.Bullets) != 2 {
		t.Fatalf("expected 2 bullets, got %v", c.Bullets)
	}

	// 历史形态：裸字符串也能解码
	if err := scope.SetValue(ctx, entity.KeyContinuity(2), "one line capsule"); err != nil {
		t.Fatalf("SetValue legacy: %v", err)
	}
	c, ok, err = scope.Continuity(ctx, 2)
	if err != nil || !ok {
		t.Fatalf("Continuity legacy: ok=%v err=%v", ok, err)
	}
	if len(c.Bullets) != 1 || c.Bullets[0] != "one line capsule" {
		t.Fatalf("unexpected legacy decode: %v", c.Bullets)
	}

	prev, err := scope.PrevChapterContinuity(ctx, 1)
	if err != nil || prev != nil {
		t.Fatalf("chapter 1 must have nil previous capsule, got %+v err %v", prev, err)
	}
	prev, err = scope.PrevChapterContinuity(ctx, 2)
	if err != nil || prev == nil {
		t.Fatalf("expected chapter 1 capsule, got %+v err %v", prev, err)
	}
}

func TestScopeReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := entity.NewProject("Book", "en")
	if err := store.Projects.Create(ctx, p); err != nil {
		t.Fatalf("Create project: %v", err)
	}
	scope := store.Scope(p.ID)

	if err := scope.SaveBeatText(ctx, 1, 0, "text"); err != nil {
		t.Fatalf("SaveBeatText: %v", err)
	}
	if err := store.Characters.ReplaceAll(ctx, p.ID, []*entity.Character{
		{ProjectID: p.ID, Kind: entity.CharacterKindProtagonist, Name: "Ari"},
	}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	if err := scope.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	texts, err := scope.ListBeatTexts(ctx, 1)
	if err != nil || len(texts) != 0 {
		t.Fatalf("expected kv wiped, got %v err %v", texts, err)
	}
	grouped, err := store.Characters.ListGrouped(ctx, p.ID)
	if err != nil || len(grouped.Protagonists) != 0 {
		t.Fatalf("expected characters wiped, got %+v err %v", grouped, err)
	}
	project, err := store.Projects.GetByID(ctx, p.ID)
	if err != nil || project == nil {
		t.Fatalf("project row must survive reset, got %+v err %v", project, err)
	}
}
