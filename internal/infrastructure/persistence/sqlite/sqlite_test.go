package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"infinite-book-api/internal/config"
	"infinite-book-api/internal/domain/entity"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(&config.SQLiteConfig{
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
	return client
}

func TestProjectRepositoryCRUD(t *testing.T) {
	client := newTestClient(t)
	repo := NewProjectRepository(client)
	ctx := context.Background()

	p := entity.NewProject("My Book", "en")
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Title != "My Book" || got.Language != "en" {
		t.Fatalf("unexpected project: %+v", got)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for missing project")
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 project, got %d", len(list))
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = repo.GetByID(ctx, p.ID)
	if err != nil || got != nil {
		t.Fatalf("expected project gone, got %+v err %v", got, err)
	}
}

func TestKVRepositoryUpsert(t *testing.T) {
	client := newTestClient(t)
	repo := NewKVRepository(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "p1", "plot", map[string]string{"v": "one"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, "p1", "plot", map[string]string{"v": "two"}); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	var out map[string]string
	ok, err := repo.Get(ctx, "p1", "plot", &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || out["v"] != "two" {
		t.Fatalf("expected overwritten value, got %v (ok=%v)", out, ok)
	}

	ok, err = repo.Get(ctx, "p1", "missing", &out)
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing key")
	}

	// 另一个项目同名键互不可见
	ok, err = repo.Get(ctx, "p2", "plot", &out)
	if err != nil || ok {
		t.Fatalf("expected key invisible across projects, ok=%v err=%v", ok, err)
	}
}

func TestKVRepositoryPrefixEscaping(t *testing.T) {
	client := newTestClient(t)
	repo := NewKVRepository(client)
	ctx := context.Background()

	// 前缀里的下划线是字面量，不是 LIKE 通配符
	keys := []string{"ch1_beat_0", "ch1_beat_1", "ch1_beat_10", "ch1_continuity", "ch10_beat_0", "beats_ch1"}
	for _, k := range keys {
		if err := repo.Set(ctx, "p1", k, entity.BeatText{Text: k}); err != nil {
			t.Fatalf("Set %q: %v", k, err)
		}
	}

	got, err := repo.ListByPrefix(ctx, "p1", "ch1_beat_")
	if err != nil {
		t.Fatalf("ListByPrefix: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 beat keys, got %d: %v", len(got), got)
	}
	for _, k := range []string{"ch1_beat_0", "ch1_beat_1", "ch1_beat_10"} {
		if _, ok := got[k]; !ok {
			t.Errorf("missing key %q in prefix listing", k)
		}
	}

	raw, ok, err := repo.GetRaw(ctx, "p1", "ch1_beat_0")
	if err != nil || !ok {
		t.Fatalf("GetRaw: ok=%v err=%v", ok, err)
	}
	if !json.Valid(raw) {
		t.Errorf("stored value is not valid JSON: %s", raw)
	}
}

func TestCharacterRepositoryReplaceAll(t *testing.T) {
	client := newTestClient(t)
	repo := NewCharacterRepository(client, NewTxManager(client))
	ctx := context.Background()

	first := []*entity.Character{
		{ProjectID: "p1", Kind: entity.CharacterKindProtagonist, Name: "Ari", Role: "lead"},
		{ProjectID: "p1", Kind: entity.CharacterKindAntagonist, Name: "Vex", Role: "rival"},
	}
	if err := repo.ReplaceAll(ctx, "p1", first); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	second := []*entity.Character{
		{ProjectID: "p1", Kind: entity.CharacterKindProtagonist, Name: "Mira", Role: "lead"},
		{ProjectID: "p1", Kind: entity.CharacterKindSupporting, Name: "Tomas", Role: "friend"},
		{ProjectID: "p1", Kind: entity.CharacterKindSupporting, Name: "Lena", Role: "mentor"},
	}
	if err := repo.ReplaceAll(ctx, "p1", second); err != nil {
		t.Fatalf("ReplaceAll overwrite: %v", err)
	}

	grouped, err := repo.ListGrouped(ctx, "p1")
	if err != nil {
		t.Fatalf("ListGrouped: %v", err)
	}
	if len(grouped.Protagonists) != 1 || len(grouped.Antagonists) != 0 || len(grouped.Supporting) != 2 {
		t.Fatalf("expected new roster only, got %d/%d/%d",
			len(grouped.Protagonists), len(grouped.Antagonists), len(grouped.Supporting))
	}
	if grouped.Protagonists[0].Name != "Mira" {
		t.Errorf("expected Mira, got %q", grouped.Protagonists[0].Name)
	}
}

func TestCharacterRepositoryUpdate(t *testing.T) {
	client := newTestClient(t)
	repo := NewCharacterRepository(client, NewTxManager(client))
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, "p1", []*entity.Character{
		{ProjectID: "p1", Kind: entity.CharacterKindProtagonist, Name: "Ari", Role: "lead", Bio: "old bio"},
	}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	grouped, err := repo.ListGrouped(ctx, "p1")
	if err != nil || len(grouped.Protagonists) != 1 {
		t.Fatalf("setup failed: %v", err)
	}
	id := grouped.Protagonists[0].ID

	newBio := "new bio"
	updated, err := repo.Update(ctx, "p1", id, &entity.CharacterPatch{Bio: &newBio})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated == nil || updated.Bio != "new bio" || updated.Name != "Ari" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	// 空补丁不写库
	noop, err := repo.Update(ctx, "p1", id, &entity.CharacterPatch{})
	if err != nil {
		t.Fatalf("Update empty patch: %v", err)
	}
	if noop != nil {
		t.Fatal("empty patch should return nil without writing")
	}
}

func TestMediaJobRepositoryUpsert(t *testing.T) {
	client := newTestClient(t)
	repo := NewMediaJobRepository(client)
	ctx := context.Background()

	job := entity.NewMediaJob("p1", entity.MediaKindAudio, "piper", 1, 0)
	if err := repo.Upsert(ctx, job); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	job.Complete("/tmp/out.wav")
	if err := repo.Upsert(ctx, job); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	got, err := repo.Get(ctx, "p1", entity.MediaKindAudio, "piper", 1, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Status != entity.MediaJobStatusDone || got.OutputPath != "/tmp/out.wav" {
		t.Fatalf("unexpected job: %+v", got)
	}

	missing, err := repo.Get(ctx, "p1", entity.MediaKindAudio, "xtts", 1, 0)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing job, got %+v err %v", missing, err)
	}

	jobs, err := repo.ListByProject(ctx, "p1", entity.MediaKindAudio)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
}
