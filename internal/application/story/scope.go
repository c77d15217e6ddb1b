package story

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"infinite-book-api/internal/application/story/storyutil"
	"infinite-book-api/internal/domain/entity"
	"infinite-book-api/internal/domain/repository"
	apperrors "infinite-book-api/pkg/errors"
)

// Store 聚合全部仓储，是流水线各步骤访问持久层的唯一入口
type Store struct {
	Projects   repository.ProjectRepository
	KV         repository.KVRepository
	Characters repository.CharacterRepository
	MediaJobs  repository.MediaJobRepository
	Tx         repository.Transactor
}

// NewStore 创建仓储聚合
func NewStore(
	projects repository.ProjectRepository,
	kv repository.KVRepository,
	characters repository.CharacterRepository,
	mediaJobs repository.MediaJobRepository,
	tx repository.Transactor,
) *Store {
	return &Store{
		Projects:   projects,
		KV:         kv,
		Characters: characters,
		MediaJobs:  mediaJobs,
		Tx:         tx,
	}
}

// RequireProject 获取项目，不存在时返回 AppError
func (s *Store) RequireProject(ctx context.Context, projectID string) (*entity.Project, error) {
	project, err := s.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
	}
	if project == nil {
		return nil, apperrors.New(apperrors.CodeProjectNotFound, "project not found")
	}
	return project, nil
}

// Scope 返回绑定到单个项目的作用域访问器
func (s *Store) Scope(projectID string) *ProjectScope {
	return &ProjectScope{store: s, projectID: projectID}
}

// ProjectScope 单个项目的作用域视图
// 键格式只在这里拼装，上层代码不接触裸键
type ProjectScope struct {
	store     *Store
	projectID string
}

// ProjectID 返回作用域绑定的项目 ID
func (p *ProjectScope) ProjectID() string {
	return p.projectID
}

// SetValue 写 KV 值
func (p *ProjectScope) SetValue(ctx context.Context, key string, value any) error {
	return p.store.KV.Set(ctx, p.projectID, key, value)
}

// GetValue 读 KV 值
func (p *ProjectScope) GetValue(ctx context.Context, key string, out any) (bool, error) {
	return p.store.KV.Get(ctx, p.projectID, key, out)
}

// Plot 读取大纲
func (p *ProjectScope) Plot(ctx context.Context) (*entity.PlotOutline, bool, error) {
	var plot entity.PlotOutline
	ok, err := p.store.KV.Get(ctx, p.projectID, entity.KeyPlot, &plot)
	if err != nil || !ok {
		return nil, false, err
	}
	return &plot, true, nil
}

// Selected 读取选定前提
func (p *ProjectScope) Selected(ctx context.Context) (*entity.SelectedPremise, bool, error) {
	var sel entity.SelectedPremise
	ok, err := p.store.KV.Get(ctx, p.projectID, entity.KeySelected, &sel)
	if err != nil || !ok {
		return nil, false, err
	}
	return &sel, true, nil
}

// BeatPlan 读取某章节拍计划
func (p *ProjectScope) BeatPlan(ctx context.Context, chapter int) (*entity.BeatPlan, bool, error) {
	var plan entity.BeatPlan
	ok, err := p.store.KV.Get(ctx, p.projectID, entity.KeyBeatPlan(chapter), &plan)
	if err != nil || !ok {
		return nil, false, err
	}
	return &plan, true, nil
}

// SaveBeatPlan 保存某章节拍计划
func (p *ProjectScope) SaveBeatPlan(ctx context.Context, chapter int, plan *entity.BeatPlan) error {
	return p.store.KV.Set(ctx, p.projectID, entity.KeyBeatPlan(chapter), plan)
}

// SaveBeatText 保存某节拍散文
func (p *ProjectScope) SaveBeatText(ctx context.Context, chapter, beatIndex int, text string) error {
	bt := entity.BeatText{BeatIndex: beatIndex, Text: text}
	return p.store.KV.Set(ctx, p.projectID, entity.KeyBeatText(chapter, beatIndex), bt)
}

// BeatText 读取单个节拍散文
func (p *ProjectScope) BeatText(ctx context.Context, chapter, beatIndex int) (string, bool, error) {
	var bt entity.BeatText
	ok, err := p.store.KV.Get(ctx, p.projectID, entity.KeyBeatText(chapter, beatIndex), &bt)
	if err != nil || !ok {
		return "", false, err
	}
	return bt.Text, true, nil
}

// ListBeatTexts 列出某章已写散文，按数字下标索引
// 值形态不是 {"text": string} 的键会被跳过而不是报错
func (p *ProjectScope) ListBeatTexts(ctx context.Context, chapter int) (map[int]string, error) {
	raws, err := p.store.KV.ListByPrefix(ctx, p.projectID, entity.BeatTextKeyPrefix(chapter))
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(raws))
	for key, raw := range raws {
		idx, ok := entity.ParseBeatIndex(key, chapter)
		if !ok {
			continue
		}
		var bt entity.BeatText
		if err := json.Unmarshal(raw, &bt); err != nil {
			continue
		}
		out[idx] = bt.Text
	}
	return out, nil
}

// OrderedBeatTexts 按数字下标升序返回某章散文
func (p *ProjectScope) OrderedBeatTexts(ctx context.Context, chapter int) ([]string, error) {
	texts, err := p.ListBeatTexts(ctx, chapter)
	if err != nil {
		return nil, err
	}
	indexes := make([]int, 0, len(texts))
	for idx := range texts {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	out := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, texts[idx])
	}
	return out, nil
}

// LastWrittenBeatText 返回某章下标最大的已写散文
func (p *ProjectScope) LastWrittenBeatText(ctx context.Context, chapter int) (string, bool, error) {
	texts, err := p.ListBeatTexts(ctx, chapter)
	if err != nil {
		return "", false, err
	}
	best := -1
	for idx := range texts {
		if idx > best {
			best = idx
		}
	}
	if best < 0 {
		return "", false, nil
	}
	return texts[best], true, nil
}

// ClearBeat 删除单个节拍散文
func (p *ProjectScope) ClearBeat(ctx context.Context, chapter, beatIndex int) error {
	return p.store.KV.Delete(ctx, p.projectID, entity.KeyBeatText(chapter, beatIndex))
}

// ClearBeatsFrom 删除某章下标 >= from 的全部散文
// 基于解析后的数字下标比较，不能依赖键的字典序
func (p *ProjectScope) ClearBeatsFrom(ctx context.Context, chapter, from int) (int, error) {
	raws, err := p.store.KV.ListByPrefix(ctx, p.projectID, entity.BeatTextKeyPrefix(chapter))
	if err != nil {
		return 0, err
	}
	deleted := 0
	for key := range raws {
		idx, ok := entity.ParseBeatIndex(key, chapter)
		if !ok || idx < from {
			continue
		}
		if err := p.store.KV.Delete(ctx, p.projectID, key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// Continuity 读取某章连续性胶囊，历史形态在此解码一次
func (p *ProjectScope) Continuity(ctx context.Context, chapter int) (*entity.ChapterContinuity, bool, error) {
	raw, ok, err := p.store.KV.GetRaw(ctx, p.projectID, entity.KeyContinuity(chapter))
	if err != nil || !ok {
		return nil, false, err
	}
	return entity.DecodeContinuity(raw), true, nil
}

// SaveContinuity 保存某章连续性胶囊（规范形态）
func (p *ProjectScope) SaveContinuity(ctx context.Context, chapter int, c *entity.ChapterContinuity) error {
	return p.store.KV.Set(ctx, p.projectID, entity.KeyContinuity(chapter), c)
}

// PrevChapterContinuity 读取上一章胶囊，第 1 章没有上一章时返回 (nil, nil)
func (p *ProjectScope) PrevChapterContinuity(ctx context.Context, chapter int) (*entity.ChapterContinuity, error) {
	prev := chapter - 1
	if prev < 1 {
		return nil, nil
	}
	c, ok, err := p.Continuity(ctx, prev)
	if err != nil || !ok {
		return nil, err
	}
	return c, nil
}

// PrevChapterEndingExcerpt 返回上一章结尾节选
// 取最后两个节拍拼接后的尾部 maxChars 个字符
func (p *ProjectScope) PrevChapterEndingExcerpt(ctx context.Context, chapter, maxChars int) (string, error) {
	prev := chapter - 1
	if prev < 1 {
		return "", nil
	}
	texts, err := p.OrderedBeatTexts(ctx, prev)
	if err != nil {
		return "", err
	}
	if len(texts) == 0 {
		return "", nil
	}
	start := len(texts) - 2
	if start < 0 {
		start = 0
	}
	joined := strings.Join(texts[start:], "\n\n")
	return storyutil.TailRunes(joined, maxChars), nil
}

// ChapterState 某章的写作进度
type ChapterState struct {
	Plan       *entity.BeatPlan
	Written    map[int]string
	Continuity *entity.ChapterContinuity
}

// ProjectState 项目聚合状态
type ProjectState struct {
	Selected   *entity.SelectedPremise
	Plot       *entity.PlotOutline
	Characters *entity.GroupedCharacters
	Chapter    *ChapterState
}

// LoadState 加载项目聚合状态，chapter > 0 时附带该章进度
func (p *ProjectScope) LoadState(ctx context.Context, chapter int) (*ProjectState, error) {
	state := &ProjectState{}

	if sel, ok, err := p.Selected(ctx); err != nil {
		return nil, err
	} else if ok {
		state.Selected = sel
	}
	if plot, ok, err := p.Plot(ctx); err != nil {
		return nil, err
	} else if ok {
		state.Plot = plot
	}

	chars, err := p.store.Characters.ListGrouped(ctx, p.projectID)
	if err != nil {
		return nil, err
	}
	state.Characters = chars

	if chapter > 0 {
		cs := &ChapterState{}
		if plan, ok, err := p.BeatPlan(ctx, chapter); err != nil {
			return nil, err
		} else if ok {
			cs.Plan = plan
		}
		written, err := p.ListBeatTexts(ctx, chapter)
		if err != nil {
			return nil, err
		}
		cs.Written = written
		if c, ok, err := p.Continuity(ctx, chapter); err != nil {
			return nil, err
		} else if ok {
			cs.Continuity = c
		}
		state.Chapter = cs
	}

	return state, nil
}

// Reset 清空项目的全部生成产物（KV、角色、媒体任务），保留项目行
func (p *ProjectScope) Reset(ctx context.Context) error {
	if err := p.store.KV.DeleteByProject(ctx, p.projectID); err != nil {
		return err
	}
	if err := p.store.Characters.DeleteByProject(ctx, p.projectID); err != nil {
		return err
	}
	return p.store.MediaJobs.DeleteByProject(ctx, p.projectID)
}
