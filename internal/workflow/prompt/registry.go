// Package prompt 管理内嵌的提示词模板
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// PromptID 提示词模板标识
type PromptID string

// 已注册的提示词模板
const (
	PromptRefineV1       PromptID = "refine_v1"
	PromptPlotV1         PromptID = "plot_v1"
	PromptCharactersV1   PromptID = "characters_v1"
	PromptChapterBeatsV1 PromptID = "chapter_beats_v1"
	PromptWriteBeatV1    PromptID = "write_beat_v1"
	PromptContinuityV1   PromptID = "continuity_v1"
	PromptCoverV1        PromptID = "cover_v1"
)

// Registry 提示词模板注册表
// 首次使用时从内嵌文件加载并缓存，system/user 成对组装
type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

// NewRegistry 创建提示词注册表
func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

// ChatTemplate 返回指定模板，未加载时从内嵌文件解析
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	switch id {
	case PromptRefineV1:
		return "templates/refine_v1.system.txt", "templates/refine_v1.user.txt", nil
	case PromptPlotV1:
		return "templates/plot_v1.system.txt", "templates/plot_v1.user.txt", nil
	case PromptCharactersV1:
		return "templates/characters_v1.system.txt", "templates/characters_v1.user.txt", nil
	case PromptChapterBeatsV1:
		return "templates/chapter_beats_v1.system.txt", "templates/chapter_beats_v1.user.txt", nil
	case PromptWriteBeatV1:
		return "templates/write_beat_v1.system.txt", "templates/write_beat_v1.user.txt", nil
	case PromptContinuityV1:
		return "templates/continuity_v1.system.txt", "templates/continuity_v1.user.txt", nil
	case PromptCoverV1:
		return "templates/cover_v1.system.txt", "templates/cover_v1.user.txt", nil
	default:
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
