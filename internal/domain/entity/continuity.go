package entity

import (
	"encoding/json"
	"strings"
)

// ChapterContinuity 章节连续性胶囊的规范形态
// 历史数据存在三种形态：裸字符串、{"text": "..."}、{"bullets": [...]}
// 这些形态只在存储边界解码一次，其余代码只接触规范的 bullet 列表
type ChapterContinuity struct {
	Bullets []string `json:"bullets"`
}

// Text 渲染为 "- bullet" 行，供提示词使用
func (c *ChapterContinuity) Text() string {
	if c == nil || len(c.Bullets) == 0 {
		return ""
	}
	lines := make([]string, 0, len(c.Bullets))
	for _, b := range c.Bullets {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		lines = append(lines, "- "+b)
	}
	return strings.Join(lines, "\n")
}

// DecodeContinuity 把任意历史形态解码为规范胶囊
// 无法识别的形态返回空胶囊而不是错误，胶囊永远是尽力而为的上下文
func DecodeContinuity(raw json.RawMessage) *ChapterContinuity {
	if len(raw) == 0 {
		return &ChapterContinuity{}
	}

	// {"bullets": [...]} 或 {"text": "..."}
	var obj struct {
		Bullets []string `json:"bullets"`
		Text    string   `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if len(obj.Bullets) > 0 {
			return &ChapterContinuity{Bullets: cleanBullets(obj.Bullets)}
		}
		if strings.TrimSpace(obj.Text) != "" {
			return &ChapterContinuity{Bullets: splitLines(obj.Text)}
		}
		// 合法 JSON 对象但两个字段都为空
		if json.Valid(raw) && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
			return &ChapterContinuity{}
		}
	}

	// 裸字符串
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &ChapterContinuity{Bullets: splitLines(s)}
	}

	// 裸数组
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return &ChapterContinuity{Bullets: cleanBullets(arr)}
	}

	return &ChapterContinuity{}
}

func cleanBullets(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
