// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultProjectID 保留的隐式项目 ID
// 可读写，但不会出现在创建流程中，且删除操作为静默空操作
const DefaultProjectID = "default"

// 支持的项目语言
const (
	LanguageEnglish = "en"
	LanguageRussian = "ru"
	LanguageGerman  = "de"
)

var supportedLanguages = map[string]string{
	LanguageEnglish: "English",
	LanguageRussian: "Russian",
	LanguageGerman:  "German",
}

// NormalizeLanguage 规范化语言代码，未知语言回退到英语
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := supportedLanguages[lang]; ok {
		return lang
	}
	return LanguageEnglish
}

// LanguageName 返回语言代码对应的英文名称，用于提示词
func LanguageName(lang string) string {
	if name, ok := supportedLanguages[NormalizeLanguage(lang)]; ok {
		return name
	}
	return "English"
}

// Project 小说项目实体
type Project struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"not null"`
	Language  string    `json:"language" gorm:"not null;default:'en'"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// NewProject 创建新项目
func NewProject(title, language string) *Project {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	return &Project{
		ID:        uuid.NewString(),
		Title:     title,
		Language:  NormalizeLanguage(language),
		CreatedAt: time.Now(),
	}
}

// IsDefault 检查是否为保留的默认项目
func (p *Project) IsDefault() bool {
	return p.ID == DefaultProjectID
}
