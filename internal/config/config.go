// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Story         StoryConfig         `yaml:"story" mapstructure:"story"`
	Media         MediaConfig         `yaml:"media" mapstructure:"media"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLite SQLiteConfig `yaml:"sqlite" mapstructure:"sqlite"`
}

// SQLiteConfig SQLite 配置
// 所有项目状态都保存在单个数据库文件中
type SQLiteConfig struct {
	Path            string        `yaml:"path" mapstructure:"path"`
	BusyTimeout     time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	MaxRetries      int                       `yaml:"max_retries" mapstructure:"max_retries"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// StoryConfig 小说流水线配置
type StoryConfig struct {
	RefineVariations int `yaml:"refine_variations" mapstructure:"refine_variations"`

	PlotChaptersMin int `yaml:"plot_chapters_min" mapstructure:"plot_chapters_min"`
	PlotChaptersMax int `yaml:"plot_chapters_max" mapstructure:"plot_chapters_max"`

	ProtagonistsMin int `yaml:"protagonists_min" mapstructure:"protagonists_min"`
	ProtagonistsMax int `yaml:"protagonists_max" mapstructure:"protagonists_max"`
	AntagonistsMin  int `yaml:"antagonists_min" mapstructure:"antagonists_min"`
	AntagonistsMax  int `yaml:"antagonists_max" mapstructure:"antagonists_max"`
	SupportingMin   int `yaml:"supporting_min" mapstructure:"supporting_min"`
	SupportingMax   int `yaml:"supporting_max" mapstructure:"supporting_max"`

	BeatsMin int `yaml:"beats_min" mapstructure:"beats_min"`
	BeatsMax int `yaml:"beats_max" mapstructure:"beats_max"`

	TempRefine     float64 `yaml:"temp_refine" mapstructure:"temp_refine"`
	TempPlot       float64 `yaml:"temp_plot" mapstructure:"temp_plot"`
	TempCharacters float64 `yaml:"temp_characters" mapstructure:"temp_characters"`
	TempBeats      float64 `yaml:"temp_beats" mapstructure:"temp_beats"`
	TempProse      float64 `yaml:"temp_prose" mapstructure:"temp_prose"`
	TempContinuity float64 `yaml:"temp_continuity" mapstructure:"temp_continuity"`

	// PrevTextApproxTokens 上一节选的近似 token 预算（1 token ≈ 4 字符）
	PrevTextApproxTokens int `yaml:"prev_text_approx_tokens" mapstructure:"prev_text_approx_tokens"`
	// PrevChapterExcerptMaxChars 上一章结尾节选的最大字符数
	PrevChapterExcerptMaxChars int `yaml:"prev_chapter_excerpt_max_chars" mapstructure:"prev_chapter_excerpt_max_chars"`
	// ContextLookbackBeats 节拍写作时回看的已规划节拍数
	ContextLookbackBeats int `yaml:"context_lookback_beats" mapstructure:"context_lookback_beats"`
}

// MediaConfig 媒体侧流水线配置
type MediaConfig struct {
	DataDir string      `yaml:"data_dir" mapstructure:"data_dir"`
	TTS     TTSConfig   `yaml:"tts" mapstructure:"tts"`
	Comfy   ComfyConfig `yaml:"comfy" mapstructure:"comfy"`
}

// TTSConfig 语音合成配置
type TTSConfig struct {
	Providers []string      `yaml:"providers" mapstructure:"providers"`
	Endpoint  string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ComfyConfig ComfyUI 封面生成配置
type ComfyConfig struct {
	Endpoint     string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	Checkpoint   string        `yaml:"checkpoint" mapstructure:"checkpoint"`
	Width        int           `yaml:"width" mapstructure:"width"`
	Height       int           `yaml:"height" mapstructure:"height"`
	Steps        int           `yaml:"steps" mapstructure:"steps"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Port    int    `yaml:"port" mapstructure:"port"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
