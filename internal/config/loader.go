// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, "configs/config.yaml", true); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := fmt.Sprintf("configs/config.%s.yaml", env)
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// 执行环境变量替换
	expanded := expandEnv(string(content))

	// 加载到 viper
	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	// 匹配 ${VAR} 或 ${VAR:default}
	// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
	re := regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		submatch := re.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match // 原样返回，以便识别未定义的变量
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "infinite-book-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8000)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "300s")
	v.SetDefault("server.http.idle_timeout", "120s")

	// 数据库默认值
	v.SetDefault("database.sqlite.path", "data/infinitebook.sqlite")
	v.SetDefault("database.sqlite.busy_timeout", "5s")
	v.SetDefault("database.sqlite.max_open_conns", 1)
	v.SetDefault("database.sqlite.max_idle_conns", 1)
	v.SetDefault("database.sqlite.conn_max_lifetime", "0")

	// LLM 默认值
	v.SetDefault("llm.default_provider", "ollama")
	v.SetDefault("llm.max_retries", 1)

	// 流水线默认值
	v.SetDefault("story.refine_variations", 5)
	v.SetDefault("story.plot_chapters_min", 6)
	v.SetDefault("story.plot_chapters_max", 10)
	v.SetDefault("story.protagonists_min", 1)
	v.SetDefault("story.protagonists_max", 2)
	v.SetDefault("story.antagonists_min", 1)
	v.SetDefault("story.antagonists_max", 1)
	v.SetDefault("story.supporting_min", 2)
	v.SetDefault("story.supporting_max", 3)
	v.SetDefault("story.beats_min", 10)
	v.SetDefault("story.beats_max", 15)
	v.SetDefault("story.temp_refine", 0.85)
	v.SetDefault("story.temp_plot", 0.70)
	v.SetDefault("story.temp_characters", 0.75)
	v.SetDefault("story.temp_beats", 0.70)
	v.SetDefault("story.temp_prose", 0.70)
	v.SetDefault("story.temp_continuity", 0.2)
	v.SetDefault("story.prev_text_approx_tokens", 400)
	v.SetDefault("story.prev_chapter_excerpt_max_chars", 4500)
	v.SetDefault("story.context_lookback_beats", 4)

	// 媒体默认值
	v.SetDefault("media.data_dir", "data")
	v.SetDefault("media.tts.providers", []string{"piper", "xtts", "qwen", "f5"})
	v.SetDefault("media.tts.endpoint", "http://localhost:5050")
	v.SetDefault("media.tts.timeout", "120s")
	v.SetDefault("media.comfy.endpoint", "http://localhost:8188")
	v.SetDefault("media.comfy.timeout", "300s")
	v.SetDefault("media.comfy.poll_interval", "2s")
	v.SetDefault("media.comfy.width", 832)
	v.SetDefault("media.comfy.height", 1216)
	v.SetDefault("media.comfy.steps", 28)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.output", "stdout")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.exporter", "otlp")
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.port", 9464)
	v.SetDefault("observability.metrics.path", "/metrics")
}
