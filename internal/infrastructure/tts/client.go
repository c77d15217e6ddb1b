// Package tts 封装语音合成服务的 HTTP 客户端
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"infinite-book-api/internal/config"
)

var providerNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Client 语音合成客户端
// 所有提供商（piper / xtts / qwen / f5）都由同一个合成服务托管，
// 通过请求体里的 provider 字段区分
type Client struct {
	endpoint  string
	providers []string
	http      *http.Client
}

// NewClient 创建 TTS 客户端
func NewClient(cfg *config.TTSConfig) *Client {
	return &Client{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		providers: cfg.Providers,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

// NormalizeProvider 规范化提供商名并校验是否在配置的集合内
func (c *Client) NormalizeProvider(provider string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" {
		return "", fmt.Errorf("provider is required")
	}
	if !providerNamePattern.MatchString(p) {
		return "", fmt.Errorf("provider has invalid characters")
	}
	for _, known := range c.providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider: %s", p)
}

// Providers 返回配置的提供商列表
func (c *Client) Providers() []string {
	return c.providers
}

type synthesizeRequest struct {
	Provider string `json:"provider"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Synthesize 合成一段文本，返回 WAV 字节
func (c *Client) Synthesize(ctx context.Context, provider, text, language string) ([]byte, error) {
	body, err := json.Marshal(synthesizeRequest{
		Provider: provider,
		Text:     text,
		Language: language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tts service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tts response: %w", err)
	}
	if len(wav) == 0 {
		return nil, fmt.Errorf("tts service returned empty audio")
	}
	return wav, nil
}
