// Package comfy 封装 ComfyUI 的 HTTP 客户端
package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"infinite-book-api/internal/config"
)

// Client ComfyUI 客户端
// 提交 prompt 图后轮询 /history 直到产物出现
type Client struct {
	base         string
	pollInterval time.Duration
	http         *http.Client
}

// NewClient 创建 ComfyUI 客户端
func NewClient(cfg *config.ComfyConfig) *Client {
	base := strings.TrimSpace(cfg.Endpoint)
	if base != "" && !strings.HasPrefix(base, "http") {
		base = "http://" + base
	}
	return &Client{
		base:         strings.TrimRight(base, "/"),
		pollInterval: cfg.PollInterval,
		http:         &http.Client{Timeout: cfg.Timeout},
	}
}

// ImageRef 输出图片在 ComfyUI 端的位置
type ImageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// SubmitPrompt 提交 prompt 图，返回 prompt_id
func (c *Client) SubmitPrompt(ctx context.Context, graph map[string]any) (string, error) {
	payload, err := json.Marshal(map[string]any{"prompt": graph})
	if err != nil {
		return "", fmt.Errorf("failed to encode comfy prompt: %w", err)
	}

	var out struct {
		PromptID string `json:"prompt_id"`
	}
	if err := c.postJSON(ctx, "/prompt", payload, &out); err != nil {
		return "", err
	}
	if out.PromptID == "" {
		return "", fmt.Errorf("comfy returned empty prompt_id")
	}
	return out.PromptID, nil
}

// WaitForImage 轮询历史记录直到 prompt 产出第一张图片
func (c *Client) WaitForImage(ctx context.Context, promptID string) (*ImageRef, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("comfy wait cancelled: %w", ctx.Err())
		case <-ticker.C:
		}

		img, done, err := c.historyImage(ctx, promptID)
		if err != nil {
			return nil, err
		}
		if done {
			return img, nil
		}
	}
}

// historyImage 查询一次历史记录，返回首张图片和完成标记
func (c *Client) historyImage(ctx context.Context, promptID string) (*ImageRef, bool, error) {
	var history map[string]struct {
		Outputs map[string]struct {
			Images []ImageRef `json:"images"`
		} `json:"outputs"`
	}
	if err := c.getJSON(ctx, "/history/"+promptID, &history); err != nil {
		return nil, false, err
	}

	item, ok := history[promptID]
	if !ok {
		return nil, false, nil
	}
	for _, out := range item.Outputs {
		if len(out.Images) > 0 {
			img := out.Images[0]
			return &img, true, nil
		}
	}
	return nil, false, fmt.Errorf("no images in comfy outputs for prompt %s", promptID)
}

// View 下载输出图片字节
func (c *Client) View(ctx context.Context, ref *ImageRef) ([]byte, error) {
	q := url.Values{}
	q.Set("filename", ref.Filename)
	q.Set("subfolder", ref.Subfolder)
	typ := ref.Type
	if typ == "" {
		typ = "output"
	}
	q.Set("type", typ)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/view?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build comfy view request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("comfy view request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("comfy view returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Ping 检查 ComfyUI 是否可达
func (c *Client) Ping(ctx context.Context) error {
	var stats map[string]any
	return c.getJSON(ctx, "/system_stats", &stats)
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build comfy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build comfy request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("comfy request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("comfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode comfy response: %w", err)
	}
	return nil
}
