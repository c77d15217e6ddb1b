package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"infinite-book-api/internal/infrastructure/persistence/sqlite"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	db *sqlite.Client
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(db *sqlite.Client) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Ready 就绪检查接口
// SQLite 是唯一的硬依赖，TTS / ComfyUI 不可达不影响就绪态
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"sqlite": {Status: "unknown"},
	}
	ready := true

	if h == nil || h.db == nil {
		checks["sqlite"].Status = "missing"
		checks["sqlite"].Error = "sqlite client not configured"
		ready = false
	} else {
		start := time.Now()
		err := h.db.HealthCheck(ctx)
		checks["sqlite"].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks["sqlite"].Status = "error"
			checks["sqlite"].Error = err.Error()
			ready = false
		} else {
			checks["sqlite"].Status = "ok"
		}
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
