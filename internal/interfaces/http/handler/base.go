// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"infinite-book-api/internal/interfaces/http/dto"
	apperrors "infinite-book-api/pkg/errors"
	"infinite-book-api/pkg/logger"
)

// respondError 把应用错误映射为统一的错误响应
// 非 AppError 一律按内部错误处理，避免把底层细节泄露给客户端
func respondError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), "request failed", err,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
	}
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}

// queryInt 解析整型查询参数，缺失或非法时返回默认值
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// requireQueryInt 解析必填整型查询参数
func requireQueryInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		respondError(c, apperrors.New(apperrors.CodeInvalidParam, name+" must be an integer"))
		return 0, false
	}
	return v, true
}
