// Package story 实现小说生成流水线的应用层
package story

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel"

	"infinite-book-api/internal/infrastructure/llm"
	apperrors "infinite-book-api/pkg/errors"
	"infinite-book-api/pkg/logger"
	"infinite-book-api/pkg/metrics"

	"infinite-book-api/internal/application/story/storyutil"
)

var tracer = otel.Tracer("story")

// ChatModelSource 提供 ChatModel 实例和指标标签
type ChatModelSource interface {
	Default(ctx context.Context) (model.BaseChatModel, error)
	Provider() string
	Model() string
}

var _ ChatModelSource = (*llm.EinoFactory)(nil)

// Gateway LLM 网关
// 每次调用产出一个经过 schema 校验的 JSON 值；校验失败时带着
// 失效输出重试，把模型当作可纠错的黑盒
type Gateway struct {
	factory    ChatModelSource
	maxRetries int
}

// NewGateway 创建 LLM 网关
func NewGateway(factory ChatModelSource, maxRetries int) *Gateway {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Gateway{factory: factory, maxRetries: maxRetries}
}

// GenerateJSONRequest 一次 JSON 生成调用
type GenerateJSONRequest struct {
	// Messages 已格式化的提示消息
	Messages []*schema.Message
	// Temperature 本次调用的采样温度
	Temperature float32
	// Out 目标结构体指针，成功时填充
	Out any
	// Validate 可选的结构性校验，作用于已填充的 Out
	Validate func() error
}

// GenerateJSON 调用 LLM 并把输出解析校验到 req.Out
// 第 0 次发送原始提示；此后每次重试都附带目标 schema 提示和上一次的
// 失效原始输出，直到校验通过或重试耗尽
func (g *Gateway) GenerateJSON(ctx context.Context, req *GenerateJSONRequest) error {
	ctx, span := tracer.Start(ctx, "story.Gateway.GenerateJSON")
	defer span.End()

	if req == nil || len(req.Messages) == 0 {
		return apperrors.New(apperrors.CodeInvalidParam, "empty llm request")
	}

	chatModel, err := g.factory.Default(ctx)
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeLLMProviderError, "failed to resolve chat model")
	}

	provider := g.factory.Provider()
	modelName := g.factory.Model()

	schemaHint, err := jsonHintFor(req.Out)
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeInternalError, "failed to build schema hint")
	}

	var lastErr error
	lastRaw := ""

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		msgs := req.Messages
		if attempt > 0 {
			metrics.LLMRetryTotal.WithLabelValues(provider, modelName).Inc()
			retryMsg := schemaHint + "\nINVALID PREVIOUS OUTPUT:\n" + lastRaw
			msgs = append(append([]*schema.Message{}, req.Messages...), schema.UserMessage(retryMsg))
			logger.Warn(ctx, "retrying llm call with schema hint", "attempt", attempt)
		}

		start := time.Now()
		outMsg, err := chatModel.Generate(ctx, msgs, model.WithTemperature(req.Temperature))
		metrics.LLMCallDuration.WithLabelValues(provider, modelName).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.LLMCallTotal.WithLabelValues(provider, modelName, "error").Inc()
			lastErr = err
			logger.Warn(ctx, "llm call failed", "attempt", attempt, "error", err.Error())
			continue
		}
		if outMsg == nil || outMsg.Content == "" {
			metrics.LLMCallTotal.WithLabelValues(provider, modelName, "empty").Inc()
			lastErr = fmt.Errorf("empty llm response")
			lastRaw = ""
			continue
		}

		lastRaw = outMsg.Content
		cleaned := storyutil.ExtractJSONObject(outMsg.Content)
		resetTarget(req.Out)
		if err := json.Unmarshal([]byte(cleaned), req.Out); err != nil {
			metrics.LLMCallTotal.WithLabelValues(provider, modelName, "invalid_json").Inc()
			lastErr = fmt.Errorf("failed to parse llm output: %w", err)
			continue
		}
		if req.Validate != nil {
			if err := req.Validate(); err != nil {
				metrics.LLMCallTotal.WithLabelValues(provider, modelName, "invalid_schema").Inc()
				lastErr = fmt.Errorf("llm output failed validation: %w", err)
				continue
			}
		}

		metrics.LLMCallTotal.WithLabelValues(provider, modelName, "success").Inc()
		return nil
	}

	span.RecordError(lastErr)
	return apperrors.Wrap(lastErr, apperrors.CodeGenerationFailed, "llm output failed validation after retries")
}

// resetTarget 在每次解析前清零目标
// 上一次失败尝试可能已填充部分字段，新输出省略这些字段时不能继承旧值
func resetTarget(out any) {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	v.Elem().Set(reflect.Zero(v.Elem().Type()))
}

// jsonHintFor 由目标结构体反射出 JSON schema 并构造重试提示
func jsonHintFor(out any) (string, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}
	s := reflector.Reflect(out)
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"IMPORTANT: Return ONLY valid JSON matching this schema. No markdown. No prose. No extra keys.\nSCHEMA:\n%s",
		string(data),
	), nil
}
