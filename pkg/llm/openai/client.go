// Package openai реализует адаптер LLM провайдера для OpenAI-совместимых API.
//
// Поддерживает Function Calling (tools) и Azure OpenAI deployments.
// Работает только через интерфейс llm.Provider.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/ilkoid/kodik-ai/pkg/config"
	"github.com/ilkoid/kodik-ai/pkg/llm"
	"github.com/ilkoid/kodik-ai/pkg/tools"
	"github.com/ilkoid/kodik-ai/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

// Проверка что Client реализует интерфейс Provider
var _ llm.Provider = (*Client)(nil)

// Client реализует интерфейс llm.Provider для OpenAI-совместимых API.
//
// Поддерживает:
//   - Базовую генерацию текста
//   - Function Calling (tools) с finish_reason=tool_calls
//   - Azure OpenAI (provider: "azure" в конфигурации модели)
type Client struct {
	api         *openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewClient создает OpenAI клиент на основе конфигурации модели.
//
// Для provider "azure" используется DefaultAzureConfig: ModelName трактуется
// как имя deployment, BaseURL — как endpoint ресурса, APIVersion — как
// версия Azure API. Для остальных провайдеров — DefaultConfig с опциональным
// custom BaseURL.
func NewClient(modelDef config.ModelDef) *Client {
	var cfg openai.ClientConfig
	if modelDef.Provider == "azure" {
		cfg = openai.DefaultAzureConfig(modelDef.APIKey, modelDef.BaseURL)
		if modelDef.APIVersion != "" {
			cfg.APIVersion = modelDef.APIVersion
		}
	} else {
		cfg = openai.DefaultConfig(modelDef.APIKey)
		if modelDef.BaseURL != "" {
			cfg.BaseURL = modelDef.BaseURL
		}
	}

	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       modelDef.ModelName,
		temperature: modelDef.Temperature,
		maxTokens:   modelDef.MaxTokens,
	}
}

// Generate выполняет запрос к API и возвращает ответ модели.
//
// Поддерживает опциональную передачу definitions инструментов для Function Calling:
//
//	toolsArgs[0] должен быть []tools.ToolDefinition
//
// Алгоритм:
//  1. Конвертирует внутренние сообщения в формат OpenAI SDK
//  2. Если переданы tools — добавляет их в запрос (ToolChoice=auto)
//  3. Вызывает API
//  4. Конвертирует ответ обратно в наш формат вместе с finish_reason
//  5. Извлекает ToolCalls и счётчики usage
//
// Usage возвращается nil, если API не прислал счётчики — вызывающий код
// трактует это как "счётчики отсутствуют целиком".
func (c *Client) Generate(ctx context.Context, messages []llm.Message, toolsArgs ...any) (llm.Response, error) {
	startTime := time.Now()

	// 1. Конвертируем наши сообщения в формат OpenAI SDK
	openaiMsgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		openaiMsgs[i] = mapToOpenAI(m)
	}

	// 2. Создаём базовый запрос
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    openaiMsgs,
		Temperature: float32(c.temperature),
		MaxTokens:   c.maxTokens,
	}

	// 3. Добавляем tools если переданы
	// Ожидаем toolsArgs[0] = []tools.ToolDefinition
	if len(toolsArgs) > 0 {
		toolDefs, ok := toolsArgs[0].([]tools.ToolDefinition)
		if !ok {
			return llm.Response{}, fmt.Errorf("invalid tools type: expected []tools.ToolDefinition, got %T", toolsArgs[0])
		}

		req.Tools = convertToolsToOpenAI(toolDefs)

		// Автоматический режим — LLM сама решает когда вызывать tools
		req.ToolChoice = "auto"
	}

	utils.Debug("LLM request started",
		"model", c.model,
		"messages_count", len(messages),
		"tools_count", len(req.Tools))

	// 4. Вызываем API, ошибку возвращаем вместо panic
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		utils.Error("LLM API request failed",
			"error", err,
			"model", c.model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return llm.Response{}, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("no choices in response")
	}

	// 5. Маппим ответ обратно в наш формат
	choice := resp.Choices[0]

	result := llm.Response{
		Message: llm.Message{
			Role:    llm.Role(choice.Message.Role),
			Content: choice.Message.Content,
		},
		FinishReason: string(choice.FinishReason),
	}

	// 6. Извлекаем ToolCalls если модель решила вызвать функции
	if len(choice.Message.ToolCalls) > 0 {
		result.Message.ToolCalls = make([]llm.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			result.Message.ToolCalls[i] = llm.ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: tc.Function.Arguments,
			}
		}
	}

	// 7. Счётчики токенов: либо все, либо nil целиком
	if resp.Usage.TotalTokens > 0 {
		result.Usage = &llm.Usage{
			TotalTokens:      resp.Usage.TotalTokens,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		}
	}

	utils.Info("LLM response received",
		"model", c.model,
		"finish_reason", result.FinishReason,
		"tool_calls_count", len(result.Message.ToolCalls),
		"content_length", len(result.Message.Content),
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// mapToOpenAI конвертирует наше внутреннее сообщение в формат SDK.
//
// Сообщения с ролью tool несут ToolCallID и Name — без них API отклонит
// корреляцию результата с вызовом. Сообщения ассистента могут нести
// ToolCalls (запрос на вызов функции), тогда Content пустой.
func mapToOpenAI(m llm.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:    string(m.Role),
		Content: m.Content,
	}

	if m.Role == llm.RoleTool {
		msg.ToolCallID = m.ToolCallID
		msg.Name = m.Name
	}

	if len(m.ToolCalls) > 0 {
		msg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			msg.ToolCalls[i] = openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Args,
				},
			}
		}
	}

	return msg
}

// convertToolsToOpenAI конвертирует определения инструментов во внутреннем формате
// в формат OpenAI Function Calling.
//
// Поскольку ToolDefinition.Parameters уже является JSON Schema объектом
// (map[string]any), он напрямую передаётся в OpenAI SDK.
func convertToolsToOpenAI(defs []tools.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(defs))

	for i, def := range defs {
		result[i] = openai.Tool{
			Type: "function",
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}

	return result
}
