// Package std предоставляет стандартные инструменты для AI агента.
//
// QueryClassificationTool — единственный инструмент ассистента:
// по-словный поиск кодов в классификационном API (WHO ICD-11).
package std

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/kodik-ai/pkg/icd"
	"github.com/ilkoid/kodik-ai/pkg/tools"
	"github.com/ilkoid/kodik-ai/pkg/utils"
)

// QueryClassificationToolName — имя функции, рекламируемое модели.
const QueryClassificationToolName = "query_classification_api"

// QueryClassificationTool — тонкая обёртка над icd.Client для function calling.
//
// Вся логика lookup'а живёт в pkg/icd; tool только парсит аргументы LLM
// и сериализует результат в текст для tool-result сообщения.
type QueryClassificationTool struct {
	client *icd.Client
}

// NewQueryClassificationTool создает инструмент поиска кодов.
func NewQueryClassificationTool(client *icd.Client) *QueryClassificationTool {
	return &QueryClassificationTool{client: client}
}

// Definition возвращает определение инструмента для function calling.
func (t *QueryClassificationTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: QueryClassificationToolName,
		Description: "Queries the clinical classification API and returns suggestions for " +
			"medical codes based on the user input. Returns a dictionary that maps each " +
			"input word to its candidate codes and web links.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input": map[string]any{
					"type":        "string",
					"description": "search text to submit to the classification API",
				},
			},
			"required": []string{"input"},
		},
	}
}

// queryArgs — аргументы вызова, как их присылает модель.
type queryArgs struct {
	Input string `json:"input"`
}

// Execute выполняет lookup для фразы из аргументов LLM.
//
// Возвращает JSON-текст mapping'а слово → {код → ссылка}.
// CredentialError из pkg/icd пробрасывается наверх как есть: без токена
// результата нет и оркестратор сообщает отказ пользователю.
func (t *QueryClassificationTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args queryArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", QueryClassificationToolName, err)
	}
	if args.Input == "" {
		return "", fmt.Errorf("%s: 'input' argument is required", QueryClassificationToolName)
	}

	mapping, err := t.client.Lookup(ctx, args.Input)
	if err != nil {
		return "", err
	}

	result, err := mapping.JSON()
	if err != nil {
		return "", err
	}

	utils.Debug("classification tool executed",
		"input", args.Input,
		"result_preview", utils.Truncate(result, 200))

	return result, nil
}
