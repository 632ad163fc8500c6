// Реестр для хранения и поиска инструментов.
//
// Реестр закрыт: неизвестное имя инструмента — это ошибка диспетчеризации
// (ErrUnknownTool), а не повод для динамического поиска. Оркестратор
// проверяет имя до вызова Execute.
package tools

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTool — модель запросила инструмент, которого нет в реестре.
//
// Проверяется через errors.Is. Для турна это фатальная ошибка:
// оркестратор сообщает её пользователю текстом, без retry.
var ErrUnknownTool = errors.New("unknown tool")

// Registry — потокобезопасное хранилище инструментов.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry создает новый пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// validateToolDefinition проверяет что ToolDefinition пригоден для Function Calling.
//
// Валидирует:
//   - Name не пустой
//   - Parameters не nil
//   - Parameters.type == "object"
//   - Parameters.required (если есть) — массив строк
func validateToolDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Parameters == nil {
		return fmt.Errorf("tool '%s': parameters cannot be nil", def.Name)
	}

	typeVal, ok := def.Parameters["type"]
	if !ok {
		return fmt.Errorf("tool '%s': parameters must have 'type' field", def.Name)
	}
	typeStr, ok := typeVal.(string)
	if !ok {
		return fmt.Errorf("tool '%s': parameters.type must be a string, got: %T", def.Name, typeVal)
	}
	if typeStr != "object" {
		return fmt.Errorf("tool '%s': parameters.type must be 'object', got: '%s'", def.Name, typeStr)
	}

	if requiredVal, exists := def.Parameters["required"]; exists {
		switch req := requiredVal.(type) {
		case []string:
			// ок как есть
		case []interface{}:
			// Схемы часто собираются из map[string]any — required приходит как []interface{}
			for i, item := range req {
				if _, ok := item.(string); !ok {
					return fmt.Errorf("tool '%s': parameters.required[%d] must be a string, got: %T", def.Name, i, item)
				}
			}
		default:
			return fmt.Errorf("tool '%s': parameters.required must be an array of strings", def.Name)
		}
	}

	return nil
}

// Register добавляет инструмент в реестр с валидацией схемы.
//
// Возвращает ошибку если определение инструмента не валидно.
func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()

	if err := validateToolDefinition(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = tool
	return nil
}

// Get ищет инструмент по имени.
//
// Неизвестное имя возвращает ошибку, оборачивающую ErrUnknownTool.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownTool, name)
	}
	return tool, nil
}

// GetDefinitions возвращает список всех определений для отправки в LLM.
//
// Порядок детерминированный (по имени) — удобно для тестов и логов.
func (r *Registry) GetDefinitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Count возвращает количество зарегистрированных инструментов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
