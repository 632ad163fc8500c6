// Интерфейс Провайдера через который работает всё приложение.

package llm

import "context"

// Provider — абстракция над chat completion API.
type Provider interface {
	// Generate принимает контекст и полную историю сообщений.
	// toolsArgs — опциональный список определений функций для Function Calling:
	// toolsArgs[0] должен быть []tools.ToolDefinition (передаётся как any
	// чтобы избежать циклического импорта llm ↔ tools).
	// Возвращает ответ модели вместе с finish_reason и счётчиками токенов.
	Generate(ctx context.Context, messages []Message, toolsArgs ...any) (Response, error)
}
