// Базовые типы — универсальный язык общения с chat completion моделями.
package llm

// Role — роль сообщения в диалоге.
type Role string

// Константы ролей (соответствуют ролям Chat Completions API).
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message — одно сообщение в хронологии диалога.
//
// Content может быть пустым, если сообщение ассистента несёт только ToolCalls.
// ToolCallID и Name заполняются только для сообщений с ролью tool —
// они связывают результат инструмента с вызовом, который его запросил.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls — запросы модели на вызов функций (только role=assistant)
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID — идентификатор вызова, на который отвечает это сообщение (только role=tool)
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Name — имя функции, результат которой несёт это сообщение (только role=tool)
	Name string `json:"name,omitempty"`
}

// ToolCall — запрос модели на вызов именованной функции.
//
// Args — сырая JSON строка с аргументами, как её прислала модель.
// Валидация имени против реестра — обязанность оркестратора, не адаптера.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// Usage — счётчики токенов одного completion запроса.
//
// Либо присутствуют все три счётчика, либо Usage == nil целиком.
// Частично заполненный Usage — ошибка программирования.
type Usage struct {
	TotalTokens      int `json:"total_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// FinishReason signals почему модель завершила генерацию.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
)

// Response — унифицированный ответ completion endpoint'а.
type Response struct {
	// Message — сообщение модели (choices[0].message)
	Message Message

	// FinishReason — индикатор завершения (choices[0].finish_reason).
	// FinishToolCalls означает что модель запрашивает вызов функции.
	FinishReason string

	// Usage — счётчики токенов запроса. nil если API их не вернул.
	Usage *Usage
}

// WantsToolCall сообщает, запрашивает ли ответ вызов инструмента.
func (r Response) WantsToolCall() bool {
	return r.FinishReason == FinishToolCalls && len(r.Message.ToolCalls) > 0
}
