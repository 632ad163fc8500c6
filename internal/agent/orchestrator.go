// Package agent реализует оркестрацию турна с вызовом инструмента.
//
// Orchestrator ведёт машину состояний одного пользовательского турна:
//
//	AWAITING_USER_INPUT → FIRST_COMPLETION_REQUESTED →
//	  {DIRECT_ANSWER | TOOL_REQUESTED} →
//	  [TOOL_EXECUTED → SECOND_COMPLETION_REQUESTED] → ANSWER_READY
//
// Поддерживается ровно один раунд вызова инструмента на турн: если модель
// запросила функцию, она выполняется синхронно, её результат вписывается
// в хронологию tool-сообщением и вторым completion запросом производится
// финальный ответ.
//
// Правила:
//   - Работает только через llm.Provider
//   - Инструменты только через tools.Registry; неизвестное имя — отказ турна
//   - Thread-safe работа с state.CoreState
//   - Никаких panic — любой отказ завершает турн синтезированным
//     текстом ошибки, диалог остаётся пригодным для следующего турна
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ilkoid/kodik-ai/pkg/llm"
	"github.com/ilkoid/kodik-ai/pkg/state"
	"github.com/ilkoid/kodik-ai/pkg/tools"
	"github.com/ilkoid/kodik-ai/pkg/utils"
)

// Turn — результат одного пользовательского турна.
//
// Usage либо содержит все три счётчика, либо nil целиком (счётчики
// неизвестны — например, турн завершился синтезированной ошибкой).
// При вызове инструмента авторитетны счётчики ВТОРОГО completion запроса.
type Turn struct {
	Answer string
	Usage  *llm.Usage
}

// Config конфигурация для создания Orchestrator.
type Config struct {
	// LLM — провайдер языковой модели (обязательный)
	LLM llm.Provider

	// Registry — реестр зарегистрированных инструментов (обязательный)
	Registry *tools.Registry

	// State — состояние сессии с хронологией диалога (обязательный)
	State *state.CoreState
}

// Orchestrator драйвит один турн за раз.
//
// Thread-safe через sync.Mutex: пока турн не завершён, следующий не
// принимается — модель "один запрос в обработке", как и требует UI.
type Orchestrator struct {
	llm      llm.Provider
	registry *tools.Registry
	state    *state.CoreState

	// mu защищает одновременные вызовы HandleTurn
	mu sync.Mutex
}

// New создаёт новый Orchestrator с заданной конфигурацией.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("cfg.LLM is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("cfg.Registry is required")
	}
	if cfg.State == nil {
		return nil, fmt.Errorf("cfg.State is required")
	}

	return &Orchestrator{
		llm:      cfg.LLM,
		registry: cfg.Registry,
		state:    cfg.State,
	}, nil
}

// HandleTurn выполняет полный цикл обработки пользовательского ввода.
//
// Любой отказ (completion, инструмент, неизвестная функция) не роняет
// приложение: турн завершается ответом-ошибкой с Usage == nil, хронология
// сохраняет только сообщения, добавленные до отказа.
func (o *Orchestrator) HandleTurn(ctx context.Context, userText string) Turn {
	o.mu.Lock()
	defer o.mu.Unlock()

	startTime := time.Now()
	utils.Info("turn started", "input_length", len(userText))

	answer, usage, err := o.runTurn(ctx, userText)
	if err != nil {
		utils.Error("turn failed", "error", err)
		return Turn{
			Answer: fmt.Sprintf("The API could not handle this content: %v", err),
			Usage:  nil,
		}
	}

	utils.Info("turn completed",
		"answer_length", len(answer),
		"duration_ms", time.Since(startTime).Milliseconds())

	return Turn{Answer: answer, Usage: usage}
}

// runTurn — тело машины состояний турна.
func (o *Orchestrator) runTurn(ctx context.Context, userText string) (string, *llm.Usage, error) {
	// 1. Пользовательское сообщение в хронологию
	if err := o.state.Append(llm.Message{
		Role:    llm.RoleUser,
		Content: userText,
	}); err != nil {
		return "", nil, fmt.Errorf("failed to append user message: %w", err)
	}

	defs := o.registry.GetDefinitions()

	// 2. Первый completion запрос с рекламой инструментов
	first, err := o.llm.Generate(ctx, o.state.GetHistory(), defs)
	if err != nil {
		return "", nil, err
	}

	// 3. Прямой ответ: модель не запросила инструмент
	if !first.WantsToolCall() {
		if err := o.state.Append(llm.Message{
			Role:    llm.RoleAssistant,
			Content: first.Message.Content,
		}); err != nil {
			return "", nil, err
		}
		return first.Message.Content, first.Usage, nil
	}

	// 4. Модель запросила инструмент: сообщение-запрос в хронологию как есть,
	// с тем же tool call id, который мы затем вернём в tool-result сообщении
	toolCall := first.Message.ToolCalls[0]
	utils.Info("tool call requested", "tool", toolCall.Name, "call_id", toolCall.ID)

	if err := o.state.Append(first.Message); err != nil {
		return "", nil, err
	}

	// 5. Диспетчеризация строго по реестру: неизвестное имя — отказ турна
	tool, err := o.registry.Get(toolCall.Name)
	if err != nil {
		return "", nil, err
	}

	result, err := tool.Execute(ctx, toolCall.Args)
	if err != nil {
		return "", nil, err
	}

	// 6. Tool-result сообщение, скоррелированное с вызовом
	if err := o.state.Append(llm.Message{
		Role:       llm.RoleTool,
		Content:    result,
		ToolCallID: toolCall.ID,
		Name:       toolCall.Name,
	}); err != nil {
		return "", nil, err
	}

	// 7. Второй completion запрос с расширенной хронологией,
	// инструменты рекламируются повторно
	second, err := o.llm.Generate(ctx, o.state.GetHistory(), defs)
	if err != nil {
		return "", nil, err
	}

	if err := o.state.Append(llm.Message{
		Role:    llm.RoleAssistant,
		Content: second.Message.Content,
	}); err != nil {
		return "", nil, err
	}

	// Авторитетны счётчики второго запроса
	return second.Message.Content, second.Usage, nil
}
