package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ilkoid/kodik-ai/pkg/config"
	"github.com/ilkoid/kodik-ai/pkg/llm"
	"github.com/ilkoid/kodik-ai/pkg/state"
	"github.com/ilkoid/kodik-ai/pkg/tools"
)

// MockLLMProvider — мок LLM провайдера для детерминированного тестирования.
type MockLLMProvider struct {
	// Responses — последовательность ответов для возврата
	Responses []llm.Response
	// Errs — ошибки по номеру вызова (nil — без ошибки)
	Errs []error
	// CallCount — количество вызовов Generate
	CallCount int
	// LastMessages — последние сообщения, переданные в Generate
	LastMessages []llm.Message
	// LastTools — последние tools definitions
	LastTools []tools.ToolDefinition
}

// Generate реализует llm.Provider интерфейс.
func (m *MockLLMProvider) Generate(ctx context.Context, messages []llm.Message, toolsArgs ...any) (llm.Response, error) {
	m.CallCount++
	m.LastMessages = messages
	if len(toolsArgs) > 0 {
		if defs, ok := toolsArgs[0].([]tools.ToolDefinition); ok {
			m.LastTools = defs
		}
	}

	idx := m.CallCount - 1
	if idx < len(m.Errs) && m.Errs[idx] != nil {
		return llm.Response{}, m.Errs[idx]
	}
	if idx >= len(m.Responses) {
		return llm.Response{}, errors.New("unexpected call: no more responses")
	}
	return m.Responses[idx], nil
}

// MockTool — мок инструмента с предсказуемым поведением.
type MockTool struct {
	Name        string
	LastArgs    string
	Result      string
	Err         error
	ExecuteHits int
}

// Definition возвращает определение инструмента.
func (m *MockTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        m.Name,
		Description: "Mock tool for testing",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

// Execute выполняет инструмент.
func (m *MockTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	m.ExecuteHits++
	m.LastArgs = argsJSON
	if m.Err != nil {
		return "", m.Err
	}
	return m.Result, nil
}

// setupSession создаёт тестовое состояние с seed персоной.
func setupSession(t *testing.T) *state.CoreState {
	t.Helper()
	return state.NewCoreState(&config.AppConfig{}, "You suggest clinical codes.")
}

// setupRegistry создаёт реестр с одним mock инструментом.
func setupRegistry(t *testing.T, tool *MockTool) *tools.Registry {
	t.Helper()
	registry := tools.NewRegistry()
	if err := registry.Register(tool); err != nil {
		t.Fatalf("failed to register mock tool: %v", err)
	}
	return registry
}

func directResponse(content string, usage *llm.Usage) llm.Response {
	return llm.Response{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
		FinishReason: llm.FinishStop,
		Usage:        usage,
	}
}

func toolCallResponse(id, name, args string, usage *llm.Usage) llm.Response {
	return llm.Response{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{ID: id, Name: name, Args: args}},
		},
		FinishReason: llm.FinishToolCalls,
		Usage:        usage,
	}
}

func TestNewOrchestrator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				LLM:      &MockLLMProvider{},
				Registry: tools.NewRegistry(),
				State:    setupSession(t),
			},
			wantErr: false,
		},
		{
			name: "missing LLM",
			cfg: Config{
				Registry: tools.NewRegistry(),
				State:    setupSession(t),
			},
			wantErr: true,
		},
		{
			name: "missing Registry",
			cfg: Config{
				LLM:   &MockLLMProvider{},
				State: setupSession(t),
			},
			wantErr: true,
		},
		{
			name: "missing State",
			cfg: Config{
				LLM:      &MockLLMProvider{},
				Registry: tools.NewRegistry(),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// Прямой ответ: ровно 2 новых сообщения, счётчики первого запроса.
func TestDirectAnswerTurn(t *testing.T) {
	usage := &llm.Usage{TotalTokens: 42, PromptTokens: 30, CompletionTokens: 12}
	provider := &MockLLMProvider{Responses: []llm.Response{
		directResponse("Just ask me to code something.", usage),
	}}
	session := setupSession(t)
	tool := &MockTool{Name: "query_classification_api", Result: "{}"}

	orch, err := New(Config{LLM: provider, Registry: setupRegistry(t, tool), State: session})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	turn := orch.HandleTurn(context.Background(), "hello")

	if turn.Answer != "Just ask me to code something." {
		t.Errorf("unexpected answer: %s", turn.Answer)
	}
	if turn.Usage == nil || turn.Usage.TotalTokens != 42 {
		t.Errorf("expected usage from first completion, got %+v", turn.Usage)
	}
	if provider.CallCount != 1 {
		t.Errorf("expected 1 completion call, got %d", provider.CallCount)
	}
	if tool.ExecuteHits != 0 {
		t.Errorf("tool must not run on direct answer")
	}

	history := session.GetHistory()
	if len(history) != 3 { // seed + user + assistant
		t.Fatalf("expected 3 messages in history, got %d", len(history))
	}
	wantRoles := []llm.Role{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant}
	for i, want := range wantRoles {
		if history[i].Role != want {
			t.Errorf("history[%d].Role = %s, want %s", i, history[i].Role, want)
		}
	}
}

// Турн с инструментом: 4 новых сообщения, счётчики второго запроса,
// инструмент получает ровно присланные моделью аргументы.
func TestToolCallTurn(t *testing.T) {
	firstUsage := &llm.Usage{TotalTokens: 50, PromptTokens: 40, CompletionTokens: 10}
	secondUsage := &llm.Usage{TotalTokens: 90, PromptTokens: 70, CompletionTokens: 20}
	provider := &MockLLMProvider{Responses: []llm.Response{
		toolCallResponse("call_123", "query_classification_api", `{"input": "cholera"}`, firstUsage),
		directResponse("Candidate code 1A00 (Cholera).", secondUsage),
	}}
	session := setupSession(t)
	tool := &MockTool{
		Name:   "query_classification_api",
		Result: `{"cholera": {"1A00": "https://id.who.int/icd/entity/257068234"}}`,
	}

	orch, err := New(Config{LLM: provider, Registry: setupRegistry(t, tool), State: session})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	turn := orch.HandleTurn(context.Background(), "the patient has cholera")

	if turn.Answer != "Candidate code 1A00 (Cholera)." {
		t.Errorf("unexpected answer: %s", turn.Answer)
	}
	if turn.Usage == nil || turn.Usage.TotalTokens != 90 {
		t.Errorf("expected usage from SECOND completion, got %+v", turn.Usage)
	}
	if provider.CallCount != 2 {
		t.Errorf("expected 2 completion calls, got %d", provider.CallCount)
	}
	if tool.ExecuteHits != 1 {
		t.Fatalf("expected 1 tool execution, got %d", tool.ExecuteHits)
	}
	if tool.LastArgs != `{"input": "cholera"}` {
		t.Errorf("tool received args %s", tool.LastArgs)
	}

	history := session.GetHistory()
	if len(history) != 5 { // seed + user + tool-request + tool-result + final
		t.Fatalf("expected 5 messages in history, got %d", len(history))
	}

	toolRequest := history[2]
	if toolRequest.Role != llm.RoleAssistant || len(toolRequest.ToolCalls) != 1 {
		t.Errorf("history[2] must be the assistant tool request, got %+v", toolRequest)
	}

	toolResult := history[3]
	if toolResult.Role != llm.RoleTool {
		t.Errorf("history[3].Role = %s, want tool", toolResult.Role)
	}
	if toolResult.ToolCallID != "call_123" || toolResult.Name != "query_classification_api" {
		t.Errorf("tool result not correlated: %+v", toolResult)
	}
	if toolResult.Content != tool.Result {
		t.Errorf("tool result content mismatch: %s", toolResult.Content)
	}

	// Результат инструмента был в хронологии ДО второго запроса
	sawToolMsg := false
	for _, m := range provider.LastMessages {
		if m.Role == llm.RoleTool && m.ToolCallID == "call_123" {
			sawToolMsg = true
		}
	}
	if !sawToolMsg {
		t.Errorf("second completion did not see the tool result message")
	}
}

// Неизвестный инструмент: отказ турна текстом, хронология сохраняет
// только сообщения до отказа.
func TestUnknownToolTurn(t *testing.T) {
	provider := &MockLLMProvider{Responses: []llm.Response{
		toolCallResponse("call_9", "drop_all_tables", `{}`, nil),
	}}
	session := setupSession(t)
	tool := &MockTool{Name: "query_classification_api", Result: "{}"}

	orch, _ := New(Config{LLM: provider, Registry: setupRegistry(t, tool), State: session})

	turn := orch.HandleTurn(context.Background(), "hm")

	if !strings.HasPrefix(turn.Answer, "The API could not handle this content:") {
		t.Errorf("expected synthesized error answer, got: %s", turn.Answer)
	}
	if !strings.Contains(turn.Answer, "drop_all_tables") {
		t.Errorf("error answer should name the unknown tool: %s", turn.Answer)
	}
	if turn.Usage != nil {
		t.Errorf("usage must be absent on failed turn")
	}
	if len(session.GetHistory()) != 3 { // seed + user + tool-request
		t.Errorf("expected 3 messages, got %d", len(session.GetHistory()))
	}
}

// Отказ первого completion запроса: синтезированный ответ, в хронологии
// только seed и user.
func TestFirstCompletionError(t *testing.T) {
	provider := &MockLLMProvider{Errs: []error{errors.New("connection refused")}}
	session := setupSession(t)
	tool := &MockTool{Name: "query_classification_api", Result: "{}"}

	orch, _ := New(Config{LLM: provider, Registry: setupRegistry(t, tool), State: session})

	turn := orch.HandleTurn(context.Background(), "code this")

	if !strings.HasPrefix(turn.Answer, "The API could not handle this content:") {
		t.Errorf("expected synthesized error answer, got: %s", turn.Answer)
	}
	if turn.Usage != nil {
		t.Errorf("usage must be absent on failed turn")
	}
	if len(session.GetHistory()) != 2 {
		t.Errorf("expected seed+user in history, got %d messages", len(session.GetHistory()))
	}

	// Диалог остаётся пригодным: следующий турн работает
	provider.Responses = []llm.Response{directResponse("ok", nil)}
	provider.Errs = nil
	provider.CallCount = 0
	turn = orch.HandleTurn(context.Background(), "again")
	if turn.Answer != "ok" {
		t.Errorf("conversation unusable after failed turn: %s", turn.Answer)
	}
}

// Отказ второго completion запроса: tool-result уже в хронологии, ответ
// синтезированный.
func TestSecondCompletionError(t *testing.T) {
	provider := &MockLLMProvider{
		Responses: []llm.Response{
			toolCallResponse("call_1", "query_classification_api", `{"input": "x"}`, nil),
		},
		Errs: []error{nil, errors.New("bad gateway")},
	}
	session := setupSession(t)
	tool := &MockTool{Name: "query_classification_api", Result: "{}"}

	orch, _ := New(Config{LLM: provider, Registry: setupRegistry(t, tool), State: session})

	turn := orch.HandleTurn(context.Background(), "code x")

	if !strings.HasPrefix(turn.Answer, "The API could not handle this content:") {
		t.Errorf("expected synthesized error answer, got: %s", turn.Answer)
	}
	if len(session.GetHistory()) != 4 { // seed + user + tool-request + tool-result
		t.Errorf("expected 4 messages, got %d", len(session.GetHistory()))
	}
}

// Ошибка самого инструмента (например CredentialError из lookup) —
// отказ турна без второго completion запроса.
func TestToolFailureTurn(t *testing.T) {
	provider := &MockLLMProvider{Responses: []llm.Response{
		toolCallResponse("call_1", "query_classification_api", `{"input": "x"}`, nil),
	}}
	session := setupSession(t)
	tool := &MockTool{Name: "query_classification_api", Err: errors.New("icd credential error: token endpoint returned non-200 (status 401)")}

	orch, _ := New(Config{LLM: provider, Registry: setupRegistry(t, tool), State: session})

	turn := orch.HandleTurn(context.Background(), "code x")

	if !strings.Contains(turn.Answer, "credential error") {
		t.Errorf("expected credential failure surfaced to user, got: %s", turn.Answer)
	}
	if provider.CallCount != 1 {
		t.Errorf("second completion must not run after tool failure, calls: %d", provider.CallCount)
	}
}

// Инструменты рекламируются на каждом completion запросе.
func TestToolSchemaAdvertised(t *testing.T) {
	provider := &MockLLMProvider{Responses: []llm.Response{
		toolCallResponse("call_1", "query_classification_api", `{"input": "x"}`, nil),
		directResponse("done", nil),
	}}
	session := setupSession(t)
	tool := &MockTool{Name: "query_classification_api", Result: "{}"}

	orch, _ := New(Config{LLM: provider, Registry: setupRegistry(t, tool), State: session})
	orch.HandleTurn(context.Background(), "code x")

	if len(provider.LastTools) != 1 || provider.LastTools[0].Name != "query_classification_api" {
		t.Errorf("tool schema not advertised on second call: %+v", provider.LastTools)
	}
}

// Счётчики: либо все, либо ни одного (nil Usage у провайдера → nil у турна).
func TestUsageAllOrNothing(t *testing.T) {
	provider := &MockLLMProvider{Responses: []llm.Response{
		directResponse("no usage from api", nil),
	}}
	session := setupSession(t)
	tool := &MockTool{Name: "query_classification_api", Result: "{}"}

	orch, _ := New(Config{LLM: provider, Registry: setupRegistry(t, tool), State: session})

	turn := orch.HandleTurn(context.Background(), "hi")
	if turn.Usage != nil {
		t.Errorf("expected nil usage, got %+v", turn.Usage)
	}
	if turn.Answer != "no usage from api" {
		t.Errorf("answer must still be returned: %s", turn.Answer)
	}
}
