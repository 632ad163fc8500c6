// Package state предоставляет thread-safe состояние сессии ассистента.
//
// CoreState содержит:
//   - Конфигурацию приложения
//   - Хронологию диалога (единственный источник правды для completion запросов)
//   - Реестр инструментов (tools registry)
//   - Записи завершённых турнов для отображения в UI
//   - Опциональный клиент архива транскриптов
//
// Правила:
//   - Thread-safe доступ через sync.RWMutex, никаких глобальных переменных
//   - Library code без зависимостей от internal/
//   - Все ошибки возвращаются, никаких panic в бизнес-логике
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/ilkoid/kodik-ai/pkg/config"
	"github.com/ilkoid/kodik-ai/pkg/llm"
	"github.com/ilkoid/kodik-ai/pkg/s3storage"
	"github.com/ilkoid/kodik-ai/pkg/tools"
)

// TurnRecord — один завершённый турн для отображения в UI.
//
// Хранится отдельно от сырой History: хронология несёт и служебные
// tool-сообщения, а UI показывает только пары вопрос-ответ со счётчиками.
type TurnRecord struct {
	UserText string     `json:"user_text"`
	Answer   string     `json:"answer"`
	Model    string     `json:"model"`
	Usage    *llm.Usage `json:"usage,omitempty"` // nil если счётчики недоступны
	At       time.Time  `json:"at"`
}

// CoreState представляет thread-safe состояние одной сессии.
//
// History мутируется только оркестратором (append) и Reset (замена целиком).
// Сообщения никогда не переупорядочиваются и не дедуплицируются.
type CoreState struct {
	// Config - конфигурация приложения
	Config *config.AppConfig

	// ToolsRegistry - реестр инструментов
	ToolsRegistry *tools.Registry

	// Archive - опциональный клиент архива транскриптов (nil если S3 не сконфигурирован)
	Archive *s3storage.Client

	// mu защищает History и turns
	mu sync.RWMutex

	// History - хронология диалога. Инвариант: первый элемент всегда
	// system сообщение (персона); убирается только через Reset.
	history []llm.Message

	// turns - записи завершённых турнов (аналог past/generated списков)
	turns []TurnRecord
}

// NewCoreState создает новое состояние, засеянное system сообщением персоны.
func NewCoreState(cfg *config.AppConfig, systemPrompt string) *CoreState {
	return &CoreState{
		Config: cfg,
		history: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
		},
		turns: make([]TurnRecord, 0),
	}
}

// SetRegistry устанавливает реестр инструментов.
func (s *CoreState) SetRegistry(r *tools.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ToolsRegistry = r
}

// SetArchive устанавливает клиент архива транскриптов.
func (s *CoreState) SetArchive(a *s3storage.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Archive = a
}

// Append добавляет сообщение в конец хронологии.
//
// System сообщения добавляются только через Reset — попытка append'а
// нарушила бы инвариант "ровно одно seed сообщение в начале".
func (s *CoreState) Append(msg llm.Message) error {
	if msg.Role == llm.RoleSystem {
		return fmt.Errorf("system messages are set via Reset, not Append")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
	return nil
}

// GetHistory возвращает копию хронологии диалога.
func (s *CoreState) GetHistory() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len возвращает длину хронологии.
func (s *CoreState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// SystemPrompt возвращает текущую персону (содержимое seed сообщения).
func (s *CoreState) SystemPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return ""
	}
	return s.history[0].Content
}

// Reset заменяет хронологию целиком свежим однострочным логом
// с (возможно отредактированным) system сообщением. Записи турнов очищаются.
//
// После Reset длина хронологии всегда ровно 1, какой бы она ни была до.
func (s *CoreState) Reset(systemPrompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
	}
	s.turns = s.turns[:0]
}

// AddTurn записывает завершённый турн.
func (s *CoreState) AddTurn(rec TurnRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, rec)
}

// GetTurns возвращает копию записей завершённых турнов.
func (s *CoreState) GetTurns() []TurnRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TurnRecord, len(s.turns))
	copy(out, s.turns)
	return out
}
