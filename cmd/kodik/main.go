/*
Kodik — чат-ассистент клинического кодера поверх ICD-11 function calling.
TUI интерфейс на Bubble Tea, один турн обрабатывается за раз.
*/

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/ilkoid/kodik-ai/internal/agent"
	"github.com/ilkoid/kodik-ai/internal/ui"
	"github.com/ilkoid/kodik-ai/pkg/config"
	"github.com/ilkoid/kodik-ai/pkg/icd"
	"github.com/ilkoid/kodik-ai/pkg/llm"
	openaiclient "github.com/ilkoid/kodik-ai/pkg/llm/openai"
	"github.com/ilkoid/kodik-ai/pkg/prompts"
	"github.com/ilkoid/kodik-ai/pkg/s3storage"
	"github.com/ilkoid/kodik-ai/pkg/state"
	"github.com/ilkoid/kodik-ai/pkg/tools"
	"github.com/ilkoid/kodik-ai/pkg/tools/std"
	"github.com/ilkoid/kodik-ai/pkg/utils"
)

// teaMsg типы для коммуникации
type turnDoneMsg struct {
	userText string
	turn     agent.Turn
}
type exportDoneMsg struct{ key string }
type errorMsg struct{ err error }

// chatModel - TUI модель для чата
type chatModel struct {
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	orchestrator *agent.Orchestrator
	session      *state.CoreState
	modelName    string
	sessionID    string

	loading bool
	ready   bool
}

// initialModel создает начальное состояние TUI.
func initialModel(orch *agent.Orchestrator, session *state.CoreState, modelName string) tea.Model {
	ta := textarea.New()
	ta.Placeholder = "Describe what needs coding..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false) // Enter отправляет, не переносит строку

	vp := viewport.New(0, 0)
	vp.SetContent(fmt.Sprintf("%s\nModel: %s\n%s\n%s\n",
		ui.SystemMsgStyle("Kodik — clinical coding assistant (ICD-11)"),
		modelName,
		ui.SystemMsgStyle("Type a message and press Enter. One request is processed at a time."),
		ui.SystemMsgStyle("Ctrl+R reset conversation · Ctrl+S export transcript · Esc quit")))

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return chatModel{
		orchestrator: orch,
		session:      session,
		modelName:    modelName,
		sessionID:    time.Now().Format("20060102-150405"),
		textarea:     ta,
		viewport:     vp,
		spinner:      sp,
	}
}

// Init инициализирует TUI.
func (m chatModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update обрабатывает события.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := m.textarea.Height() + 2

		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 0 {
			vpHeight = 0
		}

		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
		m.textarea.SetWidth(msg.Width)
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := m.textarea.Value()
			// Пока турн обрабатывается, новый не принимается
			if input == "" || m.loading {
				return m, nil
			}

			m.textarea.Reset()
			m.appendLog(ui.UserMsgStyle("You: ") + input)

			m.loading = true
			return m, tea.Batch(
				m.spinner.Tick,
				makeTurnCmd(m.orchestrator, input),
			)

		case tea.KeyCtrlR:
			if m.loading {
				return m, nil
			}
			// Replace-wholesale: хронология становится одним seed сообщением
			m.session.Reset(m.session.SystemPrompt())
			m.appendLog(ui.SystemMsgStyle("— conversation reset —"))
			return m, nil

		case tea.KeyCtrlS:
			if m.loading || m.session.Archive == nil {
				if m.session.Archive == nil {
					m.appendLog(ui.SystemMsgStyle("transcript archive is not configured"))
				}
				return m, nil
			}
			return m, makeExportCmd(m.session, m.sessionID)

		case tea.KeyCtrlU:
			m.textarea.Reset()
			return m, nil
		}

	case turnDoneMsg:
		m.loading = false

		m.session.AddTurn(state.TurnRecord{
			UserText: msg.userText,
			Answer:   msg.turn.Answer,
			Model:    m.modelName,
			Usage:    msg.turn.Usage,
			At:       time.Now(),
		})

		m.appendLog(ui.AssistantMsgStyle("Kodik: ") + msg.turn.Answer)
		if msg.turn.Usage != nil {
			m.appendLog(ui.UsageStyle(fmt.Sprintf("tokens: total=%d prompt=%d completion=%d",
				msg.turn.Usage.TotalTokens, msg.turn.Usage.PromptTokens, msg.turn.Usage.CompletionTokens)))
		} else {
			m.appendLog(ui.UsageStyle("tokens: unavailable"))
		}

	case exportDoneMsg:
		m.appendLog(ui.SystemMsgStyle("transcript saved: " + msg.key))

	case errorMsg:
		m.loading = false
		m.appendLog(ui.ErrorMsgStyle("Error: ") + msg.err.Error())
	}

	if m.loading {
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, spCmd)
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

// appendLog добавляет строку в лог с переносом по ширине вьюпорта.
func (m *chatModel) appendLog(str string) {
	if m.viewport.Width > 0 {
		str = wordwrap.String(str, m.viewport.Width)
	}
	newContent := fmt.Sprintf("%s\n%s", m.viewport.View(), str)
	m.viewport.SetContent(newContent)
	m.viewport.GotoBottom()
}

// View рендерит интерфейс.
func (m chatModel) View() string {
	if !m.ready {
		return "Initializing UI..."
	}

	status := fmt.Sprintf(" KODIK | MODEL: %s | TURNS: %d ", m.modelName, len(m.session.GetTurns()))

	header := ui.HeaderStyle.
		Width(m.viewport.Width).
		Render(status)

	border := ui.BorderStyle.
		Width(m.viewport.Width).
		Render("──────────────────────────────────────────────────")

	view := fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		border,
		m.textarea.View(),
	)

	if m.loading {
		view += "\n" + m.spinner.View() + " Coding..."
	}

	return view
}

// makeTurnCmd запускает обработку одного турна.
//
// HandleTurn блокирует до полного завершения турна (оба completion запроса
// плюс lookup, если модель его запросила). Отмены на середине турна нет.
func makeTurnCmd(orch *agent.Orchestrator, userText string) tea.Cmd {
	return func() tea.Msg {
		turn := orch.HandleTurn(context.Background(), userText)
		return turnDoneMsg{userText: userText, turn: turn}
	}
}

// transcript — схема экспортируемого JSON транскрипта.
type transcript struct {
	SessionID string             `json:"session_id"`
	Persona   string             `json:"persona"`
	Turns     []state.TurnRecord `json:"turns"`
	History   []llm.Message      `json:"history"`
}

// makeExportCmd сохраняет транскрипт сессии в архив.
func makeExportCmd(session *state.CoreState, sessionID string) tea.Cmd {
	return func() tea.Msg {
		data, err := json.MarshalIndent(transcript{
			SessionID: sessionID,
			Persona:   session.SystemPrompt(),
			Turns:     session.GetTurns(),
			History:   session.GetHistory(),
		}, "", "  ")
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to marshal transcript: %w", err)}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		key, err := session.Archive.UploadTranscript(ctx, sessionID, data)
		if err != nil {
			return errorMsg{err: err}
		}
		return exportDoneMsg{key: key}
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	personaPath := flag.String("persona", "", "override persona file (system prompt)")
	flag.Parse()

	if err := utils.InitLogger(); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer utils.Close()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Модель для чата из конфига
	modelName := cfg.Models.DefaultChat
	if modelName == "" {
		// Fallback: берем первый ключ из определений
		for k := range cfg.Models.Definitions {
			modelName = k
			break
		}
	}

	modelDef, ok := cfg.GetChatModel(modelName)
	if !ok {
		log.Fatalf("Model '%s' is not defined in config", modelName)
	}

	provider := openaiclient.NewClient(modelDef)

	// Персона: флаг -persona перекрывает источник из конфига
	promptsCfg := cfg.Prompts
	if *personaPath != "" {
		promptsCfg = config.PromptsConfig{Source: "file", Path: *personaPath}
	}
	persona, err := prompts.FromConfig(promptsCfg)
	if err != nil {
		log.Fatalf("Failed to load persona: %v", err)
	}

	// Единственный инструмент ассистента: по-словный поиск кодов
	icdClient, err := icd.NewFromConfig(cfg.ICD)
	if err != nil {
		log.Fatalf("Failed to create ICD client: %v", err)
	}

	registry := tools.NewRegistry()
	if err := registry.Register(std.NewQueryClassificationTool(icdClient)); err != nil {
		log.Fatalf("Failed to register tool: %v", err)
	}

	session := state.NewCoreState(cfg, persona.System)
	session.SetRegistry(registry)

	if cfg.S3.Enabled() {
		archive, err := s3storage.New(cfg.S3)
		if err != nil {
			log.Fatalf("Failed to create transcript archive: %v", err)
		}
		session.SetArchive(archive)
	}

	orch, err := agent.New(agent.Config{
		LLM:      provider,
		Registry: registry,
		State:    session,
	})
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	p := tea.NewProgram(
		initialModel(orch, session, modelName),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		log.Fatalf("TUI error: %v", err)
	}
}
