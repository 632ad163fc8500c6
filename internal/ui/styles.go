// Красота

package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Цвета
	primaryColor   = lipgloss.Color("62")  // Фиолетовый
	secondaryColor = lipgloss.Color("205") // Розовый
	grayColor      = lipgloss.Color("240")

	// HeaderStyle — стиль строки статуса вверху экрана
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1).
			Bold(true)

	// BorderStyle — разделительная линия между логом и вводом
	BorderStyle = lipgloss.NewStyle().
			Foreground(grayColor)

	// UserMsgStyle — префикс сообщений пользователя в логе
	UserMsgStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			Render

	// AssistantMsgStyle — префикс ответов ассистента
	AssistantMsgStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")). // Зеленый
				Render

	// SystemMsgStyle — служебные строки (приветствие, reset, экспорт)
	SystemMsgStyle = lipgloss.NewStyle().
			Foreground(grayColor).
			Render

	// ErrorMsgStyle — ошибки
	ErrorMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true).
			Render

	// UsageStyle — строка счётчиков токенов
	UsageStyle = lipgloss.NewStyle().
			Foreground(grayColor).
			Italic(true).
			Render
)
