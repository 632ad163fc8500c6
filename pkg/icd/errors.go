// Типы ошибок ICD API и их классификация.

package icd

import (
	"fmt"
	"strings"
)

// CredentialError — обмен client credentials не дал bearer token.
//
// Фатальна для текущего lookup: без токена поисковые запросы не выполняются,
// отказ поднимается пользователю без retry.
type CredentialError struct {
	StatusCode int    // HTTP статус token endpoint'а (0 при сетевой ошибке)
	Detail     string // Человекочитаемая причина
}

// Error реализует интерфейс error.
func (e *CredentialError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("icd credential error: %s (status %d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("icd credential error: %s", e.Detail)
}

// ErrorType представляет тип ошибки при работе с ICD API.
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrAuthFailed
	ErrTimeout
	ErrNetwork
	ErrRateLimit
)

// String возвращает строковое представление типа ошибки.
func (e ErrorType) String() string {
	switch e {
	case ErrAuthFailed:
		return "authentication_failed"
	case ErrTimeout:
		return "timeout"
	case ErrNetwork:
		return "network_error"
	case ErrRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// HumanMessage возвращает человекочитаемое сообщение для типа ошибки.
//
// Используется утилитами и TUI для диагностики без чтения логов.
func (e ErrorType) HumanMessage() string {
	switch e {
	case ErrAuthFailed:
		return "The classification API rejected the credentials. Check ICD_CLIENT_ID and ICD_CLIENT_SECRET."
	case ErrTimeout:
		return "The classification API did not respond in time."
	case ErrNetwork:
		return "The classification API is unreachable. Check the network connection."
	case ErrRateLimit:
		return "Too many requests to the classification API. Wait before retrying."
	default:
		return "Unknown error while talking to the classification API."
	}
}

// ClassifyError классифицирует ошибку по типу для лучшей диагностики.
//
// Анализирует текст ошибки и возвращает соответствующий тип:
//   - ErrAuthFailed: ошибки 401, unauthorized, Forbidden, CredentialError
//   - ErrTimeout: timeout, deadline exceeded
//   - ErrNetwork: connection refused, no such host
//   - ErrRateLimit: ошибки 429, Too Many Requests
//   - ErrUnknown: все остальные ошибки
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}

	errMsg := err.Error()
	errMsgLower := strings.ToLower(errMsg)

	if strings.Contains(errMsg, "401") ||
		strings.Contains(errMsgLower, "unauthorized") ||
		strings.Contains(errMsg, "Forbidden") ||
		strings.Contains(errMsgLower, "credential error") {
		return ErrAuthFailed
	}

	if strings.Contains(errMsgLower, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded") {
		return ErrTimeout
	}

	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") {
		return ErrNetwork
	}

	if strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "Too Many Requests") {
		return ErrRateLimit
	}

	return ErrUnknown
}
