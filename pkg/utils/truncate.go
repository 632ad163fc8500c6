// Утилиты для подготовки строк к логированию.
package utils

// Truncate обрезает строку до max рун, добавляя "..." при обрезке.
//
// Используется для превью результатов инструментов в логах —
// полный JSON lookup'а может быть на тысячи символов.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
