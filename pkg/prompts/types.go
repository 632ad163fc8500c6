// Package prompts управляет персонами (системными промптами) ассистента.
//
// Персона — это seed сообщение диалога: первый и единственный system
// элемент хронологии. Источники персон взаимозаменяемы (OCP):
//   - DefaultSource — встроенная персона клинического кодера
//   - FileSource — персона из текстового файла
//   - SQLiteSource — персона из sqlite базы
package prompts

// Persona — системный промпт с идентификатором источника.
type Persona struct {
	ID     string // Идентификатор в источнике ("" для встроенной)
	System string // Текст system сообщения
}

// Source — контракт источника персон.
type Source interface {
	// Load загружает персону по идентификатору.
	// Пустой id означает персону по умолчанию для этого источника.
	Load(id string) (*Persona, error)
}
