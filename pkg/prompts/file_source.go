package prompts

import (
	"fmt"
	"os"
	"strings"
)

// FileSource — загрузка персоны из текстового файла.
//
// Файл целиком становится текстом system сообщения.
type FileSource struct {
	path string
}

// NewFileSource создаёт источник персон из файла.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load читает файл персоны.
//
// id игнорируется — файл всегда один, задан конфигурацией.
func (s *FileSource) Load(id string) (*Persona, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("persona file '%s' is empty", s.path)
	}

	return &Persona{ID: id, System: text}, nil
}
