package prompts

import (
	"fmt"

	"github.com/ilkoid/kodik-ai/pkg/config"
)

// FromConfig резолвит персону по секции prompts конфигурации.
//
// Неизвестный source отлавливается ещё валидацией конфига, но источник
// может отказать и в рантайме (нет файла, нет строки в базе) — тогда
// приложение не стартует, а не молча подменяет персону.
func FromConfig(cfg config.PromptsConfig) (*Persona, error) {
	var src Source

	switch cfg.Source {
	case "", "default":
		src = NewDefaultSource()
	case "file":
		src = NewFileSource(cfg.Path)
	case "database":
		sqliteSrc, err := NewSQLiteSource(cfg.Database, cfg.Table)
		if err != nil {
			return nil, err
		}
		defer sqliteSrc.Close()
		src = sqliteSrc
	default:
		return nil, fmt.Errorf("unknown prompts.source: '%s'", cfg.Source)
	}

	return src.Load(cfg.ID)
}
