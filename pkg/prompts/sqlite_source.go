package prompts

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSource — загрузка персон из sqlite базы.
//
// Структура таблицы (пример SQL):
//
//	CREATE TABLE personas (
//	    id TEXT PRIMARY KEY,
//	    system TEXT NOT NULL
//	);
type SQLiteSource struct {
	db    *sql.DB
	table string
}

// NewSQLiteSource открывает sqlite базу с персонами.
//
// table по умолчанию — "personas".
func NewSQLiteSource(path, table string) (*SQLiteSource, error) {
	if table == "" {
		table = "personas"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open persona database: %w", err)
	}

	return &SQLiteSource{db: db, table: table}, nil
}

// Load загружает персону из базы по id.
func (s *SQLiteSource) Load(id string) (*Persona, error) {
	var system string

	query := fmt.Sprintf("SELECT system FROM %s WHERE id = ?", s.table)
	err := s.db.QueryRow(query, id).Scan(&system)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("persona '%s' not found in table '%s'", id, s.table)
	}
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return &Persona{ID: id, System: system}, nil
}

// Close закрывает соединение с базой.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
