package prompts

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/kodik-ai/pkg/config"
)

func TestDefaultSource(t *testing.T) {
	persona, err := NewDefaultSource().Load("")
	require.NoError(t, err)

	assert.Contains(t, persona.System, "clinical coder")
	assert.Contains(t, persona.System, "ICD-11")
	assert.Contains(t, persona.System, "disclaimer")
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.txt")
	require.NoError(t, os.WriteFile(path, []byte("You are a billing assistant.\n"), 0644))

	persona, err := NewFileSource(path).Load("custom")
	require.NoError(t, err)
	assert.Equal(t, "You are a billing assistant.", persona.System)
	assert.Equal(t, "custom", persona.ID)
}

func TestFileSourceErrors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.txt")).Load("")
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("   \n"), 0644))
	_, err = NewFileSource(empty).Load("")
	assert.Error(t, err)
}

func TestSQLiteSource(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "personas.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE personas (id TEXT PRIMARY KEY, system TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO personas (id, system) VALUES ('coder', 'You suggest codes.')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src, err := NewSQLiteSource(dbPath, "")
	require.NoError(t, err)
	defer src.Close()

	persona, err := src.Load("coder")
	require.NoError(t, err)
	assert.Equal(t, "You suggest codes.", persona.System)

	_, err = src.Load("ghost")
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	persona, err := FromConfig(config.PromptsConfig{Source: "default"})
	require.NoError(t, err)
	assert.Contains(t, persona.System, "clinical coder")

	persona, err = FromConfig(config.PromptsConfig{})
	require.NoError(t, err)
	assert.Contains(t, persona.System, "clinical coder")

	_, err = FromConfig(config.PromptsConfig{Source: "carrier-pigeon"})
	assert.Error(t, err)
}
