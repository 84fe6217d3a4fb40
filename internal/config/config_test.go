package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `{
	"port": 8080,
	"database": {"host": "localhost", "port": 5432, "user": "tome", "password": "p", "dbname": "tome"},
	"vector": {"url": "http://localhost:6333", "dimension": 768},
	"ai": {
		"completion": {"provider": "gemini", "model": "gemini-2.0-flash", "data": {"api_key": "k"}},
		"embedding": {"provider": "gemini", "model": "text-embedding-004", "data": {"api_key": "k"}}
	}
}`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.Equal(t, "book_content_chunks", cfg.Vector.Collection)
	require.Equal(t, float32(0.1), cfg.AI.Completion.Temperature)
	require.Equal(t, 1000, cfg.Chunker.MaxChars)
	require.Equal(t, 10, cfg.Chunker.ChunksPerPage)
	require.Equal(t, 5, cfg.Retrieval.TopK)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, 30, cfg.Jobs.SessionMaxAgeDays)
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(writeConfig(t, `{"port": 8080}`))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost"},
		"vector": {"url": "http://localhost:6333", "dimension": 768},
		"ai": {"completion": {"provider": "gemini", "model": "m"}}
	}`))
	require.Error(t, err)
}

func TestLoadChunkerBounds(t *testing.T) {
	_, err := Load(writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost"},
		"vector": {"url": "http://localhost:6333", "dimension": 768},
		"ai": {
			"completion": {"provider": "gemini", "model": "m"},
			"embedding": {"provider": "gemini", "model": "e"}
		},
		"chunker": {"max_chars": 100}
	}`))
	require.Error(t, err)
}
