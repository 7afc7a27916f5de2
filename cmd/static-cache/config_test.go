package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(filename, []byte(`
port: 8080
root: /srv/www
cache:
  capacity: 64
source:
  type: sqlite
  db: /var/lib/static-cache/content.db
`), 0644))

	config, err := getConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, "/srv/www", config.Root)
	assert.Equal(t, 64, config.Cache.Capacity)
	assert.Equal(t, 0, config.Cache.IndexHint)
	assert.Equal(t, "sqlite", config.Source.Type)
	assert.Equal(t, "/var/lib/static-cache/content.db", config.Source.DB)
	// untouched values keep their defaults
	assert.Equal(t, "./serverfiles", config.Files)
	assert.NoError(t, config.validate())
}

func TestGetConfigMissingFile(t *testing.T) {
	_, err := getConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, defaultConfig().validate())

	tests := map[string]func(*Config){
		"zero port":      func(c *Config) { c.Port = 0 },
		"huge port":      func(c *Config) { c.Port = 70000 },
		"zero capacity":  func(c *Config) { c.Cache.Capacity = 0 },
		"negative hint":  func(c *Config) { c.Cache.IndexHint = -1 },
		"unknown source": func(c *Config) { c.Source.Type = "s3" },
		"no root":        func(c *Config) { c.Root = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := defaultConfig()
			mutate(&c)
			assert.Error(t, c.validate())
		})
	}
}

func TestOpenSource(t *testing.T) {
	c := defaultConfig()
	c.Source.Type = "sqlite"
	c.Source.DB = filepath.Join(t.TempDir(), "content.db")
	src, err := openSource(c)
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.Write("/hello.txt", []byte("hello")))

	c = defaultConfig()
	c.Root = t.TempDir()
	dir, err := openSource(c)
	require.NoError(t, err)
	assert.NoError(t, dir.Close())
}
