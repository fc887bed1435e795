package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644)
	require.NoError(t, err)
}

func TestLoadAndGet(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
app:
  name: vendora-core
idempotency:
  default_ttl: 24h
`)

	loader, err := New(&Config{Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	assert.Equal(t, "vendora-core", loader.Get("app.name"))
	assert.Equal(t, "24h", loader.Get("idempotency.default_ttl"))
	assert.Nil(t, loader.Get("missing.key"))
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	loader, err := New(&Config{Paths: []string{t.TempDir()}})
	require.NoError(t, err)
	assert.NoError(t, loader.Load(context.Background()))
}

func TestUnmarshalKey(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
cache:
  prefix: "cache:"
  serializer: msgpack
`)

	loader, err := New(&Config{Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	var cacheCfg struct {
		Prefix     string `mapstructure:"prefix"`
		Serializer string `mapstructure:"serializer"`
	}
	require.NoError(t, loader.UnmarshalKey("cache", &cacheCfg))
	assert.Equal(t, "cache:", cacheCfg.Prefix)
	assert.Equal(t, "msgpack", cacheCfg.Serializer)
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
app:
  name: from-file
`)
	t.Setenv("VENDORA_APP_NAME", "from-env")

	loader, err := New(&Config{Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	assert.Equal(t, "from-env", loader.Get("app.name"))
}

func TestWatchEmptyKey(t *testing.T) {
	loader, err := New(nil)
	require.NoError(t, err)

	_, err = loader.Watch(context.Background(), "")
	assert.ErrorIs(t, err, ErrWatchKeyEmpty)
}

func TestWatchCancel(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "app:\n  debug: false\n")

	loader, err := New(&Config{Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := loader.Watch(ctx, "app.debug")
	require.NoError(t, err)

	cancel()
	// 取消后通道最终会被关闭
	for range ch {
	}
}
