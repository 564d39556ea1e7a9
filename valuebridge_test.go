package valuebridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLinkedEngine(t *testing.T) {
	b, err := New(DefaultConfig())
	require.NoError(t, err)
	defer b.Close()

	obj, err := b.FromStringMap(map[string]string{"engine": b.Adapter().Name()})
	require.NoError(t, err)
	leaf, owned, err := b.ResolvePath(obj, "handlers.onMessage")
	require.NoError(t, err)
	require.True(t, owned)

	l := b.NewListener()
	require.NoError(t, l.SetDelegate(leaf))
	assert.Equal(t, 1, b.Adapter().LiveRoots())
	require.NoError(t, l.Close())
	assert.Equal(t, 0, b.Adapter().LiveRoots())
	b.Adapter().Free(leaf)

	got, err := b.ToStringMap(obj)
	require.NoError(t, err)
	assert.Equal(t, b.Adapter().Name(), got["engine"])
	assert.Equal(t, `{"onMessage":{}}`, got["handlers"])
}

func TestEnginesAgree(t *testing.T) {
	cfg := DefaultConfig()
	input := map[string]string{"a": "1", "ü": "😀", "": "dropped"}
	want := map[string]string{"a": "1", "ü": "😀"}

	o := NewOtto(cfg)
	ov, err := o.FromStringMap(input)
	require.NoError(t, err)
	got, err := o.ToStringMap(ov)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	g := NewGoja(cfg)
	gv, err := g.FromStringMap(input)
	require.NoError(t, err)
	got, err = g.ToStringMap(gv)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLegacyDecodeFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LegacyStringDecode = true
	b := NewGoja(cfg)

	v, err := b.FromCString([]byte{0xff}, 1)
	require.NoError(t, err)
	assert.True(t, b.Adapter().IsUndefined(v))

	b = NewGoja(DefaultConfig())
	_, err = b.FromCString([]byte{0xff}, 1)
	assert.ErrorIs(t, err, ErrDecode)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
max_stack_depth = 200
legacy_string_decode = true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		MemoryLimitMB:      64,
		MaxStackDepth:      200,
		LegacyStringDecode: true,
		LogLevel:           "info",
	}, cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `memory_limit_mb = "lots"`))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `pool_size = 4`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool_size")
}

func TestConfigureLogging(t *testing.T) {
	defer SetLogger(nil)

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	require.NoError(t, ConfigureLogging(cfg))

	cfg.LogLevel = "chatty"
	assert.Error(t, ConfigureLogging(cfg))
}
