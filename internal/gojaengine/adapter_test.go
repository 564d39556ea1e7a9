package gojaengine

import (
	"testing"

	"github.com/cryguy/valuebridge/internal/convert"
	"github.com/cryguy/valuebridge/internal/core"
	"github.com/cryguy/valuebridge/internal/enginetest"
	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	enginetest.RunConformance(t, func(t *testing.T) core.Adapter[goja.Value] {
		return New(core.DefaultConfig())
	})
}

func TestThrowingGetter(t *testing.T) {
	a := New(core.DefaultConfig())
	b := convert.New[goja.Value](a)

	v, err := a.Eval(`({ok: "yes", get bad() { throw new Error("nope"); }})`)
	require.NoError(t, err)

	_, err = a.GetProperty(v, "bad")
	assert.Error(t, err)

	_, err = b.ToStringMap(v)
	assert.Error(t, err)

	ok, err := a.GetProperty(v, "ok")
	require.NoError(t, err)
	s, isString := b.ToString(ok)
	assert.True(t, isString)
	assert.Equal(t, "yes", s)
}

func TestIntegerAndFloatNumbers(t *testing.T) {
	a := New(core.DefaultConfig())
	b := convert.New[goja.Value](a)

	for src, want := range map[string]float64{"7": 7, "0.5": 0.5, "-0": 0, "9007199254740992": 1 << 53} {
		v, err := a.Eval(src)
		require.NoError(t, err, src)
		got, ok := b.ToNumber(v)
		assert.True(t, ok, src)
		assert.Equal(t, want, got, src)
	}
}

func TestListenerOnScriptFunction(t *testing.T) {
	a := New(core.DefaultConfig())
	b := convert.New[goja.Value](a)

	fn, err := a.Eval("(function handler() {})")
	require.NoError(t, err)

	l := b.NewListener()
	require.NoError(t, l.SetDelegate(fn))
	assert.True(t, a.IsFunction(l.Delegate()))
	assert.Equal(t, 1, a.LiveRoots())
	require.NoError(t, l.Close())
	assert.Equal(t, 0, a.LiveRoots())
}

func TestStackSizeLimit(t *testing.T) {
	a := New(core.Config{MaxStackDepth: 64})
	_, err := a.Eval("function f(n) { return f(n + 1); } f(0)")
	assert.Error(t, err)
}
