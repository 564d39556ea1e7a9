package enginetest

import (
	"testing"

	"github.com/cryguy/valuebridge/internal/convert"
	"github.com/cryguy/valuebridge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory creates a fresh adapter for one subtest. The suite closes it.
type Factory[V any] func(t *testing.T) core.Adapter[V]

// RunConformance checks the conversion contract against an adapter. Every
// engine package calls it from its own tests, so each engine is held to
// the same behavior.
func RunConformance[V any](t *testing.T, newAdapter Factory[V]) {
	setup := func(t *testing.T, opts ...convert.Option) (core.Adapter[V], *convert.Bridge[V]) {
		a := newAdapter(t)
		t.Cleanup(func() { _ = a.Close() })
		return a, convert.New[V](a, opts...)
	}

	t.Run("Scalars", func(t *testing.T) {
		a, b := setup(t)

		v, ok := b.ToBool(b.FromBool(true))
		assert.True(t, ok)
		assert.True(t, v)

		v, ok = b.ToBool(b.FromInt32(1))
		assert.False(t, ok)
		assert.False(t, v)

		n, ok := b.ToNumber(b.FromNumber(2.5))
		assert.True(t, ok)
		assert.Equal(t, 2.5, n)

		n, ok = b.ToNumber(b.FromInt32(-7))
		assert.True(t, ok)
		assert.Equal(t, -7.0, n)

		str, err := b.FromString("12")
		require.NoError(t, err)
		n, ok = b.ToNumber(str)
		assert.False(t, ok, "strings are not coerced")
		assert.Zero(t, n)

		i, ok := b.ToInt32(b.FromNumber(-1.9))
		assert.True(t, ok)
		assert.EqualValues(t, -1, i)

		_, ok = b.ToBool(a.Undefined())
		assert.False(t, ok)
	})

	t.Run("StringRoundTrip", func(t *testing.T) {
		a, b := setup(t)
		inputs := []string{
			"hello", "héllo wörld", "日本語テキスト", "emoji 😀 pair",
			"tab\tnewline\n\"quote\"", `back\slash`, " sep",
			"a\x00b", "\x00", "line\u2028para\u2029end",
		}
		obj, err := b.NewObject()
		require.NoError(t, err)
		for _, s := range inputs {
			v, err := b.FromString(s)
			require.NoError(t, err, "%q", s)
			got, ok := b.ToString(v)
			assert.True(t, ok, "%q", s)
			assert.Equal(t, s, got)

			// Stored in the engine and read back as a fresh value.
			require.NoError(t, a.SetProperty(obj, "s", v))
			a.Free(v)
			stored, err := a.GetProperty(obj, "s")
			require.NoError(t, err, "%q", s)
			got, ok = b.ToString(stored)
			assert.True(t, ok, "%q", s)
			assert.Equal(t, s, got)
			a.Free(stored)
		}

		arr, err := b.FromStringSlice(inputs)
		require.NoError(t, err)
		list, err := b.ToStringSlice(arr)
		require.NoError(t, err)
		assert.Equal(t, inputs, list)

		m, err := b.FromStringMap(map[string]string{"k\x00ey": "v\x00al"})
		require.NoError(t, err)
		got, err := b.ToStringMap(m)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"k\x00ey": "v\x00al"}, got)

		// An explicit length keeps the bytes after an interior NUL.
		v, err := b.FromCString([]byte("a\x00b"), 3)
		require.NoError(t, err)
		require.NoError(t, a.SetProperty(obj, "c", v))
		stored, err := a.GetProperty(obj, "c")
		require.NoError(t, err)
		str, ok := b.ToString(stored)
		assert.True(t, ok)
		assert.Equal(t, "a\x00b", str)
	})

	t.Run("EmptyString", func(t *testing.T) {
		a, b := setup(t)
		for _, v := range []func() (V, error){
			func() (V, error) { return b.FromString("") },
			func() (V, error) { return b.FromCString([]byte{}, 0) },
			func() (V, error) { return b.FromCString([]byte("abc"), 0) },
			func() (V, error) { return b.FromCString([]byte{0, 'x'}, -1) },
		} {
			val, err := v()
			require.NoError(t, err)
			assert.True(t, a.IsString(val))
			got, ok := b.ToString(val)
			assert.True(t, ok)
			assert.Equal(t, "", got)
		}
	})

	t.Run("CStringLength", func(t *testing.T) {
		_, b := setup(t)

		v, err := b.FromCString([]byte("hello\x00world"), -1)
		require.NoError(t, err)
		got, _ := b.ToString(v)
		assert.Equal(t, "hello", got)

		v, err = b.FromCString([]byte("hello"), 3)
		require.NoError(t, err)
		got, _ = b.ToString(v)
		assert.Equal(t, "hel", got)

		v, err = b.FromCString([]byte("no terminator"), -1)
		require.NoError(t, err)
		got, _ = b.ToString(v)
		assert.Equal(t, "no terminator", got)

		_, err = b.FromCString(nil, -1)
		assert.ErrorIs(t, err, core.ErrPrecondition)

		_, err = b.FromCString([]byte("abc"), 4)
		assert.ErrorIs(t, err, core.ErrPrecondition)
	})

	t.Run("DecodeFailure", func(t *testing.T) {
		_, b := setup(t)
		_, err := b.FromCString([]byte{'o', 'k', 0xff, 0xfe}, -1)
		assert.ErrorIs(t, err, core.ErrDecode)
	})

	t.Run("LegacyDecodeIsSilent", func(t *testing.T) {
		a, b := setup(t, convert.WithLegacyStringDecode(true))
		v, err := b.FromCString([]byte{0xc3, 0x28}, 2)
		require.NoError(t, err)
		assert.True(t, a.IsUndefined(v))
	})

	t.Run("ArrayOrder", func(t *testing.T) {
		a, b := setup(t)
		arr, err := b.FromStringSlice([]string{"x", "y", "z"})
		require.NoError(t, err)
		assert.True(t, a.IsArray(arr))
		n, err := a.ArrayLength(arr)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		list, err := b.ToStringSlice(arr)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y", "z"}, list)

		arr, err = b.FromStringSlice(nil)
		require.NoError(t, err)
		list, err = b.ToStringSlice(arr)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("NonStringElementsSkipped", func(t *testing.T) {
		a, b := setup(t)
		arr, err := b.NewArray(0)
		require.NoError(t, err)
		first, err := b.FromString("a")
		require.NoError(t, err)
		last, err := b.FromString("b")
		require.NoError(t, err)
		require.NoError(t, a.SetElement(arr, 0, first))
		require.NoError(t, a.SetElement(arr, 1, b.FromInt32(5)))
		require.NoError(t, a.SetElement(arr, 2, last))
		require.NoError(t, a.SetElement(arr, 3, a.Null()))

		list, err := b.ToStringSlice(arr)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, list)
	})

	t.Run("StringSliceRejectsNonArray", func(t *testing.T) {
		a, b := setup(t)
		obj, err := b.NewObject()
		require.NoError(t, err)
		for _, v := range []V{obj, b.FromInt32(1), a.Null(), a.Undefined()} {
			_, err := b.ToStringSlice(v)
			assert.ErrorIs(t, err, core.ErrTypeMismatch)
		}
	})

	t.Run("StringMapRoundTrip", func(t *testing.T) {
		_, b := setup(t)
		m := map[string]string{"alpha": "1", "beta": "two", "gamma": "ünïcode", "empty value": ""}
		obj, err := b.FromStringMap(m)
		require.NoError(t, err)
		got, err := b.ToStringMap(obj)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	})

	t.Run("EmptyKeyDropped", func(t *testing.T) {
		a, b := setup(t)
		obj, err := b.FromStringMap(map[string]string{"": "lost", "k": "v"})
		require.NoError(t, err)
		keys, err := a.Keys(obj)
		require.NoError(t, err)
		assert.Equal(t, []string{"k"}, keys)
		prop, err := a.GetProperty(obj, "")
		require.NoError(t, err)
		assert.True(t, a.IsUndefined(prop))

		obj, err = b.FromIntMap(map[string]int{"": 1, "n": 2})
		require.NoError(t, err)
		keys, err = a.Keys(obj)
		require.NoError(t, err)
		assert.Equal(t, []string{"n"}, keys)
	})

	t.Run("IntMap", func(t *testing.T) {
		a, b := setup(t)
		obj, err := b.FromIntMap(map[string]int{"a": 1, "b": -2, "big": 1 << 40})
		require.NoError(t, err)
		for key, want := range map[string]float64{"a": 1, "b": -2, "big": 1 << 40} {
			prop, err := a.GetProperty(obj, key)
			require.NoError(t, err)
			got, ok := b.ToNumber(prop)
			assert.True(t, ok, key)
			assert.Equal(t, want, got, key)
		}
	})

	t.Run("StringMapStringifies", func(t *testing.T) {
		a, b := setup(t)
		obj, err := b.NewObject()
		require.NoError(t, err)
		require.NoError(t, b.SetIntProperty(obj, "a", 1))
		require.NoError(t, b.SetBoolProperty(obj, "b", true))
		require.NoError(t, b.SetStringProperty(obj, "c", "x"))
		require.NoError(t, b.SetNumberProperty(obj, "f", 0.5))
		list, err := b.NewArray(0)
		require.NoError(t, err)
		require.NoError(t, a.SetElement(list, 0, b.FromInt32(1)))
		require.NoError(t, a.SetElement(list, 1, b.FromInt32(2)))
		require.NoError(t, b.SetObjectProperty(obj, "d", list))
		require.NoError(t, a.SetProperty(obj, "e", a.Null()))

		got, err := b.ToStringMap(obj)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"a": "1", "b": "true", "c": "x", "f": "0.5", "d": "[1,2]", "e": "",
		}, got)
	})

	t.Run("StringMapAbortsOnFunction", func(t *testing.T) {
		a, b := setup(t)
		fn, ok := newFunction(t, a)
		if !ok {
			t.Skip("adapter cannot create functions")
		}
		obj, err := b.FromStringMap(map[string]string{"k": "v"})
		require.NoError(t, err)
		require.NoError(t, b.SetObjectProperty(obj, "fn", fn))
		got, err := b.ToStringMap(obj)
		assert.ErrorIs(t, err, core.ErrTypeMismatch)
		assert.Nil(t, got)
	})

	t.Run("StringMapRejectsNonObject", func(t *testing.T) {
		a, b := setup(t)
		arr, err := b.FromStringSlice([]string{"a"})
		require.NoError(t, err)
		for _, v := range []V{arr, b.FromInt32(3), a.Null()} {
			_, err := b.ToStringMap(v)
			assert.ErrorIs(t, err, core.ErrTypeMismatch)
		}
	})

	t.Run("PathCreation", func(t *testing.T) {
		a, b := setup(t)
		root, err := b.NewObject()
		require.NoError(t, err)
		leaf, owned, err := b.ResolvePath(root, "a.b.c")
		require.NoError(t, err)
		assert.True(t, owned)
		assert.True(t, a.IsObject(leaf))

		cur := root
		for _, name := range []string{"a", "b", "c"} {
			keys, err := a.Keys(cur)
			require.NoError(t, err)
			assert.Equal(t, []string{name}, keys)
			cur, err = a.GetProperty(cur, name)
			require.NoError(t, err)
			require.True(t, a.IsObject(cur), name)
		}
		assert.True(t, a.SameValue(leaf, cur))
		keys, err := a.Keys(leaf)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("PathIdempotent", func(t *testing.T) {
		a, b := setup(t)
		root, err := b.NewObject()
		require.NoError(t, err)
		first, _, err := b.ResolvePath(root, "x.y")
		require.NoError(t, err)
		second, _, err := b.ResolvePath(root, "x.y")
		require.NoError(t, err)
		assert.True(t, a.SameValue(first, second))

		third, _, err := b.ResolvePath(root, "..x...y.")
		require.NoError(t, err)
		assert.True(t, a.SameValue(first, third))

		self, owned, err := b.ResolvePath(root, "")
		require.NoError(t, err)
		assert.False(t, owned)
		assert.True(t, a.SameValue(root, self))
	})

	t.Run("PathBackToRoot", func(t *testing.T) {
		a, b := setup(t)
		root, err := b.NewObject()
		require.NoError(t, err)
		require.NoError(t, b.SetObjectProperty(root, "self", root))

		for i := 0; i < 3; i++ {
			leaf, owned, err := b.ResolvePath(root, "self.self")
			require.NoError(t, err)
			assert.True(t, owned, "a reference read through the object is the caller's")
			assert.True(t, a.SameValue(root, leaf))
			a.Free(leaf)
		}
		keys, err := a.Keys(root)
		require.NoError(t, err)
		assert.Equal(t, []string{"self"}, keys)
	})

	t.Run("PathKeepsExistingValues", func(t *testing.T) {
		a, b := setup(t)
		root, err := b.NewObject()
		require.NoError(t, err)
		cfg, err := b.FromStringMap(map[string]string{"keep": "yes"})
		require.NoError(t, err)
		require.NoError(t, b.SetObjectProperty(root, "cfg", cfg))

		sub, _, err := b.ResolvePath(root, "cfg.sub")
		require.NoError(t, err)
		assert.True(t, a.IsObject(sub))

		got, err := b.ToStringMap(cfg)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"keep": "yes", "sub": "{}"}, got)
	})

	t.Run("PathConflict", func(t *testing.T) {
		a, b := setup(t)
		root, err := b.NewObject()
		require.NoError(t, err)
		require.NoError(t, b.SetStringProperty(root, "s", "str"))
		require.NoError(t, a.SetProperty(root, "n", a.Null()))

		_, _, err = b.ResolvePath(root, "s.t")
		assert.ErrorIs(t, err, core.ErrPathConflict)
		_, _, err = b.ResolvePath(root, "n")
		assert.ErrorIs(t, err, core.ErrPathConflict)

		s, err := a.GetProperty(root, "s")
		require.NoError(t, err)
		got, ok := b.ToString(s)
		assert.True(t, ok)
		assert.Equal(t, "str", got)

		_, _, err = b.ResolvePath(b.FromInt32(1), "a")
		assert.ErrorIs(t, err, core.ErrPrecondition)
	})

	t.Run("ListenerReplacement", func(t *testing.T) {
		a, b := setup(t)
		l := b.NewListener()
		assert.False(t, l.HasDelegate())
		assert.True(t, a.SameValue(a.Null(), l.Delegate()))

		x, err := b.NewObject()
		require.NoError(t, err)
		y, err := b.NewObject()
		require.NoError(t, err)

		require.NoError(t, l.SetDelegate(x))
		assert.Equal(t, 1, a.LiveRoots())
		assert.True(t, a.SameValue(x, l.Delegate()))

		require.NoError(t, l.SetDelegate(y))
		assert.Equal(t, 1, a.LiveRoots())
		assert.True(t, a.SameValue(y, l.Delegate()))
		assert.False(t, a.SameValue(x, l.Delegate()))

		require.NoError(t, l.SetDelegate(b.FromInt32(3)))
		assert.False(t, l.HasDelegate())
		assert.Equal(t, 0, a.LiveRoots())
		assert.True(t, a.SameValue(a.Null(), l.Delegate()))

		require.NoError(t, l.SetDelegate(x))
		require.NoError(t, l.Close())
		require.NoError(t, l.Close())
		assert.Equal(t, 0, a.LiveRoots())
	})

	t.Run("ListenerOutlivesCallerValue", func(t *testing.T) {
		a, b := setup(t)
		l := b.NewListener()
		defer l.Close()

		obj, err := b.FromStringMap(map[string]string{"id": "delegate"})
		require.NoError(t, err)
		require.NoError(t, l.SetDelegate(obj))
		a.Free(obj)

		got, err := b.ToStringMap(l.Delegate())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"id": "delegate"}, got)
	})

	t.Run("TypedProperties", func(t *testing.T) {
		a, b := setup(t)
		obj, err := b.NewObject()
		require.NoError(t, err)
		require.NoError(t, b.SetStringProperty(obj, "s", "v"))
		require.NoError(t, b.SetBoolProperty(obj, "t", true))
		require.NoError(t, b.SetIntProperty(obj, "i", 42))

		got, err := b.ToValueMap(obj)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"s": "v", "t": true, "i": 42.0}, got)

		keys, err := a.Keys(obj)
		require.NoError(t, err)
		assert.Equal(t, []string{"s", "t", "i"}, keys)
	})

	t.Run("SizedArray", func(t *testing.T) {
		a, b := setup(t)
		arr, err := b.NewArray(4)
		require.NoError(t, err)
		n, err := a.ArrayLength(arr)
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)
		elem, err := a.GetElement(arr, 2)
		require.NoError(t, err)
		assert.True(t, a.IsUndefined(elem))
	})
}

// newFunction makes a function value through whatever the adapter offers.
func newFunction[V any](t *testing.T, a core.Adapter[V]) (V, bool) {
	if rt, ok := a.(core.Runtime[V]); ok {
		fn, err := rt.Eval("(function() { return 1; })")
		require.NoError(t, err)
		return fn, true
	}
	if f, ok := any(a).(interface{ NewFunction() V }); ok {
		return f.NewFunction(), true
	}
	var zero V
	return zero, false
}
