package convert_test

import (
	"errors"
	"math"
	"testing"

	"github.com/cryguy/valuebridge/internal/convert"
	"github.com/cryguy/valuebridge/internal/core"
	"github.com/cryguy/valuebridge/internal/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStringSliceStopsAtFailure(t *testing.T) {
	f := enginetest.NewFake()
	f.FailSetElement = func(i uint32) bool { return i == 2 }
	b := convert.New[*enginetest.Cell](f)

	arr, err := b.FromStringSlice([]string{"a", "b", "c", "d"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPartialConversion)

	var partial *core.PartialError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, []string{"2"}, partial.Skipped)

	// The array holds everything stored before the failure.
	list, err := b.ToStringSlice(arr)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)
}

func TestFromStringSliceInvalidElement(t *testing.T) {
	b := convert.New[*enginetest.Cell](enginetest.NewFake())
	arr, err := b.FromStringSlice([]string{"ok", "bad\xff", "never"})
	assert.ErrorIs(t, err, core.ErrPartialConversion)
	assert.ErrorIs(t, err, core.ErrDecode)

	list, err := b.ToStringSlice(arr)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, list)
}

func TestFromStringMapSkipsFailedEntries(t *testing.T) {
	f := enginetest.NewFake()
	f.FailSetProperty = func(name string) bool { return name == "b" || name == "d" }
	b := convert.New[*enginetest.Cell](f)

	obj, err := b.FromStringMap(map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"})
	var partial *core.PartialError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, "string map to object", partial.Op)
	assert.Equal(t, []string{"b", "d"}, partial.Skipped)

	got, err := b.ToStringMap(obj)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "c": "3"}, got)
}

func TestFromStringMapInvalidValue(t *testing.T) {
	b := convert.New[*enginetest.Cell](enginetest.NewFake())
	obj, err := b.FromStringMap(map[string]string{"good": "v", "bad": "\xc3\x28"})
	assert.ErrorIs(t, err, core.ErrDecode)

	got, err := b.ToStringMap(obj)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"good": "v"}, got)
}

func TestFromStringMapLegacyDecodeLeavesUndefined(t *testing.T) {
	b := convert.New[*enginetest.Cell](enginetest.NewFake(), convert.WithLegacyStringDecode(true))
	obj, err := b.FromStringMap(map[string]string{"good": "v", "bad": "\xc3\x28"})
	require.NoError(t, err)

	// Undefined properties are omitted on the way back.
	got, err := b.ToStringMap(obj)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"good": "v"}, got)
}

func TestFromIntMapStoresNumbers(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)
	obj, err := b.FromIntMap(map[string]int{"small": 3, "large": 1 << 35})
	require.NoError(t, err)

	got, err := b.ToStringMap(obj)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"small": "3", "large": "34359738368"}, got)
}

func TestToStringMapNested(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)

	inner, err := b.FromStringMap(map[string]string{"x": "y"})
	require.NoError(t, err)
	require.NoError(t, f.SetProperty(inner, "n", f.NewNumber(1.5)))
	outer, err := b.NewObject()
	require.NoError(t, err)
	require.NoError(t, b.SetObjectProperty(outer, "inner", inner))
	require.NoError(t, f.SetProperty(outer, "skip", f.Undefined()))

	got, err := b.ToStringMap(outer)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"inner": `{"n":1.5,"x":"y"}`}, got)
}

func TestToStringMapNonFiniteNested(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)

	list, err := b.NewArray(3)
	require.NoError(t, err)
	require.NoError(t, f.SetElement(list, 0, f.NewNumber(math.NaN())))
	require.NoError(t, f.SetElement(list, 1, f.NewNumber(1)))
	require.NoError(t, f.SetElement(list, 2, f.NewNumber(math.Inf(-1))))
	inner, err := b.NewObject()
	require.NoError(t, err)
	require.NoError(t, f.SetProperty(inner, "x", f.NewNumber(math.Inf(1))))
	obj, err := b.NewObject()
	require.NoError(t, err)
	require.NoError(t, b.SetObjectProperty(obj, "list", list))
	require.NoError(t, b.SetObjectProperty(obj, "inner", inner))
	require.NoError(t, f.SetProperty(obj, "top", f.NewNumber(math.NaN())))

	got, err := b.ToStringMap(obj)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"list":  "[null,1,null]",
		"inner": `{"x":null}`,
		"top":   "NaN",
	}, got)
}

func TestToValueMapRejectsCycles(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)
	obj, err := b.NewObject()
	require.NoError(t, err)
	require.NoError(t, f.SetProperty(obj, "self", obj))

	_, err = b.ToValueMap(obj)
	assert.ErrorIs(t, err, core.ErrTypeMismatch)
}

func TestToValueMapArrays(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)
	arr, err := b.NewArray(3)
	require.NoError(t, err)
	require.NoError(t, f.SetElement(arr, 0, f.NewBoolean(true)))
	require.NoError(t, f.SetElement(arr, 2, f.Null()))
	obj, err := b.NewObject()
	require.NoError(t, err)
	require.NoError(t, b.SetObjectProperty(obj, "list", arr))

	got, err := b.ToValueMap(obj)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"list": []any{true, nil, nil}}, got)
}
