package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSToInt32(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{0, 0},
		{-0.5, 0},
		{1.9, 1},
		{-1.9, -1},
		{2147483647, 2147483647},
		{2147483648, -2147483648},
		{4294967296, 0},
		{4294967297, 1},
		{-2147483649, 2147483647},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, jsToInt32(tt.in), "ToInt32(%v)", tt.in)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-42, "-42"},
		{0.1, "0.1"},
		{1.5e-7, "1.5e-7"},
		{1e21, "1e+21"},
		{123456789012, "123456789012"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in), "formatNumber(%v)", tt.in)
	}
}

func TestDecodeUTF16(t *testing.T) {
	assert.Len(t, decodeUTF16([]byte("abc")), 3)
	// Astral code points take a surrogate pair.
	assert.Len(t, decodeUTF16([]byte("😀")), 2)
	assert.Nil(t, decodeUTF16([]byte{0xed, 0xa0, 0x80}))
}

func TestStringifyNull(t *testing.T) {
	s, err := stringify(nil)
	assert.NoError(t, err)
	assert.Equal(t, "", s)

	s, err = stringify(map[string]any{"b": nil, "a": []any{"x", 1.0}})
	assert.NoError(t, err)
	assert.Equal(t, `{"a":["x",1],"b":null}`, s)

	s, err = stringify([]any{math.NaN(), map[string]any{"i": math.Inf(1)}})
	assert.NoError(t, err)
	assert.Equal(t, `[null,{"i":null}]`, s)
}
