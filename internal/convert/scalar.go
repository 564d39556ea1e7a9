package convert

import (
	"bytes"
	"math"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/cryguy/valuebridge/internal/core"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ToBool reads a tagged boolean. ok is false, and the result false, for
// any other value.
func (b *Bridge[V]) ToBool(v V) (result bool, ok bool) {
	if !b.a.IsBoolean(v) {
		return false, false
	}
	return b.a.UnwrapBoolean(v), true
}

// ToNumber reads a tagged number. For any other value it returns 0, false.
func (b *Bridge[V]) ToNumber(v V) (float64, bool) {
	if !b.a.IsNumber(v) {
		return 0, false
	}
	return b.a.UnwrapNumber(v), true
}

// ToInt32 reads a tagged number and truncates it the way JS ToInt32 does.
func (b *Bridge[V]) ToInt32(v V) (int32, bool) {
	f, ok := b.ToNumber(v)
	if !ok {
		return 0, false
	}
	return jsToInt32(f), true
}

// ToString reads a tagged string.
func (b *Bridge[V]) ToString(v V) (string, bool) {
	if !b.a.IsString(v) {
		return "", false
	}
	s, err := b.a.ToNativeString(v)
	if err != nil {
		return "", false
	}
	return s, true
}

// FromBool, FromInt32 and FromNumber cannot fail.
func (b *Bridge[V]) FromBool(v bool) V { return b.a.NewBoolean(v) }

func (b *Bridge[V]) FromInt32(v int32) V { return b.a.NewInt32(v) }

func (b *Bridge[V]) FromNumber(v float64) V { return b.a.NewNumber(v) }

// FromString converts a Go string to an engine string.
func (b *Bridge[V]) FromString(s string) (V, error) {
	return b.fromUTF8([]byte(s))
}

// FromCString converts n bytes of p to an engine string. A negative n
// means p is NUL-terminated (or ends at len(p)). A nil p is a precondition
// violation; a zero length yields the empty string.
//
// With legacy decoding enabled, bytes that are not valid UTF-8 produce
// Undefined() and a nil error, leaving the caller's value unset.
func (b *Bridge[V]) FromCString(p []byte, n int) (V, error) {
	var zero V
	if p == nil {
		return zero, errors.Wrap(core.ErrPrecondition, "nil string input")
	}
	if n < 0 {
		n = len(p)
		if i := bytes.IndexByte(p, 0); i >= 0 {
			n = i
		}
	}
	if n > len(p) {
		return zero, errors.Wrapf(core.ErrPrecondition, "length %d exceeds input of %d bytes", n, len(p))
	}
	return b.fromUTF8(p[:n])
}

func (b *Bridge[V]) fromUTF8(p []byte) (V, error) {
	if len(p) == 0 {
		return b.a.NewString("")
	}
	if units := decodeUTF16(p); len(units) == 0 {
		if b.legacyDecode {
			b.log.Warn("dropping undecodable string", zap.Int("bytes", len(p)))
			return b.a.Undefined(), nil
		}
		var zero V
		return zero, errors.Wrapf(core.ErrDecode, "%d bytes of invalid UTF-8", len(p))
	}
	return b.a.NewString(string(p))
}

// decodeUTF16 returns the UTF-16 code units of p, or nil if p is not
// valid UTF-8.
func decodeUTF16(p []byte) []uint16 {
	if !utf8.Valid(p) {
		return nil
	}
	return utf16.Encode(bytes.Runes(p))
}

// jsToInt32 implements ECMAScript ToInt32 for an already-numeric value.
func jsToInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	m := math.Mod(f, 1<<32)
	if m < 0 {
		m += 1 << 32
	}
	return int32(uint32(m))
}
