package convert

import (
	"sort"
	"strconv"

	"github.com/cryguy/valuebridge/internal/core"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FromStringSlice builds an engine array with list[i] at index i. It stops
// at the first element that cannot be converted or stored and returns the
// partially built array with a *core.PartialError.
func (b *Bridge[V]) FromStringSlice(list []string) (V, error) {
	arr, err := b.a.NewArray(0)
	if err != nil {
		return arr, errors.Wrap(err, "creating array")
	}
	for i, s := range list {
		idx := uint32(i)
		elem, err := b.FromString(s)
		if err == nil {
			err = b.a.SetElement(arr, idx, elem)
			b.a.Free(elem)
		}
		if err != nil {
			b.log.Warn("array conversion stopped", zap.Int("index", i), zap.Error(err))
			return arr, &core.PartialError{
				Op:      "string slice to array",
				Skipped: []string{strconv.Itoa(i)},
				Cause:   err,
			}
		}
	}
	return arr, nil
}

// ToStringSlice reads an engine array of strings. Elements that are not
// strings are skipped.
func (b *Bridge[V]) ToStringSlice(v V) ([]string, error) {
	if !b.a.IsArray(v) {
		return nil, errors.Wrap(core.ErrTypeMismatch, "value is not an array")
	}
	n, err := b.a.ArrayLength(v)
	if err != nil {
		return nil, errors.Wrap(err, "reading array length")
	}
	result := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		elem, err := b.a.GetElement(v, i)
		if err != nil {
			continue
		}
		if s, ok := b.ToString(elem); ok {
			result = append(result, s)
		} else {
			b.log.Debug("skipping non-string array element", zap.Uint32("index", i))
		}
		b.a.Free(elem)
	}
	return result, nil
}

// FromStringMap builds a plain engine object with one string property per
// entry. Entries with an empty key are dropped. Entries that fail to
// convert are skipped and reported in a *core.PartialError; the object is
// returned either way.
func (b *Bridge[V]) FromStringMap(m map[string]string) (V, error) {
	return fromMap(b, "string map to object", m, b.FromString)
}

// FromIntMap is FromStringMap with numeric values. Values outside the
// int32 range become doubles.
func (b *Bridge[V]) FromIntMap(m map[string]int) (V, error) {
	return fromMap(b, "int map to object", m, func(i int) (V, error) {
		if int(int32(i)) == i {
			return b.a.NewInt32(int32(i)), nil
		}
		return b.a.NewNumber(float64(i)), nil
	})
}

func fromMap[V any, T any](b *Bridge[V], op string, m map[string]T, conv func(T) (V, error)) (V, error) {
	obj, err := b.a.NewObject()
	if err != nil {
		return obj, errors.Wrap(err, "creating object")
	}
	var partial *core.PartialError
	for _, key := range sortedKeys(m) {
		if key == "" {
			b.log.Debug("dropping empty map key", zap.String("op", op))
			continue
		}
		val, err := conv(m[key])
		if err == nil {
			err = b.a.SetProperty(obj, key, val)
			b.a.Free(val)
		}
		if err != nil {
			if partial == nil {
				partial = &core.PartialError{Op: op, Cause: err}
			}
			partial.Skipped = append(partial.Skipped, key)
		}
	}
	if partial != nil {
		b.log.Warn("map conversion skipped entries", zap.String("op", op), zap.Strings("keys", partial.Skipped))
		return obj, partial
	}
	return obj, nil
}

// ToStringMap converts a plain engine object to a map of strings. Each
// property goes through generic extraction (see ToValueMap) and is then
// stringified; if any property fails extraction the whole conversion
// fails.
func (b *Bridge[V]) ToStringMap(v V) (map[string]string, error) {
	values, err := b.ToValueMap(v)
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(values))
	for k, val := range values {
		s, err := stringify(val)
		if err != nil {
			return nil, errors.Wrapf(err, "stringifying property %q", k)
		}
		result[k] = s
	}
	return result, nil
}

// sortedKeys gives map conversions a stable property order.
func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
