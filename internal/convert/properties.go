package convert

import (
	"github.com/pkg/errors"
)

// SetStringProperty sets obj[name] to a string.
func (b *Bridge[V]) SetStringProperty(obj V, name, value string) error {
	val, err := b.FromString(value)
	if err != nil {
		return errors.Wrapf(err, "property %q", name)
	}
	return b.setOwned(obj, name, val)
}

// SetBoolProperty sets obj[name] to a boolean.
func (b *Bridge[V]) SetBoolProperty(obj V, name string, value bool) error {
	return b.setOwned(obj, name, b.a.NewBoolean(value))
}

// SetIntProperty sets obj[name] to a 32-bit integer.
func (b *Bridge[V]) SetIntProperty(obj V, name string, value int32) error {
	return b.setOwned(obj, name, b.a.NewInt32(value))
}

// SetNumberProperty sets obj[name] to a double.
func (b *Bridge[V]) SetNumberProperty(obj V, name string, value float64) error {
	return b.setOwned(obj, name, b.a.NewNumber(value))
}

// SetObjectProperty sets obj[name] to value. value stays owned by the
// caller.
func (b *Bridge[V]) SetObjectProperty(obj V, name string, value V) error {
	return errors.Wrapf(b.a.SetProperty(obj, name, value), "setting %q", name)
}

func (b *Bridge[V]) setOwned(obj V, name string, val V) error {
	defer b.a.Free(val)
	if err := b.a.SetProperty(obj, name, val); err != nil {
		return errors.Wrapf(err, "setting %q", name)
	}
	return nil
}
