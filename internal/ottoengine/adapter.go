// Package ottoengine implements the value adapter on github.com/robertkrimen/otto.
package ottoengine

import (
	"math"
	"strconv"

	"github.com/cryguy/valuebridge/internal/core"
	"github.com/pkg/errors"
	"github.com/robertkrimen/otto"
	"go.uber.org/zap"
)

// Adapter is the otto core.Adapter. otto values are ordinary Go values, so
// rooting only counts handles and Free does nothing.
type Adapter struct {
	vm    *otto.Otto
	roots core.RootCounter
	log   *zap.Logger
}

var _ core.Runtime[otto.Value] = (*Adapter)(nil)

// New creates an otto VM configured from cfg. otto has no heap limit, so
// MemoryLimitMB is ignored.
func New(cfg core.Config) *Adapter {
	vm := otto.New()
	if cfg.MaxStackDepth > 0 {
		vm.SetStackDepthLimit(cfg.MaxStackDepth)
	}
	a := &Adapter{vm: vm, log: core.Logger().Named("otto")}
	if cfg.MemoryLimitMB > 0 {
		a.log.Debug("memory limit not enforced", zap.Int("memory_limit_mb", cfg.MemoryLimitMB))
	}
	return a
}

// Name returns "otto".
func (a *Adapter) Name() string { return "otto" }

// Undefined returns the undefined value.
func (a *Adapter) Undefined() otto.Value { return otto.UndefinedValue() }
// Null returns null.
func (a *Adapter) Null() otto.Value { return otto.NullValue() }
// NewBoolean wraps b.
func (a *Adapter) NewBoolean(b bool) otto.Value { return primitive(b) }
// NewInt32 wraps i as a number.
func (a *Adapter) NewInt32(i int32) otto.Value { return primitive(i) }
// NewNumber wraps f.
func (a *Adapter) NewNumber(f float64) otto.Value { return primitive(f) }

// NewString wraps s. otto strings are Go strings, so NULs are kept.
func (a *Adapter) NewString(s string) (otto.Value, error) {
	return otto.ToValue(s)
}

// NewObject evaluates a fresh object literal.
func (a *Adapter) NewObject() (otto.Value, error) {
	obj, err := a.vm.Object("({})")
	if err != nil {
		return otto.Value{}, errors.Wrap(err, "creating object")
	}
	return obj.Value(), nil
}

// NewArray returns an array of length size filled with holes.
func (a *Adapter) NewArray(size uint32) (otto.Value, error) {
	obj, err := a.vm.Object("new Array(" + strconv.FormatUint(uint64(size), 10) + ")")
	if err != nil {
		return otto.Value{}, errors.Wrap(err, "creating array")
	}
	return obj.Value(), nil
}

// IsUndefined reports whether v is undefined.
func (a *Adapter) IsUndefined(v otto.Value) bool { return v.IsUndefined() }
// IsBoolean reports whether v is a boolean primitive.
func (a *Adapter) IsBoolean(v otto.Value) bool { return v.IsBoolean() }
// IsNumber reports whether v is a number primitive.
func (a *Adapter) IsNumber(v otto.Value) bool { return v.IsNumber() }
// IsString reports whether v is a string primitive.
func (a *Adapter) IsString(v otto.Value) bool { return v.IsString() }
// IsObject includes arrays and functions.
func (a *Adapter) IsObject(v otto.Value) bool { return v.IsObject() }
// IsArray checks the [[Class]], which otto tracks per object.
func (a *Adapter) IsArray(v otto.Value) bool { return v.Class() == "Array" }
// IsFunction reports whether v is callable.
func (a *Adapter) IsFunction(v otto.Value) bool { return v.IsFunction() }

// SameValue follows Object.is.
func (a *Adapter) SameValue(x, y otto.Value) bool {
	switch {
	case x.IsUndefined() || x.IsNull():
		return x.IsUndefined() == y.IsUndefined() && x.IsNull() == y.IsNull()
	case x.IsNumber():
		if !y.IsNumber() {
			return false
		}
		fx, fy := a.UnwrapNumber(x), a.UnwrapNumber(y)
		if math.IsNaN(fx) {
			return math.IsNaN(fy)
		}
		return fx == fy && math.Signbit(fx) == math.Signbit(fy)
	case x.IsString():
		return y.IsString() && x.String() == y.String()
	case x.IsBoolean():
		return y.IsBoolean() && a.UnwrapBoolean(x) == a.UnwrapBoolean(y)
	}
	return x == y
}

// UnwrapBoolean reads a boolean, ignoring conversion errors.
func (a *Adapter) UnwrapBoolean(v otto.Value) bool {
	b, _ := v.ToBoolean()
	return b
}

// UnwrapNumber reads a number, ignoring conversion errors.
func (a *Adapter) UnwrapNumber(v otto.Value) float64 {
	f, _ := v.ToFloat()
	return f
}

// ToNativeString applies String() to v.
func (a *Adapter) ToNativeString(v otto.Value) (string, error) {
	return v.ToString()
}

// GetProperty reads obj[name]. A getter that throws returns its error.
func (a *Adapter) GetProperty(obj otto.Value, name string) (otto.Value, error) {
	o := obj.Object()
	if o == nil {
		return otto.Value{}, errors.Wrapf(core.ErrTypeMismatch, "get %q on non-object", name)
	}
	return o.Get(name)
}

// SetProperty assigns obj[name] = val.
func (a *Adapter) SetProperty(obj otto.Value, name string, val otto.Value) error {
	o := obj.Object()
	if o == nil {
		return errors.Wrapf(core.ErrTypeMismatch, "set %q on non-object", name)
	}
	return o.Set(name, val)
}

// Keys lists own enumerable keys.
func (a *Adapter) Keys(obj otto.Value) ([]string, error) {
	o := obj.Object()
	if o == nil {
		return nil, errors.Wrap(core.ErrTypeMismatch, "keys of non-object")
	}
	return o.Keys(), nil
}

// GetElement reads arr[index].
func (a *Adapter) GetElement(arr otto.Value, index uint32) (otto.Value, error) {
	if !a.IsArray(arr) {
		return otto.Value{}, errors.Wrap(core.ErrTypeMismatch, "element of non-array")
	}
	return arr.Object().Get(strconv.FormatUint(uint64(index), 10))
}

// SetElement assigns arr[index] = val, growing the array if needed.
func (a *Adapter) SetElement(arr otto.Value, index uint32, val otto.Value) error {
	if !a.IsArray(arr) {
		return errors.Wrap(core.ErrTypeMismatch, "element of non-array")
	}
	return arr.Object().Set(strconv.FormatUint(uint64(index), 10), val)
}

// ArrayLength reads arr.length.
func (a *Adapter) ArrayLength(arr otto.Value) (uint32, error) {
	if !a.IsArray(arr) {
		return 0, errors.Wrap(core.ErrTypeMismatch, "length of non-array")
	}
	n, err := arr.Object().Get("length")
	if err != nil {
		return 0, err
	}
	i, err := n.ToInteger()
	return uint32(i), err
}

// Root hands v back unchanged. otto values are Go values and stay alive
// while referenced, so only the handle count is kept.
func (a *Adapter) Root(v otto.Value) (otto.Value, core.RootHandle, error) {
	return v, a.roots.Track(nil), nil
}

// LiveRoots returns the number of unreleased Root handles.
func (a *Adapter) LiveRoots() int { return a.roots.Live() }

// Free is a no-op; the Go collector owns otto values.
func (a *Adapter) Free(otto.Value) {}

// Eval runs js in the VM's global scope.
func (a *Adapter) Eval(js string) (otto.Value, error) {
	return a.vm.Run(js)
}

// Global returns the global object.
func (a *Adapter) Global() otto.Value {
	obj, err := a.vm.Object("this")
	if err != nil {
		a.log.Error("reading global object", zap.Error(err))
		return otto.UndefinedValue()
	}
	return obj.Value()
}

// Close does nothing. The VM is reclaimed by the Go collector.
func (a *Adapter) Close() error { return nil }

func primitive(v any) otto.Value {
	val, err := otto.ToValue(v)
	if err != nil {
		return otto.UndefinedValue()
	}
	return val
}
