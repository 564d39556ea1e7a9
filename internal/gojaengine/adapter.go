// Package gojaengine implements the value adapter on github.com/dop251/goja.
package gojaengine

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/cryguy/valuebridge/internal/core"
	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	typeBool   = reflect.TypeOf(false)
	typeInt    = reflect.TypeOf(int64(0))
	typeFloat  = reflect.TypeOf(float64(0))
	typeString = reflect.TypeOf("")
)

// Adapter is the goja core.Adapter. goja values are collected by the Go
// runtime, so rooting only counts handles and Free does nothing.
type Adapter struct {
	rt    *goja.Runtime
	roots core.RootCounter
	log   *zap.Logger
}

var _ core.Runtime[goja.Value] = (*Adapter)(nil)

// New creates a goja runtime configured from cfg. goja has no heap limit, so
// MemoryLimitMB is ignored.
func New(cfg core.Config) *Adapter {
	rt := goja.New()
	if cfg.MaxStackDepth > 0 {
		rt.SetMaxCallStackSize(cfg.MaxStackDepth)
	}
	a := &Adapter{rt: rt, log: core.Logger().Named("goja")}
	if cfg.MemoryLimitMB > 0 {
		a.log.Debug("memory limit not enforced", zap.Int("memory_limit_mb", cfg.MemoryLimitMB))
	}
	return a
}

// Name returns "goja".
func (a *Adapter) Name() string { return "goja" }

// Undefined returns the undefined value.
func (a *Adapter) Undefined() goja.Value { return goja.Undefined() }
// Null returns null.
func (a *Adapter) Null() goja.Value { return goja.Null() }
// NewBoolean wraps b.
func (a *Adapter) NewBoolean(b bool) goja.Value { return a.rt.ToValue(b) }
// NewInt32 wraps i.
func (a *Adapter) NewInt32(i int32) goja.Value { return a.rt.ToValue(i) }
// NewNumber wraps f.
func (a *Adapter) NewNumber(f float64) goja.Value { return a.rt.ToValue(f) }

// NewString wraps s. It never fails.
func (a *Adapter) NewString(s string) (goja.Value, error) {
	return a.rt.ToValue(s), nil
}

// NewObject returns an empty plain object.
func (a *Adapter) NewObject() (goja.Value, error) {
	return a.rt.NewObject(), nil
}

// NewArray returns an array whose length is size.
func (a *Adapter) NewArray(size uint32) (goja.Value, error) {
	arr := a.rt.NewArray()
	if size > 0 {
		if err := arr.Set("length", size); err != nil {
			return nil, errors.Wrap(err, "sizing array")
		}
	}
	return arr, nil
}

// IsUndefined treats a nil Value as undefined.
func (a *Adapter) IsUndefined(v goja.Value) bool { return v == nil || goja.IsUndefined(v) }
// IsBoolean reports whether v is a boolean primitive.
func (a *Adapter) IsBoolean(v goja.Value) bool { return exportType(v) == typeBool }
// IsString reports whether v is a string primitive.
func (a *Adapter) IsString(v goja.Value) bool { return exportType(v) == typeString }

// IsNumber is true for both integer and float backed numbers.
func (a *Adapter) IsNumber(v goja.Value) bool {
	t := exportType(v)
	return t == typeInt || t == typeFloat
}

// IsObject reports whether v is an object of any class.
func (a *Adapter) IsObject(v goja.Value) bool {
	_, ok := v.(*goja.Object)
	return ok
}

// IsArray reports whether v is an Array instance.
func (a *Adapter) IsArray(v goja.Value) bool {
	o, ok := v.(*goja.Object)
	return ok && o.ClassName() == "Array"
}

// IsFunction reports whether v is callable.
func (a *Adapter) IsFunction(v goja.Value) bool {
	if _, ok := v.(*goja.Object); !ok {
		return false
	}
	_, ok := goja.AssertFunction(v)
	return ok
}

// SameValue follows Object.is.
func (a *Adapter) SameValue(x, y goja.Value) bool {
	if x == nil || y == nil {
		return a.IsUndefined(x) && a.IsUndefined(y)
	}
	return x.SameAs(y)
}

// UnwrapBoolean applies ToBoolean.
func (a *Adapter) UnwrapBoolean(v goja.Value) bool { return v.ToBoolean() }
// UnwrapNumber applies ToNumber.
func (a *Adapter) UnwrapNumber(v goja.Value) float64 { return v.ToFloat() }

// ToNativeString applies String(). A throwing toString returns its error.
func (a *Adapter) ToNativeString(v goja.Value) (s string, err error) {
	if v == nil {
		return "undefined", nil
	}
	err = try(func() { s = v.String() })
	return s, err
}

// GetProperty reads obj[name]. A missing property reads as undefined.
func (a *Adapter) GetProperty(obj goja.Value, name string) (v goja.Value, err error) {
	o, ok := obj.(*goja.Object)
	if !ok {
		return nil, errors.Wrapf(core.ErrTypeMismatch, "get %q on non-object", name)
	}
	if err = try(func() { v = o.Get(name) }); err != nil {
		return nil, err
	}
	if v == nil {
		v = goja.Undefined()
	}
	return v, nil
}

// SetProperty assigns obj[name] = val.
func (a *Adapter) SetProperty(obj goja.Value, name string, val goja.Value) error {
	o, ok := obj.(*goja.Object)
	if !ok {
		return errors.Wrapf(core.ErrTypeMismatch, "set %q on non-object", name)
	}
	return o.Set(name, val)
}

// Keys lists own enumerable string keys in insertion order.
func (a *Adapter) Keys(obj goja.Value) (keys []string, err error) {
	o, ok := obj.(*goja.Object)
	if !ok {
		return nil, errors.Wrap(core.ErrTypeMismatch, "keys of non-object")
	}
	err = try(func() { keys = o.Keys() })
	if keys == nil && err == nil {
		keys = []string{}
	}
	return keys, err
}

// GetElement reads arr[index].
func (a *Adapter) GetElement(arr goja.Value, index uint32) (goja.Value, error) {
	if !a.IsArray(arr) {
		return nil, errors.Wrap(core.ErrTypeMismatch, "element of non-array")
	}
	return a.GetProperty(arr, strconv.FormatUint(uint64(index), 10))
}

// SetElement assigns arr[index] = val.
func (a *Adapter) SetElement(arr goja.Value, index uint32, val goja.Value) error {
	if !a.IsArray(arr) {
		return errors.Wrap(core.ErrTypeMismatch, "element of non-array")
	}
	return a.SetProperty(arr, strconv.FormatUint(uint64(index), 10), val)
}

// ArrayLength reads arr.length.
func (a *Adapter) ArrayLength(arr goja.Value) (uint32, error) {
	if !a.IsArray(arr) {
		return 0, errors.Wrap(core.ErrTypeMismatch, "length of non-array")
	}
	n, err := a.GetProperty(arr, "length")
	if err != nil {
		return 0, err
	}
	return uint32(n.ToInteger()), nil
}

// Root returns v itself. goja values are ordinary Go values, so holding
// v keeps it alive.
func (a *Adapter) Root(v goja.Value) (goja.Value, core.RootHandle, error) {
	return v, a.roots.Track(nil), nil
}

// LiveRoots returns the number of unreleased Root handles.
func (a *Adapter) LiveRoots() int { return a.roots.Live() }

// Free does nothing for goja.
func (a *Adapter) Free(goja.Value) {}

// Eval runs js as a global script.
func (a *Adapter) Eval(js string) (goja.Value, error) {
	return a.rt.RunString(js)
}

// Global returns the runtime's global object.
func (a *Adapter) Global() goja.Value { return a.rt.GlobalObject() }

// Close does nothing; the runtime is collected with the adapter.
func (a *Adapter) Close() error { return nil }

func exportType(v goja.Value) reflect.Type {
	if v == nil {
		return nil
	}
	if _, ok := v.(*goja.Object); ok {
		return nil
	}
	return v.ExportType()
}

// try turns a goja panic, usually a *goja.Exception thrown by a getter,
// into an error.
func try(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("goja: %v", r)
		}
	}()
	fn()
	return nil
}
