//go:build v8

// Package v8engine implements the value adapter on github.com/tommie/v8go.
package v8engine

import (
	"strconv"

	"github.com/cryguy/valuebridge/internal/core"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Adapter is the V8 core.Adapter. It owns one isolate and one context.
// Values stay valid until the context is closed, so Free does nothing and
// Root only counts handles.
type Adapter struct {
	iso   *v8.Isolate
	ctx   *v8.Context
	roots core.RootCounter
	log   *zap.Logger
}

var _ core.Runtime[*v8.Value] = (*Adapter)(nil)

// New creates an isolate and context. A positive MemoryLimitMB caps the
// V8 heap.
func New(cfg core.Config) (*Adapter, error) {
	var iso *v8.Isolate
	if cfg.MemoryLimitMB > 0 {
		heapSize := uint64(cfg.MemoryLimitMB) * 1024 * 1024
		iso = v8.NewIsolate(v8.WithResourceConstraints(heapSize/2, heapSize))
	} else {
		iso = v8.NewIsolate()
	}
	a := &Adapter{iso: iso, ctx: v8.NewContext(iso), log: core.Logger().Named("v8")}
	if cfg.MaxStackDepth > 0 {
		a.log.Debug("stack depth limit not enforced", zap.Int("max_stack_depth", cfg.MaxStackDepth))
	}
	return a, nil
}

// Name returns "v8".
func (a *Adapter) Name() string { return "v8" }

// Undefined returns the isolate's undefined.
func (a *Adapter) Undefined() *v8.Value { return v8.Undefined(a.iso) }
// Null returns the isolate's null.
func (a *Adapter) Null() *v8.Value { return v8.Null(a.iso) }
// NewBoolean wraps b.
func (a *Adapter) NewBoolean(b bool) *v8.Value { return a.primitive(b) }
// NewInt32 wraps i.
func (a *Adapter) NewInt32(i int32) *v8.Value { return a.primitive(i) }
// NewNumber wraps f.
func (a *Adapter) NewNumber(f float64) *v8.Value { return a.primitive(f) }

// NewString copies s into the isolate.
func (a *Adapter) NewString(s string) (*v8.Value, error) {
	v, err := v8.NewValue(a.iso, s)
	return v, errors.Wrap(err, "creating string")
}

// NewObject returns an empty plain object.
func (a *Adapter) NewObject() (*v8.Value, error) {
	obj, err := v8.NewObjectTemplate(a.iso).NewInstance(a.ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating object")
	}
	return obj.Value, nil
}

// NewArray returns an array whose length is size.
func (a *Adapter) NewArray(size uint32) (*v8.Value, error) {
	v, err := a.ctx.RunScript("new Array("+strconv.FormatUint(uint64(size), 10)+")", "array.js")
	return v, errors.Wrap(err, "creating array")
}

// IsUndefined treats nil as undefined.
func (a *Adapter) IsUndefined(v *v8.Value) bool { return v == nil || v.IsUndefined() }
// IsBoolean reports whether v is a boolean primitive.
func (a *Adapter) IsBoolean(v *v8.Value) bool { return v != nil && v.IsBoolean() }
// IsNumber reports whether v is a number primitive.
func (a *Adapter) IsNumber(v *v8.Value) bool { return v != nil && v.IsNumber() }
// IsString reports whether v is a string primitive.
func (a *Adapter) IsString(v *v8.Value) bool { return v != nil && v.IsString() }
// IsObject includes arrays and functions.
func (a *Adapter) IsObject(v *v8.Value) bool { return v != nil && v.IsObject() }
// IsArray reports whether v is an Array.
func (a *Adapter) IsArray(v *v8.Value) bool { return v != nil && v.IsArray() }
// IsFunction reports whether v is callable.
func (a *Adapter) IsFunction(v *v8.Value) bool { return v != nil && v.IsFunction() }

// SameValue follows Object.is.
func (a *Adapter) SameValue(x, y *v8.Value) bool {
	if x == nil || y == nil {
		return a.IsUndefined(x) && a.IsUndefined(y)
	}
	return x.SameValue(y)
}

// UnwrapBoolean applies ToBoolean.
func (a *Adapter) UnwrapBoolean(v *v8.Value) bool { return v.Boolean() }
// UnwrapNumber applies ToNumber.
func (a *Adapter) UnwrapNumber(v *v8.Value) float64 { return v.Number() }

// ToNativeString applies String().
func (a *Adapter) ToNativeString(v *v8.Value) (string, error) {
	if v == nil {
		return "undefined", nil
	}
	return v.String(), nil
}

// GetProperty reads obj[name].
func (a *Adapter) GetProperty(obj *v8.Value, name string) (*v8.Value, error) {
	o, err := a.object(obj)
	if err != nil {
		return nil, errors.Wrapf(err, "get %q", name)
	}
	v, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return a.Undefined(), nil
	}
	return v, nil
}

// SetProperty assigns obj[name] = val.
func (a *Adapter) SetProperty(obj *v8.Value, name string, val *v8.Value) error {
	o, err := a.object(obj)
	if err != nil {
		return errors.Wrapf(err, "set %q", name)
	}
	return o.Set(name, val)
}

// Keys lists own enumerable string keys.
func (a *Adapter) Keys(obj *v8.Value) ([]string, error) {
	if !a.IsObject(obj) {
		return nil, errors.Wrap(core.ErrTypeMismatch, "keys of non-object")
	}
	object, err := a.ctx.Global().Get("Object")
	if err != nil {
		return nil, err
	}
	ctor, err := object.AsObject()
	if err != nil {
		return nil, err
	}
	keys, err := ctor.MethodCall("keys", obj)
	if err != nil {
		return nil, errors.Wrap(err, "listing keys")
	}
	data, err := v8.JSONStringify(a.ctx, keys)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.UnmarshalFromString(data, &out); err != nil {
		return nil, errors.Wrap(err, "decoding keys")
	}
	return out, nil
}

// GetElement reads arr[index].
func (a *Adapter) GetElement(arr *v8.Value, index uint32) (*v8.Value, error) {
	if !a.IsArray(arr) {
		return nil, errors.Wrap(core.ErrTypeMismatch, "element of non-array")
	}
	o, err := arr.AsObject()
	if err != nil {
		return nil, err
	}
	v, err := o.GetIdx(index)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return a.Undefined(), nil
	}
	return v, nil
}

// SetElement assigns arr[index] = val.
func (a *Adapter) SetElement(arr *v8.Value, index uint32, val *v8.Value) error {
	if !a.IsArray(arr) {
		return errors.Wrap(core.ErrTypeMismatch, "element of non-array")
	}
	o, err := arr.AsObject()
	if err != nil {
		return err
	}
	return o.SetIdx(index, val)
}

// ArrayLength reads arr.length.
func (a *Adapter) ArrayLength(arr *v8.Value) (uint32, error) {
	n, err := a.GetProperty(arr, "length")
	if err != nil {
		return 0, err
	}
	return n.Uint32(), nil
}

// Root returns v unchanged. Values stay valid until the context closes.
func (a *Adapter) Root(v *v8.Value) (*v8.Value, core.RootHandle, error) {
	return v, a.roots.Track(nil), nil
}

// LiveRoots returns the number of unreleased Root handles.
func (a *Adapter) LiveRoots() int { return a.roots.Live() }

// Free is a no-op; v8go releases values with the context.
func (a *Adapter) Free(*v8.Value) {}

// Eval runs js as a classic script in the adapter's context.
func (a *Adapter) Eval(js string) (*v8.Value, error) {
	return a.ctx.RunScript(js, "eval.js")
}

// Global returns the context's global object.
func (a *Adapter) Global() *v8.Value { return a.ctx.Global().Value }

// Close disposes of the context and the isolate. It is safe to call twice.
func (a *Adapter) Close() error {
	if a.ctx == nil {
		return nil
	}
	a.ctx.Close()
	a.iso.Dispose()
	a.ctx, a.iso = nil, nil
	return nil
}

func (a *Adapter) object(v *v8.Value) (*v8.Object, error) {
	if !a.IsObject(v) {
		return nil, core.ErrTypeMismatch
	}
	return v.AsObject()
}

func (a *Adapter) primitive(x any) *v8.Value {
	v, err := v8.NewValue(a.iso, x)
	if err != nil {
		a.log.Error("creating primitive", zap.Error(err))
		return a.Undefined()
	}
	return v
}
