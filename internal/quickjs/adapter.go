//go:build !v8

// Package quickjs implements the value adapter on modernc.org/quickjs.
//
// A Value is the binding's own reference-counted quickjs.Value. Objects
// are created and walked through the binding (NewObjectValue, atoms,
// GetPropertyValue, SetPropertyValue, Dup, Free); everything the binding
// does not expose, strings with an explicit byte length in particular,
// goes straight to the libquickjs C API on the VM's own context.
package quickjs

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/cryguy/valuebridge/internal/core"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"
)

// Value is a QuickJS value handle. Handles with a reference count must be
// released with Adapter.Free.
type Value = quickjs.Value

var errClosed = errors.New("quickjs: vm is closed")

// valueLayout mirrors quickjs.Value. checkValueLayout verifies the match
// before any handle is reinterpreted.
type valueLayout struct {
	vm *quickjs.VM
	v  lib.TJSValue
}

// Adapter is the QuickJS core.Adapter. It owns its VM.
type Adapter struct {
	vm     *quickjs.VM
	tls    *libc.TLS // cached from VM internals for direct C API access
	ctx    uintptr   // cached JSContext pointer
	roots  core.RootCounter
	log    *zap.Logger
	closed bool
}

var _ core.Runtime[Value] = (*Adapter)(nil)

// New creates a VM and applies the memory limit from cfg.
func New(cfg core.Config) (*Adapter, error) {
	if err := checkValueLayout(); err != nil {
		return nil, err
	}
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, errors.Wrap(err, "creating QuickJS VM")
	}
	if cfg.MemoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(cfg.MemoryLimitMB) * 1024 * 1024)
	}
	a := &Adapter{vm: vm, log: core.Logger().Named("quickjs")}
	if err := a.extractVMInternals(); err != nil {
		vm.Close()
		return nil, errors.Wrap(err, "reaching QuickJS context")
	}
	a.log.Debug("vm ready", zap.Int("memory_limit_mb", cfg.MemoryLimitMB))
	return a, nil
}

// extractVMInternals uses reflect+unsafe to cache the VM's tls and ctx.
func (a *Adapter) extractVMInternals() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic extracting VM internals: %v", p)
		}
	}()

	vmType := reflect.TypeOf(a.vm).Elem()
	vmPtr := uintptr(unsafe.Pointer(a.vm))

	// cContext is the first field of VM (offset 0).
	a.ctx = *(*uintptr)(unsafe.Pointer(vmPtr))
	if a.ctx == 0 {
		return errors.New("JSContext is nil")
	}

	rtField, ok := vmType.FieldByName("runtime")
	if !ok {
		return errors.New("quickjs.VM missing 'runtime' field")
	}
	rtPtr := *(*uintptr)(unsafe.Pointer(vmPtr + rtField.Offset))
	if rtPtr == 0 {
		return errors.New("runtime pointer is nil")
	}

	// tls is the second field in runtime (after cRuntime uintptr).
	a.tls = *(**libc.TLS)(unsafe.Pointer(rtPtr + unsafe.Sizeof(uintptr(0))))
	if a.tls == nil {
		return errors.New("TLS is nil")
	}
	return nil
}

func checkValueLayout() error {
	t := reflect.TypeFor[quickjs.Value]()
	f, ok := t.FieldByName("v")
	if !ok || t.Size() != unsafe.Sizeof(valueLayout{}) ||
		f.Offset != unsafe.Offsetof(valueLayout{}.v) ||
		f.Type != reflect.TypeFor[lib.TJSValue]() {
		return errors.New("quickjs: unsupported quickjs.Value layout")
	}
	return nil
}

// raw returns the JSValue inside v without touching its reference count.
func raw(v Value) lib.TJSValue {
	return (*valueLayout)(unsafe.Pointer(&v)).v
}

// handle wraps a JSValue the caller owns into a Value bound to a's VM.
func (a *Adapter) handle(v lib.TJSValue) Value {
	var out Value
	*(*valueLayout)(unsafe.Pointer(&out)) = valueLayout{vm: a.vm, v: v}
	return out
}

// bind rebinds v to a's VM. quickjs.UndefinedValue has none.
func (a *Adapter) bind(v Value) Value {
	return a.handle(raw(v))
}

func (a *Adapter) live() error {
	if a.closed {
		return errClosed
	}
	return nil
}

// Name returns "quickjs".
func (a *Adapter) Name() string { return "quickjs" }

// Undefined returns the undefined immediate.
func (a *Adapter) Undefined() Value { return a.handle(mkval(lib.EJS_TAG_UNDEFINED, 0)) }
// Null returns the null immediate.
func (a *Adapter) Null() Value { return a.handle(mkval(lib.EJS_TAG_NULL, 0)) }

// NewBoolean, NewInt32 and NewNumber build immediates and never touch the
// context.
func (a *Adapter) NewBoolean(b bool) Value {
	if b {
		return a.handle(mkval(lib.EJS_TAG_BOOL, 1))
	}
	return a.handle(mkval(lib.EJS_TAG_BOOL, 0))
}

// NewInt32 returns an int-tagged number.
func (a *Adapter) NewInt32(i int32) Value { return a.vm.NewInt(int(i)) }
// NewNumber returns a float64-tagged number.
func (a *Adapter) NewNumber(f float64) Value { return a.vm.NewFloat64(f) }

// NewString copies all of s, interior NULs included, into a new string.
func (a *Adapter) NewString(s string) (Value, error) {
	if err := a.live(); err != nil {
		return a.Undefined(), err
	}
	p, err := libc.CString(s)
	if err != nil {
		return a.Undefined(), errors.Wrap(err, "allocating string")
	}
	defer libc.Xfree(a.tls, p)

	v := lib.XJS_NewStringLen(a.tls, a.ctx, p, lib.Tsize_t(len(s)))
	if tagOf(v) == lib.EJS_TAG_EXCEPTION {
		return a.Undefined(), a.exception()
	}
	return a.handle(v), nil
}

// NewObject returns a new {}.
func (a *Adapter) NewObject() (Value, error) {
	if err := a.live(); err != nil {
		return a.Undefined(), err
	}
	v, err := a.vm.NewObjectValue()
	if err != nil {
		return a.Undefined(), errors.Wrap(err, "creating object")
	}
	if tagOf(raw(v)) == lib.EJS_TAG_EXCEPTION {
		return a.Undefined(), a.exception()
	}
	return v, nil
}

// NewArray returns an array whose length is size.
func (a *Adapter) NewArray(size uint32) (Value, error) {
	if err := a.live(); err != nil {
		return a.Undefined(), err
	}
	v := lib.XJS_NewArray(a.tls, a.ctx)
	if tagOf(v) == lib.EJS_TAG_EXCEPTION {
		return a.Undefined(), a.exception()
	}
	arr := a.handle(v)
	if size > 0 {
		if err := a.SetProperty(arr, "length", a.NewNumber(float64(size))); err != nil {
			a.Free(arr)
			return a.Undefined(), err
		}
	}
	return arr, nil
}

// IsUndefined reports whether v is undefined.
func (a *Adapter) IsUndefined(v Value) bool { return tagOf(raw(v)) == lib.EJS_TAG_UNDEFINED }
// IsBoolean reports whether v is a boolean.
func (a *Adapter) IsBoolean(v Value) bool { return tagOf(raw(v)) == lib.EJS_TAG_BOOL }

// IsNumber is true for int and float64 tags.
func (a *Adapter) IsNumber(v Value) bool {
	t := tagOf(raw(v))
	return t == lib.EJS_TAG_INT || t == lib.EJS_TAG_FLOAT64
}

// IsString covers flat strings and ropes.
func (a *Adapter) IsString(v Value) bool {
	t := tagOf(raw(v))
	return t == lib.EJS_TAG_STRING || t == lib.EJS_TAG_STRING_ROPE
}

// IsObject is true for every object tag, arrays and functions included.
func (a *Adapter) IsObject(v Value) bool { return tagOf(raw(v)) == lib.EJS_TAG_OBJECT }

// IsArray reports whether v is an Array.
func (a *Adapter) IsArray(v Value) bool {
	if a.closed || !a.IsObject(v) {
		return false
	}
	return lib.XJS_IsArray(a.tls, a.ctx, raw(v)) > 0
}

// IsFunction reports whether v is callable.
func (a *Adapter) IsFunction(v Value) bool {
	if a.closed || !a.IsObject(v) {
		return false
	}
	return lib.XJS_IsFunction(a.tls, a.ctx, raw(v)) != 0
}

// SameValue follows Object.is.
func (a *Adapter) SameValue(x, y Value) bool {
	if a.closed {
		return false
	}
	return lib.XJS_SameValue(a.tls, a.ctx, raw(x), raw(y)) != 0
}

// UnwrapBoolean applies ToBoolean.
func (a *Adapter) UnwrapBoolean(v Value) bool {
	if a.closed {
		return false
	}
	return lib.XJS_ToBool(a.tls, a.ctx, raw(v)) > 0
}

// UnwrapNumber applies ToNumber. A throwing conversion is logged and
// reads as 0.
func (a *Adapter) UnwrapNumber(v Value) float64 {
	if a.closed {
		return 0
	}
	size := int(unsafe.Sizeof(float64(0)))
	p := a.tls.Alloc(size)
	defer a.tls.Free(size)
	if lib.XJS_ToFloat64(a.tls, a.ctx, p, raw(v)) < 0 {
		a.log.Warn("reading number", zap.Error(a.exception()))
		return 0
	}
	return *(*float64)(unsafe.Pointer(p))
}

// ToNativeString applies String() to v and returns every byte of the
// result, so strings holding U+0000 survive.
func (a *Adapter) ToNativeString(v Value) (string, error) {
	if err := a.live(); err != nil {
		return "", err
	}
	s, ok := a.goString(raw(v))
	if !ok {
		return "", a.exception()
	}
	return s, nil
}

// GetProperty reads obj[name]. An absent property yields undefined.
func (a *Adapter) GetProperty(obj Value, name string) (Value, error) {
	if !a.IsObject(obj) {
		return a.Undefined(), errors.Wrapf(core.ErrTypeMismatch, "get %q on non-object", name)
	}
	if err := a.live(); err != nil {
		return a.Undefined(), err
	}
	at, err := a.atom(name)
	if err != nil {
		return a.Undefined(), err
	}
	defer lib.XJS_FreeAtom(a.tls, a.ctx, at)

	v, err := a.bind(obj).GetPropertyValue(at)
	if err != nil {
		return a.Undefined(), errors.Wrapf(err, "get %q", name)
	}
	return v, nil
}

// SetProperty stores val under name. The caller keeps its own reference
// to val.
func (a *Adapter) SetProperty(obj Value, name string, val Value) error {
	if !a.IsObject(obj) {
		return errors.Wrapf(core.ErrTypeMismatch, "set %q on non-object", name)
	}
	if err := a.live(); err != nil {
		return err
	}
	at, err := a.atom(name)
	if err != nil {
		return err
	}
	defer lib.XJS_FreeAtom(a.tls, a.ctx, at)

	if err := a.bind(obj).SetPropertyValue(at, a.bind(val)); err != nil {
		return errors.Wrapf(a.exception(), "set %q", name)
	}
	return nil
}

// Keys lists own enumerable string keys in Object.keys order.
func (a *Adapter) Keys(obj Value) ([]string, error) {
	if !a.IsObject(obj) {
		return nil, errors.Wrap(core.ErrTypeMismatch, "keys of non-object")
	}
	if err := a.live(); err != nil {
		return nil, err
	}
	word := int(unsafe.Sizeof(uintptr(0)))
	out := a.tls.Alloc(2 * word)
	defer a.tls.Free(2 * word)
	ptab, plen := out, out+uintptr(word)

	if lib.XJS_GetOwnPropertyNames(a.tls, a.ctx, ptab, plen, raw(obj), lib.MJS_GPN_STRING_MASK|lib.MJS_GPN_ENUM_ONLY) < 0 {
		return nil, errors.Wrap(a.exception(), "listing keys")
	}
	tab := *(*uintptr)(unsafe.Pointer(ptab))
	n := *(*uint32)(unsafe.Pointer(plen))
	defer lib.XJS_FreePropertyEnum(a.tls, a.ctx, tab, n)

	keys := make([]string, 0, n)
	for _, e := range unsafe.Slice((*lib.TJSPropertyEnum)(unsafe.Pointer(tab)), n) {
		k, ok := a.atomString(e.Fatom)
		if !ok {
			return nil, errors.Wrap(a.exception(), "reading key")
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// GetElement reads arr[index]. The result is owned by the caller.
func (a *Adapter) GetElement(arr Value, index uint32) (Value, error) {
	if !a.IsArray(arr) {
		return a.Undefined(), errors.Wrap(core.ErrTypeMismatch, "element of non-array")
	}
	v := lib.XJS_GetPropertyUint32(a.tls, a.ctx, raw(arr), index)
	if tagOf(v) == lib.EJS_TAG_EXCEPTION {
		return a.Undefined(), errors.Wrapf(a.exception(), "get element %d", index)
	}
	return a.handle(v), nil
}

// SetElement assigns arr[index] = val. val stays owned by the caller.
func (a *Adapter) SetElement(arr Value, index uint32, val Value) error {
	if !a.IsArray(arr) {
		return errors.Wrap(core.ErrTypeMismatch, "element of non-array")
	}
	// JS_SetPropertyUint32 consumes its value.
	dup := lib.XDupValue(a.tls, a.ctx, raw(val))
	if lib.XJS_SetPropertyUint32(a.tls, a.ctx, raw(arr), index, dup) < 0 {
		return errors.Wrapf(a.exception(), "set element %d", index)
	}
	return nil
}

// ArrayLength reads arr.length.
func (a *Adapter) ArrayLength(arr Value) (uint32, error) {
	if !a.IsArray(arr) {
		return 0, errors.Wrap(core.ErrTypeMismatch, "length of non-array")
	}
	v, err := a.GetProperty(arr, "length")
	if err != nil {
		return 0, err
	}
	defer a.Free(v)
	return uint32(a.UnwrapNumber(v)), nil
}

// Root takes a reference of its own on v. Releasing the handle frees it.
func (a *Adapter) Root(v Value) (Value, core.RootHandle, error) {
	if err := a.live(); err != nil {
		return a.Undefined(), nil, err
	}
	rooted := a.bind(v).Dup()
	return rooted, a.roots.Track(func() { a.Free(rooted) }), nil
}

// LiveRoots returns the number of unreleased Root handles.
func (a *Adapter) LiveRoots() int { return a.roots.Live() }

// Free drops one reference to v. Immediates carry no reference count and
// are ignored, as is everything after Close.
func (a *Adapter) Free(v Value) {
	if a.closed || tagOf(raw(v)) >= 0 {
		return
	}
	h := a.bind(v)
	h.Free()
}

// LiveObjects runs the cycle collector and reports how many objects the
// runtime still holds. Every object reference handed out by the adapter
// and not yet freed keeps one alive.
func (a *Adapter) LiveObjects() (int, error) {
	if err := a.live(); err != nil {
		return 0, err
	}
	rt := lib.XJS_GetRuntime(a.tls, a.ctx)
	lib.XJS_RunGC(a.tls, rt)

	size := int(unsafe.Sizeof(lib.TJSMemoryUsage{}))
	p := a.tls.Alloc(size)
	defer a.tls.Free(size)
	lib.XJS_ComputeMemoryUsage(a.tls, rt, p)
	return int((*lib.TJSMemoryUsage)(unsafe.Pointer(p)).Fobj_count), nil
}

// Eval runs js in global scope and returns its completion value.
func (a *Adapter) Eval(js string) (Value, error) {
	if err := a.live(); err != nil {
		return a.Undefined(), err
	}
	v, err := a.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return a.Undefined(), errors.Wrap(err, "quickjs eval")
	}
	return v, nil
}

// Global returns globalThis. The caller owns the reference.
func (a *Adapter) Global() Value {
	if a.closed {
		return a.Undefined()
	}
	return a.vm.GlobalObject()
}

// Close frees the VM. Values still held become invalid.
func (a *Adapter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if live := a.roots.Live(); live > 0 {
		a.log.Warn("closing with live roots", zap.Int("roots", live))
	}
	return errors.Wrap(a.vm.Close(), "closing QuickJS VM")
}

// atom interns name with its full byte length.
func (a *Adapter) atom(name string) (quickjs.Atom, error) {
	p, err := libc.CString(name)
	if err != nil {
		return lib.MJS_ATOM_NULL, errors.Wrap(err, "allocating property name")
	}
	defer libc.Xfree(a.tls, p)

	at := lib.XJS_NewAtomLen(a.tls, a.ctx, p, lib.Tsize_t(len(name)))
	if at == lib.MJS_ATOM_NULL {
		return at, errors.Wrapf(a.exception(), "interning %q", name)
	}
	return at, nil
}

// goString converts v with String() semantics. ok is false when the
// conversion threw; the exception is left pending.
func (a *Adapter) goString(v lib.TJSValue) (string, bool) {
	size := int(unsafe.Sizeof(lib.Tsize_t(0)))
	plen := a.tls.Alloc(size)
	defer a.tls.Free(size)

	p := lib.XJS_ToCStringLen2(a.tls, a.ctx, plen, v, 0)
	if p == 0 {
		return "", false
	}
	defer lib.XJS_FreeCString(a.tls, a.ctx, p)
	n := int(*(*lib.Tsize_t)(unsafe.Pointer(plen)))
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n)), true
}

func (a *Adapter) atomString(at quickjs.Atom) (string, bool) {
	size := int(unsafe.Sizeof(lib.Tsize_t(0)))
	plen := a.tls.Alloc(size)
	defer a.tls.Free(size)

	p := lib.XJS_AtomToCStringLen(a.tls, a.ctx, plen, at)
	if p == 0 {
		return "", false
	}
	defer lib.XJS_FreeCString(a.tls, a.ctx, p)
	n := int(*(*lib.Tsize_t)(unsafe.Pointer(plen)))
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n)), true
}

// exception takes the pending exception off the context as a Go error.
func (a *Adapter) exception() error {
	e := lib.XJS_GetException(a.tls, a.ctx)
	defer lib.XFreeValue(a.tls, a.ctx, e)

	msg, ok := a.goString(e)
	if !ok {
		// String(exception) threw as well.
		lib.XFreeValue(a.tls, a.ctx, lib.XJS_GetException(a.tls, a.ctx))
		msg = "unprintable exception"
	}
	return errors.Errorf("quickjs: %s", msg)
}
