// Package enginetest provides an in-memory engine adapter and a
// conformance suite shared by the engine adapter tests.
package enginetest

import (
	"fmt"
	"strconv"

	"github.com/cryguy/valuebridge/internal/core"
)

// Kind tags a fake engine value.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindObject
	KindArray
	KindFunction
)

// Cell is one value in the fake engine. Objects and arrays are compared
// by pointer identity.
type Cell struct {
	Kind  Kind
	Bool  bool
	Num   float64
	Str   string
	props map[string]*Cell
	keys  []string
	elems []*Cell
}

var (
	undefinedCell = &Cell{Kind: KindUndefined}
	nullCell      = &Cell{Kind: KindNull}
)

// Fake is an in-memory core.Adapter. It records root registrations and can
// be told to fail specific writes.
type Fake struct {
	roots core.RootCounter

	// FailSetElement, when set, makes SetElement fail for matching indices.
	FailSetElement func(index uint32) bool
	// FailSetProperty, when set, makes SetProperty fail for matching names.
	FailSetProperty func(name string) bool

	// Created counts objects and arrays made by NewObject and NewArray.
	Created int
	// Freed counts Free calls on objects, arrays and functions.
	Freed int
}

var _ core.Adapter[*Cell] = (*Fake)(nil)

// NewFake returns an empty fake engine.
func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Undefined() *Cell { return undefinedCell }
func (f *Fake) Null() *Cell { return nullCell }

func (f *Fake) NewBoolean(b bool) *Cell { return &Cell{Kind: KindBoolean, Bool: b} }
func (f *Fake) NewInt32(i int32) *Cell { return &Cell{Kind: KindNumber, Num: float64(i)} }
func (f *Fake) NewNumber(n float64) *Cell { return &Cell{Kind: KindNumber, Num: n} }
func (f *Fake) NewFunction() *Cell { return &Cell{Kind: KindFunction, props: map[string]*Cell{}} }
func (f *Fake) NewString(s string) (*Cell, error) {
	return &Cell{Kind: KindString, Str: s}, nil
}

func (f *Fake) NewObject() (*Cell, error) {
	f.Created++
	return &Cell{Kind: KindObject, props: map[string]*Cell{}}, nil
}

func (f *Fake) NewArray(size uint32) (*Cell, error) {
	f.Created++
	arr := &Cell{Kind: KindArray, elems: make([]*Cell, size)}
	for i := range arr.elems {
		arr.elems[i] = undefinedCell
	}
	return arr, nil
}

func (f *Fake) IsUndefined(v *Cell) bool { return v == nil || v.Kind == KindUndefined }
func (f *Fake) IsBoolean(v *Cell) bool { return v != nil && v.Kind == KindBoolean }
func (f *Fake) IsNumber(v *Cell) bool { return v != nil && v.Kind == KindNumber }
func (f *Fake) IsString(v *Cell) bool { return v != nil && v.Kind == KindString }
func (f *Fake) IsArray(v *Cell) bool { return v != nil && v.Kind == KindArray }
func (f *Fake) IsFunction(v *Cell) bool { return v != nil && v.Kind == KindFunction }

func (f *Fake) IsObject(v *Cell) bool {
	return v != nil && (v.Kind == KindObject || v.Kind == KindArray || v.Kind == KindFunction)
}

func (f *Fake) SameValue(a, b *Cell) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindUndefined, KindNull:
		return true
	case KindBoolean:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Num == b.Num
	case KindString:
		return a.Str == b.Str
	}
	return false
}

func (f *Fake) UnwrapBoolean(v *Cell) bool { return v.Bool }
func (f *Fake) UnwrapNumber(v *Cell) float64 { return v.Num }

func (f *Fake) ToNativeString(v *Cell) (string, error) {
	switch {
	case f.IsUndefined(v):
		return "undefined", nil
	case v.Kind == KindNull:
		return "null", nil
	case v.Kind == KindBoolean:
		return strconv.FormatBool(v.Bool), nil
	case v.Kind == KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), nil
	case v.Kind == KindString:
		return v.Str, nil
	case v.Kind == KindArray:
		return "[array]", nil
	}
	return "[object Object]", nil
}

func (f *Fake) GetProperty(obj *Cell, name string) (*Cell, error) {
	if !f.IsObject(obj) {
		return nil, fmt.Errorf("get %q: %w", name, core.ErrTypeMismatch)
	}
	if obj.Kind == KindArray {
		if name == "length" {
			return f.NewNumber(float64(len(obj.elems))), nil
		}
		if i, err := strconv.ParseUint(name, 10, 32); err == nil {
			return f.GetElement(obj, uint32(i))
		}
	}
	if v, ok := obj.props[name]; ok {
		return v, nil
	}
	return undefinedCell, nil
}

func (f *Fake) SetProperty(obj *Cell, name string, val *Cell) error {
	if !f.IsObject(obj) {
		return fmt.Errorf("set %q: %w", name, core.ErrTypeMismatch)
	}
	if f.FailSetProperty != nil && f.FailSetProperty(name) {
		return fmt.Errorf("set %q: injected failure", name)
	}
	if obj.props == nil {
		obj.props = map[string]*Cell{}
	}
	if _, ok := obj.props[name]; !ok {
		obj.keys = append(obj.keys, name)
	}
	obj.props[name] = val
	return nil
}

func (f *Fake) Keys(obj *Cell) ([]string, error) {
	if !f.IsObject(obj) {
		return nil, fmt.Errorf("keys: %w", core.ErrTypeMismatch)
	}
	keys := make([]string, 0, len(obj.keys)+len(obj.elems))
	for i := range obj.elems {
		keys = append(keys, strconv.Itoa(i))
	}
	return append(keys, obj.keys...), nil
}

func (f *Fake) GetElement(arr *Cell, index uint32) (*Cell, error) {
	if !f.IsArray(arr) {
		return nil, fmt.Errorf("get element: %w", core.ErrTypeMismatch)
	}
	if int(index) >= len(arr.elems) {
		return undefinedCell, nil
	}
	return arr.elems[index], nil
}

func (f *Fake) SetElement(arr *Cell, index uint32, val *Cell) error {
	if !f.IsArray(arr) {
		return fmt.Errorf("set element: %w", core.ErrTypeMismatch)
	}
	if f.FailSetElement != nil && f.FailSetElement(index) {
		return fmt.Errorf("set element %d: injected failure", index)
	}
	for int(index) >= len(arr.elems) {
		arr.elems = append(arr.elems, undefinedCell)
	}
	arr.elems[index] = val
	return nil
}

func (f *Fake) ArrayLength(arr *Cell) (uint32, error) {
	if !f.IsArray(arr) {
		return 0, fmt.Errorf("length: %w", core.ErrTypeMismatch)
	}
	return uint32(len(arr.elems)), nil
}

func (f *Fake) Root(v *Cell) (*Cell, core.RootHandle, error) {
	return v, f.roots.Track(nil), nil
}

func (f *Fake) LiveRoots() int { return f.roots.Live() }

func (f *Fake) Free(v *Cell) {
	if f.IsObject(v) {
		f.Freed++
	}
}

func (f *Fake) Close() error { return nil }
