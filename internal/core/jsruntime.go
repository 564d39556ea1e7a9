package core

// Adapter abstracts one JavaScript engine's value API (QuickJS, V8, otto,
// goja) behind a common interface. V is the engine's own value handle type.
// The conversion logic in internal/convert is written once against this
// interface; which implementation is linked is decided by build tags in the
// root package.
//
// Adapters are not safe for concurrent use. All calls must come from the
// goroutine that owns the engine.
type Adapter[V any] interface {
	// Name identifies the engine, e.g. "quickjs" or "v8".
	Name() string

	Undefined() V
	Null() V
	NewBoolean(b bool) V
	NewInt32(i int32) V
	NewNumber(f float64) V

	// NewString copies s, which must be valid UTF-8, into a new engine
	// string.
	NewString(s string) (V, error)

	// NewObject creates an empty plain object.
	NewObject() (V, error)

	// NewArray creates an array with the given initial length.
	NewArray(size uint32) (V, error)

	IsUndefined(v V) bool
	IsBoolean(v V) bool
	IsNumber(v V) bool
	IsString(v V) bool

	// IsObject reports whether v is object-like: plain objects, arrays and
	// functions. null is not an object.
	IsObject(v V) bool
	IsArray(v V) bool
	IsFunction(v V) bool

	// SameValue reports whether a and b are the same engine value
	// (Object.is semantics for objects).
	SameValue(a, b V) bool

	// UnwrapBoolean and UnwrapNumber are only meaningful after the matching
	// Is check has succeeded.
	UnwrapBoolean(v V) bool
	UnwrapNumber(v V) float64

	// ToNativeString applies JS String() coercion to v.
	ToNativeString(v V) (string, error)

	// GetProperty returns Undefined() for an absent property.
	GetProperty(obj V, name string) (V, error)
	SetProperty(obj V, name string, val V) error

	// Keys returns the object's own enumerable string keys.
	Keys(obj V) ([]string, error)

	GetElement(arr V, index uint32) (V, error)
	SetElement(arr V, index uint32, val V) error
	ArrayLength(arr V) (uint32, error)

	// Root registers v so that it stays alive until the handle is
	// released. The returned value refers to the same engine value as v
	// and stays valid for the lifetime of the handle, even if v is freed.
	Root(v V) (V, RootHandle, error)

	// LiveRoots returns the number of handles from Root not yet released.
	LiveRoots() int

	// Free drops the adapter's reference to a temporary value. It is a
	// no-op for engines whose collector tracks Go-held references.
	Free(v V)

	// Close disposes the underlying VM or isolate.
	Close() error
}

// Runtime is implemented by adapters backed by a real engine. It gives
// embedders and tests script evaluation alongside value conversion.
type Runtime[V any] interface {
	Adapter[V]

	// Eval evaluates JavaScript source in global scope and returns its
	// completion value. The caller owns the result and should Free it.
	Eval(js string) (V, error)

	// Global returns the engine's global object.
	Global() V
}
