// Package convert translates native Go values to and from engine values
// through a core.Adapter. Every operation is synchronous and must run on
// the goroutine that owns the adapter.
package convert

import (
	"github.com/cryguy/valuebridge/internal/core"
	"go.uber.org/zap"
)

// Bridge converts between Go values and the values of one engine.
type Bridge[V any] struct {
	a            core.Adapter[V]
	legacyDecode bool
	log          *zap.Logger
}

type options struct {
	legacyDecode bool
	log          *zap.Logger
}

// Option configures a Bridge.
type Option func(*options)

// WithLegacyStringDecode makes undecodable strings a silent no-op (an
// undefined value and a nil error) instead of ErrDecode.
func WithLegacyStringDecode(on bool) Option {
	return func(o *options) { o.legacyDecode = on }
}

// WithLogger sets the logger. The package logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// New creates a Bridge over the given adapter.
func New[V any](a core.Adapter[V], opts ...Option) *Bridge[V] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = core.Logger()
	}
	return &Bridge[V]{
		a:            a,
		legacyDecode: o.legacyDecode,
		log:          o.log.With(zap.String("engine", a.Name())),
	}
}

// Adapter returns the underlying engine adapter.
func (b *Bridge[V]) Adapter() core.Adapter[V] {
	return b.a
}

// NewObject creates an empty engine object.
func (b *Bridge[V]) NewObject() (V, error) {
	return b.a.NewObject()
}

// NewArray creates an engine array of the given initial length.
func (b *Bridge[V]) NewArray(size uint32) (V, error) {
	return b.a.NewArray(size)
}

// Close disposes the adapter's engine.
func (b *Bridge[V]) Close() error {
	return b.a.Close()
}
