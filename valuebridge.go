// Package valuebridge converts native Go values to and from the values of
// an embedded JavaScript engine.
//
// The engine behind New is chosen at build time: QuickJS by default, V8
// with -tags v8. NewOtto and NewGoja are always available.
package valuebridge

import (
	"github.com/cryguy/valuebridge/internal/convert"
	"github.com/cryguy/valuebridge/internal/core"
	"github.com/cryguy/valuebridge/internal/gojaengine"
	"github.com/cryguy/valuebridge/internal/ottoengine"
	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/robertkrimen/otto"
)

// New creates a Bridge over a fresh instance of the linked engine.
func New(cfg Config) (*Bridge[Value], error) {
	a, err := newAdapter(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating engine")
	}
	return newBridge[Value](a, cfg), nil
}

// NewOtto creates a Bridge over a fresh otto VM.
func NewOtto(cfg Config) *Bridge[otto.Value] {
	return newBridge[otto.Value](ottoengine.New(cfg), cfg)
}

// NewGoja creates a Bridge over a fresh goja runtime.
func NewGoja(cfg Config) *Bridge[goja.Value] {
	return newBridge[goja.Value](gojaengine.New(cfg), cfg)
}

func newBridge[V any](a core.Adapter[V], cfg Config) *Bridge[V] {
	return convert.New[V](a, convert.WithLegacyStringDecode(cfg.LegacyStringDecode))
}
