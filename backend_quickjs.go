//go:build !v8

package valuebridge

import (
	"github.com/cryguy/valuebridge/internal/core"
	"github.com/cryguy/valuebridge/internal/quickjs"
)

// Value is the value handle of the linked engine.
type Value = quickjs.Value

func newAdapter(cfg core.Config) (core.Adapter[Value], error) {
	a, err := quickjs.New(cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}
