//go:build v8

package valuebridge

import (
	"github.com/cryguy/valuebridge/internal/core"
	"github.com/cryguy/valuebridge/internal/v8engine"
	v8 "github.com/tommie/v8go"
)

// Value is the value handle of the linked engine.
type Value = *v8.Value

func newAdapter(cfg core.Config) (core.Adapter[Value], error) {
	a, err := v8engine.New(cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}
