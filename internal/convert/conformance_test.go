package convert_test

import (
	"testing"

	"github.com/cryguy/valuebridge/internal/core"
	"github.com/cryguy/valuebridge/internal/enginetest"
)

func TestFakeConformance(t *testing.T) {
	enginetest.RunConformance(t, func(t *testing.T) core.Adapter[*enginetest.Cell] {
		return enginetest.NewFake()
	})
}
