package convert_test

import (
	"testing"

	"github.com/cryguy/valuebridge/internal/convert"
	"github.com/cryguy/valuebridge/internal/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerHoldsOneRoot(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)

	var listeners []*convert.Listener[*enginetest.Cell]
	for i := 0; i < 3; i++ {
		l := b.NewListener()
		for j := 0; j < 4; j++ {
			obj, err := b.NewObject()
			require.NoError(t, err)
			require.NoError(t, l.SetDelegate(obj))
		}
		listeners = append(listeners, l)
	}
	assert.Equal(t, 3, f.LiveRoots())

	for i, l := range listeners {
		require.NoError(t, l.Close())
		assert.Equal(t, 2-i, f.LiveRoots())
	}
}

func TestListenerAcceptsFunctions(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)
	l := b.NewListener()
	defer l.Close()

	fn := f.NewFunction()
	require.NoError(t, l.SetDelegate(fn))
	assert.True(t, l.HasDelegate())
	assert.Same(t, fn, l.Delegate())

	l.Clear()
	assert.Equal(t, 0, f.LiveRoots())
	assert.Same(t, f.Null(), l.Delegate())
}

func TestListenerNullClears(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)
	l := b.NewListener()

	obj, err := b.NewObject()
	require.NoError(t, err)
	require.NoError(t, l.SetDelegate(obj))
	require.NoError(t, l.SetDelegate(f.Null()))
	assert.False(t, l.HasDelegate())
	assert.Equal(t, 0, f.LiveRoots())
}
