package convert_test

import (
	"testing"

	"github.com/cryguy/valuebridge/internal/convert"
	"github.com/cryguy/valuebridge/internal/core"
	"github.com/cryguy/valuebridge/internal/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePathCreatesEachSegmentOnce(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)
	root, err := b.NewObject()
	require.NoError(t, err)

	before := f.Created
	leaf, _, err := b.ResolvePath(root, "a.b.c")
	require.NoError(t, err)
	// a and a.b are intermediates, a.b.c is the returned leaf.
	assert.Equal(t, 3, f.Created-before)

	before = f.Created
	again, _, err := b.ResolvePath(root, "a.b.c")
	require.NoError(t, err)
	assert.Zero(t, f.Created-before)
	assert.Same(t, leaf, again)

	_, _, err = b.ResolvePath(root, "a.b.d")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Created-before)
}

func TestResolvePathStopsAtConflict(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)
	root, err := b.NewObject()
	require.NoError(t, err)
	require.NoError(t, b.SetIntProperty(root, "n", 4))

	before := f.Created
	_, _, err = b.ResolvePath(root, "n.x.y")
	require.ErrorIs(t, err, core.ErrPathConflict)
	assert.Contains(t, err.Error(), `"n"`)
	assert.Zero(t, f.Created-before)
}

func TestResolvePathWriteFailure(t *testing.T) {
	f := enginetest.NewFake()
	f.FailSetProperty = func(name string) bool { return name == "b" }
	b := convert.New[*enginetest.Cell](f)
	root, err := b.NewObject()
	require.NoError(t, err)

	_, _, err = b.ResolvePath(root, "a.b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `creating "a.b"`)

	// The first segment was created before the failure.
	keys, err := f.Keys(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)
}

func TestResolvePathAcceptsFunctions(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)
	root, err := b.NewObject()
	require.NoError(t, err)
	fn := f.NewFunction()
	require.NoError(t, b.SetObjectProperty(root, "fn", fn))

	got, _, err := b.ResolvePath(root, "fn.static")
	require.NoError(t, err)
	prop, err := f.GetProperty(fn, "static")
	require.NoError(t, err)
	assert.Same(t, prop, got)
}

func TestResolvePathFreesIntermediatesThatAreRoot(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)
	root, err := b.NewObject()
	require.NoError(t, err)
	require.NoError(t, b.SetObjectProperty(root, "self", root))

	leaf, owned, err := b.ResolvePath(root, "self.self.self")
	require.NoError(t, err)
	assert.True(t, owned)
	assert.Same(t, root, leaf)
	// Two intermediate references were read and dropped; root was not.
	assert.Equal(t, 2, f.Freed)

	f.Freed = 0
	leaf, owned, err = b.ResolvePath(root, "")
	require.NoError(t, err)
	assert.False(t, owned)
	assert.Same(t, root, leaf)
	assert.Zero(t, f.Freed)
}

func TestResolvePathFreesOnConflict(t *testing.T) {
	f := enginetest.NewFake()
	b := convert.New[*enginetest.Cell](f)
	root, err := b.NewObject()
	require.NoError(t, err)
	_, _, err = b.ResolvePath(root, "a")
	require.NoError(t, err)
	a, err := f.GetProperty(root, "a")
	require.NoError(t, err)
	require.NoError(t, b.SetIntProperty(a, "n", 1))

	f.Freed = 0
	_, owned, err := b.ResolvePath(root, "a.n.x")
	require.ErrorIs(t, err, core.ErrPathConflict)
	assert.False(t, owned)
	assert.Equal(t, 1, f.Freed, "the reference to a is dropped")
}
