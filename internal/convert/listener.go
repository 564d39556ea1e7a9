package convert

import (
	"github.com/cryguy/valuebridge/internal/core"
	"go.uber.org/zap"
)

// noCopy lets go vet's copylocks check flag copies of Listener.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Listener holds at most one rooted reference to a script-side delegate
// object. Replacing or clearing the delegate releases the previous root
// before anything else happens. A Listener must not be copied.
type Listener[V any] struct {
	_ noCopy

	a     core.Adapter[V]
	log   *zap.Logger
	value V
	root  core.RootHandle
}

// NewListener returns an empty listener handle.
func (b *Bridge[V]) NewListener() *Listener[V] {
	return &Listener[V]{a: b.a, log: b.log}
}

// SetDelegate releases any held delegate and roots v in its place. A value
// that is not object-like leaves the listener empty.
func (l *Listener[V]) SetDelegate(v V) error {
	if l.root != nil {
		l.log.Debug("replacing listener delegate")
	}
	l.Clear()
	if !l.a.IsObject(v) {
		l.log.Debug("listener delegate cleared by non-object value")
		return nil
	}
	rooted, root, err := l.a.Root(v)
	if err != nil {
		return err
	}
	l.value, l.root = rooted, root
	return nil
}

// Delegate returns the held delegate, or the engine's null if none is set.
func (l *Listener[V]) Delegate() V {
	if l.root == nil {
		return l.a.Null()
	}
	return l.value
}

// HasDelegate reports whether a delegate is held.
func (l *Listener[V]) HasDelegate() bool {
	return l.root != nil
}

// Clear releases the held delegate, if any.
func (l *Listener[V]) Clear() {
	if l.root == nil {
		return
	}
	l.root.Release()
	var zero V
	l.value, l.root = zero, nil
}

// Close releases the delegate. It is called when the owner is destroyed
// and may be called more than once.
func (l *Listener[V]) Close() error {
	l.Clear()
	return nil
}
