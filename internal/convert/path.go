package convert

import (
	"strings"

	"github.com/cryguy/valuebridge/internal/core"
	"github.com/pkg/errors"
)

// ResolvePath walks a dot-separated path of property names from root and
// returns the object at its end. Missing (undefined) segments are created
// as empty objects; existing objects are reused untouched. Empty segments
// ("a..b", ".a") are ignored, so an empty path returns root.
//
// A segment that holds a non-object value, null included, fails with
// core.ErrPathConflict and nothing further is created.
//
// owned reports whether the caller holds a reference to leaf and must Free
// it. It is false only when no segment was walked and leaf is root. A path
// that leads back to root, as in "self" on an object with r.self = r, still
// yields an owned reference.
func (b *Bridge[V]) ResolvePath(root V, path string) (leaf V, owned bool, err error) {
	var zero V
	if !b.a.IsObject(root) {
		return zero, false, errors.Wrap(core.ErrPrecondition, "path root is not an object")
	}

	cur := root
	release := func() {
		if owned {
			b.a.Free(cur)
		}
	}

	walked := make([]string, 0, strings.Count(path, ".")+1)
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			continue
		}
		walked = append(walked, seg)

		next, err := b.a.GetProperty(cur, seg)
		if err != nil {
			release()
			return zero, false, errors.Wrapf(err, "reading %q", strings.Join(walked, "."))
		}
		if b.a.IsUndefined(next) {
			if next, err = b.a.NewObject(); err == nil {
				err = b.a.SetProperty(cur, seg, next)
			}
			if err != nil {
				b.a.Free(next)
				release()
				return zero, false, errors.Wrapf(err, "creating %q", strings.Join(walked, "."))
			}
		} else if !b.a.IsObject(next) {
			b.a.Free(next)
			release()
			return zero, false, errors.Wrapf(core.ErrPathConflict, "%q", strings.Join(walked, "."))
		}

		release()
		cur, owned = next, true
	}
	return cur, owned, nil
}
