//go:build !v8 && (386 || arm)

package quickjs

import lib "modernc.org/libquickjs"

// tagOf folds every NaN-boxed double into EJS_TAG_FLOAT64.
func tagOf(v lib.TJSValue) int32 {
	t := int32(uint64(v) >> 32)
	if uint32(t-lib.EJS_TAG_FIRST) >= uint32(lib.EJS_TAG_FLOAT64-lib.EJS_TAG_FIRST) {
		return lib.EJS_TAG_FLOAT64
	}
	return t
}

// mkval builds an immediate, like JS_MKVAL.
func mkval(tag, val int32) lib.TJSValue {
	return lib.TJSValue(uint64(uint32(tag))<<32 | uint64(uint32(val)))
}
