//go:build !v8 && !(386 || arm)

package quickjs

import lib "modernc.org/libquickjs"

func tagOf(v lib.TJSValue) int32 {
	return int32(v.Ftag)
}

// mkval builds an immediate, like JS_MKVAL.
func mkval(tag, val int32) lib.TJSValue {
	return lib.TJSValue{Fu: lib.TJSValueUnion{Fint321: val}, Ftag: int64(tag)}
}
