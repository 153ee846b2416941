//go:build !((darwin || freebsd || linux) && (amd64 || arm64))

package marshal

import "github.com/wippyai/ffi-runtime/errors"

func newTrampoline(cb *Callback) (uintptr, error) {
	return 0, errors.Unsupported(errors.PhaseMarshal, "native callbacks on this platform")
}
