package sidechannel

import "errors"

var (
	ErrSaturated = errors.New("side channel saturated, operation dropped")
	ErrPanic     = errors.New("side channel operation panicked")
)
