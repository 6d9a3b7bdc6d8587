package frame

import "github.com/pkg/errors"

// Per-frame failure classes. None of them is fatal: a frame that fails is
// logged and dropped, and the next frame for the same source is processed
// normally.
var (
	ErrMalformedPayload = errors.New("malformed frame payload")
	ErrDecodeFailure    = errors.New("frame decode failed")
	ErrDisplayFailure   = errors.New("frame display failed")
)
