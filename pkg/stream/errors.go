package stream

import "errors"

// ErrStreamDisposed is returned (or surfaces as a future error) when an
// operation targets a stream that has already been torn down.
// Destroying a stream while an AsyncLaunch future still references it
// is a program error per spec §3; this sentinel marks that condition.
var ErrStreamDisposed = errors.New("stream: stream has been disposed")
