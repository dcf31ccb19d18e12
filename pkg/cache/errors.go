package cache

import "errors"

// ErrCacheDisposed is returned by any operation invoked after Close has
// torn down a KernelCache. Per spec, this is a program error — callers
// should treat it as a bug, not a recoverable condition.
var ErrCacheDisposed = errors.New("cache: kernel cache has been disposed")
