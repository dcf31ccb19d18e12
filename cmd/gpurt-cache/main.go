// Command gpurt-cache operates on an on-disk KernelCache: reporting
// statistics, clearing entries, invalidating a stale code-emitter
// version, and running a maintenance pass outside of the automatic
// background loop.
//
// Usage:
//
//	gpurt-cache stats --cache-dir ./cache
//	gpurt-cache clear --cache-dir ./cache
//	gpurt-cache invalidate --cache-dir ./cache --version emitter-v3_sm70_ptx
//	gpurt-cache maintain --cache-dir ./cache
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
