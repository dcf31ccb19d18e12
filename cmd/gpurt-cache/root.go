package main

import (
	"log"

	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/orneryd/gpurt/pkg/cache"
	"github.com/orneryd/gpurt/pkg/config"
)

var (
	cacheDir   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "gpurt-cache",
	Short: "Inspect and maintain an on-disk compiled-kernel cache",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "cache directory (overrides config file's cache_directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a RuntimeConfig YAML file")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(invalidateCmd)
	rootCmd.AddCommand(maintainCmd)
}

// openCache builds a KernelCache from --config (if given) and --cache-dir,
// wiring a stdr-backed logger the way the teacher's cmd/ binaries supply
// concrete infrastructure around library-level interfaces.
func openCache() (*cache.KernelCache, error) {
	opts := cache.DefaultOptions()
	if configPath != "" {
		rc, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		opts, err = rc.ToCacheOptions()
		if err != nil {
			return nil, err
		}
	}
	if cacheDir != "" {
		opts.CacheDirectory = cacheDir
		opts.EnablePersistentCache = true
	}
	// The CLI never runs the background maintenance goroutine itself —
	// "maintain" runs one pass on demand and exits.
	opts.EnableAutomaticMaintenance = false
	opts.Logger = stdr.New(log.Default())

	return cache.New(opts), nil
}
