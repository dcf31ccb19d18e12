package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache hit/miss/eviction counters and current size",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()

		s := c.GetStatistics()
		total := s.Hits + s.Misses
		hitRate := 0.0
		if total > 0 {
			hitRate = float64(s.Hits) / float64(total) * 100
		}

		fmt.Printf("hits:       %s\n", humanize.Comma(int64(s.Hits)))
		fmt.Printf("misses:     %s\n", humanize.Comma(int64(s.Misses)))
		fmt.Printf("hit rate:   %.1f%%\n", hitRate)
		fmt.Printf("evictions:  %s\n", humanize.Comma(int64(s.Evictions)))
		fmt.Printf("size:       %d / %d entries\n", s.CurrentSize, s.MaxSize)
		fmt.Printf("avg lookup: %s\n", s.AvgLookupLatency)
		return nil
	},
}
