package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run one expiry/eviction maintenance pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()

		n, err := c.PerformMaintenance()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d entries (expired or evicted)\n", n)
		return nil
	},
}
