package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var invalidateVersion string

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Remove every entry tagged with a stale code-emitter version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if invalidateVersion == "" {
			return fmt.Errorf("invalidate: --version is required")
		}
		c, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()

		n, err := c.InvalidateVersion(invalidateVersion)
		if err != nil {
			return err
		}
		fmt.Printf("invalidated %d entries tagged %q\n", n, invalidateVersion)
		return nil
	},
}

func init() {
	invalidateCmd.Flags().StringVar(&invalidateVersion, "version", "", "code-emitter/target/backend version tag to invalidate")
}
