package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCommand(c *ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the ring ORAM's current dimensions and stash occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("capacity:          %d\n", c.oram.Capacity())
			fmt.Printf("block size:        %d\n", c.oram.BlockSize())
			fmt.Printf("tree height:       %d\n", c.oram.Height())
			fmt.Printf("num leaves:        %d\n", c.oram.NumLeaves())
			fmt.Printf("num buckets:       %d\n", c.oram.NumBuckets())
			fmt.Printf("position map size: %d\n", c.oram.PositionMapSize())

			stats := c.oram.Stats()
			fmt.Printf("stash size:        %d\n", stats.StashSize)
			fmt.Printf("evictions:         %d\n", stats.Evictions)
			fmt.Printf("early reshuffles:  %d\n", stats.EarlyReshuffles)
			fmt.Printf("decrypt failures:  %d\n", stats.DecryptFailures)
			fmt.Printf("path fallbacks:    %d\n", stats.PathFallbacks)
			fmt.Printf("stash overflows:   %d\n", stats.StashOverflows)
			return nil
		},
	}
}
