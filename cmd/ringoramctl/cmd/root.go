// Package cmd wires the ringoram core to a small cobra/viper command tree
// so it can be driven and inspected from a shell, the way qed's cmd package
// wires its server and gossip packages to a CLI.
package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	v "github.com/spf13/viper"

	"github.com/etclab/ringoram-go"
)

// ctx holds the single RingORAM instance this process manages. A CLI demo
// only ever needs one
// instance for its lifetime, so it's held here rather than threaded through
// every command's closure.
type ctx struct {
	oram *ringoram.RingORAM
}

// NewRootCommand builds the ringoramctl command tree.
func NewRootCommand() *cobra.Command {
	c := &ctx{}

	root := &cobra.Command{
		Use:   "ringoramctl",
		Short: "Drive and inspect a ring ORAM instance",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}

	root.PersistentFlags().Int("num-blocks", 1024, "number of logical blocks (N)")
	root.PersistentFlags().Int("block-size", 256, "bytes per block (B), must be a multiple of 16")
	root.PersistentFlags().Int("z", 4, "real slots per bucket (Z)")
	root.PersistentFlags().Int("s", 5, "dummy slots per bucket (S)")
	root.PersistentFlags().Bool("constant-time", false, "enable timing-hardened slot search")
	root.PersistentFlags().String("config", "", "path to a ringoramctl.yaml config file")

	v.BindPFlag("num_blocks", root.PersistentFlags().Lookup("num-blocks"))
	v.BindPFlag("block_size", root.PersistentFlags().Lookup("block-size"))
	v.BindPFlag("z", root.PersistentFlags().Lookup("z"))
	v.BindPFlag("s", root.PersistentFlags().Lookup("s"))
	v.BindPFlag("constant_time", root.PersistentFlags().Lookup("constant-time"))
	v.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(newAccessCommand(c))
	root.AddCommand(newStatsCommand(c))
	root.AddCommand(newServeMetricsCommand(c))

	return root
}

func (c *ctx) init() error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("ringoramctl: read config: %w", err)
		}
	} else {
		v.SetConfigName("ringoramctl")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(v.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("ringoramctl: read config: %w", err)
			}
		}
	}

	cfg := ringoram.Config{
		NumBlocks:    v.GetInt("num_blocks"),
		BlockSize:    v.GetInt("block_size"),
		Z:            v.GetInt("z"),
		S:            v.GetInt("s"),
		ConstantTime: v.GetBool("constant_time"),
	}

	o, err := ringoram.NewInMemory(cfg,
		ringoram.WithLogger(ringoram.NewStderrLogger(ringoram.LevelWarn)),
		ringoram.WithMetricsRegisterer(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return fmt.Errorf("ringoramctl: build ring ORAM: %w", err)
	}
	c.oram = o
	return nil
}
