package cmd

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newAccessCommand(c *ctx) *cobra.Command {
	access := &cobra.Command{
		Use:   "access",
		Short: "Read or write a logical block through the ring ORAM",
	}
	access.AddCommand(newAccessReadCommand(c))
	access.AddCommand(newAccessWriteCommand(c))
	return access
}

func newAccessReadCommand(c *ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "read <block-index>",
		Short: "Read a block and print its plaintext as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blockIndex, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("ringoramctl: invalid block index %q: %w", args[0], err)
			}
			data, err := c.oram.Read(blockIndex)
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(data))
			return nil
		},
	}
}

func newAccessWriteCommand(c *ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "write <block-index> <hex-data>",
		Short: "Write hex-encoded data to a block, padding or truncating to the configured block size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blockIndex, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("ringoramctl: invalid block index %q: %w", args[0], err)
			}
			raw, err := hex.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("ringoramctl: invalid hex payload: %w", err)
			}
			payload := make([]byte, c.oram.BlockSize())
			copy(payload, raw)

			written, err := c.oram.Write(blockIndex, payload)
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(written))
			return nil
		},
	}
}
