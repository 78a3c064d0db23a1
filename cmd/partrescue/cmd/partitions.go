// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/siderolabs/go-partrescue/block"
	"github.com/siderolabs/go-partrescue/rescue"
)

var partitionsCmd = &cobra.Command{
	Use:   "partitions <device>",
	Short: "List the partitions in the partition table",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printList(cmd.Context(), args[0], rescue.GetPartitionList)
	},
}

var rescuableCmd = &cobra.Command{
	Use:   "rescuable <device>",
	Short: "List the free space slots which might hold lost partitions",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printList(cmd.Context(), args[0], rescue.GetRescuable)
	},
}

type listFunc func(ctx context.Context, path string, opts ...rescue.Option) ([]rescue.Triple, error)

func printList(ctx context.Context, path string, list listFunc) error {
	triples, err := list(ctx, path, rescueOptions()...)
	if err != nil {
		return err
	}

	return printTriples(os.Stdout, path, triples, sectorSize(path))
}

// sectorSize returns the logical sector size of the device, falling back to 512 bytes.
func sectorSize(path string) uint64 {
	dev, err := block.NewFromPath(path)
	if err != nil {
		return block.DefaultBlockSize
	}

	defer dev.Close() //nolint:errcheck

	return uint64(dev.GetSectorSize())
}

func init() {
	addCommand(partitionsCmd)
	addCommand(rescuableCmd)
}
