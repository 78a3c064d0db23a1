// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/siderolabs/go-pointer"
	"github.com/spf13/cobra"

	"github.com/siderolabs/go-partrescue/blkid"
)

var probeCmd = &cobra.Command{
	Use:   "probe <device>",
	Short: "Detect the filesystem at the start of the device or partition",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := blkid.ProbePath(args[0], blkid.WithProbeLogger(logger))
		if err != nil {
			return err
		}

		if res == nil {
			return fmt.Errorf("no filesystem found on %q", args[0])
		}

		type probeOutput struct {
			Name   string `yaml:"name"`
			UUID   string `yaml:"uuid,omitempty"`
			Label  string `yaml:"label,omitempty"`
			Size   uint64 `yaml:"size"`
			Extent string `yaml:"extent,omitempty"`
		}

		out := probeOutput{
			Name:  res.Name,
			Label: pointer.SafeDeref(res.Label),
			Size:  res.ProbedSize,
		}

		if res.UUID != nil {
			out.UUID = res.UUID.String()
		}

		if extent, ok := res.Extent(); ok {
			out.Extent = extent.String()
		}

		if rootCmdFlags.output == outputYAML {
			return printYAML(os.Stdout, out)
		}

		w := newTabWriter(os.Stdout)

		printRow(w, "NAME", "UUID", "LABEL", "SIZE", "SECTORS")
		printRow(w, out.Name, out.UUID, out.Label, humanize.IBytes(out.Size), out.Extent)

		return w.Flush()
	},
}

func init() {
	addCommand(probeCmd)
}
