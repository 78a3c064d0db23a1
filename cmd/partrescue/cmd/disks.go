// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/siderolabs/go-partrescue/disk"
	"github.com/siderolabs/go-partrescue/rescue"
)

var disksCmdFlags struct {
	model  string
	serial string
	typ    string
}

type diskOutput struct {
	Device     string `yaml:"device"`
	Model      string `yaml:"model,omitempty"`
	Serial     string `yaml:"serial,omitempty"`
	Type       string `yaml:"type"`
	Size       uint64 `yaml:"size"`
	SectorSize uint64 `yaml:"sectorSize"`
	ReadOnly   bool   `yaml:"readOnly,omitempty"`
}

var disksCmd = &cobra.Command{
	Use:   "disks",
	Short: "List the disks which can hold a partition table",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var matchers []disk.Matcher

		if disksCmdFlags.model != "" {
			matchers = append(matchers, disk.WithModel(disksCmdFlags.model))
		}

		if disksCmdFlags.serial != "" {
			matchers = append(matchers, disk.WithSerial(disksCmdFlags.serial))
		}

		if disksCmdFlags.typ != "" {
			typ, err := disk.ParseType(disksCmdFlags.typ)
			if err != nil {
				return err
			}

			matchers = append(matchers, disk.WithType(typ))
		}

		disks, err := rescue.ListDisks(diskOptions(), matchers...)
		if err != nil {
			return err
		}

		return printDisks(disks)
	},
}

func printDisks(disks []*disk.Disk) error {
	if rootCmdFlags.output == outputYAML {
		out := make([]diskOutput, 0, len(disks))

		for _, d := range disks {
			out = append(out, diskOutput{
				Device:     d.DeviceName,
				Model:      d.Model,
				Serial:     d.Serial,
				Type:       d.Type.String(),
				Size:       d.Size,
				SectorSize: d.SectorSize,
				ReadOnly:   d.ReadOnly,
			})
		}

		return printYAML(os.Stdout, out)
	}

	getWithPlaceholder := func(in string) string {
		if in == "" {
			return "-"
		}

		return in
	}

	w := newTabWriter(os.Stdout)

	printRow(w, "DEV", "MODEL", "SERIAL", "TYPE", "SIZE", "SECTOR", "RO")

	for _, d := range disks {
		printRow(w,
			d.DeviceName,
			getWithPlaceholder(d.Model),
			getWithPlaceholder(d.Serial),
			d.Type,
			humanize.Bytes(d.Size),
			d.SectorSize,
			d.ReadOnly,
		)
	}

	return w.Flush()
}

func init() {
	disksCmd.Flags().StringVar(&disksCmdFlags.model, "model", "", "filter disks by model (glob)")
	disksCmd.Flags().StringVar(&disksCmdFlags.serial, "serial", "", "filter disks by serial (glob)")
	disksCmd.Flags().StringVar(&disksCmdFlags.typ, "type", "", "filter disks by type (ssd, hdd, nvme, sd)")
	addCommand(disksCmd)
}
