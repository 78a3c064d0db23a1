// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/siderolabs/go-partrescue/rescue"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [device...]",
	Short: "Show the partitions and free space slots of the disks",
	Long:  `If no devices are given, all the disks are diagnosed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diagnosis, err := rescue.Diagnose(cmd.Context(), args, diskOptions(), rescueOptions()...)
		if err != nil {
			return err
		}

		if rootCmdFlags.output == outputYAML {
			return printYAML(os.Stdout, diagnosis)
		}

		w := newTabWriter(os.Stdout)

		printRow(w, "DEV", "NUMBER", "START", "END", "STATE")

		for _, d := range diagnosis {
			if d.Error != "" {
				printRow(w, d.Device, "-", "-", "-", "error: "+d.Error)

				continue
			}

			for _, p := range d.Partitions {
				printRow(w, d.Device, p.Number, p.Start, p.End, "partition")
			}

			for _, p := range d.Rescuable {
				printRow(w, d.Device, "-", p.Start, p.End, "free")
			}
		}

		return w.Flush()
	},
}

func init() {
	addCommand(diagnoseCmd)
}
