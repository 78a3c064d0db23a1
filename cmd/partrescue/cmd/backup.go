// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/go-partrescue/backup"
	"github.com/siderolabs/go-partrescue/rescue"
)

var backupCmdFlags struct {
	out      string
	compress bool
}

var backupCmd = &cobra.Command{
	Use:   "backup <device>",
	Short: "Save the partition list of the device",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		doc, err := backup.Capture(cmd.Context(), args[0], rescueOptions()...)
		if err != nil {
			return err
		}

		var w io.Writer = os.Stdout

		if backupCmdFlags.out != "" && backupCmdFlags.out != "-" {
			f, createErr := os.Create(backupCmdFlags.out)
			if createErr != nil {
				return createErr
			}

			defer func() {
				if closeErr := f.Close(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			w = f
		}

		return backup.Write(w, doc, backupCmdFlags.compress)
	},
}

var restoreCmdFlags struct {
	from string
}

var restoreCmd = &cobra.Command{
	Use:   "restore <device>",
	Short: "Rescue the partitions from the backup which are missing on the device",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(restoreCmdFlags.from)
		if err != nil {
			return err
		}

		defer f.Close() //nolint:errcheck

		doc, err := backup.Read(f)
		if err != nil {
			return err
		}

		if doc.Device != args[0] {
			logger.Warn("backup was taken from another device", zap.String("backup_device", doc.Device), zap.String("device", args[0]))
		}

		size := sectorSize(args[0])

		if doc.SectorSize != 0 && uint64(doc.SectorSize) != size {
			return fmt.Errorf("backup sector size %d doesn't match device sector size %d", doc.SectorSize, size)
		}

		restored, err := rescue.Restore(cmd.Context(), args[0], doc.Triples(), rescueOptions()...)
		if len(restored) > 0 {
			if printErr := printTriples(os.Stdout, args[0], restored, size); printErr != nil && err == nil {
				err = printErr
			}
		}

		return err
	},
}

func init() {
	backupCmd.Flags().StringVarP(&backupCmdFlags.out, "out", "f", "", "output file (stdout by default)")
	backupCmd.Flags().BoolVar(&backupCmdFlags.compress, "zstd", false, "compress the backup with zstd")
	addCommand(backupCmd)

	restoreCmd.Flags().StringVar(&restoreCmdFlags.from, "from", "", "backup file")
	restoreCmd.MarkFlagRequired("from") //nolint:errcheck
	addCommand(restoreCmd)
}
