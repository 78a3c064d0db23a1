// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/siderolabs/go-partrescue/rescue"
)

var rescueCmdFlags struct {
	fromFile string
}

var rescueCmd = &cobra.Command{
	Use:   "rescue <device> [number:start:end...]",
	Short: "Recover lost partitions within the given regions",
	Long: `Every region is searched for a filesystem starting within its first tenth.
Found filesystems are added to the partition table, with the partition covering exactly the filesystem.

Regions are given as number:start:end in sectors, or as a YAML list of {number, start, end} with --from-file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidates, err := loadCandidates(args[1:])
		if err != nil {
			return err
		}

		if len(candidates) == 0 {
			return fmt.Errorf("no regions to rescue")
		}

		recovered, err := rescue.Rescue(cmd.Context(), args[0], candidates, rescueOptions()...)
		if len(recovered) > 0 {
			if printErr := printTriples(os.Stdout, args[0], recovered, sectorSize(args[0])); printErr != nil && err == nil {
				err = printErr
			}
		}

		return err
	},
}

func loadCandidates(specs []string) ([]rescue.Candidate, error) {
	var candidates []rescue.Candidate

	if rescueCmdFlags.fromFile != "" {
		in, err := os.ReadFile(rescueCmdFlags.fromFile)
		if err != nil {
			return nil, err
		}

		var triples []rescue.Triple

		if err = yaml.Unmarshal(in, &triples); err != nil {
			return nil, fmt.Errorf("error parsing %q: %w", rescueCmdFlags.fromFile, err)
		}

		for _, t := range triples {
			c, err := rescue.NewCandidate(t.Number, t.Start, t.End)
			if err != nil {
				return nil, err
			}

			candidates = append(candidates, c)
		}
	}

	for _, spec := range specs {
		c, err := rescue.ParseCandidateSpec(spec)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, c)
	}

	return candidates, nil
}

func init() {
	rescueCmd.Flags().StringVar(&rescueCmdFlags.fromFile, "from-file", "", "read the regions from a YAML file")
	addCommand(rescueCmd)
}
