// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	humanize "github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/siderolabs/go-partrescue/partitioning"
	"github.com/siderolabs/go-partrescue/rescue"
)

const (
	outputTable = "table"
	outputYAML  = "yaml"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}

func printRow(w io.Writer, args ...any) {
	pattern := strings.TrimSpace(strings.Repeat("%v\t", len(args))) + "\n"

	fmt.Fprintf(w, pattern, args...)
}

// printTriples prints partitions (or free space slots) of the device with their sizes.
func printTriples(w io.Writer, device string, triples []rescue.Triple, sectorSize uint64) error {
	if rootCmdFlags.output == outputYAML {
		return printYAML(w, triples)
	}

	tw := newTabWriter(w)

	printRow(tw, "DEV", "NUMBER", "START", "END", "SIZE")

	for _, t := range triples {
		dev := "-"
		if t.Number > 0 {
			dev = partitioning.DevName(device, uint(t.Number))
		}

		printRow(tw, dev, t.Number, t.Start, t.End, humanize.IBytes((t.End-t.Start+1)*sectorSize))
	}

	return tw.Flush()
}
