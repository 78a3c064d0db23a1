// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package backup saves and loads partition list backups.
//
// Backups are YAML documents, optionally compressed with zstd.
package backup

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/klauspost/compress/zstd"
	"github.com/siderolabs/gen/xslices"
	"gopkg.in/yaml.v3"

	"github.com/siderolabs/go-partrescue/partitioning"
	"github.com/siderolabs/go-partrescue/rescue"
)

// Version is the current document version.
const Version = 1

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ErrUnsupportedVersion is returned when the document was written by a newer version.
var ErrUnsupportedVersion = errors.New("unsupported backup version")

// Partition is a single partition in the backup.
type Partition struct {
	Number     int    `yaml:"number"`
	Start      uint64 `yaml:"start"`
	End        uint64 `yaml:"end"`
	Kind       string `yaml:"kind"`
	Filesystem string `yaml:"filesystem,omitempty"`
}

// Document is the partition list of a single device.
type Document struct {
	Version      int         `yaml:"version"`
	Device       string      `yaml:"device"`
	SectorSize   uint        `yaml:"sectorSize"`
	TotalSectors uint64      `yaml:"totalSectors"`
	TableType    string      `yaml:"tableType"`
	Partitions   []Partition `yaml:"partitions"`
}

// New creates a document from the partition table entries.
//
// Free space entries are skipped.
func New(device string, sectorSize uint, totalSectors uint64, tableType string, entries []partitioning.Entry) Document {
	return Document{
		Version:      Version,
		Device:       device,
		SectorSize:   sectorSize,
		TotalSectors: totalSectors,
		TableType:    tableType,
		Partitions: xslices.Map(
			xslices.Filter(entries, func(e partitioning.Entry) bool { return !e.IsFree() }),
			func(e partitioning.Entry) Partition {
				return Partition{
					Number:     e.Number,
					Start:      e.Range.Start,
					End:        e.Range.End,
					Kind:       e.Kind.String(),
					Filesystem: e.Filesystem,
				}
			},
		),
	}
}

// Capture reads the partition table of the device into a document.
func Capture(ctx context.Context, path string, opts ...rescue.Option) (Document, error) {
	var doc Document

	err := rescue.WithSession(ctx, path, func(s *rescue.Session) error {
		table := s.Table()
		doc = New(path, table.SectorSize(), table.TotalSectors(), table.Type(), table.Entries())

		return nil
	}, append(slices.Clone(opts), rescue.WithReadOnly(true))...)

	return doc, err
}

// Triples returns the partitions in the shape accepted by rescue.Restore.
//
// The extended partition holds no filesystem, so it's skipped.
func (doc Document) Triples() []rescue.Triple {
	return xslices.Map(
		xslices.Filter(doc.Partitions, func(p Partition) bool {
			return p.Kind != partitioning.KindExtended.String()
		}),
		func(p Partition) rescue.Triple {
			return rescue.Triple{Number: p.Number, Start: p.Start, End: p.End}
		},
	)
}

// Write encodes the document to w.
func Write(w io.Writer, doc Document, compress bool) error {
	if compress {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}

		if err = encode(zw, doc); err != nil {
			zw.Close() //nolint:errcheck

			return err
		}

		return zw.Close()
	}

	return encode(w, doc)
}

func encode(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	return enc.Close()
}

// Read decodes the document from r, zstd-compressed documents are detected automatically.
func Read(r io.Reader) (Document, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("failed to read backup: %w", err)
	}

	var in io.Reader = br

	if bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return Document{}, fmt.Errorf("failed to create zstd reader: %w", err)
		}

		defer zr.Close()

		in = zr
	}

	var doc Document

	if err = yaml.NewDecoder(in).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode backup: %w", err)
	}

	if doc.Version > Version {
		return Document{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	return doc, nil
}
