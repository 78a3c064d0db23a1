// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package mbr implements read/write support for MS-DOS partition tables,
// including logical partitions in the extended partition.
package mbr

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/siderolabs/go-partrescue/geometry"
	"github.com/siderolabs/go-partrescue/internal/ioutil"
	"github.com/siderolabs/go-partrescue/partitioning"
)

const (
	entriesOffset      = 446
	entrySize          = 16
	signatureOffset    = 510
	diskSignatureStart = 440

	numPrimary   = 4
	firstLogical = 5
	// maxLogicals bounds the EBR chain walk.
	maxLogicals = 252
)

// Common errors.
var (
	ErrNoTable         = errors.New("no MS-DOS partition table found")
	ErrExtendedExists  = errors.New("extended partition already exists")
	ErrExtendedInUse   = errors.New("extended partition contains logical partitions")
	ErrNoExtended      = errors.New("no extended partition")
	ErrOutOfAddressing = errors.New("partition is beyond 32-bit LBA addressing")
)

// Partition is a single partition in the MS-DOS table.
type Partition struct {
	Type     byte
	Bootable bool

	FirstLBA uint64
	LastLBA  uint64

	// ebrLBA is the sector of the extended boot record of a logical partition.
	ebrLBA uint64
}

func (p *Partition) rng() geometry.Range {
	return geometry.Range{Start: p.FirstLBA, End: p.LastLBA}
}

// Table is a wrapper type around MS-DOS partition table.
type Table struct {
	dev partitioning.Device

	// primary partitions are indexed by the slot, missing entries are nil.
	primary [numPrimary]*Partition
	// logical partitions are sorted by the start sector.
	logical []*Partition

	options Options

	totalSectors  uint64
	sectorSize    uint
	diskSignature uint32
}

var _ partitioning.Table = (*Table)(nil)

// New creates a new (empty) partition table for a specified device.
func New(dev partitioning.Device, opts ...Option) (*Table, error) {
	t, err := newTable(dev, opts...)
	if err != nil {
		return nil, err
	}

	t.diskSignature = t.options.DiskSignature

	return t, nil
}

func newTable(dev partitioning.Device, opts ...Option) (*Table, error) {
	var options Options

	for _, opt := range opts {
		opt(&options)
	}

	sectorSize := dev.GetSectorSize()
	totalSectors := dev.GetSize() / uint64(sectorSize)

	if totalSectors < 2 {
		return nil, errors.New("device too small for MS-DOS partition table")
	}

	return &Table{
		dev:          dev,
		options:      options,
		sectorSize:   sectorSize,
		totalSectors: totalSectors,
	}, nil
}

type rawEntry struct {
	status byte
	typ    byte
	start  uint32
	length uint32
}

func parseEntry(b []byte) rawEntry {
	return rawEntry{
		status: b[0],
		typ:    b[4],
		start:  binary.LittleEndian.Uint32(b[8:12]),
		length: binary.LittleEndian.Uint32(b[12:16]),
	}
}

func (e rawEntry) empty() bool {
	return e.typ == TypeEmpty || e.length == 0
}

func (t *Table) readSector(lba uint64) ([]byte, error) {
	return ioutil.ReadSectors(t.dev, t.sectorSize, lba, 1)
}

func hasSignature(buf []byte) bool {
	return buf[signatureOffset] == 0x55 && buf[signatureOffset+1] == 0xaa
}

// Read reads the partition table from the device.
func Read(dev partitioning.Device, opts ...Option) (*Table, error) {
	t, err := newTable(dev, opts...)
	if err != nil {
		return nil, err
	}

	buf, err := t.readSector(0)
	if err != nil {
		return nil, err
	}

	if !hasSignature(buf) {
		return nil, fmt.Errorf("%w: boot signature missing", ErrNoTable)
	}

	t.diskSignature = binary.LittleEndian.Uint32(buf[diskSignatureStart : diskSignatureStart+4])

	for slot := range numPrimary {
		e := parseEntry(buf[entriesOffset+slot*entrySize:])
		if e.empty() {
			continue
		}

		if e.typ == TypeProtective {
			return nil, fmt.Errorf("%w: protective MBR found", ErrNoTable)
		}

		p := &Partition{
			Type:     e.typ,
			Bootable: e.status == 0x80,
			FirstLBA: uint64(e.start),
			LastLBA:  uint64(e.start) + uint64(e.length) - 1,
		}

		if p.LastLBA >= t.totalSectors {
			return nil, fmt.Errorf("partition %d %s is outside of the device", slot+1, p.rng())
		}

		t.primary[slot] = p
	}

	if ext, _ := t.extended(); ext != nil {
		if err = t.readLogicals(ext); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Table) readLogicals(ext *Partition) error {
	ebr := ext.FirstLBA

	for range maxLogicals {
		buf, err := t.readSector(ebr)
		if err != nil {
			return err
		}

		if !hasSignature(buf) {
			break
		}

		e := parseEntry(buf[entriesOffset:])
		if !e.empty() {
			p := &Partition{
				Type:     e.typ,
				Bootable: e.status == 0x80,
				FirstLBA: ebr + uint64(e.start),
				LastLBA:  ebr + uint64(e.start) + uint64(e.length) - 1,
				ebrLBA:   ebr,
			}

			if p.FirstLBA <= ebr || !p.rng().Inside(ext.rng()) {
				return fmt.Errorf("logical partition %s is outside of the extended partition %s", p.rng(), ext.rng())
			}

			t.logical = append(t.logical, p)
		}

		link := parseEntry(buf[entriesOffset+entrySize:])
		if link.empty() || !IsExtended(link.typ) {
			break
		}

		next := ext.FirstLBA + uint64(link.start)
		if next <= ebr || next > ext.LastLBA {
			return fmt.Errorf("invalid EBR chain link at sector %d", ebr)
		}

		ebr = next
	}

	slices.SortFunc(t.logical, func(a, b *Partition) int {
		return cmp.Compare(a.FirstLBA, b.FirstLBA)
	})

	// the chain always starts at the beginning of the extended partition
	if len(t.logical) > 0 {
		t.logical[0].ebrLBA = ext.FirstLBA
	}

	return nil
}

// Type implements partitioning.Table.
func (t *Table) Type() string {
	return "msdos"
}

// SectorSize implements partitioning.Table.
func (t *Table) SectorSize() uint {
	return t.sectorSize
}

// TotalSectors implements partitioning.Table.
func (t *Table) TotalSectors() uint64 {
	return t.totalSectors
}

// DiskSignature returns the disk signature (identifier).
func (t *Table) DiskSignature() uint32 {
	return t.diskSignature
}

// region returns the sectors addressable by the partitions, sector 0 holds the table.
func (t *Table) region() geometry.Range {
	return geometry.Range{Start: 1, End: min(t.totalSectors-1, math.MaxUint32)}
}

func (t *Table) extended() (*Partition, int) {
	for slot, p := range t.primary {
		if p != nil && IsExtended(p.Type) {
			return p, slot
		}
	}

	return nil, -1
}

// Extended implements partitioning.Table.
func (t *Table) Extended() (geometry.Range, bool) {
	ext, _ := t.extended()
	if ext == nil {
		return geometry.Range{}, false
	}

	return ext.rng(), true
}

func (t *Table) primaryEntry(slot int) partitioning.Entry {
	p := t.primary[slot]

	kind := partitioning.KindPrimary
	if IsExtended(p.Type) {
		kind = partitioning.KindExtended
	}

	return partitioning.Entry{
		Number:     slot + 1,
		Kind:       kind,
		Range:      p.rng(),
		Filesystem: filesystemHint(p.Type),
	}
}

func (t *Table) logicalEntry(idx int) partitioning.Entry {
	p := t.logical[idx]

	return partitioning.Entry{
		Number:     idx + firstLogical,
		Kind:       partitioning.KindLogical,
		Range:      p.rng(),
		Filesystem: filesystemHint(p.Type),
	}
}

// Entries implements partitioning.Table.
func (t *Table) Entries() []partitioning.Entry {
	var result []partitioning.Entry

	for slot, p := range t.primary {
		if p != nil {
			result = append(result, t.primaryEntry(slot))
		}
	}

	for idx := range t.logical {
		result = append(result, t.logicalEntry(idx))
	}

	slices.SortStableFunc(result, func(a, b partitioning.Entry) int {
		return cmp.Compare(a.Range.Start, b.Range.Start)
	})

	return result
}

// Layout implements partitioning.Table.
func (t *Table) Layout() []partitioning.Entry {
	layout := t.Entries()

	for _, gap := range t.primaryGaps(-1) {
		layout = append(layout, partitioning.Entry{Number: partitioning.FreeNumber, Kind: partitioning.KindPrimary, Range: gap})
	}

	if ext, _ := t.extended(); ext != nil {
		for _, gap := range t.logicalGaps(ext) {
			layout = append(layout, partitioning.Entry{Number: partitioning.FreeNumber, Kind: partitioning.KindLogical, Range: gap})
		}
	}

	slices.SortStableFunc(layout, func(a, b partitioning.Entry) int {
		return cmp.Compare(a.Range.Start, b.Range.Start)
	})

	return layout
}

// primaryGaps returns the free space outside of the primary (and extended) partitions.
func (t *Table) primaryGaps(ignoreSlot int) []geometry.Range {
	var used []geometry.Range

	for slot, p := range t.primary {
		if p != nil && slot != ignoreSlot {
			used = append(used, p.rng())
		}
	}

	return partitioning.FreeSpace(t.region(), used)
}

// logicalGaps returns the free space in the extended partition usable by new logical partitions.
//
// Every logical partition is preceded by its EBR, so the first sector of each gap is reserved.
func (t *Table) logicalGaps(ext *Partition) []geometry.Range {
	used := make([]geometry.Range, 0, len(t.logical))

	for _, l := range t.logical {
		used = append(used, geometry.Range{Start: l.ebrLBA, End: l.LastLBA})
	}

	var gaps []geometry.Range

	for _, gap := range partitioning.FreeSpace(ext.rng(), used) {
		if gap.Start < gap.End {
			gaps = append(gaps, geometry.Range{Start: gap.Start + 1, End: gap.End})
		}
	}

	return gaps
}

// logicalResizeGap returns the space a logical partition can occupy without moving its EBR.
func (t *Table) logicalResizeGap(ext *Partition, idx int) geometry.Range {
	gap := geometry.Range{Start: t.logical[idx].ebrLBA + 1, End: ext.LastLBA}

	if idx+1 < len(t.logical) {
		gap.End = t.logical[idx+1].ebrLBA - 1
	}

	return gap
}

// AddPartition implements partitioning.Table.
//
// Primary and extended partitions take the lowest free slot, logical partitions
// are numbered in the on-disk order starting with 5.
func (t *Table) AddPartition(kind partitioning.Kind, want geometry.Range, c geometry.Constraint) (partitioning.Entry, error) {
	switch kind {
	case partitioning.KindPrimary, partitioning.KindExtended:
		return t.addPrimary(kind, want, c)
	case partitioning.KindLogical:
		return t.addLogical(want, c)
	default:
		return partitioning.Entry{}, fmt.Errorf("%w: %s", partitioning.ErrUnsupportedKind, kind)
	}
}

func (t *Table) addPrimary(kind partitioning.Kind, want geometry.Range, c geometry.Constraint) (partitioning.Entry, error) {
	typ := TypeLinux

	if kind == partitioning.KindExtended {
		if ext, _ := t.extended(); ext != nil {
			return partitioning.Entry{}, ErrExtendedExists
		}

		typ = TypeExtendedLBA
	}

	slot := slices.Index(t.primary[:], nil)
	if slot == -1 {
		return partitioning.Entry{}, partitioning.ErrNoFreeSlot
	}

	r, err := partitioning.Place(t.primaryGaps(-1), want, c)
	if err != nil {
		return partitioning.Entry{}, err
	}

	t.primary[slot] = &Partition{
		Type:     typ,
		FirstLBA: r.Start,
		LastLBA:  r.End,
	}

	return t.primaryEntry(slot), nil
}

func (t *Table) addLogical(want geometry.Range, c geometry.Constraint) (partitioning.Entry, error) {
	ext, _ := t.extended()
	if ext == nil {
		return partitioning.Entry{}, fmt.Errorf("%w: %w", partitioning.ErrUnsupportedKind, ErrNoExtended)
	}

	if len(t.logical) >= maxLogicals {
		return partitioning.Entry{}, partitioning.ErrNoFreeSlot
	}

	r, err := partitioning.Place(t.logicalGaps(ext), want, c)
	if err != nil {
		return partitioning.Entry{}, err
	}

	idx, _ := slices.BinarySearchFunc(t.logical, r.Start, func(p *Partition, start uint64) int {
		return cmp.Compare(p.FirstLBA, start)
	})

	p := &Partition{
		Type:     TypeLinux,
		FirstLBA: r.Start,
		LastLBA:  r.End,
		ebrLBA:   r.Start - 1,
	}

	if idx == 0 {
		p.ebrLBA = ext.FirstLBA
	}

	t.logical = slices.Insert(t.logical, idx, p)

	return t.logicalEntry(idx), nil
}

// lookup returns the primary slot or the logical index of the partition.
func (t *Table) lookup(number int) (slot, idx int, err error) {
	switch {
	case number >= 1 && number <= numPrimary && t.primary[number-1] != nil:
		return number - 1, -1, nil
	case number >= firstLogical && number-firstLogical < len(t.logical):
		return -1, number - firstLogical, nil
	default:
		return -1, -1, fmt.Errorf("%w: %d", partitioning.ErrNoSuchPartition, number)
	}
}

// SetPartitionGeometry implements partitioning.Table.
//
// Extended partition can't be resized.
func (t *Table) SetPartitionGeometry(number int, c geometry.Constraint, want geometry.Range) (partitioning.Entry, error) {
	slot, idx, err := t.lookup(number)
	if err != nil {
		return partitioning.Entry{}, err
	}

	if slot >= 0 {
		p := t.primary[slot]

		if IsExtended(p.Type) {
			return partitioning.Entry{}, fmt.Errorf("%w: resizing the extended partition", partitioning.ErrUnsupportedKind)
		}

		r, err := partitioning.Place(t.primaryGaps(slot), want, c)
		if err != nil {
			return partitioning.Entry{}, err
		}

		p.FirstLBA, p.LastLBA = r.Start, r.End

		return t.primaryEntry(slot), nil
	}

	ext, _ := t.extended()

	r, err := partitioning.Place([]geometry.Range{t.logicalResizeGap(ext, idx)}, want, c)
	if err != nil {
		return partitioning.Entry{}, err
	}

	p := t.logical[idx]
	p.FirstLBA, p.LastLBA = r.Start, r.End

	return t.logicalEntry(idx), nil
}

// SetPartitionFilesystem implements partitioning.Table.
func (t *Table) SetPartitionFilesystem(number int, fs string) error {
	slot, idx, err := t.lookup(number)
	if err != nil {
		return err
	}

	p := t.partition(slot, idx)

	if IsExtended(p.Type) {
		return fmt.Errorf("%w: extended partition has no filesystem", partitioning.ErrUnsupportedKind)
	}

	p.Type = TypeForFilesystem(fs)

	return nil
}

func (t *Table) partition(slot, idx int) *Partition {
	if slot >= 0 {
		return t.primary[slot]
	}

	return t.logical[idx]
}

// RemovePartition implements partitioning.Table.
//
// Logical partitions after the removed one are renumbered.
func (t *Table) RemovePartition(number int) error {
	slot, idx, err := t.lookup(number)
	if err != nil {
		return err
	}

	if slot >= 0 {
		if IsExtended(t.primary[slot].Type) && len(t.logical) > 0 {
			return ErrExtendedInUse
		}

		t.primary[slot] = nil

		return nil
	}

	t.logical = slices.Delete(t.logical, idx, idx+1)

	if idx == 0 && len(t.logical) > 0 {
		ext, _ := t.extended()
		t.logical[0].ebrLBA = ext.FirstLBA
	}

	return nil
}

// Partitions returns primary partitions (indexed by slot) and logical partitions (in on-disk order).
func (t *Table) Partitions() ([numPrimary]*Partition, []*Partition) {
	return t.primary, slices.Clone(t.logical)
}
