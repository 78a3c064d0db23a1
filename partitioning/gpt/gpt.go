// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gpt implements read/write support for GPT partition tables.
package gpt

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"

	"github.com/siderolabs/go-partrescue/geometry"
	"github.com/siderolabs/go-partrescue/internal/gptstructs"
	"github.com/siderolabs/go-partrescue/internal/gptutil"
	"github.com/siderolabs/go-partrescue/internal/ioutil"
	"github.com/siderolabs/go-partrescue/partitioning"
)

// ErrNoHeader is returned by Read when neither primary nor backup GPT header is valid.
var ErrNoHeader = errors.New("no GPT header found")

// Table is a wrapper type around GPT partition table.
type Table struct {
	dev partitioning.Device
	// partition entries are indexed with the partition number.
	//
	// if the partition is missing, its entry is `nil`.
	entries []*Partition

	lastLBA uint64

	primaryHeaderLBA, secondaryHeaderLBA         uint64
	primaryPartitionsLBA, secondaryPartitionsLBA uint64
	firstUsableLBA, lastUsableLBA                uint64

	diskGUID uuid.UUID

	options Options

	sectorSize uint
}

var _ partitioning.Table = (*Table)(nil)

// Partition is a single partition entry in GPT.
type Partition struct {
	Name string

	TypeGUID uuid.UUID
	PartGUID uuid.UUID

	FirstLBA uint64
	LastLBA  uint64

	Flags uint64
}

func (p *Partition) rng() geometry.Range {
	return geometry.Range{Start: p.FirstLBA, End: p.LastLBA}
}

// New creates a new (empty) partition table for a specified device.
func New(dev partitioning.Device, opts ...Option) (*Table, error) {
	var options Options

	for _, opt := range opts {
		opt(&options)
	}

	lastLBA, err := deviceLastLBA(dev)
	if err != nil {
		return nil, err
	}

	diskGUID := options.DiskGUID
	if diskGUID == uuid.Nil {
		diskGUID = uuid.New()
	}

	t := &Table{
		dev:      dev,
		options:  options,
		diskGUID: diskGUID,
	}

	t.init(lastLBA)

	return t, nil
}

func deviceLastLBA(dev partitioning.Device) (uint64, error) {
	lastLBA, ok := gptutil.LastLBA(dev)
	if !ok {
		return 0, errors.New("failed to calculate last LBA (device too small?)")
	}

	if lastLBA < gptstructs.MinLastLBA(dev.GetSectorSize()) {
		return 0, errors.New("device too small for GPT")
	}

	return lastLBA, nil
}

// Read reads the partition table from the device.
//
// If the primary header is damaged, the backup header is used.
func Read(dev partitioning.Device, opts ...Option) (*Table, error) {
	var options Options

	for _, opt := range opts {
		opt(&options)
	}

	lastLBA, err := deviceLastLBA(dev)
	if err != nil {
		return nil, err
	}

	hdr, entries, primaryErr := gptstructs.ReadHeader(dev, 1, lastLBA)
	if primaryErr != nil {
		if !errors.Is(primaryErr, gptstructs.ErrInvalidHeader) {
			return nil, primaryErr
		}

		var backupErr error

		hdr, entries, backupErr = gptstructs.ReadHeader(dev, lastLBA, lastLBA)
		if backupErr != nil {
			if !errors.Is(backupErr, gptstructs.ErrInvalidHeader) {
				return nil, backupErr
			}

			return nil, fmt.Errorf("%w: %w; %w", ErrNoHeader, primaryErr, backupErr)
		}
	}

	diskGUID, err := uuid.FromBytes(gptutil.GUIDToUUID(hdr.Get_disk_guid()))
	if err != nil {
		return nil, err
	}

	t := &Table{
		dev:      dev,
		options:  options,
		diskGUID: diskGUID,
	}

	t.init(lastLBA)

	// decode entries
	partitions := make([]*Partition, len(entries))

	zeroGUID := make([]byte, 16)
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

	lastFilledIdx := -1

	for idx, entry := range entries {
		if entry.Get_starting_lba() < t.firstUsableLBA || entry.Get_ending_lba() > t.lastUsableLBA ||
			entry.Get_starting_lba() > entry.Get_ending_lba() {
			continue
		}

		// skip zero GUIDs
		if bytes.Equal(entry.Get_partition_type_guid(), zeroGUID) {
			continue
		}

		partUUID, err := uuid.FromBytes(gptutil.GUIDToUUID(entry.Get_unique_partition_guid()))
		if err != nil {
			return nil, err
		}

		typeUUID, err := uuid.FromBytes(gptutil.GUIDToUUID(entry.Get_partition_type_guid()))
		if err != nil {
			return nil, err
		}

		name, err := utf16.NewDecoder().Bytes(entry.Get_partition_name())
		if err != nil {
			return nil, err
		}

		name = bytes.TrimRight(name, "\x00")

		partitions[idx] = &Partition{
			Name: string(name),

			TypeGUID: typeUUID,
			PartGUID: partUUID,

			FirstLBA: entry.Get_starting_lba(),
			LastLBA:  entry.Get_ending_lba(),

			Flags: entry.Get_attributes(),
		}

		lastFilledIdx = idx
	}

	if lastFilledIdx >= 0 {
		t.entries = partitions[:lastFilledIdx+1]
	}

	return t, nil
}

func (t *Table) init(lastLBA uint64) {
	t.lastLBA = lastLBA
	t.sectorSize = t.dev.GetSectorSize()

	lbasForEntries := gptstructs.EntriesLBAs(t.sectorSize)

	t.primaryHeaderLBA = uint64(1)
	t.secondaryHeaderLBA = lastLBA

	t.primaryPartitionsLBA = t.primaryHeaderLBA + 1 + uint64(t.options.SkipLBAs)
	t.secondaryPartitionsLBA = t.secondaryHeaderLBA - lbasForEntries

	t.firstUsableLBA = t.primaryPartitionsLBA + lbasForEntries
	t.lastUsableLBA = t.secondaryPartitionsLBA - 1
}

// Type implements partitioning.Table.
func (t *Table) Type() string {
	return "gpt"
}

// SectorSize implements partitioning.Table.
func (t *Table) SectorSize() uint {
	return t.sectorSize
}

// TotalSectors implements partitioning.Table.
func (t *Table) TotalSectors() uint64 {
	return t.lastLBA + 1
}

// DiskGUID returns the disk GUID.
func (t *Table) DiskGUID() uuid.UUID {
	return t.diskGUID
}

// UsableRange returns the range of LBAs available for partitions.
func (t *Table) UsableRange() geometry.Range {
	return geometry.Range{Start: t.firstUsableLBA, End: t.lastUsableLBA}
}

// Partitions returns the list of partitions in the table.
//
// The returned list should not be modified.
// Partitions in the list are zero-indexed, while
// Linux kernel partitions are one-indexed.
func (t *Table) Partitions() []*Partition {
	return slices.Clone(t.entries)
}

// Entries implements partitioning.Table.
func (t *Table) Entries() []partitioning.Entry {
	var result []partitioning.Entry

	for idx, p := range t.entries {
		if p == nil {
			continue
		}

		result = append(result, partitioning.Entry{
			Number:     idx + 1,
			Kind:       partitioning.KindPrimary,
			Range:      p.rng(),
			Filesystem: filesystemHint(p.TypeGUID),
		})
	}

	slices.SortFunc(result, func(a, b partitioning.Entry) int {
		return cmp.Compare(a.Range.Start, b.Range.Start)
	})

	return result
}

// Layout implements partitioning.Table.
func (t *Table) Layout() []partitioning.Entry {
	return partitioning.BuildLayout(t.UsableRange(), partitioning.KindPrimary, t.Entries())
}

// Extended implements partitioning.Table.
//
// GPT has no extended partitions.
func (t *Table) Extended() (geometry.Range, bool) {
	return geometry.Range{}, false
}

// freeSpace returns the unallocated ranges, ignoring the partition with the specified index.
func (t *Table) freeSpace(ignoreIdx int) []geometry.Range {
	used := make([]geometry.Range, 0, len(t.entries))

	for idx, p := range t.entries {
		if p == nil || idx == ignoreIdx {
			continue
		}

		used = append(used, p.rng())
	}

	return partitioning.FreeSpace(t.UsableRange(), used)
}

// AddPartition implements partitioning.Table.
//
// New partitions get the lowest free partition number and Linux filesystem type.
func (t *Table) AddPartition(kind partitioning.Kind, want geometry.Range, c geometry.Constraint) (partitioning.Entry, error) {
	if kind != partitioning.KindPrimary {
		return partitioning.Entry{}, fmt.Errorf("%w: %s", partitioning.ErrUnsupportedKind, kind)
	}

	r, err := partitioning.Place(t.freeSpace(-1), want, c)
	if err != nil {
		return partitioning.Entry{}, err
	}

	idx := slices.Index(t.entries, nil)
	if idx == -1 {
		if len(t.entries) >= gptstructs.NumEntries {
			return partitioning.Entry{}, partitioning.ErrNoFreeSlot
		}

		t.entries = append(t.entries, nil)
		idx = len(t.entries) - 1
	}

	t.entries[idx] = &Partition{
		TypeGUID: TypeLinuxFilesystem,
		PartGUID: uuid.New(),
		FirstLBA: r.Start,
		LastLBA:  r.End,
	}

	return t.entry(idx), nil
}

func (t *Table) entry(idx int) partitioning.Entry {
	p := t.entries[idx]

	return partitioning.Entry{
		Number:     idx + 1,
		Kind:       partitioning.KindPrimary,
		Range:      p.rng(),
		Filesystem: filesystemHint(p.TypeGUID),
	}
}

func (t *Table) lookup(number int) (int, error) {
	idx := number - 1

	if idx < 0 || idx >= len(t.entries) || t.entries[idx] == nil {
		return 0, fmt.Errorf("%w: %d", partitioning.ErrNoSuchPartition, number)
	}

	return idx, nil
}

// SetPartitionGeometry implements partitioning.Table.
func (t *Table) SetPartitionGeometry(number int, c geometry.Constraint, want geometry.Range) (partitioning.Entry, error) {
	idx, err := t.lookup(number)
	if err != nil {
		return partitioning.Entry{}, err
	}

	r, err := partitioning.Place(t.freeSpace(idx), want, c)
	if err != nil {
		return partitioning.Entry{}, err
	}

	t.entries[idx].FirstLBA = r.Start
	t.entries[idx].LastLBA = r.End

	return t.entry(idx), nil
}

// SetPartitionFilesystem implements partitioning.Table.
func (t *Table) SetPartitionFilesystem(number int, fs string) error {
	idx, err := t.lookup(number)
	if err != nil {
		return err
	}

	t.entries[idx].TypeGUID = TypeForFilesystem(fs)

	return nil
}

// RemovePartition implements partitioning.Table.
func (t *Table) RemovePartition(number int) error {
	idx, err := t.lookup(number)
	if err != nil {
		return err
	}

	t.entries[idx] = nil

	// drop trailing empty slots, so that the table looks the same as if read from disk
	lastFilledIdx := len(t.entries) - 1
	for lastFilledIdx >= 0 && t.entries[lastFilledIdx] == nil {
		lastFilledIdx--
	}

	t.entries = t.entries[:lastFilledIdx+1]

	return nil
}

// Write writes the partition table to the device.
func (t *Table) Write() error {
	// build entries
	entriesBuf := make([]byte, gptstructs.ENTRY_SIZE*gptstructs.NumEntries)

	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

	for i, entry := range t.entries {
		if entry == nil {
			// zeroed entry
			continue
		}

		// write partition entry
		entryBuf := gptstructs.Entry(entriesBuf[i*gptstructs.ENTRY_SIZE : (i+1)*gptstructs.ENTRY_SIZE])
		entryBuf.Put_partition_type_guid(gptutil.UUIDToGUID(entry.TypeGUID[:]))
		entryBuf.Put_unique_partition_guid(gptutil.UUIDToGUID(entry.PartGUID[:]))
		entryBuf.Put_starting_lba(entry.FirstLBA)
		entryBuf.Put_ending_lba(entry.LastLBA)
		entryBuf.Put_attributes(entry.Flags)

		nameBuf, err := utf16.NewEncoder().Bytes([]byte(entry.Name))
		if err != nil {
			return fmt.Errorf("failed to encode partition name: %w", err)
		}

		if len(nameBuf) > 72 {
			return fmt.Errorf("partition name %q too long: %d bytes", entry.Name, len(nameBuf))
		}

		entryBuf.Put_partition_name(nameBuf)
	}

	entriesChecksum := crc32.ChecksumIEEE(entriesBuf)

	// GPT header should occupy whole sector
	header := gptstructs.Header(make([]byte, t.sectorSize))
	header.Put_signature(gptstructs.HeaderSignature)
	header.Put_revision(0x00010000)
	header.Put_header_size(gptstructs.HEADER_SIZE)
	header.Put_first_usable_lba(t.firstUsableLBA)
	header.Put_last_usable_lba(t.lastUsableLBA)
	header.Put_disk_guid(gptutil.UUIDToGUID(t.diskGUID[:]))
	header.Put_num_partition_entries(gptstructs.NumEntries)
	header.Put_sizeof_partition_entry(gptstructs.ENTRY_SIZE)
	header.Put_partition_entry_array_crc32(entriesChecksum)

	// now, primary and secondary headers/entries
	primaryHeader := slices.Clone(header)
	primaryHeader.Put_my_lba(t.primaryHeaderLBA)
	primaryHeader.Put_alternate_lba(t.secondaryHeaderLBA)
	primaryHeader.Put_partition_entries_lba(t.primaryPartitionsLBA)
	primaryHeader.Put_header_crc32(primaryHeader.CalculateChecksum())

	_, err := t.dev.WriteAt(primaryHeader, int64(t.primaryHeaderLBA)*int64(t.sectorSize))
	if err != nil {
		return fmt.Errorf("failed to write primary header: %w", err)
	}

	_, err = t.dev.WriteAt(entriesBuf, int64(t.primaryPartitionsLBA)*int64(t.sectorSize))
	if err != nil {
		return fmt.Errorf("failed to write primary entries: %w", err)
	}

	secondaryHeader := slices.Clone(header)
	secondaryHeader.Put_my_lba(t.secondaryHeaderLBA)
	secondaryHeader.Put_alternate_lba(t.primaryHeaderLBA)
	secondaryHeader.Put_partition_entries_lba(t.secondaryPartitionsLBA)
	secondaryHeader.Put_header_crc32(secondaryHeader.CalculateChecksum())

	_, err = t.dev.WriteAt(secondaryHeader, int64(t.secondaryHeaderLBA)*int64(t.sectorSize))
	if err != nil {
		return fmt.Errorf("failed to write secondary header: %w", err)
	}

	_, err = t.dev.WriteAt(entriesBuf, int64(t.secondaryPartitionsLBA)*int64(t.sectorSize))
	if err != nil {
		return fmt.Errorf("failed to write secondary entries: %w", err)
	}

	if !t.options.SkipPMBR {
		// write protective MBR
		if err = t.writePMBR(); err != nil {
			return err
		}
	}

	return nil
}

func (t *Table) writePMBR() error {
	protectiveMBR := make([]byte, 512)

	if err := ioutil.ReadFullAt(t.dev, protectiveMBR, 0); err != nil {
		return fmt.Errorf("failed to read protective MBR: %w", err)
	}

	// boot signature
	protectiveMBR[510], protectiveMBR[511] = 0x55, 0xAA

	// only a single protective entry is allowed
	clear(protectiveMBR[446:510])

	// PMBR protective entry.
	b := protectiveMBR[446 : 446+16]

	if t.options.MarkPMBRBootable {
		// Some BIOSes in legacy mode won't boot from a disk unless there is at least one
		// partition in the MBR marked bootable.  Mark this partition as bootable.
		b[0] = 0x80
	}

	// Partition type: EFI data partition.
	b[4] = ProtectiveMBRType

	// CHS for the start of the partition
	copy(b[1:4], []byte{0x00, 0x02, 0x00})

	// CHS for the end of the partition
	copy(b[5:8], []byte{0xff, 0xff, 0xff})

	// Partition start LBA.
	binary.LittleEndian.PutUint32(b[8:12], 1)

	// Partition length in sectors.
	// This might overflow uint32, so check accordingly
	if t.lastLBA > math.MaxUint32 {
		binary.LittleEndian.PutUint32(b[12:16], uint32(math.MaxUint32))
	} else {
		binary.LittleEndian.PutUint32(b[12:16], uint32(t.lastLBA))
	}

	_, err := t.dev.WriteAt(protectiveMBR, 0)
	if err != nil {
		return fmt.Errorf("failed to write protective MBR: %w", err)
	}

	return nil
}

// ProtectiveMBRType is the partition type of the protective MBR entry.
const ProtectiveMBRType = 0xee

// SyncKernel implements partitioning.Table.
func (t *Table) SyncKernel() error {
	if t.options.SkipKernelSync {
		return nil
	}

	parts := make(map[int]geometry.Range, len(t.entries))

	for idx, p := range t.entries {
		if p != nil {
			parts[idx+1] = p.rng()
		}
	}

	return partitioning.SyncKernel(t.dev, t.sectorSize, parts)
}
