// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package disk lists and matches disks using /sys/block data.
package disk

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/siderolabs/gen/xslices"
)

// Type is the disk type: HDD, SSD, SD card, NVMe drive.
type Type int

const (
	// TypeUnknown is set when couldn't detect the disk type.
	TypeUnknown Type = iota
	// TypeSSD SATA SSD disk.
	TypeSSD
	// TypeHDD HDD disk.
	TypeHDD
	// TypeNVMe NVMe disk.
	TypeNVMe
	// TypeSD SD card.
	TypeSD
)

func (t Type) String() string {
	//nolint:exhaustive
	switch t {
	case TypeSSD:
		return "ssd"
	case TypeHDD:
		return "hdd"
	case TypeNVMe:
		return "nvme"
	case TypeSD:
		return "sd"
	default:
		return "unknown"
	}
}

// ParseType converts string id to the disk type id.
func ParseType(id string) (Type, error) {
	switch strings.ToLower(id) {
	case "ssd":
		return TypeSSD, nil
	case "hdd":
		return TypeHDD, nil
	case "nvme":
		return TypeNVMe, nil
	case "sd":
		return TypeSD, nil
	}

	return 0, fmt.Errorf("unknown disk type %v", id)
}

// Disk represents disk information obtained by reading /sys/block.
//
//nolint:govet
type Disk struct {
	// DeviceName device name (e.g. /dev/sda).
	DeviceName string
	// Size disk size in bytes.
	Size uint64
	// SectorSize is the logical block size in bytes.
	SectorSize uint64
	// Model from /sys/block/*/device/model.
	Model string
	// Name /sys/block/<dev>/device/name.
	Name string
	// Serial /sys/block/<dev>/device/serial.
	Serial string
	// WWID /sys/block/<dev>/wwid.
	WWID string
	// Type is the disk type: HDD, SSD, SD card, NVMe drive.
	Type Type
	// BusPath PCI bus path.
	BusPath string
	// ReadOnly indicates that the kernel has marked this disk as read-only.
	ReadOnly bool
}

// Options for disk listing.
type Options struct {
	// SysfsRoot is the mount point of sysfs.
	SysfsRoot string
	// IncludeLoop lists loop devices as disks.
	IncludeLoop bool
}

// Option is a functional option for disk listing.
type Option func(*Options)

// WithSysfsRoot overrides the location of sysfs.
func WithSysfsRoot(root string) Option {
	return func(o *Options) {
		o.SysfsRoot = root
	}
}

// WithLoopDevices includes loop devices (attached disk images) into the list.
func WithLoopDevices() Option {
	return func(o *Options) {
		o.IncludeLoop = true
	}
}

func applyOptions(opts ...Option) Options {
	o := Options{
		SysfsRoot: "/sys",
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// List returns list of disks by reading /sys/block.
//
// Devices which can't hold a partition table (optical drives, device-mapper, RAM disks) are skipped,
// as well as disks of zero size.
func List(opts ...Option) ([]*Disk, error) {
	options := applyOptions(opts...)

	sysblock := filepath.Join(options.SysfsRoot, "block")

	devices, err := os.ReadDir(sysblock)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s directory: %w", sysblock, err)
	}

	skipPrefixes := []string{"sg", "sr", "md", "dm-", "ram", "zram"}
	if !options.IncludeLoop {
		skipPrefixes = append(skipPrefixes, "loop")
	}

	disks := []*Disk{}

outer:
	for _, dev := range devices {
		for _, prefix := range skipPrefixes {
			if strings.HasPrefix(dev.Name(), prefix) {
				continue outer
			}
		}

		disk := Get(dev.Name(), opts...)
		if disk.Size == 0 {
			continue
		}

		disks = append(disks, disk)
	}

	return disks, nil
}

// Get gathers disk information from sys block.
func Get(dev string, opts ...Option) *Disk {
	options := applyOptions(opts...)

	sysblock := filepath.Join(options.SysfsRoot, "block")

	dev = filepath.Base(dev)

	fullPath, _ := os.Readlink(filepath.Join(sysblock, dev)) //nolint:errcheck

	busPath := strings.TrimPrefix(fullPath, "../devices")
	busPath = strings.TrimSuffix(busPath, filepath.Join("block", dev))

	readFile := func(parts ...string) string {
		data, err := os.ReadFile(filepath.Join(append([]string{sysblock, dev}, parts...)...))
		if err != nil {
			return ""
		}

		return strings.TrimSpace(string(data))
	}

	firstOf := func(paths ...string) string {
		for _, path := range paths {
			if v := readFile(path); v != "" {
				return v
			}
		}

		return ""
	}

	sectorSize, err := strconv.ParseUint(readFile("queue", "logical_block_size"), 10, 64)
	if err != nil || sectorSize == 0 {
		sectorSize = 512
	}

	// /sys/block/<dev>/size is always in 512-byte units
	var size uint64

	if sectors, err := strconv.ParseUint(readFile("size"), 10, 64); err == nil {
		size = sectors * 512
	}

	diskType := TypeUnknown

	switch rotational := readFile("queue", "rotational"); {
	case strings.HasPrefix(dev, "nvme"):
		diskType = TypeNVMe
	case strings.HasPrefix(dev, "mmc"):
		diskType = TypeSD
	case rotational == "1":
		diskType = TypeHDD
	case rotational == "0":
		diskType = TypeSSD
	}

	return &Disk{
		DeviceName: "/dev/" + dev,
		Size:       size,
		SectorSize: sectorSize,
		Model:      readFile("device", "model"),
		Name:       readFile("device", "name"),
		Serial:     firstOf("serial", "device/serial"),
		WWID:       firstOf("wwid", "device/wwid"),
		Type:       diskType,
		BusPath:    busPath,
		ReadOnly:   readFile("ro") == "1",
	}
}

// Find returns disks matching all the matchers.
func Find(disks []*Disk, matchers ...Matcher) []*Disk {
	return xslices.Filter(disks, func(d *Disk) bool {
		return Match(d, matchers...)
	})
}
