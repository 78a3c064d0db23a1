// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mbr

// Partition type bytes.
const (
	TypeEmpty       byte = 0x00
	TypeFAT16       byte = 0x06
	TypeFAT32LBA    byte = 0x0c
	TypeExtended    byte = 0x05
	TypeExtendedLBA byte = 0x0f
	TypeLinuxSwap   byte = 0x82
	TypeLinux       byte = 0x83
	TypeLinuxExt    byte = 0x85
	TypeLUKS        byte = 0xe8
	TypeProtective  byte = 0xee
)

// IsExtended returns true for the types which describe an extended partition.
func IsExtended(typ byte) bool {
	return typ == TypeExtended || typ == TypeExtendedLBA || typ == TypeLinuxExt
}

// TypeForFilesystem returns the partition type byte for the filesystem name.
func TypeForFilesystem(fs string) byte {
	switch fs {
	case "swap":
		return TypeLinuxSwap
	case "vfat":
		return TypeFAT32LBA
	case "luks":
		return TypeLUKS
	default:
		return TypeLinux
	}
}

func filesystemHint(typ byte) string {
	switch typ {
	case TypeLinux:
		return "linux"
	case TypeLinuxSwap:
		return "swap"
	case TypeLUKS:
		return "luks"
	case 0x01, 0x04, TypeFAT16, 0x0b, TypeFAT32LBA, 0x0e, 0xef:
		return "vfat"
	default:
		return ""
	}
}
