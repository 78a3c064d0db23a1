// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import "github.com/google/uuid"

// Well-known partition type GUIDs.
var (
	TypeLinuxFilesystem = uuid.MustParse("0FC63DAF-8483-4772-8E79-3D69D8477DE4")
	TypeLinuxSwap       = uuid.MustParse("0657FD6D-A4AB-43C4-84E5-0933C84B4F4F")
	TypeLinuxLUKS       = uuid.MustParse("CA7D7CCB-63ED-4C53-861C-1742536059CC")
	TypeBasicData       = uuid.MustParse("EBD0A0A2-B9E5-4433-87C0-68B6B72699C7")
	TypeEFISystem       = uuid.MustParse("C12A7328-F81F-11D2-BA4B-00A0C93EC93B")
)

// TypeForFilesystem returns the partition type GUID for the filesystem name.
func TypeForFilesystem(fs string) uuid.UUID {
	switch fs {
	case "swap":
		return TypeLinuxSwap
	case "vfat":
		return TypeBasicData
	case "luks":
		return TypeLinuxLUKS
	default:
		return TypeLinuxFilesystem
	}
}

func filesystemHint(typeGUID uuid.UUID) string {
	switch typeGUID {
	case TypeLinuxFilesystem:
		return "linux"
	case TypeLinuxSwap:
		return "swap"
	case TypeLinuxLUKS:
		return "luks"
	case TypeBasicData, TypeEFISystem:
		return "vfat"
	default:
		return ""
	}
}
