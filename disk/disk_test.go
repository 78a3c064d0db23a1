// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package disk_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/siderolabs/go-partrescue/disk"
)

type DisksSuite struct {
	suite.Suite

	sysfs string
}

func (suite *DisksSuite) writeAttr(dev, attr, value string) {
	path := filepath.Join(suite.sysfs, "block", dev, attr)

	suite.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	suite.Require().NoError(os.WriteFile(path, []byte(value+"\n"), 0o644))
}

func (suite *DisksSuite) SetupTest() {
	suite.sysfs = suite.T().TempDir()

	suite.writeAttr("sda", "size", "2097152")
	suite.writeAttr("sda", "queue/rotational", "1")
	suite.writeAttr("sda", "device/model", "WDC  WDS100T2B0B")
	suite.writeAttr("sda", "device/serial", "WD-123456")

	suite.writeAttr("nvme0n1", "size", "4194304")
	suite.writeAttr("nvme0n1", "queue/rotational", "0")
	suite.writeAttr("nvme0n1", "queue/logical_block_size", "4096")
	suite.writeAttr("nvme0n1", "wwid", "eui.0025388b71b1e4a6")
	suite.writeAttr("nvme0n1", "ro", "1")

	suite.writeAttr("loop0", "size", "204800")
	suite.writeAttr("sr0", "size", "2048")
	suite.writeAttr("sdb", "size", "0")
}

func (suite *DisksSuite) TestList() {
	disks, err := disk.List(disk.WithSysfsRoot(suite.sysfs))
	suite.Require().NoError(err)
	suite.Require().Len(disks, 2)

	nvme, sda := disks[0], disks[1]

	suite.Assert().Equal("/dev/nvme0n1", nvme.DeviceName)
	suite.Assert().Equal(uint64(4194304*512), nvme.Size)
	suite.Assert().Equal(uint64(4096), nvme.SectorSize)
	suite.Assert().Equal(disk.TypeNVMe, nvme.Type)
	suite.Assert().Equal("eui.0025388b71b1e4a6", nvme.WWID)
	suite.Assert().True(nvme.ReadOnly)

	suite.Assert().Equal("/dev/sda", sda.DeviceName)
	suite.Assert().Equal(uint64(1<<30), sda.Size)
	suite.Assert().Equal(uint64(512), sda.SectorSize)
	suite.Assert().Equal(disk.TypeHDD, sda.Type)
	suite.Assert().Equal("WD-123456", sda.Serial)
	suite.Assert().False(sda.ReadOnly)
}

func (suite *DisksSuite) TestListLoop() {
	disks, err := disk.List(disk.WithSysfsRoot(suite.sysfs), disk.WithLoopDevices())
	suite.Require().NoError(err)
	suite.Require().Len(disks, 3)

	suite.Assert().Equal("/dev/loop0", disks[0].DeviceName)
}

func (suite *DisksSuite) TestListNoSysfs() {
	_, err := disk.List(disk.WithSysfsRoot(filepath.Join(suite.sysfs, "missing")))
	suite.Require().Error(err)
}

func (suite *DisksSuite) TestFind() {
	disks, err := disk.List(disk.WithSysfsRoot(suite.sysfs))
	suite.Require().NoError(err)

	found := disk.Find(disks, disk.WithType(disk.TypeHDD))
	suite.Require().Len(found, 1)
	suite.Assert().Equal("/dev/sda", found[0].DeviceName)

	suite.Assert().Len(disk.Find(disks, disk.WithDeviceName("/dev/*")), 2)
	suite.Assert().Empty(disk.Find(disks, disk.WithDeviceName("/dev/nvme*"), disk.WithType(disk.TypeSSD)))
}

func (suite *DisksSuite) TestDiskMatcher() {
	hdd := &disk.Disk{
		Model: "WDC  WDS100T2B0B",
		Size:  1e+9,
		WWID:  "naa.5044cca67bddsd",
	}

	sdCard := &disk.Disk{
		Serial: "0xeb791622",
		Name:   "SC32G",
		Size:   1e+8,
	}

	for _, test := range []struct {
		name     string
		disk     *disk.Disk
		matchers []disk.Matcher
		match    bool
	}{
		{
			name:     "wwid",
			disk:     hdd,
			matchers: []disk.Matcher{disk.WithWWID(hdd.WWID)},
			match:    true,
		},
		{
			name:     "all matchers must match",
			disk:     sdCard,
			matchers: []disk.Matcher{disk.WithName("SC*"), disk.WithSerial("0xeb791633")},
			match:    false,
		},
		{
			name:     "model prefix",
			disk:     hdd,
			matchers: []disk.Matcher{disk.WithModel("WDC*")},
			match:    true,
		},
		{
			name:     "model infix",
			disk:     hdd,
			matchers: []disk.Matcher{disk.WithModel("*WDC*100*")},
			match:    true,
		},
		{
			name:     "model mismatch",
			disk:     hdd,
			matchers: []disk.Matcher{disk.WithModel("WDC*101*")},
			match:    false,
		},
	} {
		suite.Run(test.name, func() {
			suite.Assert().Equal(test.match, disk.Match(test.disk, test.matchers...))
		})
	}
}

func (suite *DisksSuite) TestParseType() {
	for _, tp := range []disk.Type{disk.TypeSSD, disk.TypeHDD, disk.TypeNVMe, disk.TypeSD} {
		parsed, err := disk.ParseType(tp.String())
		suite.Require().NoError(err)
		suite.Assert().Equal(tp, parsed)
	}

	_, err := disk.ParseType("floppy")
	suite.Assert().Error(err)
}

func TestDisksSuite(t *testing.T) {
	suite.Run(t, new(DisksSuite))
}
