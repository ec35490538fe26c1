package fs

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/fsck"
	"github.com/mit-pdos/go-flatfs/inode"
	"github.com/mit-pdos/go-flatfs/super"
)

type FsSuite struct {
	suite.Suite
	d  disk.Disk
	fs *FileSys
}

func (s *FsSuite) SetupTest() {
	s.d = disk.NewMemDisk()
	s.fs = MkFileSys()
	s.Require().NoError(s.fs.MountDisk(s.d, "mem"))
}

func TestFs(t *testing.T) {
	suite.Run(t, new(FsSuite))
}

func mkBlock(b byte) disk.Block {
	block := make(disk.Block, disk.BlockSize)
	for i := range block {
		block[i] = b
	}
	return block
}

var zeroBlock = mkBlock(0)

func (s *FsSuite) create(name string, size uint64) {
	s.Require().NoError(s.fs.Create(name, size), "create %s", name)
}

func (s *FsSuite) chdir(name string) {
	s.Require().NoError(s.fs.Chdir(name), "cd %s", name)
}

func (s *FsSuite) entry(name string) inode.Entry {
	sb, err := s.fs.Superblock()
	s.Require().NoError(err)
	var n inode.Name
	copy(n[:], name)
	inum, ok := sb.Lookup(s.fs.Cwd(), n)
	s.Require().True(ok, "%s should exist", name)
	return sb.Get(inum)
}

func (s *FsSuite) assertExtent(name string, start common.Bnum, size uint64) {
	e := s.entry(name)
	s.Equal(inode.File, e.Kind, name)
	s.Equal(start, e.Start, "%s start", name)
	s.Equal(size, e.Size, "%s size", name)
}

// fill writes block i of name with the byte b+i.
func (s *FsSuite) fill(name string, n uint64, b byte) {
	for i := uint64(0); i < n; i++ {
		s.fs.SetBuffer(mkBlock(b + byte(i)))
		s.Require().NoError(s.fs.WriteBlock(name, i))
	}
}

func (s *FsSuite) checkData(name string, n uint64, b byte) {
	for i := uint64(0); i < n; i++ {
		got, err := s.fs.ReadBlock(name, i)
		s.Require().NoError(err)
		s.Equal(mkBlock(b+byte(i)), disk.Block(got), "%s block %d", name, i)
	}
}

func (s *FsSuite) diskBlock(bn common.Bnum) disk.Block {
	b, err := s.d.Read(bn)
	s.Require().NoError(err)
	return b
}

func (s *FsSuite) assertZero(start common.Bnum, end common.Bnum) {
	for bn := start; bn <= end; bn++ {
		s.Equal(zeroBlock, s.diskBlock(bn), "block %d should be zero", bn)
	}
}

func (s *FsSuite) image() []disk.Block {
	blks, err := s.d.ReadBatch(0, common.NBLOCKS)
	s.Require().NoError(err)
	return blks
}

// consistent checks the on-disk superblock passes fsck and matches memory.
func (s *FsSuite) consistent() {
	img, err := super.Read(s.d)
	s.Require().NoError(err)
	s.Require().NoError(fsck.Check(img))
	sb, err := s.fs.Superblock()
	s.Require().NoError(err)
	s.Equal(sb, img.Superblock())
}

func (s *FsSuite) TestEmpty() {
	l, err := s.fs.List()
	s.NoError(err)
	s.Equal(uint64(2), l.Dot)
	s.Equal(uint64(2), l.DotDot)
	s.Empty(l.Entries)
	s.Equal(common.ROOTINUM, s.fs.Cwd())
}

func (s *FsSuite) TestFirstFitReuse() {
	s.create("data1", 3)
	s.create("data2", 2)
	s.assertExtent("data1", 1, 3)
	s.assertExtent("data2", 4, 2)

	s.fill("data1", 3, 0x10)
	s.fill("data2", 2, 0x20)
	s.NoError(s.fs.Delete("data1"))
	s.assertZero(1, 3)

	s.create("data3", 3)
	s.assertExtent("data3", 1, 3)
	s.checkData("data3", 1, 0)
	s.checkData("data2", 2, 0x20)
	s.consistent()
}

func (s *FsSuite) TestCreateDir() {
	s.create("dir", 0)
	e := s.entry("dir")
	s.Equal(inode.Dir, e.Kind)
	s.Equal(common.ROOTINUM, e.Parent)
	s.Equal(common.Bnum(0), e.Start)

	img, err := super.Read(s.d)
	s.Require().NoError(err)
	r := img.Records[0]
	s.Equal(byte(0x80), r.UsedSize)
	s.Equal(byte(0x80|0x7F), r.DirParent)
	s.consistent()
}

func (s *FsSuite) TestNameCollision() {
	s.create("a", 1)
	s.create("d", 0)
	s.True(errors.Is(s.fs.Create("a", 0), ErrNameCollision), "file then dir")
	s.True(errors.Is(s.fs.Create("d", 2), ErrNameCollision), "dir then file")

	s.chdir("d")
	s.create("a", 2)
	s.assertExtent("a", 2, 2)
	s.consistent()
}

func (s *FsSuite) TestNameInvalid() {
	for _, name := range []string{"", ".", "..", "sixsix"} {
		s.True(errors.Is(s.fs.Create(name, 1), ErrNameInvalid), "%q", name)
	}
	s.True(errors.Is(s.fs.Create("big", common.MAXFILESZ+1), ErrRange))
}

func (s *FsSuite) TestNoFreeInode() {
	for i := uint64(0); i < common.NINODE; i++ {
		s.create(fmt.Sprintf("d%d", i), 0)
	}
	s.True(errors.Is(s.fs.Create("x", 0), ErrNoFreeInode))
	s.True(errors.Is(s.fs.Create("d0", 0), ErrNameCollision),
		"collision is reported before inode exhaustion")
	s.consistent()
}

func (s *FsSuite) TestNoSpace() {
	s.create("big", 100)
	err := s.fs.Create("more", 28)
	s.True(errors.Is(err, ErrNoSpace))
	s.create("fits", 27)
	s.assertExtent("fits", 101, 27)
	s.consistent()
}

func (s *FsSuite) TestNotMounted() {
	fs := MkFileSys()
	s.True(errors.Is(fs.Create("a", 1), ErrNotMounted))
	s.True(errors.Is(fs.Delete("a"), ErrNotMounted))
	_, err := fs.ReadBlock("a", 0)
	s.True(errors.Is(err, ErrNotMounted))
	s.True(errors.Is(fs.WriteBlock("a", 0), ErrNotMounted))
	_, err = fs.List()
	s.True(errors.Is(err, ErrNotMounted))
	s.True(errors.Is(fs.Resize("a", 2), ErrNotMounted))
	s.True(errors.Is(fs.Defrag(), ErrNotMounted))
	s.True(errors.Is(fs.Chdir("a"), ErrNotMounted))
	s.True(errors.Is(fs.Unmount(), ErrNotMounted))

	fs.SetBuffer([]byte("ok"))
	s.Equal([]byte("ok"), fs.Buffer()[:2])
}

func (s *FsSuite) TestChdir() {
	s.NoError(s.fs.Chdir(".."), "cd .. at the root is a no-op")
	s.Equal(common.ROOTINUM, s.fs.Cwd())
	s.NoError(s.fs.Chdir("."))
	s.Equal(common.ROOTINUM, s.fs.Cwd())

	s.True(errors.Is(s.fs.Chdir("nope"), ErrNotFound))

	s.create("f", 1)
	s.True(errors.Is(s.fs.Chdir("f"), ErrNotDir))

	s.create("a", 0)
	s.chdir("a")
	s.create("b", 0)
	s.chdir("b")
	s.Equal(common.Inum(2), s.fs.Cwd())
	s.chdir("..")
	s.Equal(common.Inum(1), s.fs.Cwd())
	s.chdir("..")
	s.Equal(common.ROOTINUM, s.fs.Cwd())
}

func (s *FsSuite) TestList() {
	s.create("dir", 0)
	s.create("f1", 3)
	s.chdir("dir")
	s.create("g", 1)
	s.create("sub", 0)

	l, err := s.fs.List()
	s.Require().NoError(err)
	s.Equal(uint64(4), l.Dot)
	s.Equal(uint64(4), l.DotDot)
	s.Equal([]DirEntry{
		{Name: "g", Kind: inode.File, Size: 1},
		{Name: "sub", Kind: inode.Dir, Size: 2},
	}, l.Entries)

	s.chdir("..")
	l, err = s.fs.List()
	s.Require().NoError(err)
	s.Equal(uint64(4), l.Dot)
	s.Equal(uint64(4), l.DotDot, "root is its own parent")

	var out bytes.Buffer
	n, err := l.WriteTo(&out)
	s.NoError(err)
	want := ".       4\n" +
		"..      4\n" +
		"dir" + strings.Repeat(" ", 5) + "4\n" +
		"f1" + strings.Repeat(" ", 6) + "3 KB\n"
	s.Equal(want, out.String())
	s.Equal(int64(len(want)), n)
}

func (s *FsSuite) TestListOrder() {
	s.create("zz", 1)
	s.create("aa", 1)
	s.NoError(s.fs.Delete("zz"))
	s.create("mm", 1)
	l, err := s.fs.List()
	s.Require().NoError(err)
	s.Equal("mm", l.Entries[0].Name, "inode order, not name order")
	s.Equal("aa", l.Entries[1].Name)
}

func (s *FsSuite) TestBuffer() {
	s.fs.SetBuffer([]byte("abc"))
	b := s.fs.Buffer()
	s.Len(b, int(common.BlockSize))
	s.Equal([]byte("abc"), b[:3])
	s.Equal(make([]byte, common.BlockSize-3), b[3:])

	long := bytes.Repeat([]byte{'x'}, 2000)
	s.fs.SetBuffer(long)
	s.Equal(long[:common.BlockSize], s.fs.Buffer())

	s.fs.SetBuffer(nil)
	s.Equal([]byte(zeroBlock), s.fs.Buffer())
}

func (s *FsSuite) TestReadWrite() {
	s.create("f", 2)
	s.fs.SetBuffer([]byte("hello"))
	s.NoError(s.fs.WriteBlock("f", 1))
	s.fs.SetBuffer(nil)

	got, err := s.fs.ReadBlock("f", 1)
	s.NoError(err)
	s.Equal([]byte("hello"), got[:5])
	s.Equal(got, s.fs.Buffer(), "read fills the transfer buffer")
	s.Equal(disk.Block(got), s.diskBlock(2))

	_, err = s.fs.ReadBlock("f", 2)
	s.True(errors.Is(err, ErrRange))
	s.True(errors.Is(s.fs.WriteBlock("f", 2), ErrRange))
	_, err = s.fs.ReadBlock("g", 0)
	s.True(errors.Is(err, ErrNotFound))

	s.create("d", 0)
	_, err = s.fs.ReadBlock("d", 0)
	s.True(errors.Is(err, ErrIsDir))
	s.True(errors.Is(s.fs.WriteBlock("d", 0), ErrIsDir))
	s.consistent()
}

func (s *FsSuite) TestLookupScope() {
	s.create("p", 0)
	s.chdir("p")
	s.create("f", 1)
	s.chdir("..")

	_, err := s.fs.ReadBlock("f", 0)
	s.True(errors.Is(err, ErrNotFound))
	s.True(errors.Is(s.fs.WriteBlock("f", 0), ErrNotFound))
	s.True(errors.Is(s.fs.Delete("f"), ErrNotFound))
	s.True(errors.Is(s.fs.Resize("f", 2), ErrNotFound))

	s.chdir("p")
	_, err = s.fs.ReadBlock("f", 0)
	s.NoError(err)
}

func (s *FsSuite) TestDeleteRecursive() {
	s.create("p", 0)
	s.chdir("p")
	s.create("f", 2)
	s.fill("f", 2, 0x40)
	s.create("q", 0)
	s.chdir("q")
	s.create("g", 3)
	s.fill("g", 3, 0x50)
	s.chdir("..")
	s.chdir("..")
	s.create("keep", 1)

	s.NoError(s.fs.Delete("p"))
	s.assertZero(1, 5)
	sb, err := s.fs.Superblock()
	s.Require().NoError(err)
	s.Equal(uint64(1), sb.Bitmap.NumSet())
	for i, e := range sb.Inodes {
		if i != 4 {
			s.False(e.InUse(), "inode %d", i)
		}
	}
	s.assertExtent("keep", 6, 1)
	s.consistent()
}

func (s *FsSuite) TestShrink() {
	s.create("f", 4)
	s.fill("f", 4, 1)
	s.NoError(s.fs.Resize("f", 2))
	s.assertExtent("f", 1, 2)
	s.checkData("f", 2, 1)
	s.assertZero(3, 4)
	s.consistent()
}

func (s *FsSuite) TestGrowInPlace() {
	s.create("a", 1)
	s.create("b", 2)
	s.create("c", 2)
	s.fill("b", 2, 0x30)
	s.NoError(s.fs.Delete("c"))

	s.NoError(s.fs.Resize("b", 4))
	s.assertExtent("b", 2, 4)
	s.checkData("b", 2, 0x30)
	s.assertZero(4, 5)
	s.consistent()
}

func (s *FsSuite) TestGrowRelocates() {
	s.create("data1", 3)
	s.create("data2", 2)
	s.create("data3", 2)
	s.fill("data2", 2, 0x60)

	s.NoError(s.fs.Resize("data2", 4))
	s.assertExtent("data2", 8, 4)
	s.checkData("data2", 2, 0x60)
	got, err := s.fs.ReadBlock("data2", 3)
	s.NoError(err)
	s.Equal([]byte(zeroBlock), got, "new blocks start out zero")
	s.assertZero(4, 5)
	s.assertExtent("data3", 6, 2)
	s.consistent()
}

func (s *FsSuite) TestGrowAtEndOfDisk() {
	s.create("x", 120)
	s.create("y", 5)
	s.NoError(s.fs.Resize("y", 7))
	s.assertExtent("y", 121, 7)

	before := s.image()
	err := s.fs.Resize("y", 8)
	s.True(errors.Is(err, ErrNoSpace))
	s.assertExtent("y", 121, 7)
	s.Equal(before, s.image(), "failed resize must not touch the disk")
	s.consistent()
}

func (s *FsSuite) TestResizeErrors() {
	s.create("d", 0)
	s.create("f", 1)
	s.True(errors.Is(s.fs.Resize("d", 3), ErrNotFound), "directories cannot be resized")
	s.True(errors.Is(s.fs.Resize("f", 0), ErrRange))
	s.True(errors.Is(s.fs.Resize("f", common.MAXFILESZ+1), ErrRange))
	s.NoError(s.fs.Resize("f", 1), "same size is allowed")
	s.assertExtent("f", 1, 1)
}

func (s *FsSuite) TestDefrag() {
	s.create("a", 2)
	s.create("b", 3)
	s.create("c", 1)
	s.create("dir", 0)
	s.create("d", 2)
	s.fill("b", 3, 0x70)
	s.fill("d", 2, 0x80)
	s.NoError(s.fs.Delete("a"))
	s.NoError(s.fs.Delete("c"))

	s.NoError(s.fs.Defrag())
	s.assertExtent("b", 1, 3)
	s.assertExtent("d", 4, 2)
	s.checkData("b", 3, 0x70)
	s.checkData("d", 2, 0x80)
	s.assertZero(6, common.LastDataBlock)
	s.Equal(inode.Dir, s.entry("dir").Kind)
	s.consistent()

	once := s.image()
	s.NoError(s.fs.Defrag())
	s.Equal(once, s.image(), "defrag is idempotent")
}

func (s *FsSuite) TestDefragOrderByStart() {
	s.create("a", 1)
	s.create("b", 1)
	s.create("c", 2)
	s.fill("c", 2, 0x11)
	s.NoError(s.fs.Delete("a"))
	s.NoError(s.fs.Resize("b", 5)) // moves b behind c: c 3-4, b 5-9
	s.assertExtent("b", 5, 5)

	s.NoError(s.fs.Defrag())
	s.assertExtent("c", 1, 2)
	s.assertExtent("b", 3, 5)
	s.checkData("c", 2, 0x11)
	s.consistent()
}

func (s *FsSuite) TestDefragInconsistent() {
	sb, err := s.fs.Superblock()
	s.Require().NoError(err)
	sb.Bitmap.Set(9)
	_, err = defragOrder(sb)
	s.True(errors.Is(err, ErrInconsistent))
	var ie *fsck.InconsistencyError
	s.Require().True(errors.As(err, &ie))
	s.Equal(common.Bnum(9), ie.Bnum)
}

func (s *FsSuite) TestRemountRejected() {
	s.create("dir", 0)
	s.chdir("dir")
	before, err := s.fs.Superblock()
	s.Require().NoError(err)

	bad := disk.NewMemDisk()
	blk := make(disk.Block, disk.BlockSize)
	blk[common.BITMAPSZ+2*common.INODESZ+6] = 5 // free inode with a start block
	s.Require().NoError(bad.Write(common.SUPERBLOCK, blk))

	err = s.fs.MountDisk(bad, "bad")
	s.True(errors.Is(err, ErrInconsistent))
	var ie *fsck.InconsistencyError
	s.Require().True(errors.As(err, &ie))
	s.Equal(fsck.CodeFreeNotZero, ie.Code)

	after, err := s.fs.Superblock()
	s.NoError(err)
	s.Equal(before, after)
	s.Equal(common.Inum(0), s.fs.Cwd(), "working directory survives a failed mount")
	s.create("still", 1)
	s.consistent()
}

// A size-zero record without the directory marker mounts as a directory and
// gets the marker the next time the superblock is written.
func (s *FsSuite) TestUnmarkedDirGetsMarker() {
	d := disk.NewMemDisk()
	blk := make(disk.Block, disk.BlockSize)
	off := common.BITMAPSZ
	blk[off] = 'u'
	blk[off+5] = 0x80
	blk[off+7] = 0x7F
	s.Require().NoError(d.Write(common.SUPERBLOCK, blk))

	s.Require().NoError(s.fs.MountDisk(d, "unmarked"))
	s.d = d
	img, err := super.Read(d)
	s.Require().NoError(err)
	s.Equal(byte(0x7F), img.Records[0].DirParent, "mount leaves the record alone")
	s.chdir("u")
	s.chdir("..")

	s.create("f", 1)
	img, err = super.Read(d)
	s.Require().NoError(err)
	s.Equal(byte(0xFF), img.Records[0].DirParent)
	s.consistent()
}

func (s *FsSuite) TestRemount() {
	s.create("f", 2)
	s.fill("f", 2, 0x33)
	s.create("dir", 0)
	s.chdir("dir")
	s.fs.SetBuffer([]byte("keep"))

	fs2 := MkFileSys()
	s.Require().NoError(fs2.MountDisk(s.d, "mem"))
	s.Equal(common.ROOTINUM, fs2.Cwd())

	s.Require().NoError(s.fs.MountDisk(disk.NewMemDisk(), "fresh"))
	s.Equal(common.ROOTINUM, s.fs.Cwd(), "mount resets the working directory")
	s.Equal([]byte("keep"), s.fs.Buffer()[:4])
	l, err := s.fs.List()
	s.NoError(err)
	s.Empty(l.Entries)

	l, err = fs2.List()
	s.NoError(err)
	s.Len(l.Entries, 2)
}

func (s *FsSuite) TestUnmount() {
	s.NoError(s.fs.Unmount())
	s.False(s.fs.Mounted())
	s.True(errors.Is(s.fs.Create("a", 1), ErrNotMounted))
}

// Every state reached through the engine must pass fsck.
func (s *FsSuite) TestRandomOpsStayConsistent() {
	r := rand.New(rand.NewSource(379))
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i := 0; i < 400; i++ {
		name := names[r.Intn(len(names))]
		switch r.Intn(6) {
		case 0, 1:
			s.fs.Create(name, uint64(r.Intn(20)))
		case 2:
			s.fs.Delete(name)
		case 3:
			s.fs.Resize(name, uint64(1+r.Intn(30)))
		case 4:
			s.fs.Defrag()
		case 5:
			if r.Intn(2) == 0 {
				s.fs.Chdir("..")
			} else {
				s.fs.Chdir(name)
			}
		}
		s.consistent()
	}
}
