// Package fs is the file-system engine: one mounted disk image, a working
// directory, and a one-block transfer buffer.
//
// Operations are synchronous. A mutating operation works on a copy of the
// superblock and only installs the copy after writing it to block 0, so a
// failed operation leaves the in-memory state as it was. Data-block writes
// are issued before the superblock write and are not atomic with it.
package fs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mit-pdos/go-flatfs/alloc"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/fsck"
	"github.com/mit-pdos/go-flatfs/super"
	"github.com/mit-pdos/go-flatfs/util"
)

type FileSys struct {
	d    disk.Disk // nil until the first successful mount
	sb   *super.Superblock
	cwd  common.Inum
	buf  disk.Block
	name string
	id   uuid.UUID // mount session, for tracing
}

func MkFileSys() *FileSys {
	return &FileSys{
		cwd: common.ROOTINUM,
		buf: make(disk.Block, disk.BlockSize),
	}
}

func (fs *FileSys) Mounted() bool {
	return fs.d != nil
}

// Cwd returns the working directory, common.ROOTINUM at the root.
func (fs *FileSys) Cwd() common.Inum {
	return fs.cwd
}

// Superblock returns a copy of the mounted superblock.
func (fs *FileSys) Superblock() (*super.Superblock, error) {
	if !fs.Mounted() {
		return nil, ErrNotMounted
	}
	return fs.sb.Clone(), nil
}

// Mount checks the image at path and, if it is consistent, makes it the
// mounted file system in place of the current one. The image is only
// opened for writing once it has passed the check.
func (fs *FileSys) Mount(path string) error {
	blk, err := disk.ReadSuper(path)
	if err != nil {
		return err
	}
	img, err := super.Decode(blk)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIO, path, err)
	}
	if err := fsck.Check(img); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	d, err := disk.Open(path)
	if err != nil {
		return err
	}
	return fs.install(d, img, path)
}

// MountDisk is Mount for an already-open disk, which the file system takes
// ownership of. The disk is closed if it is rejected.
func (fs *FileSys) MountDisk(d disk.Disk, name string) error {
	img, err := super.Read(d)
	if err == nil {
		err = fsck.Check(img)
	}
	if err != nil {
		d.Close()
		return fmt.Errorf("%s: %w", name, err)
	}
	return fs.install(d, img, name)
}

func (fs *FileSys) install(d disk.Disk, img *super.Image, name string) error {
	err := d.Write(common.SUPERBLOCK, img.Encode())
	if err == nil {
		err = d.Barrier()
	}
	if err != nil {
		d.Close()
		return err
	}
	if fs.d != nil && fs.d != d {
		util.DPrintf(1, "unmount %s (session %v)\n", fs.name, fs.id)
		if err := fs.d.Close(); err != nil {
			util.DPrintf(1, "unmount %s: %v\n", fs.name, err)
		}
	}
	fs.d = d
	fs.sb = img.Superblock()
	fs.cwd = common.ROOTINUM
	fs.name = name
	fs.id = uuid.New()
	util.DPrintf(1, "mount %s (session %v): %d blocks free\n", name, fs.id,
		alloc.MkAlloc(d, &fs.sb.Bitmap).NumFree())
	return nil
}

// Unmount releases the disk. The transfer buffer survives.
func (fs *FileSys) Unmount() error {
	if !fs.Mounted() {
		return ErrNotMounted
	}
	util.DPrintf(1, "unmount %s (session %v)\n", fs.name, fs.id)
	err := fs.d.Close()
	fs.d = nil
	fs.sb = nil
	fs.cwd = common.ROOTINUM
	return err
}

// begin returns a private copy of the superblock and an allocator over it.
func (fs *FileSys) begin() (*super.Superblock, *alloc.Alloc, error) {
	if !fs.Mounted() {
		return nil, nil, ErrNotMounted
	}
	sb := fs.sb.Clone()
	return sb, alloc.MkAlloc(fs.d, &sb.Bitmap), nil
}

// commit writes sb to block 0 and makes it the mounted superblock.
func (fs *FileSys) commit(sb *super.Superblock) error {
	if err := super.Write(fs.d, sb); err != nil {
		return err
	}
	fs.sb = sb
	return nil
}

// move copies an n-block extent from one start to another, zeroing and
// freeing the old blocks before marking the new ones. The extents may
// overlap.
func (fs *FileSys) move(a *alloc.Alloc, from common.Bnum, to common.Bnum, n uint64) error {
	blks, err := fs.d.ReadBatch(from, n)
	if err != nil {
		return err
	}
	if err := a.FreeRange(from, n); err != nil {
		return err
	}
	if err := fs.d.WriteBatch(to, blks); err != nil {
		return err
	}
	a.MarkRange(to, to+common.Bnum(n)-1, true)
	util.DPrintf(3, "move: %d-%d to %d-%d\n", from, from+common.Bnum(n)-1,
		to, to+common.Bnum(n)-1)
	return nil
}
