package fs

import (
	"fmt"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/inode"
	"github.com/mit-pdos/go-flatfs/util"
)

// SetBuffer fills the transfer buffer with data, zero-padded or truncated
// to one block. It does not need a mounted file system.
func (fs *FileSys) SetBuffer(data []byte) {
	for i := range fs.buf {
		fs.buf[i] = 0
	}
	n := util.Min(uint64(len(data)), common.BlockSize)
	copy(fs.buf, data[:n])
	if dropped := uint64(len(data)) - n; dropped > 0 {
		util.DPrintf(1, "SetBuffer: dropped %d bytes\n", dropped)
	}
	util.DPrintf(5, "SetBuffer: %d bytes\n", n)
}

// Buffer returns a copy of the transfer buffer.
func (fs *FileSys) Buffer() []byte {
	return util.CloneByteSlice(fs.buf)
}

// fileBlock resolves block blk of file name in the working directory to a
// disk block.
func (fs *FileSys) fileBlock(name string, blk uint64) (common.Bnum, error) {
	if !fs.Mounted() {
		return 0, ErrNotMounted
	}
	inum, err := fs.lookup(fs.sb, name)
	if err != nil {
		return 0, err
	}
	e := fs.sb.Get(inum)
	if e.Kind == inode.Dir {
		return 0, fmt.Errorf("%w: %q", ErrIsDir, name)
	}
	if blk >= e.Size {
		return 0, fmt.Errorf("%w: block %d of %q, which has %d blocks", ErrRange,
			blk, name, e.Size)
	}
	return e.Start + common.Bnum(blk), nil
}

// ReadBlock loads block blk of name into the transfer buffer and returns a
// copy of it.
func (fs *FileSys) ReadBlock(name string, blk uint64) ([]byte, error) {
	bn, err := fs.fileBlock(name, blk)
	if err != nil {
		return nil, err
	}
	b, err := fs.d.Read(bn)
	if err != nil {
		return nil, err
	}
	copy(fs.buf, b)
	util.DPrintf(3, "read %q block %d (disk %d)\n", name, blk, bn)
	return b, nil
}

// WriteBlock stores the transfer buffer as block blk of name.
func (fs *FileSys) WriteBlock(name string, blk uint64) error {
	bn, err := fs.fileBlock(name, blk)
	if err != nil {
		return err
	}
	if err := fs.d.Write(bn, util.CloneByteSlice(fs.buf)); err != nil {
		return err
	}
	util.DPrintf(3, "write %q block %d (disk %d)\n", name, blk, bn)
	return fs.commit(fs.sb)
}
