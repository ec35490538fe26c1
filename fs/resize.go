package fs

import (
	"fmt"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/fsck"
	"github.com/mit-pdos/go-flatfs/super"
	"github.com/mit-pdos/go-flatfs/util"
)

// Resize changes the size of file name in the working directory.
//
// Shrinking frees and zeroes the tail. Growing takes the blocks right after
// the file if they are free, and otherwise moves the whole file to the
// first free extent of the new size.
func (fs *FileSys) Resize(name string, size uint64) error {
	sb, a, err := fs.begin()
	if err != nil {
		return err
	}
	if size == 0 || size > common.MAXFILESZ {
		return fmt.Errorf("%w: size %d not in 1..%d", ErrRange, size,
			common.MAXFILESZ)
	}
	inum, err := fs.lookup(sb, name)
	if err != nil {
		return err
	}
	e := sb.Get(inum)
	if !e.IsFile() {
		return fmt.Errorf("%w: %q is not a file", ErrNotFound, name)
	}

	switch {
	case size < e.Size:
		if err := a.FreeRange(e.Start+common.Bnum(size), e.Size-size); err != nil {
			return err
		}
	case size > e.Size:
		if a.Extend(e.Last()+1, size-e.Size) {
			break
		}
		start, err := a.Find(size)
		if err != nil {
			return fmt.Errorf("%q cannot grow to %d blocks: %w", name, size, err)
		}
		if err := fs.move(a, e.Start, start, e.Size); err != nil {
			return err
		}
		a.MarkRange(start, start+common.Bnum(size)-1, true)
		e.Start = start
	}
	old := e.Size
	e.Size = size
	sb.Put(inum, e)
	if err := fs.commit(sb); err != nil {
		return err
	}
	util.DPrintf(1, "resize %q: %d -> %d blocks at %d\n", name, old, size, e.Start)
	return nil
}

// defragOrder lists files in order of start block by walking the bitmap. A
// used block that starts no file's extent means the superblock is corrupt.
func defragOrder(sb *super.Superblock) ([]common.Inum, error) {
	var order []common.Inum
	bn := common.FirstDataBlock
	for bn <= common.LastDataBlock {
		if !sb.Bitmap.IsSet(bn) {
			bn++
			continue
		}
		inum, ok := sb.FileAt(bn)
		if !ok {
			return nil, &fsck.InconsistencyError{
				Code:  fsck.CodeBitmap,
				Bnum:  bn,
				Cause: fmt.Sprintf("no inode found for block %d", bn),
			}
		}
		order = append(order, inum)
		bn += common.Bnum(sb.Get(inum).Size)
	}
	return order, nil
}

// Defrag packs all files into one run starting at block 1, keeping their
// order. Files already in place are not touched.
func (fs *FileSys) Defrag() error {
	sb, a, err := fs.begin()
	if err != nil {
		return err
	}
	order, err := defragOrder(sb)
	if err != nil {
		return err
	}
	next := common.FirstDataBlock
	moved := 0
	for _, inum := range order {
		e := sb.Get(inum)
		if e.Start != next {
			if err := fs.move(a, e.Start, next, e.Size); err != nil {
				return err
			}
			e.Start = next
			sb.Put(inum, e)
			moved++
		}
		next += common.Bnum(e.Size)
	}
	if err := fs.commit(sb); err != nil {
		return err
	}
	util.DPrintf(1, "defrag: moved %d of %d files, %d blocks in use\n", moved,
		len(order), next-common.FirstDataBlock)
	return nil
}
