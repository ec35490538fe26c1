package alloc

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/util"
)

// ErrNoSpace means no run of free blocks is long enough.
var ErrNoSpace = errors.New("not enough contiguous free blocks")

// Alloc hands out contiguous extents of data blocks from a bitmap. Freed
// blocks are zeroed on disk so their contents never reach the next owner.
//
// Block 0 holds the superblock and is never allocated or freed.
type Alloc struct {
	d  disk.Disk
	bm *Bitmap
}

func MkAlloc(d disk.Disk, bm *Bitmap) *Alloc {
	a := &Alloc{
		d:  d,
		bm: bm,
	}
	return a
}

func checkRange(start common.Bnum, size uint64) error {
	if size == 0 || size > common.MAXFILESZ || start < common.FirstDataBlock ||
		start+common.Bnum(size)-1 > common.LastDataBlock {
		return fmt.Errorf("extent %d+%d outside data blocks", start, size)
	}
	return nil
}

// Find returns the first-fit start for an extent of size blocks without
// marking it.
func (a *Alloc) Find(size uint64) (common.Bnum, error) {
	bn, ok := a.bm.FindRun(size)
	if !ok {
		return common.NULLBNUM, fmt.Errorf("%w: need %d", ErrNoSpace, size)
	}
	return bn, nil
}

// AllocRange finds and marks the first free extent of size blocks.
func (a *Alloc) AllocRange(size uint64) (common.Bnum, error) {
	bn, err := a.Find(size)
	if err != nil {
		return bn, err
	}
	a.MarkRange(bn, bn+common.Bnum(size)-1, true)
	util.DPrintf(3, "AllocRange: %d blocks at %d\n", size, bn)
	return bn, nil
}

// MarkRange sets or clears start..end inclusive in the bitmap.
func (a *Alloc) MarkRange(start common.Bnum, end common.Bnum, used bool) {
	if start < common.FirstDataBlock || end > common.LastDataBlock {
		panic("MarkRange")
	}
	a.bm.MarkRange(start, end, used)
}

// Extend marks the size blocks starting at start if all of them are free.
func (a *Alloc) Extend(start common.Bnum, size uint64) bool {
	if checkRange(start, size) != nil {
		return false
	}
	end := start + common.Bnum(size) - 1
	if !a.bm.RangeFree(start, end) {
		return false
	}
	a.MarkRange(start, end, true)
	util.DPrintf(3, "Extend: %d-%d\n", start, end)
	return true
}

// FreeRange zeroes the extent on disk and clears it in the bitmap. The
// bitmap is only changed once the zeroes are written.
func (a *Alloc) FreeRange(start common.Bnum, size uint64) error {
	if err := checkRange(start, size); err != nil {
		return err
	}
	if err := Zero(a.d, start, size); err != nil {
		return err
	}
	a.MarkRange(start, start+common.Bnum(size)-1, false)
	util.DPrintf(3, "FreeRange: %d-%d\n", start, start+common.Bnum(size)-1)
	return nil
}

// Zero overwrites size blocks starting at start with zero bytes.
func Zero(d disk.Disk, start common.Bnum, size uint64) error {
	blks := make([]disk.Block, size)
	for i := range blks {
		blks[i] = make(disk.Block, disk.BlockSize)
	}
	return d.WriteBatch(start, blks)
}

// NumFree counts unallocated data blocks.
func (a *Alloc) NumFree() uint64 {
	return common.MAXFILESZ - a.bm.NumSet()
}
