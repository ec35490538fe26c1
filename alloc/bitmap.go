package alloc

import (
	"github.com/mit-pdos/go-flatfs/common"
)

// Bitmap is the on-disk free-block bitmap, one bit per block, set when the
// block is allocated. Block n is bit 7-(n%8) of byte n/8 (most significant
// bit first).
type Bitmap [common.BITMAPSZ]byte

func mask(bn common.Bnum) byte {
	return 1 << (7 - bn%8)
}

func (bm *Bitmap) IsSet(bn common.Bnum) bool {
	return bm[bn/8]&mask(bn) != 0
}

func (bm *Bitmap) Set(bn common.Bnum) {
	bm[bn/8] |= mask(bn)
}

func (bm *Bitmap) Clear(bn common.Bnum) {
	bm[bn/8] &= ^mask(bn)
}

// MarkRange sets or clears bits start..end inclusive.
func (bm *Bitmap) MarkRange(start common.Bnum, end common.Bnum, used bool) {
	for bn := start; bn <= end; bn++ {
		if used {
			bm.Set(bn)
		} else {
			bm.Clear(bn)
		}
	}
}

// RangeFree reports whether every block in start..end is clear. Ranges past
// the end of the disk are never free.
func (bm *Bitmap) RangeFree(start common.Bnum, end common.Bnum) bool {
	if end > common.LastDataBlock {
		return false
	}
	for bn := start; bn <= end; bn++ {
		if bm.IsSet(bn) {
			return false
		}
	}
	return true
}

// FindRun returns the lowest data block that starts n consecutive clear
// bits.
func (bm *Bitmap) FindRun(n uint64) (common.Bnum, bool) {
	if n == 0 || n > common.MAXFILESZ {
		return common.NULLBNUM, false
	}
	var run uint64
	for bn := common.FirstDataBlock; bn <= common.LastDataBlock; bn++ {
		if bm.IsSet(bn) {
			run = 0
			continue
		}
		run += 1
		if run == n {
			return bn - common.Bnum(n) + 1, true
		}
	}
	return common.NULLBNUM, false
}

func popCnt(b byte) uint64 {
	var n uint64
	for b != 0 {
		n += uint64(b & 1)
		b = b >> 1
	}
	return n
}

// NumSet counts allocated data blocks.
func (bm *Bitmap) NumSet() uint64 {
	var n uint64
	for _, b := range bm {
		n += popCnt(b)
	}
	if bm.IsSet(common.SUPERBLOCK) {
		n -= 1
	}
	return n
}
