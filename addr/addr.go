package addr

import (
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-flatfs/common"
)

// PERBLOCK is the number of file-system blocks packed into one host block.
const PERBLOCK uint64 = disk.BlockSize / common.BlockSize

// Addr identifies a file-system block on the host disk.
//
// Blkno is the host (goose) block containing it, and Off is the location of
// the file-system block within the host block (expressed as a byte offset).
type Addr struct {
	Blkno uint64
	Off   uint64 // offset in bytes
}

// Flatid returns the byte offset of the block on the host disk.
func (a Addr) Flatid() uint64 {
	return a.Blkno*disk.BlockSize + a.Off
}

func MkAddr(blkno uint64, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

func MkBlockAddr(bn common.Bnum) Addr {
	i := uint64(bn) / PERBLOCK
	off := (uint64(bn) % PERBLOCK) * common.BlockSize
	return MkAddr(i, off)
}
