// Package disk is the backing store of the file system: a fixed-size image
// of common.NBLOCKS blocks of common.BlockSize bytes each.
//
// The image lives on a goose disk, whose blocks are larger than ours; each
// host block carries addr.PERBLOCK file-system blocks, so block n of the
// file system is always at byte n*BlockSize of the image file.
package disk

import (
	"errors"

	"github.com/mit-pdos/go-flatfs/common"
)

// Block is a 1024-byte buffer
type Block = []byte

const BlockSize uint64 = common.BlockSize

// ErrIO reports a failed or short backing-store read or write.
var ErrIO = errors.New("i/o failure")

// Disk provides access to a logical block-based disk
type Disk interface {
	// Read reads a disk block by address
	//
	// Expects a < Size().
	Read(a common.Bnum) (Block, error)

	// ReadTo reads the disk block at a and stores the result in b
	//
	// Expects a < Size().
	ReadTo(a common.Bnum, b Block) error

	// Write updates a disk block by address
	//
	// Expects a < Size().
	Write(a common.Bnum, v Block) error

	// ReadBatch reads n consecutive blocks starting at start.
	ReadBatch(start common.Bnum, n uint64) ([]Block, error)

	// WriteBatch writes blocks to consecutive addresses starting at start.
	WriteBatch(start common.Bnum, blocks []Block) error

	// Size reports how big the disk is, in blocks
	Size() uint64

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}
