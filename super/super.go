// Package super encodes the superblock, the single metadata block at
// block 0:
//
//	[ free-block bitmap (16 bytes) | inode 0 | inode 1 | ... | inode 125 ]
//
// Every field is a single byte, so there is no byte order to get wrong.
package super

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-flatfs/alloc"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/inode"
	"github.com/mit-pdos/go-flatfs/util"
)

// SUPERSZ is the number of meaningful bytes in block 0.
const SUPERSZ uint64 = common.BITMAPSZ + common.NINODE*common.INODESZ

// Image is the superblock exactly as stored, before any validation.
type Image struct {
	Bitmap  alloc.Bitmap
	Records [common.NINODE]inode.Record
}

// Decode parses a superblock block.
func Decode(blk disk.Block) (*Image, error) {
	if uint64(len(blk)) != common.BlockSize {
		return nil, fmt.Errorf("superblock is %d bytes, want %d", len(blk),
			common.BlockSize)
	}
	img := &Image{}
	dec := marshal.NewDec(blk)
	copy(img.Bitmap[:], dec.GetBytes(common.BITMAPSZ))
	for i := range img.Records {
		img.Records[i] = inode.RecordFromBytes(dec.GetBytes(common.INODESZ))
	}
	return img, nil
}

// Encode produces the on-disk block for img.
func (img *Image) Encode() disk.Block {
	enc := marshal.NewEnc(common.BlockSize)
	enc.PutBytes(img.Bitmap[:])
	for _, r := range img.Records {
		enc.PutBytes(r.Bytes())
	}
	return enc.Finish()
}

// Superblock is the decoded, in-memory superblock.
type Superblock struct {
	Bitmap alloc.Bitmap
	Inodes [common.NINODE]inode.Entry
}

// Superblock decodes every record of img into an entry.
func (img *Image) Superblock() *Superblock {
	sb := &Superblock{Bitmap: img.Bitmap}
	for i, r := range img.Records {
		sb.Inodes[i] = inode.Decode(r)
	}
	return sb
}

func (sb *Superblock) Image() *Image {
	img := &Image{Bitmap: sb.Bitmap}
	for i, e := range sb.Inodes {
		img.Records[i] = inode.Encode(e)
	}
	return img
}

func (sb *Superblock) Encode() disk.Block {
	return sb.Image().Encode()
}

// Clone returns a copy that shares nothing with sb.
func (sb *Superblock) Clone() *Superblock {
	c := *sb
	return &c
}

// Read loads the superblock from d without checking it.
func Read(d disk.Disk) (*Image, error) {
	blk, err := d.Read(common.SUPERBLOCK)
	if err != nil {
		return nil, err
	}
	return Decode(blk)
}

// Write stores sb in block 0 of d and waits for it to be durable.
func Write(d disk.Disk, sb *Superblock) error {
	err := d.Write(common.SUPERBLOCK, sb.Encode())
	if err != nil {
		return err
	}
	util.DPrintf(5, "super.Write: %d blocks in use\n", sb.Bitmap.NumSet())
	return d.Barrier()
}
