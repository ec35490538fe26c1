package common

const (
	BlockSize uint64 = 1024
	NBLOCKS   uint64 = 128
	DISKSIZE  uint64 = NBLOCKS * BlockSize

	NBITBLOCK  uint64 = NBLOCKS // bits in the free-block bitmap
	BITMAPSZ   uint64 = NBITBLOCK / 8
	INODESZ    uint64 = 8 // on-disk size
	NINODE     uint64 = 126
	NAMELEN    uint64 = 5
	MAXFILESZ  uint64 = NBLOCKS - 1
	SUPERBLOCK Bnum   = 0
)

type Inum uint64
type Bnum = uint64

const (
	// ROOTINUM is the virtual root directory. It has no slot in the inode
	// table and is its own parent.
	ROOTINUM Inum = 127
	// BADINUM is never a valid parent.
	BADINUM  Inum = 126
	NULLBNUM Bnum = 0
)

// FirstDataBlock and LastDataBlock bound the allocatable block range.
const (
	FirstDataBlock Bnum = 1
	LastDataBlock  Bnum = NBLOCKS - 1
)
