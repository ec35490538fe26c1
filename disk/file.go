package disk

import (
	"fmt"
	"os"

	"github.com/tchajed/goose/machine/disk"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/util"
)

func statImage(path string) error {
	var stat unix.Stat_t
	err := unix.Stat(path, &stat)
	if err != nil {
		return fmt.Errorf("%w: cannot find disk %s: %w", ErrIO, path, err)
	}
	if (stat.Mode & unix.S_IFMT) != unix.S_IFREG {
		return fmt.Errorf("%w: %s is not a regular file", ErrIO, path)
	}
	if uint64(stat.Size) != common.DISKSIZE {
		return fmt.Errorf("%w: %s is %d bytes, want %d", ErrIO, path,
			stat.Size, common.DISKSIZE)
	}
	return nil
}

// ReadSuper reads the superblock of the image at path without opening it
// for writing.
func ReadSuper(path string) (Block, error) {
	if err := statImage(path); err != nil {
		return nil, err
	}
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer unix.Close(fd)
	b := make(Block, BlockSize)
	n, err := unix.Pread(fd, b, int64(common.SUPERBLOCK*BlockSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read superblock from %s: %w", ErrIO, path, err)
	}
	if uint64(n) != BlockSize {
		return nil, fmt.Errorf("%w: short superblock read from %s (%d bytes)",
			ErrIO, path, n)
	}
	util.DPrintf(3, "ReadSuper: %s\n", path)
	return b, nil
}

// Open opens an existing image for reading and writing.
func Open(path string) (Disk, error) {
	if err := statImage(path); err != nil {
		return nil, err
	}
	d, err := disk.NewFileDisk(path, hostBlocks())
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	util.DPrintf(3, "Open: file disk %s\n", path)
	return &packedDisk{d: d}, nil
}

// Create makes a new all-zero image at path, which mounts as an empty file
// system. It refuses to overwrite an existing file.
func Create(path string) error {
	_, err := os.Lstat(path)
	if err == nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, path, os.ErrExist)
	}
	d, err := disk.NewFileDisk(path, hostBlocks())
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, path, err)
	}
	pd := &packedDisk{d: d}
	if err := pd.Barrier(); err != nil {
		pd.Close()
		return err
	}
	util.DPrintf(1, "Create: %s (%d blocks)\n", path, common.NBLOCKS)
	return pd.Close()
}
