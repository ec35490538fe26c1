package fs

import (
	"errors"

	"github.com/mit-pdos/go-flatfs/alloc"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/fsck"
	"github.com/mit-pdos/go-flatfs/inode"
)

// Every failing operation returns one of these (possibly wrapped) and
// leaves the mounted superblock, working directory and buffer unchanged.
var (
	ErrNotMounted    = errors.New("no file system is mounted")
	ErrInconsistent  = fsck.ErrInconsistent
	ErrNameInvalid   = inode.ErrNameInvalid
	ErrNameCollision = errors.New("file or directory already exists")
	ErrNoFreeInode   = errors.New("no free inode")
	ErrNoSpace       = alloc.ErrNoSpace
	ErrNotFound      = errors.New("no such file or directory")
	ErrNotDir        = errors.New("not a directory")
	ErrIsDir         = errors.New("is a directory")
	ErrRange         = errors.New("out of range")
	ErrIO            = disk.ErrIO
)
