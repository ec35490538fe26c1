package fs

import (
	"fmt"
	"io"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/inode"
	"github.com/mit-pdos/go-flatfs/super"
	"github.com/mit-pdos/go-flatfs/util"
)

// Create makes a file of size blocks in the working directory, or a
// directory if size is 0.
func (fs *FileSys) Create(name string, size uint64) error {
	sb, a, err := fs.begin()
	if err != nil {
		return err
	}
	n, err := inode.MkName(name)
	if err != nil {
		return err
	}
	if size > common.MAXFILESZ {
		return fmt.Errorf("%w: size %d exceeds %d blocks", ErrRange, size,
			common.MAXFILESZ)
	}
	if _, ok := sb.Lookup(fs.cwd, n); ok {
		return fmt.Errorf("%w: %q", ErrNameCollision, name)
	}
	inum, ok := sb.AllocInode()
	if !ok {
		return fmt.Errorf("%w: cannot create %q", ErrNoFreeInode, name)
	}
	var e inode.Entry
	if size == 0 {
		e = inode.MkDir(n, fs.cwd)
	} else {
		start, err := a.AllocRange(size)
		if err != nil {
			return fmt.Errorf("cannot allocate %d blocks for %q: %w", size, name, err)
		}
		e = inode.MkFile(n, fs.cwd, start, size)
	}
	sb.Put(inum, e)
	if err := fs.commit(sb); err != nil {
		return err
	}
	util.DPrintf(1, "create %d: %v\n", inum, e)
	return nil
}

// Delete removes name from the working directory. Deleting a directory
// removes everything below it. Freed blocks are zeroed.
func (fs *FileSys) Delete(name string) error {
	sb, a, err := fs.begin()
	if err != nil {
		return err
	}
	inum, err := fs.lookup(sb, name)
	if err != nil {
		return err
	}
	victims := []common.Inum{inum}
	if sb.Get(inum).IsDir() {
		victims = append(victims, sb.Subtree(inum)...)
	}
	for _, v := range victims {
		e := sb.Get(v)
		if e.IsFile() {
			if err := a.FreeRange(e.Start, e.Size); err != nil {
				return err
			}
		}
		sb.Put(v, inode.Entry{})
	}
	if err := fs.commit(sb); err != nil {
		return err
	}
	util.DPrintf(1, "delete %q: %d inodes\n", name, len(victims))
	return nil
}

// lookup resolves name in the working directory.
func (fs *FileSys) lookup(sb *super.Superblock, name string) (common.Inum, error) {
	n, err := inode.MkName(name)
	if err != nil {
		return 0, err
	}
	inum, ok := sb.Lookup(fs.cwd, n)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return inum, nil
}

// Chdir changes the working directory. ".." at the root stays at the root.
func (fs *FileSys) Chdir(name string) error {
	if !fs.Mounted() {
		return ErrNotMounted
	}
	switch name {
	case ".":
		return nil
	case "..":
		fs.cwd = fs.sb.Parent(fs.cwd)
		return nil
	}
	inum, err := fs.lookup(fs.sb, name)
	if err != nil {
		return err
	}
	if !fs.sb.IsDir(inum) {
		return fmt.Errorf("%w: %q", ErrNotDir, name)
	}
	fs.cwd = inum
	util.DPrintf(3, "chdir %q: %d\n", name, inum)
	return nil
}

// DirEntry is one line of a directory listing. Size is in blocks for a
// file and is the entry count for a directory.
type DirEntry struct {
	Name string
	Kind inode.Kind
	Size uint64
}

// Listing describes the working directory. Counts include "." and "..".
type Listing struct {
	Dot     uint64
	DotDot  uint64
	Entries []DirEntry
}

func nentries(sb *super.Superblock, dir common.Inum) uint64 {
	return uint64(len(sb.Children(dir))) + 2
}

// List describes the working directory, entries in inode order.
func (fs *FileSys) List() (*Listing, error) {
	if !fs.Mounted() {
		return nil, ErrNotMounted
	}
	sb := fs.sb
	l := &Listing{
		Dot:    nentries(sb, fs.cwd),
		DotDot: nentries(sb, sb.Parent(fs.cwd)),
	}
	for _, c := range sb.Children(fs.cwd) {
		e := sb.Get(c)
		de := DirEntry{Name: e.Name.String(), Kind: e.Kind, Size: e.Size}
		if e.IsDir() {
			de.Size = nentries(sb, c)
		}
		l.Entries = append(l.Entries, de)
	}
	return l, nil
}

// WriteTo prints the listing, one entry per line.
func (l *Listing) WriteTo(w io.Writer) (int64, error) {
	var total int64
	printf := func(format string, a ...interface{}) error {
		n, err := fmt.Fprintf(w, format, a...)
		total += int64(n)
		return err
	}
	if err := printf(".       %d\n", l.Dot); err != nil {
		return total, err
	}
	if err := printf("..      %d\n", l.DotDot); err != nil {
		return total, err
	}
	for _, e := range l.Entries {
		var err error
		if e.Kind == inode.Dir {
			err = printf("%-5.5s %3d\n", e.Name, e.Size)
		} else {
			err = printf("%-5.5s %3d KB\n", e.Name, e.Size)
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
