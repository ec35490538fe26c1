package super

import (
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/inode"
)

// Helpers for walking the inode table as a directory tree. The table is
// small enough that every lookup is a linear scan in index order.

func (sb *Superblock) Get(inum common.Inum) inode.Entry {
	return sb.Inodes[inum]
}

func (sb *Superblock) Put(inum common.Inum, e inode.Entry) {
	sb.Inodes[inum] = e
}

// IsDir reports whether inum names a directory, counting the virtual root.
func (sb *Superblock) IsDir(inum common.Inum) bool {
	if inum == common.ROOTINUM {
		return true
	}
	return uint64(inum) < common.NINODE && sb.Inodes[inum].IsDir()
}

// Parent of a directory; the root is its own parent.
func (sb *Superblock) Parent(dir common.Inum) common.Inum {
	if dir == common.ROOTINUM {
		return common.ROOTINUM
	}
	return sb.Inodes[dir].Parent
}

// Children lists the in-use entries of dir in inode order.
func (sb *Superblock) Children(dir common.Inum) []common.Inum {
	var inums []common.Inum
	for i, e := range sb.Inodes {
		if e.InUse() && e.Parent == dir {
			inums = append(inums, common.Inum(i))
		}
	}
	return inums
}

// Lookup finds name among the entries of dir.
func (sb *Superblock) Lookup(dir common.Inum, name inode.Name) (common.Inum, bool) {
	for i, e := range sb.Inodes {
		if e.InUse() && e.Parent == dir && e.Name == name {
			return common.Inum(i), true
		}
	}
	return 0, false
}

// AllocInode returns the lowest free inode slot.
func (sb *Superblock) AllocInode() (common.Inum, bool) {
	for i, e := range sb.Inodes {
		if !e.InUse() {
			return common.Inum(i), true
		}
	}
	return 0, false
}

// FileAt returns the file whose extent starts at bn.
func (sb *Superblock) FileAt(bn common.Bnum) (common.Inum, bool) {
	for i, e := range sb.Inodes {
		if e.IsFile() && e.Start == bn {
			return common.Inum(i), true
		}
	}
	return 0, false
}

// Subtree returns dir's descendants, children before their own contents.
// Each inode is reported once even if a corrupt table loops.
func (sb *Superblock) Subtree(dir common.Inum) []common.Inum {
	seen := make(map[common.Inum]bool)
	seen[dir] = true
	var out []common.Inum
	var walk func(d common.Inum)
	walk = func(d common.Inum) {
		for _, c := range sb.Children(d) {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			if sb.Inodes[c].IsDir() {
				walk(c)
			}
		}
	}
	walk(dir)
	return out
}
