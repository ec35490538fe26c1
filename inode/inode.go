// Package inode describes the 8-byte inode record and its decoded form.
//
// On disk a record packs two flags into the high bit of otherwise numeric
// bytes:
//
//	name[5] | used(1) size(7) | start_block | dir(1) parent(7)
//
// The rest of the file system only sees Entry, a tagged variant built from
// a record by Decode and turned back into one by Encode.
package inode

import (
	"fmt"

	"github.com/mit-pdos/go-flatfs/common"
)

const (
	usedBit   byte = 0x80
	dirBit    byte = 0x80
	fieldMask byte = 0x7F
)

// Record is the raw on-disk inode.
type Record struct {
	Name      Name
	UsedSize  byte
	StartBlk  byte
	DirParent byte
}

func (r Record) InUse() bool {
	return r.UsedSize&usedBit != 0
}

func (r Record) Size() uint64 {
	return uint64(r.UsedSize & fieldMask)
}

func (r Record) Start() common.Bnum {
	return common.Bnum(r.StartBlk)
}

// IsDirMarked reports the directory marker in dir_parent, which is stored
// independently of size.
func (r Record) IsDirMarked() bool {
	return r.DirParent&dirBit != 0
}

func (r Record) Parent() common.Inum {
	return common.Inum(r.DirParent & fieldMask)
}

func (r Record) IsZero() bool {
	return r == Record{}
}

// Bytes returns the record as stored on disk.
func (r Record) Bytes() []byte {
	b := make([]byte, common.INODESZ)
	copy(b, r.Name[:])
	b[common.NAMELEN] = r.UsedSize
	b[common.NAMELEN+1] = r.StartBlk
	b[common.NAMELEN+2] = r.DirParent
	return b
}

func RecordFromBytes(b []byte) Record {
	var r Record
	copy(r.Name[:], b)
	r.UsedSize = b[common.NAMELEN]
	r.StartBlk = b[common.NAMELEN+1]
	r.DirParent = b[common.NAMELEN+2]
	return r
}

type Kind uint8

const (
	Free Kind = iota
	File
	Dir
)

func (k Kind) String() string {
	switch k {
	case Free:
		return "free"
	case File:
		return "file"
	case Dir:
		return "dir"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Entry is a decoded inode. Name and Parent are meaningful for File and
// Dir; Start and Size only for File.
type Entry struct {
	Kind   Kind
	Name   Name
	Parent common.Inum
	Start  common.Bnum
	Size   uint64
}

func MkFile(name Name, parent common.Inum, start common.Bnum, size uint64) Entry {
	return Entry{Kind: File, Name: name, Parent: parent, Start: start, Size: size}
}

func MkDir(name Name, parent common.Inum) Entry {
	return Entry{Kind: Dir, Name: name, Parent: parent}
}

func (e Entry) InUse() bool {
	return e.Kind != Free
}

func (e Entry) IsFile() bool {
	return e.Kind == File
}

func (e Entry) IsDir() bool {
	return e.Kind == Dir
}

// Last is the final block of a file's extent.
func (e Entry) Last() common.Bnum {
	return e.Start + common.Bnum(e.Size) - 1
}

// Covers reports whether bn is inside the file's extent.
func (e Entry) Covers(bn common.Bnum) bool {
	return e.IsFile() && bn >= e.Start && bn <= e.Last()
}

// Decode interprets a record. An in-use record of size zero is a directory.
func Decode(r Record) Entry {
	if !r.InUse() {
		return Entry{}
	}
	if r.Size() == 0 {
		return MkDir(r.Name, r.Parent())
	}
	return MkFile(r.Name, r.Parent(), r.Start(), r.Size())
}

// Encode produces the on-disk record for e.
func Encode(e Entry) Record {
	switch e.Kind {
	case File:
		return Record{
			Name:      e.Name,
			UsedSize:  usedBit | byte(e.Size)&fieldMask,
			StartBlk:  byte(e.Start),
			DirParent: byte(e.Parent) & fieldMask,
		}
	case Dir:
		return Record{
			Name:      e.Name,
			UsedSize:  usedBit,
			DirParent: dirBit | byte(e.Parent)&fieldMask,
		}
	}
	return Record{}
}

func (e Entry) String() string {
	switch e.Kind {
	case File:
		return fmt.Sprintf("file %q parent %d blocks %d-%d", e.Name.String(),
			e.Parent, e.Start, e.Last())
	case Dir:
		return fmt.Sprintf("dir %q parent %d", e.Name.String(), e.Parent)
	}
	return "free"
}
