// Package fsck decides whether a superblock image may be mounted.
//
// Check runs six checks in order, each over the whole inode table in index
// order, and reports the first one that fails:
//
//  1. a free inode has every field zero
//  2. a file's extent lies within blocks 1..127
//  3. a directory has size 0 and start block 0
//  4. every in-use inode's parent is an in-use directory or the root;
//     parent 126 is never valid
//  5. names are unique within a directory
//  6. a data block is marked in the bitmap iff exactly one file covers it
package fsck

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/inode"
	"github.com/mit-pdos/go-flatfs/super"
	"github.com/mit-pdos/go-flatfs/util"
)

var ErrInconsistent = errors.New("file system is inconsistent")

const (
	CodeFreeNotZero Code = iota + 1
	CodeBadExtent
	CodeBadDir
	CodeBadParent
	CodeDupName
	CodeBitmap
)

type Code int

// InconsistencyError reports the failing check and where it failed.
type InconsistencyError struct {
	Code  Code
	Inum  common.Inum // for checks 1-5
	Bnum  common.Bnum // for check 6
	Cause string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%v (error code: %d): %s", ErrInconsistent, e.Code, e.Cause)
}

func (e *InconsistencyError) Is(target error) bool {
	return target == ErrInconsistent
}

func inodeErr(c Code, i int, format string, a ...interface{}) error {
	return &InconsistencyError{
		Code:  c,
		Inum:  common.Inum(i),
		Cause: fmt.Sprintf("inode %d: ", i) + fmt.Sprintf(format, a...),
	}
}

func checkFree(img *super.Image) error {
	for i, r := range img.Records {
		if !r.InUse() && !r.IsZero() {
			return inodeErr(CodeFreeNotZero, i, "free but not zeroed")
		}
	}
	return nil
}

func checkExtents(img *super.Image) error {
	for i, r := range img.Records {
		if !r.InUse() || r.Size() == 0 {
			continue
		}
		if r.Start() < common.FirstDataBlock || r.Start() > common.LastDataBlock ||
			r.Start()+r.Size()-1 > common.LastDataBlock {
			return inodeErr(CodeBadExtent, i, "extent %d+%d out of range",
				r.Start(), r.Size())
		}
	}
	return nil
}

func checkDirs(img *super.Image) error {
	for i, r := range img.Records {
		if r.InUse() && r.IsDirMarked() && (r.Size() != 0 || r.Start() != 0) {
			return inodeErr(CodeBadDir, i, "directory with size %d start %d",
				r.Size(), r.Start())
		}
	}
	return nil
}

func checkParents(img *super.Image) error {
	for i, r := range img.Records {
		if !r.InUse() {
			continue
		}
		p := r.Parent()
		if p == common.ROOTINUM {
			continue
		}
		if p == common.BADINUM {
			return inodeErr(CodeBadParent, i, "parent %d", p)
		}
		pr := img.Records[p]
		if !pr.InUse() || !pr.IsDirMarked() {
			return inodeErr(CodeBadParent, i, "parent %d is not a directory", p)
		}
	}
	return nil
}

func checkNames(img *super.Image) error {
	for i, r := range img.Records {
		if !r.InUse() {
			continue
		}
		for j := i + 1; j < len(img.Records); j++ {
			r2 := img.Records[j]
			if r2.InUse() && r2.Parent() == r.Parent() && r2.Name == r.Name {
				return inodeErr(CodeDupName, i, "name %q repeated by inode %d",
					r.Name.String(), j)
			}
		}
	}
	return nil
}

func checkBitmap(img *super.Image) error {
	for bn := common.FirstDataBlock; bn <= common.LastDataBlock; bn++ {
		owners := 0
		for _, r := range img.Records {
			e := inode.Decode(r)
			if e.Covers(bn) {
				owners += 1
			}
		}
		used := img.Bitmap.IsSet(bn)
		if (used && owners != 1) || (!used && owners != 0) {
			return &InconsistencyError{
				Code: CodeBitmap,
				Bnum: bn,
				Cause: fmt.Sprintf("block %d marked %v with %d owners",
					bn, used, owners),
			}
		}
	}
	return nil
}

var checks = []func(*super.Image) error{
	checkFree,
	checkExtents,
	checkDirs,
	checkParents,
	checkNames,
	checkBitmap,
}

// Check returns nil if img may be mounted, or an *InconsistencyError.
func Check(img *super.Image) error {
	for _, check := range checks {
		if err := check(img); err != nil {
			util.DPrintf(1, "fsck: %v\n", err)
			return err
		}
	}
	return nil
}
