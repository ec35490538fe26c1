package inode

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-flatfs/common"
)

// ErrNameInvalid is returned for names that cannot be stored in an inode.
var ErrNameInvalid = errors.New("invalid name")

// Name is the fixed-width on-disk name field. Shorter names are padded with
// zero bytes; a 5-byte name has no terminator.
type Name [common.NAMELEN]byte

// MkName validates s for storage in an inode. "." and ".." are reserved.
func MkName(s string) (Name, error) {
	var n Name
	if len(s) == 0 {
		return n, fmt.Errorf("%w: empty name", ErrNameInvalid)
	}
	if uint64(len(s)) > common.NAMELEN {
		return n, fmt.Errorf("%w: %q is longer than %d characters",
			ErrNameInvalid, s, common.NAMELEN)
	}
	if s == "." || s == ".." {
		return n, fmt.Errorf("%w: %q is reserved", ErrNameInvalid, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return n, fmt.Errorf("%w: %q contains a NUL byte", ErrNameInvalid, s)
		}
	}
	copy(n[:], s)
	return n, nil
}

// String returns the name up to the first zero byte.
func (n Name) String() string {
	for i, c := range n {
		if c == 0 {
			return string(n[:i])
		}
	}
	return string(n[:])
}
