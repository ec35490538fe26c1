// buf manages file-system blocks, packed into larger host disk blocks
package buf

import (
	"bytes"

	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-flatfs/addr"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/util"
)

// A Buf is one file-system block and the place it lives in its host block
type Buf struct {
	Addr  addr.Addr
	Data  []byte
	dirty bool // differs from the host block
}

func MkBuf(addr addr.Addr, data []byte) *Buf {
	if uint64(len(data)) != common.BlockSize {
		panic("MkBuf: data is not block-sized")
	}
	b := &Buf{
		Addr:  addr,
		Data:  data,
		dirty: false,
	}
	return b
}

// Load the bytes of a host block into a new buf, as specified by addr. The
// buf aliases blk.
func MkBufLoad(addr addr.Addr, blk disk.Block) *Buf {
	if addr.Off+common.BlockSize > uint64(len(blk)) {
		panic("MkBufLoad: offset outside host block")
	}
	data := blk[addr.Off : addr.Off+common.BlockSize]
	b := &Buf{
		Addr:  addr,
		Data:  data,
		dirty: false,
	}
	return b
}

// Install the bytes from buf into its host block blk.
func (buf *Buf) Install(blk disk.Block) {
	util.DPrintf(10, "%v: install\n", buf.Addr)
	if buf.Addr.Off+common.BlockSize > uint64(len(blk)) {
		panic("Install: offset outside host block")
	}
	copy(blk[buf.Addr.Off:], buf.Data)
}

// Changed reports whether buf differs from what its host block blk holds.
func (buf *Buf) Changed(blk disk.Block) bool {
	return !bytes.Equal(MkBufLoad(buf.Addr, blk).Data, buf.Data)
}

func (buf *Buf) IsDirty() bool {
	return buf.dirty
}

func (buf *Buf) SetDirty() {
	buf.dirty = true
}
