package disk

import (
	"fmt"

	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-flatfs/addr"
	"github.com/mit-pdos/go-flatfs/buf"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/util"
)

var _ Disk = (*packedDisk)(nil)

// packedDisk stores file-system blocks inside the blocks of a goose disk.
type packedDisk struct {
	d disk.Disk
}

// hostBlocks is the size of the goose disk backing one image.
func hostBlocks() uint64 {
	return util.RoundUp(common.DISKSIZE, disk.BlockSize)
}

func NewMemDisk() Disk {
	return &packedDisk{d: disk.NewMemDisk(hostBlocks())}
}

// goose disks panic on I/O errors; turn that into ErrIO for the caller.
func recoverIO(op string, a common.Bnum, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s block %d: %v", ErrIO, op, a, r)
	}
}

func checkBnum(op string, a common.Bnum) error {
	if a >= common.NBLOCKS {
		return fmt.Errorf("%w: out-of-bounds %s at %d", ErrIO, op, a)
	}
	return nil
}

func checkBlock(v Block) error {
	if uint64(len(v)) != BlockSize {
		return fmt.Errorf("%w: buffer is not block-sized (%d bytes)", ErrIO, len(v))
	}
	return nil
}

func (pd *packedDisk) ReadTo(a common.Bnum, b Block) (err error) {
	if err := checkBlock(b); err != nil {
		return err
	}
	if err := checkBnum("read", a); err != nil {
		return err
	}
	defer recoverIO("read", a, &err)
	ad := addr.MkBlockAddr(a)
	blk := pd.d.Read(ad.Blkno)
	copy(b, buf.MkBufLoad(ad, blk).Data)
	util.DPrintf(5, "read: %d\n", a)
	return nil
}

func (pd *packedDisk) Read(a common.Bnum) (Block, error) {
	b := make(Block, BlockSize)
	err := pd.ReadTo(a, b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (pd *packedDisk) Write(a common.Bnum, v Block) error {
	return pd.WriteBatch(a, []Block{v})
}

func (pd *packedDisk) ReadBatch(start common.Bnum, n uint64) (blks []Block, err error) {
	if n == 0 {
		return nil, nil
	}
	if err := checkBnum("read", start+n-1); err != nil {
		return nil, err
	}
	defer recoverIO("read", start, &err)
	var host disk.Block
	var hostno uint64
	for i := uint64(0); i < n; i++ {
		ad := addr.MkBlockAddr(start + i)
		if host == nil || ad.Blkno != hostno {
			host = pd.d.Read(ad.Blkno)
			hostno = ad.Blkno
		}
		b := buf.MkBufLoad(ad, host)
		blks = append(blks, util.CloneByteSlice(b.Data))
	}
	util.DPrintf(5, "read: %d-%d\n", start, start+n-1)
	return blks, nil
}

// WriteBatch installs the blocks into their host blocks. A host block is
// only written back if one of its blocks changed.
func (pd *packedDisk) WriteBatch(start common.Bnum, blocks []Block) (err error) {
	if len(blocks) == 0 {
		return nil
	}
	if err := checkBnum("write", start+uint64(len(blocks))-1); err != nil {
		return err
	}
	bmap := buf.MkBufMap()
	for i, v := range blocks {
		if err := checkBlock(v); err != nil {
			return err
		}
		bmap.Insert(buf.MkBuf(addr.MkBlockAddr(start+uint64(i)), v))
	}
	defer recoverIO("write", start, &err)
	nwrite := 0
	for _, blkno := range bmap.Blknos() {
		host := pd.d.Read(blkno)
		for _, b := range bmap.Bufs(blkno) {
			if b.Changed(host) {
				b.SetDirty()
			}
		}
		if bmap.Ndirty(blkno) == 0 {
			continue
		}
		for _, b := range bmap.Bufs(blkno) {
			if b.IsDirty() {
				b.Install(host)
			}
		}
		pd.d.Write(blkno, host)
		nwrite++
	}
	util.DPrintf(5, "write: %d-%d (%d of %d host blocks)\n", start,
		start+uint64(len(blocks))-1, nwrite, len(bmap.Blknos()))
	return nil
}

func (pd *packedDisk) Size() uint64 {
	return pd.d.Size() * addr.PERBLOCK
}

func (pd *packedDisk) Barrier() (err error) {
	defer recoverIO("barrier", 0, &err)
	pd.d.Barrier()
	return nil
}

func (pd *packedDisk) Close() (err error) {
	defer recoverIO("close", 0, &err)
	pd.d.Close()
	return nil
}
