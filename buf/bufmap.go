package buf

import (
	"sort"
)

//
// A map from host block numbers to the bufs that live in them.
//

type BufMap struct {
	bufs map[uint64][]*Buf
}

func MkBufMap() *BufMap {
	a := &BufMap{
		bufs: make(map[uint64][]*Buf),
	}
	return a
}

func (bmap *BufMap) Insert(buf *Buf) {
	blkno := buf.Addr.Blkno
	bmap.bufs[blkno] = append(bmap.bufs[blkno], buf)
}

// Blknos returns the host blocks touched by the map, in ascending order.
func (bmap *BufMap) Blknos() []uint64 {
	blknos := make([]uint64, 0, len(bmap.bufs))
	for blkno := range bmap.bufs {
		blknos = append(blknos, blkno)
	}
	sort.Slice(blknos, func(i, j int) bool { return blknos[i] < blknos[j] })
	return blknos
}

func (bmap *BufMap) Bufs(blkno uint64) []*Buf {
	return bmap.bufs[blkno]
}

// Ndirty counts the dirty bufs in host block blkno.
func (bmap *BufMap) Ndirty(blkno uint64) uint64 {
	n := uint64(0)
	for _, b := range bmap.bufs[blkno] {
		if b.dirty {
			n += 1
		}
	}
	return n
}
