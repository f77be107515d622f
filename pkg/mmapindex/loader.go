// Package mmapindex memory-maps a file written by pkg/serialize and
// exposes zero-copy typed views over it, plus the two-stage query
// pipeline that runs directly against the mapped pages: a coarse
// traversal over the quantized arena followed by an exact rerank over
// the full-precision arena.
package mmapindex

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/vecxdb/vecx/pkg/layout"
	"github.com/vecxdb/vecx/pkg/vxerrors"
)

// Index is a read-only, memory-mapped view of a serialized index. Every
// method is safe for concurrent use by any number of readers; nothing
// here mutates the mapped bytes.
type Index struct {
	file *os.File
	data []byte
	h    layout.Header

	quantRecSize uint32
	f32RecSize   uint32

	scratchPool sync.Pool
}

// Load opens path, maps it read-only, and validates the header and body
// checksum before returning. The returned Index owns the mapping until
// Close is called.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, vxerrors.NewIoError("open", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, vxerrors.NewIoError("stat", path, err)
	}
	size := fi.Size()
	if size < layout.HeaderSize {
		f.Close()
		return nil, vxerrors.NewFormatError("file shorter than header")
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, vxerrors.NewIoError("mmap", path, err)
	}

	_ = unix.Madvise(data, unix.MADV_WILLNEED)

	h := layout.DecodeHeader(data)
	if err := layout.Validate(&h, size); err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, err
	}

	got := crc32.ChecksumIEEE(data[layout.HeaderSize:])
	if got != h.CRC32 {
		unix.Munmap(data)
		f.Close()
		return nil, &vxerrors.ChecksumMismatch{Want: h.CRC32, Got: got}
	}

	if h.Flags&layout.FlagHugePages != 0 {
		_ = unix.Madvise(data, unix.MADV_HUGEPAGE)
	}

	idx := &Index{
		file:         f,
		data:         data,
		h:            h,
		quantRecSize: layout.QuantRecordSize(h.D),
		f32RecSize:   layout.F32RecordSize(h.D),
	}
	idx.scratchPool.New = func() interface{} { return newScratch(int(h.N), int(h.D)) }
	return idx, nil
}

// Close unmaps the file and releases the file descriptor. The Index
// must not be used after Close returns.
func (idx *Index) Close() error {
	if err := unix.Munmap(idx.data); err != nil {
		idx.file.Close()
		return vxerrors.NewIoError("munmap", idx.file.Name(), err)
	}
	return idx.file.Close()
}

// Len returns the number of vectors in the index.
func (idx *Index) Len() int { return int(idx.h.N) }

// Dim returns the vector dimension.
func (idx *Index) Dim() int { return int(idx.h.D) }

// Header exposes a copy of the decoded header, mostly for diagnostics.
func (idx *Index) Header() layout.Header { return idx.h }

// quantRecord returns the raw quantized record for id: D i8 codes, a
// norm f32, and a scale f32, all as a zero-copy slice view.
func (idx *Index) quantRecord(id uint32) []byte {
	off := idx.h.QuantArenaOffset + id*idx.quantRecSize
	return idx.data[off : off+idx.quantRecSize]
}

// quantCodes returns a zero-copy []int8 view of id's code bytes: int8
// and byte share layout, so this is a straight pointer reinterpretation
// of the mapped page, not a conversion loop. The returned slice aliases
// the mapping and must not be retained past the caller's use of it.
func (idx *Index) quantCodes(id uint32) []int8 {
	rec := idx.quantRecord(id)
	d := int(idx.h.D)
	if d == 0 {
		return nil
	}
	return unsafe.Slice((*int8)(unsafe.Pointer(&rec[0])), d)
}

func (idx *Index) quantNormScale(id uint32) (norm, scale float32) {
	rec := idx.quantRecord(id)
	d := idx.h.D
	norm = math.Float32frombits(binary.LittleEndian.Uint32(rec[d : d+4]))
	scale = math.Float32frombits(binary.LittleEndian.Uint32(rec[d+4 : d+8]))
	return
}

// f32Vector decodes and de-obfuscates the full-precision vector for id.
// Always allocates, since the stored bytes are XORed and cannot be
// handed back as a zero-copy []float32 view.
func (idx *Index) f32Vector(id uint32) []float32 {
	off := idx.h.F32ArenaOffset + id*idx.f32RecSize
	rec := idx.data[off : off+idx.f32RecSize]

	var keyBytes [8]byte
	binary.LittleEndian.PutUint64(keyBytes[:], idx.h.ObfuscationKey)

	d := int(idx.h.D)
	out := make([]float32, d)
	obfuscated := idx.h.Flags&layout.FlagObfuscated != 0
	for i := 0; i < d; i++ {
		b0, b1, b2, b3 := rec[i*4], rec[i*4+1], rec[i*4+2], rec[i*4+3]
		if obfuscated {
			b0 ^= keyBytes[(i*4)%8]
			b1 ^= keyBytes[(i*4+1)%8]
			b2 ^= keyBytes[(i*4+2)%8]
			b3 ^= keyBytes[(i*4+3)%8]
		}
		bits := uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// Vector returns a copy of the full-precision vector for id.
func (idx *Index) Vector(id uint32) ([]float32, error) {
	if id >= idx.h.N {
		return nil, vxerrors.NewConfigError("id", "out of range")
	}
	return idx.f32Vector(id), nil
}

// nodeRecord returns (level, neighborBase, counts) for id.
func (idx *Index) nodeRecord(id uint32) (level int, neighborBase uint32, counts []int) {
	offsetsRegion := idx.data[idx.h.NodeTableOffset : idx.h.NodeTableOffset+idx.h.N*4]
	recordOffset := binary.LittleEndian.Uint32(offsetsRegion[id*4 : id*4+4])

	recordsRegion := idx.data[idx.h.NodeTableOffset+idx.h.N*4:]
	rec := recordsRegion[recordOffset:]

	level = int(rec[0])
	neighborBase = binary.LittleEndian.Uint32(rec[2:6])
	counts = make([]int, level+1)
	for l := 0; l <= level; l++ {
		counts[l] = int(binary.LittleEndian.Uint16(rec[6+2*l : 8+2*l]))
	}
	return
}

// neighbors returns a zero-copy []uint32 view of id's neighbor ids at
// layer l. Every neighbor record starts at a 4-byte-aligned offset from
// the 32-byte-aligned arena base (each entry is exactly 4 bytes), so
// reinterpreting the backing bytes as []uint32 is safe on the
// little-endian hosts this format targets — the bytes were written
// with binary.LittleEndian by pkg/serialize, so this is only valid on
// a little-endian reader, matching the amd64/arm64 hosts the kernel
// dispatch already assumes. The returned slice aliases the mapping and
// must not be retained past the caller's use of it.
func (idx *Index) neighbors(id uint32, l int) []uint32 {
	level, base, counts := idx.nodeRecord(id)
	if l < 0 || l > level {
		return nil
	}
	var skip uint32
	for k := 0; k < l; k++ {
		skip += uint32(counts[k]) * 4
	}
	count := counts[l]
	if count == 0 {
		return nil
	}
	off := idx.h.NeighborArenaOffset + base + skip
	region := idx.data[off : off+uint32(count)*4]
	return unsafe.Slice((*uint32)(unsafe.Pointer(&region[0])), count)
}
