// Package layout defines the on-disk byte layout shared by the serializer
// and the mmap loader: the fixed 128-byte header, arena alignment rules,
// and the node-table/neighbor-arena encoding. Keeping both sides of the
// format in one package is what lets the loader mmap the file and read it
// with no parse step — the struct here IS the wire format.
//
// Header field layout, grounded on the 128-byte cache-line-friendly
// magic+version+section-offsets+CRC32 pattern from libravdb's on-disk
// format (magic, version, section sizes, checksum, reserved tail), here
// adapted to the exact field set and offsets this spec's header mandates:
package layout

import "encoding/binary"

const (
	// Magic identifies a vecx index file.
	Magic = "VECX"

	HeaderSize = 128

	VersionMajor uint16 = 1
	VersionMinor uint16 = 0

	// ArenaAlignment is the byte boundary every arena starts on, chosen
	// so AVX2/AVX-512 loads over the quantized and f32 arenas never
	// straddle an unaligned boundary.
	ArenaAlignment = 32

	FlagObfuscated uint32 = 1 << 0
	FlagHugePages  uint32 = 1 << 1

	// ResourceLimitMaxN and ResourceLimitMaxD are the loader's DoS
	// sanity bounds: a corrupt or hostile header cannot claim more
	// vectors or dimensions than these without being rejected outright.
	ResourceLimitMaxN = uint64(1) << 31
	ResourceLimitMaxD = uint64(1) << 16
)

// Header is the fixed 128-byte file header, byte-for-byte as specified:
// offsets 0..128, little-endian, all multi-byte fields naturally aligned.
type Header struct {
	Magic          [4]byte
	VersionMajor   uint16
	VersionMinor   uint16
	D              uint32
	N              uint32
	M              uint32
	M0             uint32
	EfConstruction uint32
	EntryPoint     uint32
	MaxLevel       uint32
	Flags          uint32
	ObfuscationKey uint64
	CRC32          uint32

	QuantArenaOffset uint32
	QuantArenaSize   uint32
	F32ArenaOffset   uint32
	F32ArenaSize     uint32

	NodeTableOffset uint32
	NodeTableSize   uint32

	NeighborArenaOffset uint32
	NeighborArenaSize   uint32
}

// Encode writes h into a freshly allocated 128-byte header block.
func (h *Header) Encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionMajor)
	binary.LittleEndian.PutUint16(buf[6:8], h.VersionMinor)
	binary.LittleEndian.PutUint32(buf[8:12], h.D)
	binary.LittleEndian.PutUint32(buf[12:16], h.N)
	binary.LittleEndian.PutUint32(buf[16:20], h.M)
	binary.LittleEndian.PutUint32(buf[20:24], h.M0)
	binary.LittleEndian.PutUint32(buf[24:28], h.EfConstruction)
	binary.LittleEndian.PutUint32(buf[28:32], h.EntryPoint)
	binary.LittleEndian.PutUint32(buf[32:36], h.MaxLevel)
	binary.LittleEndian.PutUint32(buf[36:40], h.Flags)
	binary.LittleEndian.PutUint64(buf[40:48], h.ObfuscationKey)
	binary.LittleEndian.PutUint32(buf[48:52], h.CRC32)
	// buf[52:60], buf[60:68], buf[68:76], buf[76:84] are the section
	// (offset,size) pairs — reserved[84:128] stays zero.
	binary.LittleEndian.PutUint32(buf[52:56], h.QuantArenaOffset)
	binary.LittleEndian.PutUint32(buf[56:60], h.QuantArenaSize)
	binary.LittleEndian.PutUint32(buf[60:64], h.F32ArenaOffset)
	binary.LittleEndian.PutUint32(buf[64:68], h.F32ArenaSize)
	binary.LittleEndian.PutUint32(buf[68:72], h.NodeTableOffset)
	binary.LittleEndian.PutUint32(buf[72:76], h.NodeTableSize)
	binary.LittleEndian.PutUint32(buf[76:80], h.NeighborArenaOffset)
	binary.LittleEndian.PutUint32(buf[80:84], h.NeighborArenaSize)
	return buf
}

// DecodeHeader parses the first 128 bytes of buf into a Header. The
// caller is responsible for validating it (see Validate).
func DecodeHeader(buf []byte) Header {
	var h Header
	copy(h.Magic[:], buf[0:4])
	h.VersionMajor = binary.LittleEndian.Uint16(buf[4:6])
	h.VersionMinor = binary.LittleEndian.Uint16(buf[6:8])
	h.D = binary.LittleEndian.Uint32(buf[8:12])
	h.N = binary.LittleEndian.Uint32(buf[12:16])
	h.M = binary.LittleEndian.Uint32(buf[16:20])
	h.M0 = binary.LittleEndian.Uint32(buf[20:24])
	h.EfConstruction = binary.LittleEndian.Uint32(buf[24:28])
	h.EntryPoint = binary.LittleEndian.Uint32(buf[28:32])
	h.MaxLevel = binary.LittleEndian.Uint32(buf[32:36])
	h.Flags = binary.LittleEndian.Uint32(buf[36:40])
	h.ObfuscationKey = binary.LittleEndian.Uint64(buf[40:48])
	h.CRC32 = binary.LittleEndian.Uint32(buf[48:52])
	h.QuantArenaOffset = binary.LittleEndian.Uint32(buf[52:56])
	h.QuantArenaSize = binary.LittleEndian.Uint32(buf[56:60])
	h.F32ArenaOffset = binary.LittleEndian.Uint32(buf[60:64])
	h.F32ArenaSize = binary.LittleEndian.Uint32(buf[64:68])
	h.NodeTableOffset = binary.LittleEndian.Uint32(buf[68:72])
	h.NodeTableSize = binary.LittleEndian.Uint32(buf[72:76])
	h.NeighborArenaOffset = binary.LittleEndian.Uint32(buf[76:80])
	h.NeighborArenaSize = binary.LittleEndian.Uint32(buf[80:84])
	return h
}

// AlignUp rounds n up to the next multiple of ArenaAlignment.
func AlignUp(n uint32) uint32 {
	rem := n % ArenaAlignment
	if rem == 0 {
		return n
	}
	return n + (ArenaAlignment - rem)
}

// QuantRecordSize is the per-vector size of the quantized arena: D bytes
// of i8 codes, 4 bytes norm, 4 bytes scale.
func QuantRecordSize(d uint32) uint32 {
	return d + 4 + 4
}

// F32RecordSize is the per-vector size of the full-precision arena.
func F32RecordSize(d uint32) uint32 {
	return d * 4
}
