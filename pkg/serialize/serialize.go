// Package serialize materializes a built hnsw.Builder into the on-disk
// arena format defined by pkg/layout: header, quantized arena,
// full-precision arena, node table, neighbor arena. The file is written
// atomically — to a ".tmp" sibling, fsynced, then renamed over the
// final path — so a reader never observes a partially-written index.
package serialize

import (
	"crypto/rand"
	"encoding/binary"
	"hash/crc32"
	"math"
	"os"

	"github.com/vecxdb/vecx/pkg/hnsw"
	"github.com/vecxdb/vecx/pkg/layout"
	"github.com/vecxdb/vecx/pkg/quant"
	"github.com/vecxdb/vecx/pkg/vxerrors"
)

// nodeRecordHeaderSize is level(u8) + pad(u8) + neighbor_offset(u32).
const nodeRecordHeaderSize = 6

// Save writes b's graph to path using the atomic tmp-fsync-rename
// sequence described in the package doc.
func Save(b *hnsw.Builder, path string) error {
	body, _, err := build(b)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return vxerrors.NewIoError("open", tmpPath, err)
	}

	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return vxerrors.NewIoError("write", tmpPath, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return vxerrors.NewIoError("fsync", tmpPath, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return vxerrors.NewIoError("close", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return vxerrors.NewIoError("rename", path, err)
	}

	return nil
}

// build lays out the full file body in memory and returns it along with
// the header that was patched into its first 128 bytes. Splitting this
// out from Save keeps the byte-layout logic testable without touching
// the filesystem.
func build(b *hnsw.Builder) ([]byte, layout.Header, error) {
	d := b.Dimension()
	n := int(b.Size())

	entryPoint, _ := b.EntryPointID()

	quantRecSize := layout.QuantRecordSize(uint32(d))
	f32RecSize := layout.F32RecordSize(uint32(d))

	quantArenaSize := quantRecSize * uint32(n)
	f32ArenaSize := f32RecSize * uint32(n)

	// First pass over nodes: compute each node's neighbor-arena byte
	// offset and the node table's variable-length record layout.
	type nodeLayout struct {
		id            uint32
		level         int
		neighborBase  uint32 // byte offset into the neighbor arena
		recordOffset  uint32 // byte offset into the node table's record region
		neighborCount []int  // per layer
	}
	layouts := make([]nodeLayout, 0, n)
	var neighborCursor uint32
	var recordCursor uint32

	b.ForEachNode(func(node *hnsw.Node) {
		counts := make([]int, node.Level()+1)
		for l := 0; l <= node.Level(); l++ {
			counts[l] = len(node.Neighbors(l))
		}
		nl := nodeLayout{
			id:            node.ID(),
			level:         node.Level(),
			neighborBase:  neighborCursor,
			recordOffset:  recordCursor,
			neighborCount: counts,
		}
		for _, c := range counts {
			neighborCursor += uint32(c) * 4
		}
		recordCursor += nodeRecordHeaderSize + uint32(2*len(counts))
		layouts = append(layouts, nl)
	})

	neighborArenaSize := neighborCursor
	nodeTableOffsetsSize := uint32(n) * 4
	nodeTableSize := nodeTableOffsetsSize + recordCursor

	offset := uint32(layout.HeaderSize)
	quantOffset := layout.AlignUp(offset)
	offset = quantOffset + quantArenaSize
	f32Offset := layout.AlignUp(offset)
	offset = f32Offset + f32ArenaSize
	nodeTableOffset := layout.AlignUp(offset)
	offset = nodeTableOffset + nodeTableSize
	neighborOffset := layout.AlignUp(offset)
	offset = neighborOffset + neighborArenaSize

	total := offset
	buf := make([]byte, total)

	// Quantized + full-precision arenas.
	qbuf := make([]int8, d)
	var obfKey uint64
	if err := randomUint64(&obfKey); err != nil {
		return nil, layout.Header{}, err
	}

	for i := 0; i < n; i++ {
		id := uint32(i)
		vec, err := b.Vector(id)
		if err != nil {
			return nil, layout.Header{}, err
		}

		qv := quant.QuantizeInto(vec, qbuf)
		rec := buf[quantOffset+uint32(i)*quantRecSize:]
		for j, c := range qv.Codes {
			rec[j] = byte(c)
		}
		binary.LittleEndian.PutUint32(rec[d:d+4], math.Float32bits(qv.Norm))
		binary.LittleEndian.PutUint32(rec[d+4:d+8], math.Float32bits(qv.Scale))

		f32rec := buf[f32Offset+uint32(i)*f32RecSize:]
		for j, x := range vec {
			binary.LittleEndian.PutUint32(f32rec[j*4:j*4+4], math.Float32bits(x))
		}
		xorChunks(f32rec[:f32RecSize], obfKey)
	}

	// Node table: fixed offsets array, then variable-length records.
	offsetsRegion := buf[nodeTableOffset : nodeTableOffset+nodeTableOffsetsSize]
	recordsRegion := buf[nodeTableOffset+nodeTableOffsetsSize:]

	for _, nl := range layouts {
		binary.LittleEndian.PutUint32(offsetsRegion[nl.id*4:nl.id*4+4], nl.recordOffset)

		rec := recordsRegion[nl.recordOffset:]
		rec[0] = byte(nl.level)
		rec[1] = 0
		binary.LittleEndian.PutUint32(rec[2:6], nl.neighborBase)
		for l, c := range nl.neighborCount {
			binary.LittleEndian.PutUint16(rec[6+2*l:8+2*l], uint16(c))
		}
	}

	// Neighbor arena: flat u32 ids, in the same per-node/per-layer order
	// the node table's neighborBase offsets assume.
	neighborRegion := buf[neighborOffset : neighborOffset+neighborArenaSize]
	for _, nl := range layouts {
		node := b.Node(nl.id)
		pos := nl.neighborBase
		for l := 0; l <= nl.level; l++ {
			for _, nid := range node.Neighbors(l) {
				binary.LittleEndian.PutUint32(neighborRegion[pos:pos+4], nid)
				pos += 4
			}
		}
	}

	stats := b.GetStats()
	h := layout.Header{
		VersionMajor:        layout.VersionMajor,
		VersionMinor:        layout.VersionMinor,
		D:                   uint32(d),
		N:                   uint32(n),
		M:                   uint32(stats.M),
		M0:                  uint32(b.M0Degree()),
		EfConstruction:      uint32(stats.EfConstruction),
		EntryPoint:          entryPoint,
		MaxLevel:            uint32(b.MaxLevel()),
		Flags:               layout.FlagObfuscated,
		ObfuscationKey:      obfKey,
		QuantArenaOffset:    quantOffset,
		QuantArenaSize:      quantArenaSize,
		F32ArenaOffset:      f32Offset,
		F32ArenaSize:        f32ArenaSize,
		NodeTableOffset:     nodeTableOffset,
		NodeTableSize:       nodeTableSize,
		NeighborArenaOffset: neighborOffset,
		NeighborArenaSize:   neighborArenaSize,
	}
	copy(h.Magic[:], layout.Magic)

	checksum := crc32.ChecksumIEEE(buf[layout.HeaderSize:])
	h.CRC32 = checksum

	headerBytes := h.Encode()
	copy(buf[0:layout.HeaderSize], headerBytes[:])

	return buf, h, nil
}

func randomUint64(out *uint64) error {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return vxerrors.NewIoError("rand", "obfuscation key", err)
	}
	*out = binary.LittleEndian.Uint64(b[:])
	return nil
}

func xorChunks(buf []byte, key uint64) {
	var keyBytes [8]byte
	binary.LittleEndian.PutUint64(keyBytes[:], key)
	for i := 0; i < len(buf); i++ {
		buf[i] ^= keyBytes[i%8]
	}
}
