package layout

import (
	"fmt"

	"github.com/vecxdb/vecx/pkg/vxerrors"
)

// Validate checks header-internal and header-vs-filesize consistency:
// magic, version, DoS sanity bounds, and that every arena's (offset,size)
// fits inside the file without overlapping another arena. It does not
// check the CRC32 — that is a separate, more expensive pass over the
// whole body (see the mmapindex package).
func Validate(h *Header, fileSize int64) error {
	if string(h.Magic[:]) != Magic {
		return vxerrors.NewFormatError(fmt.Sprintf("bad magic %q, want %q", h.Magic[:], Magic))
	}
	if h.VersionMajor != VersionMajor {
		return vxerrors.NewFormatError(fmt.Sprintf("unsupported version %d.%d", h.VersionMajor, h.VersionMinor))
	}
	if uint64(h.N) > ResourceLimitMaxN {
		return &vxerrors.ResourceLimit{Field: "N", Value: uint64(h.N), Limit: ResourceLimitMaxN}
	}
	if uint64(h.D) > ResourceLimitMaxD {
		return &vxerrors.ResourceLimit{Field: "D", Value: uint64(h.D), Limit: ResourceLimitMaxD}
	}

	arenas := []struct {
		name         string
		offset, size uint32
	}{
		{"quant", h.QuantArenaOffset, h.QuantArenaSize},
		{"f32", h.F32ArenaOffset, h.F32ArenaSize},
		{"node_table", h.NodeTableOffset, h.NodeTableSize},
		{"neighbor", h.NeighborArenaOffset, h.NeighborArenaSize},
	}

	for _, a := range arenas {
		end := uint64(a.offset) + uint64(a.size)
		if end > uint64(fileSize) {
			return vxerrors.NewFormatError(fmt.Sprintf("%s arena [%d,%d) exceeds file size %d", a.name, a.offset, end, fileSize))
		}
		if a.offset < HeaderSize {
			return vxerrors.NewFormatError(fmt.Sprintf("%s arena starts before end of header", a.name))
		}
	}

	for i := 0; i < len(arenas); i++ {
		for j := i + 1; j < len(arenas); j++ {
			a, b := arenas[i], arenas[j]
			aEnd := uint64(a.offset) + uint64(a.size)
			bEnd := uint64(b.offset) + uint64(b.size)
			if uint64(a.offset) < bEnd && uint64(b.offset) < aEnd {
				return vxerrors.NewFormatError(fmt.Sprintf("%s arena overlaps %s arena", a.name, b.name))
			}
		}
	}

	return nil
}
