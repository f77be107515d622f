package layout

import "testing"

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{
		VersionMajor:        VersionMajor,
		VersionMinor:        VersionMinor,
		D:                   128,
		N:                   10000,
		M:                   16,
		M0:                  32,
		EfConstruction:      200,
		EntryPoint:          42,
		MaxLevel:            5,
		Flags:               FlagObfuscated,
		ObfuscationKey:      0xdeadbeefcafef00d,
		CRC32:               0x12345678,
		QuantArenaOffset:    128,
		QuantArenaSize:      1360000,
		F32ArenaOffset:      1360128,
		F32ArenaSize:        5120000,
		NodeTableOffset:     6480128,
		NodeTableSize:       40000,
		NeighborArenaOffset: 6520128,
		NeighborArenaSize:   960000,
	}
	copy(h.Magic[:], Magic)

	buf := h.Encode()
	if len(buf) != HeaderSize {
		t.Fatalf("Encode produced %d bytes, want %d", len(buf), HeaderSize)
	}

	got := DecodeHeader(buf[:])
	if got != h {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, h)
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ in, want uint32 }{
		{0, 0}, {1, 32}, {31, 32}, {32, 32}, {33, 64}, {64, 64},
	}
	for _, c := range cases {
		if got := AlignUp(c.in); got != c.want {
			t.Errorf("AlignUp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestRecordSizes(t *testing.T) {
	if got := QuantRecordSize(128); got != 136 {
		t.Errorf("QuantRecordSize(128) = %d, want 136", got)
	}
	if got := F32RecordSize(128); got != 512 {
		t.Errorf("F32RecordSize(128) = %d, want 512", got)
	}
}
