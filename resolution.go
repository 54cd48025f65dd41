package srtm

import "fmt"

// baseCells is the number of sample intervals per degree at one arc-second.
const baseCells = 3600

// A Resolution is the sample spacing of a tile.
type Resolution int

const (
	SRTM1  Resolution = iota // One arc-second.
	SRTM05                   // Half an arc-second.
	SRTM3                    // Three arc-seconds.
)

// Resolutions are all supported resolutions, highest density first.
var Resolutions = []Resolution{SRTM05, SRTM1, SRTM3}

// Extent returns the number of rows and columns in a tile. Both edges of the
// degree cell are sampled, hence the extra row and column.
func (r Resolution) Extent() int {
	switch r {
	case SRTM05:
		return 1 + 2*baseCells
	case SRTM3:
		return 1 + baseCells/3
	default:
		return 1 + baseCells
	}
}

// TotalLen returns the number of samples in a tile.
func (r Resolution) TotalLen() int {
	return r.Extent() * r.Extent()
}

// ByteLength returns the size of a tile file in bytes.
func (r Resolution) ByteLength() uint64 {
	return 2 * uint64(r.TotalLen())
}

// ArcSeconds returns the sample spacing in arc-seconds.
func (r Resolution) ArcSeconds() float64 {
	switch r {
	case SRTM05:
		return 0.5
	case SRTM3:
		return 3
	default:
		return 1
	}
}

func (r Resolution) String() string {
	switch r {
	case SRTM05:
		return "SRTM0.5"
	case SRTM3:
		return "SRTM3"
	default:
		return "SRTM1"
	}
}

// ResolutionFromByteLength returns the resolution of a tile file of n bytes.
// Only exact sizes match. Sizes within 1% of a supported size are additionally
// reported as ErrCorrupt.
func ResolutionFromByteLength(n uint64) (Resolution, error) {
	for _, r := range Resolutions {
		if n%2 == 0 && n/2 == uint64(r.TotalLen()) {
			return r, nil
		}
	}
	for _, r := range Resolutions {
		expected := r.ByteLength()
		diff := max(n, expected) - min(n, expected)
		if diff < expected/100 {
			return 0, fmt.Errorf("%d bytes: %w: %w: expected %d bytes for %s", n, ErrFilesize, ErrCorrupt, expected, r)
		}
	}
	return 0, fmt.Errorf("%d bytes: %w", n, ErrFilesize)
}
