package srtm

import "math"

// Interpolate returns the bilinear interpolation of the four samples around
// coord. It returns false if any of them is a void. It panics if coord does not
// belong to t.
func (t *Tile) Interpolate(coord Coord) (float64, bool) {
	t.mustContain(coord)
	extent := t.Resolution.Extent()
	row0, col0 := t.Offset(coord)
	row1 := min(row0+1, extent-1)
	col1 := min(col0+1, extent-1)

	north, west := t.origin()
	y := (north - coord.Lat) * float64(extent)
	x := (coord.Lon - west) * float64(extent)
	dy := clamp01(y - float64(row0))
	dx := clamp01(x - float64(col0))

	var samples [4]float64
	for i, index := range []int{
		t.index(row0, col0),
		t.index(row0, col1),
		t.index(row1, col0),
		t.index(row1, col1),
	} {
		sample := t.Data[index]
		if IsNoData(sample) {
			return math.NaN(), false
		}
		samples[i] = float64(sample)
	}
	return bilinear(samples, dx, dy), true
}

// bilinear interpolates between samples, which are ordered top left, top
// right, bottom left, bottom right.
func bilinear(samples [4]float64, dx, dy float64) float64 {
	return 0 +
		samples[0]*(1-dx)*(1-dy) +
		samples[1]*dx*(1-dy) +
		samples[2]*(1-dx)*dy +
		samples[3]*dx*dy
}

func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
