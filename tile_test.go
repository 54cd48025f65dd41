package srtm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/rs/zerolog"
)

// writeTestTile writes a tile with samples from sampleFunc to dir and returns
// its filename.
func writeTestTile(tb testing.TB, dir string, key TileKey, resolution Resolution, sampleFunc func(row, col int) int16) string {
	tb.Helper()
	extent := resolution.Extent()
	raw := make([]byte, resolution.ByteLength())
	for row := range extent {
		for col := range extent {
			binary.BigEndian.PutUint16(raw[2*(row*extent+col):], uint16(sampleFunc(row, col)))
		}
	}
	filename := filepath.Join(dir, key.Filename())
	assert.NoError(tb, os.WriteFile(filename, raw, 0o666))
	return filename
}

func gradient(row, col int) int16 {
	return int16(row + col)
}

// sampleCoord returns the coordinate of the center of the sample at row and
// col in the tile whose north-west corner is at lat+1, lon.
func sampleCoord(lat, lon float64, resolution Resolution, row, col int) Coord {
	extent := float64(resolution.Extent())
	return MustNewCoord(lat+1-(float64(row)+0.5)/extent, lon+(float64(col)+0.5)/extent)
}

func TestReadTileFile(t *testing.T) {
	filename := writeTestTile(t, t.TempDir(), "N44E015", SRTM3, gradient)

	tile, err := ReadTileFile(filename)
	assert.NoError(t, err)
	assert.Equal(t, int8(44), tile.Latitude)
	assert.Equal(t, int16(15), tile.Longitude)
	assert.Equal(t, SRTM3, tile.Resolution)
	assert.Equal(t, SRTM3.TotalLen(), len(tile.Data))
	assert.Equal(t, TileKey("N44E015"), tile.Key())
	assert.Equal(t, "N44E015.hgt", tile.Filename())
	assert.Equal(t, int16(0), tile.MinHeight())
	assert.Equal(t, int16(2*1200), tile.MaxHeight())
	assert.Equal(t, 0, tile.NoDataCount())
	assert.Equal(t, int16(2), tile.Data[1*1201+1])
}

func TestReadTile(t *testing.T) {
	dir := t.TempDir()
	writeTestTile(t, dir, "S35W138", SRTM3, gradient)

	tile, err := ReadTile(os.DirFS(dir), "S35W138.hgt")
	assert.NoError(t, err)
	assert.Equal(t, int8(-35), tile.Latitude)
	assert.Equal(t, int16(-138), tile.Longitude)
	assert.Equal(t, SRTM3, tile.Resolution)
}

func TestReadTile_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeTestTile(t, dir, "N44E015", SRTM3, func(row, col int) int16 {
		return int16(row*col%4000 - 500)
	})

	tile1, err := ReadTile(os.DirFS(dir), "N44E015.hgt")
	assert.NoError(t, err)
	tile2, err := ReadTile(os.DirFS(dir), "N44E015.hgt")
	assert.NoError(t, err)
	assert.Equal(t, tile1.Data, tile2.Data)
	assert.Equal(t, tile1.Checksum(), tile2.Checksum())
	assert.NotZero(t, tile1.Checksum())
}

func TestReadTile_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "N44E016.hgt"), make([]byte, 1000), 0o666))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "bad.hgt"), make([]byte, 1000), 0o666))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "N44E017.hgt"), make([]byte, SRTM3.ByteLength()-2), 0o666))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "tile.hgt"), make([]byte, SRTM3.ByteLength()), 0o666))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "n44e015.hgt"), make([]byte, SRTM3.ByteLength()), 0o666))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "X44E015.hgt"), make([]byte, SRTM3.ByteLength()), 0o666))
	fsys := os.DirFS(dir)

	for _, tc := range []struct {
		name           string
		expectedErrors []error
	}{
		{name: "N44E015.hgt", expectedErrors: []error{ErrNotFound, fs.ErrNotExist}},
		{name: "N44E016.hgt", expectedErrors: []error{ErrFilesize}},
		{name: "bad.hgt", expectedErrors: []error{ErrFilesize}},
		{name: "N44E017.hgt", expectedErrors: []error{ErrFilesize, ErrCorrupt}},
		{name: "tile.hgt", expectedErrors: []error{ErrParseLatLon}},
		{name: "n44e015.hgt", expectedErrors: []error{ErrParseLatLon}},
		{name: "X44E015.hgt", expectedErrors: []error{ErrParseLatLon}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tile, err := ReadTile(fsys, tc.name)
			assert.Zero(t, tile)
			for _, expectedErr := range tc.expectedErrors {
				assert.IsError(t, err, expectedErr)
			}
		})
	}
}

// A shortFile is an fs.File that claims to be larger than it is.
type shortFile struct {
	*bytes.Reader
	size int64
}

func (f shortFile) Close() error               { return nil }
func (f shortFile) Stat() (fs.FileInfo, error) { return shortFileInfo{size: f.size}, nil }

type shortFileInfo struct {
	size int64
}

func (i shortFileInfo) IsDir() bool        { return false }
func (i shortFileInfo) ModTime() time.Time { return time.Time{} }
func (i shortFileInfo) Mode() fs.FileMode  { return 0o444 }
func (i shortFileInfo) Name() string       { return "N44E015.hgt" }
func (i shortFileInfo) Size() int64        { return i.size }
func (i shortFileInfo) Sys() any           { return nil }

func TestDecodeTile_ShortRead(t *testing.T) {
	file := shortFile{
		Reader: bytes.NewReader(make([]byte, 1024)),
		size:   int64(SRTM3.ByteLength()),
	}
	tile, err := decodeTile(file, "N44E015.hgt")
	assert.Zero(t, tile)
	assert.IsError(t, err, ErrRead)
}

func TestTile_Offset(t *testing.T) {
	tile, err := ReadTileFile(writeTestTile(t, t.TempDir(), "N44E015", SRTM3, gradient))
	assert.NoError(t, err)
	extent := float64(SRTM3.Extent())

	for _, tc := range []struct {
		name        string
		coord       Coord
		expectedRow int
		expectedCol int
	}{
		{name: "north_west", coord: MustNewCoord(45-0.5/extent, 15), expectedRow: 0, expectedCol: 0},
		{name: "one_sample_south", coord: MustNewCoord(45-1.5/extent, 15), expectedRow: 1, expectedCol: 0},
		{name: "one_sample_east", coord: MustNewCoord(45-0.5/extent, 15+1.5/extent), expectedRow: 0, expectedCol: 1},
		{name: "south_edge", coord: MustNewCoord(44, 15), expectedRow: 1200, expectedCol: 0},
		{name: "east_edge", coord: MustNewCoord(44.5, 16-0.5/extent), expectedRow: 600, expectedCol: 1200},
		{name: "middle", coord: MustNewCoord(44.5, 15.5), expectedRow: 600, expectedCol: 600},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actualRow, actualCol := tile.Offset(tc.coord)
			assert.Equal(t, tc.expectedRow, actualRow)
			assert.Equal(t, tc.expectedCol, actualCol)
		})
	}
}

func TestTile_Offset_SouthWest(t *testing.T) {
	tile, err := ReadTileFile(writeTestTile(t, t.TempDir(), "S02W008", SRTM3, gradient))
	assert.NoError(t, err)

	// S02W008 holds latitudes in (-3, -2] and longitudes in (-9, -8].
	for _, tc := range []struct {
		name        string
		coord       Coord
		expectedRow int
		expectedCol int
	}{
		{name: "north_edge", coord: MustNewCoord(-2, -8.5), expectedRow: 0, expectedCol: 600},
		{name: "just_south_of_north_edge", coord: MustNewCoord(-2.0000001, -8.5), expectedRow: 0, expectedCol: 600},
		{name: "just_north_of_south_edge", coord: MustNewCoord(-2.9999999, -8.5), expectedRow: 1200, expectedCol: 600},
		{name: "east_edge", coord: MustNewCoord(-2.5, -8), expectedRow: 600, expectedCol: 1200},
		{name: "just_west_of_east_edge", coord: MustNewCoord(-2.5, -8.0000001), expectedRow: 600, expectedCol: 1200},
		{name: "just_east_of_west_edge", coord: MustNewCoord(-2.5, -8.9999999), expectedRow: 600, expectedCol: 0},
		{name: "north_east_corner", coord: MustNewCoord(-2, -8), expectedRow: 0, expectedCol: 1200},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actualRow, actualCol := tile.Offset(tc.coord)
			assert.Equal(t, tc.expectedRow, actualRow)
			assert.Equal(t, tc.expectedCol, actualCol)
		})
	}
}

func TestTile_Get_IntegerEdges(t *testing.T) {
	tile, err := ReadTileFile(writeTestTile(t, t.TempDir(), "S02W008", SRTM3, gradient))
	assert.NoError(t, err)

	for _, tc := range []struct {
		name     string
		onEdge   Coord
		nearEdge Coord
		expected int16
	}{
		{name: "latitude", onEdge: MustNewCoord(-2, -8.5), nearEdge: MustNewCoord(-2.0000001, -8.5), expected: 600},
		{name: "longitude", onEdge: MustNewCoord(-2.5, -8), nearEdge: MustNewCoord(-2.5, -8.0000001), expected: 1800},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, ok := tile.Get(tc.onEdge)
			assert.True(t, ok)
			assert.Equal(t, tc.expected, actual)
			actual, ok = tile.Get(tc.nearEdge)
			assert.True(t, ok)
			assert.Equal(t, tc.expected, actual)
		})
	}

	for _, coord := range []Coord{
		MustNewCoord(-3, -8.5),
		MustNewCoord(-1.5, -8.5),
		MustNewCoord(-2.5, -9),
		MustNewCoord(-2.5, -7.5),
	} {
		assert.Panics(t, func() {
			tile.Get(coord)
		})
	}
}

func TestTile_Get(t *testing.T) {
	tile, err := ReadTileFile(writeTestTile(t, t.TempDir(), "N44E015", SRTM3, gradient))
	assert.NoError(t, err)

	for _, tc := range []struct {
		row int
		col int
	}{
		{row: 0, col: 0},
		{row: 0, col: 1},
		{row: 1, col: 0},
		{row: 17, col: 1023},
		{row: 1200, col: 1200},
	} {
		actual, ok := tile.Get(sampleCoord(44, 15, SRTM3, tc.row, tc.col))
		assert.True(t, ok)
		assert.Equal(t, int16(tc.row+tc.col), actual)
	}
}

func TestTile_Get_Southern(t *testing.T) {
	tile, err := ReadTileFile(writeTestTile(t, t.TempDir(), "S02W008", SRTM3, gradient))
	assert.NoError(t, err)
	assert.Equal(t, int8(-2), tile.Latitude)
	assert.Equal(t, int16(-8), tile.Longitude)

	// S02W008 holds coordinates that truncate to (-2, -8), so its north-west
	// corner is at (-2, -9).
	actual, ok := tile.Get(sampleCoord(-3, -9, SRTM3, 10, 20))
	assert.True(t, ok)
	assert.Equal(t, int16(30), actual)
}

func TestTile_Get_NoData(t *testing.T) {
	tile, err := ReadTileFile(writeTestTile(t, t.TempDir(), "N44E015", SRTM3, func(row, col int) int16 {
		switch {
		case row == 0 && col == 0:
			return NoData
		case row == 0 && col == 1:
			return math.MinInt16
		default:
			return 1
		}
	}))
	assert.NoError(t, err)
	assert.Equal(t, 2, tile.NoDataCount())
	assert.Equal(t, int16(math.MinInt16), tile.MinHeight())

	var buffer bytes.Buffer
	tile = &Tile{
		Latitude:   tile.Latitude,
		Longitude:  tile.Longitude,
		Resolution: tile.Resolution,
		Data:       tile.Data,
		key:        tile.key,
		logger:     zerolog.New(&buffer),
	}

	for _, col := range []int{0, 1} {
		actual, ok := tile.Get(sampleCoord(44, 15, SRTM3, 0, col))
		assert.False(t, ok)
		assert.Equal(t, int16(0), actual)
	}
	assert.Contains(t, buffer.String(), `"tile":"N44E015.hgt"`)
	assert.Contains(t, buffer.String(), "no valid elevation")

	actual, ok := tile.Get(sampleCoord(44, 15, SRTM3, 0, 2))
	assert.True(t, ok)
	assert.Equal(t, int16(1), actual)
}

func TestTile_Get_WithLogger(t *testing.T) {
	var buffer bytes.Buffer
	tile, err := ReadTileFile(
		writeTestTile(t, t.TempDir(), "N44E015", SRTM3, func(int, int) int16 { return NoData }),
		WithLogger(zerolog.New(&buffer)),
	)
	assert.NoError(t, err)
	_, ok := tile.Get(MustNewCoord(44.5, 15.5))
	assert.False(t, ok)
	assert.Contains(t, buffer.String(), `"sample":-9999`)
}

func TestTile_Get_Panics(t *testing.T) {
	dir := t.TempDir()
	tile, err := ReadTileFile(writeTestTile(t, dir, "N00E010", SRTM3, gradient))
	assert.NoError(t, err)

	for _, coord := range []Coord{
		MustNewCoord(1.5, 10.5),
		MustNewCoord(0.5, 11.5),
		MustNewCoord(0.5, 9.5),
		MustNewCoord(-0.5, 10.5),
	} {
		assert.Panics(t, func() {
			tile.Get(coord)
		})
	}

	assert.Panics(t, func() {
		tile.index(SRTM3.Extent(), 0)
	})
}

func TestTile_EmptyHeights(t *testing.T) {
	tile := &Tile{}
	assert.Equal(t, int16(0), tile.MaxHeight())
	assert.Equal(t, int16(0), tile.MinHeight())
}

func TestReadTileFile_N44E015(t *testing.T) {
	if _, err := os.Stat("testdata/N44E015.hgt"); errors.Is(err, fs.ErrNotExist) {
		t.Skip("missing N44E015 test data")
	}

	coord := MustNewCoord(44.4480403, 15.0733053)
	tile, err := ReadTileFile(filepath.Join("testdata", coord.Filename()))
	assert.NoError(t, err)
	assert.Equal(t, int8(44), tile.Latitude)
	assert.Equal(t, int16(15), tile.Longitude)
	assert.Equal(t, SRTM1, tile.Resolution)
	assert.Equal(t, SRTM1.TotalLen(), len(tile.Data))

	actual, ok := tile.Get(coord)
	assert.True(t, ok)
	assert.Equal(t, int16(258), actual) // Veli Brig, surveyed at 263m.
}

func BenchmarkTile_Get(b *testing.B) {
	r := rand.New(rand.NewPCG(0, 0))
	tile, err := ReadTileFile(writeTestTile(b, b.TempDir(), "N44E015", SRTM3, gradient))
	assert.NoError(b, err)
	b.ResetTimer()
	for range b.N {
		_, ok := tile.Get(Coord{Lat: 44 + r.Float64(), Lon: 15 + r.Float64()})
		assert.True(b, ok)
	}
}
