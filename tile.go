package srtm

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NoData is the sample value of a void in a tile.
const NoData = -9999

var (
	tileLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "srtm_tile_loads_total",
		Help: "The total number of tiles loaded, by resolution",
	}, []string{"resolution"})
	tileLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "srtm_tile_load_errors_total",
		Help: "The total number of tiles that failed to load",
	})
	noDataSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "srtm_nodata_samples_total",
		Help: "The total number of lookups that hit a void sample",
	})
)

// A Tile is a decoded SRTM tile. Its fields must not be modified.
type Tile struct {
	Latitude   int8
	Longitude  int16
	Resolution Resolution
	Data       []int16 // Row-major, north to south, west to east.

	key      TileKey
	checksum uint64
	logger   zerolog.Logger
}

// A TileOption sets an option on a Tile.
type TileOption func(*Tile)

// WithLogger sets the logger used to report void samples.
func WithLogger(logger zerolog.Logger) TileOption {
	return func(t *Tile) {
		t.logger = logger
	}
}

// IsNoData returns whether sample is a void.
func IsNoData(sample int16) bool {
	return sample == NoData || sample == math.MinInt16
}

// ReadTile reads the tile name from fsys.
func ReadTile(fsys fs.FS, name string, options ...TileOption) (*Tile, error) {
	file, err := fsys.Open(name)
	if err != nil {
		tileLoadErrors.Inc()
		return nil, fmt.Errorf("%s: %w: %w", name, ErrNotFound, err)
	}
	defer file.Close()
	return readTile(file, path.Base(name), options...)
}

// ReadTileFile reads the tile in the file filename.
func ReadTileFile(filename string, options ...TileOption) (*Tile, error) {
	file, err := os.Open(filename)
	if err != nil {
		tileLoadErrors.Inc()
		return nil, fmt.Errorf("%s: %w: %w", filename, ErrNotFound, err)
	}
	defer file.Close()
	return readTile(file, filepath.Base(filename), options...)
}

func readTile(file fs.File, base string, options ...TileOption) (*Tile, error) {
	tile, err := decodeTile(file, base)
	if err != nil {
		tileLoadErrors.Inc()
		return nil, err
	}
	tile.logger = log.Logger
	for _, option := range options {
		option(tile)
	}
	tileLoads.WithLabelValues(tile.Resolution.String()).Inc()
	return tile, nil
}

// decodeTile decodes the tile in file. The resolution comes from the file's
// size and the location from base, the file's name.
func decodeTile(file fs.File, base string) (*Tile, error) {
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", base, ErrFilesize, err)
	}
	if fileInfo.Size() < 0 {
		return nil, fmt.Errorf("%s: %w", base, ErrFilesize)
	}
	resolution, err := ResolutionFromByteLength(uint64(fileInfo.Size()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", base, err)
	}

	stem := strings.TrimSuffix(base, path.Ext(base))
	lat, lon, err := parseStem(stem)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", base, err)
	}

	raw := make([]byte, resolution.ByteLength())
	if _, err := io.ReadFull(file, raw); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", base, ErrRead, err)
	}

	return &Tile{
		Latitude:   lat,
		Longitude:  lon,
		Resolution: resolution,
		Data:       decodeSamples(raw),
		key:        TileKey(stem),
		checksum:   xxhash.Sum64(raw),
	}, nil
}

// decodeSamples decodes big-endian signed 16-bit samples.
func decodeSamples(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.BigEndian.Uint16(raw[2*i : 2*i+2]))
	}
	return samples
}

// Key returns t's key.
func (t *Tile) Key() TileKey {
	return t.key
}

// Filename returns t's filename.
func (t *Tile) Filename() string {
	return t.key.Filename()
}

// Checksum returns the xxhash of t's file contents.
func (t *Tile) Checksum() uint64 {
	return t.checksum
}

// MaxHeight returns the largest sample in t, voids included.
func (t *Tile) MaxHeight() int16 {
	if len(t.Data) == 0 {
		return 0
	}
	return slices.Max(t.Data)
}

// MinHeight returns the smallest sample in t, voids included.
func (t *Tile) MinHeight() int16 {
	if len(t.Data) == 0 {
		return 0
	}
	return slices.Min(t.Data)
}

// NoDataCount returns the number of voids in t.
func (t *Tile) NoDataCount() int {
	count := 0
	for _, sample := range t.Data {
		if IsNoData(sample) {
			count++
		}
	}
	return count
}

// Contains returns whether coord belongs to t, that is whether coord's tile
// key is t's key. Get and Interpolate panic on coordinates that t does not
// contain.
func (t *Tile) Contains(coord Coord) bool {
	return coord.TileKey() == t.key
}

// origin returns the latitude of t's northern edge and the longitude of t's
// western edge. Tiles hold coordinates that truncate to their key, so a
// southern tile includes its northern edge and a western tile includes its
// eastern edge.
func (t *Tile) origin() (float64, float64) {
	north := float64(t.Latitude) + 1
	if t.key[0] == 'S' {
		north = float64(t.Latitude)
	}
	west := float64(t.Longitude)
	if t.key[3] == 'W' {
		west = float64(t.Longitude) - 1
	}
	return north, west
}

// Offset returns the row and column of the sample for coord. Row 0 is the
// northern edge and column 0 is the western edge. Fractional offsets are
// truncated, not rounded. Offsets outside t are returned unchanged and make Get
// panic.
func (t *Tile) Offset(coord Coord) (int, int) {
	extent := t.Resolution.Extent()
	north, west := t.origin()
	row := int((north - coord.Lat) * float64(extent))
	col := int((coord.Lon - west) * float64(extent))
	// The southern edge of a northern tile and the eastern edge of a western
	// tile are sampled by the last row and column.
	if row == extent && t.key[0] == 'N' && coord.Lat == north-1 {
		row = extent - 1
	}
	if col == extent && t.key[3] == 'W' && coord.Lon == west+1 {
		col = extent - 1
	}
	return row, col
}

// Get returns the elevation at coord. It returns false if the sample at coord
// is a void. It panics unless coord's tile key equals t's key, so a coordinate
// in an adjacent tile panics even if its truncated latitude and longitude are
// not less than t's.
func (t *Tile) Get(coord Coord) (int16, bool) {
	t.mustContain(coord)
	row, col := t.Offset(coord)
	sample := t.Data[t.index(row, col)]
	if IsNoData(sample) {
		noDataSamples.Inc()
		t.logger.Warn().
			Str("tile", t.Filename()).
			Float64("lat", coord.Lat).
			Float64("lon", coord.Lon).
			Int16("sample", sample).
			Msg("no valid elevation")
		return 0, false
	}
	return sample, true
}

func (t *Tile) mustContain(coord Coord) {
	if !t.Contains(coord) {
		panic(fmt.Sprintf("srtm: tile %s does not contain %s", t.key, coord))
	}
}

// index returns the index into t.Data of the sample at row and col.
func (t *Tile) index(row, col int) int {
	extent := t.Resolution.Extent()
	if row < 0 || extent <= row || col < 0 || extent <= col {
		panic(fmt.Sprintf("srtm: tile %s: offset (%d, %d) outside extent %d", t.key, row, col, extent))
	}
	return row*extent + col
}
