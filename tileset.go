package srtm

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	missingTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "srtm_missing_tile_cache_hits_total",
		Help: "The total number of hits on the missing tile cache",
	})
	missingTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "srtm_missing_tile_cache_misses_total",
		Help: "The total number of misses on the missing tile cache",
	})
	tileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "srtm_tile_cache_hits_total",
		Help: "The total number of hits on the tile cache",
	})
	tileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "srtm_tile_cache_misses_total",
		Help: "The total number of misses on the tile cache",
	})
	tileCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "srtm_tile_cache_evictions_total",
		Help: "The total number of evictions from the tile cache",
	})
)

// A TileSet is a directory of tiles.
type TileSet struct {
	loads        singleflight.Group
	fsys         fs.FS
	missingTiles sync.Map
	tileOptions  []TileOption
	cacheSize    int
	tileCache    *lru.Cache[TileKey, *Tile]
	logger       zerolog.Logger
}

// A TileSetOption sets an option on a TileSet.
type TileSetOption func(*TileSet)

// NewTileSet returns a new TileSet with the given options.
func NewTileSet(options ...TileSetOption) (*TileSet, error) {
	s := &TileSet{
		cacheSize: 32,
		logger:    zerolog.Nop(),
	}
	for _, option := range options {
		option(s)
	}
	if s.fsys == nil {
		return nil, errors.New("no filesystem")
	}

	var err error
	s.tileCache, err = lru.New[TileKey, *Tile](s.cacheSize)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func WithCacheSize(cacheSize int) TileSetOption {
	return func(s *TileSet) {
		s.cacheSize = cacheSize
	}
}

func WithFS(fsys fs.FS) TileSetOption {
	return func(s *TileSet) {
		s.fsys = fsys
	}
}

func WithTileOptions(tileOptions ...TileOption) TileSetOption {
	return func(s *TileSet) {
		s.tileOptions = tileOptions
	}
}

func WithTileSetLogger(logger zerolog.Logger) TileSetOption {
	return func(s *TileSet) {
		s.logger = logger
	}
}

// Tile returns the tile with key. It returns nil if the tile does not exist.
func (s *TileSet) Tile(key TileKey) (*Tile, error) {
	if _, ok := s.missingTiles.Load(key); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if tile, ok := s.tileCache.Get(key); ok {
		tileCacheHits.Inc()
		return tile, nil
	}

	// Concurrent requests for the same tile share a single load.
	value, err, _ := s.loads.Do(string(key), func() (any, error) {
		if _, ok := s.missingTiles.Load(key); ok {
			missingTileCacheHits.Inc()
			return (*Tile)(nil), nil
		}

		if tile, ok := s.tileCache.Get(key); ok {
			tileCacheHits.Inc()
			return tile, nil
		}

		tileCacheMisses.Inc()

		tile, err := s.readTile(key)
		if err != nil || tile == nil {
			return tile, err
		}

		if eviction := s.tileCache.Add(key, tile); eviction {
			tileCacheEvictions.Inc()
		}

		return tile, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Tile), nil
}

// readTile reads the tile with key, bypassing the cache.
func (s *TileSet) readTile(key TileKey) (*Tile, error) {
	switch tile, err := ReadTile(s.fsys, key.Filename(), s.tileOptions...); {
	case errors.Is(err, ErrNotFound):
		s.logger.Debug().Str("tile", key.Filename()).Msg("missing tile")
		s.missingTiles.Store(key, struct{}{})
		missingTileCacheMisses.Inc()
		return nil, nil
	case err != nil:
		return nil, err
	default:
		s.logger.Debug().
			Str("tile", key.Filename()).
			Stringer("resolution", tile.Resolution).
			Msg("loaded tile")
		return tile, nil
	}
}

// Elevation returns the elevation at coord. It returns false if the tile is
// missing or the sample is a void.
func (s *TileSet) Elevation(coord Coord) (int16, bool, error) {
	tile, err := s.Tile(coord.TileKey())
	if err != nil || tile == nil {
		return 0, false, err
	}
	elevation, ok := tile.Get(coord)
	return elevation, ok, nil
}

// Elevations returns the elevations at coords. Missing elevations are
// represented by NaNs.
func (s *TileSet) Elevations(ctx context.Context, coords []Coord) ([]float64, error) {
	return s.samples(ctx, coords, func(tile *Tile, coord Coord) float64 {
		if elevation, ok := tile.Get(coord); ok {
			return float64(elevation)
		}
		return math.NaN()
	})
}

// InterpolatedElevations is like Elevations but interpolates between the
// samples around each coordinate.
func (s *TileSet) InterpolatedElevations(ctx context.Context, coords []Coord) ([]float64, error) {
	return s.samples(ctx, coords, func(tile *Tile, coord Coord) float64 {
		elevation, _ := tile.Interpolate(coord)
		return elevation
	})
}

// Interpolated returns a Raster that interpolates s's elevations.
func (s *TileSet) Interpolated() Raster {
	return interpolatedTileSet{s}
}

type interpolatedTileSet struct {
	*TileSet
}

func (s interpolatedTileSet) Elevations(ctx context.Context, coords []Coord) ([]float64, error) {
	return s.InterpolatedElevations(ctx, coords)
}

// samples returns sampleFunc for each of coords, loading each tile once.
func (s *TileSet) samples(ctx context.Context, coords []Coord, sampleFunc func(*Tile, Coord) float64) ([]float64, error) {
	samples := make([]float64, len(coords))

	// Group indexes by tile key.
	indexesByKey := make(map[TileKey][]int)
	for index, coord := range coords {
		key := coord.TileKey()
		indexesByKey[key] = append(indexesByKey[key], index)
	}

	// Populate samples one tile at a time.
	for key, indexes := range indexesByKey {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tile, err := s.Tile(key)
		if err != nil {
			return nil, err
		}
		for _, index := range indexes {
			if tile == nil {
				samples[index] = math.NaN()
			} else {
				samples[index] = sampleFunc(tile, coords[index])
			}
		}
	}

	return samples, nil
}

// Preload loads the tiles with keys in parallel, using at most parallelism
// goroutines. Missing tiles are not an error.
func (s *TileSet) Preload(ctx context.Context, keys []TileKey, parallelism int) error {
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for _, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := s.Tile(key)
			return err
		})
	}
	return g.Wait()
}
