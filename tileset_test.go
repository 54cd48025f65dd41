package srtm

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func newTestTileSet(t *testing.T, options ...TileSetOption) *TileSet {
	t.Helper()
	dir := t.TempDir()
	writeTestTile(t, dir, "N44E015", SRTM3, gradient)
	writeTestTile(t, dir, "S02E087", SRTM3, func(row, col int) int16 {
		if row == 0 && col == 0 {
			return NoData
		}
		return 7
	})
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "N50E010.hgt"), make([]byte, 1000), 0o666))
	tileSet, err := NewTileSet(append([]TileSetOption{WithFS(os.DirFS(dir))}, options...)...)
	assert.NoError(t, err)
	return tileSet
}

func TestNewTileSet_NoFS(t *testing.T) {
	_, err := NewTileSet()
	assert.Error(t, err)
}

func TestTileSet_Tile(t *testing.T) {
	tileSet := newTestTileSet(t)

	tile1, err := tileSet.Tile("N44E015")
	assert.NoError(t, err)
	assert.NotZero(t, tile1)
	tile2, err := tileSet.Tile("N44E015")
	assert.NoError(t, err)
	assert.True(t, tile1 == tile2)

	for range 2 {
		tile, err := tileSet.Tile("N10E010")
		assert.NoError(t, err)
		assert.Zero(t, tile)
	}

	_, err = tileSet.Tile("N50E010")
	assert.IsError(t, err, ErrFilesize)
}

func TestTileSet_Tile_Concurrent(t *testing.T) {
	tileSet := newTestTileSet(t)

	tiles := make([]*Tile, 8)
	errs := make([]error, len(tiles))
	var wg sync.WaitGroup
	for i := range tiles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tiles[i], errs[i] = tileSet.Tile("N44E015")
		}()
	}
	wg.Wait()

	for i, tile := range tiles {
		assert.NoError(t, errs[i])
		assert.True(t, tile == tiles[0])
	}
}

func TestTileSet_Elevation(t *testing.T) {
	tileSet := newTestTileSet(t)

	elevation, ok, err := tileSet.Elevation(sampleCoord(44, 15, SRTM3, 3, 4))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int16(7), elevation)

	_, ok, err = tileSet.Elevation(MustNewCoord(10.5, 10.5))
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = tileSet.Elevation(sampleCoord(-3, 87, SRTM3, 0, 0))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestTileSet_Elevations(t *testing.T) {
	tileSet := newTestTileSet(t, WithCacheSize(1))

	coords := []Coord{
		sampleCoord(44, 15, SRTM3, 3, 4),
		sampleCoord(-3, 87, SRTM3, 5, 5),
		MustNewCoord(10.5, 10.5),
		sampleCoord(44, 15, SRTM3, 100, 200),
		sampleCoord(-3, 87, SRTM3, 0, 0),
	}
	actual, err := tileSet.Elevations(t.Context(), coords)
	assert.NoError(t, err)
	assert.Equal(t, len(coords), len(actual))
	assert.Equal(t, 7.0, actual[0])
	assert.Equal(t, 7.0, actual[1])
	assert.True(t, math.IsNaN(actual[2]))
	assert.Equal(t, 300.0, actual[3])
	assert.True(t, math.IsNaN(actual[4]))
}

func TestTileSet_Elevations_Errors(t *testing.T) {
	tileSet := newTestTileSet(t)

	_, err := tileSet.Elevations(t.Context(), []Coord{MustNewCoord(50.5, 10.5)})
	assert.IsError(t, err, ErrFilesize)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = tileSet.Elevations(ctx, []Coord{MustNewCoord(44.5, 15.5)})
	assert.IsError(t, err, context.Canceled)
}

func TestTileSet_Interpolated(t *testing.T) {
	tileSet := newTestTileSet(t)

	coords := []Coord{
		sampleCoord(44, 15, SRTM3, 10, 20),
		MustNewCoord(10.5, 10.5),
	}
	actual, err := tileSet.Interpolated().Elevations(t.Context(), coords)
	assert.NoError(t, err)
	assert.True(t, math.Abs(actual[0]-31) < 1e-6)
	assert.True(t, math.IsNaN(actual[1]))
}

func TestTileSet_Preload(t *testing.T) {
	tileSet := newTestTileSet(t)

	err := tileSet.Preload(t.Context(), []TileKey{"N44E015", "S02E087", "N10E010"}, 2)
	assert.NoError(t, err)
	assert.Equal(t, 2, tileSet.tileCache.Len())
	_, missing := tileSet.missingTiles.Load(TileKey("N10E010"))
	assert.True(t, missing)

	err = tileSet.Preload(t.Context(), []TileKey{"N44E015", "N50E010"}, 0)
	assert.IsError(t, err, ErrFilesize)
}
