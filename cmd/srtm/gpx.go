package main

import (
	"context"
	"math"
	"os"
	"slices"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/tkrajina/gpxgo/gpx"
	"golang.org/x/sync/errgroup"

	"github.com/twpayne/go-srtm"
)

func (a *app) newGPXCmd() *cobra.Command {
	var overwrite bool

	gpxCmd := &cobra.Command{
		Use:   "gpx FILE...",
		Short: "Add elevations to GPX files",
		Long: `Add elevations to the waypoints, route points, and track points of GPX
files. Points that already have an elevation are left unchanged unless
--overwrite is given. Files are only rewritten if an elevation changed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGPX(cmd.Context(), args, overwrite)
		},
	}

	gpxCmd.Flags().BoolVarP(&overwrite, "overwrite", "o", false, "overwrite existing elevations")

	return gpxCmd
}

func (a *app) runGPX(ctx context.Context, filenames []string, overwrite bool) error {
	gpxs := make([]*gpx.GPX, len(filenames))
	for i, filename := range filenames {
		g, err := gpx.ParseFile(filename)
		if err != nil {
			return err
		}
		gpxs[i] = g
	}

	var keys []srtm.TileKey
	for _, g := range gpxs {
		keys = append(keys, tileKeys(g)...)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	tileSet, err := a.newTileSet(len(keys))
	if err != nil {
		return err
	}
	if err := tileSet.Preload(ctx, keys, a.config.Parallelism); err != nil {
		return err
	}

	var changedFiles atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	if a.config.Parallelism > 0 {
		g.SetLimit(a.config.Parallelism)
	}
	for i, filename := range filenames {
		g.Go(func() error {
			logger := a.logger.With().Str("filename", filename).Logger()
			changed, err := addElevations(ctx, gpxs[i], tileSet, overwrite)
			if err != nil {
				return err
			}
			if !changed {
				logger.Info().Msg("no changes")
				return nil
			}
			data, err := gpx.ToXml(gpxs[i], gpx.ToXmlParams{Version: gpxs[i].Version, Indent: true})
			if err != nil {
				return err
			}
			if err := os.WriteFile(filename, data, 0o666); err != nil {
				return err
			}
			changedFiles.Add(1)
			logger.Info().Msg("wrote elevations")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info().
		Int("files", len(filenames)).
		Int64("changed", changedFiles.Load()).
		Int("tiles", len(keys)).
		Msg("done")
	return nil
}

// pointSlices returns all slices of points in g.
func pointSlices(g *gpx.GPX) [][]gpx.GPXPoint {
	pointSlices := [][]gpx.GPXPoint{g.Waypoints}
	for _, route := range g.Routes {
		pointSlices = append(pointSlices, route.Points)
	}
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			pointSlices = append(pointSlices, segment.Points)
		}
	}
	return pointSlices
}

// isNullIsland returns whether point is at 0,0, which GPX writers commonly use
// for points without a position.
func isNullIsland(point *gpx.GPXPoint) bool {
	return point.Latitude == 0 && point.Longitude == 0
}

// tileKeys returns the keys of the tiles containing the points in g.
func tileKeys(g *gpx.GPX) []srtm.TileKey {
	var keys []srtm.TileKey
	for _, points := range pointSlices(g) {
		for i := range points {
			if isNullIsland(&points[i]) {
				continue
			}
			coord, err := srtm.NewCoord(points[i].Latitude, points[i].Longitude)
			if err != nil {
				continue
			}
			keys = append(keys, coord.TileKey())
		}
	}
	return keys
}

// addElevations sets the elevations of the points in g from tileSet. Points
// with existing elevations are only updated if overwrite is true. It returns
// whether any elevation changed.
func addElevations(ctx context.Context, g *gpx.GPX, tileSet *srtm.TileSet, overwrite bool) (bool, error) {
	changed := false
	for _, points := range pointSlices(g) {
		var coords []srtm.Coord
		var indexes []int
		for i := range points {
			point := &points[i]
			if isNullIsland(point) || point.Elevation.NotNull() && !overwrite {
				continue
			}
			coord, err := srtm.NewCoord(point.Latitude, point.Longitude)
			if err != nil {
				continue
			}
			coords = append(coords, coord)
			indexes = append(indexes, i)
		}
		if len(coords) == 0 {
			continue
		}

		elevations, err := tileSet.Elevations(ctx, coords)
		if err != nil {
			return false, err
		}

		for j, index := range indexes {
			elevation := &points[index].Elevation
			switch {
			case math.IsNaN(elevations[j]):
				if elevation.NotNull() {
					elevation.SetNull()
					changed = true
				}
			case elevation.Null() || elevation.Value() != elevations[j]:
				elevation.SetValue(elevations[j])
				changed = true
			}
		}
	}
	return changed, nil
}
