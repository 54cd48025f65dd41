// Package srtm reads SRTM elevation tiles (.hgt files).
//
// A tile is a square grid of big-endian signed 16-bit samples with no header.
// Its resolution is inferred from its size and its location from its name, for
// example N44E015.hgt.
package srtm

import (
	"context"
	"fmt"
)

// A TileKey is the canonical name of a tile without its extension, for example
// N44E015.
type TileKey string

// A Raster returns elevations at coordinates. Missing elevations are
// represented by NaNs.
type Raster interface {
	Elevations(ctx context.Context, coords []Coord) ([]float64, error)
}

// ParseTileKey parses stem as a tile key of the form [NS]dd[EW]ddd.
func ParseTileKey(stem string) (TileKey, error) {
	if _, _, err := parseStem(stem); err != nil {
		return "", err
	}
	return TileKey(stem), nil
}

// LatLon returns the signed integer latitude and longitude of k.
func (k TileKey) LatLon() (int8, int16, error) {
	return parseStem(string(k))
}

// Filename returns the filename of the tile with key k.
func (k TileKey) Filename() string {
	return string(k) + ".hgt"
}

func parseStem(stem string) (int8, int16, error) {
	if len(stem) != 7 {
		return 0, 0, fmt.Errorf("%q: %w", stem, ErrParseLatLon)
	}

	var latSign int
	switch stem[0] {
	case 'N':
		latSign = 1
	case 'S':
		latSign = -1
	default:
		return 0, 0, fmt.Errorf("%q: %w: latitude sign %q", stem, ErrParseLatLon, stem[0])
	}
	lat, ok := parseDigits(stem[1:3])
	if !ok || lat > 90 {
		return 0, 0, fmt.Errorf("%q: %w: latitude %q", stem, ErrParseLatLon, stem[1:3])
	}

	var lonSign int
	switch stem[3] {
	case 'E':
		lonSign = 1
	case 'W':
		lonSign = -1
	default:
		return 0, 0, fmt.Errorf("%q: %w: longitude sign %q", stem, ErrParseLatLon, stem[3])
	}
	lon, ok := parseDigits(stem[4:7])
	if !ok || lon > 180 {
		return 0, 0, fmt.Errorf("%q: %w: longitude %q", stem, ErrParseLatLon, stem[4:7])
	}

	return int8(latSign * lat), int16(lonSign * lon), nil
}

// parseDigits parses s as an unsigned decimal. Unlike strconv.Atoi it rejects
// signs.
func parseDigits(s string) (int, bool) {
	n := 0
	for i := range len(s) {
		c := s[i]
		if c < '0' || '9' < c {
			return 0, false
		}
		n = 10*n + int(c-'0')
	}
	return n, true
}
