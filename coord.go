package srtm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// A Coord is a latitude and longitude in degrees.
type Coord struct {
	Lat float64
	Lon float64
}

// NewCoord returns a new Coord, or ErrOutOfRange if lat is not in [-90, 90] or
// lon is not in [-180, 180].
func NewCoord(lat, lon float64) (Coord, error) {
	if !(-90 <= lat && lat <= 90) {
		return Coord{}, fmt.Errorf("latitude %v: %w", lat, ErrOutOfRange)
	}
	if !(-180 <= lon && lon <= 180) {
		return Coord{}, fmt.Errorf("longitude %v: %w", lon, ErrOutOfRange)
	}
	return Coord{Lat: lat, Lon: lon}, nil
}

// MustNewCoord is like NewCoord but panics if lat or lon is out of range. It is
// intended for values that are already known to be valid.
func MustNewCoord(lat, lon float64) Coord {
	c, err := NewCoord(lat, lon)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCoord parses a coordinate of the form "lat,lon".
func ParseCoord(s string) (Coord, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Coord{}, fmt.Errorf("%q: expected lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coord{}, fmt.Errorf("%q: latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Coord{}, fmt.Errorf("%q: longitude: %w", s, err)
	}
	return NewCoord(lat, lon)
}

func (c Coord) WithLat(lat float64) (Coord, error) {
	return NewCoord(lat, c.Lon)
}

func (c Coord) WithLon(lon float64) (Coord, error) {
	return NewCoord(c.Lat, lon)
}

func (c Coord) AddToLat(delta float64) (Coord, error) {
	return c.WithLat(c.Lat + delta)
}

func (c Coord) AddToLon(delta float64) (Coord, error) {
	return c.WithLon(c.Lon + delta)
}

// Trunc returns c's latitude and longitude truncated towards zero.
func (c Coord) Trunc() (int8, int16) {
	return int8(math.Trunc(c.Lat)), int16(math.Trunc(c.Lon))
}

// TileKey returns the key of the tile that contains c.
func (c Coord) TileKey() TileKey {
	latSign, lonSign := 'N', 'E'
	if c.Lat < 0 {
		latSign = 'S'
	}
	if c.Lon < 0 {
		lonSign = 'W'
	}
	lat, lon := c.Trunc()
	return TileKey(fmt.Sprintf("%c%02d%c%03d", latSign, abs(int(lat)), lonSign, abs(int(lon))))
}

// Filename returns the filename of the tile that contains c.
func (c Coord) Filename() string {
	return c.TileKey().Filename()
}

func (c Coord) String() string {
	return fmt.Sprintf("(%v, %v)", c.Lat, c.Lon)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
