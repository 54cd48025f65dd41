package srtm

import (
	"context"
	"errors"
	"math"

	"github.com/twpayne/go-proj/v10"
)

var errNoSourceCRS = errors.New("no source CRS")

// An ElevationService returns elevations at coordinates given as slices of
// float64s.
type ElevationService struct {
	raster    Raster
	sourceCRS string
	pj        *proj.PJ
}

// An ElevationServiceOption sets an option on an ElevationService.
type ElevationServiceOption func(*ElevationService)

// WithSourceCRS sets the CRS of the coordinates passed to ElevationCRS, for
// example "epsg:3857".
func WithSourceCRS(sourceCRS string) ElevationServiceOption {
	return func(s *ElevationService) {
		s.sourceCRS = sourceCRS
	}
}

func NewElevationService(raster Raster, options ...ElevationServiceOption) (*ElevationService, error) {
	s := &ElevationService{
		raster: raster,
	}
	for _, option := range options {
		option(s)
	}
	if s.sourceCRS != "" {
		pj, err := proj.NewCRSToCRS(s.sourceCRS, "epsg:4326", nil)
		if err != nil {
			return nil, err
		}
		s.pj = pj
	}
	return s, nil
}

// Elevation returns the elevations at coords, which are latitude, longitude
// pairs. Invalid coordinates have NaN elevations.
func (s *ElevationService) Elevation(ctx context.Context, coords [][]float64) ([]float64, error) {
	validCoords := make([]Coord, 0, len(coords))
	validIndexes := make([]int, 0, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			continue
		}
		c, err := NewCoord(coord[0], coord[1])
		if err != nil {
			continue
		}
		validCoords = append(validCoords, c)
		validIndexes = append(validIndexes, i)
	}

	elevations, err := s.raster.Elevations(ctx, validCoords)
	if err != nil {
		return nil, err
	}

	result := make([]float64, len(coords))
	for i := range result {
		result[i] = math.NaN()
	}
	for i, index := range validIndexes {
		result[index] = elevations[i]
	}
	return result, nil
}

// ElevationCRS returns the elevations at coords, which are in s's source CRS.
// EPSG:4326 has latitude, longitude axis order, so transformed coordinates can
// be passed directly to Elevation.
func (s *ElevationService) ElevationCRS(ctx context.Context, coords [][]float64) ([]float64, error) {
	if s.pj == nil {
		return nil, errNoSourceCRS
	}

	// Only complete pairs are transformed. Short pairs stay short so that
	// Elevation returns NaN for them.
	indexes := make([]int, 0, len(coords))
	pairs := make([][]float64, 0, len(coords))
	for i, coord := range coords {
		if len(coord) >= 2 {
			indexes = append(indexes, i)
			pairs = append(pairs, coord)
		}
	}
	pairs = cloneCoords(pairs)
	if len(pairs) > 0 {
		if err := s.pj.ForwardFloat64Slices(pairs); err != nil {
			return nil, err
		}
	}

	coords4326 := make([][]float64, len(coords))
	for i, index := range indexes {
		coords4326[index] = pairs[i]
	}
	return s.Elevation(ctx, coords4326)
}

// SourceCRS returns s's source CRS.
func (s *ElevationService) SourceCRS() string {
	return s.sourceCRS
}

func cloneCoords(coords [][]float64) [][]float64 {
	clonedCoordsFlat := make([]float64, 2*len(coords))
	clonedCoords := make([][]float64, len(coords))
	for i, coord := range coords {
		copy(clonedCoordsFlat[2*i:2*i+2], coord)
		clonedCoords[i] = clonedCoordsFlat[2*i : 2*i+2]
	}
	return clonedCoords
}
