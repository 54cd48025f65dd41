package main

import (
	"fmt"
	"math"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/twpayne/go-srtm"
)

func (a *app) newElevationCmd() *cobra.Command {
	var interpolate bool

	elevationCmd := &cobra.Command{
		Use:     "elevation LAT,LON...",
		Aliases: []string{"elev"},
		Short:   "Print the elevation at coordinates",
		Example: `  srtm elevation 44.4480403,15.0733053
  srtm elevation --interpolate -- -2.25,87.5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords := make([]srtm.Coord, 0, len(args))
			keys := make(map[srtm.TileKey]struct{})
			for _, arg := range args {
				coord, err := srtm.ParseCoord(arg)
				if err != nil {
					return err
				}
				coords = append(coords, coord)
				keys[coord.TileKey()] = struct{}{}
			}

			tileSet, err := a.newTileSet(len(keys))
			if err != nil {
				return err
			}
			var raster srtm.Raster = tileSet
			if interpolate {
				raster = tileSet.Interpolated()
			}

			elevations, err := raster.Elevations(cmd.Context(), coords)
			if err != nil {
				return err
			}

			for i, coord := range coords {
				switch elevation := elevations[i]; {
				case math.IsNaN(elevation):
					fmt.Fprintf(a.stdout, "Elevation at %s is %s\n", color.CyanString(coord.String()), color.YellowString("no data"))
				case interpolate:
					fmt.Fprintf(a.stdout, "Elevation at %s is %s meters\n", color.CyanString(coord.String()), color.GreenString("%.1f", elevation))
				default:
					fmt.Fprintf(a.stdout, "Elevation at %s is %s meters\n", color.CyanString(coord.String()), color.GreenString("%.0f", elevation))
				}
			}
			return nil
		},
	}

	elevationCmd.Flags().BoolVarP(&interpolate, "interpolate", "i", false, "interpolate between samples")

	return elevationCmd
}
