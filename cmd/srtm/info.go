package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/twpayne/go-srtm"
)

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE...",
		Short: "Print information about .hgt files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				tile, err := srtm.ReadTileFile(arg, srtm.WithLogger(a.logger))
				if err != nil {
					return err
				}
				extent := tile.Resolution.Extent()
				fmt.Fprintln(a.stdout, color.New(color.Bold).Sprint(arg))
				fmt.Fprintf(a.stdout, "  tile:       %s\n", tile.Key())
				fmt.Fprintf(a.stdout, "  resolution: %s (%dx%d)\n", tile.Resolution, extent, extent)
				fmt.Fprintf(a.stdout, "  min height: %d\n", tile.MinHeight())
				fmt.Fprintf(a.stdout, "  max height: %d\n", tile.MaxHeight())
				fmt.Fprintf(a.stdout, "  voids:      %d\n", tile.NoDataCount())
				fmt.Fprintf(a.stdout, "  checksum:   %016x\n", tile.Checksum())
			}
			return nil
		},
	}
}
