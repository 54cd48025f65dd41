package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve elevations over HTTP",
		Long: `Serve elevations over HTTP.

  GET  /elevation?lat=LAT&lon=LON[&interpolate=true]
  POST /elevations  {"coordinates": [[LAT, LON], ...], "interpolate": false, "projected": false}
  GET  /healthz
  GET  /metrics

Projected coordinates are X, Y pairs in the CRS given by --crs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := getConfigString(cmd, "addr", []string{"ADDR"}, defaultAddr)
			sourceCRS := getConfigString(cmd, "crs", []string{"SRTM_CRS"}, "")
			return a.runServe(cmd.Context(), addr, sourceCRS)
		},
	}

	serveCmd.Flags().String("addr", defaultAddr, "address to listen on")
	serveCmd.Flags().String("crs", "", "CRS of projected coordinates, for example epsg:3857")

	return serveCmd
}

func (a *app) runServe(ctx context.Context, addr, sourceCRS string) error {
	tileSet, err := a.newTileSet(0)
	if err != nil {
		return err
	}
	s, err := newServer(tileSet, sourceCRS, a.logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().
			Str("addr", addr).
			Str("data_dir", a.config.DataDir).
			Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
