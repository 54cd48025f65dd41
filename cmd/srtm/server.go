package main

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/twpayne/go-srtm"
)

const requestIDHeader = "X-Request-Id"

// maxCoordinates is the maximum number of coordinates in a single request.
const maxCoordinates = 10000

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "srtm_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "code"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "srtm_http_request_duration_seconds",
		Help:    "HTTP request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

var errProjectionDisabled = errors.New("projected coordinates require a CRS")

// A server serves elevations over HTTP.
type server struct {
	elevationService             *srtm.ElevationService
	interpolatedElevationService *srtm.ElevationService
	logger                       zerolog.Logger
}

func newServer(tileSet *srtm.TileSet, sourceCRS string, logger zerolog.Logger) (*server, error) {
	var options []srtm.ElevationServiceOption
	if sourceCRS != "" {
		options = append(options, srtm.WithSourceCRS(sourceCRS))
	}
	elevationService, err := srtm.NewElevationService(tileSet, options...)
	if err != nil {
		return nil, err
	}
	interpolatedElevationService, err := srtm.NewElevationService(tileSet.Interpolated(), options...)
	if err != nil {
		return nil, err
	}
	return &server{
		elevationService:             elevationService,
		interpolatedElevationService: interpolatedElevationService,
		logger:                       logger,
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(s.requestID)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/elevation", s.handleElevation)
	r.Post("/elevations", s.handleElevations)

	return r
}

type elevationResponse struct {
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Elevation *float64 `json:"elevation"`
}

type elevationsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
	Interpolate bool        `json:"interpolate"`
	Projected   bool        `json:"projected"`
}

type elevationsResponse struct {
	Elevations []*float64 `json:"elevations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *server) handleElevation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid lat"))
		return
	}
	lon, err := strconv.ParseFloat(query.Get("lon"), 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid lon"))
		return
	}
	if _, err := srtm.NewCoord(lat, lon); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	interpolate, _ := strconv.ParseBool(query.Get("interpolate"))

	elevations, err := s.service(interpolate).Elevation(r.Context(), [][]float64{{lat, lon}})
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, elevationResponse{
		Lat:       lat,
		Lon:       lon,
		Elevation: nullableFloat64(elevations[0]),
	})
}

func (s *server) handleElevations(w http.ResponseWriter, r *http.Request) {
	var request elevationsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&request); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if len(request.Coordinates) > maxCoordinates {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, errors.New("too many coordinates"))
		return
	}

	service := s.service(request.Interpolate)
	var elevations []float64
	var err error
	if request.Projected {
		if service.SourceCRS() == "" {
			s.writeError(w, r, http.StatusBadRequest, errProjectionDisabled)
			return
		}
		elevations, err = service.ElevationCRS(r.Context(), request.Coordinates)
	} else {
		elevations, err = service.Elevation(r.Context(), request.Coordinates)
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	response := elevationsResponse{
		Elevations: make([]*float64, len(elevations)),
	}
	for i, elevation := range elevations {
		response.Elevations[i] = nullableFloat64(elevation)
	}
	s.writeJSON(w, r, http.StatusOK, response)
}

func (s *server) service(interpolate bool) *srtm.ElevationService {
	if interpolate {
		return s.interpolatedElevationService
	}
	return s.elevationService
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.requestLogger(r).Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, r, code, errorResponse{Error: err.Error()})
}

func (s *server) writeJSON(w http.ResponseWriter, r *http.Request, code int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.requestLogger(r).Error().Err(err).Msg("write response")
	}
}

func (s *server) requestLogger(r *http.Request) *zerolog.Logger {
	logger := s.logger.With().Str("request_id", r.Header.Get(requestIDHeader)).Logger()
	return &logger
}

// requestID sets a request ID on requests that do not have one.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(requestIDHeader, requestID)
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}

func (s *server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.requestLogger(r).Error().Interface("panic", rec).Msg("panic recovered")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// observe logs requests and records request metrics.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		duration := time.Since(start)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.code)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		s.requestLogger(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("code", sw.code).
			Dur("duration", duration).
			Msg("http request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func nullableFloat64(x float64) *float64 {
	if math.IsNaN(x) {
		return nil
	}
	return &x
}
