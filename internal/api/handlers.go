package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/metar-fetcher/internal/observability"
	"github.com/yegors/metar-fetcher/internal/weather"
	"github.com/yegors/metar-fetcher/pkg/logger"
)

// WeatherService is the part of weather.Service the API needs
type WeatherService interface {
	GetMETAR(ctx context.Context, stationID string) (weather.Metar, error)
	ListStations(ctx context.Context, emit func(id string) error) error
	GetTAF(ctx context.Context, stationID string) (string, error)
}

// Handler contains the API handlers
type Handler struct {
	weatherService WeatherService
	metrics        *observability.Metrics
	logger         *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(weatherService WeatherService, metrics *observability.Metrics, logger *logger.Logger) *Handler {
	return &Handler{
		weatherService: weatherService,
		metrics:        metrics,
		logger:         logger.Named("api-handler"),
	}
}

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetMETAR returns the decoded METAR for a station
func (h *Handler) GetMETAR(w http.ResponseWriter, r *http.Request) {
	metar, ok := h.lookupMETAR(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, metar)
}

// GetRawMETAR returns the raw METAR text for a station
func (h *Handler) GetRawMETAR(w http.ResponseWriter, r *http.Request) {
	metar, ok := h.lookupMETAR(w, r)
	if !ok {
		return
	}
	WriteText(w, http.StatusOK, metar.RawText+"\n")
}

func (h *Handler) lookupMETAR(w http.ResponseWriter, r *http.Request) (weather.Metar, bool) {
	station := chi.URLParam(r, "station")
	start := time.Now()

	metar, err := h.weatherService.GetMETAR(r.Context(), station)
	h.observe(weather.WeatherTypeMETAR, start, err)
	if err != nil {
		h.writeLookupError(w, station, err)
		return weather.Metar{}, false
	}
	return metar, true
}

// GetTAF returns the TAF text for a station
func (h *Handler) GetTAF(w http.ResponseWriter, r *http.Request) {
	station := chi.URLParam(r, "station")
	start := time.Now()

	taf, err := h.weatherService.GetTAF(r.Context(), station)
	h.observe(weather.WeatherTypeTAF, start, err)
	if err != nil {
		h.writeLookupError(w, station, err)
		return
	}
	WriteText(w, http.StatusOK, taf)
}

// ListStations returns every station id in the current feed, in feed order
func (h *Handler) ListStations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	stations := make([]string, 0, 4096)
	err := h.weatherService.ListStations(r.Context(), func(id string) error {
		stations = append(stations, id)
		return nil
	})
	h.observe("stations", start, err)
	if err != nil {
		h.writeLookupError(w, "", err)
		return
	}
	WriteJSON(w, http.StatusOK, stations)
}

// Healthz reports that the process is serving
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) observe(kind weather.WeatherType, start time.Time, err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.LookupDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	h.metrics.Lookups.WithLabelValues(string(kind), outcome(err)).Inc()
	if outcome(err) == "error" {
		h.metrics.UpstreamErrors.Inc()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, weather.ErrStationNotFound), errors.Is(err, weather.ErrTAFNotFound):
		return "not_found"
	case errors.Is(err, weather.ErrInvalidStationID):
		return "invalid"
	default:
		return "error"
	}
}

func (h *Handler) writeLookupError(w http.ResponseWriter, station string, err error) {
	switch outcome(err) {
	case "not_found":
		WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case "invalid":
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error("Weather lookup failed",
			logger.String("station", station),
			logger.Error(err))
		WriteJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	}
}

// WriteJSON writes data as a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteText writes a plain-text response
func WriteText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}
