package weather

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yegors/metar-fetcher/pkg/logger"
)

// ErrInvalidStationID is returned for station ids that cannot match any record
var ErrInvalidStationID = errors.New("invalid station id")

// Fetcher is the upstream side of the service
type Fetcher interface {
	FetchMETARFeed(ctx context.Context) ([]byte, error)
	FetchTAF(ctx context.Context, stationID string) (string, error)
}

// Service fetches the feed and runs the scanner over it. Nothing is cached:
// every call performs exactly one upstream request.
type Service struct {
	fetcher Fetcher
	logger  *logger.Logger
}

// NewService creates a new weather service
func NewService(fetcher Fetcher, logger *logger.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		logger:  logger.Named("weather-service"),
	}
}

// GetMETAR returns the current METAR for a station, or ErrStationNotFound
func (s *Service) GetMETAR(ctx context.Context, stationID string) (Metar, error) {
	id, err := normalizeStationID(stationID)
	if err != nil {
		return Metar{}, err
	}

	start := time.Now()
	feed, err := s.fetcher.FetchMETARFeed(ctx)
	if err != nil {
		return Metar{}, fmt.Errorf("failed to fetch METAR feed: %w", err)
	}

	metar, found, err := SearchMETAR(bytes.NewReader(feed), id)
	if err != nil {
		s.logger.Error("Failed to scan METAR feed",
			logger.String("station", id),
			logger.Error(err))
		return Metar{}, err
	}
	if !found {
		s.logger.Debug("Station not present in METAR feed", logger.String("station", id))
		return Metar{}, fmt.Errorf("%w: %s", ErrStationNotFound, id)
	}

	s.logger.Debug("METAR lookup completed",
		logger.String("station", id),
		logger.Int("feed_bytes", len(feed)),
		logger.Duration("duration", time.Since(start)))
	return metar, nil
}

// ListStations calls emit for every station in the feed, in feed order
func (s *Service) ListStations(ctx context.Context, emit func(id string) error) error {
	feed, err := s.fetcher.FetchMETARFeed(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch METAR feed: %w", err)
	}

	count := 0
	err = ListStations(bytes.NewReader(feed), func(id string) error {
		count++
		return emit(id)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Station listing completed", logger.Int("stations", count))
	return nil
}

// GetTAF returns the TAF text for a station, or ErrTAFNotFound
func (s *Service) GetTAF(ctx context.Context, stationID string) (string, error) {
	id, err := normalizeStationID(stationID)
	if err != nil {
		return "", err
	}
	return s.fetcher.FetchTAF(ctx, id)
}

// normalizeStationID upper-cases the id and rejects values that are empty or
// contain anything but letters and digits
func normalizeStationID(stationID string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(stationID))
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidStationID)
	}
	for _, r := range id {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", ErrInvalidStationID, stationID)
		}
	}
	return id, nil
}
