package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/spec-kit/sundown-service/internal/domain"
	"github.com/spec-kit/sundown-service/internal/integration/nominatim"
	apperrors "github.com/spec-kit/sundown-service/pkg/util"
)

// gridStep is the per-axis degree offset between sampling points,
// approximating a few tens of kilometers.
const gridStep = 0.275

// Geocoder resolves free text to a coordinate and canonical label.
type Geocoder interface {
	Resolve(ctx context.Context, query string) (lat, lon float64, label string, err error)
}

// QualityProvider answers sunset quality for a single coordinate.
type QualityProvider interface {
	Quality(ctx context.Context, lat, lon float64) (float64, error)
}

// Almanac answers sunset-time and timezone questions for a coordinate.
type Almanac interface {
	SunsetUTC(lat, lon float64, date time.Time) (time.Time, error)
	Location(lat, lon float64) (*time.Location, error)
}

// ForecastService is the sunset-quality engine: location text in, graded
// forecast out. It has no side effects beyond provider calls.
type ForecastService struct {
	geocoder Geocoder
	quality  QualityProvider
	almanac  Almanac
	now      func() time.Time
}

// ForecastDependencies bundles collaborators for the engine.
type ForecastDependencies struct {
	Geocoder Geocoder
	Quality  QualityProvider
	Almanac  Almanac
}

// NewForecastService constructs the engine.
func NewForecastService(deps ForecastDependencies) *ForecastService {
	return &ForecastService{
		geocoder: deps.Geocoder,
		quality:  deps.Quality,
		almanac:  deps.Almanac,
		now:      time.Now,
	}
}

// ComputeForecast grades today's sunset at the given location. Quality is
// averaged over a 3x3 grid around the resolved coordinate to smooth out
// point artifacts in the provider data; if any grid query fails the whole
// forecast fails rather than averaging a partial sample set.
func (s *ForecastService) ComputeForecast(ctx context.Context, locationText string) (*domain.Forecast, error) {
	query := strings.TrimSpace(locationText)
	if query == "" {
		return nil, apperrors.NewInvalidLocation(query)
	}

	lat, lon, label, err := s.geocoder.Resolve(ctx, query)
	if err != nil {
		if errors.Is(err, nominatim.ErrNotFound) {
			return nil, apperrors.NewInvalidLocation(query)
		}
		return nil, apperrors.NewProviderUnavailable(err)
	}

	grid := buildGrid(lat, lon)
	if len(grid) == 0 {
		// Degenerate grid collapses to the single original coordinate.
		grid = []domain.Coordinate{{Lat: lat, Lon: lon}}
	}

	var total float64
	for _, point := range grid {
		percent, err := s.quality.Quality(ctx, point.Lat, point.Lon)
		if err != nil {
			return nil, apperrors.NewProviderUnavailable(err)
		}
		total += percent
	}
	percent := math.Round(total/float64(len(grid))*100) / 100

	loc, err := s.almanac.Location(lat, lon)
	if err != nil {
		return nil, apperrors.NewTimeUnavailable(lat, lon)
	}

	localNow := s.now().In(loc)
	sunsetUTC, err := s.almanac.SunsetUTC(lat, lon, localNow)
	if err != nil {
		return nil, apperrors.NewTimeUnavailable(lat, lon)
	}

	return &domain.Forecast{
		Day:         localNow.Weekday().String(),
		LocalSunset: sunsetUTC.In(loc),
		Band:        domain.BandFor(percent),
		Percent:     percent,
		Location:    label,
	}, nil
}

// buildGrid returns the 3x3 sampling grid centered on (lat, lon), dropping
// any point that is not a finite number.
func buildGrid(lat, lon float64) []domain.Coordinate {
	points := make([]domain.Coordinate, 0, 9)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			point := domain.Coordinate{
				Lat: lat + float64(dx)*gridStep,
				Lon: lon + float64(dy)*gridStep,
			}
			if !finite(point.Lat) || !finite(point.Lon) {
				continue
			}
			points = append(points, point)
		}
	}
	return points
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
