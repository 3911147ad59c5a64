package domain

import (
	"fmt"
	"time"
)

// QualityBand grades an averaged sunset-quality percentage.
type QualityBand string

const (
	BandPoor  QualityBand = "Poor"
	BandFair  QualityBand = "Fair"
	BandGood  QualityBand = "Good"
	BandGreat QualityBand = "Great"
)

// BandFor buckets a percentage in [0,100] into its quality band.
// Intervals are half-open: 25.0 is Fair, 50.0 is Good, 75.0 is Great.
func BandFor(percent float64) QualityBand {
	switch {
	case percent < 25:
		return BandPoor
	case percent < 50:
		return BandFair
	case percent < 75:
		return BandGood
	default:
		return BandGreat
	}
}

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// QualitySample pairs a grid coordinate with the provider's quality reading.
type QualitySample struct {
	Coordinate
	Percent float64
}

// Forecast is the engine's sunset-quality result for one location on the
// current day.
type Forecast struct {
	Day         string
	LocalSunset time.Time
	Band        QualityBand
	Percent     float64
	Location    string
}

// Message renders the forecast as the outbound SMS body.
func (f *Forecast) Message() string {
	return fmt.Sprintf("%s at %s\nSunset at %spm\nQuality: %s %.2f%%",
		f.Day, f.Location, f.LocalSunset.Format("15:04"), f.Band, f.Percent)
}
