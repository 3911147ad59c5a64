package astro

import (
	"errors"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/ringsaturn/tzf"
)

// ErrNoSunset indicates the sun does not set at this latitude on this date.
var ErrNoSunset = errors.New("astro: no sunset on this date at this latitude")

// Almanac answers sunset-time and timezone questions for coordinates. The
// computation is purely astronomical; no network calls.
type Almanac struct {
	finder tzf.F
}

// NewAlmanac loads the embedded timezone shape data.
func NewAlmanac() (*Almanac, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, err
	}
	return &Almanac{finder: finder}, nil
}

// SunsetUTC returns today's sunset instant in UTC for the given coordinate
// and date. Polar day/night yields ErrNoSunset.
func (a *Almanac) SunsetUTC(lat, lon float64, date time.Time) (time.Time, error) {
	_, sunset := sunrise.SunriseSunset(lat, lon, date.Year(), date.Month(), date.Day())
	if sunset.IsZero() {
		return time.Time{}, ErrNoSunset
	}
	return sunset, nil
}

// Location resolves the IANA timezone covering the coordinate.
func (a *Almanac) Location(lat, lon float64) (*time.Location, error) {
	name := a.finder.GetTimezoneName(lon, lat)
	if name == "" {
		return nil, errors.New("astro: no timezone for coordinate")
	}
	return time.LoadLocation(name)
}
