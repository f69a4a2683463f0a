package weather

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/metar-fetcher/internal/physics"
)

// Formatter renders METAR records and station lists for terminal output
type Formatter struct {
	clock clockwork.Clock
}

// NewFormatter creates a formatter. Pass nil to use the real clock.
func NewFormatter(clock clockwork.Clock) *Formatter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Formatter{clock: clock}
}

// WriteRaw prints the raw report text verbatim
func (f *Formatter) WriteRaw(w io.Writer, m Metar) error {
	_, err := fmt.Fprintln(w, m.RawText)
	return err
}

// WriteDecoded prints a field-by-field listing of the record
func (f *Formatter) WriteDecoded(w io.Writer, m Metar) error {
	p := &printer{w: w}

	p.printf("Id: %s\n", m.StationID)

	observed, obsErr := time.Parse(time.RFC3339, m.ObservationTime)
	if obsErr == nil {
		p.printf("Observation time: %s (%s)\n", m.ObservationTime, f.age(observed))
	} else {
		p.printf("Observation time: %s\n", m.ObservationTime)
		observed = f.clock.Now()
	}
	p.printf("Latitude: %v, longitude: %v\n", m.Latitude, m.Longitude)
	p.printf("Temperature: %v celsius, Dewpoint: %v celsius, Relative humidity: %.0f%%\n",
		m.Temperature, m.Dewpoint, physics.CalculateRelativeHumidity(m.Temperature, m.Dewpoint))

	elevationFt := m.ElevationMeters * physics.MetersToFeet
	if m.WindSpeedKnots == 0 {
		p.printf("Wind is calm\n")
	} else {
		variation := physics.CalculateMagneticVariation(m.Latitude, m.Longitude, elevationFt, observed)
		magnetic := physics.TrueToMagnetic(float64(m.WindDirDegrees), variation)
		p.printf("Wind is %d degrees (%.0f magnetic), %d knots", m.WindDirDegrees, magnetic, m.WindSpeedKnots)
		if m.WindGustKnots > 0 {
			p.printf(", gusting %d knots", m.WindGustKnots)
		}
		p.printf("\n")
	}

	p.printf("Visibility: %v miles\n", m.Visibility)
	p.printf("Altimeter: %v Hg\n", m.AltimInHg)
	if m.SeaLevelPressureMb != 0 {
		p.printf("Sea level pressure: %v mb\n", m.SeaLevelPressureMb)
	}
	p.printf("Quality control flags: %s %s\n", m.QualityControlFlags.Name, m.QualityControlFlags.Value)
	p.printf("Present weather: %s\n", m.Wx)
	p.printf("Sky condition: %s\n", formatSkyConditions(m.SkyConditions))
	p.printf("Flight category: %s\n", m.FlightCategory)
	p.printf("Metar type: %s\n", m.MetarType)
	p.printf("Station elevation: %v meter\n", m.ElevationMeters)

	if m.AltimInHg > 0 {
		pressureAlt := physics.CalculatePressureAltitude(elevationFt, m.AltimInHg)
		p.printf("Density altitude: %.0f ft\n", physics.CalculateDensityAltitude(pressureAlt, m.Temperature))
	}

	return p.err
}

// StationListWriter returns an emit function that prints "ID, " for each station
func StationListWriter(w io.Writer) func(id string) error {
	return func(id string) error {
		_, err := fmt.Fprintf(w, "%s, ", id)
		return err
	}
}

func (f *Formatter) age(observed time.Time) string {
	d := f.clock.Since(observed)
	if d < 0 {
		return "in the future"
	}
	minutes := int(math.Round(d.Minutes()))
	switch {
	case minutes < 1:
		return "just now"
	case minutes == 1:
		return "1 minute ago"
	case minutes < 120:
		return fmt.Sprintf("%d minutes ago", minutes)
	default:
		return fmt.Sprintf("%d hours ago", minutes/60)
	}
}

func formatSkyConditions(layers []SkyCondition) string {
	if len(layers) == 0 {
		return "not reported"
	}
	parts := make([]string, 0, len(layers))
	for _, l := range layers {
		if l.CloudBaseFtAGL > 0 {
			parts = append(parts, fmt.Sprintf("%s %d ft", l.Cover, l.CloudBaseFtAGL))
		} else {
			parts = append(parts, l.Cover)
		}
	}
	return strings.Join(parts, ", ")
}

// printer keeps the first write error so the listing reads top to bottom
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
