package physics

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	T0              = 288.15  // Standard Sea Level Temperature (K)
	L               = 0.0065  // Temperature Lapse Rate (K/m) in Troposphere
	ZeroCelsius     = 273.15  // 0°C in Kelvin
	StdAltimInHg    = 29.92   // Standard altimeter setting (inHg)
	MetersToFeet    = 3.28084 // Conversion factor from meters to feet
	FeetToMeters    = 0.3048  // Conversion factor from feet to meters
	TropopauseAltFt = 36089.2 // ~36,089 ft

	StratosphereTempK = 216.65 // Constant temperature in Stratosphere

	// Magnus formula coefficients (Alduchov & Eskridge)
	magnusB = 17.625
	magnusC = 243.04
)

// CalculatePressureAltitude returns pressure altitude in feet from field elevation and altimeter setting
// Rule of thumb: 1 inHg ≈ 1000 ft
func CalculatePressureAltitude(elevationFt float64, altimInHg float64) float64 {
	return elevationFt + (StdAltimInHg-altimInHg)*1000
}

// CalculateDensityAltitude returns density altitude in feet
func CalculateDensityAltitude(pressureAltFt float64, tempCelsius float64) float64 {
	// ISA Temp at pressure altitude
	isaTempK := T0 - (L * (pressureAltFt * FeetToMeters))
	if pressureAltFt > TropopauseAltFt {
		isaTempK = StratosphereTempK
	}
	isaTempC := isaTempK - ZeroCelsius

	// DA = PA + 120 * (OAT - ISA_Temp)
	return pressureAltFt + 120*(tempCelsius-isaTempC)
}

// CalculateRelativeHumidity returns relative humidity in percent from temperature and dewpoint (Celsius)
func CalculateRelativeHumidity(tempCelsius float64, dewpointCelsius float64) float64 {
	rh := 100 * math.Exp((magnusB*dewpointCelsius)/(magnusC+dewpointCelsius)) /
		math.Exp((magnusB*tempCelsius)/(magnusC+tempCelsius))
	if rh > 100 {
		return 100
	}
	return rh
}

// CalculateMagneticVariation calculates the magnetic declination for a given position and time
// Returns declination in degrees (+East, -West)
func CalculateMagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	// Convert altitude to meters for WMM
	altM := altFt * FeetToMeters

	// Create location from Geodetic coordinates
	loc := egm96.NewLocationGeodetic(lat, lon, altM)

	// Calculate magnetic field
	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Return 0 for safety if calculation fails
		return 0.0
	}

	return mag.D() // Declination
}

// TrueToMagnetic converts a true bearing to magnetic using the given declination (+East)
func TrueToMagnetic(trueDeg float64, declination float64) float64 {
	mag := math.Mod(trueDeg-declination, 360)
	if mag < 0 {
		mag += 360
	}
	return mag
}
