package weather

import "errors"

// Metar is a single decoded METAR observation from the aviationweather.gov feed
type Metar struct {
	RawText             string             `json:"raw_text"`
	StationID           string             `json:"station_id"`
	ObservationTime     string             `json:"observation_time"`
	Latitude            float64            `json:"latitude"`
	Longitude           float64            `json:"longitude"`
	Temperature         float64            `json:"temp_c"`
	Dewpoint            float64            `json:"dewpoint_c"`
	WindDirDegrees      int                `json:"wind_dir_degrees"`
	WindSpeedKnots      int                `json:"wind_speed_kt"`
	WindGustKnots       int                `json:"wind_gust_kt,omitempty"`
	Visibility          float64            `json:"visibility_statute_mi"`
	AltimInHg           float64            `json:"altim_in_hg"`
	SeaLevelPressureMb  float64            `json:"sea_level_pressure_mb,omitempty"`
	QualityControlFlags QualityControlFlag `json:"quality_control_flags"`
	Wx                  string             `json:"wx_string,omitempty"`
	SkyConditions       []SkyCondition     `json:"sky_condition,omitempty"`
	FlightCategory      string             `json:"flight_category"`
	MetarType           string             `json:"metar_type"`
	ElevationMeters     float64            `json:"elevation_m"`
}

// QualityControlFlag is the first flag found under <quality_control_flags>,
// e.g. <auto_station>TRUE</auto_station> -> {"auto_station", "TRUE"}
type QualityControlFlag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SkyCondition is one cloud layer, e.g. BKN at 1200 ft
type SkyCondition struct {
	Cover          string `json:"sky_cover"`
	CloudBaseFtAGL int    `json:"cloud_base_ft_agl"`
}

// IsZero reports whether m carries no data at all
func (m *Metar) IsZero() bool {
	return m.RawText == "" && m.StationID == "" && m.ObservationTime == "" &&
		m.Latitude == 0 && m.Longitude == 0 && m.Temperature == 0 && m.Dewpoint == 0 &&
		m.WindDirDegrees == 0 && m.WindSpeedKnots == 0 && m.WindGustKnots == 0 &&
		m.Visibility == 0 && m.AltimInHg == 0 && m.SeaLevelPressureMb == 0 &&
		m.QualityControlFlags == (QualityControlFlag{}) && m.Wx == "" &&
		len(m.SkyConditions) == 0 && m.FlightCategory == "" && m.MetarType == "" &&
		m.ElevationMeters == 0
}

// WeatherConfig represents the weather client configuration
type WeatherConfig struct {
	METARFeedURL          string `toml:"metar_feed_url"`
	TAFBaseURL            string `toml:"taf_base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	UserAgent             string `toml:"user_agent"`
}

// WeatherType represents the type of weather data
type WeatherType string

const (
	WeatherTypeMETAR WeatherType = "metar"
	WeatherTypeTAF   WeatherType = "taf"
)

var (
	// ErrStationNotFound is returned when no record in the feed matches the station
	ErrStationNotFound = errors.New("station not found")

	// ErrTAFNotFound is returned when the TAF server has no forecast for the station
	ErrTAFNotFound = errors.New("no TAF found")
)

// DefaultWeatherConfig returns the default weather configuration
func DefaultWeatherConfig() WeatherConfig {
	return WeatherConfig{
		METARFeedURL:          "https://aviationweather.gov/data/cache/metars.cache.xml",
		TAFBaseURL:            "https://tgftp.nws.noaa.gov/data/forecasts/taf/stations",
		RequestTimeoutSeconds: 30,
		UserAgent:             "metar-fetcher",
	}
}
