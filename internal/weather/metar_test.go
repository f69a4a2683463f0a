package weather

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFeed(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/metars.xml")
	require.NoError(t, err)
	return string(data)
}

// record wraps METAR children in the feed envelope
func record(children ...string) string {
	var sb strings.Builder
	sb.WriteString(`<response><data>`)
	for _, c := range children {
		sb.WriteString(`<METAR>`)
		sb.WriteString(c)
		sb.WriteString(`</METAR>`)
	}
	sb.WriteString(`</data></response>`)
	return sb.String()
}

func TestSearchMETAR_Found(t *testing.T) {
	m, found, err := SearchMETAR(strings.NewReader(loadFeed(t)), "ESSD")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "ESSD 011220Z AUTO 27008KT 9999 -RA BKN012 OVC030 12/03 Q1013", m.RawText)
	assert.Equal(t, "ESSD", m.StationID)
	assert.Equal(t, "2024-05-01T12:20:00Z", m.ObservationTime)
	assert.Equal(t, 60.42, m.Latitude)
	assert.Equal(t, 15.5, m.Longitude)
	assert.Equal(t, 12.0, m.Temperature)
	assert.Equal(t, 3.0, m.Dewpoint)
	assert.Equal(t, 270, m.WindDirDegrees)
	assert.Equal(t, 8, m.WindSpeedKnots)
	assert.Equal(t, 0, m.WindGustKnots)
	assert.Equal(t, 6.21, m.Visibility)
	assert.Equal(t, 29.91142, m.AltimInHg)
	assert.Equal(t, QualityControlFlag{Name: "auto_station", Value: "TRUE"}, m.QualityControlFlags)
	assert.Equal(t, "-RA", m.Wx)
	assert.Equal(t, []SkyCondition{
		{Cover: "BKN", CloudBaseFtAGL: 1200},
		{Cover: "OVC", CloudBaseFtAGL: 3000},
	}, m.SkyConditions)
	assert.Equal(t, "MVFR", m.FlightCategory)
	assert.Equal(t, "METAR", m.MetarType)
	assert.Equal(t, 165.0, m.ElevationMeters)
}

func TestSearchMETAR_SkipsNonMatchingRecords(t *testing.T) {
	m, found, err := SearchMETAR(strings.NewReader(loadFeed(t)), "ESNU")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "ESNU", m.StationID)
	assert.Equal(t, -2.0, m.Temperature)
	assert.Equal(t, 22, m.WindGustKnots)
	// nothing from the skipped ESSD record leaks in
	assert.Equal(t, QualityControlFlag{}, m.QualityControlFlags)
	assert.Empty(t, m.Wx)
	assert.Equal(t, []SkyCondition{{Cover: "CAVOK"}}, m.SkyConditions)
}

func TestSearchMETAR_FirstMatchWins(t *testing.T) {
	m, found, err := SearchMETAR(strings.NewReader(loadFeed(t)), "ESSD")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2024-05-01T12:20:00Z", m.ObservationTime)
}

func TestSearchMETAR_LowercaseTarget(t *testing.T) {
	m, found, err := SearchMETAR(strings.NewReader(loadFeed(t)), "esnu")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ESNU", m.StationID)
}

func TestSearchMETAR_DocumentTextIsNotUppercased(t *testing.T) {
	feed := record(`<raw_text>essd 011220Z 27008KT</raw_text><station_id>essd</station_id>`)

	m, found, err := SearchMETAR(strings.NewReader(feed), "essd")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, m.IsZero())
}

func TestSearchMETAR_NotFound(t *testing.T) {
	m, found, err := SearchMETAR(strings.NewReader(loadFeed(t)), "KJFK")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, m.IsZero())
}

func TestSearchMETAR_EmptyDocument(t *testing.T) {
	_, found, err := SearchMETAR(strings.NewReader(record()), "ESSD")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSearchMETAR_QualityControlFlags(t *testing.T) {
	t.Run("single flag", func(t *testing.T) {
		feed := record(`<raw_text>ESSD 011220Z</raw_text>` +
			`<quality_control_flags><auto_station>TRUE</auto_station></quality_control_flags>`)

		m, found, err := SearchMETAR(strings.NewReader(feed), "ESSD")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, QualityControlFlag{Name: "auto_station", Value: "TRUE"}, m.QualityControlFlags)
	})

	t.Run("second flag is not captured", func(t *testing.T) {
		feed := record(`<raw_text>ESSD 011220Z</raw_text>` +
			`<quality_control_flags><auto_station>TRUE</auto_station><maintenance_indicator_on>TRUE</maintenance_indicator_on></quality_control_flags>` +
			`<station_id>ESSD</station_id>`)

		m, found, err := SearchMETAR(strings.NewReader(feed), "ESSD")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, QualityControlFlag{Name: "auto_station", Value: "TRUE"}, m.QualityControlFlags)
		assert.Equal(t, "ESSD", m.StationID)
	})

	t.Run("empty element", func(t *testing.T) {
		feed := record(`<raw_text>ESSD 011220Z</raw_text><quality_control_flags/><station_id>ESSD</station_id>`)

		m, found, err := SearchMETAR(strings.NewReader(feed), "ESSD")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, QualityControlFlag{}, m.QualityControlFlags)
		assert.Equal(t, "ESSD", m.StationID)
	})
}

func TestSearchMETAR_UnknownElementsIgnored(t *testing.T) {
	feed := record(`<raw_text>ESSD 011220Z</raw_text>` +
		`<three_hr_pressure_tendency_mb>1.2</three_hr_pressure_tendency_mb>` +
		`<precip_in><nested>0.01</nested></precip_in>` +
		`<station_id>ESSD</station_id>`)

	m, found, err := SearchMETAR(strings.NewReader(feed), "ESSD")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ESSD", m.StationID)
}

func TestSearchMETAR_MalformedXML(t *testing.T) {
	tests := []struct {
		name string
		feed string
	}{
		{"unterminated record", `<response><data><METAR><raw_text>ESSD 011220Z</raw_text><station_id>ESSD</station_id>`},
		{"unterminated skipped record", `<response><data><METAR><raw_text>ESNU 011220Z</raw_text><station_id>ESNU`},
		{"mismatched tags", `<response><METAR><raw_text>ESSD</raw_text><temp_c>12</dewpoint_c></METAR></response>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, found, err := SearchMETAR(strings.NewReader(tt.feed), "ESSD")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedFeed))
			assert.False(t, found)
			assert.True(t, m.IsZero())
		})
	}
}

func TestSearchMETAR_CoercionFailure(t *testing.T) {
	tests := []struct {
		name    string
		element string
		text    string
	}{
		{"float field", "temp_c", "N/A"},
		{"int field", "wind_dir_degrees", "VRB"},
		{"empty numeric", "altim_in_hg", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := record(`<raw_text>ESSD 011220Z</raw_text><station_id>ESSD</station_id>` +
				`<` + tt.element + `>` + tt.text + `</` + tt.element + `>`)

			m, found, err := SearchMETAR(strings.NewReader(feed), "ESSD")
			require.Error(t, err)
			assert.False(t, found)
			assert.True(t, m.IsZero())
			assert.True(t, errors.Is(err, ErrCoercion))
			assert.False(t, errors.Is(err, ErrMalformedFeed))

			var coercionErr *CoercionError
			require.True(t, errors.As(err, &coercionErr))
			assert.Equal(t, tt.element, coercionErr.Element)
			assert.Equal(t, tt.text, coercionErr.Text)
		})
	}
}

func TestSearchMETAR_CoercionInSkippedRecordIsIgnored(t *testing.T) {
	feed := record(
		`<raw_text>ESNU 011220Z</raw_text><temp_c>N/A</temp_c>`,
		`<raw_text>ESSD 011220Z</raw_text><temp_c>12</temp_c>`,
	)

	m, found, err := SearchMETAR(strings.NewReader(feed), "ESSD")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 12.0, m.Temperature)
}

func TestSearchMETAR_SkyConditionWithoutBase(t *testing.T) {
	feed := record(`<raw_text>ESSD 011220Z</raw_text><sky_condition sky_cover="CLR"/><sky_condition sky_cover="FEW" cloud_base_ft_agl="2500"></sky_condition>`)

	m, found, err := SearchMETAR(strings.NewReader(feed), "ESSD")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []SkyCondition{{Cover: "CLR"}, {Cover: "FEW", CloudBaseFtAGL: 2500}}, m.SkyConditions)
}

func TestListStations(t *testing.T) {
	t.Run("document order with duplicates", func(t *testing.T) {
		var sb strings.Builder
		err := ListStations(strings.NewReader(loadFeed(t)), StationListWriter(&sb))
		require.NoError(t, err)
		assert.Equal(t, "ESSD, ESNU, ESSD, ", sb.String())
	})

	t.Run("empty document", func(t *testing.T) {
		var ids []string
		err := ListStations(strings.NewReader(record()), func(id string) error {
			ids = append(ids, id)
			return nil
		})
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("emit error stops the walk", func(t *testing.T) {
		stop := errors.New("stop")
		var ids []string
		err := ListStations(strings.NewReader(loadFeed(t)), func(id string) error {
			ids = append(ids, id)
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, []string{"ESSD"}, ids)
	})

	t.Run("malformed", func(t *testing.T) {
		err := ListStations(strings.NewReader(`<response><METAR><station_id>ESSD</station_id>`), func(string) error { return nil })
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedFeed)
	})
}
