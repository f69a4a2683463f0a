package weather

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	recordElement  = "METAR"
	rawTextElement = "raw_text"
	stationElement = "station_id"
)

var (
	// ErrMalformedFeed wraps structural XML errors from the feed
	ErrMalformedFeed = errors.New("malformed METAR feed")

	// ErrCoercion is matched by every *CoercionError
	ErrCoercion = errors.New("field coercion failed")
)

// CoercionError reports an element whose text could not be converted to its numeric type
type CoercionError struct {
	Element string
	Text    string
	Err     error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot convert <%s> value %q: %v", e.Element, e.Text, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

func (e *CoercionError) Is(target error) bool { return target == ErrCoercion }

// fieldSetter stores the text of one element into the record
type fieldSetter func(m *Metar, text string) error

// metarFields maps feed element names to record fields.
// quality_control_flags and sky_condition are not text elements and are handled in dispatchField.
var metarFields = map[string]fieldSetter{
	"station_id":            stringField(func(m *Metar) *string { return &m.StationID }),
	"observation_time":      stringField(func(m *Metar) *string { return &m.ObservationTime }),
	"latitude":              floatField("latitude", func(m *Metar) *float64 { return &m.Latitude }),
	"longitude":             floatField("longitude", func(m *Metar) *float64 { return &m.Longitude }),
	"temp_c":                floatField("temp_c", func(m *Metar) *float64 { return &m.Temperature }),
	"dewpoint_c":            floatField("dewpoint_c", func(m *Metar) *float64 { return &m.Dewpoint }),
	"wind_dir_degrees":      intField("wind_dir_degrees", func(m *Metar) *int { return &m.WindDirDegrees }),
	"wind_speed_kt":         intField("wind_speed_kt", func(m *Metar) *int { return &m.WindSpeedKnots }),
	"wind_gust_kt":          intField("wind_gust_kt", func(m *Metar) *int { return &m.WindGustKnots }),
	"visibility_statute_mi": floatField("visibility_statute_mi", func(m *Metar) *float64 { return &m.Visibility }),
	"altim_in_hg":           floatField("altim_in_hg", func(m *Metar) *float64 { return &m.AltimInHg }),
	"sea_level_pressure_mb": floatField("sea_level_pressure_mb", func(m *Metar) *float64 { return &m.SeaLevelPressureMb }),
	"wx_string":             stringField(func(m *Metar) *string { return &m.Wx }),
	"flight_category":       stringField(func(m *Metar) *string { return &m.FlightCategory }),
	"metar_type":            stringField(func(m *Metar) *string { return &m.MetarType }),
	"elevation_m":           floatField("elevation_m", func(m *Metar) *float64 { return &m.ElevationMeters }),
}

func stringField(field func(*Metar) *string) fieldSetter {
	return func(m *Metar, text string) error {
		*field(m) = text
		return nil
	}
}

func floatField(name string, field func(*Metar) *float64) fieldSetter {
	return func(m *Metar, text string) error {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return &CoercionError{Element: name, Text: text, Err: err}
		}
		*field(m) = v
		return nil
	}
}

func intField(name string, field func(*Metar) *int) fieldSetter {
	return func(m *Metar, text string) error {
		v, err := strconv.Atoi(text)
		if err != nil {
			return &CoercionError{Element: name, Text: text, Err: err}
		}
		*field(m) = v
		return nil
	}
}

// SearchMETAR scans the feed for the first record whose raw text starts with
// the upper-cased station id. Non-matching records are skipped without
// decoding their fields. found is false when the feed ends without a match.
func SearchMETAR(r io.Reader, id string) (Metar, bool, error) {
	target := strings.ToUpper(id)
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return Metar{}, false, nil
		}
		if err != nil {
			return Metar{}, false, malformed(dec, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != rawTextElement {
			continue
		}

		raw, err := readText(dec)
		if err != nil {
			return Metar{}, false, malformed(dec, err)
		}

		if !strings.HasPrefix(raw, target) {
			// raw_text is closed, so Skip runs to the end of the enclosing METAR
			if err := dec.Skip(); err != nil {
				return Metar{}, false, malformed(dec, err)
			}
			continue
		}

		var metar Metar
		if err := decodeRecord(dec, &metar); err != nil {
			return Metar{}, false, err
		}
		metar.RawText = raw
		return metar, true, nil
	}
}

// ListStations calls emit with the station id of every record, in document order
func ListStations(r io.Reader, emit func(id string) error) error {
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return malformed(dec, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != stationElement {
			continue
		}

		id, err := readText(dec)
		if err != nil {
			return malformed(dec, err)
		}
		if err := emit(id); err != nil {
			return err
		}
		if err := dec.Skip(); err != nil {
			return malformed(dec, err)
		}
	}
}

// decodeRecord dispatches child elements into m until the record's end element
func decodeRecord(dec *xml.Decoder, m *Metar) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			// EOF inside a record is a truncated document
			return malformed(dec, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := dispatchField(dec, t, m); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == recordElement {
				return nil
			}
		}
	}
}

// dispatchField consumes one child element, including its end element
func dispatchField(dec *xml.Decoder, start xml.StartElement, m *Metar) error {
	switch start.Name.Local {
	case "quality_control_flags":
		return readQualityControlFlag(dec, m)
	case "sky_condition":
		m.SkyConditions = append(m.SkyConditions, skyConditionFromAttrs(start.Attr))
		if err := dec.Skip(); err != nil {
			return malformed(dec, err)
		}
		return nil
	}

	set, known := metarFields[start.Name.Local]
	if !known {
		if err := dec.Skip(); err != nil {
			return malformed(dec, err)
		}
		return nil
	}

	text, err := readText(dec)
	if err != nil {
		return malformed(dec, err)
	}
	return set(m, text)
}

// readQualityControlFlag keeps the first nested flag and skips the rest
func readQualityControlFlag(dec *xml.Decoder, m *Metar) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return malformed(dec, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			value, err := readText(dec)
			if err != nil {
				return malformed(dec, err)
			}
			m.QualityControlFlags = QualityControlFlag{Name: t.Name.Local, Value: value}
			if err := dec.Skip(); err != nil {
				return malformed(dec, err)
			}
			return nil
		case xml.EndElement:
			// empty <quality_control_flags/>
			return nil
		}
	}
}

func skyConditionFromAttrs(attrs []xml.Attr) SkyCondition {
	var sc SkyCondition
	for _, a := range attrs {
		switch a.Name.Local {
		case "sky_cover":
			sc.Cover = a.Value
		case "cloud_base_ft_agl":
			if v, err := strconv.Atoi(strings.TrimSpace(a.Value)); err == nil {
				sc.CloudBaseFtAGL = v
			}
		}
	}
	return sc
}

// readText returns the trimmed character data of the element whose start
// token was just read, consuming its end token. Nested elements are skipped.
func readText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}

		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if err := dec.Skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return strings.TrimSpace(sb.String()), nil
		}
	}
}

func malformed(dec *xml.Decoder, err error) error {
	if errors.Is(err, ErrMalformedFeed) {
		return err
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w at offset %d: %w", ErrMalformedFeed, dec.InputOffset(), err)
}
