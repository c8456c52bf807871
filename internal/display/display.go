// Package display turns weather snapshots into the short labels shown to people.
package display

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kjstillabower/weather-lookup/internal/models"
)

// Units selects the temperature scale for display. Snapshots are always Celsius.
type Units int

const (
	Celsius Units = iota
	Fahrenheit
)

var ErrUnknownUnits = errors.New("unknown units")

// ParseUnits accepts c/celsius/metric and f/fahrenheit/imperial, case-insensitively.
// Empty input selects Celsius.
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "c", "celsius", "metric":
		return Celsius, nil
	case "f", "fahrenheit", "imperial":
		return Fahrenheit, nil
	default:
		return Celsius, fmt.Errorf("%w: %q (want c or f)", ErrUnknownUnits, s)
	}
}

func (u Units) String() string {
	if u == Fahrenheit {
		return "f"
	}
	return "c"
}

// Report holds one display label per snapshot field.
type Report struct {
	City        string `json:"city"`
	Weather     string `json:"weather"`
	Temperature string `json:"temperature"`
	CloudCover  string `json:"cloudCover"`
	Wind        string `json:"wind"`
	Rain        string `json:"rain"`
	Humidity    string `json:"humidity"`
}

// Format renders s. Temperature is rounded half away from zero to a whole degree.
func Format(s models.WeatherSnapshot, u Units) Report {
	temp := s.TemperatureCelsius
	if u == Fahrenheit {
		temp = s.TemperatureFahrenheit()
	}

	rain := "None"
	if mm, ok := s.Rainfall(); ok {
		rain = decimal(mm) + " mm"
	}

	return Report{
		City:        s.City,
		Weather:     s.WeatherDescription,
		Temperature: strconv.Itoa(int(math.Round(temp))) + "°",
		CloudCover:  strconv.Itoa(s.CloudCoverPercent) + "%",
		Wind:        decimal(s.WindSpeed) + " m/s",
		Rain:        rain,
		Humidity:    strconv.Itoa(s.HumidityPercent) + "%",
	}
}

// decimal prints v with the shortest exact representation, keeping one fractional
// digit for whole numbers so 5 reads as "5.0".
func decimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// WriteTo writes the report as aligned "Label: value" lines.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 0, 1, ' ', 0)
	rows := [][2]string{
		{"City", r.City},
		{"Weather", r.Weather},
		{"Temperature", r.Temperature},
		{"Cloud cover", r.CloudCover},
		{"Wind", r.Wind},
		{"Rain (3h)", r.Rain},
		{"Humidity", r.Humidity},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return cw.n, err
		}
	}
	err := tw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Notice is a user-facing failure message.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// FailureNotice is shown for every failed lookup regardless of cause.
var FailureNotice = Notice{
	Title:   "Can't get the weather",
	Message: "The weather service isn't responding.",
}

func (n Notice) String() string {
	return n.Title + ": " + n.Message
}
