package models

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// TestTemperatureConversions verifies Kelvin, Celsius and Fahrenheit conversions
// against known reference points.
func TestTemperatureConversions(t *testing.T) {
	tests := []struct {
		name    string
		kelvin  float64
		celsius float64
		fahr    float64
	}{
		{"absolute zero", 0, -273.15, -459.67},
		{"freezing", 273.15, 0, 32},
		{"boiling", 373.15, 100, 212},
		{"minus forty", 233.15, -40, -40},
		{"room", 293.15, 20, 68},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KelvinToCelsius(tt.kelvin); !approxEqual(got, tt.celsius) {
				t.Errorf("KelvinToCelsius(%v) = %v, want %v", tt.kelvin, got, tt.celsius)
			}
			if got := CelsiusToKelvin(tt.celsius); !approxEqual(got, tt.kelvin) {
				t.Errorf("CelsiusToKelvin(%v) = %v, want %v", tt.celsius, got, tt.kelvin)
			}
			if got := CelsiusToFahrenheit(tt.celsius); !approxEqual(got, tt.fahr) {
				t.Errorf("CelsiusToFahrenheit(%v) = %v, want %v", tt.celsius, got, tt.fahr)
			}
			if got := FahrenheitToCelsius(tt.fahr); !approxEqual(got, tt.celsius) {
				t.Errorf("FahrenheitToCelsius(%v) = %v, want %v", tt.fahr, got, tt.celsius)
			}
		})
	}
}

func TestWeatherSnapshot_TemperatureAccessors(t *testing.T) {
	s := WeatherSnapshot{TemperatureCelsius: 25}
	if got := s.TemperatureFahrenheit(); !approxEqual(got, 77) {
		t.Errorf("TemperatureFahrenheit() = %v, want 77", got)
	}
	if got := s.TemperatureKelvin(); !approxEqual(got, 298.15) {
		t.Errorf("TemperatureKelvin() = %v, want 298.15", got)
	}
}

// TestWeatherSnapshot_Rainfall verifies that an absent rainfall reading is
// reported as absent rather than as zero.
func TestWeatherSnapshot_Rainfall(t *testing.T) {
	var none WeatherSnapshot
	if _, ok := none.Rainfall(); ok {
		t.Error("Rainfall() ok = true for snapshot without rain data")
	}

	zero := 0.0
	dry := WeatherSnapshot{RainfallLast3HoursMm: &zero}
	mm, ok := dry.Rainfall()
	if !ok || mm != 0 {
		t.Errorf("Rainfall() = (%v, %v), want (0, true)", mm, ok)
	}

	wet := 3.25
	rainy := WeatherSnapshot{RainfallLast3HoursMm: &wet}
	mm, ok = rainy.Rainfall()
	if !ok || mm != 3.25 {
		t.Errorf("Rainfall() = (%v, %v), want (3.25, true)", mm, ok)
	}
}
