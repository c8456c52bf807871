package models

const (
	kelvinOffset         = 273.15
	fahrenheitMultiplier = 1.8
	fahrenheitBase       = 32
)

// KelvinToCelsius converts the provider's Kelvin readings to Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - kelvinOffset
}

func CelsiusToKelvin(c float64) float64 {
	return c + kelvinOffset
}

func CelsiusToFahrenheit(c float64) float64 {
	return c*fahrenheitMultiplier + fahrenheitBase
}

func FahrenheitToCelsius(f float64) float64 {
	return (f - fahrenheitBase) / fahrenheitMultiplier
}
