package units

import (
	"fmt"
	"strings"
)

// Unit is a temperature display unit. Weather data is always stored in
// Kelvin; a Unit only affects how a value is rendered.
type Unit string

const (
	Celsius    Unit = "celsius"
	Fahrenheit Unit = "fahrenheit"
	Kelvin     Unit = "kelvin"
)

// Default is the unit selected after every new search.
const Default = Celsius

// Parse normalizes a unit name. Unknown values fall back to Default.
func Parse(s string) Unit {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case Celsius:
		return Celsius
	case Fahrenheit:
		return Fahrenheit
	case Kelvin:
		return Kelvin
	default:
		return Default
	}
}

// Valid reports whether s names a known unit.
func Valid(s string) bool {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case Celsius, Fahrenheit, Kelvin:
		return true
	}
	return false
}

// ToCelsius converts a Kelvin value to Celsius.
func ToCelsius(k float64) float64 {
	return k - 273.15
}

// ToFahrenheit converts a Kelvin value to Fahrenheit.
func ToFahrenheit(k float64) float64 {
	return ToCelsius(k)*9/5 + 32
}

// Format renders a Kelvin value in the given unit with one decimal place
// and a unit suffix.
func Format(kelvin float64, u Unit) string {
	switch u {
	case Celsius:
		return fmt.Sprintf("%.1f°C", ToCelsius(kelvin))
	case Fahrenheit:
		return fmt.Sprintf("%.1f°F", ToFahrenheit(kelvin))
	default:
		return fmt.Sprintf("%.1fK", kelvin)
	}
}
