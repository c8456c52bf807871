package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// City name length bounds in runes, used by the HTTP and terminal callers.
const (
	MinCityLength = 1
	MaxCityLength = 100
)

// ErrLocationEmpty is returned when location is empty or whitespace-only after trim.
var ErrLocationEmpty = errors.New("location is required")

// ErrLocationTooShort is returned when location length is below the minimum.
var ErrLocationTooShort = errors.New("location too short")

// ErrLocationTooLong is returned when location length exceeds the maximum.
var ErrLocationTooLong = errors.New("location too long")

// ErrLocationInvalidChars is returned when location contains control characters or invalid UTF-8.
var ErrLocationInvalidChars = errors.New("location contains invalid characters")

var (
	ErrCoordinatesRequired = errors.New("latitude and longitude are required")
	ErrCoordinatesInvalid  = errors.New("coordinates must be decimal numbers")
	ErrLatitudeOutOfRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeOutOfRange = errors.New("longitude must be between -180 and 180")
)

// ValidateCity trims the input and enforces length bounds (minLen, maxLen in runes;
// 0 disables a bound). Punctuation, symbols and non-Latin scripts are accepted since
// the fetcher percent-encodes the name; only control characters and invalid UTF-8
// are rejected. Returns the trimmed name or an error suitable for 400 INVALID_LOCATION.
func ValidateCity(input string, minLen, maxLen int) (string, error) {
	if !utf8.ValidString(input) {
		return "", ErrLocationInvalidChars
	}
	s := strings.TrimSpace(input)
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return "", ErrLocationEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrLocationTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrLocationTooLong
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return "", ErrLocationInvalidChars
	}
	return s, nil
}

type coordinates struct {
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`
}

var validate = validator.New()

// ValidateCoordinates reports whether latitude is within [-90, 90] and longitude
// within [-180, 180]. NaN and infinities are out of range.
func ValidateCoordinates(latitude, longitude float64) error {
	err := validate.Struct(coordinates{Latitude: latitude, Longitude: longitude})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate coordinates: %w", err)
	}
	switch verrs[0].Field() {
	case "Latitude":
		return fmt.Errorf("%w: got %v", ErrLatitudeOutOfRange, latitude)
	default:
		return fmt.Errorf("%w: got %v", ErrLongitudeOutOfRange, longitude)
	}
}

// ParseCoordinates parses decimal latitude and longitude strings from query
// parameters or flags and validates their ranges.
func ParseCoordinates(latInput, lonInput string) (latitude, longitude float64, err error) {
	latStr, lonStr := strings.TrimSpace(latInput), strings.TrimSpace(lonInput)
	if latStr == "" || lonStr == "" {
		return 0, 0, ErrCoordinatesRequired
	}
	latitude, err = strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude %q", ErrCoordinatesInvalid, latStr)
	}
	longitude, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude %q", ErrCoordinatesInvalid, lonStr)
	}
	if err := ValidateCoordinates(latitude, longitude); err != nil {
		return 0, 0, err
	}
	return latitude, longitude, nil
}
