package weather

import "errors"

// Sentinel errors whose text is the exact message shown to the user. Lookup
// failures wrap these with upstream detail; UserMessage strips the detail
// back off before display.
var (
	ErrEmptyInput          = errors.New("Please enter a valid location.")
	ErrLocationNotFound    = errors.New("Location not found.")
	ErrForecastUnavailable = errors.New("Could not load forecast.")
)

// UserMessage maps an error to the single message the widget displays.
// Unknown errors get a generic message rather than leaking transport detail.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return ErrEmptyInput.Error()
	case errors.Is(err, ErrLocationNotFound):
		return ErrLocationNotFound.Error()
	case errors.Is(err, ErrForecastUnavailable):
		return ErrForecastUnavailable.Error()
	default:
		return "Something went wrong. Please try again."
	}
}
