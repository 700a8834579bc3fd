package predict

import (
	"errors"
	"fmt"

	"github.com/san-kum/pinnlab/internal/params"
)

var (
	// ErrMissingImages is returned when a 2xx response lacks either image.
	ErrMissingImages = errors.New("predict: response missing streamline or pressure image")

	// ErrUnavailable wraps transport failures reaching the backend.
	ErrUnavailable = errors.New("predict: backend unreachable")
)

// Error is a non-success response from the prediction backend. Its message is
// the backend's detail text so it can be shown to the user unchanged.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Request failed with status %d", e.Status)
}

// UserMessage turns a Predict error into the short text shown in a notice.
func UserMessage(err error) string {
	var perr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &perr):
		return perr.Error()
	case errors.Is(err, params.ErrInvalidParameters):
		return "Invalid simulation parameters."
	case errors.Is(err, ErrMissingImages):
		return "Failed to get streamline and pressure images from API."
	default:
		return "Failed to generate flow. Is the backend server running?"
	}
}
