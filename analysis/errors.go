package analysis

import (
	"errors"
	"fmt"
)

// validation errors, surfaced before any remote call is made
var (
	ErrMissingInput         = errors.New("no video file or URL provided")
	ErrInvalidLocator       = errors.New("not an absolute http(s) URL")
	ErrUnsupportedMediaType = errors.New("file does not look like a video")
	ErrPayloadTooLarge      = errors.New("file exceeds the maximum upload size")
)

// RemoteProcessingError means the uploaded file settled into a state the
// remote side will not recover from (anything other than PROCESSING/ACTIVE).
type RemoteProcessingError struct {
	State   string
	Message string
}

func (e *RemoteProcessingError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote processing failed (state %s): %s", e.State, e.Message)
	}
	return fmt.Sprintf("remote processing failed (state %s)", e.State)
}
