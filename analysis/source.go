package analysis

import (
	"io"
	"net/url"
	"strings"
)

type SourceKind string

const (
	SourceRemote SourceKind = "remote" // a URL the model is asked to read directly
	SourceLocal  SourceKind = "upload" // a local video payload we upload first
)

// MaxPayloadBytes is the inclusive upload size limit (2 GiB).
const MaxPayloadBytes = 2 * 1024 * 1024 * 1024

// Source is the validated input of one analysis run. Exactly one of the two
// kinds is populated: URL for SourceRemote, the payload fields for
// SourceLocal. Immutable once constructed.
type Source struct {
	Kind SourceKind

	// SourceRemote
	URL string

	// SourceLocal. SizeBytes is the declared length of Payload; the remote
	// upload session is sized from it, so a mismatch fails the transfer.
	Payload   io.Reader
	Name      string
	MIMEType  string
	SizeBytes int64
}

// PrepareSource validates untrusted caller input into a Source. A non-empty
// payload takes precedence over a URL. Pure validation: no remote calls, no
// side effects.
func PrepareSource(rawURL string, payload io.Reader, name, mimeType string, sizeBytes int64) (*Source, error) {
	if payload != nil && sizeBytes > 0 {
		if !strings.HasPrefix(mimeType, "video/") {
			return nil, ErrUnsupportedMediaType
		}
		if sizeBytes > MaxPayloadBytes {
			return nil, ErrPayloadTooLarge
		}
		return &Source{
			Kind:      SourceLocal,
			Payload:   payload,
			Name:      name,
			MIMEType:  mimeType,
			SizeBytes: sizeBytes,
		}, nil
	}

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrMissingInput
	}
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || !strings.HasPrefix(u.Scheme, "http") {
		return nil, ErrInvalidLocator
	}
	return &Source{Kind: SourceRemote, URL: rawURL}, nil
}
