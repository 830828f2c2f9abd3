package filestore

import (
	"errors"
	"net/http"
)

// Kind classifies why an upload was rejected.
type Kind string

const (
	UnsupportedType Kind = "UnsupportedType"
	TooLarge        Kind = "TooLarge"
)

// ErrOutsideUploads is returned when a path has no uploads segment to build a public URL from.
var ErrOutsideUploads = errors.New("path is not under an uploads directory")

// Rejection is a validation failure. No bytes remain on disk when one is returned.
type Rejection struct {
	Kind    Kind
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// StatusCode is the HTTP status the rejection maps to.
func (r *Rejection) StatusCode() int {
	return http.StatusBadRequest
}

// Details is rendered as the "errors" member of the error envelope.
func (r *Rejection) Details() any {
	return map[string]any{"kind": r.Kind}
}

// IsRejected reports whether err is a Rejection of the given kind.
func IsRejected(err error, kind Kind) bool {
	var r *Rejection
	return errors.As(err, &r) && r.Kind == kind
}
