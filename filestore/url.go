package filestore

import (
	"strings"
)

const uploadsSegment = "uploads"

// FileURL derives the public URL of a stored file from its filesystem path:
// everything after the last "uploads" segment is served under <scheme>://<host>/uploads.
func FileURL(scheme, host, path string) (string, error) {
	segments := strings.Split(strings.ReplaceAll(path, `\`, "/"), "/")
	idx := -1
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == uploadsSegment {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", ErrOutsideUploads
	}

	rel := strings.Join(segments[idx+1:], "/")
	u := scheme + "://" + host + "/" + uploadsSegment
	if rel != "" {
		u += "/" + rel
	}
	return u, nil
}
