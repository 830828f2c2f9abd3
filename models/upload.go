package models

import "io"

// IncomingFile is one file part of an upload request as delivered by the transport.
type IncomingFile struct {
	OriginalName string
	ContentType  string
	// DeclaredSize is the client-declared byte length, or -1 when the client declared none.
	DeclaredSize int64
	Content      io.Reader
}

// StoredFile describes a file fully written under the upload root.
type StoredFile struct {
	Filename    string
	Path        string // absolute filesystem path
	Size        int64
	ContentType string
	Category    string
}

// UploadedFile is the public view of a StoredFile returned to clients.
type UploadedFile struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// UploadResponse is the success body of the upload endpoints.
type UploadResponse struct {
	Success bool         `json:"success"`
	File    UploadedFile `json:"file"`
}
