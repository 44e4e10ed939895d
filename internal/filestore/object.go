package filestore

import (
	"io"
	"time"
)

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket (e.g. "retail/template.json").
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	ContentType  string
	ETag         string
	LastModified time.Time
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// PutOptions controls an upload.
type PutOptions struct {
	// ContentType is stored with the object. Empty means
	// application/octet-stream.
	ContentType string
}

// Content types of uploaded scripts and templates.
const (
	ContentTypeSQL  = "application/sql"
	ContentTypeJSON = "application/json"
)
