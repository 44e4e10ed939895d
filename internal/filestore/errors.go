package filestore

import (
	"context"
	"errors"
	"net/http"

	"github.com/koustreak/rgddl/internal/errs"
)

// codeKinds classifies the S3 protocol error codes both drivers see.
var codeKinds = map[string]errs.ErrKind{
	"NoSuchBucket": errs.ErrKindNotFound,
	"NoSuchKey":    errs.ErrKindNotFound,
	"NoSuchUpload": errs.ErrKindNotFound,
	"NotFound":     errs.ErrKindNotFound,

	"AccessDenied":          errs.ErrKindPermissionDenied,
	"Forbidden":             errs.ErrKindPermissionDenied,
	"InvalidAccessKeyId":    errs.ErrKindPermissionDenied,
	"SignatureDoesNotMatch": errs.ErrKindPermissionDenied,
	"ExpiredToken":          errs.ErrKindPermissionDenied,

	"InvalidBucketName": errs.ErrKindInvalidInput,
	"InvalidObjectName": errs.ErrKindInvalidInput,
	"InvalidArgument":   errs.ErrKindInvalidInput,
	"KeyTooLongError":   errs.ErrKindInvalidInput,

	"RequestTimeout": errs.ErrKindTimeout,
	"SlowDown":       errs.ErrKindTimeout,
}

// KindForCode returns the kind of an S3 error code. ok is false for codes
// that say nothing specific, such as InternalError.
func KindForCode(code string) (kind errs.ErrKind, ok bool) {
	kind, ok = codeKinds[code]
	return kind, ok
}

// KindForStatus returns the kind of an HTTP status from a store response.
func KindForStatus(status int) (errs.ErrKind, bool) {
	switch status {
	case http.StatusNotFound:
		return errs.ErrKindNotFound, true
	case http.StatusForbidden, http.StatusUnauthorized:
		return errs.ErrKindPermissionDenied, true
	case http.StatusBadRequest:
		return errs.ErrKindInvalidInput, true
	case http.StatusRequestTimeout:
		return errs.ErrKindTimeout, true
	}
	return errs.ErrKindUnknown, false
}

// Classify wraps err for a driver that has pulled the S3 error code and
// HTTP status out of its SDK error; either may be zero. The code wins over
// the status, since HEAD responses carry a status only. Cancellation is a
// timeout and anything unrecognised a transport failure.
func Classify(err error, msg, code string, status int) *errs.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	if kind, ok := KindForCode(code); ok {
		return errs.Wrap(kind, msg, err)
	}
	if kind, ok := KindForStatus(status); ok {
		return errs.Wrap(kind, msg, err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
