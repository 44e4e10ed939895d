package minio

import (
	"errors"

	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/filestore"
	miniogo "github.com/minio/minio-go/v7"
)

// mapError translates a minio-go error into a *errs.Error. The SDK reports
// S3 failures as a typed ErrorResponse carrying both code and status.
func mapError(err error, msg string) *errs.Error {
	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		return filestore.Classify(err, msg, resp.Code, resp.StatusCode)
	}
	return filestore.Classify(err, msg, "", 0)
}
