// Package provider opens the filestore.Store named by a configuration.
package provider

import (
	"context"

	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/filestore"
	"github.com/koustreak/rgddl/internal/filestore/minio"
	"github.com/koustreak/rgddl/internal/filestore/s3"
)

// Open connects to the store selected by cfg.Provider. An empty provider
// means MinIO.
func Open(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	if !cfg.Configured() {
		return nil, errs.New(errs.ErrKindUsage, "object store is not configured")
	}

	var (
		store filestore.Store
		err   error
	)
	switch cfg.Provider {
	case filestore.ProviderMinIO, "":
		store, err = minio.New(ctx, cfg)
	case filestore.ProviderS3:
		store, err = s3.New(ctx, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported storage provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
