package generate

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/koustreak/rgddl/internal/errs"
)

// OutputPath returns input with its final extension replaced by ".sql".
// Only the last extension is dropped, so dotted directory and file names
// keep their dots.
func OutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".sql"
}

// WriteFile writes src to path through a temporary file in the same
// directory, so a failed run never leaves a truncated file behind.
func WriteFile(path string, src io.WriterTo) (int64, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return 0, fileError(err, "cannot create output in "+dir)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	n, err := src.WriteTo(tmp)
	if err != nil {
		tmp.Close()
		return 0, fileError(err, "cannot write "+path)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return 0, fileError(err, "cannot write "+path)
	}
	if err := tmp.Close(); err != nil {
		return 0, fileError(err, "cannot write "+path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fileError(err, "cannot replace "+path)
	}
	return n, nil
}

func fileError(err error, msg string) *errs.Error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	case errors.Is(err, fs.ErrNotExist):
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	default:
		return errs.Wrap(errs.ErrKindUnknown, msg, err)
	}
}
