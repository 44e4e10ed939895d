package generate

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/koustreak/rgddl/internal/errs"
)

// settle is how long the template must stay quiet before a rebuild. Editors
// often write a file in several steps.
const settle = 100 * time.Millisecond

// Watch runs req once, then again every time the template file changes,
// until ctx is done. A failed run is logged and watching continues. notify,
// when non-nil, receives the outcome of every run.
//
// The template's directory is watched rather than the file itself, so
// editors that save by renaming a new file over the old one keep working.
func (g *Generator) Watch(ctx context.Context, req Request, notify func(*Result, error)) error {
	if req.Input == "" {
		return errs.New(errs.ErrKindUsage, "no template given")
	}
	if req.Bucket != "" {
		return errs.New(errs.ErrKindUsage, "watch mode needs a local template")
	}
	if _, err := outputFor(req); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "cannot start file watcher", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(req.Input)); err != nil {
		return fileError(err, "cannot watch "+req.Input)
	}
	target := filepath.Base(req.Input)

	var last string
	rebuild := func() {
		res, err := g.Run(ctx, req)
		switch {
		case err != nil:
			g.log.ErrorWith("ddl generation failed", err, map[string]interface{}{"template": req.Input})
		case res.Digest == last:
			g.log.Debugf("%s rebuilt, script unchanged", req.Input)
		default:
			last = res.Digest
		}
		if notify != nil {
			notify(res, err)
		}
	}

	rebuild()
	g.log.Infof("watching %s", req.Input)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(settle)
		case <-pending:
			pending = nil
			rebuild()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			g.log.Warnf("file watcher: %v", err)
		}
	}
}
