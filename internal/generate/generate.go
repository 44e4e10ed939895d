// Package generate runs the template-to-script pipeline behind the rgddl
// command: read a template from disk or a bucket, optionally validate it,
// compile it and write the script next to the template.
package generate

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/koustreak/rgddl/internal/ddl"
	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/filestore"
	"github.com/koustreak/rgddl/internal/logger"
	"github.com/koustreak/rgddl/internal/schema"
)

// Stdout is the output name that streams the script to standard output.
const Stdout = "-"

// Options tunes a Generator.
type Options struct {
	// Directory is passed to the compiler. Empty means ddl.DefaultDirectory.
	Directory string

	// Strict runs schema.Validate before compiling.
	Strict bool

	Logger *logger.Logger

	// Stdout receives the script when the output is Stdout. Nil means os.Stdout.
	Stdout io.Writer
}

// Request names one template and where its script goes.
type Request struct {
	// Input is a file path, or an object key when Bucket is set.
	Input string

	// Output is a file path or object key. Empty derives it from Input with
	// OutputPath; Stdout streams the script.
	Output string

	// Bucket switches Input and Output to objects in the store.
	Bucket string
}

// Result reports what a run produced.
type Result struct {
	Output      string
	Tables      int
	Constraints int
	Bytes       int64
	Digest      string
}

// Generator compiles templates. A nil store limits it to local files.
type Generator struct {
	store filestore.Store
	opts  Options
	log   *logger.Logger
}

// New returns a Generator.
func New(store filestore.Store, opts Options) *Generator {
	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &Generator{store: store, opts: opts, log: log}
}

// Run executes req end to end.
func (g *Generator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Input == "" {
		return nil, errs.New(errs.ErrKindUsage, "no template given")
	}
	if req.Bucket != "" && g.store == nil {
		return nil, errs.New(errs.ErrKindUsage, "a bucket was given but no object store is configured")
	}

	out, err := outputFor(req)
	if err != nil {
		return nil, err
	}

	s, err := g.load(ctx, req)
	if err != nil {
		return nil, err
	}

	script, err := g.Compile(s)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Output:      out,
		Tables:      len(script.Tables),
		Constraints: len(script.Constraints),
		Digest:      script.Digest(),
	}

	switch {
	case out == Stdout:
		res.Bytes, err = script.WriteTo(g.opts.Stdout)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindUnknown, "failed to write script to stdout", err)
		}
	case req.Bucket != "":
		res.Bytes, err = g.publish(ctx, req.Bucket, out, script)
	default:
		res.Bytes, err = WriteFile(out, script)
	}
	if err != nil {
		return nil, err
	}

	g.log.With().
		Str("input", req.Input).
		Str("output", out).
		Int("tables", res.Tables).
		Int("constraints", res.Constraints).
		Str("digest", res.Digest).
		Logger().
		Info("ddl script generated")

	return res, nil
}

// outputFor resolves where req's script goes. A script never replaces its
// own template, which a derived name would do for an input already ending
// in .sql.
func outputFor(req Request) (string, error) {
	out := req.Output
	if out == "" {
		out = OutputPath(req.Input)
	}
	if out == Stdout {
		return out, nil
	}

	same := out == req.Input
	if req.Bucket == "" {
		same = filepath.Clean(out) == filepath.Clean(req.Input)
	}
	if same {
		return "", errs.Newf(errs.ErrKindUsage, "output %s would overwrite the template; choose another output", out)
	}
	return out, nil
}

// Compile validates s when Strict is set and compiles it.
func (g *Generator) Compile(s *schema.Schema) (*ddl.Script, error) {
	if g.opts.Strict {
		if err := schema.Validate(s); err != nil {
			return nil, err
		}
	}
	return ddl.Compile(s, ddl.Options{Directory: g.opts.Directory, Logger: g.log})
}

func (g *Generator) load(ctx context.Context, req Request) (*schema.Schema, error) {
	if req.Bucket == "" {
		return schema.Load(req.Input)
	}

	obj, err := g.store.GetObject(ctx, req.Bucket, req.Input)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	g.log.Debugf("reading template %s/%s (%d bytes)", req.Bucket, req.Input, obj.Info().Size)
	return schema.Decode(obj, schema.FormatFor(req.Input))
}

func (g *Generator) publish(ctx context.Context, bucket, key string, script *ddl.Script) (int64, error) {
	body := script.Bytes()
	info, err := g.store.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)),
		filestore.PutOptions{ContentType: filestore.ContentTypeSQL})
	if err != nil {
		return 0, err
	}
	g.log.Debugf("uploaded %s/%s etag=%s", bucket, key, info.ETag)
	return int64(len(body)), nil
}
