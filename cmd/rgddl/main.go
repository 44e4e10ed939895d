// Command rgddl compiles a data generator template into an Oracle DDL
// script.
//
//	rgddl [flags] <template.json|template.yaml>
//
// The script is written next to the template with its extension replaced
// by .sql. With -bucket, the template is read from and the script written
// to the object store. With -watch, the template is recompiled on every
// save until the command is interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/rgddl/internal/config"
	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/filestore"
	"github.com/koustreak/rgddl/internal/filestore/provider"
	"github.com/koustreak/rgddl/internal/generate"
	"github.com/koustreak/rgddl/internal/logger"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rgddl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: rgddl [flags] <template>")
		fs.PrintDefaults()
	}

	var (
		configPath = fs.String("config", "", "YAML configuration file")
		directory  = fs.String("directory", "", "Oracle directory object for staging tables (default \"<ora_dir>\")")
		strict     = fs.Bool("strict", false, "validate the template against the data generator's rules first")
		bucket     = fs.String("bucket", "", "read the template from and write the script to this bucket")
		output     = fs.String("o", "", "output path or object key; \"-\" writes to stdout")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error")
		logFormat  = fs.String("log-format", "", "console or json")
		watch      = fs.Bool("watch", false, "recompile whenever the template changes, until interrupted")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "rgddl: %v\n", err)
		return exitError
	}
	if set["directory"] {
		cfg.DDL.Directory = *directory
	}
	if set["strict"] {
		cfg.DDL.Strict = *strict
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	cfg.Log.Output = stderr
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "rgddl: %v\n", err)
		return exitUsage
	}

	log := logger.New(&cfg.Log)
	logger.SetGlobal(log)

	if *watch && *bucket != "" {
		fmt.Fprintln(stderr, "rgddl: -watch works on local templates only")
		return exitUsage
	}

	var store filestore.Store
	if *bucket != "" {
		if !cfg.Store.Configured() {
			fmt.Fprintln(stderr, "rgddl: -bucket needs store.endpoint (or store.region for s3) in the configuration")
			return exitUsage
		}
		store, err = provider.Open(ctx, &cfg.Store)
		if err != nil {
			log.ErrorWith("cannot reach object store", err, map[string]interface{}{"endpoint": cfg.Store.Endpoint})
			return exitError
		}
		defer store.Close()
	}

	gen := generate.New(store, generate.Options{
		Directory: cfg.DDL.Directory,
		Strict:    cfg.DDL.Strict,
		Logger:    log,
		Stdout:    stdout,
	})

	req := generate.Request{
		Input:  fs.Arg(0),
		Output: *output,
		Bucket: *bucket,
	}
	if *watch {
		err = gen.Watch(ctx, req, nil)
	} else {
		_, err = gen.Run(ctx, req)
	}
	if err != nil {
		log.ErrorWith("ddl generation failed", err, map[string]interface{}{"template": fs.Arg(0)})
		if errs.KindOf(err) == errs.ErrKindUsage {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}
