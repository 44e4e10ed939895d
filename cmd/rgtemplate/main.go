// Command rgtemplate exports a live Postgres, MySQL or SQLite schema as an
// rgddl template.
//
//	rgtemplate -driver postgres -dsn "postgres://..." [-tables a,b] [-o retail.json]
//
// Only catalog tables are read. Foreign key columns are exported as
// references, so compiling the template reproduces the key structure.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koustreak/rgddl/internal/config"
	"github.com/koustreak/rgddl/internal/database"
	"github.com/koustreak/rgddl/internal/database/mysql"
	"github.com/koustreak/rgddl/internal/database/postgres"
	"github.com/koustreak/rgddl/internal/database/sqlite"
	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/filestore"
	"github.com/koustreak/rgddl/internal/filestore/provider"
	"github.com/koustreak/rgddl/internal/generate"
	"github.com/koustreak/rgddl/internal/logger"
	"github.com/koustreak/rgddl/internal/schema"
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
	fs := flag.NewFlagSet("rgtemplate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: rgtemplate [flags]")
		fs.PrintDefaults()
	}

	var (
		configPath = fs.String("config", "", "YAML configuration file")
		driver     = fs.String("driver", "", "postgres, mysql or sqlite")
		dsn        = fs.String("dsn", "", "connection string")
		dbSchema   = fs.String("schema", "", "Postgres schema to export (default \"public\")")
		tables     = fs.String("tables", "", "comma-separated tables to export (default all)")
		rows       = fs.Uint64("rows", 0, "row_count written for every table")
		bucket     = fs.String("bucket", "", "upload the template to this bucket; -o names the key")
		output     = fs.String("o", generate.Stdout, "output path or object key; \"-\" writes to stdout")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "rgtemplate: %v\n", err)
		return exitError
	}
	if *driver != "" {
		cfg.Database.Driver = database.Driver(*driver)
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if *dbSchema != "" {
		cfg.Database.Schema = *dbSchema
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	cfg.Log.Output = stderr
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "rgtemplate: %v\n", err)
		return exitUsage
	}
	if cfg.Database.DSN == "" {
		fmt.Fprintln(stderr, "rgtemplate: no DSN given (-dsn or database.dsn)")
		return exitUsage
	}
	if *bucket != "" && (*output == generate.Stdout || !cfg.Store.Configured()) {
		fmt.Fprintln(stderr, "rgtemplate: -bucket needs -o KEY and a configured store")
		return exitUsage
	}

	log := logger.New(&cfg.Log)
	logger.SetGlobal(log)

	tmpl, err := export(ctx, &cfg.Database, splitList(*tables), *rows)
	if err != nil {
		log.ErrorWith("template export failed", err, map[string]interface{}{"driver": string(cfg.Database.Driver)})
		return exitError
	}

	var buf bytes.Buffer
	if err := schema.Encode(&buf, tmpl); err != nil {
		log.ErrorWith("template export failed", err, nil)
		return exitError
	}

	switch {
	case *bucket != "":
		err = upload(ctx, &cfg.Store, *bucket, *output, buf.Bytes())
	case *output == generate.Stdout:
		_, err = buf.WriteTo(stdout)
	default:
		_, err = generate.WriteFile(*output, &buf)
	}
	if err != nil {
		log.ErrorWith("cannot write template", err, map[string]interface{}{"output": *output})
		return exitError
	}

	log.With().Int("tables", len(tmpl.Tables)).Str("output", *output).Logger().Info("template exported")
	return exitOK
}

// open connects to the database named by cfg.Driver.
func open(ctx context.Context, cfg *database.Config) (database.DB, error) {
	switch cfg.Driver {
	case database.DriverPostgres, "":
		return postgres.New(ctx, cfg)
	case database.DriverMySQL:
		return mysql.New(ctx, cfg)
	case database.DriverSQLite:
		return sqlite.New(ctx, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported database driver %q", cfg.Driver)
	}
}

func export(ctx context.Context, cfg *database.Config, tables []string, rows uint64) (*schema.Schema, error) {
	db, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.QueryTimeout)
		defer cancel()
	}

	dbSchema, err := db.InspectSchema(ctx, tables...)
	if err != nil {
		return nil, err
	}
	return schema.FromDatabase(dbSchema, schema.ExportOptions{RowCount: rows}), nil
}

func upload(ctx context.Context, cfg *filestore.Config, bucket, key string, body []byte) error {
	store, err := provider.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)),
		filestore.PutOptions{ContentType: filestore.ContentTypeJSON})
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
