// Package ddl compiles a template schema into Oracle DDL.
//
// Compilation runs two passes over the schema. The first produces, per
// table, an ORACLE_LOADER external staging table <t>_et over <t>.csv and a
// create-table-as-select from it. The second produces the alter table
// statements adding primary and foreign keys. Each pass yields its own
// ordered statement list; Script assembles them, tables first.
//
// The output is a pure function of the schema and Options: compiling the
// same template twice yields byte-identical text.
package ddl

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/logger"
	"github.com/koustreak/rgddl/internal/schema"
	"github.com/zeebo/xxh3"
)

// Options tunes compilation.
type Options struct {
	// Directory is the Oracle directory object named in every staging
	// table. Empty means DefaultDirectory.
	Directory string

	// Logger receives per-table debug lines. Nil means the global logger.
	Logger *logger.Logger
}

// Script is a compiled DDL script.
type Script struct {
	Tables      []TableDDL
	Constraints []string
}

// Compile translates s into a Script. Any unresolvable reference, cyclic
// reference chain or malformed constraint aborts compilation, and so does
// a directory that is not a plain identifier.
func Compile(s *schema.Schema, opts Options) (*Script, error) {
	directory := opts.Directory
	if directory == "" {
		directory = DefaultDirectory
	}
	if !ValidDirectory(directory) {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "directory %q is not an Oracle identifier", directory)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}

	r := NewResolver(s)
	script := &Script{Tables: make([]TableDDL, 0, len(s.Tables))}

	for i := range s.Tables {
		t := &s.Tables[i]
		td, err := buildTable(t, r, directory)
		if err != nil {
			return nil, err
		}
		script.Tables = append(script.Tables, td)
		log.Debugf("compiled table %s (%d columns)", t.Name, len(t.Columns))
	}

	for i := range s.Tables {
		t := &s.Tables[i]
		stmts, err := constraintsFor(s, t)
		if err != nil {
			return nil, err
		}
		script.Constraints = append(script.Constraints, stmts...)
		if len(stmts) > 0 {
			log.Debugf("compiled %d constraints for %s", len(stmts), t.Name)
		}
	}

	return script, nil
}

// Statements returns every statement in execution order, without terminators.
func (sc *Script) Statements() []string {
	out := make([]string, 0, 2*len(sc.Tables)+len(sc.Constraints))
	for _, t := range sc.Tables {
		out = append(out, t.Staging, t.Create)
	}
	return append(out, sc.Constraints...)
}

// WriteTo writes the script: each table's statement pair followed by a
// blank line, then the constraint statements. Every statement ends with ";\n".
func (sc *Script) WriteTo(w io.Writer) (int64, error) {
	var total int64
	write := func(parts ...string) error {
		for _, p := range parts {
			n, err := io.WriteString(w, p)
			total += int64(n)
			if err != nil {
				return err
			}
		}
		return nil
	}

	for _, t := range sc.Tables {
		if err := write(t.Staging, ";\n", t.Create, ";\n\n"); err != nil {
			return total, err
		}
	}
	for _, c := range sc.Constraints {
		if err := write(c, ";\n"); err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the script text as WriteTo would write it.
func (sc *Script) String() string {
	var sb strings.Builder
	_, _ = sc.WriteTo(&sb)
	return sb.String()
}

// Bytes returns the script text as bytes.
func (sc *Script) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = sc.WriteTo(&buf)
	return buf.Bytes()
}

// Digest returns the xxh3 hash of the script text as 16 hex digits. Equal
// scripts have equal digests, so two runs can be compared without diffing.
func (sc *Script) Digest() string {
	return fmt.Sprintf("%016x", xxh3.Hash(sc.Bytes()))
}
