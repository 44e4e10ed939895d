package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/koustreak/rgddl/internal/errs"
	"go.yaml.in/yaml/v3"
)

// Format is the encoding of a template document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the template format from a file name's extension.
// Anything that is not .yaml/.yml is treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and decodes the template at path.
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "template not found", err)
		}
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "cannot open template", err)
	}
	defer f.Close()

	return Decode(f, FormatFor(path))
}

// Decode parses a template document and checks the structural invariants
// the compiler relies on: named tables and columns, unique names, known
// type and constraint tags. Tags are normalized to upper case.
func Decode(r io.Reader, format Format) (*Schema, error) {
	var s Schema
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&s); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "malformed yaml template", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&s); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "malformed json template", err)
		}
	}

	if s.Tables == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, `template has no "tables" list`)
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) normalize() error {
	tables := make(map[string]bool, len(s.Tables))
	for i := range s.Tables {
		t := &s.Tables[i]
		if t.Name == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "table #%d has no table_name", i+1)
		}
		if tables[t.Name] {
			return errs.Newf(errs.ErrKindInvalidInput, "duplicate table %q", t.Name)
		}
		tables[t.Name] = true

		columns := make(map[string]bool, len(t.Columns))
		for j := range t.Columns {
			c := &t.Columns[j]
			if c.Name == "" {
				return errs.Newf(errs.ErrKindInvalidInput, "%s: column #%d has no column_name", t.Name, j+1)
			}
			if columns[c.Name] {
				return errs.Newf(errs.ErrKindInvalidInput, "%s: duplicate column %q", t.Name, c.Name)
			}
			columns[c.Name] = true

			c.Type = Type(normalizeTag(string(c.Type)))
			c.Constraint = Constraint(normalizeTag(string(c.Constraint)))
			c.Skewness = Skewness(normalizeTag(string(c.Skewness)))

			if !c.Type.Valid() {
				return errs.Newf(errs.ErrKindInvalidInput, "%s.%s: unknown type %q", t.Name, c.Name, c.Type)
			}
			if !c.Constraint.Valid() {
				return errs.Newf(errs.ErrKindInvalidInput, "%s.%s: unknown constraint %q", t.Name, c.Name, c.Constraint)
			}
			if c.Length != nil && *c.Length <= 0 {
				return errs.Newf(errs.ErrKindInvalidInput, "%s.%s: length must be positive, got %d", t.Name, c.Name, *c.Length)
			}
			if (c.RefTable == "") != (c.RefColumn == "") {
				return errs.Newf(errs.ErrKindInvalidInput, "%s.%s: ref_tab and ref_col must be given together", t.Name, c.Name)
			}
		}
	}
	return nil
}

// Encode writes s as an indented JSON template.
func Encode(w io.Writer, s *Schema) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	return nil
}
