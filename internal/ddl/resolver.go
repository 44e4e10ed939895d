package ddl

import (
	"fmt"

	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/schema"
)

const (
	// DefaultStringLength is the varchar2 width of a STRING without length.
	DefaultStringLength = 10

	// MaxLoaderCharLength is the widest field ORACLE_LOADER reads without an
	// explicit CHAR(n) field spec.
	MaxLoaderCharLength = 255

	DateFieldSpec      = `CHAR(11) DATE_FORMAT DATE MASK "DD-MON-YYYY"`
	TimestampFieldSpec = `CHAR(20) DATE_FORMAT TIMESTAMP MASK "DD-MON-YYYY HH24:MI:SS"`
)

// Resolution is the pair of type renderings for one column.
type Resolution struct {
	// FieldSpec is the access-parameter field spec of the staging table,
	// empty when the bare column name suffices.
	FieldSpec string

	// SQLType is the column type of both the staging and the final table.
	SQLType string
}

// FieldSpecFor returns the ORACLE_LOADER field spec of a declared type.
func FieldSpecFor(t schema.Type, length *int) string {
	switch t {
	case schema.TypeDate:
		return DateFieldSpec
	case schema.TypeTimestamp:
		return TimestampFieldSpec
	case schema.TypeString:
		if length != nil && *length > MaxLoaderCharLength {
			return fmt.Sprintf("CHAR(%d)", *length)
		}
	}
	return ""
}

// SQLTypeFor returns the Oracle column type of a declared type. Unset types
// fall back to number.
func SQLTypeFor(t schema.Type, length *int) string {
	switch t {
	case schema.TypeDate:
		return "date"
	case schema.TypeTimestamp:
		return "timestamp"
	case schema.TypeString:
		n := DefaultStringLength
		if length != nil {
			n = *length
		}
		return fmt.Sprintf("varchar2(%d)", n)
	default:
		return "number"
	}
}

// Resolver maps template columns to their Oracle types, following
// ref_tab/ref_col when a column has no declared type.
type Resolver struct {
	schema *schema.Schema
}

// NewResolver returns a resolver over s. s must not change afterwards.
func NewResolver(s *schema.Schema) *Resolver {
	return &Resolver{schema: s}
}

type columnKey struct {
	table, column string
}

// Resolve returns both renderings for table.column.
func (r *Resolver) Resolve(table, column string) (Resolution, error) {
	t := r.schema.Table(table)
	if t == nil {
		return Resolution{}, errs.Newf(errs.ErrKindUnresolvedReference, "no table %q", table)
	}
	c := t.Column(column)
	if c == nil {
		return Resolution{}, errs.Newf(errs.ErrKindUnresolvedReference, "no column %q in table %q", column, table)
	}
	return r.ResolveColumn(table, c)
}

// ExternalSpec returns the staging-table field spec of table.column.
func (r *Resolver) ExternalSpec(table, column string) (string, error) {
	res, err := r.Resolve(table, column)
	return res.FieldSpec, err
}

// FinalType returns the Oracle column type of table.column.
func (r *Resolver) FinalType(table, column string) (string, error) {
	res, err := r.Resolve(table, column)
	return res.SQLType, err
}

// ResolveColumn is Resolve for a column already looked up in table.
func (r *Resolver) ResolveColumn(table string, c *schema.Column) (Resolution, error) {
	decl, err := r.declaring(table, c)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{
		FieldSpec: FieldSpecFor(decl.Type, decl.Length),
		SQLType:   SQLTypeFor(decl.Type, decl.Length),
	}, nil
}

// declaring walks the reference chain starting at table.c and returns the
// first column that declares a type, or the last column of the chain when
// none does. Every (table, column) pair is visited at most once.
func (r *Resolver) declaring(table string, c *schema.Column) (*schema.Column, error) {
	visited := make(map[columnKey]bool)
	cur := columnKey{table, c.Name}

	for c.Type == schema.TypeNone && c.HasReference() {
		visited[cur] = true

		next := columnKey{c.RefTable, c.RefColumn}
		t := r.schema.Table(next.table)
		if t == nil {
			return nil, errs.Newf(errs.ErrKindUnresolvedReference,
				"%s.%s references %s.%s: no such table", cur.table, cur.column, next.table, next.column)
		}
		nc := t.Column(next.column)
		if nc == nil {
			return nil, errs.Newf(errs.ErrKindUnresolvedReference,
				"%s.%s references %s.%s: no such column", cur.table, cur.column, next.table, next.column)
		}
		if visited[next] {
			return nil, errs.Newf(errs.ErrKindCyclicReference,
				"reference chain through %s.%s loops back to %s.%s", cur.table, cur.column, next.table, next.column)
		}

		cur, c = next, nc
	}
	return c, nil
}
