// Package schema is the in-memory model of a data-generation template:
// tables, their ordered columns, declared types, references and key roles.
//
// A Schema is built once by Decode/Load and never mutated afterwards; the
// DDL compiler and the exporters only traverse it.
package schema

// Schema is the whole template: an ordered list of tables.
type Schema struct {
	Tables []Table `json:"tables" yaml:"tables"`
}

// Table is a named, ordered list of columns. Column order is significant:
// it drives the order of every emitted clause.
type Table struct {
	Name     string   `json:"table_name" yaml:"table_name"`
	RowCount *uint64  `json:"row_count,omitempty" yaml:"row_count,omitempty"`
	Columns  []Column `json:"columns" yaml:"columns"`
}

// Column describes one template column. Either Type or the
// (RefTable, RefColumn) pair determines its storage type.
type Column struct {
	Name        string     `json:"column_name" yaml:"column_name"`
	Type        Type       `json:"type,omitempty" yaml:"type,omitempty"`
	Length      *int       `json:"length,omitempty" yaml:"length,omitempty"`
	RefTable    string     `json:"ref_tab,omitempty" yaml:"ref_tab,omitempty"`
	RefColumn   string     `json:"ref_col,omitempty" yaml:"ref_col,omitempty"`
	Constraint  Constraint `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Cardinality *float64   `json:"cardinality,omitempty" yaml:"cardinality,omitempty"`
	Skewness    Skewness   `json:"skewness,omitempty" yaml:"skewness,omitempty"`
	RealMin     *float64   `json:"real_min,omitempty" yaml:"real_min,omitempty"`
	RealMax     *float64   `json:"real_max,omitempty" yaml:"real_max,omitempty"`
}

// HasReference reports whether the column points at another table's column.
func (c *Column) HasReference() bool {
	return c.RefTable != ""
}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
