package database

// Schema is an introspected database namespace.
type Schema struct {
	Name   string
	Tables []*TableInfo // ordered as requested / by name
}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *TableInfo {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TableInfo describes a table, its columns and keys.
type TableInfo struct {
	Name        string
	Columns     []*ColumnInfo // ordinal order
	PrimaryKey  []string      // key order
	ForeignKeys []*ForeignKey // grouped by constraint, key order within
}

// ColumnInfo describes a single column.
type ColumnInfo struct {
	Name      string
	DataType  string // engine type name: integer, varchar, timestamp, ...
	Nullable  bool
	Default   *string
	MaxLength *int // nil for non-character types
	IsPrimary bool
	IsUnique  bool
}

// ForeignKey is one column of a (possibly multi-column) FK constraint.
type ForeignKey struct {
	Name      string // constraint name; shared by every column of a composite FK
	Column    string
	RefTable  string
	RefColumn string
}
