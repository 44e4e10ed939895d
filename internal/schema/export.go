package schema

import (
	"strings"

	"github.com/koustreak/rgddl/internal/database"
)

// ExportOptions tunes FromDatabase.
type ExportOptions struct {
	// RowCount is written as every table's row_count when non-zero.
	RowCount uint64
}

// FromDatabase turns an introspected database schema into a template.
//
// Key roles follow the template vocabulary: a single-column primary key is
// PK, each column of a multi-column one is COMP_PK; a single-column foreign
// key is FK (FK_UNIQUE when the column is unique), each column of a
// multi-column one is COMP_FK. Every column keeps its own declared type;
// foreign key columns also carry ref_tab/ref_col.
//
// A foreign key whose parent table is not part of db (a -tables subset, or
// a parent in another schema) is dropped, so the template never references
// a table it does not contain.
func FromDatabase(db *database.Schema, opts ExportOptions) *Schema {
	s := &Schema{Tables: make([]Table, 0, len(db.Tables))}

	exported := make(map[string]bool, len(db.Tables))
	for _, ti := range db.Tables {
		exported[ti.Name] = true
	}

	for _, ti := range db.Tables {
		t := Table{Name: ti.Name, Columns: make([]Column, 0, len(ti.Columns))}
		if opts.RowCount > 0 {
			rc := opts.RowCount
			t.RowCount = &rc
		}

		pkSet := make(map[string]bool, len(ti.PrimaryKey))
		for _, name := range ti.PrimaryKey {
			pkSet[name] = true
		}
		compositePK := len(ti.PrimaryKey) > 1

		fkByColumn := make(map[string]*database.ForeignKey, len(ti.ForeignKeys))
		fkWidth := make(map[string]int)
		for _, fk := range ti.ForeignKeys {
			if !exported[fk.RefTable] {
				continue
			}
			if _, seen := fkByColumn[fk.Column]; !seen {
				fkByColumn[fk.Column] = fk
			}
			fkWidth[fk.Name]++
		}

		for _, ci := range ti.Columns {
			c := Column{Name: ci.Name}
			c.Type, c.Length = mapDataType(ci.DataType, ci.MaxLength)

			fk := fkByColumn[ci.Name]
			if fk != nil {
				c.RefTable = fk.RefTable
				c.RefColumn = fk.RefColumn
			}

			switch {
			case pkSet[ci.Name] && compositePK:
				c.Constraint = ConstraintCompPK
			case pkSet[ci.Name]:
				c.Constraint = ConstraintPK
			case fk != nil && fkWidth[fk.Name] > 1:
				c.Constraint = ConstraintCompFK
			case fk != nil && ci.IsUnique:
				c.Constraint = ConstraintFKUnique
			case fk != nil:
				c.Constraint = ConstraintFK
			}

			t.Columns = append(t.Columns, c)
		}
		s.Tables = append(s.Tables, t)
	}
	return s
}

var integerTypes = map[string]bool{
	"integer": true, "int": true, "bigint": true, "smallint": true,
	"tinyint": true, "mediumint": true, "int2": true, "int4": true, "int8": true,
	"serial": true, "bigserial": true, "boolean": true, "bool": true, "bit": true,
}

// mapDataType folds an engine type name into a template type. Types with no
// template counterpart become STRING.
func mapDataType(dataType string, maxLength *int) (Type, *int) {
	dt := strings.ToLower(strings.TrimSpace(dataType))
	switch {
	case dt == "date":
		return TypeDate, nil
	case strings.HasPrefix(dt, "timestamp"), dt == "datetime":
		return TypeTimestamp, nil
	case integerTypes[dt]:
		return TypeInt, nil
	case dt == "numeric", dt == "decimal", dt == "real", dt == "float", dt == "double",
		strings.HasPrefix(dt, "double"), dt == "money":
		return TypeReal, nil
	case dt == "uuid":
		n := 36
		return TypeString, &n
	}
	if maxLength != nil && *maxLength > 0 && *maxLength <= MaxStringLength {
		n := *maxLength
		return TypeString, &n
	}
	return TypeString, nil
}
