package ddl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/schema"
)

// DefaultDirectory is the placeholder emitted for the Oracle directory
// object; operators substitute it when deploying the script.
const DefaultDirectory = "<ora_dir>"

// directoryName matches an unquoted Oracle identifier.
var directoryName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]{0,127}$`)

// ValidDirectory reports whether name can be emitted as the directory
// object of a staging table: an unquoted Oracle identifier or the
// DefaultDirectory placeholder.
func ValidDirectory(name string) bool {
	return name == DefaultDirectory || directoryName.MatchString(name)
}

// StagingSuffix names the external table that reads a table's flat file.
const StagingSuffix = "_et"

// TableDDL is the statement pair for one table, without terminators.
type TableDDL struct {
	Table   string
	Staging string // create table <t>_et ... reject limit unlimited
	Create  string // create table <t> as select * from <t>_et
}

// buildTable renders the staging and final statements of t. Column order
// is kept in the column list and in the field list.
func buildTable(t *schema.Table, r *Resolver, directory string) (TableDDL, error) {
	if len(t.Columns) == 0 {
		return TableDDL{}, errs.Newf(errs.ErrKindInvalidInput, "table %q has no columns", t.Name)
	}

	columns := make([]string, len(t.Columns))
	fields := make([]string, len(t.Columns))
	for i := range t.Columns {
		c := &t.Columns[i]
		res, err := r.ResolveColumn(t.Name, c)
		if err != nil {
			return TableDDL{}, err
		}

		columns[i] = c.Name + " " + res.SQLType
		fields[i] = c.Name
		if res.FieldSpec != "" {
			fields[i] += " " + res.FieldSpec
		}
	}

	staging := t.Name + StagingSuffix

	var sb strings.Builder
	fmt.Fprintf(&sb, "create table %s(\n\t%s)\n", staging, strings.Join(columns, ",\n\t"))
	sb.WriteString("organization external(\n")
	sb.WriteString("\tTYPE ORACLE_LOADER\n")
	fmt.Fprintf(&sb, "\tdefault directory %s\n", directory)
	sb.WriteString("\taccess parameters(\n")
	sb.WriteString("\t\trecords delimited by newline\n")
	sb.WriteString("\t\tnobadfile nologfile\n")
	sb.WriteString("\t\tfields terminated by '|'\n")
	sb.WriteString("\t\tmissing field values are null\n")
	fmt.Fprintf(&sb, "\t\t(%s))\n", strings.Join(fields, ",\n\t\t"))
	fmt.Fprintf(&sb, "\tlocation('%s.csv'))\n", t.Name)
	sb.WriteString("reject limit unlimited")

	return TableDDL{
		Table:   t.Name,
		Staging: sb.String(),
		Create:  fmt.Sprintf("create table %s as select * from %s", t.Name, staging),
	}, nil
}
