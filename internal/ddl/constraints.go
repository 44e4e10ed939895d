package ddl

import (
	"fmt"
	"slices"
	"strings"

	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/schema"
)

// constraintsFor returns the alter table statements of t, without
// terminators, in emission order:
//
//  1. PK and FK/FK_UNIQUE statements, in column order
//  2. comp_pk_<t> over the COMP_PK columns without a reference
//  3. one fk_<t>_<ref> per referencing COMP_PK column, then cpk_<t> over them
//  4. one cfk_<t>_<ref> per referenced table of the COMP_FK columns
func constraintsFor(s *schema.Schema, t *schema.Table) ([]string, error) {
	var (
		stmts       []string
		compPK      []*schema.Column
		compPKByRef []*schema.Column
		compFK      []*schema.Column
	)

	for i := range t.Columns {
		c := &t.Columns[i]
		if c.Constraint.NeedsReference() || (c.Constraint == schema.ConstraintCompPK && c.HasReference()) {
			if err := checkReference(s, t, c); err != nil {
				return nil, err
			}
		}

		switch c.Constraint {
		case schema.ConstraintPK:
			stmts = append(stmts, primaryKey(t.Name, "pk_"+t.Name, []string{c.Name}))
		case schema.ConstraintFK, schema.ConstraintFKUnique:
			stmts = append(stmts, singleForeignKey(t.Name, c))
		case schema.ConstraintCompPK:
			if c.HasReference() {
				compPKByRef = append(compPKByRef, c)
			} else {
				compPK = append(compPK, c)
			}
		case schema.ConstraintCompFK:
			compFK = append(compFK, c)
		}
	}

	if len(compPK) > 0 {
		stmts = append(stmts, primaryKey(t.Name, "comp_pk_"+t.Name, names(compPK)))
	}

	if len(compPKByRef) > 0 {
		for _, c := range compPKByRef {
			stmts = append(stmts, singleForeignKey(t.Name, c))
		}
		stmts = append(stmts, primaryKey(t.Name, "cpk_"+t.Name, names(compPKByRef)))
	}

	if len(compFK) > 0 {
		slices.SortStableFunc(compFK, func(a, b *schema.Column) int {
			return strings.Compare(a.RefTable, b.RefTable)
		})
		for start := 0; start < len(compFK); {
			end := start + 1
			for end < len(compFK) && compFK[end].RefTable == compFK[start].RefTable {
				end++
			}
			stmts = append(stmts, compositeForeignKey(t.Name, compFK[start:end]))
			start = end
		}
	}

	return stmts, nil
}

func checkReference(s *schema.Schema, t *schema.Table, c *schema.Column) error {
	if !c.HasReference() || c.RefColumn == "" {
		return errs.Newf(errs.ErrKindInvalidInput,
			"%s.%s: constraint %s needs ref_tab and ref_col", t.Name, c.Name, c.Constraint)
	}
	rt := s.Table(c.RefTable)
	if rt == nil {
		return errs.Newf(errs.ErrKindInvalidInput,
			"%s.%s: constraint %s references unknown table %q", t.Name, c.Name, c.Constraint, c.RefTable)
	}
	if rt.Column(c.RefColumn) == nil {
		return errs.Newf(errs.ErrKindInvalidInput,
			"%s.%s: constraint %s references unknown column %s.%s", t.Name, c.Name, c.Constraint, c.RefTable, c.RefColumn)
	}
	return nil
}

func primaryKey(table, name string, columns []string) string {
	return fmt.Sprintf("alter table %s add constraint %s primary key(%s)",
		table, name, strings.Join(columns, ","))
}

func singleForeignKey(table string, c *schema.Column) string {
	return fmt.Sprintf("alter table %s add constraint fk_%s_%s foreign key(%s) references %s(%s)",
		table, table, c.RefTable, c.Name, c.RefTable, c.RefColumn)
}

// compositeForeignKey renders one FK over group, which shares a ref_tab.
func compositeForeignKey(table string, group []*schema.Column) string {
	refCols := make([]string, len(group))
	for i, c := range group {
		refCols[i] = c.RefColumn
	}
	ref := group[0].RefTable
	return fmt.Sprintf("alter table %s add constraint cfk_%s_%s foreign key(%s) references %s(%s)",
		table, table, ref, strings.Join(names(group), ","), ref, strings.Join(refCols, ","))
}

func names(cols []*schema.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}
