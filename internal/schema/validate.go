package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/koustreak/rgddl/internal/errs"
)

// MaxStringLength is the widest STRING column the data generator produces.
const MaxStringLength = 4000

// Validate applies the data generator's template rules on top of the
// structural checks done by Decode. DDL generation does not need these; they
// catch templates the generator would later reject.
//
// Every violation is reported, joined into one InvalidInput error.
func Validate(s *Schema) error {
	var problems []error
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	tableNames := make(map[string]bool, len(s.Tables))
	for _, t := range s.Tables {
		lower := strings.ToLower(t.Name)
		if tableNames[lower] {
			report("table %q: name differs from another table only by case", t.Name)
		}
		tableNames[lower] = true

		if t.RowCount == nil {
			report("table %q: row_count is required", t.Name)
		}

		columnNames := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			where := t.Name + "." + c.Name

			lower := strings.ToLower(c.Name)
			if columnNames[lower] {
				report("%s: name differs from another column only by case", where)
			}
			columnNames[lower] = true

			if c.Cardinality != nil && *c.Cardinality <= 0 {
				report("%s: cardinality must be positive", where)
			}
			if !c.Skewness.Valid() {
				report("%s: unknown skewness %q", where, c.Skewness)
			}

			switch c.Type {
			case TypeString:
				if c.Length != nil && (*c.Length <= 0 || *c.Length > MaxStringLength) {
					report("%s: STRING length must be within 1..%d", where, MaxStringLength)
				}
			case TypeReal:
				if c.Constraint != ConstraintNone || c.Cardinality != nil {
					report("%s: REAL columns take neither a constraint nor a cardinality", where)
				}
				lo, hi := 0.0, 1.0
				if c.RealMin != nil {
					lo = *c.RealMin
				}
				if c.RealMax != nil {
					hi = *c.RealMax
				}
				if lo >= hi {
					report("%s: real_min (%g) must be below real_max (%g)", where, lo, hi)
				}
				continue
			}

			if c.Constraint == ConstraintNone && c.Cardinality == nil {
				report("%s: needs a constraint or a cardinality", where)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errs.Wrap(errs.ErrKindInvalidInput, "template failed strict validation", errors.Join(problems...))
}
