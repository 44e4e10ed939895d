package schema

import "strings"

// Type is a primitive column type of the data-generation template.
type Type string

const (
	TypeNone      Type = ""
	TypeInt       Type = "INT"
	TypeReal      Type = "REAL"
	TypeString    Type = "STRING"
	TypeDate      Type = "DATE"
	TypeTimestamp Type = "TIMESTAMP"
)

// Valid reports whether t is one of the known types (or unset).
func (t Type) Valid() bool {
	switch t {
	case TypeNone, TypeInt, TypeReal, TypeString, TypeDate, TypeTimestamp:
		return true
	}
	return false
}

// Constraint is the key role a column plays in its table.
type Constraint string

const (
	ConstraintNone     Constraint = ""
	ConstraintPK       Constraint = "PK"
	ConstraintFK       Constraint = "FK"
	ConstraintFKUnique Constraint = "FK_UNIQUE"
	ConstraintCompPK   Constraint = "COMP_PK"
	ConstraintCompFK   Constraint = "COMP_FK"
)

// Valid reports whether c is one of the known constraint tags (or unset).
func (c Constraint) Valid() bool {
	switch c {
	case ConstraintNone, ConstraintPK, ConstraintFK, ConstraintFKUnique,
		ConstraintCompPK, ConstraintCompFK:
		return true
	}
	return false
}

// NeedsReference reports whether the constraint only makes sense with
// ref_tab/ref_col set.
func (c Constraint) NeedsReference() bool {
	return c == ConstraintFK || c == ConstraintFKUnique || c == ConstraintCompFK
}

// Skewness is the data generator's distribution skew for a column.
type Skewness string

var validSkewness = map[Skewness]bool{
	"NO": true, "LOW": true, "MEDIUM": true, "HIGH": true, "EXTREME": true,
}

// Valid reports whether s is one of the generator's skew levels (or unset).
func (s Skewness) Valid() bool {
	return s == "" || validSkewness[s]
}

func normalizeTag(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
