package ddl

import (
	"strings"
	"testing"

	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, doc string) *schema.Schema {
	t.Helper()
	s, err := schema.Decode(strings.NewReader(doc), schema.FormatJSON)
	require.NoError(t, err)
	return s
}

func intPtr(n int) *int { return &n }

func TestFieldSpecAndSQLType(t *testing.T) {
	tests := []struct {
		name     string
		typ      schema.Type
		length   *int
		wantSpec string
		wantSQL  string
	}{
		{"int", schema.TypeInt, nil, "", "number"},
		{"real", schema.TypeReal, nil, "", "number"},
		{"date", schema.TypeDate, nil, `CHAR(11) DATE_FORMAT DATE MASK "DD-MON-YYYY"`, "date"},
		{"timestamp", schema.TypeTimestamp, nil, `CHAR(20) DATE_FORMAT TIMESTAMP MASK "DD-MON-YYYY HH24:MI:SS"`, "timestamp"},
		{"string without length", schema.TypeString, nil, "", "varchar2(10)"},
		{"string narrow", schema.TypeString, intPtr(40), "", "varchar2(40)"},
		{"string at loader limit", schema.TypeString, intPtr(255), "", "varchar2(255)"},
		{"string wide", schema.TypeString, intPtr(256), "CHAR(256)", "varchar2(256)"},
		{"string very wide", schema.TypeString, intPtr(4000), "CHAR(4000)", "varchar2(4000)"},
		{"untyped", schema.TypeNone, nil, "", "number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantSpec, FieldSpecFor(tt.typ, tt.length))
			assert.Equal(t, tt.wantSQL, SQLTypeFor(tt.typ, tt.length))
		})
	}
}

const chainJSON = `{"tables": [
  {"table_name": "cal", "columns": [
    {"column_name": "day", "type": "DATE", "constraint": "PK"},
    {"column_name": "label", "type": "STRING", "length": 500}
  ]},
  {"table_name": "sale", "columns": [
    {"column_name": "day", "ref_tab": "cal", "ref_col": "day", "constraint": "FK"},
    {"column_name": "label", "ref_tab": "cal", "ref_col": "label"}
  ]},
  {"table_name": "refund", "columns": [
    {"column_name": "sale_day", "ref_tab": "sale", "ref_col": "day", "constraint": "FK"},
    {"column_name": "loose"}
  ]}
]}`

func TestResolver_Indirection(t *testing.T) {
	r := NewResolver(mustDecode(t, chainJSON))

	tests := []struct {
		name          string
		table, column string
		want          Resolution
	}{
		{"declared date", "cal", "day", Resolution{DateFieldSpec, "date"}},
		{"one level to date", "sale", "day", Resolution{DateFieldSpec, "date"}},
		{"one level to wide string", "sale", "label", Resolution{"CHAR(500)", "varchar2(500)"}},
		{"two levels to date", "refund", "sale_day", Resolution{DateFieldSpec, "date"}},
		{"no type no reference", "refund", "loose", Resolution{"", "number"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.table, tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_DeclaredTypeWins(t *testing.T) {
	s := mustDecode(t, `{"tables": [
	  {"table_name": "a", "columns": [{"column_name": "d", "type": "DATE"}]},
	  {"table_name": "b", "columns": [{"column_name": "d", "type": "INT", "ref_tab": "a", "ref_col": "d"}]}
	]}`)

	got, err := NewResolver(s).Resolve("b", "d")
	require.NoError(t, err)
	assert.Equal(t, Resolution{"", "number"}, got)
}

func TestResolver_ChainEndsUntyped(t *testing.T) {
	s := mustDecode(t, `{"tables": [
	  {"table_name": "a", "columns": [{"column_name": "x"}]},
	  {"table_name": "b", "columns": [{"column_name": "y", "ref_tab": "a", "ref_col": "x"}]}
	]}`)

	got, err := NewResolver(s).Resolve("b", "y")
	require.NoError(t, err)
	assert.Equal(t, Resolution{"", "number"}, got)
}

func TestResolver_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		table    string
		column   string
		wantKind errs.ErrKind
		wantMsg  string
	}{
		{
			name: "missing table",
			doc: `{"tables": [{"table_name": "a", "columns": [
				{"column_name": "x", "ref_tab": "ghost", "ref_col": "id"}]}]}`,
			table: "a", column: "x",
			wantKind: errs.ErrKindUnresolvedReference,
			wantMsg:  "a.x references ghost.id: no such table",
		},
		{
			name: "missing column",
			doc: `{"tables": [
				{"table_name": "a", "columns": [{"column_name": "id", "type": "INT"}]},
				{"table_name": "b", "columns": [{"column_name": "x", "ref_tab": "a", "ref_col": "nope"}]}]}`,
			table: "b", column: "x",
			wantKind: errs.ErrKindUnresolvedReference,
			wantMsg:  "b.x references a.nope: no such column",
		},
		{
			name: "self reference",
			doc: `{"tables": [{"table_name": "a", "columns": [
				{"column_name": "x", "ref_tab": "a", "ref_col": "x"}]}]}`,
			table: "a", column: "x",
			wantKind: errs.ErrKindCyclicReference,
		},
		{
			name: "three-step cycle",
			doc: `{"tables": [
				{"table_name": "a", "columns": [{"column_name": "x", "ref_tab": "b", "ref_col": "y"}]},
				{"table_name": "b", "columns": [{"column_name": "y", "ref_tab": "c", "ref_col": "z"}]},
				{"table_name": "c", "columns": [{"column_name": "z", "ref_tab": "a", "ref_col": "x"}]}]}`,
			table: "a", column: "x",
			wantKind: errs.ErrKindCyclicReference,
			wantMsg:  "loops back to a.x",
		},
		{
			name:     "unknown start table",
			doc:      `{"tables": []}`,
			table:    "a",
			column:   "x",
			wantKind: errs.ErrKindUnresolvedReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(mustDecode(t, tt.doc)).Resolve(tt.table, tt.column)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errs.KindOf(err))
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestResolver_CycleBehindTypedColumnIsIgnored(t *testing.T) {
	// b.y loops with c.z, but a.x stops at its own declared type.
	s := mustDecode(t, `{"tables": [
	  {"table_name": "a", "columns": [{"column_name": "x", "type": "TIMESTAMP", "ref_tab": "b", "ref_col": "y"}]},
	  {"table_name": "b", "columns": [{"column_name": "y", "ref_tab": "c", "ref_col": "z"}]},
	  {"table_name": "c", "columns": [{"column_name": "z", "ref_tab": "b", "ref_col": "y"}]}
	]}`)

	got, err := NewResolver(s).Resolve("a", "x")
	require.NoError(t, err)
	assert.Equal(t, "timestamp", got.SQLType)
}

func TestResolver_ExternalSpecAndFinalType(t *testing.T) {
	r := NewResolver(mustDecode(t, chainJSON))

	spec, err := r.ExternalSpec("sale", "label")
	require.NoError(t, err)
	assert.Equal(t, "CHAR(500)", spec)

	typ, err := r.FinalType("refund", "sale_day")
	require.NoError(t, err)
	assert.Equal(t, "date", typ)

	_, err = r.FinalType("refund", "ghost")
	assert.True(t, errs.IsUnresolvedReference(err))
}
