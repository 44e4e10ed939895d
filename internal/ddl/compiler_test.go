package ddl

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deptEmpJSON = `{"tables": [
  {"table_name": "dept", "columns": [
    {"column_name": "id", "type": "INT", "constraint": "PK"},
    {"column_name": "name", "type": "STRING"},
    {"column_name": "opened", "type": "DATE"}
  ]},
  {"table_name": "emp", "columns": [
    {"column_name": "id", "type": "INT", "constraint": "PK"},
    {"column_name": "dept_id", "ref_tab": "dept", "ref_col": "id", "constraint": "FK"},
    {"column_name": "bio", "type": "STRING", "length": 300},
    {"column_name": "hired", "type": "TIMESTAMP"},
    {"column_name": "note"}
  ]}
]}`

var deptEmpScript = strings.Join([]string{
	"create table dept_et(",
	"\tid number,",
	"\tname varchar2(10),",
	"\topened date)",
	"organization external(",
	"\tTYPE ORACLE_LOADER",
	"\tdefault directory <ora_dir>",
	"\taccess parameters(",
	"\t\trecords delimited by newline",
	"\t\tnobadfile nologfile",
	"\t\tfields terminated by '|'",
	"\t\tmissing field values are null",
	"\t\t(id,",
	"\t\tname,",
	"\t\topened CHAR(11) DATE_FORMAT DATE MASK \"DD-MON-YYYY\"))",
	"\tlocation('dept.csv'))",
	"reject limit unlimited;",
	"create table dept as select * from dept_et;",
	"",
	"create table emp_et(",
	"\tid number,",
	"\tdept_id number,",
	"\tbio varchar2(300),",
	"\thired timestamp,",
	"\tnote number)",
	"organization external(",
	"\tTYPE ORACLE_LOADER",
	"\tdefault directory <ora_dir>",
	"\taccess parameters(",
	"\t\trecords delimited by newline",
	"\t\tnobadfile nologfile",
	"\t\tfields terminated by '|'",
	"\t\tmissing field values are null",
	"\t\t(id,",
	"\t\tdept_id,",
	"\t\tbio CHAR(300),",
	"\t\thired CHAR(20) DATE_FORMAT TIMESTAMP MASK \"DD-MON-YYYY HH24:MI:SS\",",
	"\t\tnote))",
	"\tlocation('emp.csv'))",
	"reject limit unlimited;",
	"create table emp as select * from emp_et;",
	"",
	"alter table dept add constraint pk_dept primary key(id);",
	"alter table emp add constraint pk_emp primary key(id);",
	"alter table emp add constraint fk_emp_dept foreign key(dept_id) references dept(id);",
	"",
}, "\n")

func TestCompile_Golden(t *testing.T) {
	script, err := Compile(mustDecode(t, deptEmpJSON), Options{Logger: logger.Nop()})
	require.NoError(t, err)
	assert.Equal(t, deptEmpScript, script.String())
}

func TestCompile_Deterministic(t *testing.T) {
	opts := Options{Logger: logger.Nop()}
	first, err := Compile(mustDecode(t, deptEmpJSON), opts)
	require.NoError(t, err)
	second, err := Compile(mustDecode(t, deptEmpJSON), opts)
	require.NoError(t, err)

	assert.Equal(t, first.Bytes(), second.Bytes())
	assert.Equal(t, first.Digest(), second.Digest())
	assert.Len(t, first.Digest(), 16)

	other, err := Compile(mustDecode(t, deptEmpJSON), Options{Directory: "OTHER", Logger: logger.Nop()})
	require.NoError(t, err)
	assert.NotEqual(t, first.Digest(), other.Digest())
}

func TestCompile_StatementPairing(t *testing.T) {
	script, err := Compile(mustDecode(t, chainJSON), Options{Logger: logger.Nop()})
	require.NoError(t, err)

	require.Len(t, script.Tables, 3)
	text := script.String()
	for _, name := range []string{"cal", "sale", "refund"} {
		assert.Equal(t, 1, strings.Count(text, "create table "+name+"_et("), name)
		assert.Equal(t, 1, strings.Count(text, "create table "+name+" as select * from "+name+"_et;"), name)
		assert.Equal(t, 1, strings.Count(text, "location('"+name+".csv')"), name)
	}
	assert.Equal(t, 6, strings.Count(text, "create table "))

	stmts := script.Statements()
	assert.Len(t, stmts, 2*len(script.Tables)+len(script.Constraints))
	for i, td := range script.Tables {
		assert.Equal(t, td.Staging, stmts[2*i])
		assert.Equal(t, td.Create, stmts[2*i+1])
	}
}

func TestCompile_TablesBeforeConstraints(t *testing.T) {
	script, err := Compile(mustDecode(t, chainJSON), Options{Logger: logger.Nop()})
	require.NoError(t, err)

	text := script.String()
	lastCreate := strings.LastIndex(text, "create table ")
	firstAlter := strings.Index(text, "alter table ")
	require.NotEqual(t, -1, firstAlter)
	assert.Less(t, lastCreate, firstAlter)
	assert.Equal(t, []string{
		"alter table cal add constraint pk_cal primary key(day)",
		"alter table sale add constraint fk_sale_cal foreign key(day) references cal(day)",
		"alter table refund add constraint fk_refund_sale foreign key(sale_day) references sale(day)",
	}, script.Constraints)
}

func TestCompile_CustomDirectory(t *testing.T) {
	script, err := Compile(mustDecode(t, deptEmpJSON), Options{Directory: "LOAD_DIR", Logger: logger.Nop()})
	require.NoError(t, err)

	text := script.String()
	assert.Equal(t, 2, strings.Count(text, "\tdefault directory LOAD_DIR\n"))
	assert.NotContains(t, text, DefaultDirectory)
}

func TestCompile_RejectsDirectoryInjection(t *testing.T) {
	for _, dir := range []string{
		"X\n\taccess parameters(records delimited by newline)",
		"DIR)) ; drop table emp",
		"1DIR",
		"data dir",
	} {
		t.Run(dir, func(t *testing.T) {
			script, err := Compile(mustDecode(t, deptEmpJSON), Options{Directory: dir, Logger: logger.Nop()})
			require.Error(t, err)
			assert.Nil(t, script)
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}

func TestValidDirectory(t *testing.T) {
	assert.True(t, ValidDirectory(DefaultDirectory))
	assert.True(t, ValidDirectory("LOAD_DIR"))
	assert.True(t, ValidDirectory("stage$2#a"))
	assert.True(t, ValidDirectory(strings.Repeat("D", 128)))
	assert.False(t, ValidDirectory(strings.Repeat("D", 129)))
	assert.False(t, ValidDirectory(""))
	assert.False(t, ValidDirectory("_DIR"))
	assert.False(t, ValidDirectory(`"DIR"`))
}

func TestCompile_EmptySchema(t *testing.T) {
	script, err := Compile(mustDecode(t, `{"tables": []}`), Options{Logger: logger.Nop()})
	require.NoError(t, err)
	assert.Empty(t, script.String())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantKind errs.ErrKind
	}{
		{
			name:     "table without columns",
			doc:      `{"tables": [{"table_name": "t", "columns": []}]}`,
			wantKind: errs.ErrKindInvalidInput,
		},
		{
			name:     "dangling reference",
			doc:      `{"tables": [{"table_name": "t", "columns": [{"column_name": "x", "ref_tab": "u", "ref_col": "y"}]}]}`,
			wantKind: errs.ErrKindUnresolvedReference,
		},
		{
			name: "cyclic reference",
			doc: `{"tables": [
				{"table_name": "a", "columns": [{"column_name": "x", "ref_tab": "b", "ref_col": "y"}]},
				{"table_name": "b", "columns": [{"column_name": "y", "ref_tab": "a", "ref_col": "x"}]}]}`,
			wantKind: errs.ErrKindCyclicReference,
		},
		{
			name:     "fk without reference",
			doc:      `{"tables": [{"table_name": "t", "columns": [{"column_name": "x", "type": "INT", "constraint": "FK"}]}]}`,
			wantKind: errs.ErrKindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := Compile(mustDecode(t, tt.doc), Options{Logger: logger.Nop()})
			require.Error(t, err)
			assert.Nil(t, script)
			assert.Equal(t, tt.wantKind, errs.KindOf(err))
		})
	}
}

func TestCompile_DebugLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Output: &buf})

	_, err := Compile(mustDecode(t, deptEmpJSON), Options{Logger: log})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "compiled table dept (3 columns)")
	assert.Contains(t, out, "compiled table emp (5 columns)")
	assert.Contains(t, out, "compiled 2 constraints for emp")
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestScript_WriteToPropagatesErrors(t *testing.T) {
	script, err := Compile(mustDecode(t, deptEmpJSON), Options{Logger: logger.Nop()})
	require.NoError(t, err)

	n, err := script.WriteTo(&failingWriter{after: 3})
	require.Error(t, err)
	assert.Equal(t, "disk full", err.Error())
	assert.Equal(t, int64(len(script.Tables[0].Staging)+2+len(script.Tables[0].Create)), n)
}
