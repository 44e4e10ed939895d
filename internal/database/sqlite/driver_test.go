package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/koustreak/rgddl/internal/database"
	"github.com/koustreak/rgddl/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDDL = `
CREATE TABLE dept (
	id     INTEGER PRIMARY KEY,
	name   VARCHAR(80) NOT NULL,
	opened DATE
);
CREATE TABLE emp (
	dept_id INTEGER NOT NULL REFERENCES dept(id),
	badge   INTEGER NOT NULL,
	hired   TIMESTAMP,
	salary  DECIMAL(10,2) DEFAULT 0,
	PRIMARY KEY (badge, dept_id)
);
CREATE TABLE assignment (
	a_dept  INTEGER,
	a_badge INTEGER,
	owner   INTEGER UNIQUE REFERENCES dept,
	FOREIGN KEY (a_dept, a_badge) REFERENCES emp(dept_id, badge)
);
CREATE INDEX assignment_owner_idx ON assignment(a_dept);
`

func openFixture(t *testing.T) *Driver {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.Exec(fixtureDDL)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	cfg := database.DefaultConfig(path)
	cfg.Driver = database.DriverSQLite
	d, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestListTablesAndExists(t *testing.T) {
	d := openFixture(t)
	ctx := context.Background()

	tables, err := d.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"assignment", "dept", "emp"}, tables)

	ok, err := d.TableExists(ctx, "emp")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.TableExists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInspectSchema(t *testing.T) {
	d := openFixture(t)

	s, err := d.InspectSchema(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Tables, 3)

	dept := s.Table("dept")
	require.NotNil(t, dept)
	assert.Equal(t, []string{"id"}, dept.PrimaryKey)
	require.Len(t, dept.Columns, 3)
	assert.Equal(t, "integer", dept.Columns[0].DataType)
	assert.True(t, dept.Columns[0].IsPrimary)
	assert.False(t, dept.Columns[0].Nullable)
	assert.Equal(t, "varchar", dept.Columns[1].DataType)
	require.NotNil(t, dept.Columns[1].MaxLength)
	assert.Equal(t, 80, *dept.Columns[1].MaxLength)
	assert.False(t, dept.Columns[1].Nullable)
	assert.Equal(t, "date", dept.Columns[2].DataType)
	assert.True(t, dept.Columns[2].Nullable)
	assert.Empty(t, dept.ForeignKeys)

	emp := s.Table("emp")
	require.NotNil(t, emp)
	assert.Equal(t, []string{"badge", "dept_id"}, emp.PrimaryKey, "key order, not column order")
	assert.Equal(t, "decimal", emp.Columns[3].DataType)
	assert.Nil(t, emp.Columns[3].MaxLength)
	require.NotNil(t, emp.Columns[3].Default)
	assert.Equal(t, "0", *emp.Columns[3].Default)
	require.Len(t, emp.ForeignKeys, 1)
	assert.Equal(t, "dept_id", emp.ForeignKeys[0].Column)
	assert.Equal(t, "dept", emp.ForeignKeys[0].RefTable)
	assert.Equal(t, "id", emp.ForeignKeys[0].RefColumn)

	asg := s.Table("assignment")
	require.NotNil(t, asg)
	assert.Empty(t, asg.PrimaryKey)
	assert.True(t, asg.Columns[2].IsUnique)
	assert.False(t, asg.Columns[0].IsUnique, "a plain index is not a constraint")

	byColumn := make(map[string]*database.ForeignKey)
	for _, fk := range asg.ForeignKeys {
		byColumn[fk.Column] = fk
	}
	require.Len(t, byColumn, 3)
	assert.Equal(t, "badge", byColumn["a_badge"].RefColumn)
	assert.Equal(t, byColumn["a_dept"].Name, byColumn["a_badge"].Name, "composite FK shares a name")
	assert.NotEqual(t, byColumn["a_dept"].Name, byColumn["owner"].Name)
	assert.Equal(t, "dept", byColumn["owner"].RefTable)
	assert.Equal(t, "id", byColumn["owner"].RefColumn, "implicit reference resolves to the parent key")
}

func TestInspectSchema_UnknownTable(t *testing.T) {
	d := openFixture(t)

	_, err := d.InspectSchema(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Contains(t, err.Error(), `inspecting table "ghost"`)
}

func TestNew_EmptyDSN(t *testing.T) {
	_, err := New(context.Background(), &database.Config{Driver: database.DriverSQLite})
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestNew_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.db")
	cfg := database.DefaultConfig(path)
	cfg.Driver = database.DriverSQLite

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Contains(t, err.Error(), "typo.db does not exist")

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "a missing database must not be created")
}

func TestNew_Directory(t *testing.T) {
	cfg := database.DefaultConfig(t.TempDir())
	cfg.Driver = database.DriverSQLite

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, errs.ErrKindInvalidInput, errs.KindOf(err))
}

func TestDatabasePath(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"/data/shop.db", "/data/shop.db"},
		{"file:/data/shop.db?mode=ro", "/data/shop.db"},
		{"shop.db?_pragma=busy_timeout(5000)", "shop.db"},
		{":memory:", ""},
		{"file::memory:?cache=shared", ""},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, databasePath(tt.dsn))
		})
	}
}

func TestSplitDeclaredType(t *testing.T) {
	tests := []struct {
		decl     string
		wantBase string
		wantLen  *int
	}{
		{"INTEGER", "integer", nil},
		{"VARCHAR(80)", "varchar", intPtr(80)},
		{" nchar( 12 ) ", "nchar", intPtr(12)},
		{"DECIMAL(10,2)", "decimal", nil},
		{"TEXT", "text", nil},
		{"varchar(x)", "varchar", nil},
		{"", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			base, n := splitDeclaredType(tt.decl)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantLen, n)
		})
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"no rows", sql.ErrNoRows, errs.ErrKindNotFound},
		{"other", errors.New("disk I/O error"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
	assert.Nil(t, mapError(nil, "op"))
}

func TestClassifySQLiteCode(t *testing.T) {
	assert.Equal(t, errs.ErrKindPermissionDenied, classifySQLiteCode(23))
	assert.Equal(t, errs.ErrKindTimeout, classifySQLiteCode(5))
	assert.Equal(t, errs.ErrKindTimeout, classifySQLiteCode(5|(2<<8)))
	assert.Equal(t, errs.ErrKindConnectionFailed, classifySQLiteCode(14))
	assert.Equal(t, errs.ErrKindQueryFailed, classifySQLiteCode(1))
}

func intPtr(n int) *int { return &n }
