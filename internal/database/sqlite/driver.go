// Package sqlite reads table structure from a SQLite database file through
// its pragma table functions, so a local database can be turned into a
// template without a server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/koustreak/rgddl/internal/database"
	"github.com/koustreak/rgddl/internal/errs"
	msqlite "modernc.org/sqlite"
)

// Driver is a SQLite implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

var _ database.DB = (*Driver)(nil)

// New opens the database file named by cfg.DSN. Schema is ignored: a
// SQLite file has a single namespace. The file must already exist; SQLite
// would otherwise create an empty database and report no tables.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	if cfg.DSN == "" {
		return nil, errs.New(errs.ErrKindConnectionFailed, "invalid DSN: empty path")
	}
	if err := checkDatabaseFile(cfg.DSN); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	// PingContext alone does not touch the file; reading the catalog does.
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating tables")
	}
	return tables, nil
}

func (d *Driver) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?`

	var exists int
	err := d.db.QueryRowContext(ctx, q, table).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, mapError(err, "failed to check table existence")
	}
	return true, nil
}

func (d *Driver) InspectSchema(ctx context.Context, tables ...string) (*database.Schema, error) {
	if len(tables) == 0 {
		var err error
		if tables, err = d.ListTables(ctx); err != nil {
			return nil, err
		}
	}

	schema := &database.Schema{
		Name:   "main",
		Tables: make([]*database.TableInfo, 0, len(tables)),
	}

	for _, tableName := range tables {
		info, err := d.inspectTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("inspecting table %q: %w", tableName, err)
		}
		schema.Tables = append(schema.Tables, info)
	}

	return schema, nil
}

func (d *Driver) inspectTable(ctx context.Context, table string) (*database.TableInfo, error) {
	columns, pks, err := d.fetchColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %s not found or has no columns", table)
	}

	unique, err := d.fetchUniqueColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, c := range columns {
		c.IsUnique = unique[c.Name]
	}

	fks, err := d.fetchForeignKeys(ctx, table)
	if err != nil {
		return nil, err
	}

	return &database.TableInfo{
		Name:        table,
		Columns:     columns,
		PrimaryKey:  pks,
		ForeignKeys: fks,
	}, nil
}

// fetchColumns returns the columns in declaration order and the primary key
// columns in key order. table_info numbers key members from 1.
func (d *Driver) fetchColumns(ctx context.Context, table string) ([]*database.ColumnInfo, []string, error) {
	const q = `
		SELECT name, type, "notnull", dflt_value, pk
		FROM pragma_table_info(?)
		ORDER BY cid`

	rows, err := d.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	type keyMember struct {
		name string
		pos  int
	}
	var (
		cols []*database.ColumnInfo
		key  []keyMember
	)
	for rows.Next() {
		var (
			c       database.ColumnInfo
			decl    string
			notNull bool
			pos     int
		)
		if err := rows.Scan(&c.Name, &decl, &notNull, &c.Default, &pos); err != nil {
			return nil, nil, mapError(err, "failed to scan column info")
		}
		c.DataType, c.MaxLength = splitDeclaredType(decl)
		c.Nullable = !notNull && pos == 0
		if pos > 0 {
			c.IsPrimary = true
			key = append(key, keyMember{c.Name, pos})
		}
		cols = append(cols, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapError(err, "error iterating columns")
	}

	sort.Slice(key, func(i, j int) bool { return key[i].pos < key[j].pos })
	pks := make([]string, len(key))
	for i, k := range key {
		pks[i] = k.name
	}
	return cols, pks, nil
}

// fetchUniqueColumns returns the columns covered by a single-column UNIQUE
// constraint. Indexes created with CREATE INDEX are not constraints and are
// skipped.
func (d *Driver) fetchUniqueColumns(ctx context.Context, table string) (map[string]bool, error) {
	const q = `
		SELECT ii.name
		FROM pragma_index_list(?) AS il
		JOIN pragma_index_info(il.name) AS ii
		WHERE il."unique" = 1
		  AND il.origin   = 'u'
		  AND (SELECT count(*) FROM pragma_index_info(il.name)) = 1`

	rows, err := d.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch unique constraints")
	}
	defer rows.Close()

	unique := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan unique column")
		}
		unique[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating unique constraints")
	}
	return unique, nil
}

// fetchForeignKeys returns one entry per FK column. SQLite does not name
// FK constraints, so the name is derived from the constraint id. A
// REFERENCES clause without columns points at the parent's primary key.
func (d *Driver) fetchForeignKeys(ctx context.Context, table string) ([]*database.ForeignKey, error) {
	const q = `
		SELECT id, seq, "table", "from", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq`

	rows, err := d.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch foreign keys")
	}

	type fkRow struct {
		id, seq int
		fk      *database.ForeignKey
		to      sql.NullString
	}
	var raw []fkRow
	for rows.Next() {
		r := fkRow{fk: &database.ForeignKey{}}
		if err := rows.Scan(&r.id, &r.seq, &r.fk.RefTable, &r.fk.Column, &r.to); err != nil {
			rows.Close()
			return nil, mapError(err, "failed to scan foreign key")
		}
		raw = append(raw, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, mapError(err, "error iterating foreign keys")
	}

	fks := make([]*database.ForeignKey, 0, len(raw))
	parentKeys := make(map[string][]string)
	for _, r := range raw {
		r.fk.Name = fmt.Sprintf("fk_%s_%d", table, r.id)
		if r.to.Valid {
			r.fk.RefColumn = r.to.String
		} else {
			key, ok := parentKeys[r.fk.RefTable]
			if !ok {
				if _, key, err = d.fetchColumns(ctx, r.fk.RefTable); err != nil {
					return nil, err
				}
				parentKeys[r.fk.RefTable] = key
			}
			if r.seq >= len(key) {
				return nil, errs.Newf(errs.ErrKindInvalidInput,
					"%s: foreign key %d references %s, which has no matching primary key column", table, r.id, r.fk.RefTable)
			}
			r.fk.RefColumn = key[r.seq]
		}
		fks = append(fks, r.fk)
	}
	return fks, nil
}

// databasePath returns the file a DSN names, or "" for an in-memory
// database. Both plain paths and file: URIs are accepted.
func databasePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	path, _, _ = strings.Cut(path, "?")
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

func checkDatabaseFile(dsn string) error {
	path := databasePath(dsn)
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errs.Newf(errs.ErrKindNotFound, "database file %s does not exist", path)
	case errors.Is(err, fs.ErrPermission):
		return errs.Wrap(errs.ErrKindPermissionDenied, "database file "+path, err)
	case err != nil:
		return errs.Wrap(errs.ErrKindConnectionFailed, "database file "+path, err)
	case info.IsDir():
		return errs.Newf(errs.ErrKindInvalidInput, "database file %s is a directory", path)
	}
	return nil
}

// splitDeclaredType turns a declared type such as "VARCHAR(80)" into its
// lower-case base name and, for character types, its length.
func splitDeclaredType(decl string) (string, *int) {
	decl = strings.ToLower(strings.TrimSpace(decl))
	base, args, found := strings.Cut(decl, "(")
	base = strings.TrimSpace(base)
	if !found || !isCharacterType(base) {
		return base, nil
	}
	args, _, _ = strings.Cut(args, ")")
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n <= 0 {
		return base, nil
	}
	return base, &n
}

func isCharacterType(base string) bool {
	return strings.Contains(base, "char") || strings.Contains(base, "text") || strings.Contains(base, "clob")
}

// --- error mapping ---

// mapError translates modernc.org/sqlite errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var liteErr *msqlite.Error
	if errors.As(err, &liteErr) {
		return errs.Wrap(classifySQLiteCode(liteErr.Code()), msg, err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifySQLiteCode maps SQLite result codes to ErrKind. Extended codes
// carry the primary code in their low byte.
func classifySQLiteCode(code int) errs.ErrKind {
	switch code & 0xff {
	case 3, 23: // SQLITE_PERM, SQLITE_AUTH
		return errs.ErrKindPermissionDenied
	case 5, 6: // SQLITE_BUSY, SQLITE_LOCKED
		return errs.ErrKindTimeout
	case 14, 26: // SQLITE_CANTOPEN, SQLITE_NOTADB
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
