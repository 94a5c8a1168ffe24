package sqltable

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapdata/pkg/dataset"
	"github.com/leapstack-labs/leapdata/pkg/format"
	"github.com/leapstack-labs/leapdata/pkg/table"

	_ "github.com/jackc/pgx/v5/stdlib"  // postgres driver
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	_ "modernc.org/sqlite"              // sqlite driver
)

const (
	// IfExistsFail refuses to save when the table already exists.
	IfExistsFail = "fail"
	// IfExistsReplace drops and recreates the table before saving.
	IfExistsReplace = "replace"
	// IfExistsAppend inserts into the existing table, creating it if needed.
	IfExistsAppend = "append"
)

// TableExistsError is returned by a save with if_exists "fail" when the
// target table is already present.
type TableExistsError struct {
	Table string
}

func (e *TableExistsError) Error() string {
	return fmt.Sprintf("table %q already exists\nHint: set save_args if_exists to %q or %q to overwrite or extend it", e.Table, IfExistsReplace, IfExistsAppend)
}

// dialect carries the per-driver SQL surface the dataset needs.
type dialect struct {
	name        string
	driver      string
	dollarArgs  bool
	existsQuery string
	typeFloat   string
	typeInt     string
}

var (
	dialectPostgres = dialect{
		name:        "postgres",
		driver:      "pgx",
		dollarArgs:  true,
		existsQuery: "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = $1",
		typeFloat:   "DOUBLE PRECISION",
		typeInt:     "BIGINT",
	}
	dialectDuckDB = dialect{
		name:        "duckdb",
		driver:      "duckdb",
		existsQuery: "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?",
		typeFloat:   "DOUBLE",
		typeInt:     "BIGINT",
	}
	dialectSQLite = dialect{
		name:        "sqlite",
		driver:      "sqlite",
		existsQuery: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		typeFloat:   "REAL",
		typeInt:     "INTEGER",
	}
)

func (d dialect) placeholder(index int) string {
	if d.dollarArgs {
		return "$" + strconv.Itoa(index)
	}
	return "?"
}

// resolveDialect picks driver and DSN from a connection string scheme.
func resolveDialect(con string) (dialect, string, error) {
	scheme, rest, ok := strings.Cut(con, "://")
	switch {
	case !ok:
		return dialect{}, "", fmt.Errorf("connection string has no scheme, expected e.g. postgresql://... or sqlite:///data.db")
	case strings.EqualFold(scheme, "postgres") || strings.EqualFold(scheme, "postgresql"):
		// pgx accepts the full URL form.
		return dialectPostgres, con, nil
	case strings.EqualFold(scheme, "duckdb"):
		if rest == "" {
			rest = ":memory:"
		}
		return dialectDuckDB, rest, nil
	case strings.EqualFold(scheme, "sqlite"):
		if rest == "" {
			return dialectSQLite, ":memory:", nil
		}
		return dialectSQLite, strings.TrimPrefix(rest, "/"), nil
	default:
		return dialect{}, "", fmt.Errorf("unsupported connection scheme %q, supported: postgresql, duckdb, sqlite", scheme)
	}
}

type loadOptions struct {
	Columns []string `koanf:"columns"`
}

type saveOptions struct {
	IfExists string `koanf:"if_exists"`
}

// Dataset maps one database table to a table value.
type Dataset struct {
	db        *sql.DB
	dialect   dialect
	tableName string
	loadOpts  loadOptions
	saveOpts  saveOptions
	logger    *slog.Logger
}

// New constructs an sql_table dataset. The connection is opened lazily,
// so constructing against an unreachable database does not fail.
func New(cfg dataset.Config, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.TableName == "" {
		return nil, fmt.Errorf("table_name not specified")
	}
	con, _ := cfg.Credentials["con"].(string)
	if con == "" {
		return nil, fmt.Errorf(`credentials must provide a "con" connection string`)
	}
	dia, dsn, err := resolveDialect(con)
	if err != nil {
		return nil, err
	}

	loadOpts := loadOptions{}
	if err := format.DecodeOptions(cfg.LoadArgs, &loadOpts); err != nil {
		return nil, err
	}
	saveOpts := saveOptions{IfExists: IfExistsFail}
	if err := format.DecodeOptions(cfg.SaveArgs, &saveOpts); err != nil {
		return nil, err
	}
	switch saveOpts.IfExists {
	case IfExistsFail, IfExistsReplace, IfExistsAppend:
	default:
		return nil, fmt.Errorf("unsupported if_exists %q, expected %q, %q or %q", saveOpts.IfExists, IfExistsFail, IfExistsReplace, IfExistsAppend)
	}

	db, err := sql.Open(dia.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dia.name, err)
	}
	if dsn == ":memory:" {
		// Every pooled connection would otherwise see its own database.
		db.SetMaxOpenConns(1)
	}

	return &Dataset{
		db:        db,
		dialect:   dia,
		tableName: cfg.TableName,
		loadOpts:  loadOpts,
		saveOpts:  saveOpts,
		logger:    logger,
	}, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Dataset) quotedTable() string {
	// Respect an explicit schema qualifier.
	if schema, name, ok := strings.Cut(d.tableName, "."); ok {
		return quoteIdent(schema) + "." + quoteIdent(name)
	}
	return quoteIdent(d.tableName)
}

// Load reads the whole table, or the configured column subset.
func (d *Dataset) Load(ctx context.Context) (*table.Table, error) {
	projection := "*"
	if len(d.loadOpts.Columns) > 0 {
		quoted := make([]string, len(d.loadOpts.Columns))
		for i, c := range d.loadOpts.Columns {
			quoted[i] = quoteIdent(c)
		}
		projection = strings.Join(quoted, ", ")
	}
	query := fmt.Sprintf("SELECT %s FROM %s", projection, d.quotedTable()) //nolint:gosec // identifiers are quoted

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", d.tableName, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}
	tbl, err := table.New(columns...)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		cells := make([]any, len(columns))
		for i, v := range values {
			cells[i] = fromSQL(v)
		}
		if err := tbl.Append(cells...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tbl, nil
}

// fromSQL maps driver values onto the cell domain.
func fromSQL(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// Save writes the table according to the if_exists policy.
func (d *Dataset) Save(ctx context.Context, t *table.Table) error {
	if t == nil {
		return fmt.Errorf("cannot save a nil table")
	}
	if t.Width() == 0 {
		return fmt.Errorf("cannot save a table with no columns")
	}

	exists, err := d.tableExists(ctx)
	if err != nil {
		return err
	}
	switch d.saveOpts.IfExists {
	case IfExistsFail:
		if exists {
			return &TableExistsError{Table: d.tableName}
		}
	case IfExistsReplace:
		if exists {
			drop := "DROP TABLE IF EXISTS " + d.quotedTable()
			if _, err := d.db.ExecContext(ctx, drop); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", d.tableName, err)
			}
			exists = false
		}
	case IfExistsAppend:
	}

	if !exists {
		if err := d.createTable(ctx, t); err != nil {
			return err
		}
	}
	return d.insertRows(ctx, t)
}

func (d *Dataset) createTable(ctx context.Context, t *table.Table) error {
	defs := make([]string, 0, t.Width())
	for _, col := range t.Columns() {
		defs = append(defs, quoteIdent(col)+" "+d.columnType(t, col))
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", d.quotedTable(), strings.Join(defs, ", ")) //nolint:gosec // identifiers are quoted
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", d.tableName, err)
	}
	return nil
}

// columnType picks a column type from the first non-nil cell. A column
// holding only nils becomes TEXT.
func (d *Dataset) columnType(t *table.Table, column string) string {
	for i := 0; i < t.Len(); i++ {
		cell, _ := t.Cell(i, column)
		switch cell.(type) {
		case nil:
			continue
		case bool:
			return "BOOLEAN"
		case int64:
			return d.dialect.typeInt
		case float64:
			return d.dialect.typeFloat
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

func (d *Dataset) insertRows(ctx context.Context, t *table.Table) error {
	if t.Len() == 0 {
		return nil
	}
	columns := t.Columns()
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		placeholders[i] = d.dialect.placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", //nolint:gosec // identifiers are quoted
		d.quotedTable(), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < t.Len(); i++ {
		if _, err := stmt.ExecContext(ctx, t.Row(i)...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert: %w", err)
	}
	return nil
}

func (d *Dataset) tableExists(ctx context.Context) (bool, error) {
	name := d.tableName
	if _, bare, ok := strings.Cut(d.tableName, "."); ok {
		name = bare
	}
	var count int64
	if err := d.db.QueryRowContext(ctx, d.dialect.existsQuery, name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", d.tableName, err)
	}
	return count > 0, nil
}

// Exists reports whether the table is present in the database.
func (d *Dataset) Exists(ctx context.Context) (bool, error) {
	return d.tableExists(ctx)
}

// Describe returns the dataset configuration. Credentials are never
// included.
func (d *Dataset) Describe() map[string]any {
	desc := map[string]any{
		"table_name": d.tableName,
		"dialect":    d.dialect.name,
		"save_args":  map[string]any{"if_exists": d.saveOpts.IfExists},
	}
	if len(d.loadOpts.Columns) > 0 {
		desc["load_args"] = map[string]any{"columns": append([]string(nil), d.loadOpts.Columns...)}
	}
	return desc
}

// Release is a no-op: pooled connections are managed by database/sql.
func (d *Dataset) Release() {}

// Close closes the underlying connection pool.
func (d *Dataset) Close() error {
	return d.db.Close()
}
