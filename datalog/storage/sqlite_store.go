package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/wbrown/spanlog/datalog"
)

const catalogSQL = `CREATE TABLE IF NOT EXISTS _spanlog_catalog (
	name  TEXT PRIMARY KEY,
	arity INTEGER NOT NULL
)`

// SQLiteStore keeps one SQL table per relation. Each column holds the
// encoded value as a BLOB; a constant _u column lets the UNIQUE
// constraint cover zero-arity tables too.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a database file, or a private
// in-memory database when path is empty
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: an in-memory database is private to its connection,
	// and SQLite only supports one writer at a time anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if path != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, pragma := range append(pragmas, catalogSQL) {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func quoteIdent(name string) string {
	return `"t_` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnList(arity int) []string {
	cols := make([]string, arity)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i)
	}
	return cols
}

func (s *SQLiteStore) arity(name string) (int, error) {
	var arity int
	err := s.db.QueryRow(`SELECT arity FROM _spanlog_catalog WHERE name = ?`, name).Scan(&arity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, noTable(name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog: %w", err)
	}
	return arity, nil
}

func (s *SQLiteStore) CreateTable(name string, arity int) error {
	if err := validateName(name); err != nil {
		return err
	}
	have, err := s.arity(name)
	if err == nil {
		if have != arity {
			return arityMismatch(name, have, arity)
		}
		return nil
	}
	if !datalog.IsKind(err, datalog.UndeclaredError) {
		return err
	}

	defs := []string{"_u INTEGER NOT NULL DEFAULT 0"}
	unique := []string{"_u"}
	for _, c := range columnList(arity) {
		defs = append(defs, c+" BLOB NOT NULL")
		unique = append(unique, c)
	}
	defs = append(defs, "UNIQUE ("+strings.Join(unique, ", ")+")")

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	if _, err := tx.Exec(`INSERT INTO _spanlog_catalog (name, arity) VALUES (?, ?)`, name, arity); err != nil {
		return fmt.Errorf("failed to register table %s: %w", name, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) HasTable(name string) (bool, error) {
	_, err := s.arity(name)
	if datalog.IsKind(err, datalog.UndeclaredError) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) Arity(name string) (int, error) {
	return s.arity(name)
}

func (s *SQLiteStore) DropTable(name string) error {
	if _, err := s.arity(name); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DROP TABLE " + quoteIdent(name)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	if _, err := tx.Exec(`DELETE FROM _spanlog_catalog WHERE name = ?`, name); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ClearTable(name string) error {
	if _, err := s.arity(name); err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM " + quoteIdent(name)); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) Insert(name string, tuples []datalog.Tuple) (int, error) {
	return s.mutate(name, tuples, func(arity int) string {
		cols := columnList(arity)
		if arity == 0 {
			return fmt.Sprintf("INSERT OR IGNORE INTO %s (_u) VALUES (0)", quoteIdent(name))
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", arity), ", ")
		return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
			quoteIdent(name), strings.Join(cols, ", "), marks)
	})
}

func (s *SQLiteStore) Delete(name string, tuples []datalog.Tuple) (int, error) {
	return s.mutate(name, tuples, func(arity int) string {
		conds := []string{"_u = 0"}
		for _, c := range columnList(arity) {
			conds = append(conds, c+" = ?")
		}
		return fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(name), strings.Join(conds, " AND "))
	})
}

// mutate runs one prepared statement per tuple in a single transaction
// and sums the affected rows
func (s *SQLiteStore) mutate(name string, tuples []datalog.Tuple, statement func(arity int) string) (int, error) {
	arity, err := s.arity(name)
	if err != nil {
		return 0, err
	}
	if err := checkArity(name, arity, tuples); err != nil {
		return 0, err
	}
	if len(tuples) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(statement(arity))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for %s: %w", name, err)
	}
	defer stmt.Close()

	changed := 0
	for _, tuple := range tuples {
		args := make([]any, len(tuple))
		for i, v := range tuple {
			enc, err := datalog.EncodeValue(v)
			if err != nil {
				return 0, err
			}
			args[i] = enc
		}
		res, err := stmt.Exec(args...)
		if err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		changed += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return changed, nil
}

func (s *SQLiteStore) Scan(name string) ([]datalog.Tuple, error) {
	arity, err := s.arity(name)
	if err != nil {
		return nil, err
	}
	cols := append([]string{"_u"}, columnList(arity)...)
	rows, err := s.db.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(cols, ", "), quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", name, err)
	}
	defer rows.Close()

	var out []datalog.Tuple
	for rows.Next() {
		var unique int64
		raw := make([][]byte, arity)
		dest := []any{&unique}
		for i := range raw {
			dest = append(dest, &raw[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		tuple := make(datalog.Tuple, arity)
		for i, data := range raw {
			v, _, err := datalog.DecodeValue(data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode row of %s: %w", name, err)
			}
			tuple[i] = v
		}
		out = append(out, tuple)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Len(name string) (int, error) {
	if _, err := s.arity(name); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + quoteIdent(name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", name, err)
	}
	return n, nil
}

func (s *SQLiteStore) Tables() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM _spanlog_catalog ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
