package storage

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"rmimodels/pkg/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown model name.
var ErrNotFound = errors.New("storage: model not found")

// Entry is one row of the model catalog.
type Entry struct {
	Name         string
	Kind         string
	FunctionName string
	Restriction  string
	ErrorBound   uint64
	HasBound     bool
	// ParamKinds lists the kind of every encoded param, in order.
	ParamKinds []string
	// Params is the concatenation of every param written little endian.
	Params []byte
	Code   string
}

// Catalog records trained models in SQLite so a later code generation step
// can pick them up without retraining.
type Catalog struct {
	db *sql.DB
	mu sync.Mutex
}

func NewCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS models (
		name          TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		function_name TEXT NOT NULL,
		restriction   TEXT NOT NULL,
		error_bound   INTEGER,
		param_kinds   TEXT NOT NULL,
		params        BLOB,
		code          TEXT NOT NULL
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog table: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`)
	if err != nil {
		slog.Warn("failed to set catalog pragmas", "err", err)
	}

	return &Catalog{db: db}, nil
}

// EncodeParams concatenates the little-endian encoding of params.
func EncodeParams(params []model.Param) ([]byte, []string, error) {
	var buf bytes.Buffer
	kinds := make([]string, 0, len(params))
	for _, p := range params {
		if _, err := p.WriteTo(&buf); err != nil {
			return nil, nil, err
		}
		kinds = append(kinds, p.Kind.String())
	}
	return buf.Bytes(), kinds, nil
}

// Put inserts or replaces the model stored under name.
func (c *Catalog) Put(name string, m model.Model) error {
	params, kinds, err := EncodeParams(m.Params())
	if err != nil {
		return fmt.Errorf("encode params of %s: %w", name, err)
	}

	var bound sql.NullInt64
	if b, ok := m.ErrorBound(); ok {
		bound = sql.NullInt64{Int64: int64(b), Valid: true}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO models (name, kind, function_name, restriction, error_bound, param_kinds, params, code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		name, m.Kind().String(), m.FunctionName(), m.Restriction().String(),
		bound, strings.Join(kinds, ","), params, m.Code(),
	)
	return err
}

const selectEntry = `SELECT name, kind, function_name, restriction, error_bound, param_kinds, params, code FROM models`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e     Entry
		bound sql.NullInt64
		kinds string
	)
	if err := row.Scan(&e.Name, &e.Kind, &e.FunctionName, &e.Restriction, &bound, &kinds, &e.Params, &e.Code); err != nil {
		return Entry{}, err
	}
	if bound.Valid {
		e.ErrorBound, e.HasBound = uint64(bound.Int64), true
	}
	if kinds != "" {
		e.ParamKinds = strings.Split(kinds, ",")
	}
	return e, nil
}

func (c *Catalog) Get(name string) (Entry, error) {
	e, err := scanEntry(c.db.QueryRow(selectEntry+" WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, err
}

// List returns every entry ordered by name.
func (c *Catalog) List() ([]Entry, error) {
	rows, err := c.db.Query(selectEntry + " ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (c *Catalog) Delete(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec("DELETE FROM models WHERE name = ?", name)
	return err
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
