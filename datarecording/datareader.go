package datarecording

import (
	"database/sql"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// A DataReader reads traces back from a database written by a DataRecorder.
type DataReader struct {
	db *sql.DB
}

// NewReader opens the SQLite file at the given path for reading. The
// ".sqlite3" suffix is appended automatically.
func NewReader(path string) (*DataReader, error) {
	db, err := sql.Open("sqlite3", path+".sqlite3")
	if err != nil {
		return nil, err
	}

	return &DataReader{db: db}, nil
}

// NewReaderWithDB wraps an already-open database.
func NewReaderWithDB(db *sql.DB) *DataReader {
	return &DataReader{db: db}
}

// ListTables returns the names of all the tables in the database.
func (r *DataReader) ListTables() ([]string, error) {
	rows, err := r.db.Query(
		"SELECT name FROM sqlite_master WHERE type='table'")
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

// ReadAll returns every row of a table as column-name to value maps, in
// insertion order.
func (r *DataReader) ReadAll(tableName string) ([]map[string]any, error) {
	rows, err := r.db.Query("SELECT * FROM " + tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		entry := make(map[string]any, len(cols))
		for i, col := range cols {
			// The sqlite driver hands text back as raw bytes.
			if b, ok := values[i].([]byte); ok {
				entry[col] = string(b)
				continue
			}

			entry[col] = values[i]
		}

		out = append(out, entry)
	}

	return out, rows.Err()
}

// Close closes the underlying database.
func (r *DataReader) Close() error {
	return r.db.Close()
}
